package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mediaframe/internal/fileutil"
	"mediaframe/internal/notifications"
	"mediaframe/internal/pipeline"
)

// processSpec describes one processing subcommand.
type processSpec struct {
	use       string
	short     string
	kind      pipeline.Kind
	withModel bool
	// flags registers option flags and returns a function collecting the
	// ones the user set as ParseOptions fields.
	flags func(cmd *cobra.Command) func() map[string]string
}

func newProcessCommands(ctx *commandContext) []*cobra.Command {
	specs := []processSpec{
		{use: "bassboost <file>", short: "Boost frequencies below the configured cutoff", kind: pipeline.KindBassBoost},
		{use: "denoise <file>", short: "Subtract the stationary noise profile", kind: pipeline.KindNoiseCancel},
		{
			use:   "pitch <file>",
			short: "Shift pitch by a number of semitones",
			kind:  pipeline.KindPitchShift,
			flags: func(cmd *cobra.Command) func() map[string]string {
				steps := cmd.Flags().Int("steps", 0, "Semitones to shift (negative lowers pitch); defaults to effects.default_pitch_steps")
				return changedFlags(cmd, map[string]func() string{
					"steps": func() string { return strconv.Itoa(*steps) },
				}, map[string]string{"steps": pipeline.FieldSteps})
			},
		},
		{
			use:   "speed <file>",
			short: "Change playback speed without changing pitch",
			kind:  pipeline.KindSpeedUp,
			flags: func(cmd *cobra.Command) func() map[string]string {
				factor := cmd.Flags().Float64("factor", 0, "Speed factor greater than zero; defaults to effects.default_speed_factor")
				return changedFlags(cmd, map[string]func() string{
					"factor": func() string { return strconv.FormatFloat(*factor, 'g', -1, 64) },
				}, map[string]string{"factor": pipeline.FieldSpeedFactor})
			},
		},
		{
			use:       "transcribe <file>",
			short:     "Transcribe speech with timestamps",
			kind:      pipeline.KindTranscribe,
			withModel: true,
			flags: func(cmd *cobra.Command) func() map[string]string {
				lang := cmd.Flags().String("language", "", "Language hint (name or ISO code); empty uses transcription.language")
				return changedFlags(cmd, map[string]func() string{
					"language": func() string { return *lang },
				}, map[string]string{"language": pipeline.FieldLanguage})
			},
		},
		{
			use:       "speakers <file>",
			short:     "Transcribe and attribute text to speakers",
			kind:      pipeline.KindSpeechIdentifier,
			withModel: true,
			flags: func(cmd *cobra.Command) func() map[string]string {
				lang := cmd.Flags().String("language", "", "Language hint (name or ISO code); empty uses transcription.language")
				speakers := cmd.Flags().Int("speakers", 0, "Number of speakers; defaults to diarization.speakers")
				return changedFlags(cmd, map[string]func() string{
					"language": func() string { return *lang },
					"speakers": func() string { return strconv.Itoa(*speakers) },
				}, map[string]string{"language": pipeline.FieldLanguage, "speakers": pipeline.FieldSpeakers})
			},
		},
		{use: "subtitle <video>", short: "Burn word-level subtitles into a video", kind: pipeline.KindTranscribeVideo},
	}

	commands := make([]*cobra.Command, 0, len(specs))
	for _, spec := range specs {
		commands = append(commands, newProcessCommand(ctx, spec))
	}
	return commands
}

func newProcessCommand(ctx *commandContext, spec processSpec) *cobra.Command {
	var output string
	var collect func() map[string]string

	cmd := &cobra.Command{
		Use:   spec.use,
		Short: spec.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			processor, closeFn, err := ctx.newProcessor(cmd.Context(), spec.withModel)
			if err != nil {
				return err
			}
			defer closeFn()

			var values map[string]string
			if collect != nil {
				values = collect()
			}
			opts, err := pipeline.ParseOptionsWith(processor.DefaultOptions(), spec.kind, values)
			if err != nil {
				return err
			}

			job := notifications.Job{Kind: string(spec.kind), Input: args[0]}
			started := time.Now()
			result, err := processor.Process(cmd.Context(), pipeline.Request{
				Kind:     spec.kind,
				Filename: filepath.Base(args[0]),
				Data:     data,
				Options:  opts,
			})
			if err != nil {
				job.Duration = time.Since(started)
				ctx.notify(cmd.Context(), func(svc notifications.Service) error {
					return svc.NotifyJobFailed(cmd.Context(), job, err)
				})
				return err
			}
			job.Output, job.Bytes, err = deliverResult(cmd, ctx, result, output)
			if err != nil {
				return err
			}
			job.Duration = time.Since(started)
			ctx.notify(cmd.Context(), func(svc notifications.Service) error {
				return svc.NotifyJobCompleted(cmd.Context(), job)
			})
			return nil
		},
	}
	if spec.kind.ProducesFile() {
		cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file or directory (defaults to paths.output_dir)")
	}
	if spec.flags != nil {
		collect = spec.flags(cmd)
	}
	return cmd
}

// changedFlags returns a collector for the flags the user explicitly set,
// keyed by option field name.
func changedFlags(cmd *cobra.Command, values map[string]func() string, fields map[string]string) func() map[string]string {
	return func() map[string]string {
		out := make(map[string]string)
		for flag, value := range values {
			if cmd.Flags().Changed(flag) {
				out[fields[flag]] = value()
			}
		}
		return out
	}
}

// deliverResult copies any artifact to its destination, releases it and
// prints the structured result. It returns the written path and size.
func deliverResult(cmd *cobra.Command, ctx *commandContext, result pipeline.Result, output string) (string, int64, error) {
	var destination string
	var size int64
	if result.Artifact != nil {
		defer result.Artifact.Release()
		cfg, err := ctx.ensureConfig()
		if err != nil {
			return "", 0, err
		}
		destination = resolveDestination(output, cfg.Paths.OutputDir, result.DownloadName)
		if err := fileutil.CopyFile(result.Artifact.Path, destination); err != nil {
			return "", 0, fmt.Errorf("write output: %w", err)
		}
		for _, sidecar := range result.Artifact.Sidecars {
			target := strings.TrimSuffix(destination, filepath.Ext(destination)) + filepath.Ext(sidecar)
			if err := fileutil.CopyFile(sidecar, target); err != nil {
				return "", 0, fmt.Errorf("write sidecar: %w", err)
			}
		}
		if info, err := os.Stat(destination); err == nil {
			size = info.Size()
		}
	}

	if ctx.jsonOutput() {
		err := writeJSON(cmd, struct {
			pipeline.Result
			Output string `json:"output,omitempty"`
			Bytes  int64  `json:"bytes,omitempty"`
		}{Result: result, Output: destination, Bytes: size})
		return destination, size, err
	}

	out := cmd.OutOrStdout()
	switch {
	case result.Speakers != nil:
		for _, segment := range result.Speakers.Segments {
			fmt.Fprintf(out, "[%s - %s] %s:%s\n",
				formatSeconds(segment.Start), formatSeconds(segment.End), segment.Speaker, segment.Text)
		}
	case result.Transcript != nil:
		for _, segment := range result.Transcript.Segments {
			fmt.Fprintf(out, "[%s - %s] %s\n", formatSeconds(segment.Start), formatSeconds(segment.End), strings.TrimSpace(segment.Text))
		}
	}
	if destination != "" {
		fmt.Fprintf(out, "Wrote %s (%s)\n", destination, humanize.Bytes(uint64(size)))
	}
	return destination, size, nil
}

// resolveDestination picks the output path. An existing directory or an
// empty flag receives the artifact under its download name.
func resolveDestination(output, outputDir, downloadName string) string {
	output = strings.TrimSpace(output)
	if output == "" {
		return filepath.Join(outputDir, downloadName)
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, downloadName)
	}
	return output
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 2, 64) + "s"
}
