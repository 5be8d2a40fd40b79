package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mediaframe/internal/config"
	"mediaframe/internal/deps"
	"mediaframe/internal/preflight"
	"mediaframe/internal/transcriptcache"
)

type cacheStatus struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path,omitempty"`
	Entries    int    `json:"entries"`
	AudioBytes int64  `json:"audio_bytes"`
	Hits       int64  `json:"hits"`
	Error      string `json:"error,omitempty"`
}

type statusReport struct {
	ConfigPath   string             `json:"config_path"`
	Dependencies []deps.Status      `json:"dependencies"`
	Directories  []preflight.Result `json:"directories"`
	Services     []preflight.Result `json:"services,omitempty"`
	Cache        cacheStatus        `json:"transcript_cache"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkServices bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show dependency, directory and service readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := buildStatusReport(cmd.Context(), cfg, ctx.configPath, checkServices)
			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderStatusReport(cfg, report, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkServices, "check-services", false, "Also verify remote transcription service credentials")
	return cmd
}

func buildStatusReport(ctx context.Context, cfg *config.Config, configPath string, checkServices bool) statusReport {
	report := statusReport{
		ConfigPath:   configPath,
		Dependencies: preflight.CheckSystemDeps(cfg),
		Directories:  preflight.RunAll(ctx, cfg),
		Cache:        transcriptCacheStatus(ctx, cfg),
	}
	if checkServices {
		report.Services = []preflight.Result{
			preflight.CheckOpenAIFromConfig(ctx, cfg),
			preflight.CheckAssemblyAIFromConfig(ctx, cfg),
		}
	}
	return report
}

func transcriptCacheStatus(ctx context.Context, cfg *config.Config) cacheStatus {
	status := cacheStatus{Enabled: cfg.Transcription.CacheEnabled, Path: cfg.TranscriptCachePath()}
	if !status.Enabled {
		return status
	}
	store, err := transcriptcache.Open(ctx, status.Path, nil)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer store.Close()
	stats, err := store.Stats(ctx)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Entries = stats.Entries
	status.AudioBytes = stats.AudioBytes
	status.Hits = stats.Hits
	return status
}

func renderStatusReport(cfg *config.Config, report statusReport, colorize bool) string {
	var lines []string

	lines = append(lines, renderSectionHeader("Configuration", colorize)...)
	lines = append(lines,
		renderStatusLine("Config file", statusInfo, report.ConfigPath, colorize),
		renderStatusLine("Output format", statusInfo, cfg.Audio.OutputFormat, colorize),
		renderStatusLine("Transcription engine", statusInfo, fmt.Sprintf("%s (model %s)", cfg.Transcription.Engine, cfg.Transcription.Model), colorize),
		renderStatusLine("Speakers", statusInfo, fmt.Sprintf("%d", cfg.Diarization.Speakers), colorize),
		renderStatusLine("Write SRT", statusInfo, yesNo(cfg.Subtitles.WriteSRT), colorize),
		renderStatusLine("Notifications", statusInfo, notificationTarget(cfg), colorize),
		"",
	)

	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	lines = append(lines, renderTable(
		[]string{"Name", "Status", "Location", "Purpose"},
		dependencyRows(report.Dependencies),
		nil,
		colorize,
	), "")

	lines = append(lines, renderSectionHeader("Directories", colorize)...)
	for _, result := range report.Directories {
		lines = append(lines, renderStatusLine(result.Name, checkKind(result), result.Detail, colorize))
	}
	lines = append(lines, "")

	if len(report.Services) > 0 {
		lines = append(lines, renderSectionHeader("Services", colorize)...)
		for _, result := range report.Services {
			lines = append(lines, renderStatusLine(result.Name, checkKind(result), result.Detail, colorize))
		}
		lines = append(lines, "")
	}

	lines = append(lines, renderSectionHeader("Transcript cache", colorize)...)
	cache := report.Cache
	switch {
	case !cache.Enabled:
		lines = append(lines, renderStatusLine("Cache", statusInfo, "Disabled", colorize))
	case cache.Error != "":
		lines = append(lines, renderStatusLine("Cache", statusError, cache.Error, colorize))
	default:
		lines = append(lines,
			renderStatusLine("Cache", statusOK, cache.Path, colorize),
			renderStatusLine("Entries", statusInfo, humanize.Comma(int64(cache.Entries)), colorize),
			renderStatusLine("Audio cached", statusInfo, humanize.Bytes(uint64(max(cache.AudioBytes, 0))), colorize),
			renderStatusLine("Reuses", statusInfo, humanize.Comma(cache.Hits), colorize),
		)
	}
	return strings.Join(lines, "\n") + "\n"
}

func notificationTarget(cfg *config.Config) string {
	if cfg.Notifications.NtfyTopic == "" {
		return "Disabled"
	}
	return cfg.Notifications.NtfyTopic
}
