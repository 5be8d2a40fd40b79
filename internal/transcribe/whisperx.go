package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"mediaframe/internal/services"
)

// WhisperX invocation constants.
const (
	WhisperXEngineName = "whisperx"
	DefaultModel       = "base"
	CUDAIndexURL       = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL       = "https://pypi.org/simple"
	BatchSize          = "4"
	ChunkSize          = "15"
	VADOnset           = "0.08"
	VADOffset          = "0.07"
	BeamSize           = "10"
	BestOf             = "10"
	Temperature        = "0.0"
	Patience           = "1.0"
	SegmentResolution  = "sentence"
	OutputFormat       = "json"
	CPUDevice          = "cpu"
	CUDADevice         = "cuda"
	CPUComputeType     = "float32"
	VADMethodPyannote  = "pyannote"
	VADMethodSilero    = "silero"
	UVXCommand         = "uvx"

	torchWeightsEnv = "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD"
)

// WhisperXConfig captures runtime settings for WhisperX.
type WhisperXConfig struct {
	// Model is the Whisper model size, e.g. "base" or "large-v3".
	Model       string
	CUDAEnabled bool
	// VADMethod selects voice activity detection: "silero" or "pyannote".
	VADMethod string
	// HFToken is the Hugging Face token required by pyannote.
	HFToken string
	// WorkDir receives per-call output directories. Empty means the OS default.
	WorkDir string
}

// WhisperX runs the whisperx CLI through uvx and reads its JSON output.
type WhisperX struct {
	cfg WhisperXConfig
	run services.CommandRunner
}

// NewWhisperX builds the engine. A nil runner uses the real uvx.
func NewWhisperX(cfg WhisperXConfig, runner services.CommandRunner) *WhisperX {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if runner == nil {
		runner = runWithTorchEnv
	}
	return &WhisperX{cfg: cfg, run: runner}
}

// Name implements Engine.
func (w *WhisperX) Name() string {
	return WhisperXEngineName + ":" + w.cfg.Model
}

// Load checks that uvx can be invoked. Model weights are fetched by whisperx
// on first use.
func (w *WhisperX) Load(ctx context.Context) error {
	if _, err := w.run(ctx, UVXCommand, "--version"); err != nil {
		return services.Wrap(services.ErrExternalService, "transcribe", "whisperx", "uvx unavailable", err)
	}
	return nil
}

// Transcribe implements Engine. The whisperx output directory is removed
// before returning.
func (w *WhisperX) Transcribe(ctx context.Context, path, language string) (Transcript, error) {
	if strings.TrimSpace(path) == "" {
		return Transcript{}, fmt.Errorf("whisperx: source path required")
	}
	outputDir, err := os.MkdirTemp(w.cfg.WorkDir, "whisperx-*")
	if err != nil {
		return Transcript{}, fmt.Errorf("whisperx: create output dir: %w", err)
	}
	defer os.RemoveAll(outputDir)

	if _, err := w.run(ctx, UVXCommand, w.buildArgs(path, outputDir, language)...); err != nil {
		return Transcript{}, services.Wrap(services.ErrExternalService, "transcribe", "whisperx", "command failed", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	transcript, err := LoadWhisperXJSON(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return Transcript{}, err
	}
	if transcript.Language == "" {
		transcript.Language = language
	}
	return transcript, nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (w *WhisperX) buildArgs(source, outputDir, language string) []string {
	args := make([]string, 0, 40)

	if w.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", w.cfg.Model,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--best_of", BestOf,
		"--temperature", Temperature,
		"--patience", Patience,
	)

	vadMethod := w.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && w.cfg.HFToken != "" {
		args = append(args, "--hf_token", w.cfg.HFToken)
	}

	if language != "" {
		args = append(args, "--language", language)
	}

	if w.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

type whisperXWord struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

type whisperXSegment struct {
	Text  string         `json:"text"`
	Start float64        `json:"start"`
	End   float64        `json:"end"`
	Words []whisperXWord `json:"words"`
}

type whisperXPayload struct {
	Language string            `json:"language"`
	Segments []whisperXSegment `json:"segments"`
}

// LoadWhisperXJSON reads a whisperx JSON result. Words that whisperx could not
// align carry no timings; they inherit the previous word's end, or the
// segment start for the first word.
func LoadWhisperXJSON(path string) (Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Transcript{}, fmt.Errorf("whisperx: read result: %w", err)
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Transcript{}, fmt.Errorf("parse whisperx json: %w", err)
	}

	transcript := Transcript{
		Language: payload.Language,
		Segments: make([]Segment, 0, len(payload.Segments)),
	}
	for _, raw := range payload.Segments {
		seg := Segment{Start: raw.Start, End: raw.End, Text: strings.TrimSpace(raw.Text)}
		cursor := raw.Start
		for _, rw := range raw.Words {
			word := Word{Text: strings.TrimSpace(rw.Word), Start: cursor, End: cursor}
			if rw.Start != nil {
				word.Start = *rw.Start
			}
			if rw.End != nil {
				word.End = *rw.End
			} else {
				word.End = word.Start
			}
			cursor = word.End
			seg.Words = append(seg.Words, word)
		}
		transcript.Segments = append(transcript.Segments, seg)
	}
	transcript.Text = JoinText(transcript.Segments)
	return transcript, nil
}

// runWithTorchEnv executes a command with TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD
// set. Torch 2.6 changed torch.load to weights-only, which breaks the
// pyannote checkpoints whisperx loads.
func runWithTorchEnv(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if os.Getenv(torchWeightsEnv) == "" {
		cmd.Env = append(os.Environ(), torchWeightsEnv+"=1")
	}
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return output, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return output, fmt.Errorf("%s: %w", name, err)
	}
	return output, nil
}
