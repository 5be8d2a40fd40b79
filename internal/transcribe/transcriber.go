package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"mediaframe/internal/audio"
	"mediaframe/internal/config"
	"mediaframe/internal/language"
	"mediaframe/internal/logging"
	"mediaframe/internal/services"
)

// Cache stores transcripts keyed by audio content, model and language.
type Cache interface {
	Lookup(ctx context.Context, data []byte, model, language string) (Transcript, bool, error)
	Store(ctx context.Context, data []byte, model, language string, transcript Transcript) error
}

// Transcriber turns audio into timestamped transcripts using a loaded Model.
type Transcriber struct {
	model   *Model
	tempDir string
	cache   Cache
	logger  *slog.Logger
}

// Option customizes a Transcriber.
type Option func(*Transcriber)

// WithTempDir sets where buffers are spooled before transcription.
func WithTempDir(dir string) Option {
	return func(t *Transcriber) { t.tempDir = dir }
}

// WithCache enables transcript caching.
func WithCache(cache Cache) Option {
	return func(t *Transcriber) { t.cache = cache }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transcriber) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTranscriber builds a Transcriber around model.
func NewTranscriber(model *Model, opts ...Option) *Transcriber {
	t := &Transcriber{model: model, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logging.NewComponentLogger(t.logger, "transcribe")
	return t
}

// Model returns the underlying handle.
func (t *Transcriber) Model() *Model {
	return t.model
}

// TranscribeFile transcribes the audio file at path. The language hint may be
// empty for auto-detection.
func (t *Transcriber) TranscribeFile(ctx context.Context, path, hint string) (Transcript, error) {
	if !t.model.Ready() {
		return Transcript{}, services.Wrap(services.ErrModelNotReady, "transcribe", "transcribe", "model has not been loaded", nil)
	}
	lang, err := language.Normalize(hint)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrInvalidParameter, "transcribe", "language", "", err)
	}

	var data []byte
	if t.cache != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return Transcript{}, services.Wrap(services.ErrTranscription, "transcribe", "read audio", "", err)
		}
		cached, ok, err := t.cache.Lookup(ctx, data, t.model.Name(), lang)
		switch {
		case err != nil:
			logging.WarnWithContext(ctx, t.logger, "transcript cache lookup failed", "transcript_cache_lookup_failed",
				logging.String(logging.FieldImpact, "transcribing without cache"),
				logging.String(logging.FieldErrorHint, "check cache_dir permissions"),
				logging.Error(err),
			)
		case ok:
			t.logger.InfoContext(ctx, "transcript cache hit",
				logging.String(logging.FieldEventType, "transcript_cache_hit"),
				logging.String("model", t.model.Name()),
				logging.Int("segments", len(cached.Segments)),
			)
			return cached, nil
		}
	}

	started := time.Now()
	transcript, err := t.model.engine.Transcribe(ctx, path, lang)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrTranscription, "transcribe", t.model.Name(), "engine failed", err)
	}
	if transcript.Text == "" {
		transcript.Text = JoinText(transcript.Segments)
	}
	if transcript.Language == "" {
		transcript.Language = lang
	}
	t.logger.InfoContext(ctx, "transcription complete",
		logging.String(logging.FieldEventType, "transcription_complete"),
		logging.String("model", t.model.Name()),
		logging.String("language", transcript.Language),
		logging.Int("segments", len(transcript.Segments)),
		logging.Duration("elapsed", time.Since(started)),
	)

	if t.cache != nil {
		if err := t.cache.Store(ctx, data, t.model.Name(), lang, transcript); err != nil {
			logging.WarnWithContext(ctx, t.logger, "transcript cache store failed", "transcript_cache_store_failed",
				logging.String(logging.FieldImpact, "result not cached"),
				logging.String(logging.FieldErrorHint, "check cache_dir permissions"),
				logging.Error(err),
			)
		}
	}
	return transcript, nil
}

// TranscribeBuffer spools buf to a temporary WAV file, transcribes it and
// removes the file.
func (t *Transcriber) TranscribeBuffer(ctx context.Context, buf audio.Buffer, hint string) (Transcript, error) {
	if !t.model.Ready() {
		return Transcript{}, services.Wrap(services.ErrModelNotReady, "transcribe", "transcribe", "model has not been loaded", nil)
	}
	if err := buf.Validate(); err != nil {
		return Transcript{}, services.Wrap(services.ErrInvalidParameter, "transcribe", "buffer", "", err)
	}
	file, err := os.CreateTemp(t.tempDir, "transcribe-*.wav")
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrTranscription, "transcribe", "spool audio", "", err)
	}
	path := file.Name()
	defer os.Remove(path)
	if err := audio.WriteWAV(file, buf); err != nil {
		file.Close()
		return Transcript{}, services.Wrap(services.ErrTranscription, "transcribe", "spool audio", "", err)
	}
	if err := file.Close(); err != nil {
		return Transcript{}, services.Wrap(services.ErrTranscription, "transcribe", "spool audio", "", err)
	}
	return t.TranscribeFile(ctx, path, hint)
}

// EngineFromConfig builds the engine selected by cfg.Transcription.Engine.
func EngineFromConfig(cfg *config.Config, runner services.CommandRunner) (Engine, error) {
	tc := cfg.Transcription
	switch tc.Engine {
	case "", WhisperXEngineName:
		return NewWhisperX(WhisperXConfig{
			Model:       tc.Model,
			CUDAEnabled: tc.CUDAEnabled,
			VADMethod:   tc.VADMethod,
			HFToken:     tc.HFToken,
			WorkDir:     cfg.TempDir(),
		}, runner), nil
	case OpenAIEngineName:
		return NewOpenAI(OpenAIConfig{
			BaseURL: tc.OpenAIBaseURL,
			APIKey:  tc.OpenAIAPIKey,
			Model:   tc.OpenAIModel,
		}), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "engine", fmt.Sprintf("unknown engine %q", tc.Engine), nil)
	}
}
