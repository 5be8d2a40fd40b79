package transcribe

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mediaframe/internal/logging"
	"mediaframe/internal/services"
)

// Engine is a speech-to-text backend.
type Engine interface {
	// Name identifies the engine and model for logs and cache keys.
	Name() string
	// Load prepares the engine. It is called once per process.
	Load(ctx context.Context) error
	// Transcribe recognizes speech in the audio file at path. An empty
	// language lets the engine detect it.
	Transcribe(ctx context.Context, path, language string) (Transcript, error)
}

// Model is the process-wide handle around an Engine. It is constructed
// explicitly, loaded once, and read-only afterwards, so concurrent requests
// may share it.
type Model struct {
	engine Engine
	logger *slog.Logger

	once    sync.Once
	ready   atomic.Bool
	loadErr error
}

// NewModel wraps engine in an unloaded handle.
func NewModel(engine Engine, logger *slog.Logger) *Model {
	return &Model{
		engine: engine,
		logger: logging.NewComponentLogger(logger, "transcribe"),
	}
}

// Load prepares the engine. Only the first call does any work; later calls
// return the first call's result.
func (m *Model) Load(ctx context.Context) error {
	m.once.Do(func() {
		started := time.Now()
		if err := m.engine.Load(ctx); err != nil {
			m.loadErr = services.Wrap(services.ErrModelNotReady, "transcribe", "load model", m.engine.Name(), err)
			logging.ErrorWithContext(ctx, m.logger, "model load failed", "model_load_failed",
				logging.String("engine", m.engine.Name()),
				logging.String(logging.FieldErrorHint, "check that the transcription engine is installed and configured"),
				logging.Error(err),
			)
			return
		}
		m.ready.Store(true)
		m.logger.InfoContext(ctx, "model loaded",
			logging.String(logging.FieldEventType, "model_loaded"),
			logging.String("engine", m.engine.Name()),
			logging.Duration("elapsed", time.Since(started)),
		)
	})
	return m.loadErr
}

// Ready reports whether Load completed successfully.
func (m *Model) Ready() bool {
	return m != nil && m.ready.Load()
}

// Name returns the engine name.
func (m *Model) Name() string {
	if m == nil || m.engine == nil {
		return ""
	}
	return m.engine.Name()
}
