package pipeline

import (
	"context"
	"log/slog"

	"mediaframe/internal/config"
	"mediaframe/internal/logging"
	"mediaframe/internal/services"
	"mediaframe/internal/transcribe"
	"mediaframe/internal/transcriptcache"
)

// LoadTranscriber builds the configured engine, loads its model once and
// wraps it in a Transcriber. When caching is enabled the sqlite transcript
// cache is opened as well. The returned close function releases the cache
// and is safe to call when no cache was opened.
func LoadTranscriber(ctx context.Context, cfg *config.Config, run services.CommandRunner, logger *slog.Logger) (*transcribe.Transcriber, func() error, error) {
	noop := func() error { return nil }
	engine, err := transcribe.EngineFromConfig(cfg, run)
	if err != nil {
		return nil, noop, err
	}
	model := transcribe.NewModel(engine, logger)
	if err := model.Load(ctx); err != nil {
		return nil, noop, err
	}

	opts := []transcribe.Option{
		transcribe.WithTempDir(cfg.TempDir()),
		transcribe.WithLogger(logger),
	}
	closeFn := noop
	if cfg.Transcription.CacheEnabled {
		store, err := transcriptcache.Open(ctx, cfg.TranscriptCachePath(), logger)
		if err != nil {
			logging.WarnWithContext(ctx, logging.NewComponentLogger(logger, "pipeline"),
				"transcript cache unavailable", "transcript_cache_unavailable",
				logging.String("path", cfg.TranscriptCachePath()),
				logging.String(logging.FieldImpact, "transcripts will not be cached"),
				logging.Error(err),
			)
		} else {
			opts = append(opts, transcribe.WithCache(store))
			closeFn = store.Close
		}
	}
	return transcribe.NewTranscriber(model, opts...), closeFn, nil
}
