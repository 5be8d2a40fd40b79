package testsupport

import (
	"path/filepath"
	"testing"

	"mediaframe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Output defaults to WAV so tests never need ffmpeg for encoding.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.TempDir = filepath.Join(base, "tmp")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Audio.OutputFormat = "wav"

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	return &cfg
}

// WithSampleRate overrides the decode sample rate.
func WithSampleRate(rate int) ConfigOption {
	return func(c *config.Config) {
		c.Audio.SampleRate = rate
	}
}

// WithSpeakers overrides the diarization speaker count.
func WithSpeakers(n int) ConfigOption {
	return func(c *config.Config) {
		c.Diarization.Speakers = n
	}
}

// WithTranscriptCache enables the sqlite transcript cache.
func WithTranscriptCache() ConfigOption {
	return func(c *config.Config) {
		c.Transcription.CacheEnabled = true
	}
}
