package effects

import (
	"log/slog"

	"mediaframe/internal/config"
	"mediaframe/internal/logging"
)

// Settings tunes the effects. Zero values fall back to the defaults below.
type Settings struct {
	BassCutoffHz        float64
	BassGain            float64
	NoiseWindow         int
	NoiseHop            int
	NoiseProfileSeconds float64
	StretchWindow       int
	StretchHop          int
}

const (
	defaultBassCutoffHz = 150
	defaultBassGain     = 2.0
	defaultWindow       = 2048
	defaultHop          = 512
)

// SettingsFromConfig maps the [effects] config section.
func SettingsFromConfig(cfg config.Effects) Settings {
	return Settings{
		BassCutoffHz:        cfg.BassCutoffHz,
		BassGain:            cfg.BassGain,
		NoiseWindow:         cfg.NoiseWindow,
		NoiseHop:            cfg.NoiseHop,
		NoiseProfileSeconds: cfg.NoiseProfileSeconds,
		StretchWindow:       cfg.StretchWindow,
		StretchHop:          cfg.StretchHop,
	}
}

func (s Settings) withDefaults() Settings {
	if s.BassCutoffHz <= 0 {
		s.BassCutoffHz = defaultBassCutoffHz
	}
	if s.BassGain <= 0 {
		s.BassGain = defaultBassGain
	}
	if s.NoiseWindow <= 0 {
		s.NoiseWindow = defaultWindow
	}
	if s.NoiseHop <= 0 {
		s.NoiseHop = defaultHop
	}
	if s.NoiseProfileSeconds <= 0 {
		s.NoiseProfileSeconds = 1
	}
	if s.StretchWindow <= 0 {
		s.StretchWindow = defaultWindow
	}
	if s.StretchHop <= 0 {
		s.StretchHop = defaultHop
	}
	return s
}

// Processor applies spectral and time-domain effects to sample buffers. It
// holds no per-call state and is safe for concurrent use.
type Processor struct {
	settings Settings
	logger   *slog.Logger
}

// New builds a Processor.
func New(settings Settings, logger *slog.Logger) *Processor {
	return &Processor{
		settings: settings.withDefaults(),
		logger:   logging.NewComponentLogger(logger, "effects"),
	}
}

// Settings returns the effective settings.
func (p *Processor) Settings() Settings {
	return p.settings
}
