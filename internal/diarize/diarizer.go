package diarize

import (
	"context"
	"fmt"
	"log/slog"

	"mediaframe/internal/audio"
	"mediaframe/internal/config"
	"mediaframe/internal/dsp"
	"mediaframe/internal/logging"
	"mediaframe/internal/services"
	"mediaframe/internal/transcribe"
)

// Settings tunes feature extraction and clustering.
type Settings struct {
	Speakers   int
	Seed       uint64
	WindowSize int
	HopLength  int
	MFCC       int
	MelBands   int
	TopDB      float64
	Inits      int
	AlignUnit  string
}

// DefaultSettings mirrors the usual librosa and scikit-learn defaults.
func DefaultSettings() Settings {
	return Settings{
		Speakers:   2,
		Seed:       42,
		WindowSize: 2048,
		HopLength:  512,
		MFCC:       13,
		MelBands:   128,
		TopDB:      80,
		Inits:      10,
		AlignUnit:  AlignSegments,
	}
}

// SettingsFromConfig maps the [diarization] config section onto the defaults.
func SettingsFromConfig(cfg config.Diarization) Settings {
	s := DefaultSettings()
	if cfg.Speakers > 0 {
		s.Speakers = cfg.Speakers
	}
	if cfg.Seed != 0 {
		s.Seed = uint64(cfg.Seed)
	}
	if cfg.HopLength > 0 {
		s.HopLength = cfg.HopLength
	}
	if cfg.MFCC > 0 {
		s.MFCC = cfg.MFCC
	}
	if cfg.MelBands > 0 {
		s.MelBands = cfg.MelBands
	}
	if cfg.Inits > 0 {
		s.Inits = cfg.Inits
	}
	if cfg.AlignUnit != "" {
		s.AlignUnit = cfg.AlignUnit
	}
	return s
}

// Report is the result of speaker identification.
type Report struct {
	Transcription string    `json:"transcription"`
	Segments      []Segment `json:"speaker_segments"`
}

// Diarizer attributes transcript text to speakers by clustering MFCC frames.
type Diarizer struct {
	settings Settings
	logger   *slog.Logger
}

// New builds a Diarizer.
func New(settings Settings, logger *slog.Logger) *Diarizer {
	return &Diarizer{settings: settings, logger: logging.NewComponentLogger(logger, "diarize")}
}

// WithSpeakers returns a copy of d that clusters into n speakers.
func (d *Diarizer) WithSpeakers(n int) *Diarizer {
	clone := *d
	clone.settings.Speakers = n
	return &clone
}

// Settings returns the effective settings.
func (d *Diarizer) Settings() Settings {
	return d.settings
}

// Labels computes one speaker label per MFCC frame.
func (d *Diarizer) Labels(buf audio.Buffer) ([]int, error) {
	if d.settings.Speakers < 1 {
		return nil, services.Wrap(services.ErrInvalidParameter, "diarize", "speakers",
			fmt.Sprintf("speaker count must be at least 1, got %d", d.settings.Speakers), nil)
	}
	if err := buf.Validate(); err != nil {
		return nil, services.Wrap(services.ErrInvalidParameter, "diarize", "buffer", "", err)
	}
	features := dsp.MFCC(buf.Samples, dsp.MFCCConfig{
		SampleRate:   buf.SampleRate,
		WindowSize:   d.settings.WindowSize,
		HopLength:    d.settings.HopLength,
		MelBands:     d.settings.MelBands,
		Coefficients: d.settings.MFCC,
		TopDB:        d.settings.TopDB,
	})
	if len(features) < d.settings.Speakers {
		return nil, services.Wrap(services.ErrDiarization, "diarize", "cluster",
			fmt.Sprintf("%d frames is fewer than %d speakers", len(features), d.settings.Speakers), nil)
	}
	clustering, err := Cluster(features, d.settings.Speakers, d.settings.Seed, d.settings.Inits)
	if err != nil {
		return nil, services.Wrap(services.ErrDiarization, "diarize", "cluster", "", err)
	}
	return clustering.Labels, nil
}

// Identify clusters buf into speakers and aligns transcript onto the
// resulting speaker runs.
func (d *Diarizer) Identify(ctx context.Context, buf audio.Buffer, transcript *transcribe.Transcript) (Report, error) {
	if transcript == nil {
		return Report{}, services.Wrap(services.ErrDiarization, "diarize", "align", "transcript is missing", nil)
	}
	labels, err := d.Labels(buf)
	if err != nil {
		return Report{}, err
	}
	frameDuration := float64(d.settings.HopLength) / float64(buf.SampleRate)
	runs := SegmentsFromLabels(labels, frameDuration, buf.Seconds())
	segments := Align(runs, UnitsFromTranscript(*transcript, d.settings.AlignUnit))

	d.logger.InfoContext(ctx, "speakers identified",
		logging.String(logging.FieldEventType, "speakers_identified"),
		logging.Int("frames", len(labels)),
		logging.Int("speakers", d.settings.Speakers),
		logging.Int("runs", len(runs)),
		logging.Int("segments", len(segments)),
		logging.String("align_unit", d.settings.AlignUnit),
	)
	return Report{Transcription: transcript.Text, Segments: segments}, nil
}
