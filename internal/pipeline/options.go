package pipeline

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"mediaframe/internal/effects"
	"mediaframe/internal/services"
)

// Option field names accepted by ParseOptions.
const (
	FieldSteps       = "n_steps"
	FieldSpeedFactor = "speed_factor"
	FieldLanguage    = "language"
	FieldSpeakers    = "n_speakers"
)

// Options carries the per-request parameters. Only the fields relevant to
// the request kind are read.
type Options struct {
	// Steps is the pitch shift in semitones and may be negative.
	Steps int
	// SpeedFactor must be greater than zero. Values above one shorten audio.
	SpeedFactor float64
	// Language is a hint for transcription. Empty auto-detects.
	Language string
	// Speakers overrides the configured diarization speaker count when positive.
	Speakers int
}

// DefaultOptions mirrors the request defaults of the processing API.
func DefaultOptions() Options {
	return Options{Steps: 2, SpeedFactor: 1.5, Language: "en"}
}

// allowedFields is the per-kind allow-list for partial option updates.
var allowedFields = map[Kind][]string{
	KindTranscribe:       {FieldLanguage},
	KindPitchShift:       {FieldSteps},
	KindNoiseCancel:      nil,
	KindBassBoost:        nil,
	KindSpeechIdentifier: {FieldLanguage, FieldSpeakers},
	KindSpeedUp:          {FieldSpeedFactor},
	KindTranscribeVideo:  nil,
}

// ParseOptions applies string-valued fields onto DefaultOptions.
func ParseOptions(kind Kind, values map[string]string) (Options, error) {
	return ParseOptionsWith(DefaultOptions(), kind, values)
}

// ParseOptionsWith applies string-valued fields onto base. Fields outside
// the kind's allow-list and malformed values fail with ErrInvalidParameter.
func ParseOptionsWith(base Options, kind Kind, values map[string]string) (Options, error) {
	allowed, ok := allowedFields[kind]
	if !ok {
		return Options{}, services.Wrap(services.ErrInvalidParameter, "pipeline", "options", fmt.Sprintf("unknown kind %q", kind), nil)
	}
	opts := base
	for field, raw := range values {
		if !slices.Contains(allowed, field) {
			return Options{}, services.Wrap(services.ErrInvalidParameter, "pipeline", "options",
				fmt.Sprintf("field %q is not accepted for %s", field, kind), nil)
		}
		raw = strings.TrimSpace(raw)
		switch field {
		case FieldSteps:
			steps, err := strconv.Atoi(raw)
			if err != nil {
				return Options{}, invalidField(field, raw, err)
			}
			if err := effects.CheckPitchSteps(steps); err != nil {
				return Options{}, invalidField(field, raw, err)
			}
			opts.Steps = steps
		case FieldSpeedFactor:
			factor, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return Options{}, invalidField(field, raw, err)
			}
			if err := effects.CheckSpeedFactor(factor); err != nil {
				return Options{}, invalidField(field, raw, err)
			}
			opts.SpeedFactor = factor
		case FieldLanguage:
			opts.Language = raw
		case FieldSpeakers:
			speakers, err := strconv.Atoi(raw)
			if err != nil {
				return Options{}, invalidField(field, raw, err)
			}
			if speakers < 1 {
				return Options{}, invalidField(field, raw, fmt.Errorf("speaker count must be at least 1"))
			}
			opts.Speakers = speakers
		}
	}
	return opts, nil
}

func invalidField(field, raw string, err error) error {
	return services.Wrap(services.ErrInvalidParameter, "pipeline", "options", fmt.Sprintf("invalid %s %q", field, raw), err)
}
