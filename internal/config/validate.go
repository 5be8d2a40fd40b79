package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateEffects(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateDiarization(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAudio() error {
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("audio.sample_rate must be between 8000 and 192000, got %d", c.Audio.SampleRate)
	}
	switch c.Audio.OutputFormat {
	case "mp3", "wav":
	default:
		return fmt.Errorf("audio.output_format must be mp3 or wav, got %q", c.Audio.OutputFormat)
	}
	return nil
}

func (c *Config) validateEffects() error {
	e := c.Effects
	if e.BassCutoffHz <= 0 {
		return errors.New("effects.bass_cutoff_hz must be positive")
	}
	if e.BassGain <= 0 {
		return errors.New("effects.bass_gain must be positive")
	}
	if err := validateWindow("effects.noise", e.NoiseWindow, e.NoiseHop); err != nil {
		return err
	}
	if err := validateWindow("effects.stretch", e.StretchWindow, e.StretchHop); err != nil {
		return err
	}
	if e.NoiseProfileSeconds <= 0 {
		return errors.New("effects.noise_profile_seconds must be positive")
	}
	if math.IsNaN(e.DefaultSpeedFactor) || e.DefaultSpeedFactor < 0.01 || e.DefaultSpeedFactor > 100 {
		return errors.New("effects.default_speed_factor must be between 0.01 and 100")
	}
	if e.DefaultPitchSteps < -48 || e.DefaultPitchSteps > 48 {
		return errors.New("effects.default_pitch_steps must be between -48 and 48")
	}
	return nil
}

func validateWindow(prefix string, window, hop int) error {
	if window < 16 || window%2 != 0 {
		return fmt.Errorf("%s_window must be an even number of at least 16 samples", prefix)
	}
	if hop <= 0 || hop > window {
		return fmt.Errorf("%s_hop must be between 1 and %s_window", prefix, prefix)
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Engine {
	case "whisperx":
		switch c.Transcription.VADMethod {
		case "silero", "pyannote":
		default:
			return fmt.Errorf("transcription.vad_method must be silero or pyannote, got %q", c.Transcription.VADMethod)
		}
	case "openai":
		if c.Transcription.OpenAIAPIKey == "" {
			return errors.New("transcription.openai_api_key is required when engine is openai (or set OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("transcription.engine must be whisperx or openai, got %q", c.Transcription.Engine)
	}
	return nil
}

func (c *Config) validateDiarization() error {
	d := c.Diarization
	if d.Speakers < 1 {
		return errors.New("diarization.speakers must be at least 1")
	}
	if d.HopLength <= 0 {
		return errors.New("diarization.hop_length must be positive")
	}
	if d.MelBands < 1 {
		return errors.New("diarization.mel_bands must be positive")
	}
	if d.MFCC < 1 || d.MFCC > d.MelBands {
		return fmt.Errorf("diarization.mfcc must be between 1 and %d", d.MelBands)
	}
	switch d.AlignUnit {
	case "segment", "word":
	default:
		return fmt.Errorf("diarization.align_unit must be segment or word, got %q", d.AlignUnit)
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if c.Subtitles.FontSize < 0 {
		return errors.New("subtitles.font_size must not be negative")
	}
	if c.Subtitles.BottomMargin < 0 {
		return errors.New("subtitles.bottom_margin must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
