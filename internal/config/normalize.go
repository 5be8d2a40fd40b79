package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAudio()
	c.normalizeTranscription()
	c.normalizeDiarization()
	c.normalizeSubtitles()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.TempDir, err = expandPath(strings.TrimSpace(c.Paths.TempDir)); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAudio() {
	c.Audio.OutputFormat = strings.ToLower(strings.TrimSpace(c.Audio.OutputFormat))
	if c.Audio.OutputFormat == "" {
		c.Audio.OutputFormat = defaultOutputFormat
	}
	if strings.TrimSpace(c.Audio.MP3Bitrate) == "" {
		c.Audio.MP3Bitrate = defaultMP3Bitrate
	}
	if strings.TrimSpace(c.Audio.FFmpegBinary) == "" {
		c.Audio.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Audio.FFprobeBinary) == "" {
		c.Audio.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Engine = strings.ToLower(strings.TrimSpace(c.Transcription.Engine))
	if c.Transcription.Engine == "" {
		c.Transcription.Engine = defaultEngine
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultWhisperModel
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	if c.Transcription.Language == "" {
		c.Transcription.Language = defaultLanguage
	}
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultVADMethod
	}
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		}
	}
	if c.Transcription.OpenAIAPIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Transcription.OpenAIAPIKey = strings.TrimSpace(value)
		}
	}
	c.Transcription.OpenAIBaseURL = strings.TrimRight(strings.TrimSpace(c.Transcription.OpenAIBaseURL), "/")
	if c.Transcription.OpenAIBaseURL == "" {
		c.Transcription.OpenAIBaseURL = defaultOpenAIBaseURL
	}
	if strings.TrimSpace(c.Transcription.OpenAIModel) == "" {
		c.Transcription.OpenAIModel = defaultOpenAIModel
	}
}

func (c *Config) normalizeDiarization() {
	c.Diarization.AlignUnit = strings.ToLower(strings.TrimSpace(c.Diarization.AlignUnit))
	if c.Diarization.AlignUnit == "" {
		c.Diarization.AlignUnit = defaultAlignUnit
	}
	if c.Diarization.Inits <= 0 {
		c.Diarization.Inits = defaultKMeansInits
	}
}

func (c *Config) normalizeSubtitles() {
	if c.Subtitles.AssemblyAIAPIKey == "" {
		if value, ok := os.LookupEnv("ASSEMBLYAI_API_KEY"); ok {
			c.Subtitles.AssemblyAIAPIKey = strings.TrimSpace(value)
		}
	}
	c.Subtitles.AssemblyAIBaseURL = strings.TrimRight(strings.TrimSpace(c.Subtitles.AssemblyAIBaseURL), "/")
	if c.Subtitles.AssemblyAIBaseURL == "" {
		c.Subtitles.AssemblyAIBaseURL = defaultAssemblyAIBaseURL
	}
	if c.Subtitles.PollIntervalSeconds <= 0 {
		c.Subtitles.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if strings.TrimSpace(c.Subtitles.FontColor) == "" {
		c.Subtitles.FontColor = defaultFontColor
	}
	if c.Subtitles.FontFile != "" {
		if expanded, err := expandPath(c.Subtitles.FontFile); err == nil {
			c.Subtitles.FontFile = expanded
		}
	}
	if strings.TrimSpace(c.Subtitles.VideoCodec) == "" {
		c.Subtitles.VideoCodec = defaultVideoCodec
	}
	if strings.TrimSpace(c.Subtitles.AudioCodec) == "" {
		c.Subtitles.AudioCodec = defaultAudioCodec
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
	if c.Notifications.MinDurationSeconds < 0 {
		c.Notifications.MinDurationSeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
