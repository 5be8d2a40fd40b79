package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// TempDir holds per-call temporary inputs and outputs. Empty means the OS default.
	TempDir   string `toml:"temp_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	CacheDir  string `toml:"cache_dir"`
}

// Audio contains decoding and encoding settings.
type Audio struct {
	SampleRate    int    `toml:"sample_rate"`
	OutputFormat  string `toml:"output_format"`
	MP3Bitrate    string `toml:"mp3_bitrate"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Effects contains tuning for the spectral and time-domain effects.
type Effects struct {
	BassCutoffHz        float64 `toml:"bass_cutoff_hz"`
	BassGain            float64 `toml:"bass_gain"`
	NoiseWindow         int     `toml:"noise_window"`
	NoiseHop            int     `toml:"noise_hop"`
	NoiseProfileSeconds float64 `toml:"noise_profile_seconds"`
	StretchWindow       int     `toml:"stretch_window"`
	StretchHop          int     `toml:"stretch_hop"`
	DefaultPitchSteps   int     `toml:"default_pitch_steps"`
	DefaultSpeedFactor  float64 `toml:"default_speed_factor"`
}

// Transcription contains speech-to-text engine settings.
type Transcription struct {
	// Engine selects the backend: "whisperx" or "openai".
	Engine        string `toml:"engine"`
	Model         string `toml:"model"`
	Language      string `toml:"language"`
	CUDAEnabled   bool   `toml:"cuda_enabled"`
	VADMethod     string `toml:"vad_method"`
	HFToken       string `toml:"hf_token"`
	OpenAIBaseURL string `toml:"openai_base_url"`
	OpenAIAPIKey  string `toml:"openai_api_key"`
	OpenAIModel   string `toml:"openai_model"`
	CacheEnabled  bool   `toml:"cache_enabled"`
}

// Diarization contains speaker identification settings.
type Diarization struct {
	Speakers  int   `toml:"speakers"`
	Seed      int64 `toml:"seed"`
	HopLength int   `toml:"hop_length"`
	MFCC      int   `toml:"mfcc"`
	MelBands  int   `toml:"mel_bands"`
	Inits     int   `toml:"inits"`
	// AlignUnit selects what is assigned to speaker runs: "segment" or "word".
	AlignUnit string `toml:"align_unit"`
}

// Subtitles contains video captioning settings.
type Subtitles struct {
	AssemblyAIAPIKey    string `toml:"assemblyai_api_key"`
	AssemblyAIBaseURL   string `toml:"assemblyai_base_url"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	FontFile            string `toml:"font_file"`
	// FontSize of zero scales the caption size with the frame height.
	FontSize     int    `toml:"font_size"`
	FontColor    string `toml:"font_color"`
	BottomMargin int    `toml:"bottom_margin"`
	VideoCodec   string `toml:"video_codec"`
	AudioCodec   string `toml:"audio_codec"`
	WriteSRT     bool   `toml:"write_srt"`
}

// Notifications contains ntfy settings for job completion alerts.
type Notifications struct {
	// NtfyTopic is the full topic URL; empty disables notifications.
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	// MinDurationSeconds suppresses alerts for jobs that finish faster.
	MinDurationSeconds int `toml:"min_duration_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mediaframe.
//
// Configuration sections by subsystem:
//   - Paths: temp, output, log, and cache directories
//   - Audio: decode sample rate, output container, external binaries
//   - Effects: spectral and time-domain effect tuning plus request defaults
//   - Transcription: speech-to-text engine selection and credentials
//   - Diarization: speaker count and clustering parameters
//   - Subtitles: external STT service and caption rendering
//   - Notifications: ntfy alerts when processing jobs finish
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Audio         Audio         `toml:"audio"`
	Effects       Effects       `toml:"effects"`
	Transcription Transcription `toml:"transcription"`
	Diarization   Diarization   `toml:"diarization"`
	Subtitles     Subtitles     `toml:"subtitles"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediaframe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories processing writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir, c.Paths.LogDir}
	if c.Paths.TempDir != "" {
		dirs = append(dirs, c.Paths.TempDir)
	}
	if c.Transcription.CacheEnabled {
		dirs = append(dirs, c.Paths.CacheDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TempDir returns the directory for per-call temporary files.
func (c *Config) TempDir() string {
	if c.Paths.TempDir != "" {
		return c.Paths.TempDir
	}
	return os.TempDir()
}

// TranscriptCachePath returns the sqlite database used to memoize transcripts.
func (c *Config) TranscriptCachePath() string {
	return filepath.Join(c.Paths.CacheDir, "transcripts.db")
}

// RequestTimeout returns the ntfy request timeout.
func (n Notifications) RequestTimeout() time.Duration {
	return time.Duration(n.RequestTimeoutSeconds) * time.Second
}

// MinDuration returns the shortest job duration that triggers an alert.
func (n Notifications) MinDuration() time.Duration {
	return time.Duration(n.MinDurationSeconds) * time.Second
}

// PollInterval returns the AssemblyAI polling interval.
func (s Subtitles) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "mediaframe")
	}
	return "~/.cache/mediaframe"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
