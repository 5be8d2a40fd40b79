package config

const (
	defaultConfigPath          = "~/.config/mediaframe/config.toml"
	defaultOutputDir           = "~/.local/share/mediaframe/output"
	defaultLogDir              = "~/.local/share/mediaframe/logs"
	defaultSampleRate          = 22050
	defaultOutputFormat        = "mp3"
	defaultMP3Bitrate          = "192k"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultBassCutoffHz        = 150
	defaultBassGain            = 2.0
	defaultNoiseWindow         = 2048
	defaultNoiseHop            = 512
	defaultNoiseProfileSeconds = 1.0
	defaultPitchSteps          = 2
	defaultSpeedFactor         = 1.5
	defaultEngine              = "whisperx"
	defaultWhisperModel        = "base"
	defaultLanguage            = "en"
	defaultVADMethod           = "silero"
	defaultOpenAIBaseURL       = "https://api.openai.com/v1"
	defaultOpenAIModel         = "whisper-1"
	defaultSpeakers            = 2
	defaultSeed                = 42
	defaultMFCC                = 13
	defaultMelBands            = 128
	defaultKMeansInits         = 10
	defaultAlignUnit           = "segment"
	defaultAssemblyAIBaseURL   = "https://api.assemblyai.com"
	defaultPollIntervalSeconds = 3
	defaultFontColor           = "white"
	defaultBottomMargin        = 50
	defaultVideoCodec          = "libx264"
	defaultAudioCodec          = "aac"
	defaultNtfyTimeoutSeconds  = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			CacheDir:  defaultCacheDir(),
		},
		Audio: Audio{
			SampleRate:    defaultSampleRate,
			OutputFormat:  defaultOutputFormat,
			MP3Bitrate:    defaultMP3Bitrate,
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Effects: Effects{
			BassCutoffHz:        defaultBassCutoffHz,
			BassGain:            defaultBassGain,
			NoiseWindow:         defaultNoiseWindow,
			NoiseHop:            defaultNoiseHop,
			NoiseProfileSeconds: defaultNoiseProfileSeconds,
			StretchWindow:       defaultNoiseWindow,
			StretchHop:          defaultNoiseHop,
			DefaultPitchSteps:   defaultPitchSteps,
			DefaultSpeedFactor:  defaultSpeedFactor,
		},
		Transcription: Transcription{
			Engine:        defaultEngine,
			Model:         defaultWhisperModel,
			Language:      defaultLanguage,
			VADMethod:     defaultVADMethod,
			OpenAIBaseURL: defaultOpenAIBaseURL,
			OpenAIModel:   defaultOpenAIModel,
		},
		Diarization: Diarization{
			Speakers:  defaultSpeakers,
			Seed:      defaultSeed,
			HopLength: defaultNoiseHop,
			MFCC:      defaultMFCC,
			MelBands:  defaultMelBands,
			Inits:     defaultKMeansInits,
			AlignUnit: defaultAlignUnit,
		},
		Subtitles: Subtitles{
			AssemblyAIBaseURL:   defaultAssemblyAIBaseURL,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			FontColor:           defaultFontColor,
			BottomMargin:        defaultBottomMargin,
			VideoCodec:          defaultVideoCodec,
			AudioCodec:          defaultAudioCodec,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
