package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediaframe/internal/assemblyai"
	"mediaframe/internal/audio"
	"mediaframe/internal/config"
	"mediaframe/internal/diarize"
	"mediaframe/internal/effects"
	"mediaframe/internal/fileutil"
	"mediaframe/internal/logging"
	"mediaframe/internal/services"
	"mediaframe/internal/subtitles"
	"mediaframe/internal/transcribe"
)

// SpeechToText returns word timings for the media file at path. AssemblyAI
// is the production implementation.
type SpeechToText interface {
	Transcribe(ctx context.Context, path string) ([]assemblyai.Word, error)
}

// Request is one authenticated, quota-checked processing request.
type Request struct {
	// ID correlates log records. A random ID is assigned when empty.
	ID       string
	Kind     Kind
	Filename string
	Data     []byte
	Options  Options
}

// Result is the outcome of a request: structured data, an artifact file,
// or both. A non-nil Artifact must be released by the caller.
type Result struct {
	RequestID    string                 `json:"request_id"`
	Kind         Kind                   `json:"kind"`
	Text         string                 `json:"text,omitempty"`
	Transcript   *transcribe.Transcript `json:"transcript,omitempty"`
	Speakers     *diarize.Report        `json:"speakers,omitempty"`
	Artifact     *audio.Artifact        `json:"-"`
	DownloadName string                 `json:"download_name,omitempty"`
}

// Processor runs one operation per request. It holds no per-request state,
// so a single Processor serves concurrent requests.
type Processor struct {
	codec       *audio.Codec
	effects     *effects.Processor
	transcriber *transcribe.Transcriber
	diarizer    *diarize.Diarizer
	stt         SpeechToText
	compositor  *subtitles.Compositor
	format      audio.Format
	tempDir     string
	defaults    Options
	logger      *slog.Logger
}

// Option customizes a Processor.
type Option func(*processorOptions)

type processorOptions struct {
	transcriber *transcribe.Transcriber
	stt         SpeechToText
	run         services.CommandRunner
	logger      *slog.Logger
}

// WithTranscriber supplies the loaded transcription handle. Without one,
// transcription requests fail with ErrModelNotReady.
func WithTranscriber(t *transcribe.Transcriber) Option {
	return func(o *processorOptions) { o.transcriber = t }
}

// WithSpeechToText replaces the AssemblyAI client used for video subtitles.
func WithSpeechToText(stt SpeechToText) Option {
	return func(o *processorOptions) { o.stt = stt }
}

// WithCommandRunner replaces the runner used for ffmpeg and ffprobe.
func WithCommandRunner(run services.CommandRunner) Option {
	return func(o *processorOptions) { o.run = run }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *processorOptions) { o.logger = logger }
}

// New wires a Processor from configuration.
func New(cfg *config.Config, opts ...Option) *Processor {
	o := processorOptions{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	codec := audio.NewCodec(
		audio.WithFFmpeg(cfg.Audio.FFmpegBinary),
		audio.WithTempDir(cfg.TempDir()),
		audio.WithSampleRate(cfg.Audio.SampleRate),
		audio.WithMP3Bitrate(cfg.Audio.MP3Bitrate),
		audio.WithCommandRunner(o.run),
		audio.WithLogger(logger),
	)
	compositor := subtitles.New(cfg,
		subtitles.WithCommandRunner(o.run),
		subtitles.WithLogger(logger),
	)
	stt := o.stt
	if stt == nil {
		stt = assemblyai.NewClient(cfg.Subtitles.AssemblyAIAPIKey,
			assemblyai.WithBaseURL(cfg.Subtitles.AssemblyAIBaseURL),
			assemblyai.WithPollInterval(cfg.Subtitles.PollInterval()),
			assemblyai.WithLogger(logger),
		)
	}

	return &Processor{
		codec:       codec,
		effects:     effects.New(effects.SettingsFromConfig(cfg.Effects), logger),
		transcriber: o.transcriber,
		diarizer:    diarize.New(diarize.SettingsFromConfig(cfg.Diarization), logger),
		stt:         stt,
		compositor:  compositor,
		format:      audio.Format(cfg.Audio.OutputFormat),
		tempDir:     cfg.TempDir(),
		defaults: Options{
			Steps:       cfg.Effects.DefaultPitchSteps,
			SpeedFactor: cfg.Effects.DefaultSpeedFactor,
			Language:    cfg.Transcription.Language,
			Speakers:    cfg.Diarization.Speakers,
		},
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}
}

// DefaultOptions returns the request defaults from configuration.
func (p *Processor) DefaultOptions() Options {
	return p.defaults
}

// Process dispatches req to the operation named by req.Kind.
func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	ctx = services.WithRequestID(ctx, req.ID)
	ctx = services.WithOperation(ctx, string(req.Kind))
	logger := logging.WithContext(ctx, p.logger)

	started := time.Now()
	logger.Info("request started",
		logging.String(logging.FieldEventType, "request_start"),
		logging.String("filename", req.Filename),
		logging.Int("bytes", len(req.Data)),
	)

	result, err := p.dispatch(ctx, req)
	if err != nil {
		details := services.Details(err)
		logger.Error("request failed",
			logging.String(logging.FieldEventType, "request_failure"),
			logging.String(logging.FieldErrorKind, details.Kind),
			logging.String("error_message", details.Message),
			logging.Duration("elapsed", time.Since(started)),
		)
		return Result{}, err
	}
	result.RequestID = req.ID

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "request_complete"),
		logging.Duration("elapsed", time.Since(started)),
	}
	if result.Artifact != nil {
		attrs = append(attrs, logging.String("artifact", filepath.Base(result.Artifact.Path)))
	}
	logger.Info("request completed", logging.Args(attrs...)...)
	return result, nil
}

func (p *Processor) dispatch(ctx context.Context, req Request) (Result, error) {
	opts := req.Options
	switch req.Kind {
	case KindTranscribe:
		return p.Transcribe(ctx, req.Filename, req.Data, opts.Language)
	case KindPitchShift:
		return p.PitchShift(ctx, req.Data, opts.Steps)
	case KindNoiseCancel:
		return p.NoiseCancel(ctx, req.Data)
	case KindBassBoost:
		return p.BassBoost(ctx, req.Data)
	case KindSpeechIdentifier:
		return p.IdentifySpeakers(ctx, req.Filename, req.Data, opts.Language, opts.Speakers)
	case KindSpeedUp:
		return p.SpeedChange(ctx, req.Data, opts.SpeedFactor)
	case KindTranscribeVideo:
		return p.SubtitleVideo(ctx, req.Filename, req.Data)
	default:
		_, err := ParseKind(string(req.Kind))
		return Result{}, err
	}
}

// BassBoost amplifies low frequencies of the uploaded audio.
func (p *Processor) BassBoost(ctx context.Context, data []byte) (Result, error) {
	return p.audioEffect(ctx, KindBassBoost, data, p.effects.BassBoost)
}

// NoiseCancel removes the stationary noise profile of the uploaded audio.
func (p *Processor) NoiseCancel(ctx context.Context, data []byte) (Result, error) {
	return p.audioEffect(ctx, KindNoiseCancel, data, p.effects.NoiseCancel)
}

// PitchShift moves the uploaded audio by steps semitones.
func (p *Processor) PitchShift(ctx context.Context, data []byte, steps int) (Result, error) {
	return p.audioEffect(ctx, KindPitchShift, data, func(ctx context.Context, buf audio.Buffer) (audio.Buffer, error) {
		return p.effects.PitchShift(ctx, buf, steps)
	})
}

// SpeedChange time-stretches the uploaded audio by factor.
func (p *Processor) SpeedChange(ctx context.Context, data []byte, factor float64) (Result, error) {
	return p.audioEffect(ctx, KindSpeedUp, data, func(ctx context.Context, buf audio.Buffer) (audio.Buffer, error) {
		return p.effects.SpeedChange(ctx, buf, factor)
	})
}

func (p *Processor) audioEffect(ctx context.Context, kind Kind, data []byte, apply func(context.Context, audio.Buffer) (audio.Buffer, error)) (Result, error) {
	ctx = services.WithStage(ctx, "decode")
	buf, err := p.codec.Decode(ctx, data)
	if err != nil {
		return Result{}, err
	}
	ctx = services.WithStage(ctx, string(kind))
	out, err := apply(ctx, buf)
	if err != nil {
		return Result{}, err
	}
	ctx = services.WithStage(ctx, "encode")
	artifact, err := p.codec.Encode(ctx, out, p.format)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: kind, Artifact: artifact, DownloadName: kind.DownloadName(artifact.Format)}, nil
}

// Transcribe returns the transcript of the uploaded audio.
func (p *Processor) Transcribe(ctx context.Context, filename string, data []byte, language string) (Result, error) {
	if err := p.requireTranscriber(); err != nil {
		return Result{}, err
	}
	path, cleanup, err := p.spool(filename, data)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	transcript, err := p.transcriber.TranscribeFile(services.WithStage(ctx, "transcribe"), path, language)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindTranscribe, Text: transcript.Text, Transcript: &transcript}, nil
}

// IdentifySpeakers transcribes the upload and attributes its text to
// speakers. speakers overrides the configured count when positive.
func (p *Processor) IdentifySpeakers(ctx context.Context, filename string, data []byte, language string, speakers int) (Result, error) {
	if err := p.requireTranscriber(); err != nil {
		return Result{}, err
	}
	path, cleanup, err := p.spool(filename, data)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	buf, err := p.codec.DecodeFile(services.WithStage(ctx, "decode"), path, audio.DecodeOptions{})
	if err != nil {
		return Result{}, err
	}
	transcript, err := p.transcriber.TranscribeFile(services.WithStage(ctx, "transcribe"), path, language)
	if err != nil {
		return Result{}, err
	}
	diarizer := p.diarizer
	if speakers > 0 {
		diarizer = diarizer.WithSpeakers(speakers)
	}
	report, err := diarizer.Identify(services.WithStage(ctx, "diarize"), buf, &transcript)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindSpeechIdentifier, Text: transcript.Text, Transcript: &transcript, Speakers: &report}, nil
}

// SubtitleVideo transcribes the uploaded video with the speech-to-text
// service and burns each word into the frames where it is spoken.
func (p *Processor) SubtitleVideo(ctx context.Context, filename string, data []byte) (Result, error) {
	if filepath.Ext(filename) == "" {
		filename += audio.FormatMP4.Extension()
	}
	path, cleanup, err := p.spool(filename, data)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	words, err := p.stt.Transcribe(services.WithStage(ctx, "speech_to_text"), path)
	if err != nil {
		return Result{}, err
	}
	captions := make([]subtitles.Caption, 0, len(words))
	texts := make([]string, 0, len(words))
	for _, w := range words {
		captions = append(captions, subtitles.Caption{Start: w.Start, End: w.End, Text: w.Text})
		texts = append(texts, w.Text)
	}

	artifact, err := p.compositor.Compose(services.WithStage(ctx, "compose"), path, captions, subtitles.Seconds)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Kind:         KindTranscribeVideo,
		Text:         strings.Join(texts, " "),
		Artifact:     artifact,
		DownloadName: KindTranscribeVideo.DownloadName(audio.FormatMP4),
	}, nil
}

func (p *Processor) requireTranscriber() error {
	if p.transcriber == nil || !p.transcriber.Model().Ready() {
		return services.Wrap(services.ErrModelNotReady, "pipeline", "transcribe", "model has not been loaded", nil)
	}
	return nil
}

// spool writes an upload to a uniquely named temp file, keeping the
// original extension so external tools can recognize the container.
func (p *Processor) spool(filename string, data []byte) (string, func(), error) {
	if len(data) == 0 {
		return "", func() {}, services.Wrap(services.ErrUnreadableAudio, "pipeline", "spool input", "empty input", nil)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if strings.ContainsFunc(ext[min(len(ext), 1):], func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		ext = ""
	}
	path, cleanup, err := fileutil.WriteTemp(p.tempDir, "upload-*"+ext, data)
	if err != nil {
		return "", func() {}, services.Wrap(services.ErrUnreadableAudio, "pipeline", "spool input", "", err)
	}
	return path, cleanup, nil
}
