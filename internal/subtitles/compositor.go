package subtitles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediaframe/internal/audio"
	"mediaframe/internal/config"
	"mediaframe/internal/fileutil"
	"mediaframe/internal/logging"
	"mediaframe/internal/media/ffprobe"
	"mediaframe/internal/services"
)

// State is a step of the composition state machine.
type State int

const (
	StateDecoding State = iota
	StatePerFrameOverlay
	StateReEncoding
	StateMuxing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDecoding:
		return "decoding"
	case StatePerFrameOverlay:
		return "per_frame_overlay"
	case StateReEncoding:
		return "re_encoding"
	case StateMuxing:
		return "muxing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Compositor burns captions into a video and muxes the original audio back.
type Compositor struct {
	run        services.CommandRunner
	ffmpeg     string
	ffprobe    string
	tempDir    string
	videoCodec string
	audioCodec string
	writeSRT   bool
	style      Style
	logger     *slog.Logger
	observe    func(State)
}

// Option customizes a Compositor.
type Option func(*Compositor)

// WithCommandRunner replaces the ffmpeg/ffprobe runner.
func WithCommandRunner(run services.CommandRunner) Option {
	return func(c *Compositor) {
		if run != nil {
			c.run = run
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compositor) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStateObserver registers fn to be called on every state transition.
func WithStateObserver(fn func(State)) Option {
	return func(c *Compositor) { c.observe = fn }
}

// New builds a Compositor from configuration.
func New(cfg *config.Config, opts ...Option) *Compositor {
	c := &Compositor{
		run:        services.RunCommand,
		ffmpeg:     cfg.Audio.FFmpegBinary,
		ffprobe:    cfg.Audio.FFprobeBinary,
		tempDir:    cfg.TempDir(),
		videoCodec: cfg.Subtitles.VideoCodec,
		audioCodec: cfg.Subtitles.AudioCodec,
		writeSRT:   cfg.Subtitles.WriteSRT,
		style: Style{
			FontFile:     cfg.Subtitles.FontFile,
			FontSize:     cfg.Subtitles.FontSize,
			FontColor:    cfg.Subtitles.FontColor,
			BottomMargin: cfg.Subtitles.BottomMargin,
		},
		logger: logging.NewNop(),
	}
	if c.ffmpeg == "" {
		c.ffmpeg = "ffmpeg"
	}
	if c.videoCodec == "" {
		c.videoCodec = "libx264"
	}
	if c.audioCodec == "" {
		c.audioCodec = "aac"
	}
	if c.style.FontColor == "" {
		c.style.FontColor = "white"
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "subtitles")
	return c
}

// composition tracks one Compose call through the state machine.
type composition struct {
	c       *Compositor
	ctx     context.Context
	state   State
	started time.Time
}

func (m *composition) transition(next State, attrs ...logging.Attr) {
	attrs = append([]logging.Attr{
		logging.String("from", m.state.String()),
		logging.String("to", next.String()),
		logging.Duration("elapsed", time.Since(m.started)),
	}, attrs...)
	m.c.logger.InfoContext(m.ctx, "composition state changed", logging.Args(attrs...)...)
	m.state = next
	if m.c.observe != nil {
		m.c.observe(next)
	}
}

func (m *composition) fail(operation, message string, err error) error {
	wrapped := services.Wrap(services.ErrComposition, "subtitles", operation, message, err)
	attrs := []logging.Attr{logging.String(logging.FieldErrorKind, services.Kind(wrapped))}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	m.transition(StateFailed, attrs...)
	return wrapped
}

// Compose overlays captions onto the video at videoPath. Caption times are
// interpreted in unit. The returned artifact is an MP4 the caller releases;
// when SRT output is enabled the subtitle file is attached as a sidecar.
func (c *Compositor) Compose(ctx context.Context, videoPath string, captions []Caption, unit TimeUnit) (*audio.Artifact, error) {
	m := &composition{c: c, ctx: ctx, state: StateDecoding, started: time.Now()}
	c.logger.InfoContext(ctx, "composition started",
		logging.String("video", filepath.Base(videoPath)),
		logging.Int("captions", len(captions)),
		logging.String("unit", unit.String()),
	)
	if c.observe != nil {
		c.observe(StateDecoding)
	}

	probe, err := ffprobe.Inspect(ctx, c.run, c.ffprobe, videoPath)
	if err != nil {
		return nil, m.fail("probe", "inspect video", err)
	}
	video, ok := probe.VideoStream()
	if !ok {
		return nil, m.fail("probe", "no video stream", nil)
	}
	fps := video.FrameRate()
	if fps <= 0 {
		return nil, m.fail("probe", fmt.Sprintf("unknown frame rate %q", video.RFrameRate), nil)
	}
	totalFrames := video.FrameCount(probe.DurationSeconds())
	cues := BuildCues(Normalize(captions, unit), fps, totalFrames)

	workDir, err := os.MkdirTemp(c.tempDir, "compose-*")
	if err != nil {
		return nil, m.fail("workdir", "create workdir", err)
	}
	defer os.RemoveAll(workDir)

	m.transition(StatePerFrameOverlay,
		logging.Float64("fps", fps),
		logging.Int("frames", totalFrames),
		logging.Int("cues", len(cues)),
	)
	script, err := WriteFilterScript(workDir, cues, c.style, video.Width, video.Height)
	if err != nil {
		return nil, m.fail("overlay", "build overlay", err)
	}

	m.transition(StateReEncoding, logging.String("codec", c.videoCodec))
	silent := filepath.Join(workDir, "video.mp4")
	encodeArgs := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-filter_script:v", script,
		"-an",
		"-c:v", c.videoCodec,
		"-pix_fmt", "yuv420p",
		silent,
	}
	if _, err := c.run(ctx, c.ffmpeg, encodeArgs...); err != nil {
		return nil, m.fail("encode", "ffmpeg re-encode failed", err)
	}

	m.transition(StateMuxing, logging.Int("audio_streams", probe.AudioStreamCount()))
	out, err := fileutil.ReserveTemp(c.tempDir, "transcribed-*.mp4")
	if err != nil {
		return nil, m.fail("mux", "reserve output", err)
	}
	artifact := &audio.Artifact{Path: out, Format: audio.FormatMP4}
	if err := c.mux(ctx, videoPath, silent, out, probe.AudioStreamCount() > 0); err != nil {
		_ = artifact.Release()
		return nil, m.fail("mux", "mux audio", err)
	}

	if c.writeSRT {
		srtPath := strings.TrimSuffix(out, filepath.Ext(out)) + ".srt"
		artifact.Sidecars = append(artifact.Sidecars, srtPath)
		if err := writeSRTFile(srtPath, cues, fps); err != nil {
			_ = artifact.Release()
			return nil, m.fail("srt", "write subtitles", err)
		}
	}

	m.transition(StateDone, logging.String("output", filepath.Base(out)))
	return artifact, nil
}

func (c *Compositor) mux(ctx context.Context, original, silent, out string, hasAudio bool) error {
	if !hasAudio {
		if err := os.Rename(silent, out); err == nil {
			return nil
		}
		return fileutil.CopyFile(silent, out)
	}
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", silent,
		"-i", original,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", c.audioCodec,
		"-shortest",
		out,
	}
	if _, err := c.run(ctx, c.ffmpeg, args...); err != nil {
		return fmt.Errorf("ffmpeg mux: %w", err)
	}
	return nil
}

func writeSRTFile(path string, cues []Cue, fps float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return WriteSRT(f, cues, fps)
}
