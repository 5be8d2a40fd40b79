package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"

	"mediaframe/internal/fileutil"
	"mediaframe/internal/logging"
	"mediaframe/internal/services"
)

// Output containers.
const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
	FormatMP4 Format = "mp4"
)

// Format names an output container.
type Format string

// Extension returns the file extension for the container including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Codec decodes uploads into Buffers and encodes Buffers into artifacts.
// Every temporary file it creates lives under its temp directory with a
// unique name.
type Codec struct {
	ffmpeg     string
	tempDir    string
	sampleRate int
	mp3Bitrate string
	run        services.CommandRunner
	logger     *slog.Logger
}

// Option customizes a Codec.
type Option func(*Codec)

// WithFFmpeg sets the ffmpeg binary used for containers beep cannot read and
// for MP3 encoding.
func WithFFmpeg(binary string) Option {
	return func(c *Codec) {
		if binary != "" {
			c.ffmpeg = binary
		}
	}
}

// WithTempDir sets where temporary inputs and outputs are created.
func WithTempDir(dir string) Option {
	return func(c *Codec) { c.tempDir = dir }
}

// WithSampleRate sets the default decode rate. Zero keeps the native rate.
func WithSampleRate(rate int) Option {
	return func(c *Codec) { c.sampleRate = rate }
}

// WithMP3Bitrate sets the libmp3lame bitrate, e.g. "192k".
func WithMP3Bitrate(bitrate string) Option {
	return func(c *Codec) {
		if bitrate != "" {
			c.mp3Bitrate = bitrate
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func WithCommandRunner(runner services.CommandRunner) Option {
	return func(c *Codec) {
		if runner != nil {
			c.run = runner
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) { c.logger = logging.NewComponentLogger(logger, "audio") }
}

// NewCodec builds a Codec with 22.05 kHz decoding and MP3 output defaults.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		ffmpeg:     "ffmpeg",
		sampleRate: 22050,
		mp3Bitrate: "192k",
		run:        services.RunCommand,
		logger:     logging.NewComponentLogger(nil, "audio"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SampleRate returns the default decode rate.
func (c *Codec) SampleRate() int { return c.sampleRate }

// TempDir returns the directory temporary files are created in.
func (c *Codec) TempDir() string { return c.tempDir }

// DecodeOptions tunes a single decode.
type DecodeOptions struct {
	// SampleRate to resample to. Zero keeps the native rate.
	SampleRate int
}

// Decode parses an uploaded byte stream at the codec's default sample rate.
func (c *Codec) Decode(ctx context.Context, data []byte) (Buffer, error) {
	return c.DecodeWith(ctx, data, DecodeOptions{SampleRate: c.sampleRate})
}

// DecodeWith parses an uploaded byte stream. The bytes are spooled to a
// uniquely named temp file that is removed before returning on every path.
// Failures carry services.ErrUnreadableAudio.
func (c *Codec) DecodeWith(ctx context.Context, data []byte, opts DecodeOptions) (Buffer, error) {
	if len(data) == 0 {
		return Buffer{}, services.Wrap(services.ErrUnreadableAudio, "audio", "decode", "empty input", nil)
	}
	path, cleanup, err := fileutil.WriteTemp(c.tempDir, "input-*"+sniff(data).extension(), data)
	if err != nil {
		return Buffer{}, services.Wrap(services.ErrUnreadableAudio, "audio", "spool input", "", err)
	}
	defer cleanup()
	return c.DecodeFile(ctx, path, opts)
}

// DecodeFile parses an audio file already on disk. The caller keeps
// ownership of path.
func (c *Codec) DecodeFile(ctx context.Context, path string, opts DecodeOptions) (Buffer, error) {
	kind, err := sniffFile(path)
	if err != nil {
		return Buffer{}, services.Wrap(services.ErrUnreadableAudio, "audio", "open", path, err)
	}

	var nativeErr error
	if kind != containerUnknown {
		buf, err := c.decodeNative(path, kind, opts.SampleRate)
		if err == nil {
			c.logger.DebugContext(ctx, "decoded audio natively",
				logging.String("container", string(kind)),
				logging.Int("samples", buf.Len()),
				logging.Int("sample_rate", buf.SampleRate),
			)
			return buf, nil
		}
		nativeErr = err
	}

	buf, err := c.decodeWithFFmpeg(ctx, path, opts.SampleRate)
	if err != nil {
		return Buffer{}, services.Wrap(services.ErrUnreadableAudio, "audio", "decode", "format could not be parsed", errors.Join(nativeErr, err))
	}
	c.logger.DebugContext(ctx, "decoded audio via ffmpeg",
		logging.Int("samples", buf.Len()),
		logging.Int("sample_rate", buf.SampleRate),
	)
	return buf, nil
}

func (c *Codec) decodeNative(path string, kind container, targetRate int) (Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return Buffer{}, err
	}
	defer f.Close()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch kind {
	case containerWAV:
		streamer, format, err = wav.Decode(f)
	case containerMP3:
		streamer, format, err = mp3.Decode(f)
	case containerFLAC:
		streamer, format, err = flac.Decode(f)
	case containerOgg:
		streamer, format, err = vorbis.Decode(f)
	default:
		return Buffer{}, fmt.Errorf("no native decoder for %s", kind)
	}
	if err != nil {
		return Buffer{}, fmt.Errorf("%s decode: %w", kind, err)
	}
	defer streamer.Close()
	return readStreamer(streamer, format, targetRate)
}

func (c *Codec) decodeWithFFmpeg(ctx context.Context, path string, targetRate int) (Buffer, error) {
	wavPath, err := fileutil.ReserveTemp(c.tempDir, "decoded-*.wav")
	if err != nil {
		return Buffer{}, err
	}
	defer os.Remove(wavPath)

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", path, "-vn", "-ac", "1"}
	if targetRate > 0 {
		args = append(args, "-ar", strconv.Itoa(targetRate))
	}
	args = append(args, "-c:a", "pcm_s16le", "-f", "wav", wavPath)
	if _, err := c.run(ctx, c.ffmpeg, args...); err != nil {
		return Buffer{}, err
	}
	return c.decodeNative(wavPath, containerWAV, targetRate)
}

func readStreamer(streamer beep.Streamer, format beep.Format, targetRate int) (Buffer, error) {
	rate := int(format.SampleRate)
	if rate <= 0 {
		return Buffer{}, fmt.Errorf("invalid sample rate %d", rate)
	}
	source := streamer
	if targetRate > 0 && targetRate != rate {
		source = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(targetRate), streamer)
		rate = targetRate
	}
	samples, err := Drain(source)
	if err != nil {
		return Buffer{}, err
	}
	if len(samples) == 0 {
		return Buffer{}, errors.New("no audio samples")
	}
	return Buffer{Samples: samples, SampleRate: rate}, nil
}

// Artifact is a transient encoded file. The creator hands it to the caller,
// who releases it once the file has been consumed.
type Artifact struct {
	Path     string
	Format   Format
	// Sidecars are companion files, such as subtitles, released with Path.
	Sidecars []string

	once sync.Once
	err  error
}

// Release deletes the artifact file. It is safe to call more than once.
func (a *Artifact) Release() error {
	if a == nil {
		return nil
	}
	a.once.Do(func() {
		errs := []error{fileutil.RemoveIfExists(a.Path)}
		for _, sidecar := range a.Sidecars {
			errs = append(errs, fileutil.RemoveIfExists(sidecar))
		}
		a.err = errors.Join(errs...)
	})
	return a.err
}

// Encode writes buf to a uniquely named temp file in the requested
// container. An empty format selects MP3.
func (c *Codec) Encode(ctx context.Context, buf Buffer, format Format) (*Artifact, error) {
	if err := buf.Validate(); err != nil {
		return nil, services.Wrap(services.ErrInvalidParameter, "audio", "encode", "invalid buffer", err)
	}
	if format == "" {
		format = FormatMP3
	}
	switch format {
	case FormatWAV:
		return c.encodeWAV(buf)
	case FormatMP3:
		return c.encodeMP3(ctx, buf)
	default:
		return nil, services.Wrap(services.ErrInvalidParameter, "audio", "encode", fmt.Sprintf("unsupported format %q", format), nil)
	}
}

func (c *Codec) encodeWAV(buf Buffer) (*Artifact, error) {
	f, err := os.CreateTemp(c.tempDir, "mediaframe-*.wav")
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "audio", "encode", "create output", err)
	}
	path := f.Name()
	if err := WriteWAV(f, buf); err != nil {
		f.Close()
		_ = os.Remove(path)
		return nil, services.Wrap(services.ErrExternalService, "audio", "encode", "write wav", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, services.Wrap(services.ErrExternalService, "audio", "encode", "close wav", err)
	}
	return &Artifact{Path: path, Format: FormatWAV}, nil
}

func (c *Codec) encodeMP3(ctx context.Context, buf Buffer) (*Artifact, error) {
	intermediate, err := c.encodeWAV(buf)
	if err != nil {
		return nil, err
	}
	defer intermediate.Release()

	out, err := fileutil.ReserveTemp(c.tempDir, "mediaframe-*.mp3")
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "audio", "encode", "create output", err)
	}
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", intermediate.Path,
		"-codec:a", "libmp3lame",
		"-b:a", c.mp3Bitrate,
		out,
	}
	if _, err := c.run(ctx, c.ffmpeg, args...); err != nil {
		_ = os.Remove(out)
		return nil, services.Wrap(services.ErrExternalService, "audio", "encode", "ffmpeg mp3 encode failed", err)
	}
	return &Artifact{Path: out, Format: FormatMP3}, nil
}

// WriteWAV encodes buf as mono 16-bit PCM. Samples outside [-1, 1] are
// clipped.
func WriteWAV(w io.WriteSeeker, buf Buffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	return wav.Encode(w, buf.Streamer(), buf.Format())
}

// EncodeWAVBytes returns buf as an in-memory WAV file.
func EncodeWAVBytes(buf Buffer) ([]byte, error) {
	var ws writeSeeker
	if err := WriteWAV(&ws, buf); err != nil {
		return nil, err
	}
	return ws.buf.Bytes(), nil
}

// writeSeeker is a minimal in-memory io.WriteSeeker for the WAV header
// rewrite beep performs after streaming samples.
type writeSeeker struct {
	buf bytes.Buffer
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	end := w.pos + len(p)
	if end > w.buf.Len() {
		w.buf.Write(make([]byte, end-w.buf.Len()))
	}
	copy(w.buf.Bytes()[w.pos:end], p)
	w.pos = end
	return len(p), nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = w.pos
	case io.SeekEnd:
		base = w.buf.Len()
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	next := base + int(offset)
	if next < 0 {
		return 0, errors.New("negative position")
	}
	w.pos = next
	return int64(next), nil
}
