package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"mediaframe/internal/assemblyai"
	"mediaframe/internal/audio"
	"mediaframe/internal/config"
	"mediaframe/internal/services"
	"mediaframe/internal/testsupport"
	"mediaframe/internal/transcribe"
)

type fakeEngine struct {
	mu         sync.Mutex
	transcript transcribe.Transcript
	paths      []string
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Load(context.Context) error { return nil }

func (f *fakeEngine) Transcribe(_ context.Context, path, _ string) (transcribe.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := os.Stat(path); err != nil {
		return transcribe.Transcript{}, err
	}
	f.paths = append(f.paths, path)
	return f.transcript, nil
}

type fakeSTT struct {
	words []assemblyai.Word
	err   error
	path  string
}

func (f *fakeSTT) Transcribe(_ context.Context, path string) ([]assemblyai.Word, error) {
	f.path = path
	return f.words, f.err
}

func loadedTranscriber(t *testing.T, cfg *config.Config, engine transcribe.Engine) *transcribe.Transcriber {
	t.Helper()
	model := transcribe.NewModel(engine, nil)
	if err := model.Load(context.Background()); err != nil {
		t.Fatalf("load model: %v", err)
	}
	return transcribe.NewTranscriber(model, transcribe.WithTempDir(cfg.TempDir()))
}

func toneWAV(t *testing.T, freq float64, sampleRate int, seconds float64) []byte {
	t.Helper()
	return testsupport.WAVBytes(t, testsupport.Sine(freq, sampleRate, seconds, 0.3), sampleRate)
}

func decodeArtifact(t *testing.T, artifact *audio.Artifact, rate int) audio.Buffer {
	t.Helper()
	buf, err := audio.NewCodec().DecodeFile(context.Background(), artifact.Path, audio.DecodeOptions{SampleRate: rate})
	if err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	return buf
}

func TestProcessBassBoostArtifactLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := New(cfg)

	result, err := p.Process(context.Background(), Request{
		Kind:     KindBassBoost,
		Filename: "song.wav",
		Data:     toneWAV(t, 100, 22050, 1),
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.RequestID == "" {
		t.Fatal("expected a generated request id")
	}
	if result.DownloadName != "bassboosted_audio.wav" {
		t.Fatalf("unexpected download name %q", result.DownloadName)
	}
	if result.Artifact == nil {
		t.Fatal("expected an artifact")
	}
	if got := testsupport.ListDir(t, cfg.TempDir()); len(got) != 1 || got[0] != filepath.Base(result.Artifact.Path) {
		t.Fatalf("expected only the artifact in temp dir, got %v", got)
	}
	boosted := decodeArtifact(t, result.Artifact, 22050)
	// A 0.3 amplitude tone doubled by the boost peaks near 0.6.
	if peak := boosted.Peak(); peak < 0.5 || peak > 0.7 {
		t.Fatalf("expected boosted peak near 0.6, got %v", peak)
	}
	if err := result.Artifact.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := testsupport.ListDir(t, cfg.TempDir()); len(got) != 0 {
		t.Fatalf("expected empty temp dir after release, got %v", got)
	}
}

func TestProcessKeepsCallerRequestID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	result, err := New(cfg).Process(context.Background(), Request{
		ID:   "req-123",
		Kind: KindNoiseCancel,
		Data: toneWAV(t, 440, 22050, 0.5),
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	defer result.Artifact.Release()
	if result.RequestID != "req-123" {
		t.Fatalf("got request id %q", result.RequestID)
	}
	if result.DownloadName != "noisecancelled_audio.wav" {
		t.Fatalf("unexpected download name %q", result.DownloadName)
	}
}

func TestSpeedUpHalvesDuration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	result, err := New(cfg).Process(context.Background(), Request{
		Kind:    KindSpeedUp,
		Data:    toneWAV(t, 440, 22050, 1),
		Options: Options{SpeedFactor: 2},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	defer result.Artifact.Release()
	buf := decodeArtifact(t, result.Artifact, 22050)
	if buf.Len() != 11025 {
		t.Fatalf("expected 11025 samples, got %d", buf.Len())
	}
}

func TestSpeedUpRejectsNonPositiveFactor(t *testing.T) {
	for _, factor := range []float64{0, -1.5} {
		cfg := testsupport.NewConfig(t)
		_, err := New(cfg).SpeedChange(context.Background(), toneWAV(t, 440, 22050, 0.5), factor)
		if !errors.Is(err, services.ErrInvalidParameter) {
			t.Fatalf("factor %v: expected invalid parameter, got %v", factor, err)
		}
		if got := testsupport.ListDir(t, cfg.TempDir()); len(got) != 0 {
			t.Fatalf("factor %v: expected no leftovers, got %v", factor, got)
		}
	}
}

func TestPitchShiftKeepsLength(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	result, err := New(cfg).PitchShift(context.Background(), toneWAV(t, 440, 22050, 1), -3)
	if err != nil {
		t.Fatalf("PitchShift: %v", err)
	}
	defer result.Artifact.Release()
	if result.DownloadName != "shifted_audio.wav" {
		t.Fatalf("unexpected download name %q", result.DownloadName)
	}
	if buf := decodeArtifact(t, result.Artifact, 22050); buf.Len() != 22050 {
		t.Fatalf("expected 22050 samples, got %d", buf.Len())
	}
}

func TestUnreadableUploadCleansUp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	recorder := &testsupport.CommandRecorder{
		Handler: func(context.Context, string, []string) ([]byte, error) {
			return nil, errors.New("invalid data found when processing input")
		},
	}
	p := New(cfg, WithCommandRunner(recorder.Run))

	_, err := p.Process(context.Background(), Request{Kind: KindBassBoost, Data: []byte("definitely not audio")})
	if !errors.Is(err, services.ErrUnreadableAudio) {
		t.Fatalf("expected unreadable audio, got %v", err)
	}
	if got := testsupport.ListDir(t, cfg.TempDir()); len(got) != 0 {
		t.Fatalf("expected no leftovers, got %v", got)
	}
}

func TestProcessUnknownKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := New(cfg).Process(context.Background(), Request{Kind: "karaoke", Data: []byte("x")})
	if !errors.Is(err, services.ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
}

func TestTranscribeRequiresLoadedModel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := New(cfg)
	if _, err := p.Transcribe(context.Background(), "a.wav", toneWAV(t, 440, 16000, 0.2), "en"); !errors.Is(err, services.ErrModelNotReady) {
		t.Fatalf("expected model not ready, got %v", err)
	}

	unloaded := transcribe.NewTranscriber(transcribe.NewModel(&fakeEngine{}, nil))
	p = New(cfg, WithTranscriber(unloaded))
	_, err := p.IdentifySpeakers(context.Background(), "a.wav", toneWAV(t, 440, 16000, 0.2), "en", 0)
	if !errors.Is(err, services.ErrModelNotReady) {
		t.Fatalf("expected model not ready, got %v", err)
	}
}

func TestTranscribeSpoolsUploadWithExtension(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	engine := &fakeEngine{transcript: transcribe.Transcript{
		Text:     "hello world",
		Language: "en",
		Segments: []transcribe.Segment{{Start: 0, End: 1, Text: "hello world"}},
	}}
	p := New(cfg, WithTranscriber(loadedTranscriber(t, cfg, engine)))

	result, err := p.Process(context.Background(), Request{
		Kind:     KindTranscribe,
		Filename: "Interview.MP3",
		Data:     []byte("opaque upload bytes"),
		Options:  Options{Language: "en"},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Text != "hello world" || result.Transcript == nil || len(result.Transcript.Segments) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Artifact != nil || result.DownloadName != "" {
		t.Fatalf("transcription should not produce a file, got %+v", result)
	}
	if len(engine.paths) != 1 || filepath.Ext(engine.paths[0]) != ".mp3" {
		t.Fatalf("expected spooled .mp3 upload, got %v", engine.paths)
	}
	if got := testsupport.ListDir(t, cfg.TempDir()); len(got) != 0 {
		t.Fatalf("expected upload spool removed, got %v", got)
	}
}

func TestIdentifySpeakersTwoTones(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	const sr = 8000
	samples := append(testsupport.Sine(200, sr, 1, 0.5), testsupport.Sine(2500, sr, 1, 0.5)...)
	engine := &fakeEngine{transcript: transcribe.Transcript{
		Text: "hello world",
		Segments: []transcribe.Segment{
			{Start: 0.2, End: 0.8, Text: "hello"},
			{Start: 1.5, End: 1.9, Text: "world"},
		},
	}}
	p := New(cfg, WithTranscriber(loadedTranscriber(t, cfg, engine)))

	result, err := p.Process(context.Background(), Request{
		Kind:     KindSpeechIdentifier,
		Filename: "meeting.wav",
		Data:     testsupport.WAVBytes(t, samples, sr),
		Options:  Options{Language: "en", Speakers: 2},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	report := result.Speakers
	if report == nil || report.Transcription != "hello world" {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.Segments) != 2 {
		t.Fatalf("expected two speaker segments, got %+v", report.Segments)
	}
	if !strings.Contains(report.Segments[0].Text, "hello") || !strings.Contains(report.Segments[1].Text, "world") {
		t.Fatalf("unexpected alignment %+v", report.Segments)
	}
	if report.Segments[0].Speaker == report.Segments[1].Speaker {
		t.Fatalf("expected distinct speakers, got %+v", report.Segments)
	}
	if got := testsupport.ListDir(t, cfg.TempDir()); len(got) != 0 {
		t.Fatalf("expected upload spool removed, got %v", got)
	}
}

const videoProbe = `{
  "streams": [
    {"index": 0, "codec_type": "video", "width": 320, "height": 240, "r_frame_rate": "25/1", "nb_frames": "50"},
    {"index": 1, "codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"duration": "2.0"}
}`

func TestSubtitleVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	recorder := &testsupport.CommandRecorder{
		Handler: func(_ context.Context, name string, args []string) ([]byte, error) {
			if name == "ffprobe" {
				return []byte(videoProbe), nil
			}
			return nil, os.WriteFile(args[len(args)-1], []byte("mp4"), 0o644)
		},
	}
	stt := &fakeSTT{words: []assemblyai.Word{
		{Text: "hello", Start: 0.1, End: 0.5},
		{Text: "world", Start: 0.6, End: 1.0},
	}}
	p := New(cfg, WithCommandRunner(recorder.Run), WithSpeechToText(stt))

	result, err := p.Process(context.Background(), Request{
		Kind:     KindTranscribeVideo,
		Filename: "clip",
		Data:     []byte("video bytes"),
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	defer result.Artifact.Release()

	if filepath.Ext(stt.path) != ".mp4" {
		t.Fatalf("expected upload spooled as mp4, got %q", stt.path)
	}
	if result.Text != "hello world" || result.DownloadName != "transcribed_video.mp4" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Artifact.Format != audio.FormatMP4 {
		t.Fatalf("unexpected artifact format %q", result.Artifact.Format)
	}
	if got := testsupport.ListDir(t, cfg.TempDir()); len(got) != 1 || got[0] != filepath.Base(result.Artifact.Path) {
		t.Fatalf("expected only the artifact to remain, got %v", got)
	}
}

func TestSubtitleVideoSpeechToTextFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stt := &fakeSTT{err: services.Wrap(services.ErrExternalService, "assemblyai", "transcribe", "boom", nil)}
	p := New(cfg, WithSpeechToText(stt))

	_, err := p.SubtitleVideo(context.Background(), "clip.mp4", []byte("video bytes"))
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if got := testsupport.ListDir(t, cfg.TempDir()); len(got) != 0 {
		t.Fatalf("expected upload spool removed, got %v", got)
	}
}

func TestDefaultOptionsFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSpeakers(3))
	got := New(cfg).DefaultOptions()
	want := Options{Steps: 2, SpeedFactor: 1.5, Language: "en", Speakers: 3}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}
