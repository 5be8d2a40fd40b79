package subtitles

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"mediaframe/internal/config"
	"mediaframe/internal/services"
	"mediaframe/internal/testsupport"
)

const probeWithAudio = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": 640, "height": 360,
     "r_frame_rate": "10/1", "nb_frames": "20"},
    {"index": 1, "codec_type": "audio", "codec_name": "aac", "sample_rate": "44100", "channels": 2}
  ],
  "format": {"duration": "2.0", "nb_streams": 2}
}`

const probeVideoOnly = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": 640, "height": 360,
     "r_frame_rate": "10/1", "nb_frames": "20"}
  ],
  "format": {"duration": "2.0", "nb_streams": 1}
}`

// fakeTools answers ffprobe with probe and writes ffmpeg's output file.
func fakeTools(probe string, failOn string) *testsupport.CommandRecorder {
	return &testsupport.CommandRecorder{
		Handler: func(_ context.Context, name string, args []string) ([]byte, error) {
			if name == "ffprobe" {
				return []byte(probe), nil
			}
			joined := strings.Join(args, " ")
			if failOn != "" && strings.Contains(joined, failOn) {
				return nil, errors.New("ffmpeg exploded")
			}
			out := args[len(args)-1]
			return nil, os.WriteFile(out, []byte("video:"+filepath.Base(out)), 0o644)
		},
	}
}

func newTestCompositor(t *testing.T, recorder *testsupport.CommandRecorder, states *[]State, opts ...testsupport.ConfigOption) (*Compositor, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	c := New(cfg,
		WithCommandRunner(recorder.Run),
		WithStateObserver(func(s State) { *states = append(*states, s) }),
	)
	return c, cfg
}

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mp4")
	testsupport.WriteFile(t, path, []byte("not really a video"))
	return path
}

var testCaptions = []Caption{
	{Start: 0, End: 500, Text: "hello"},
	{Start: 500, End: 1200, Text: "world"},
}

func TestComposeMuxesOriginalAudio(t *testing.T) {
	recorder := fakeTools(probeWithAudio, "")
	var states []State
	c, cfg := newTestCompositor(t, recorder, &states)

	artifact, err := c.Compose(context.Background(), writeVideo(t), testCaptions, Milliseconds)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	defer artifact.Release()

	wantStates := []State{StateDecoding, StatePerFrameOverlay, StateReEncoding, StateMuxing, StateDone}
	if !reflect.DeepEqual(states, wantStates) {
		t.Fatalf("got states %v want %v", states, wantStates)
	}

	calls := recorder.Joined()
	if len(calls) != 3 {
		t.Fatalf("expected probe, encode and mux calls, got %q", calls)
	}
	if !strings.HasPrefix(calls[0], "ffprobe ") {
		t.Fatalf("expected ffprobe first, got %q", calls[0])
	}
	for _, want := range []string{"-filter_script:v", "-an", "-c:v libx264", "-pix_fmt yuv420p"} {
		if !strings.Contains(calls[1], want) {
			t.Fatalf("expected %q in encode call %q", want, calls[1])
		}
	}
	for _, want := range []string{"-map 0:v:0", "-map 1:a:0", "-c:v copy", "-c:a aac", "-shortest"} {
		if !strings.Contains(calls[2], want) {
			t.Fatalf("expected %q in mux call %q", want, calls[2])
		}
	}

	if !strings.HasPrefix(filepath.Base(artifact.Path), "transcribed-") || filepath.Ext(artifact.Path) != ".mp4" {
		t.Fatalf("unexpected artifact path %q", artifact.Path)
	}
	if got := testsupport.ListDir(t, cfg.TempDir()); !reflect.DeepEqual(got, []string{filepath.Base(artifact.Path)}) {
		t.Fatalf("expected only the artifact to remain, got %v", got)
	}
	if err := artifact.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := testsupport.ListDir(t, cfg.TempDir()); len(got) != 0 {
		t.Fatalf("expected empty temp dir after release, got %v", got)
	}
}

func TestComposeWithoutAudioSkipsMux(t *testing.T) {
	recorder := fakeTools(probeVideoOnly, "")
	var states []State
	c, _ := newTestCompositor(t, recorder, &states)

	artifact, err := c.Compose(context.Background(), writeVideo(t), testCaptions, Milliseconds)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	defer artifact.Release()

	if calls := recorder.Joined(); len(calls) != 2 {
		t.Fatalf("expected probe and encode only, got %q", calls)
	}
	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "video:video.mp4" {
		t.Fatalf("expected re-encoded video to become the artifact, got %q", data)
	}
	if states[len(states)-1] != StateDone {
		t.Fatalf("expected done, got %v", states)
	}
}

func TestComposeWritesSRTSidecar(t *testing.T) {
	recorder := fakeTools(probeWithAudio, "")
	var states []State
	c, cfg := newTestCompositor(t, recorder, &states, func(c *config.Config) {
		c.Subtitles.WriteSRT = true
	})

	artifact, err := c.Compose(context.Background(), writeVideo(t), testCaptions, Milliseconds)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(artifact.Sidecars) != 1 {
		t.Fatalf("expected one sidecar, got %v", artifact.Sidecars)
	}
	data, err := os.ReadFile(artifact.Sidecars[0])
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:00,500\nhello\n\n2\n00:00:00,500 --> 00:00:01,200\nworld\n\n"
	if string(data) != want {
		t.Fatalf("got %q want %q", data, want)
	}
	if err := artifact.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := testsupport.ListDir(t, cfg.TempDir()); len(got) != 0 {
		t.Fatalf("expected sidecar removed with artifact, got %v", got)
	}
}

func TestComposeFailureCleansUp(t *testing.T) {
	tests := []struct {
		name   string
		probe  string
		failOn string
	}{
		{name: "encode fails", probe: probeWithAudio, failOn: "-filter_script:v"},
		{name: "mux fails", probe: probeWithAudio, failOn: "-shortest"},
		{name: "no video stream", probe: `{"streams": [{"codec_type": "audio"}], "format": {}}`},
		{name: "bad probe output", probe: `not json`},
		{name: "unknown frame rate", probe: `{"streams": [{"codec_type": "video", "r_frame_rate": "0/0"}], "format": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := fakeTools(tt.probe, tt.failOn)
			var states []State
			c, cfg := newTestCompositor(t, recorder, &states)

			artifact, err := c.Compose(context.Background(), writeVideo(t), testCaptions, Milliseconds)
			if err == nil {
				artifact.Release()
				t.Fatal("expected composition error")
			}
			if !errors.Is(err, services.ErrComposition) {
				t.Fatalf("expected ErrComposition, got %v", err)
			}
			if states[len(states)-1] != StateFailed {
				t.Fatalf("expected failed state, got %v", states)
			}
			if got := testsupport.ListDir(t, cfg.TempDir()); len(got) != 0 {
				t.Fatalf("expected no leftovers, got %v", got)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	if StatePerFrameOverlay.String() != "per_frame_overlay" {
		t.Fatalf("unexpected name %q", StatePerFrameOverlay.String())
	}
	if State(42).String() != "State(42)" {
		t.Fatalf("unexpected fallback %q", State(42).String())
	}
}
