package diarize

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"mediaframe/internal/audio"
	"mediaframe/internal/config"
	"mediaframe/internal/logging"
	"mediaframe/internal/services"
	"mediaframe/internal/testsupport"
	"mediaframe/internal/transcribe"
)

func TestSegmentsFromLabels(t *testing.T) {
	labels := []int{0, 0, 1, 1, 0, 0, 1, 1, 0, 0}
	frame := 512.0 / 22050.0
	got := SegmentsFromLabels(labels, frame, 1.0)

	want := []struct {
		start, end float64
		speaker    string
	}{
		{0, 2 * frame, "Speaker 1"},
		{2 * frame, 4 * frame, "Speaker 2"},
		{4 * frame, 6 * frame, "Speaker 1"},
		{6 * frame, 8 * frame, "Speaker 2"},
		{8 * frame, 1.0, "Speaker 1"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d segments want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if math.Abs(got[i].Start-w.start) > 1e-12 || math.Abs(got[i].End-w.end) > 1e-12 || got[i].Speaker != w.speaker {
			t.Fatalf("segment %d = %+v want %+v", i, got[i], w)
		}
	}
}

func TestSegmentsFromLabelsNamesByFirstAppearance(t *testing.T) {
	got := SegmentsFromLabels([]int{1, 1, 0, 2}, 0.5, 2)
	names := []string{got[0].Speaker, got[1].Speaker, got[2].Speaker}
	if !reflect.DeepEqual(names, []string{"Speaker 1", "Speaker 2", "Speaker 3"}) {
		t.Fatalf("unexpected names %v", names)
	}
	if got[2].End != 2 {
		t.Fatalf("last segment must end at total duration, got %v", got[2].End)
	}
	if SegmentsFromLabels(nil, 0.5, 1) != nil {
		t.Fatal("expected no segments for no labels")
	}
}

func TestAlignFirstMatchAndPrune(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 0.5, Speaker: "Speaker 1"},
		{Start: 0.5, End: 1.0, Speaker: "Speaker 2"},
		{Start: 1.0, End: 1.5, Speaker: "Speaker 1"},
	}
	units := []Unit{
		{Start: 0.0, Text: "Hello"},
		{Start: 0.5, Text: "world"},
		{Start: 0.7, Text: "again"},
		{Start: 9.0, Text: "lost"},
	}
	got := Align(segments, units)
	if len(got) != 2 {
		t.Fatalf("expected empty segment pruned, got %+v", got)
	}
	if got[0].Speaker != "Speaker 1" || got[0].Text != " Hello" {
		t.Fatalf("unexpected first segment %+v", got[0])
	}
	if got[1].Speaker != "Speaker 2" || got[1].Text != " world again" {
		t.Fatalf("unexpected second segment %+v", got[1])
	}
	if segments[0].Text != "" {
		t.Fatal("input segments must not be modified")
	}
	for _, seg := range got {
		if strings.Contains(seg.Text, "lost") {
			t.Fatal("unit outside every segment must be dropped")
		}
	}
}

func TestUnitsFromTranscript(t *testing.T) {
	tr := transcribe.Transcript{Segments: []transcribe.Segment{
		{Start: 0, End: 1, Text: "Hello world", Words: []transcribe.Word{{Text: "Hello", Start: 0}, {Text: "world", Start: 0.6}}},
		{Start: 1, End: 2, Text: "Bye"},
	}}
	if units := UnitsFromTranscript(tr, AlignSegments); len(units) != 2 || units[1].Text != "Bye" {
		t.Fatalf("unexpected segment units %+v", units)
	}
	words := UnitsFromTranscript(tr, AlignWords)
	if len(words) != 2 || words[1].Start != 0.6 {
		t.Fatalf("unexpected word units %+v", words)
	}
	noWords := transcribe.Transcript{Segments: []transcribe.Segment{{Start: 0, End: 1, Text: "only"}}}
	if units := UnitsFromTranscript(noWords, AlignWords); len(units) != 1 || units[0].Text != "only" {
		t.Fatalf("expected fallback to segments, got %+v", units)
	}
}

func TestClusterSeparatesBlobs(t *testing.T) {
	var points [][]float64
	for i := 0; i < 20; i++ {
		jitter := float64(i%5) * 0.01
		points = append(points, []float64{jitter, 1 + jitter})
	}
	for i := 0; i < 20; i++ {
		jitter := float64(i%5) * 0.01
		points = append(points, []float64{10 + jitter, -5 + jitter})
	}
	first, err := Cluster(points, 2, 42, 10)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	for i := 1; i < 20; i++ {
		if first.Labels[i] != first.Labels[0] || first.Labels[20+i] != first.Labels[20] {
			t.Fatalf("blob split across clusters: %v", first.Labels)
		}
	}
	if first.Labels[0] == first.Labels[20] {
		t.Fatalf("blobs merged: %v", first.Labels)
	}

	second, _ := Cluster(points, 2, 42, 10)
	if !reflect.DeepEqual(first.Labels, second.Labels) {
		t.Fatal("clustering is not deterministic for a fixed seed")
	}
}

func TestClusterRejectsTooFewPoints(t *testing.T) {
	if _, err := Cluster([][]float64{{1}}, 2, 42, 1); err == nil {
		t.Fatal("expected error when points < clusters")
	}
	if _, err := Cluster([][]float64{{1}, {2}}, 0, 42, 1); err == nil {
		t.Fatal("expected error for zero clusters")
	}
}

func TestClusterIdenticalPoints(t *testing.T) {
	points := [][]float64{{1, 1}, {1, 1}, {1, 1}}
	got, err := Cluster(points, 2, 42, 3)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if got.Inertia != 0 {
		t.Fatalf("expected zero inertia, got %v", got.Inertia)
	}
}

func TestIdentifyTwoTones(t *testing.T) {
	const sr = 8000
	low := testsupport.Sine(200, sr, 1, 0.5)
	high := testsupport.Sine(2500, sr, 1, 0.5)
	buf := audio.Buffer{Samples: append(low, high...), SampleRate: sr}
	transcript := &transcribe.Transcript{
		Text: "hello world",
		Segments: []transcribe.Segment{
			{Start: 0.2, End: 0.8, Text: "hello"},
			{Start: 1.5, End: 1.9, Text: "world"},
		},
	}

	d := New(SettingsFromConfig(config.Default().Diarization), logging.NewNop())
	report, err := d.Identify(context.Background(), buf, transcript)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if report.Transcription != "hello world" {
		t.Fatalf("unexpected transcription %q", report.Transcription)
	}
	if len(report.Segments) != 2 {
		t.Fatalf("expected two speaker segments, got %+v", report.Segments)
	}
	if report.Segments[0].Speaker != "Speaker 1" || !strings.Contains(report.Segments[0].Text, "hello") {
		t.Fatalf("unexpected first segment %+v", report.Segments[0])
	}
	if report.Segments[1].Speaker != "Speaker 2" || !strings.Contains(report.Segments[1].Text, "world") {
		t.Fatalf("unexpected second segment %+v", report.Segments[1])
	}
}

func TestIdentifyErrors(t *testing.T) {
	d := New(DefaultSettings(), logging.NewNop())
	buf := audio.Buffer{Samples: testsupport.Sine(300, 8000, 0.5, 0.2), SampleRate: 8000}

	if _, err := d.Identify(context.Background(), buf, nil); !errors.Is(err, services.ErrDiarization) {
		t.Fatalf("expected diarization error for missing transcript, got %v", err)
	}

	tiny := audio.Buffer{Samples: make([]float64, 10), SampleRate: 8000}
	_, err := d.WithSpeakers(3).Identify(context.Background(), tiny, &transcribe.Transcript{})
	if !errors.Is(err, services.ErrDiarization) {
		t.Fatalf("expected diarization error for too few frames, got %v", err)
	}

	if _, err := d.WithSpeakers(0).Labels(buf); !errors.Is(err, services.ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter for zero speakers, got %v", err)
	}
}
