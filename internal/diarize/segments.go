package diarize

import (
	"fmt"
	"strings"

	"mediaframe/internal/transcribe"
)

// Segment is a contiguous run of frames attributed to one speaker, with the
// transcript text aligned onto it. Times are in seconds.
type Segment struct {
	Start   float64 `json:"start_time"`
	End     float64 `json:"end_time"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
}

// Alignment units.
const (
	AlignSegments = "segment"
	AlignWords    = "word"
)

// Unit is a piece of transcript placed by its start time.
type Unit struct {
	Start float64
	Text  string
}

// SegmentsFromLabels collapses runs of identical frame labels into segments.
// A run that changes at frame i ends at i*frameDuration; the final run ends at
// totalSeconds. Speakers are numbered in order of first appearance.
func SegmentsFromLabels(labels []int, frameDuration, totalSeconds float64) []Segment {
	if len(labels) == 0 {
		return nil
	}
	names := make(map[int]string)
	name := func(label int) string {
		if n, ok := names[label]; ok {
			return n
		}
		n := fmt.Sprintf("Speaker %d", len(names)+1)
		names[label] = n
		return n
	}

	var segments []Segment
	current := labels[0]
	start := 0.0
	for i := 1; i < len(labels); i++ {
		if labels[i] == current {
			continue
		}
		end := float64(i) * frameDuration
		segments = append(segments, Segment{Start: start, End: end, Speaker: name(current)})
		current = labels[i]
		start = end
	}
	segments = append(segments, Segment{Start: start, End: totalSeconds, Speaker: name(current)})
	return segments
}

// UnitsFromTranscript lists transcript segments or words, per unit, in order.
func UnitsFromTranscript(t transcribe.Transcript, unit string) []Unit {
	var units []Unit
	if unit == AlignWords {
		for _, w := range t.Words() {
			units = append(units, Unit{Start: w.Start, Text: w.Text})
		}
		if len(units) > 0 {
			return units
		}
	}
	for _, seg := range t.Segments {
		units = append(units, Unit{Start: seg.Start, Text: seg.Text})
	}
	return units
}

// Align assigns each unit to the first segment whose span contains its start
// time, appending a space and the unit text. Units starting outside every
// segment are dropped, and segments left without text are pruned. The input
// slice is not modified.
func Align(segments []Segment, units []Unit) []Segment {
	out := make([]Segment, len(segments))
	copy(out, segments)
	for _, u := range units {
		for i := range out {
			if out[i].Start <= u.Start && u.Start < out[i].End {
				out[i].Text += " " + u.Text
				break
			}
		}
	}
	kept := out[:0]
	for _, seg := range out {
		if strings.TrimSpace(seg.Text) != "" {
			kept = append(kept, seg)
		}
	}
	return kept
}
