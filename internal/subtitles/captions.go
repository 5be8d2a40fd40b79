package subtitles

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// TimeUnit identifies the unit of incoming caption timestamps.
type TimeUnit int

const (
	Seconds TimeUnit = iota
	Milliseconds
)

func (u TimeUnit) String() string {
	switch u {
	case Seconds:
		return "seconds"
	case Milliseconds:
		return "milliseconds"
	default:
		return fmt.Sprintf("TimeUnit(%d)", int(u))
	}
}

// Caption is a piece of text shown during [Start, End).
type Caption struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Normalize converts captions to seconds, trims their text, and drops
// captions that are empty or have no positive duration.
func Normalize(captions []Caption, unit TimeUnit) []Caption {
	scale := 1.0
	if unit == Milliseconds {
		scale = 1.0 / 1000
	}
	out := make([]Caption, 0, len(captions))
	for _, c := range captions {
		c.Start *= scale
		c.End *= scale
		c.Text = strings.TrimSpace(c.Text)
		if c.Text == "" || !(c.End > c.Start) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Cue is a run of frames sharing the same set of active captions. Frames are
// zero-based and the range is inclusive.
type Cue struct {
	FirstFrame int
	LastFrame  int
	Text       string
}

// startFrame returns the first frame index i with i/fps >= t.
func startFrame(t, fps float64) int {
	return int(math.Ceil(t*fps - 1e-9))
}

// BuildCues computes, for every frame i at time i/fps, the set of captions
// with Start <= t < End, and collapses runs of identical sets into cues.
// Frames without captions produce no cue. Cues are clamped to totalFrames
// when it is positive.
func BuildCues(captions []Caption, fps float64, totalFrames int) []Cue {
	if fps <= 0 || len(captions) == 0 {
		return nil
	}

	type span struct{ first, end int }
	spans := make([]span, len(captions))
	bounds := make(map[int]struct{}, 2*len(captions))
	for i, c := range captions {
		s := span{first: max(startFrame(c.Start, fps), 0), end: startFrame(c.End, fps)}
		if totalFrames > 0 {
			s.end = min(s.end, totalFrames)
		}
		spans[i] = s
		if s.end > s.first {
			bounds[s.first] = struct{}{}
			bounds[s.end] = struct{}{}
		}
	}
	edges := make([]int, 0, len(bounds))
	for b := range bounds {
		edges = append(edges, b)
	}
	slices.Sort(edges)

	var cues []Cue
	var prevKey string
	for i := 0; i+1 < len(edges); i++ {
		lo, hi := edges[i], edges[i+1]
		var active []int
		for idx, s := range spans {
			if s.first <= lo && lo < s.end {
				active = append(active, idx)
			}
		}
		if len(active) == 0 {
			prevKey = ""
			continue
		}
		key := fmt.Sprint(active)
		if key == prevKey && len(cues) > 0 && cues[len(cues)-1].LastFrame == lo-1 {
			cues[len(cues)-1].LastFrame = hi - 1
			continue
		}
		texts := make([]string, len(active))
		for j, idx := range active {
			texts[j] = captions[idx].Text
		}
		cues = append(cues, Cue{FirstFrame: lo, LastFrame: hi - 1, Text: strings.Join(texts, " ")})
		prevKey = key
	}
	return cues
}
