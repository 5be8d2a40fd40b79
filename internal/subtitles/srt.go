package subtitles

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// FormatTimestamp renders seconds as an SRT timestamp (HH:MM:SS,mmm).
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	totalMillis := int64(math.Round(seconds * 1000))
	hours := totalMillis / 3_600_000
	minutes := (totalMillis / 60_000) % 60
	secs := (totalMillis / 1000) % 60
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// WriteSRT writes cues as SubRip, converting frame ranges back to time.
func WriteSRT(w io.Writer, cues []Cue, fps float64) error {
	if fps <= 0 {
		return fmt.Errorf("write srt: invalid frame rate %v", fps)
	}
	for i, cue := range cues {
		start := float64(cue.FirstFrame) / fps
		end := float64(cue.LastFrame+1) / fps
		text := strings.TrimSpace(cue.Text)
		if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n", i+1, FormatTimestamp(start), FormatTimestamp(end), text); err != nil {
			return fmt.Errorf("write srt: %w", err)
		}
	}
	return nil
}
