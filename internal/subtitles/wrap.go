package subtitles

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// glyphAspect approximates the advance of one terminal cell relative to the
// font size for typical sans-serif caption fonts.
const glyphAspect = 0.6

// TextWidth estimates the rendered width of text in pixels. Wide runes such
// as CJK count as two cells.
func TextWidth(text string, fontSize int) float64 {
	return float64(runewidth.StringWidth(text)) * glyphAspect * float64(fontSize)
}

// Wrap greedily breaks text into lines no wider than maxWidth pixels. A word
// that is wider than maxWidth on its own occupies a line by itself.
func Wrap(text string, maxWidth float64, fontSize int) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if TextWidth(candidate, fontSize) <= maxWidth {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
