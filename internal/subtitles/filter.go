package subtitles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Style controls how cues are drawn onto frames.
type Style struct {
	FontFile     string
	FontSize     int
	FontColor    string
	BottomMargin int
}

// fontSizeFor returns the configured size, or one scaled to the frame height.
func (s Style) fontSizeFor(height int) int {
	if s.FontSize > 0 {
		return s.FontSize
	}
	return max(height/20, 12)
}

// escapeFilterValue quotes value for use inside a single-quoted filtergraph
// option.
func escapeFilterValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `'\''`)
}

// drawtextFilter renders one cue as a drawtext filter reading its text from
// textFile.
func drawtextFilter(cue Cue, textFile string, style Style, fontSize int) string {
	var b strings.Builder
	b.WriteString("drawtext=")
	if style.FontFile != "" {
		fmt.Fprintf(&b, "fontfile='%s':", escapeFilterValue(style.FontFile))
	}
	fmt.Fprintf(&b, "textfile='%s'", escapeFilterValue(textFile))
	fmt.Fprintf(&b, ":fontsize=%d:fontcolor=%s", fontSize, style.FontColor)
	fmt.Fprintf(&b, ":x=(w-text_w)/2:y=h-text_h-%d", style.BottomMargin)
	fmt.Fprintf(&b, ":enable='between(n,%d,%d)'", cue.FirstFrame, cue.LastFrame)
	return b.String()
}

// WriteFilterScript writes one wrapped text file per cue into dir and a
// filter script chaining a drawtext filter per cue. The script path is
// returned for use with -filter_script:v. Without cues the script is a
// passthrough.
func WriteFilterScript(dir string, cues []Cue, style Style, width, height int) (string, error) {
	fontSize := style.fontSizeFor(height)
	maxWidth := float64(width) * 0.9

	filters := make([]string, 0, len(cues))
	for i, cue := range cues {
		lines := Wrap(cue.Text, maxWidth, fontSize)
		textFile := filepath.Join(dir, fmt.Sprintf("cue-%05d.txt", i))
		if err := os.WriteFile(textFile, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
			return "", fmt.Errorf("write cue text: %w", err)
		}
		filters = append(filters, drawtextFilter(cue, textFile, style, fontSize))
	}

	script := "null"
	if len(filters) > 0 {
		script = strings.Join(filters, ",\n")
	}
	scriptPath := filepath.Join(dir, "overlay.filter")
	if err := os.WriteFile(scriptPath, []byte(script+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write filter script: %w", err)
	}
	return scriptPath, nil
}
