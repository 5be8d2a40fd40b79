package transcribe

import "strings"

// Word is a single recognized word with timings in seconds.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is an ordered span of recognized speech. Consecutive segments are
// not guaranteed to be contiguous.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Transcript is the result of transcribing one audio file.
type Transcript struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

// Words flattens the word timings of every segment in order.
func (t Transcript) Words() []Word {
	var out []Word
	for _, seg := range t.Segments {
		out = append(out, seg.Words...)
	}
	return out
}

// Duration returns the end time of the last segment.
func (t Transcript) Duration() float64 {
	var end float64
	for _, seg := range t.Segments {
		end = max(end, seg.End)
	}
	return end
}

// JoinText concatenates the trimmed text of every non-empty segment.
func JoinText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
