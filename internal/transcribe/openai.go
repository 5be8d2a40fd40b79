package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediaframe/internal/language"
	"mediaframe/internal/services"
)

const (
	OpenAIEngineName     = "openai"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "whisper-1"
	openAITranscribePath = "/audio/transcriptions"
	openAIAPITimeout     = 10 * time.Minute
)

// OpenAIConfig configures an OpenAI-compatible transcription endpoint.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// OpenAI calls an OpenAI-compatible /audio/transcriptions endpoint with
// verbose_json output and word timestamps.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// OpenAIOption customizes the engine.
type OpenAIOption func(*OpenAI)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(o *OpenAI) {
		if client != nil {
			o.http = client
		}
	}
}

// NewOpenAI constructs the engine.
func NewOpenAI(cfg OpenAIConfig, opts ...OpenAIOption) *OpenAI {
	engine := &OpenAI{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   strings.TrimSpace(cfg.Model),
		http:    &http.Client{Timeout: openAIAPITimeout},
	}
	if engine.baseURL == "" {
		engine.baseURL = defaultOpenAIBaseURL
	}
	if engine.model == "" {
		engine.model = defaultOpenAIModel
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Name implements Engine.
func (o *OpenAI) Name() string {
	return OpenAIEngineName + ":" + o.model
}

// Load verifies that credentials are present. No request is made.
func (o *OpenAI) Load(context.Context) error {
	if o.apiKey == "" {
		return services.Wrap(services.ErrConfiguration, "transcribe", "openai", "missing api key", nil)
	}
	return nil
}

type openAIWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type openAISegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type openAIResponse struct {
	Text     string          `json:"text"`
	Language string          `json:"language"`
	Duration float64         `json:"duration"`
	Segments []openAISegment `json:"segments"`
	Words    []openAIWord    `json:"words"`
}

// Transcribe implements Engine.
func (o *OpenAI) Transcribe(ctx context.Context, path, lang string) (Transcript, error) {
	file, err := os.Open(path)
	if err != nil {
		return Transcript{}, fmt.Errorf("openai: open audio: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fields := [][2]string{
		{"model", o.model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "segment"},
		{"timestamp_granularities[]", "word"},
	}
	if lang != "" {
		fields = append(fields, [2]string{"language", lang})
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return Transcript{}, fmt.Errorf("openai: write %s field: %w", field[0], err)
		}
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return Transcript{}, fmt.Errorf("openai: create file field: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return Transcript{}, fmt.Errorf("openai: copy audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Transcript{}, fmt.Errorf("openai: close multipart writer: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+openAITranscribePath, body)
	if err != nil {
		return Transcript{}, fmt.Errorf("openai: build request: %w", err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())
	request.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.http.Do(request)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrExternalService, "transcribe", "openai", "http request", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrExternalService, "transcribe", "openai", "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Transcript{}, services.Wrap(services.ErrExternalService, "transcribe", "openai",
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return Transcript{}, services.Wrap(services.ErrExternalService, "transcribe", "openai", "decode response", err)
	}
	return parsed.transcript(lang), nil
}

// transcript converts the response, distributing top-level word timings into
// the segment whose span contains each word's start.
func (r openAIResponse) transcript(requested string) Transcript {
	out := Transcript{
		Text:     strings.TrimSpace(r.Text),
		Language: language.ToISO2(r.Language),
		Segments: make([]Segment, 0, len(r.Segments)),
	}
	if out.Language == "" {
		out.Language = requested
	}
	for _, seg := range r.Segments {
		out.Segments = append(out.Segments, Segment{Start: seg.Start, End: seg.End, Text: strings.TrimSpace(seg.Text)})
	}
	if len(out.Segments) == 0 && out.Text != "" {
		out.Segments = append(out.Segments, Segment{Start: 0, End: r.Duration, Text: out.Text})
	}
	next := 0
	for _, w := range r.Words {
		for next < len(out.Segments)-1 && w.Start >= out.Segments[next].End {
			next++
		}
		if next < len(out.Segments) {
			out.Segments[next].Words = append(out.Segments[next].Words, Word{Text: strings.TrimSpace(w.Word), Start: w.Start, End: w.End})
		}
	}
	if out.Text == "" {
		out.Text = JoinText(out.Segments)
	}
	return out
}
