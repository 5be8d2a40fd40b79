package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mediaframe/internal/logging"
	"mediaframe/internal/services"
)

const (
	defaultBaseURL      = "https://api.assemblyai.com"
	defaultPollInterval = 3 * time.Second
	apiTimeout          = 5 * time.Minute
	uploadPath          = "/v2/upload"
	transcriptPath      = "/v2/transcript"

	statusCompleted = "completed"
	statusError     = "error"
)

var millisPerSecond = decimal.NewFromInt(1000)

// Word is a recognized word with timings converted to seconds.
type Word struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Client talks to the AssemblyAI v2 transcription API.
type Client struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	http         *http.Client
	logger       *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
		}
	}
}

// WithPollInterval sets how often transcript status is polled.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		baseURL:      defaultBaseURL,
		apiKey:       strings.TrimSpace(apiKey),
		pollInterval: defaultPollInterval,
		http:         &http.Client{Timeout: apiTimeout},
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "assemblyai")
	return client
}

type rawWord struct {
	Text       string          `json:"text"`
	Start      decimal.Decimal `json:"start"`
	End        decimal.Decimal `json:"end"`
	Confidence float64         `json:"confidence"`
}

type transcriptResponse struct {
	ID     string    `json:"id"`
	Status string    `json:"status"`
	Error  string    `json:"error"`
	Text   string    `json:"text"`
	Words  []rawWord `json:"words"`
}

// MillisToSeconds converts an API timestamp in milliseconds to seconds.
func MillisToSeconds(ms decimal.Decimal) float64 {
	return ms.Div(millisPerSecond).InexactFloat64()
}

// Transcribe uploads the audio or video file at path, requests a transcript
// and polls until it completes. Word timings are returned in seconds.
func (c *Client) Transcribe(ctx context.Context, path string) ([]Word, error) {
	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "assemblyai", "transcribe", "missing api key", nil)
	}
	uploadURL, err := c.upload(ctx, path)
	if err != nil {
		return nil, err
	}

	var created transcriptResponse
	if err := c.doJSON(ctx, http.MethodPost, transcriptPath, map[string]any{"audio_url": uploadURL}, &created); err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "transcript requested",
		logging.String(logging.FieldEventType, "assemblyai_transcript_requested"),
		logging.String("transcript_id", created.ID),
	)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	current := created
	for {
		switch current.Status {
		case statusCompleted:
			return convertWords(current.Words), nil
		case statusError:
			return nil, services.Wrap(services.ErrExternalService, "assemblyai", "transcribe",
				fmt.Sprintf("transcription error: %s", current.Error), nil)
		}
		select {
		case <-ctx.Done():
			return nil, services.Wrap(services.ErrExternalService, "assemblyai", "poll", "cancelled", ctx.Err())
		case <-ticker.C:
		}
		if err := c.doJSON(ctx, http.MethodGet, transcriptPath+"/"+created.ID, nil, &current); err != nil {
			return nil, err
		}
	}
}

func convertWords(raw []rawWord) []Word {
	words := make([]Word, 0, len(raw))
	for _, w := range raw {
		words = append(words, Word{
			Text:       w.Text,
			Start:      MillisToSeconds(w.Start),
			End:        MillisToSeconds(w.End),
			Confidence: w.Confidence,
		})
	}
	return words
}

func (c *Client) upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "assemblyai", "upload", "open media", err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, file)
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "assemblyai", "upload", "build request", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	var payload struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.send(req, &payload); err != nil {
		return "", err
	}
	if payload.UploadURL == "" {
		return "", services.Wrap(services.ErrExternalService, "assemblyai", "upload", "response missing upload_url", nil)
	}
	return payload.UploadURL, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("assemblyai: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "assemblyai", method+" "+path, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	op := req.Method + " " + req.URL.Path
	req.Header.Set("Authorization", c.apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "assemblyai", op, "http request", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "assemblyai", op, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrExternalService, "assemblyai", op,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return services.Wrap(services.ErrExternalService, "assemblyai", op, "decode response", err)
	}
	return nil
}
