package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"mediaframe/internal/config"
	"mediaframe/internal/services"
)

const userAgent = "mediaframe/0.1.0"

// Job describes one finished processing request.
type Job struct {
	Kind     string
	Input    string
	Output   string
	Bytes    int64
	Duration time.Duration
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyJobCompleted(ctx context.Context, job Job) error
	NotifyJobFailed(ctx context.Context, job Job, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.Notifications.RequestTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		minDuration: cfg.Notifications.MinDuration(),
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	minDuration time.Duration
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, job Job) error {
	if job.Duration < n.minDuration {
		return nil
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "%s finished in %s", jobLabel(job), formatDuration(job.Duration))
	if job.Output != "" {
		fmt.Fprintf(&builder, "\nOutput: %s", job.Output)
		if job.Bytes > 0 {
			fmt.Fprintf(&builder, " (%s)", humanize.Bytes(uint64(job.Bytes)))
		}
	}
	data := payload{
		title:   "mediaframe - Complete",
		message: builder.String(),
		tags:    []string{"mediaframe", job.Kind, "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, job Job, err error) error {
	message := fmt.Sprintf("%s failed", jobLabel(job))
	if err != nil {
		details := services.Details(err)
		if details.Kind != "" && details.Kind != "internal" {
			message = fmt.Sprintf("%s (%s): %s", message, details.Kind, details.Message)
		} else {
			message = fmt.Sprintf("%s: %s", message, strings.TrimSpace(err.Error()))
		}
	}
	data := payload{
		title:    "mediaframe - Error",
		message:  message,
		tags:     []string{"mediaframe", job.Kind, "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "mediaframe - Test",
		message:  "Notification system test",
		tags:     []string{"mediaframe", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if tags := compactTags(data.tags); len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func jobLabel(job Job) string {
	input := filepath.Base(strings.TrimSpace(job.Input))
	if input == "." || input == "" {
		return job.Kind
	}
	return fmt.Sprintf("%s of %s", job.Kind, input)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func compactTags(tags []string) []string {
	out := tags[:0:0]
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, Job) error     { return nil }
func (noopService) NotifyJobFailed(context.Context, Job, error) error { return nil }
func (noopService) TestNotification(context.Context) error            { return nil }
