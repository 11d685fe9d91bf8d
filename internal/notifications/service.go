package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"texforge/internal/config"
)

const userAgent = "texforge/0.1.0"

// RunSummary is the subset of a run outcome included in a notification.
type RunSummary struct {
	RunID     string
	Processed int
	Skipped   int
	Failed    int
	Duration  time.Duration
	// Failures lists "asset: reason" lines, most relevant first.
	Failures []string
}

// Service defines the notification surface used by the workflow.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	NotifyRunAborted(ctx context.Context, runID string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		onlyFailures: cfg.Notifications.OnlyFailures,
	}
}

// maxListedFailures bounds the failure lines included in one message.
const maxListedFailures = 5

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	onlyFailures bool
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary RunSummary) error {
	if summary.Failed == 0 && n.onlyFailures {
		return nil
	}
	duration := summary.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d processed, %d skipped, %d failed in %s", summary.Processed, summary.Skipped, summary.Failed, duration)
	for i, line := range summary.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(&b, "\n... and %d more", len(summary.Failures)-maxListedFailures)
			break
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(line))
	}

	data := payload{
		title:   "texforge - Run Complete",
		message: b.String(),
		tags:    []string{"texforge", "run", "completed"},
	}
	if summary.Failed > 0 {
		data.title = "texforge - Run Complete (with errors)"
		data.tags = []string{"texforge", "run", "warning"}
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunAborted(ctx context.Context, runID string, err error) error {
	message := "unknown error"
	if err != nil {
		message = strings.TrimSpace(err.Error())
	}
	data := payload{
		title:    "texforge - Run Aborted",
		message:  fmt.Sprintf("Run %s aborted: %s", runID, message),
		tags:     []string{"texforge", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "texforge - Test",
		message:  "Notification system test",
		tags:     []string{"texforge", "test"},
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
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
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

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunSummary) error  { return nil }
func (noopService) NotifyRunAborted(context.Context, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                { return nil }
