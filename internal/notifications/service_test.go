package notifications_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"texforge/internal/config"
	"texforge/internal/notifications"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var got []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func configFor(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(configFor(""))
	if err := svc.NotifyRunCompleted(context.Background(), notifications.RunSummary{Processed: 1}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("nil config should yield a noop notifier, got %v", err)
	}
}

func TestRunCompletedFormatsSummary(t *testing.T) {
	tests := []struct {
		name           string
		summary        notifications.RunSummary
		expectTitle    string
		expectBody     string
		expectTags     string
		expectPriority string
	}{
		{
			name:        "clean run",
			summary:     notifications.RunSummary{RunID: "r1", Processed: 3, Skipped: 1, Duration: 1500 * time.Millisecond},
			expectTitle: "texforge - Run Complete",
			expectBody:  "3 processed, 1 skipped, 0 failed in 2s",
			expectTags:  "texforge,run,completed",
		},
		{
			name: "run with failures",
			summary: notifications.RunSummary{
				RunID:     "r2",
				Processed: 1,
				Failed:    1,
				Duration:  time.Minute,
				Failures:  []string{"Wood: decode error: corrupt"},
			},
			expectTitle:    "texforge - Run Complete (with errors)",
			expectBody:     "1 processed, 0 skipped, 1 failed in 1m0s\nWood: decode error: corrupt",
			expectTags:     "texforge,run,warning",
			expectPriority: "high",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := newCaptureServer(t, http.StatusOK)
			svc := notifications.NewService(configFor(srv.URL))
			if err := svc.NotifyRunCompleted(context.Background(), tt.summary); err != nil {
				t.Fatalf("NotifyRunCompleted: %v", err)
			}
			if len(*got) != 1 {
				t.Fatalf("expected one request, got %d", len(*got))
			}
			req := (*got)[0]
			if req.title != tt.expectTitle {
				t.Fatalf("title = %q, want %q", req.title, tt.expectTitle)
			}
			if req.body != tt.expectBody {
				t.Fatalf("body = %q, want %q", req.body, tt.expectBody)
			}
			if req.tags != tt.expectTags {
				t.Fatalf("tags = %q, want %q", req.tags, tt.expectTags)
			}
			if req.priority != tt.expectPriority {
				t.Fatalf("priority = %q, want %q", req.priority, tt.expectPriority)
			}
		})
	}
}

func TestRunCompletedTruncatesFailureList(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK)
	svc := notifications.NewService(configFor(srv.URL))
	var failures []string
	for i := range 8 {
		failures = append(failures, fmt.Sprintf("Asset%d: failed", i))
	}
	if err := svc.NotifyRunCompleted(context.Background(), notifications.RunSummary{Failed: 8, Failures: failures}); err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}
	body := (*got)[0].body
	if strings.Contains(body, "Asset5") || !strings.Contains(body, "... and 3 more") {
		t.Fatalf("failure list not truncated: %q", body)
	}
}

func TestOnlyFailuresSuppressesCleanRuns(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK)
	cfg := configFor(srv.URL)
	cfg.Notifications.OnlyFailures = true
	svc := notifications.NewService(cfg)

	if err := svc.NotifyRunCompleted(context.Background(), notifications.RunSummary{Processed: 2}); err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}
	if len(*got) != 0 {
		t.Fatalf("clean run should not notify, got %d requests", len(*got))
	}
	if err := svc.NotifyRunAborted(context.Background(), "r3", errors.New("setup error: lock held")); err != nil {
		t.Fatalf("NotifyRunAborted: %v", err)
	}
	if len(*got) != 1 || (*got)[0].body != "Run r3 aborted: setup error: lock held" {
		t.Fatalf("unexpected abort notification: %+v", *got)
	}
}

func TestSendReportsHTTPErrors(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusForbidden)
	svc := notifications.NewService(configFor(srv.URL))
	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
