package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"incomecast/internal/backend"
	"incomecast/internal/config"
	"incomecast/internal/notifications"
	"incomecast/internal/retry"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
	calls    int
}

func newCaptureServer(t *testing.T, c *captured) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		c.calls++
		c.title = r.Header.Get("Title")
		c.tags = r.Header.Get("Tags")
		c.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		c.body = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyPredictionFailed(context.Background(), retry.KindConnection, "down", 3); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("nil config should yield noop, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	result := backend.Prediction{Label: backend.LabelAbove, Confidence: 0.734}
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "completed after retries",
			send: func(s notifications.Service) error {
				return s.NotifyPredictionCompleted(context.Background(), result, 41*time.Second+260*time.Millisecond, 3)
			},
			expectTitle:   "incomecast - Prediction Ready",
			expectMessage: "Predicted income >50K (73% confidence)\nTook 41.3s over 3 attempts",
			expectTags:    "incomecast,prediction,completed",
		},
		{
			name: "completed first try",
			send: func(s notifications.Service) error {
				return s.NotifyPredictionCompleted(context.Background(), result, 2*time.Second, 1)
			},
			expectTitle:   "incomecast - Prediction Ready",
			expectMessage: "Predicted income >50K (73% confidence)\nTook 2s",
			expectTags:    "incomecast,prediction,completed",
		},
		{
			name: "failed",
			send: func(s notifications.Service) error {
				return s.NotifyPredictionFailed(context.Background(), retry.KindConnection, "Server is starting up. Please try again in a minute.", 3)
			},
			expectTitle:    "incomecast - Prediction Failed",
			expectMessage:  "Prediction failed (connection): Server is starting up. Please try again in a minute.\nGave up after 3 attempts",
			expectTags:     "incomecast,error,alert",
			expectPriority: "high",
		},
		{
			name: "test",
			send: func(s notifications.Service) error {
				return s.TestNotification(context.Background())
			},
			expectTitle:    "incomecast - Test",
			expectMessage:  "Notification system test",
			expectTags:     "incomecast,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var c captured
			server := newCaptureServer(t, &c)

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			if err := tc.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if c.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, c.title)
			}
			if c.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, c.body)
			}
			if c.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, c.tags)
			}
			if c.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, c.priority)
			}
		})
	}
}

func TestNtfyServiceHonoursToggles(t *testing.T) {
	var c captured
	server := newCaptureServer(t, &c)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Completed = false
	cfg.Notifications.Failed = false

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyPredictionCompleted(context.Background(), backend.Prediction{Label: backend.LabelBelow}, time.Second, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.NotifyPredictionFailed(context.Background(), retry.KindOther, "bad", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.calls != 0 {
		t.Fatalf("expected suppressed notifications, got %d calls", c.calls)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic not allowed", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
