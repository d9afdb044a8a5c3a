package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"incomecast/internal/backend"
	"incomecast/internal/config"
	"incomecast/internal/retry"
)

const userAgent = "incomecast/0.1.0"

// Service defines the notification surface used after a prediction session.
type Service interface {
	NotifyPredictionCompleted(ctx context.Context, result backend.Prediction, elapsed time.Duration, attempts int) error
	NotifyPredictionFailed(ctx context.Context, kind retry.Kind, message string, attempts int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
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
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		completed: cfg.Notifications.Completed,
		failed:    cfg.Notifications.Failed,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	completed bool
	failed    bool
}

func (n *ntfyService) NotifyPredictionCompleted(ctx context.Context, result backend.Prediction, elapsed time.Duration, attempts int) error {
	if !n.completed {
		return nil
	}
	message := fmt.Sprintf("Predicted income %s (%.0f%% confidence)", result.Label, result.Confidence*100)
	if details := attemptSummary(elapsed, attempts); details != "" {
		message += "\n" + details
	}
	return n.send(ctx, payload{
		title:   "incomecast - Prediction Ready",
		message: message,
		tags:    []string{"incomecast", "prediction", "completed"},
	})
}

func (n *ntfyService) NotifyPredictionFailed(ctx context.Context, kind retry.Kind, message string, attempts int) error {
	if !n.failed {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Prediction failed")
	if kind != retry.KindOther {
		builder.WriteString(" (")
		builder.WriteString(kind.String())
		builder.WriteString(")")
	}
	builder.WriteString(": ")
	if message = strings.TrimSpace(message); message != "" {
		builder.WriteString(message)
	} else {
		builder.WriteString("unknown error")
	}
	if attempts > 1 {
		fmt.Fprintf(&builder, "\nGave up after %d attempts", attempts)
	}
	return n.send(ctx, payload{
		title:    "incomecast - Prediction Failed",
		message:  builder.String(),
		tags:     []string{"incomecast", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "incomecast - Test",
		message:  "Notification system test",
		tags:     []string{"incomecast", "test"},
		priority: "low",
	})
}

func attemptSummary(elapsed time.Duration, attempts int) string {
	elapsed = max(elapsed.Round(100*time.Millisecond), 0)
	switch {
	case attempts > 1:
		return fmt.Sprintf("Took %s over %d attempts", elapsed, attempts)
	case elapsed > 0:
		return fmt.Sprintf("Took %s", elapsed)
	default:
		return ""
	}
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

func (noopService) NotifyPredictionCompleted(context.Context, backend.Prediction, time.Duration, int) error {
	return nil
}
func (noopService) NotifyPredictionFailed(context.Context, retry.Kind, string, int) error { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
