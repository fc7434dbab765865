package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cinefuse/internal/config"
)

const userAgent = "cinefuse/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyFilmQueued(ctx context.Context, title string) error
	NotifyAggregationCompleted(ctx context.Context, title, composite string, sources int) error
	NotifyNeedsReview(ctx context.Context, title, reason string) error
	NotifyQueueStarted(ctx context.Context, count int) error
	NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	NotifyDaemonStarted(ctx context.Context) error
	NotifyDaemonStopped(ctx context.Context) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned. Event
// groups disabled in config are silently skipped by the returned service.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
		events:   cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	events   config.Notifications
}

func (n *ntfyService) NotifyFilmQueued(ctx context.Context, title string) error {
	if !n.events.Queue {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Cinefuse - Film Queued",
		message: fmt.Sprintf("🎬 Queued for aggregation: %s", title),
		tags:    []string{"cinefuse", "queue", "added"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyAggregationCompleted(ctx context.Context, title, composite string, sources int) error {
	if !n.events.Completion {
		return nil
	}
	title = strings.TrimSpace(title)
	composite = strings.TrimSpace(composite)
	message := fmt.Sprintf("⭐ Aggregation complete: %s", title)
	if composite != "" {
		message = fmt.Sprintf("%s\nComposite %s/10 from %d sources", message, composite, sources)
	}
	data := payload{
		title:   "Cinefuse - Complete",
		message: message,
		tags:    []string{"cinefuse", "aggregate", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyNeedsReview(ctx context.Context, title, reason string) error {
	if !n.events.Review {
		return nil
	}
	title = strings.TrimSpace(title)
	reason = strings.TrimSpace(reason)
	message := fmt.Sprintf("Manual review required: %s", title)
	if reason != "" {
		message = fmt.Sprintf("%s\nReason: %s", message, reason)
	}
	data := payload{
		title:   "Cinefuse - Review Needed",
		message: message,
		tags:    []string{"cinefuse", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueStarted(ctx context.Context, count int) error {
	if !n.events.Queue {
		return nil
	}
	data := payload{
		title:   "Cinefuse - Queue Started",
		message: fmt.Sprintf("Started processing queue with %d items", count),
		tags:    []string{"cinefuse", "queue", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	if !n.events.Queue {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var message string
	var title string
	if failed == 0 {
		title = "Cinefuse - Queue Complete"
		message = fmt.Sprintf("Queue processing complete: %d films aggregated in %s", processed, durationText)
	} else {
		title = "Cinefuse - Queue Complete (with errors)"
		message = fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"cinefuse", "queue", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.events.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Cinefuse - Error",
		message:  builder.String(),
		tags:     []string{"cinefuse", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStarted(ctx context.Context) error {
	data := payload{
		title:    "Cinefuse - Started",
		message:  "Cinefuse daemon is running",
		tags:     []string{"cinefuse", "daemon", "started"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStopped(ctx context.Context) error {
	data := payload{
		title:    "Cinefuse - Stopped",
		message:  "Cinefuse daemon stopped",
		tags:     []string{"cinefuse", "daemon", "stopped"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Cinefuse - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"cinefuse", "test"},
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

func (noopService) NotifyFilmQueued(context.Context, string) error                        { return nil }
func (noopService) NotifyAggregationCompleted(context.Context, string, string, int) error { return nil }
func (noopService) NotifyNeedsReview(context.Context, string, string) error               { return nil }
func (noopService) NotifyQueueStarted(context.Context, int) error                         { return nil }
func (noopService) NotifyQueueCompleted(context.Context, int, int, time.Duration) error   { return nil }
func (noopService) NotifyError(context.Context, error, string) error                      { return nil }
func (noopService) NotifyDaemonStarted(context.Context) error                             { return nil }
func (noopService) NotifyDaemonStopped(context.Context) error                             { return nil }
func (noopService) TestNotification(context.Context) error                                { return nil }
