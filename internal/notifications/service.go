// Package notifications publishes job lifecycle events over ntfy.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/config"
)

const userAgent = "Reelsmith/0.1.0"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyJobStarted(ctx context.Context, jobID string) error
	NotifyJobCompleted(ctx context.Context, jobID, outputPath string) error
	NotifyJobFailed(ctx context.Context, jobID, reason string) error
	NotifyQueueDrained(ctx context.Context, processed int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// Without a topic a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:       topic,
		client:         &http.Client{Timeout: timeout},
		notifyComplete: cfg.Notifications.JobComplete,
		notifyFailed:   cfg.Notifications.JobFailed,
		notifyQueue:    cfg.Notifications.Queue,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint       string
	client         *http.Client
	notifyComplete bool
	notifyFailed   bool
	notifyQueue    bool
}

func (n *ntfyService) NotifyJobStarted(ctx context.Context, jobID string) error {
	if !n.notifyQueue {
		return nil
	}
	return n.send(ctx, payload{
		title:   "Reelsmith - Job Started",
		message: fmt.Sprintf("Processing started: %s", shortID(jobID)),
		tags:    []string{"reelsmith", "job", "started"},
	})
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, jobID, outputPath string) error {
	if !n.notifyComplete {
		return nil
	}
	message := fmt.Sprintf("Video ready: %s", shortID(jobID))
	if outputPath = strings.TrimSpace(outputPath); outputPath != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, outputPath)
	}
	return n.send(ctx, payload{
		title:    "Reelsmith - Complete",
		message:  message,
		tags:     []string{"reelsmith", "job", "completed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobID, reason string) error {
	if !n.notifyFailed {
		return nil
	}
	message := fmt.Sprintf("Job failed: %s", shortID(jobID))
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("%s\nReason: %s", message, reason)
	}
	return n.send(ctx, payload{
		title:    "Reelsmith - Failed",
		message:  message,
		tags:     []string{"reelsmith", "job", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyQueueDrained(ctx context.Context, processed int) error {
	if !n.notifyQueue {
		return nil
	}
	noun := "jobs"
	if processed == 1 {
		noun = "job"
	}
	return n.send(ctx, payload{
		title:   "Reelsmith - Queue Drained",
		message: fmt.Sprintf("All queued work finished (%d %s)", processed, noun),
		tags:    []string{"reelsmith", "queue"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Reelsmith - Test",
		message:  "Notification system test",
		tags:     []string{"reelsmith", "test"},
		priority: "low",
	})
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

func shortID(jobID string) string {
	if len(jobID) > 8 {
		return jobID[:8]
	}
	return jobID
}

type noopService struct{}

func (noopService) NotifyJobStarted(context.Context, string) error           { return nil }
func (noopService) NotifyJobCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error    { return nil }
func (noopService) NotifyQueueDrained(context.Context, int) error            { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
