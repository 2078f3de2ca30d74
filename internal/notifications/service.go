package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"scenekeeper/internal/config"
)

const userAgent = "scenekeeper/0.1"

// Event names a notification trigger.
type Event string

const (
	EventJobCompleted Event = "job_completed"
	EventJobFailed    Event = "job_failed"
	EventTest         Event = "test"
)

// Payload carries event fields. Known keys: job, summary, error, dry_run,
// duration, bytes.
type Payload map[string]any

// Service publishes run events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		runSummary: cfg.Notifications.RunSummary,
		errors:     cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	runSummary bool
	errors     bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	job := payload.text("job")
	if job == "" {
		job = "run"
	}
	switch event {
	case EventJobCompleted:
		if !n.runSummary {
			return message{}, false
		}
		title := "scenekeeper - " + job
		if payload.flag("dry_run") {
			title += " (dry run)"
		}
		body := payload.text("summary")
		if body == "" {
			body = "completed"
		}
		if bytes, ok := payload["bytes"].(int64); ok && bytes > 0 {
			body += "\nReclaimable: " + humanize.IBytes(uint64(bytes))
		}
		if d, ok := payload["duration"].(time.Duration); ok && d > 0 {
			body += "\nDuration: " + d.Round(time.Second).String()
		}
		return message{title: title, body: body, tags: []string{"scenekeeper", job, "completed"}}, true
	case EventJobFailed:
		if !n.errors {
			return message{}, false
		}
		errText := payload.text("error")
		if errText == "" {
			errText = "unknown"
		}
		return message{
			title:    "scenekeeper - " + job + " failed",
			body:     fmt.Sprintf("Error with %s: %s", job, errText),
			tags:     []string{"scenekeeper", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "scenekeeper - test",
			body:     "Notification system test",
			tags:     []string{"scenekeeper", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

func (p Payload) flag(key string) bool {
	v, _ := p[key].(bool)
	return v
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
