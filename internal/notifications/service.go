package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"photolog/internal/config"
)

const userAgent = "photolog/0.1.0"

// Event identifies a notification template.
type Event string

const (
	EventJobQuarantined Event = "job_quarantined"
	EventUploadComplete Event = "upload_complete"
	EventQueueDrained   Event = "queue_drained"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries template values. Missing keys render as empty strings.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
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
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		quarantine: cfg.Notifications.Quarantine,
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
	quarantine bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventJobQuarantined:
		if !n.quarantine {
			return message{}, false
		}
		label := payload.text("kind")
		if name := payload.text("filename"); name != "" {
			label = fmt.Sprintf("%s %s", label, name)
		}
		body := fmt.Sprintf("🚫 Quarantined %s at %s after %d attempt(s)", strings.TrimSpace(label), payload.text("step"), payload.number("attempt"))
		if reason := payload.text("error"); reason != "" {
			body += "\n" + reason
		}
		return message{
			title:    "Photolog - Job Quarantined",
			body:     body,
			tags:     []string{"photolog", "queue", "quarantined"},
			priority: "high",
		}, true
	case EventUploadComplete:
		return message{
			title: "Photolog - Uploaded",
			body:  fmt.Sprintf("📷 Published %s (%s)", payload.text("filename"), payload.text("kind")),
			tags:  []string{"photolog", "upload", "completed"},
		}, true
	case EventQueueDrained:
		processed := payload.number("processed")
		quarantined := payload.number("quarantined")
		duration := payload.text("duration")
		if quarantined == 0 {
			return message{
				title: "Photolog - Queue Drained",
				body:  fmt.Sprintf("Queue drained: %d jobs finished in %s", processed, duration),
				tags:  []string{"photolog", "queue", "completed"},
			}, true
		}
		return message{
			title: "Photolog - Queue Drained (with errors)",
			body:  fmt.Sprintf("Queue drained: %d finished, %d quarantined in %s", processed, quarantined, duration),
			tags:  []string{"photolog", "queue", "completed"},
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := payload.text("context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if reason := payload.text("error"); reason != "" {
			b.WriteString(reason)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "Photolog - Error",
			body:     b.String(),
			tags:     []string{"photolog", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Photolog - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"photolog", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

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
	if msg.priority != "" && msg.priority != "default" {
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

func (p Payload) text(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p Payload) number(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
