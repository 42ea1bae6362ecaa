package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studioflow/internal/config"
	"studioflow/internal/jobs"
)

const userAgent = "studioflow/0.1.0"

// Message is one push payload.
type Message struct {
	Title    string
	Body     string
	Tags     []string
	Priority string
}

// Publisher pushes a message onto a topic of the real-time channel.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) error
}

// NewPublisher builds an ntfy publisher when notifications.ntfy_url is set
// and a no-op publisher otherwise.
func NewPublisher(cfg *config.Config) Publisher {
	if cfg == nil {
		return noopPublisher{}
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.Notifications.NtfyURL), "/")
	if base == "" {
		return noopPublisher{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyPublisher{
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
	}
}

// WorkerTopic is the per-worker topic name.
func WorkerTopic(prefix, workerID string) string {
	return prefix + "-worker-" + workerID
}

// RoleTopic is the per-role topic name.
func RoleTopic(prefix string, role jobs.Role) string {
	return prefix + "-role-" + string(role)
}

type ntfyPublisher struct {
	baseURL string
	client  *http.Client
}

func (n *ntfyPublisher) Publish(ctx context.Context, topic string, msg Message) error {
	if n == nil || n.client == nil {
		return nil
	}
	endpoint := n.baseURL + "/" + topic

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}
	if msg.Priority != "" && msg.Priority != "default" {
		req.Header.Set("Priority", msg.Priority)
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

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, Message) error { return nil }
