package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioflow/internal/config"
	"studioflow/internal/jobs"
	"studioflow/internal/notifications"
)

type capturedRequest struct {
	Path     string
	Title    string
	Tags     string
	Priority string
	Agent    string
	Body     string
}

type ntfyRecorder struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
}

func (r *ntfyRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.requests = append(r.requests, capturedRequest{
		Path:     req.URL.Path,
		Title:    req.Header.Get("Title"),
		Tags:     req.Header.Get("Tags"),
		Priority: req.Header.Get("Priority"),
		Agent:    req.Header.Get("User-Agent"),
		Body:     string(body),
	})
	status := r.status
	r.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte("nope"))
}

func (r *ntfyRecorder) snapshot() []capturedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]capturedRequest, len(r.requests))
	copy(out, r.requests)
	return out
}

func newNtfy(t *testing.T) (*ntfyRecorder, *config.Config) {
	t.Helper()
	rec := &ntfyRecorder{}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	cfg := config.Default()
	cfg.Notifications.NtfyURL = srv.URL + "/"
	return rec, &cfg
}

func TestNewPublisherIsNoopWithoutURL(t *testing.T) {
	cfg := config.Default()
	pub := notifications.NewPublisher(&cfg)
	require.NoError(t, pub.Publish(context.Background(), "anything", notifications.Message{Body: "x"}))
	require.NoError(t, notifications.NewPublisher(nil).Publish(context.Background(), "t", notifications.Message{}))
}

func TestNtfyPublisherSendsHeaders(t *testing.T) {
	rec, cfg := newNtfy(t)
	pub := notifications.NewPublisher(cfg)

	err := pub.Publish(context.Background(), notifications.WorkerTopic("studioflow", "w1"), notifications.Message{
		Title:    "Assigned: Shoot",
		Body:     "You have a job",
		Tags:     []string{"studioflow", "assigned"},
		Priority: "high",
	})
	require.NoError(t, err)

	got := rec.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "/studioflow-worker-w1", got[0].Path)
	assert.Equal(t, "Assigned: Shoot", got[0].Title)
	assert.Equal(t, "studioflow,assigned", got[0].Tags)
	assert.Equal(t, "high", got[0].Priority)
	assert.Equal(t, "You have a job", got[0].Body)
	assert.Contains(t, got[0].Agent, "studioflow")
}

func TestNtfyPublisherReportsHTTPErrors(t *testing.T) {
	rec, cfg := newNtfy(t)
	rec.status = http.StatusTooManyRequests
	err := notifications.NewPublisher(cfg).Publish(context.Background(), "topic", notifications.Message{Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "acme-worker-42", notifications.WorkerTopic("acme", "42"))
	assert.Equal(t, "acme-role-finishing_specialist", notifications.RoleTopic("acme", jobs.RoleFinishingSpecialist))
}
