package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"studioflow/internal/jobs"
	"studioflow/internal/logging"
	"studioflow/internal/orchestrator"
)

// ActorResolver maps a token subject to an active worker.
type ActorResolver interface {
	ResolveActor(ctx context.Context, id string) (jobs.Actor, error)
}

// Service is the orchestrator surface the HTTP layer exposes.
type Service interface {
	ActorResolver
	CreateJob(ctx context.Context, actor jobs.Actor, spec orchestrator.JobSpec) (*orchestrator.CreateResult, error)
	CreateWorkflowChain(ctx context.Context, actor jobs.Actor, clientID string, steps []orchestrator.ChainStep) (*orchestrator.ChainResult, error)
	AdvanceWorkflow(ctx context.Context, actor jobs.Actor, req orchestrator.AdvanceRequest) (*orchestrator.TransitionResult, error)
	CompleteJob(ctx context.Context, actor jobs.Actor, jobID, note string) (*orchestrator.TransitionResult, error)
	SetJobStatus(ctx context.Context, actor jobs.Actor, jobID, status string) (*orchestrator.TransitionResult, error)
	DeleteJob(ctx context.Context, actor jobs.Actor, jobID string) (*orchestrator.TransitionResult, error)
	GetJob(ctx context.Context, actor jobs.Actor, id string) (*jobs.Job, error)
	ListJobs(ctx context.Context, actor jobs.Actor, filter jobs.JobFilter) ([]*jobs.Job, error)
	Chain(ctx context.Context, actor jobs.Actor, jobID string) ([]*jobs.Job, error)
	UsageSummary(ctx context.Context, actor jobs.Actor, assignmentID string) (*jobs.UsageSummary, error)
	ClientPackages(ctx context.Context, actor jobs.Actor, clientID string) ([]orchestrator.ClientPackage, error)
	Notifications(ctx context.Context, actor jobs.Actor, recipientID string, limit int) ([]*jobs.Notification, error)
}

// RouterOption configures NewRouter.
type RouterOption func(*handlers)

// WithClock overrides the time source used for token expiry checks.
func WithClock(now func() time.Time) RouterOption {
	return func(h *handlers) {
		if now != nil {
			h.now = now
		}
	}
}

// NewRouter builds the /v1 HTTP surface over svc.
func NewRouter(svc Service, tokenSecret string, logger *slog.Logger, opts ...RouterOption) http.Handler {
	h := &handlers{
		svc:    svc,
		logger: logging.NewComponentLogger(logger, "api"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(h.logger), middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", h.health)

		r.Group(func(r chi.Router) {
			r.Use(identity(svc, tokenSecret, h.now, h.logger))

			r.Post("/jobs", h.createJob)
			r.Get("/jobs", h.listJobs)
			r.Get("/jobs/{id}", h.getJob)
			r.Delete("/jobs/{id}", h.deleteJob)
			r.Get("/jobs/{id}/chain", h.chain)
			r.Post("/jobs/{id}/advance", h.advance)
			r.Post("/jobs/{id}/complete", h.complete)
			r.Post("/jobs/{id}/status", h.setStatus)

			r.Post("/chains", h.createChain)

			r.Get("/assignments/{id}/usage", h.usage)
			r.Get("/clients/{id}/packages", h.clientPackages)
			r.Get("/notifications", h.notifications)
		})
	})
	return r
}
