package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"studioflow/internal/assignment"
	"studioflow/internal/config"
	"studioflow/internal/jobs"
	"studioflow/internal/ledger"
	"studioflow/internal/logging"
	"studioflow/internal/notifications"
	"studioflow/internal/services"
	"studioflow/internal/workflow"
)

// Store is everything the orchestrator reads and writes. jobs.Store and
// pgstore.Store both implement it.
type Store interface {
	GetJob(ctx context.Context, id string) (*jobs.Job, error)
	ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.Job, error)
	ChainJobs(ctx context.Context, chainID string) ([]*jobs.Job, error)
	InsertJobs(ctx context.Context, batch []*jobs.Job, debit jobs.Debiter) error
	CommitTransition(ctx context.Context, next *jobs.Job, pre jobs.Precondition, debit jobs.Debiter) error
	DeleteJob(ctx context.Context, id string, expectedVersion int) error

	GetWorker(ctx context.Context, id string) (*jobs.Worker, error)
	ListWorkers(ctx context.Context, filter jobs.WorkerFilter) ([]*jobs.Worker, error)

	Debit(ctx context.Context, debit jobs.Debiter) error
	GetAssignment(ctx context.Context, id string) (*jobs.Assignment, error)
	ListAssignments(ctx context.Context, clientID string) ([]*jobs.Assignment, error)
	GetPackageTemplate(ctx context.Context, id string) (*jobs.PackageTemplate, error)
	UsageSummary(ctx context.Context, assignmentID string) (*jobs.UsageSummary, error)

	InsertNotification(ctx context.Context, n *jobs.Notification) error
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]*jobs.Notification, error)
}

// Option configures an Orchestrator.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock fixes the time source for history entries and assignment windows.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Orchestrator is the single entry point for job operations. Every call takes
// the acting worker explicitly.
type Orchestrator struct {
	store    Store
	resolver *assignment.Resolver
	ledger   *ledger.Ledger
	machine  *workflow.Machine
	fanout   *notifications.Fanout
	logger   *slog.Logger
	now      func() time.Time
}

// New wires the workflow components over store.
func New(cfg *config.Config, store Store, publisher notifications.Publisher, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	units := 1
	prefix := ""
	if cfg != nil {
		units = cfg.Ledger.UnitsPerStage
		prefix = cfg.Notifications.TopicPrefix
	}

	resolver := assignment.NewResolver(store)
	l := ledger.New(store, logger, ledger.WithClock(o.now))
	return &Orchestrator{
		store:    store,
		resolver: resolver,
		ledger:   l,
		machine:  workflow.NewMachine(store, resolver, l, logger, workflow.WithClock(o.now), workflow.WithUnitsPerStage(units)),
		fanout:   notifications.NewFanout(store, publisher, prefix, logger),
		logger:   logging.NewComponentLogger(logger, "orchestrator"),
		now:      o.now,
	}
}

// ResolveActor loads the worker behind id. Unknown and inactive workers are
// refused.
func (o *Orchestrator) ResolveActor(ctx context.Context, id string) (jobs.Actor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return jobs.Actor{}, services.Unauthorized("orchestrator", "resolve actor", "actor is required")
	}
	w, err := o.store.GetWorker(ctx, id)
	if err != nil {
		return jobs.Actor{}, err
	}
	if w == nil || !w.Active {
		return jobs.Actor{}, services.Unauthorized("orchestrator", "resolve actor", "unknown or inactive worker "+id)
	}
	return jobs.Actor{ID: w.ID, Role: w.Role}, nil
}

func (o *Orchestrator) loadJob(ctx context.Context, operation, id string) (*jobs.Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Validation("orchestrator", operation, "job id is required")
	}
	job, err := o.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "orchestrator", operation, "job "+id, nil)
	}
	return job, nil
}

func requestContext(ctx context.Context, actor jobs.Actor) context.Context {
	return services.WithActorID(ctx, actor.ID)
}

func requireAdministrative(actor jobs.Actor, operation string) error {
	if actor.ID == "" || !actor.Role.Administrative() {
		return services.Unauthorized("orchestrator", operation, "requires admin or coordinator role")
	}
	return nil
}
