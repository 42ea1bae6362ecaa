package workflow

import (
	"context"
	"log/slog"
	"time"

	"studioflow/internal/jobs"
	"studioflow/internal/ledger"
	"studioflow/internal/logging"
)

// Store is the persistence the state machine commits through.
type Store interface {
	GetJob(ctx context.Context, id string) (*jobs.Job, error)
	CommitTransition(ctx context.Context, next *jobs.Job, pre jobs.Precondition, debit jobs.Debiter) error
	DeleteJob(ctx context.Context, id string, expectedVersion int) error
}

// Resolver finds the worker a stage is handed to.
type Resolver interface {
	Resolve(ctx context.Context, role jobs.Role) (string, bool, error)
}

// Debiters builds entitlement debits that run inside a commit.
type Debiters interface {
	Debiter(req ledger.Request, receipt *ledger.Receipt) jobs.Debiter
}

// Action names the transition a Machine applied.
type Action string

const (
	ActionAdvance   Action = "advance"
	ActionHandover  Action = "handover"
	ActionComplete  Action = "complete"
	ActionSetStatus Action = "set_status"
	ActionDelete    Action = "delete"
)

// WarningAssignmentUnavailable is reported when a stage had no eligible worker.
const WarningAssignmentUnavailable = "assignment_unavailable"

// Warning is an advisory returned alongside a successful transition.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Role    string `json:"role,omitempty"`
}

// Outcome describes a committed transition.
type Outcome struct {
	Action Action
	Before *jobs.Job
	// After is nil for deletions.
	After *jobs.Job
	// Changed is false when the request matched the stored state and nothing
	// was written.
	Changed  bool
	Warnings []Warning
	// Receipt is set when the transition consumed entitlement.
	Receipt *ledger.Receipt
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the time source used for history entries.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithUnitsPerStage sets how many units a package job consumes on entering a stage.
func WithUnitsPerStage(units int) Option {
	return func(m *Machine) {
		if units > 0 {
			m.unitsPerStage = units
		}
	}
}

// Machine validates and commits job transitions.
type Machine struct {
	store         Store
	resolver      Resolver
	debiters      Debiters
	logger        *slog.Logger
	now           func() time.Time
	unitsPerStage int
}

// NewMachine constructs a state machine over its collaborators.
func NewMachine(store Store, resolver Resolver, debiters Debiters, logger *slog.Logger, opts ...Option) *Machine {
	m := &Machine{
		store:         store,
		resolver:      resolver,
		debiters:      debiters,
		logger:        logging.NewComponentLogger(logger, "workflow"),
		now:           time.Now,
		unitsPerStage: 1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) timestamp() time.Time {
	return m.now().UTC()
}
