// Package ledger debits client package entitlements.
//
// A debit walks the client's eligible assignments in end-date order and writes
// one usage record against the first whose remaining balance covers the
// request. The write is a conditional insert that re-derives the consumed sum
// inside the store's write transaction, so two debits racing for the last
// unit cannot both succeed.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"studioflow/internal/jobs"
	"studioflow/internal/logging"
	"studioflow/internal/services"
)

var (
	// ErrInsufficientEntitlement reports that no eligible assignment has enough
	// remaining units.
	ErrInsufficientEntitlement = fmt.Errorf("insufficient entitlement: %w", services.ErrEntitlement)
	// ErrNoActiveAssignment reports that the client holds no active, in-window
	// assignment granting the service type.
	ErrNoActiveAssignment = fmt.Errorf("no active package assignment: %w", services.ErrEntitlement)
)

// Store is the persistence the ledger needs.
type Store interface {
	Debit(ctx context.Context, debit jobs.Debiter) error
	UsageSummary(ctx context.Context, assignmentID string) (*jobs.UsageSummary, error)
}

// Request asks for Quantity units of ServiceType on behalf of JobID.
type Request struct {
	ClientID    string
	ServiceType jobs.ServiceType
	Quantity    int
	JobID       string
}

// Receipt describes the usage record a debit produced or found.
type Receipt struct {
	Record jobs.UsageRecord
	// Existing is true when the job had already been debited for the service
	// type and no new record was written.
	Existing bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the clock used to decide which assignment windows are open.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// Ledger performs entitlement debits and usage queries.
type Ledger struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// New constructs a Ledger over store.
func New(store Store, logger *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "ledger"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Validate rejects malformed requests before any store access.
func Validate(req Request) error {
	if strings.TrimSpace(req.ClientID) == "" {
		return services.Validation("ledger", "debit", "client id is required")
	}
	if strings.TrimSpace(req.JobID) == "" {
		return services.Validation("ledger", "debit", "originating job id is required")
	}
	if _, ok := jobs.ParseServiceType(string(req.ServiceType)); !ok {
		return services.Validation("ledger", "debit", fmt.Sprintf("unknown service type %q", req.ServiceType))
	}
	if req.Quantity <= 0 {
		return services.Validation("ledger", "debit", "quantity must be positive")
	}
	return nil
}

// Debiter returns the debit algorithm as a closure a store can run inside a
// larger transaction. When receipt is non-nil it is filled on success.
func (l *Ledger) Debiter(req Request, receipt *Receipt) jobs.Debiter {
	return func(ctx context.Context, tx jobs.LedgerTx) error {
		existing, err := tx.UsageForJob(ctx, req.JobID, req.ServiceType)
		if err != nil {
			return err
		}
		if existing != nil {
			if receipt != nil {
				*receipt = Receipt{Record: *existing, Existing: true}
			}
			return nil
		}

		candidates, err := tx.EligibleAssignments(ctx, req.ClientID, req.ServiceType, l.now())
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return fmt.Errorf("%w: client %s has no open grant for %s", ErrNoActiveAssignment, req.ClientID, req.ServiceType)
		}

		for _, candidate := range candidates {
			if candidate.Remaining() < req.Quantity {
				continue
			}
			rec := jobs.UsageRecord{
				ID:           uuid.NewString(),
				AssignmentID: candidate.ID,
				ServiceType:  req.ServiceType,
				Quantity:     req.Quantity,
				JobID:        req.JobID,
			}
			ok, err := tx.InsertUsage(ctx, rec)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if receipt != nil {
				*receipt = Receipt{Record: rec}
			}
			return nil
		}
		return fmt.Errorf("%w: client %s needs %d %s", ErrInsufficientEntitlement, req.ClientID, req.Quantity, req.ServiceType)
	}
}

// Debit validates req and runs it in its own store transaction.
func (l *Ledger) Debit(ctx context.Context, req Request) (Receipt, error) {
	if err := Validate(req); err != nil {
		return Receipt{}, err
	}
	var receipt Receipt
	if err := l.store.Debit(ctx, l.Debiter(req, &receipt)); err != nil {
		return Receipt{}, err
	}
	if !receipt.Existing {
		l.logger.Info("entitlement debited",
			logging.String(logging.FieldJobID, req.JobID),
			logging.String("assignment_id", receipt.Record.AssignmentID),
			logging.String("service_type", string(req.ServiceType)),
			logging.Int("quantity", req.Quantity),
		)
	}
	return receipt, nil
}

// UsageSummary returns the derived balance of one assignment.
func (l *Ledger) UsageSummary(ctx context.Context, assignmentID string) (*jobs.UsageSummary, error) {
	if strings.TrimSpace(assignmentID) == "" {
		return nil, services.Validation("ledger", "usage summary", "assignment id is required")
	}
	summary, err := l.store.UsageSummary(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, services.Wrap(services.ErrNotFound, "ledger", "usage summary", "assignment "+assignmentID, nil)
	}
	return summary, nil
}
