package jobs

import (
	"context"
	"time"
)

// DateLayout is the storage and wire format for assignment window dates.
const DateLayout = "2006-01-02"

// PackageTemplate is a sellable bundle of service-type quotas.
type PackageTemplate struct {
	ID    string
	Name  string
	Items map[ServiceType]int
}

// Assignment grants a package template to one client for a bounded window.
// Both StartDate and EndDate are inclusive calendar days.
type Assignment struct {
	ID         string
	ClientID   string
	TemplateID string
	StartDate  time.Time
	EndDate    time.Time
	Active     bool
}

// Covers reports whether day falls inside the assignment window.
func (a Assignment) Covers(day time.Time) bool {
	d := day.UTC().Format(DateLayout)
	return a.StartDate.UTC().Format(DateLayout) <= d && d <= a.EndDate.UTC().Format(DateLayout)
}

// UsageRecord is one consumption event against an assignment.
type UsageRecord struct {
	ID           string
	AssignmentID string
	ServiceType  ServiceType
	Quantity     int
	JobID        string
	CreatedAt    time.Time
}

// AssignmentBalance is an eligible assignment with its grant and consumption
// for one service type.
type AssignmentBalance struct {
	Assignment
	Granted  int
	Consumed int
}

// Remaining returns the units still available.
func (b AssignmentBalance) Remaining() int {
	return b.Granted - b.Consumed
}

// UsageLine is one service type row of a usage summary.
type UsageLine struct {
	ServiceType ServiceType
	Granted     int
	Consumed    int
	Remaining   int
}

// UsageSummary is the derived consumption view of one assignment.
type UsageSummary struct {
	Assignment Assignment
	Lines      []UsageLine
}

// LedgerTx is the view of the ledger tables available inside a store write
// transaction. Implementations hold the write lock for the client's
// assignments for the lifetime of the transaction.
type LedgerTx interface {
	// EligibleAssignments returns active assignments of clientID whose template
	// grants svc and whose window covers day, ordered by end date then id.
	EligibleAssignments(ctx context.Context, clientID string, svc ServiceType, day time.Time) ([]AssignmentBalance, error)
	// UsageForJob returns the existing record for (jobID, svc), or nil.
	UsageForJob(ctx context.Context, jobID string, svc ServiceType) (*UsageRecord, error)
	// InsertUsage writes rec only if the assignment's consumed sum plus
	// rec.Quantity stays within its grant, re-checked at write time. It
	// reports whether the row was written.
	InsertUsage(ctx context.Context, rec UsageRecord) (bool, error)
}

// Debiter performs an entitlement debit against a LedgerTx. Stores run it in
// the same transaction as the job write it accompanies.
type Debiter func(ctx context.Context, tx LedgerTx) error
