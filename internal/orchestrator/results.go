package orchestrator

import (
	"studioflow/internal/jobs"
	"studioflow/internal/ledger"
	"studioflow/internal/workflow"
)

// JobSpec describes a standalone job to create.
type JobSpec struct {
	Title                string
	Type                 string
	ClientID             string
	AssigneeID           string
	DependsOn            string
	PriceCents           int64
	ExtraCostCents       int64
	ExtraCostReason      string
	CountsAgainstPackage bool
}

// ChainStep describes one job of a workflow chain.
type ChainStep struct {
	Title                string
	Stage                string
	AssigneeID           string
	PriceCents           int64
	ExtraCostCents       int64
	ExtraCostReason      string
	CountsAgainstPackage bool
}

// AdvanceRequest asks to move a chained job to Target. ExpectedVersion, when
// positive, must equal the stored version.
type AdvanceRequest struct {
	JobID           string
	Target          string
	Note            string
	ExpectedVersion int
}

// CreateResult is returned by CreateJob.
type CreateResult struct {
	Job      *jobs.Job
	Warnings []workflow.Warning
	Receipt  *ledger.Receipt
}

// ChainResult is returned by CreateWorkflowChain. Jobs are in workflow order.
type ChainResult struct {
	ChainID  string
	Jobs     []*jobs.Job
	Warnings []workflow.Warning
}

// TransitionResult is returned by every state-changing call on an existing job.
// Job is nil after a deletion.
type TransitionResult struct {
	Job      *jobs.Job
	Changed  bool
	Warnings []workflow.Warning
	Receipt  *ledger.Receipt
}

// ClientPackage is one package assignment with the template it grants.
// Template is nil when the template row has been removed.
type ClientPackage struct {
	Assignment jobs.Assignment
	Template   *jobs.PackageTemplate
}
