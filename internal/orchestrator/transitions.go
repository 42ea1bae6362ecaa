package orchestrator

import (
	"context"
	"fmt"

	"studioflow/internal/jobs"
	"studioflow/internal/notifications"
	"studioflow/internal/services"
	"studioflow/internal/workflow"
)

// AdvanceWorkflow moves a chained job to the requested target.
func (o *Orchestrator) AdvanceWorkflow(ctx context.Context, actor jobs.Actor, req AdvanceRequest) (*TransitionResult, error) {
	ctx = requestContext(ctx, actor)
	target, ok := jobs.ParseTarget(req.Target)
	if !ok {
		return nil, services.Validation("orchestrator", "advance", fmt.Sprintf("unknown target %q", req.Target))
	}
	if req.ExpectedVersion < 0 {
		return nil, services.Validation("orchestrator", "advance", "expected version cannot be negative")
	}
	job, err := o.loadJob(ctx, "advance", req.JobID)
	if err != nil {
		return nil, err
	}
	if req.ExpectedVersion > 0 && req.ExpectedVersion != job.Version {
		return nil, fmt.Errorf("job %s is at version %d, expected %d: %w", job.ID, job.Version, req.ExpectedVersion, jobs.ErrConflict)
	}

	outcome, err := o.machine.Advance(ctx, job, target, actor, req.Note)
	if err != nil {
		return nil, err
	}
	kind := notifications.KindStageAdvanced
	if outcome.Action == workflow.ActionHandover {
		kind = notifications.KindCompleted
	}
	o.notify(ctx, kind, outcome, actor, req.Note)
	return toResult(outcome), nil
}

// CompleteJob finishes a standalone job on behalf of its assignee.
func (o *Orchestrator) CompleteJob(ctx context.Context, actor jobs.Actor, jobID, note string) (*TransitionResult, error) {
	ctx = requestContext(ctx, actor)
	job, err := o.loadJob(ctx, "complete", jobID)
	if err != nil {
		return nil, err
	}
	outcome, err := o.machine.Complete(ctx, job, actor, note)
	if err != nil {
		return nil, err
	}
	o.notify(ctx, notifications.KindCompleted, outcome, actor, note)
	return toResult(outcome), nil
}

// SetJobStatus overrides a job's lifecycle status.
func (o *Orchestrator) SetJobStatus(ctx context.Context, actor jobs.Actor, jobID, status string) (*TransitionResult, error) {
	ctx = requestContext(ctx, actor)
	parsed, ok := jobs.ParseStatus(status)
	if !ok {
		return nil, services.Validation("orchestrator", "set status", fmt.Sprintf("unknown status %q", status))
	}
	job, err := o.loadJob(ctx, "set status", jobID)
	if err != nil {
		return nil, err
	}
	outcome, err := o.machine.SetStatus(ctx, job, parsed, actor)
	if err != nil {
		return nil, err
	}
	if outcome.Changed {
		o.notify(ctx, notifications.KindStatusChanged, outcome, actor, "")
	}
	return toResult(outcome), nil
}

// DeleteJob removes a job.
func (o *Orchestrator) DeleteJob(ctx context.Context, actor jobs.Actor, jobID string) (*TransitionResult, error) {
	ctx = requestContext(ctx, actor)
	job, err := o.loadJob(ctx, "delete", jobID)
	if err != nil {
		return nil, err
	}
	outcome, err := o.machine.Delete(ctx, job, actor)
	if err != nil {
		return nil, err
	}
	o.notify(ctx, notifications.KindDeleted, outcome, actor, "")
	return toResult(outcome), nil
}

func (o *Orchestrator) notify(ctx context.Context, kind notifications.Kind, outcome *workflow.Outcome, actor jobs.Actor, note string) {
	o.fanout.Notify(ctx, notifications.Event{
		Kind:           kind,
		Before:         outcome.Before,
		After:          outcome.After,
		Actor:          actor,
		Note:           note,
		UnassignedRole: unassignedRole(outcome.Warnings),
	})
}

func toResult(outcome *workflow.Outcome) *TransitionResult {
	return &TransitionResult{
		Job:      outcome.After,
		Changed:  outcome.Changed,
		Warnings: outcome.Warnings,
		Receipt:  outcome.Receipt,
	}
}
