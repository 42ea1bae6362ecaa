package workflow

import (
	"context"
	"fmt"
	"strings"

	"studioflow/internal/jobs"
	"studioflow/internal/ledger"
	"studioflow/internal/logging"
	"studioflow/internal/services"
)

// Advance moves a chained job to target. Handover completes the job in its
// current stage; any other target enters that stage and reassigns it.
func (m *Machine) Advance(ctx context.Context, job *jobs.Job, target jobs.Target, actor jobs.Actor, note string) (*Outcome, error) {
	if job == nil {
		return nil, services.Validation("workflow", "advance", "job is required")
	}
	if err := authorizeWorker(job, actor, "advance"); err != nil {
		return nil, err
	}
	if !job.Chained() {
		return nil, services.Validation("workflow", "advance", "job is not part of a workflow chain")
	}
	if job.Status.Finished() {
		return nil, services.Validation("workflow", "advance", fmt.Sprintf("job is already %s", job.Status))
	}
	if !jobs.CanAdvance(job.Stage, target) {
		return nil, services.Validation("workflow", "advance",
			fmt.Sprintf("cannot advance from %s to %q; legal targets: %s", job.Stage, target, joinTargets(jobs.LegalTargets(job.Stage))))
	}
	if err := m.checkPredecessor(ctx, job, "advance"); err != nil {
		return nil, err
	}

	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, m.logger)

	next := job.Clone()
	outcome := &Outcome{Action: ActionAdvance, Before: job, Changed: true}
	var debit jobs.Debiter

	if target == jobs.TargetHandover {
		outcome.Action = ActionHandover
		next.Status = jobs.StatusCompleted
	} else {
		stage := target.Stage()
		next.Status = jobs.StatusInProgress
		next.Stage = stage

		role := stage.Role()
		assignee, ok, err := m.resolver.Resolve(ctx, role)
		if err != nil {
			return nil, err
		}
		if ok {
			next.AssigneeID = assignee
		} else {
			outcome.Warnings = append(outcome.Warnings, Warning{
				Code:    WarningAssignmentUnavailable,
				Message: fmt.Sprintf("no active %s available; job left with its current assignee", role),
				Role:    string(role),
			})
			logging.WarnWithContext(logger, "no eligible worker for stage", "assignment_unavailable",
				logging.String(logging.FieldStage, string(stage)),
				logging.String("role", string(role)),
				logging.String(logging.FieldErrorHint, "activate or add a worker with this role"),
				logging.String(logging.FieldImpact, "job proceeds without a new assignee"),
			)
		}

		if job.CountsAgainstPackage {
			req := ledger.Request{
				ClientID:    job.ClientID,
				ServiceType: stage.ServiceType(),
				Quantity:    m.unitsPerStage,
				JobID:       job.ID,
			}
			if err := ledger.Validate(req); err != nil {
				return nil, err
			}
			outcome.Receipt = &ledger.Receipt{}
			debit = m.debiters.Debiter(req, outcome.Receipt)
		}
	}

	next.History = job.WithHistory(jobs.HistoryEntry{
		FromStage:  job.Stage,
		ToStage:    next.Stage,
		FromStatus: job.Status,
		ToStatus:   next.Status,
		At:         m.timestamp(),
		ActorID:    actor.ID,
		Note:       strings.TrimSpace(note),
	})

	if err := m.store.CommitTransition(ctx, next, job.GatedPrecondition(), debit); err != nil {
		return nil, err
	}
	outcome.After = next

	logger.Info("job advanced",
		logging.String(logging.FieldActorID, actor.ID),
		logging.String("from_stage", string(job.Stage)),
		logging.String("target", string(target)),
		logging.String("status", string(next.Status)),
		logging.String("assignee_id", next.AssigneeID),
	)
	return outcome, nil
}

// checkPredecessor refuses to move a job whose predecessor has not finished.
// A deleted predecessor no longer gates its successor. The store repeats the
// check inside the commit.
func (m *Machine) checkPredecessor(ctx context.Context, job *jobs.Job, operation string) error {
	if job.DependsOn == "" {
		return nil
	}
	pred, err := m.store.GetJob(ctx, job.DependsOn)
	if err != nil {
		return err
	}
	if pred == nil || pred.Status.Finished() {
		return nil
	}
	return services.Validation("workflow", operation,
		fmt.Sprintf("predecessor %s is %s; it must be completed first", pred.ID, pred.Status))
}

// Complete finishes a non-chained job. Only the current assignee may do so.
func (m *Machine) Complete(ctx context.Context, job *jobs.Job, actor jobs.Actor, note string) (*Outcome, error) {
	if job == nil {
		return nil, services.Validation("workflow", "complete", "job is required")
	}
	if err := authorizeAssignee(job, actor, "complete"); err != nil {
		return nil, err
	}
	if job.Chained() {
		return nil, services.Validation("workflow", "complete", "chained jobs finish through advance to handover")
	}
	if !jobs.CanComplete(job.Status) {
		return nil, services.Validation("workflow", "complete", fmt.Sprintf("cannot complete a job that is %s", job.Status))
	}
	if err := m.checkPredecessor(ctx, job, "complete"); err != nil {
		return nil, err
	}

	next := job.Clone()
	next.Status = jobs.StatusCompleted
	next.History = job.WithHistory(jobs.HistoryEntry{
		FromStatus: job.Status,
		ToStatus:   next.Status,
		At:         m.timestamp(),
		ActorID:    actor.ID,
		Note:       strings.TrimSpace(note),
	})
	ctx = services.WithJobID(ctx, job.ID)
	if err := m.store.CommitTransition(ctx, next, job.GatedPrecondition(), nil); err != nil {
		return nil, err
	}
	logging.WithContext(ctx, m.logger).Info("job completed", logging.String(logging.FieldActorID, actor.ID))
	return &Outcome{Action: ActionComplete, Before: job, After: next, Changed: true}, nil
}

// SetStatus overrides the lifecycle status, bypassing stage rules. Setting the
// current value succeeds without writing.
func (m *Machine) SetStatus(ctx context.Context, job *jobs.Job, status jobs.Status, actor jobs.Actor) (*Outcome, error) {
	if job == nil {
		return nil, services.Validation("workflow", "set status", "job is required")
	}
	if err := authorizeAdministrative(actor, "set status"); err != nil {
		return nil, err
	}
	if _, ok := jobs.ParseStatus(string(status)); !ok {
		return nil, services.Validation("workflow", "set status", fmt.Sprintf("unknown status %q", status))
	}
	if status == job.Status {
		return &Outcome{Action: ActionSetStatus, Before: job, After: job, Changed: false}, nil
	}

	next := job.Clone()
	next.Status = status
	next.History = job.WithHistory(jobs.HistoryEntry{
		FromStage:  job.Stage,
		ToStage:    job.Stage,
		FromStatus: job.Status,
		ToStatus:   status,
		At:         m.timestamp(),
		ActorID:    actor.ID,
		Note:       "status override",
	})
	ctx = services.WithJobID(ctx, job.ID)
	if err := m.store.CommitTransition(ctx, next, job.Precondition(), nil); err != nil {
		return nil, err
	}
	logging.WithContext(ctx, m.logger).Info("job status overridden",
		logging.String(logging.FieldActorID, actor.ID),
		logging.String("from", string(job.Status)),
		logging.String("to", string(status)),
	)
	return &Outcome{Action: ActionSetStatus, Before: job, After: next, Changed: true}, nil
}

// Delete removes a job outright once an admin asks for it. The job's state is
// not consulted.
func (m *Machine) Delete(ctx context.Context, job *jobs.Job, actor jobs.Actor) (*Outcome, error) {
	if job == nil {
		return nil, services.Validation("workflow", "delete", "job is required")
	}
	if err := authorizeAdmin(actor, "delete"); err != nil {
		return nil, err
	}
	ctx = services.WithJobID(ctx, job.ID)
	if err := m.store.DeleteJob(ctx, job.ID, 0); err != nil {
		return nil, err
	}
	logging.WithContext(ctx, m.logger).Info("job deleted",
		logging.String(logging.FieldActorID, actor.ID),
		logging.String("status", string(job.Status)),
	)
	return &Outcome{Action: ActionDelete, Before: job, Changed: true}, nil
}

func joinTargets(targets []jobs.Target) string {
	if len(targets) == 0 {
		return "none"
	}
	parts := make([]string, len(targets))
	for i, t := range targets {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
