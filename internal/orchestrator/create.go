package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"studioflow/internal/jobs"
	"studioflow/internal/ledger"
	"studioflow/internal/logging"
	"studioflow/internal/notifications"
	"studioflow/internal/services"
	"studioflow/internal/workflow"
)

const maxChainSteps = 3

// CreateJob creates one standalone job. Production job types without an
// explicit assignee are handed to the first eligible worker of their role.
// A job that counts against the client's package consumes one unit of its
// service type in the same transaction as the insert.
func (o *Orchestrator) CreateJob(ctx context.Context, actor jobs.Actor, spec JobSpec) (*CreateResult, error) {
	ctx = requestContext(ctx, actor)
	if err := requireAdministrative(actor, "create job"); err != nil {
		return nil, err
	}
	jobType, ok := jobs.ParseJobType(spec.Type)
	if !ok {
		return nil, services.Validation("orchestrator", "create job", fmt.Sprintf("unknown job type %q", spec.Type))
	}
	if err := validateCommon("create job", spec.Title, spec.ClientID, spec.PriceCents, spec.ExtraCostCents, spec.ExtraCostReason); err != nil {
		return nil, err
	}

	job := &jobs.Job{
		ID:                   uuid.NewString(),
		Title:                strings.TrimSpace(spec.Title),
		Type:                 jobType,
		Status:               jobs.StatusPending,
		ClientID:             strings.TrimSpace(spec.ClientID),
		CreatorID:            actor.ID,
		PriceCents:           spec.PriceCents,
		ExtraCostCents:       spec.ExtraCostCents,
		ExtraCostReason:      strings.TrimSpace(spec.ExtraCostReason),
		CountsAgainstPackage: spec.CountsAgainstPackage,
		CreatedAt:            o.now().UTC(),
	}

	if dep := strings.TrimSpace(spec.DependsOn); dep != "" {
		pred, err := o.store.GetJob(ctx, dep)
		if err != nil {
			return nil, err
		}
		if pred == nil {
			return nil, services.Validation("orchestrator", "create job", "depends_on job "+dep+" does not exist")
		}
		job.DependsOn = pred.ID
	}

	result := &CreateResult{Job: job}
	assignee, warning, err := o.pickAssignee(ctx, "create job", spec.AssigneeID, jobType.Stage().Role())
	if err != nil {
		return nil, err
	}
	job.AssigneeID = assignee
	if warning != nil {
		result.Warnings = append(result.Warnings, *warning)
	}

	var debit jobs.Debiter
	if job.CountsAgainstPackage {
		req := ledger.Request{ClientID: job.ClientID, ServiceType: jobType.ServiceType(), Quantity: 1, JobID: job.ID}
		if err := ledger.Validate(req); err != nil {
			return nil, err
		}
		result.Receipt = &ledger.Receipt{}
		debit = o.ledger.Debiter(req, result.Receipt)
	}

	if err := o.store.InsertJobs(ctx, []*jobs.Job{job}, debit); err != nil {
		return nil, err
	}

	ctx = services.WithJobID(ctx, job.ID)
	logging.WithContext(ctx, o.logger).Info("job created",
		logging.String("job_type", string(jobType)),
		logging.String("client_id", job.ClientID),
		logging.String("assignee_id", job.AssigneeID),
		logging.Bool("counts_against_package", job.CountsAgainstPackage),
	)
	o.fanout.Notify(ctx, notifications.Event{
		Kind:           notifications.KindCreated,
		After:          job,
		Actor:          actor,
		UnassignedRole: unassignedRole(result.Warnings),
	})
	return result, nil
}

// CreateWorkflowChain creates 1-3 jobs for consecutive stages in one
// transaction. Each job depends on the one before it. No entitlement is
// consumed until a job enters a stage through AdvanceWorkflow.
func (o *Orchestrator) CreateWorkflowChain(ctx context.Context, actor jobs.Actor, clientID string, steps []ChainStep) (*ChainResult, error) {
	ctx = requestContext(ctx, actor)
	if err := requireAdministrative(actor, "create chain"); err != nil {
		return nil, err
	}
	if len(steps) == 0 || len(steps) > maxChainSteps {
		return nil, services.Validation("orchestrator", "create chain", fmt.Sprintf("a chain has 1 to %d steps, got %d", maxChainSteps, len(steps)))
	}

	stages := make([]jobs.Stage, len(steps))
	for i, step := range steps {
		stage, ok := jobs.ParseStage(step.Stage)
		if !ok {
			return nil, services.Validation("orchestrator", "create chain", fmt.Sprintf("step %d: unknown stage %q", i+1, step.Stage))
		}
		if i > 0 && stage.Rank() <= stages[i-1].Rank() {
			return nil, services.Validation("orchestrator", "create chain", fmt.Sprintf("step %d: %s must come after %s", i+1, stage, stages[i-1]))
		}
		if err := validateCommon("create chain", step.Title, clientID, step.PriceCents, step.ExtraCostCents, step.ExtraCostReason); err != nil {
			return nil, err
		}
		stages[i] = stage
	}

	result := &ChainResult{ChainID: uuid.NewString()}
	created := o.now().UTC()
	var previous string
	for i, step := range steps {
		assignee, warning, err := o.pickAssignee(ctx, "create chain", step.AssigneeID, stages[i].Role())
		if err != nil {
			return nil, err
		}
		if warning != nil {
			result.Warnings = append(result.Warnings, *warning)
		}
		job := &jobs.Job{
			ID:                   uuid.NewString(),
			Title:                strings.TrimSpace(step.Title),
			Type:                 jobs.JobType(stages[i]),
			Status:               jobs.StatusPending,
			Stage:                stages[i],
			ChainID:              result.ChainID,
			WorkflowOrder:        i + 1,
			DependsOn:            previous,
			AssigneeID:           assignee,
			CreatorID:            actor.ID,
			ClientID:             strings.TrimSpace(clientID),
			PriceCents:           step.PriceCents,
			ExtraCostCents:       step.ExtraCostCents,
			ExtraCostReason:      strings.TrimSpace(step.ExtraCostReason),
			CountsAgainstPackage: step.CountsAgainstPackage,
			CreatedAt:            created,
		}
		result.Jobs = append(result.Jobs, job)
		previous = job.ID
	}

	if err := o.store.InsertJobs(ctx, result.Jobs, nil); err != nil {
		return nil, err
	}

	logging.WithContext(ctx, o.logger).Info("workflow chain created",
		logging.String("chain_id", result.ChainID),
		logging.Int("jobs", len(result.Jobs)),
		logging.String("client_id", clientID),
	)
	for _, job := range result.Jobs {
		o.fanout.Notify(ctx, notifications.Event{Kind: notifications.KindCreated, After: job, Actor: actor})
	}
	return result, nil
}

// pickAssignee validates an explicit assignee or resolves one for role. A
// missing worker yields a warning, not an error.
func (o *Orchestrator) pickAssignee(ctx context.Context, operation, explicit string, role jobs.Role) (string, *workflow.Warning, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		w, err := o.store.GetWorker(ctx, explicit)
		if err != nil {
			return "", nil, err
		}
		if w == nil || !w.Active {
			return "", nil, services.Validation("orchestrator", operation, "assignee "+explicit+" is not an active worker")
		}
		if w.Role == jobs.RoleClient {
			return "", nil, services.Validation("orchestrator", operation, "clients cannot be assigned work")
		}
		return w.ID, nil, nil
	}
	if role == "" {
		return "", nil, nil
	}
	id, ok, err := o.resolver.Resolve(ctx, role)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", &workflow.Warning{
			Code:    workflow.WarningAssignmentUnavailable,
			Message: fmt.Sprintf("no active %s available; job created unassigned", role),
			Role:    string(role),
		}, nil
	}
	return id, nil, nil
}

func validateCommon(operation, title, clientID string, price, extra int64, reason string) error {
	switch {
	case strings.TrimSpace(title) == "":
		return services.Validation("orchestrator", operation, "title is required")
	case strings.TrimSpace(clientID) == "":
		return services.Validation("orchestrator", operation, "client id is required")
	case price < 0:
		return services.Validation("orchestrator", operation, "price cannot be negative")
	case extra < 0:
		return services.Validation("orchestrator", operation, "extra cost cannot be negative")
	case extra > 0 && strings.TrimSpace(reason) == "":
		return services.Validation("orchestrator", operation, "extra cost needs a reason")
	}
	return nil
}

func unassignedRole(warnings []workflow.Warning) jobs.Role {
	for _, w := range warnings {
		if w.Code == workflow.WarningAssignmentUnavailable {
			return jobs.Role(w.Role)
		}
	}
	return ""
}
