package orchestrator

import (
	"context"
	"strings"

	"studioflow/internal/jobs"
	"studioflow/internal/services"
)

const defaultNotificationLimit = 50

// GetJob returns one job. Clients only see their own jobs.
func (o *Orchestrator) GetJob(ctx context.Context, actor jobs.Actor, id string) (*jobs.Job, error) {
	job, err := o.loadJob(ctx, "get job", id)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, job); err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs returns jobs matching filter. A client's filter is pinned to
// their own client id.
func (o *Orchestrator) ListJobs(ctx context.Context, actor jobs.Actor, filter jobs.JobFilter) ([]*jobs.Job, error) {
	if actor.ID == "" {
		return nil, services.Unauthorized("orchestrator", "list jobs", "actor is required")
	}
	if actor.Role == jobs.RoleClient {
		filter.ClientID = actor.ID
	}
	return o.store.ListJobs(ctx, filter)
}

// Chain returns the chain a job belongs to, ordered by workflow order. A
// standalone job is its own one-element chain.
func (o *Orchestrator) Chain(ctx context.Context, actor jobs.Actor, jobID string) ([]*jobs.Job, error) {
	job, err := o.GetJob(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	if job.ChainID == "" {
		return []*jobs.Job{job}, nil
	}
	return o.store.ChainJobs(ctx, job.ChainID)
}

// UsageSummary returns an assignment's balance to staff or to the owning client.
func (o *Orchestrator) UsageSummary(ctx context.Context, actor jobs.Actor, assignmentID string) (*jobs.UsageSummary, error) {
	assignmentID = strings.TrimSpace(assignmentID)
	if assignmentID == "" {
		return nil, services.Validation("orchestrator", "usage summary", "assignment id is required")
	}
	a, err := o.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, services.Wrap(services.ErrNotFound, "orchestrator", "usage summary", "assignment "+assignmentID, nil)
	}
	if !actor.Role.Administrative() && !(actor.Role == jobs.RoleClient && actor.ID == a.ClientID) {
		return nil, services.Unauthorized("orchestrator", "usage summary", "not allowed to view this assignment")
	}
	return o.ledger.UsageSummary(ctx, assignmentID)
}

// ClientPackages lists a client's package assignments ordered by end date.
// Clients read their own; admins and coordinators name the client.
func (o *Orchestrator) ClientPackages(ctx context.Context, actor jobs.Actor, clientID string) ([]ClientPackage, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" && actor.Role == jobs.RoleClient {
		clientID = actor.ID
	}
	if clientID == "" {
		return nil, services.Validation("orchestrator", "client packages", "client id is required")
	}
	if actor.ID == "" || !(actor.Role.Administrative() || (actor.Role == jobs.RoleClient && actor.ID == clientID)) {
		return nil, services.Unauthorized("orchestrator", "client packages", "not allowed to view these packages")
	}
	assignments, err := o.store.ListAssignments(ctx, clientID)
	if err != nil {
		return nil, err
	}
	templates := make(map[string]*jobs.PackageTemplate)
	out := make([]ClientPackage, 0, len(assignments))
	for _, a := range assignments {
		tmpl, seen := templates[a.TemplateID]
		if !seen {
			if tmpl, err = o.store.GetPackageTemplate(ctx, a.TemplateID); err != nil {
				return nil, err
			}
			templates[a.TemplateID] = tmpl
		}
		out = append(out, ClientPackage{Assignment: *a, Template: tmpl})
	}
	return out, nil
}

// Notifications lists a worker's notifications, newest first. Workers read
// their own; admins and coordinators may read anyone's.
func (o *Orchestrator) Notifications(ctx context.Context, actor jobs.Actor, recipientID string, limit int) ([]*jobs.Notification, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		recipientID = actor.ID
	}
	if actor.ID == "" || (recipientID != actor.ID && !actor.Role.Administrative()) {
		return nil, services.Unauthorized("orchestrator", "notifications", "not allowed to read these notifications")
	}
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	return o.store.ListNotifications(ctx, recipientID, limit)
}

func canView(actor jobs.Actor, job *jobs.Job) error {
	if actor.ID == "" {
		return services.Unauthorized("orchestrator", "get job", "actor is required")
	}
	if actor.Role == jobs.RoleClient && job.ClientID != actor.ID {
		return services.Unauthorized("orchestrator", "get job", "not allowed to view this job")
	}
	return nil
}
