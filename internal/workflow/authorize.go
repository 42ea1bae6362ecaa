package workflow

import (
	"studioflow/internal/jobs"
	"studioflow/internal/services"
)

// authorizeWorker admits the current assignee and administrative roles.
func authorizeWorker(job *jobs.Job, actor jobs.Actor, operation string) error {
	if actor.ID == "" {
		return services.Unauthorized("workflow", operation, "actor is required")
	}
	if actor.Role == jobs.RoleClient {
		return services.Unauthorized("workflow", operation, "clients cannot transition jobs")
	}
	if actor.Role.Administrative() {
		return nil
	}
	if job.AssigneeID == "" || job.AssigneeID != actor.ID {
		return services.Unauthorized("workflow", operation, "only the current assignee may do this")
	}
	return nil
}

// authorizeAssignee admits only the current assignee.
func authorizeAssignee(job *jobs.Job, actor jobs.Actor, operation string) error {
	if actor.ID == "" {
		return services.Unauthorized("workflow", operation, "actor is required")
	}
	if actor.Role == jobs.RoleClient {
		return services.Unauthorized("workflow", operation, "clients cannot transition jobs")
	}
	if job.AssigneeID == "" || job.AssigneeID != actor.ID {
		return services.Unauthorized("workflow", operation, "only the current assignee may do this")
	}
	return nil
}

func authorizeAdministrative(actor jobs.Actor, operation string) error {
	if actor.ID == "" || !actor.Role.Administrative() {
		return services.Unauthorized("workflow", operation, "requires admin or coordinator role")
	}
	return nil
}

func authorizeAdmin(actor jobs.Actor, operation string) error {
	if actor.ID == "" || actor.Role != jobs.RoleAdmin {
		return services.Unauthorized("workflow", operation, "requires admin role")
	}
	return nil
}
