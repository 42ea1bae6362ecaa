// Package assignment picks the worker a job is handed to when it enters a stage.
package assignment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"studioflow/internal/jobs"
)

// WorkerSource lists workers. Both store implementations satisfy it.
type WorkerSource interface {
	ListWorkers(ctx context.Context, filter jobs.WorkerFilter) ([]*jobs.Worker, error)
}

// Resolver selects the first active worker of a role in a stable order.
type Resolver struct {
	workers WorkerSource
}

// NewResolver constructs a Resolver over workers.
func NewResolver(workers WorkerSource) *Resolver {
	return &Resolver{workers: workers}
}

// Resolve returns the id of the first active worker holding role, ordered by
// case-insensitive name then id. ok is false when nobody is eligible. It never
// retries and never writes.
func (r *Resolver) Resolve(ctx context.Context, role jobs.Role) (string, bool, error) {
	if role == "" {
		return "", false, nil
	}
	candidates, err := r.workers.ListWorkers(ctx, jobs.WorkerFilter{Roles: []jobs.Role{role}, ActiveOnly: true})
	if err != nil {
		return "", false, fmt.Errorf("list %s workers: %w", role, err)
	}
	eligible := make([]*jobs.Worker, 0, len(candidates))
	for _, w := range candidates {
		if w != nil && w.Active && w.Role == role {
			eligible = append(eligible, w)
		}
	}
	if len(eligible) == 0 {
		return "", false, nil
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		a := strings.ToLower(strings.TrimSpace(eligible[i].Name))
		b := strings.ToLower(strings.TrimSpace(eligible[j].Name))
		if a != b {
			return a < b
		}
		return eligible[i].ID < eligible[j].ID
	})
	return eligible[0].ID, true, nil
}

// RoleForStage maps a chain stage to the role that performs it.
func RoleForStage(stage jobs.Stage) jobs.Role {
	return stage.Role()
}
