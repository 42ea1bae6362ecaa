package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"studioflow/internal/jobs"
)

const jobColumns = "id, title, job_type, status, stage, chain_id, workflow_order, depends_on, assignee_id, creator_id, client_id, price_cents, extra_cost_cents, extra_cost_reason, counts_against_package, history, version, created_at, updated_at"

// GetJob fetches a job by ID. It returns nil, nil when the job does not exist.
func (s *Store) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	job, err := jobs.ScanJob(s.pool.QueryRow(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs matching filter, newest first.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.Job, error) {
	var (
		clauses []string
		args    []any
	)
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(len(args)+1, len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	if filter.AssigneeID != "" {
		args = append(args, filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id = $%d", len(args)))
	}
	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.ChainID != "" {
		args = append(args, filter.ChainID)
		clauses = append(clauses, fmt.Sprintf("chain_id = $%d", len(args)))
	}

	query := "SELECT " + jobColumns + " FROM jobs"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	return s.queryJobs(ctx, query, args...)
}

// ChainJobs returns every job of a chain ordered by workflow order.
func (s *Store) ChainJobs(ctx context.Context, chainID string) ([]*jobs.Job, error) {
	return s.queryJobs(ctx, "SELECT "+jobColumns+" FROM jobs WHERE chain_id = $1 ORDER BY workflow_order", chainID)
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]*jobs.Job, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*jobs.Job
	for rows.Next() {
		job, err := jobs.ScanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

// InsertJobs writes all jobs and runs debit in one transaction.
func (s *Store) InsertJobs(ctx context.Context, batch []*jobs.Job, debit jobs.Debiter) error {
	if len(batch) == 0 {
		return nil
	}
	now := s.timestamp()
	return s.withTx(ctx, func(tx pgx.Tx) error {
		for _, job := range batch {
			history, err := jobs.EncodeHistory(job.History)
			if err != nil {
				return err
			}
			if job.Version == 0 {
				job.Version = 1
			}
			if job.CreatedAt.IsZero() {
				job.CreatedAt = now
			}
			job.UpdatedAt = job.CreatedAt
			if _, err := tx.Exec(ctx,
				`INSERT INTO jobs (`+jobColumns+`)
                 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
				job.ID,
				job.Title,
				string(job.Type),
				string(job.Status),
				string(job.Stage),
				nullableString(job.ChainID),
				nullableInt(job.WorkflowOrder),
				nullableString(job.DependsOn),
				nullableString(job.AssigneeID),
				job.CreatorID,
				job.ClientID,
				job.PriceCents,
				job.ExtraCostCents,
				nullableString(job.ExtraCostReason),
				job.CountsAgainstPackage,
				history,
				job.Version,
				job.CreatedAt,
				job.UpdatedAt,
			); err != nil {
				return fmt.Errorf("insert job %s: %w", job.ID, err)
			}
		}
		if debit != nil {
			return debit(ctx, &ledgerTx{tx: tx, now: now})
		}
		return nil
	})
}

// CommitTransition replaces the stored job with next when the stored row still
// matches pre, running debit in the same transaction.
func (s *Store) CommitTransition(ctx context.Context, next *jobs.Job, pre jobs.Precondition, debit jobs.Debiter) error {
	if next == nil {
		return errors.New("commit transition: nil job")
	}
	history, err := jobs.EncodeHistory(next.History)
	if err != nil {
		return err
	}
	now := s.timestamp()
	query := `UPDATE jobs
             SET title = $1, status = $2, stage = $3, assignee_id = $4, price_cents = $5,
                 extra_cost_cents = $6, extra_cost_reason = $7, counts_against_package = $8,
                 history = $9, version = version + 1, updated_at = $10
             WHERE id = $11 AND version = $12 AND status = $13 AND stage = $14`
	if pre.PredecessorFinished {
		query += predecessorGate
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query,
			next.Title,
			string(next.Status),
			string(next.Stage),
			nullableString(next.AssigneeID),
			next.PriceCents,
			next.ExtraCostCents,
			nullableString(next.ExtraCostReason),
			next.CountsAgainstPackage,
			history,
			now,
			next.ID,
			pre.Version,
			string(pre.Status),
			string(pre.Stage),
		)
		if err != nil {
			return fmt.Errorf("update job: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return classifyMiss(ctx, tx, next.ID, pre)
		}
		if debit != nil {
			if err := debit(ctx, &ledgerTx{tx: tx, now: now}); err != nil {
				return err
			}
		}
		next.Version = pre.Version + 1
		next.UpdatedAt = now
		return nil
	})
}

// DeleteJob removes a job. When expectedVersion is positive the delete only
// applies to that version.
func (s *Store) DeleteJob(ctx context.Context, id string, expectedVersion int) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		query := "DELETE FROM jobs WHERE id = $1"
		args := []any{id}
		if expectedVersion > 0 {
			query += " AND version = $2"
			args = append(args, expectedVersion)
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("delete job: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return missOrConflict(ctx, tx, id)
		}
		return nil
	})
}

// The predecessor row is share-locked so a concurrent reopen waits for commit.
const predecessorGate = `
               AND (depends_on IS NULL OR EXISTS (
                   SELECT 1 FROM jobs p WHERE p.id = jobs.depends_on
                   AND p.status IN ('completed', 'delivered') FOR SHARE))`

func classifyMiss(ctx context.Context, tx pgx.Tx, id string, pre jobs.Precondition) error {
	var (
		version       int
		status, stage string
	)
	err := tx.QueryRow(ctx, "SELECT version, status, stage FROM jobs WHERE id = $1", id).Scan(&version, &status, &stage)
	if errors.Is(err, pgx.ErrNoRows) {
		return jobs.ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("check job: %w", err)
	}
	if pre.PredecessorFinished && version == pre.Version && jobs.Status(status) == pre.Status && jobs.Stage(stage) == pre.Stage {
		return jobs.ErrPredecessorPending
	}
	return jobs.ErrConflict
}

func missOrConflict(ctx context.Context, tx pgx.Tx, id string) error {
	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("check job: %w", err)
	}
	if !exists {
		return jobs.ErrJobNotFound
	}
	return jobs.ErrConflict
}
