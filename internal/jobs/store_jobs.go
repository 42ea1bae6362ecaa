package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// GetJob fetches a job by ID. It returns nil, nil when the job does not exist.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := ScanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs matching filter, newest first.
func (s *Store) ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error) {
	var (
		clauses []string
		args    []any
	)
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+makePlaceholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	if filter.AssigneeID != "" {
		clauses = append(clauses, "assignee_id = ?")
		args = append(args, filter.AssigneeID)
	}
	if filter.ClientID != "" {
		clauses = append(clauses, "client_id = ?")
		args = append(args, filter.ClientID)
	}
	if filter.ChainID != "" {
		clauses = append(clauses, "chain_id = ?")
		args = append(args, filter.ChainID)
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
func (s *Store) ChainJobs(ctx context.Context, chainID string) ([]*Job, error) {
	return s.queryJobs(ctx, "SELECT "+jobColumns+" FROM jobs WHERE chain_id = ? ORDER BY workflow_order", chainID)
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]*Job, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := ScanJob(rows)
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

// InsertJobs writes all jobs in one transaction, in slice order so that
// depends_on references resolve, then runs debit (when non-nil) in the same
// transaction. Either everything is stored or nothing is.
func (s *Store) InsertJobs(ctx context.Context, batch []*Job, debit Debiter) error {
	if len(batch) == 0 {
		return nil
	}
	now := s.timestamp()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, job := range batch {
			history, err := EncodeHistory(job.History)
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
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
				boolToInt(job.CountsAgainstPackage),
				history,
				job.Version,
				formatTime(job.CreatedAt),
				formatTime(job.UpdatedAt),
			); err != nil {
				return fmt.Errorf("insert job %s: %w", job.ID, err)
			}
		}
		if debit != nil {
			return debit(ctx, &sqliteLedgerTx{tx: tx, now: now})
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

// CommitTransition replaces the stored job with next, provided the stored row
// still matches pre, then runs debit (when non-nil) in the same transaction.
// On success next.Version is pre.Version+1. A mismatch returns ErrConflict and
// a missing row returns ErrJobNotFound; either way nothing is written.
func (s *Store) CommitTransition(ctx context.Context, next *Job, pre Precondition, debit Debiter) error {
	if next == nil {
		return errors.New("commit transition: nil job")
	}
	history, err := EncodeHistory(next.History)
	if err != nil {
		return err
	}
	now := s.timestamp()
	query := `UPDATE jobs
             SET title = ?, status = ?, stage = ?, assignee_id = ?, price_cents = ?,
                 extra_cost_cents = ?, extra_cost_reason = ?, counts_against_package = ?,
                 history = ?, version = version + 1, updated_at = ?
             WHERE id = ? AND version = ? AND status = ? AND stage = ?`
	if pre.PredecessorFinished {
		query += predecessorGate
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query,
			next.Title,
			string(next.Status),
			string(next.Stage),
			nullableString(next.AssigneeID),
			next.PriceCents,
			next.ExtraCostCents,
			nullableString(next.ExtraCostReason),
			boolToInt(next.CountsAgainstPackage),
			history,
			formatTime(now),
			next.ID,
			pre.Version,
			string(pre.Status),
			string(pre.Stage),
		)
		if err != nil {
			return fmt.Errorf("update job: %w", err)
		}
		if affected, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("update job: %w", err)
		} else if affected == 0 {
			return s.classifyMiss(ctx, tx, next.ID, pre)
		}
		if debit != nil {
			if err := debit(ctx, &sqliteLedgerTx{tx: tx, now: now}); err != nil {
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
	return s.withTx(ctx, func(tx *sql.Tx) error {
		query := "DELETE FROM jobs WHERE id = ?"
		args := []any{id}
		if expectedVersion > 0 {
			query += " AND version = ?"
			args = append(args, expectedVersion)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("delete job: %w", err)
		}
		if affected, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("delete job: %w", err)
		} else if affected == 0 {
			return s.missOrConflict(ctx, tx, id)
		}
		return nil
	})
}

const predecessorGate = `
               AND (depends_on IS NULL OR EXISTS (
                   SELECT 1 FROM jobs p WHERE p.id = jobs.depends_on
                   AND p.status IN ('completed', 'delivered')))`

// classifyMiss explains a conditional update that touched no row. A row that
// still matches pre was held back by the predecessor gate.
func (s *Store) classifyMiss(ctx context.Context, tx *sql.Tx, id string, pre Precondition) error {
	var (
		version       int
		status, stage string
	)
	err := tx.QueryRowContext(ctx, "SELECT version, status, stage FROM jobs WHERE id = ?", id).Scan(&version, &status, &stage)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("check job: %w", err)
	}
	if pre.PredecessorFinished && version == pre.Version && Status(status) == pre.Status && Stage(stage) == pre.Stage {
		return ErrPredecessorPending
	}
	return ErrConflict
}

func (s *Store) missOrConflict(ctx context.Context, tx *sql.Tx, id string) error {
	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM jobs WHERE id = ?", id).Scan(&count); err != nil {
		return fmt.Errorf("check job: %w", err)
	}
	if count == 0 {
		return ErrJobNotFound
	}
	return ErrConflict
}
