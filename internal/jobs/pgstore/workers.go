package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"studioflow/internal/jobs"
)

const workerColumns = "id, name, role, active, created_at, updated_at"

// UpsertWorker creates or updates a worker record.
func (s *Store) UpsertWorker(ctx context.Context, w *jobs.Worker) error {
	if w == nil {
		return errors.New("upsert worker: nil worker")
	}
	now := s.timestamp()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO workers (`+workerColumns+`) VALUES ($1, $2, $3, $4, $5, $6)
         ON CONFLICT (id) DO UPDATE SET
             name = EXCLUDED.name,
             role = EXCLUDED.role,
             active = EXCLUDED.active,
             updated_at = EXCLUDED.updated_at`,
		w.ID, w.Name, string(w.Role), w.Active, w.CreatedAt, w.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert worker: %w", err)
	}
	return nil
}

// GetWorker returns a worker by ID, or nil when missing.
func (s *Store) GetWorker(ctx context.Context, id string) (*jobs.Worker, error) {
	w, err := jobs.ScanWorker(s.pool.QueryRow(ctx, "SELECT "+workerColumns+" FROM workers WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get worker: %w", err)
	}
	return w, nil
}

// ListWorkers returns workers matching filter ordered by id.
func (s *Store) ListWorkers(ctx context.Context, filter jobs.WorkerFilter) ([]*jobs.Worker, error) {
	var (
		clauses []string
		args    []any
	)
	if len(filter.Roles) > 0 {
		clauses = append(clauses, "role IN ("+placeholders(1, len(filter.Roles))+")")
		for _, role := range filter.Roles {
			args = append(args, string(role))
		}
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "active")
	}
	query := "SELECT " + workerColumns + " FROM workers"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()
	var out []*jobs.Worker
	for rows.Next() {
		w, err := jobs.ScanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// InsertNotification stores a delivered notification for its recipient.
func (s *Store) InsertNotification(ctx context.Context, n *jobs.Notification) error {
	if n == nil {
		return errors.New("insert notification: nil notification")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.timestamp()
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, recipient_id, kind, title, body, job_id, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.RecipientID, n.Kind, n.Title, n.Body, nullableString(n.JobID), n.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a recipient's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, recipientID string, limit int) ([]*jobs.Notification, error) {
	query := `SELECT id, recipient_id, kind, title, body, job_id, created_at
              FROM notifications WHERE recipient_id = $1 ORDER BY created_at DESC, id`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.pool.Query(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	var out []*jobs.Notification
	for rows.Next() {
		n, err := jobs.ScanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
