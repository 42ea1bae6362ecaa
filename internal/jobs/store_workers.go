package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const workerColumns = "id, name, role, active, created_at, updated_at"

// UpsertWorker creates or updates a worker record.
func (s *Store) UpsertWorker(ctx context.Context, w *Worker) error {
	if w == nil {
		return errors.New("upsert worker: nil worker")
	}
	now := s.timestamp()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
	_, err := s.execWithRetry(ctx,
		`INSERT INTO workers (`+workerColumns+`) VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             name = excluded.name,
             role = excluded.role,
             active = excluded.active,
             updated_at = excluded.updated_at`,
		w.ID, w.Name, string(w.Role), boolToInt(w.Active), formatTime(w.CreatedAt), formatTime(w.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert worker: %w", err)
	}
	return nil
}

// GetWorker returns a worker by ID, or nil when missing.
func (s *Store) GetWorker(ctx context.Context, id string) (*Worker, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+workerColumns+" FROM workers WHERE id = ?", id)
	w, err := ScanWorker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get worker: %w", err)
	}
	return w, nil
}

// ListWorkers returns workers matching filter ordered by id. Callers that need
// a presentation order sort the result themselves.
func (s *Store) ListWorkers(ctx context.Context, filter WorkerFilter) ([]*Worker, error) {
	var (
		clauses []string
		args    []any
	)
	if len(filter.Roles) > 0 {
		clauses = append(clauses, "role IN ("+makePlaceholders(len(filter.Roles))+")")
		for _, role := range filter.Roles {
			args = append(args, string(role))
		}
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "active = 1")
	}
	query := "SELECT " + workerColumns + " FROM workers"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()
	var out []*Worker
	for rows.Next() {
		w, err := ScanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ScanWorker reads one row selected with the workers column list.
func ScanWorker(scanner JobScanner) (*Worker, error) {
	var (
		w                      Worker
		role                   string
		createdRaw, updatedRaw any
	)
	if err := scanner.Scan(&w.ID, &w.Name, &role, &w.Active, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	w.Role = Role(role)
	w.CreatedAt = scanTime(createdRaw)
	w.UpdatedAt = scanTime(updatedRaw)
	return &w, nil
}
