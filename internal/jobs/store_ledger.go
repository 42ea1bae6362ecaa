package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

// sqliteLedgerTx exposes the ledger tables inside an open write transaction.
// BEGIN IMMEDIATE already holds the database write lock, so reads taken here
// cannot be invalidated by another writer before commit.
type sqliteLedgerTx struct {
	tx  *sql.Tx
	now time.Time
}

func (l *sqliteLedgerTx) EligibleAssignments(ctx context.Context, clientID string, svc ServiceType, day time.Time) ([]AssignmentBalance, error) {
	d := formatDate(day)
	rows, err := l.tx.QueryContext(ctx,
		`SELECT a.id, a.client_id, a.template_id, a.start_date, a.end_date, a.active, i.quantity,
                COALESCE((SELECT SUM(u.quantity) FROM usage_records u
                          WHERE u.assignment_id = a.id AND u.service_type = i.service_type), 0)
         FROM client_package_assignments a
         JOIN package_template_items i ON i.template_id = a.template_id AND i.service_type = ?
         WHERE a.client_id = ? AND a.active = 1 AND a.start_date <= ? AND a.end_date >= ?
         ORDER BY a.end_date, a.id`,
		string(svc), clientID, d, d,
	)
	if err != nil {
		return nil, fmt.Errorf("eligible assignments: %w", err)
	}
	defer rows.Close()

	var out []AssignmentBalance
	for rows.Next() {
		var (
			bal        AssignmentBalance
			start, end string
		)
		if err := rows.Scan(&bal.ID, &bal.ClientID, &bal.TemplateID, &start, &end, &bal.Active, &bal.Granted, &bal.Consumed); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		if bal.StartDate, err = parseDate(start); err != nil {
			return nil, err
		}
		if bal.EndDate, err = parseDate(end); err != nil {
			return nil, err
		}
		out = append(out, bal)
	}
	return out, rows.Err()
}

func (l *sqliteLedgerTx) UsageForJob(ctx context.Context, jobID string, svc ServiceType) (*UsageRecord, error) {
	row := l.tx.QueryRowContext(ctx,
		`SELECT id, assignment_id, service_type, quantity, job_id, created_at
         FROM usage_records WHERE job_id = ? AND service_type = ?`,
		jobID, string(svc),
	)
	rec, err := scanUsage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("usage for job: %w", err)
	}
	return rec, nil
}

func (l *sqliteLedgerTx) InsertUsage(ctx context.Context, rec UsageRecord) (bool, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = l.now
	}
	res, err := l.tx.ExecContext(ctx,
		`INSERT INTO usage_records (id, assignment_id, service_type, quantity, job_id, created_at)
         SELECT ?, ?, ?, ?, ?, ?
         WHERE (SELECT COALESCE(SUM(quantity), 0) FROM usage_records
                WHERE assignment_id = ? AND service_type = ?) + ?
               <= COALESCE((SELECT i.quantity FROM package_template_items i
                            JOIN client_package_assignments a ON a.template_id = i.template_id
                            WHERE a.id = ? AND i.service_type = ?), 0)`,
		rec.ID, rec.AssignmentID, string(rec.ServiceType), rec.Quantity, rec.JobID, formatTime(createdAt),
		rec.AssignmentID, string(rec.ServiceType), rec.Quantity,
		rec.AssignmentID, string(rec.ServiceType),
	)
	if err != nil {
		return false, fmt.Errorf("insert usage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert usage: %w", err)
	}
	return affected == 1, nil
}

func scanUsage(scanner JobScanner) (*UsageRecord, error) {
	var (
		rec        UsageRecord
		svc        string
		createdRaw any
	)
	if err := scanner.Scan(&rec.ID, &rec.AssignmentID, &svc, &rec.Quantity, &rec.JobID, &createdRaw); err != nil {
		return nil, err
	}
	rec.ServiceType = ServiceType(svc)
	rec.CreatedAt = scanTime(createdRaw)
	return &rec, nil
}

// Debit runs a standalone entitlement debit in its own write transaction.
func (s *Store) Debit(ctx context.Context, debit Debiter) error {
	if debit == nil {
		return nil
	}
	now := s.timestamp()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return debit(ctx, &sqliteLedgerTx{tx: tx, now: now})
	})
}

// UpsertPackageTemplate creates or replaces a template and its line items.
func (s *Store) UpsertPackageTemplate(ctx context.Context, tmpl PackageTemplate) error {
	now := formatTime(s.timestamp())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO package_templates (id, name, created_at) VALUES (?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
			tmpl.ID, tmpl.Name, now,
		); err != nil {
			return fmt.Errorf("upsert template: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM package_template_items WHERE template_id = ?", tmpl.ID); err != nil {
			return fmt.Errorf("clear template items: %w", err)
		}
		for _, svc := range sortedServiceTypes(tmpl.Items) {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO package_template_items (template_id, service_type, quantity) VALUES (?, ?, ?)",
				tmpl.ID, string(svc), tmpl.Items[svc],
			); err != nil {
				return fmt.Errorf("insert template item %s: %w", svc, err)
			}
		}
		return nil
	})
}

// GetPackageTemplate returns a template with its items, or nil when missing.
func (s *Store) GetPackageTemplate(ctx context.Context, id string) (*PackageTemplate, error) {
	ctx = ensureContext(ctx)
	tmpl := &PackageTemplate{ID: id, Items: map[ServiceType]int{}}
	err := s.db.QueryRowContext(ctx, "SELECT name FROM package_templates WHERE id = ?", id).Scan(&tmpl.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT service_type, quantity FROM package_template_items WHERE template_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("template items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			svc string
			qty int
		)
		if err := rows.Scan(&svc, &qty); err != nil {
			return nil, fmt.Errorf("scan template item: %w", err)
		}
		tmpl.Items[ServiceType(svc)] = qty
	}
	return tmpl, rows.Err()
}

// UpsertAssignment creates or replaces a client package assignment.
func (s *Store) UpsertAssignment(ctx context.Context, a Assignment) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO client_package_assignments (id, client_id, template_id, start_date, end_date, active, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             client_id = excluded.client_id,
             template_id = excluded.template_id,
             start_date = excluded.start_date,
             end_date = excluded.end_date,
             active = excluded.active`,
		a.ID, a.ClientID, a.TemplateID, formatDate(a.StartDate), formatDate(a.EndDate), boolToInt(a.Active), formatTime(s.timestamp()),
	)
	if err != nil {
		return fmt.Errorf("upsert assignment: %w", err)
	}
	return nil
}

const assignmentColumns = "id, client_id, template_id, start_date, end_date, active"

func scanAssignment(scanner JobScanner) (*Assignment, error) {
	var (
		a          Assignment
		start, end string
		err        error
	)
	if err = scanner.Scan(&a.ID, &a.ClientID, &a.TemplateID, &start, &end, &a.Active); err != nil {
		return nil, err
	}
	if a.StartDate, err = parseDate(start); err != nil {
		return nil, err
	}
	if a.EndDate, err = parseDate(end); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAssignment returns an assignment by ID, or nil when missing.
func (s *Store) GetAssignment(ctx context.Context, id string) (*Assignment, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+assignmentColumns+" FROM client_package_assignments WHERE id = ?", id)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// ListAssignments returns a client's assignments ordered by end date.
func (s *Store) ListAssignments(ctx context.Context, clientID string) ([]*Assignment, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+assignmentColumns+" FROM client_package_assignments WHERE client_id = ? ORDER BY end_date, id", clientID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()
	var out []*Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UsageSummary derives granted, consumed, and remaining units per service type
// for one assignment. It returns nil, nil when the assignment does not exist.
func (s *Store) UsageSummary(ctx context.Context, assignmentID string) (*UsageSummary, error) {
	ctx = ensureContext(ctx)
	a, err := s.GetAssignment(ctx, assignmentID)
	if err != nil || a == nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.service_type, i.quantity,
                COALESCE((SELECT SUM(u.quantity) FROM usage_records u
                          WHERE u.assignment_id = ? AND u.service_type = i.service_type), 0)
         FROM package_template_items i
         WHERE i.template_id = ?
         ORDER BY i.service_type`,
		a.ID, a.TemplateID,
	)
	if err != nil {
		return nil, fmt.Errorf("usage summary: %w", err)
	}
	defer rows.Close()

	summary := &UsageSummary{Assignment: *a}
	for rows.Next() {
		var (
			line UsageLine
			svc  string
		)
		if err := rows.Scan(&svc, &line.Granted, &line.Consumed); err != nil {
			return nil, fmt.Errorf("scan usage line: %w", err)
		}
		line.ServiceType = ServiceType(svc)
		line.Remaining = line.Granted - line.Consumed
		summary.Lines = append(summary.Lines, line)
	}
	return summary, rows.Err()
}

// ListUsage returns the usage records of an assignment, oldest first.
func (s *Store) ListUsage(ctx context.Context, assignmentID string) ([]UsageRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, assignment_id, service_type, quantity, job_id, created_at
         FROM usage_records WHERE assignment_id = ? ORDER BY created_at, id`, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()
	var out []UsageRecord
	for rows.Next() {
		rec, err := scanUsage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func sortedServiceTypes(items map[ServiceType]int) []ServiceType {
	out := make([]ServiceType, 0, len(items))
	for svc := range items {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
