package pgstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"studioflow/internal/jobs"
)

type ledgerTx struct {
	tx  pgx.Tx
	now time.Time
}

func (l *ledgerTx) EligibleAssignments(ctx context.Context, clientID string, svc jobs.ServiceType, day time.Time) ([]jobs.AssignmentBalance, error) {
	// Lock every assignment of the client first; concurrent debits for the
	// same client wait here and then read the winner's committed usage.
	if _, err := l.tx.Exec(ctx,
		"SELECT id FROM client_package_assignments WHERE client_id = $1 ORDER BY id FOR UPDATE", clientID,
	); err != nil {
		return nil, fmt.Errorf("lock assignments: %w", err)
	}
	d := dateOnly(day)
	rows, err := l.tx.Query(ctx,
		`SELECT a.id, a.client_id, a.template_id, a.start_date, a.end_date, a.active, i.quantity,
                COALESCE((SELECT SUM(u.quantity) FROM usage_records u
                          WHERE u.assignment_id = a.id AND u.service_type = i.service_type), 0)::int
         FROM client_package_assignments a
         JOIN package_template_items i ON i.template_id = a.template_id AND i.service_type = $1
         WHERE a.client_id = $2 AND a.active AND a.start_date <= $3 AND a.end_date >= $3
         ORDER BY a.end_date, a.id`,
		string(svc), clientID, d,
	)
	if err != nil {
		return nil, fmt.Errorf("eligible assignments: %w", err)
	}
	defer rows.Close()

	var out []jobs.AssignmentBalance
	for rows.Next() {
		var bal jobs.AssignmentBalance
		if err := rows.Scan(&bal.ID, &bal.ClientID, &bal.TemplateID, &bal.StartDate, &bal.EndDate, &bal.Active, &bal.Granted, &bal.Consumed); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, bal)
	}
	return out, rows.Err()
}

func (l *ledgerTx) UsageForJob(ctx context.Context, jobID string, svc jobs.ServiceType) (*jobs.UsageRecord, error) {
	rec, err := scanUsage(l.tx.QueryRow(ctx,
		`SELECT id, assignment_id, service_type, quantity, job_id, created_at
         FROM usage_records WHERE job_id = $1 AND service_type = $2`,
		jobID, string(svc),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("usage for job: %w", err)
	}
	return rec, nil
}

func (l *ledgerTx) InsertUsage(ctx context.Context, rec jobs.UsageRecord) (bool, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = l.now
	}
	tag, err := l.tx.Exec(ctx,
		`INSERT INTO usage_records (id, assignment_id, service_type, quantity, job_id, created_at)
         SELECT $1::text, $2::text, $3::text, $4::int, $5::text, $6::timestamptz
         WHERE (SELECT COALESCE(SUM(quantity), 0) FROM usage_records
                WHERE assignment_id = $2::text AND service_type = $3::text) + $4::int
               <= COALESCE((SELECT i.quantity FROM package_template_items i
                            JOIN client_package_assignments a ON a.template_id = i.template_id
                            WHERE a.id = $2::text AND i.service_type = $3::text), 0)`,
		rec.ID, rec.AssignmentID, string(rec.ServiceType), rec.Quantity, rec.JobID, createdAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert usage: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanUsage(row pgx.Row) (*jobs.UsageRecord, error) {
	var (
		rec jobs.UsageRecord
		svc string
	)
	if err := row.Scan(&rec.ID, &rec.AssignmentID, &svc, &rec.Quantity, &rec.JobID, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.ServiceType = jobs.ServiceType(svc)
	return &rec, nil
}

// Debit runs a standalone entitlement debit in its own transaction.
func (s *Store) Debit(ctx context.Context, debit jobs.Debiter) error {
	if debit == nil {
		return nil
	}
	now := s.timestamp()
	return s.withTx(ctx, func(tx pgx.Tx) error {
		return debit(ctx, &ledgerTx{tx: tx, now: now})
	})
}

// UpsertPackageTemplate creates or replaces a template and its line items.
func (s *Store) UpsertPackageTemplate(ctx context.Context, tmpl jobs.PackageTemplate) error {
	now := s.timestamp()
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO package_templates (id, name, created_at) VALUES ($1, $2, $3)
             ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
			tmpl.ID, tmpl.Name, now,
		); err != nil {
			return fmt.Errorf("upsert template: %w", err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM package_template_items WHERE template_id = $1", tmpl.ID); err != nil {
			return fmt.Errorf("clear template items: %w", err)
		}
		services := make([]jobs.ServiceType, 0, len(tmpl.Items))
		for svc := range tmpl.Items {
			services = append(services, svc)
		}
		sort.Slice(services, func(i, j int) bool { return services[i] < services[j] })
		for _, svc := range services {
			if _, err := tx.Exec(ctx,
				"INSERT INTO package_template_items (template_id, service_type, quantity) VALUES ($1, $2, $3)",
				tmpl.ID, string(svc), tmpl.Items[svc],
			); err != nil {
				return fmt.Errorf("insert template item %s: %w", svc, err)
			}
		}
		return nil
	})
}

// UpsertAssignment creates or replaces a client package assignment.
func (s *Store) UpsertAssignment(ctx context.Context, a jobs.Assignment) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO client_package_assignments (id, client_id, template_id, start_date, end_date, active, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         ON CONFLICT (id) DO UPDATE SET
             client_id = EXCLUDED.client_id,
             template_id = EXCLUDED.template_id,
             start_date = EXCLUDED.start_date,
             end_date = EXCLUDED.end_date,
             active = EXCLUDED.active`,
		a.ID, a.ClientID, a.TemplateID, dateOnly(a.StartDate), dateOnly(a.EndDate), a.Active, s.timestamp(),
	); err != nil {
		return fmt.Errorf("upsert assignment: %w", err)
	}
	return nil
}

// GetAssignment returns an assignment by ID, or nil when missing.
func (s *Store) GetAssignment(ctx context.Context, id string) (*jobs.Assignment, error) {
	var a jobs.Assignment
	err := s.pool.QueryRow(ctx,
		`SELECT id, client_id, template_id, start_date, end_date, active
         FROM client_package_assignments WHERE id = $1`, id,
	).Scan(&a.ID, &a.ClientID, &a.TemplateID, &a.StartDate, &a.EndDate, &a.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return &a, nil
}

// ListAssignments returns a client's assignments ordered by end date.
func (s *Store) ListAssignments(ctx context.Context, clientID string) ([]*jobs.Assignment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, client_id, template_id, start_date, end_date, active
         FROM client_package_assignments WHERE client_id = $1 ORDER BY end_date, id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()
	var out []*jobs.Assignment
	for rows.Next() {
		var a jobs.Assignment
		if err := rows.Scan(&a.ID, &a.ClientID, &a.TemplateID, &a.StartDate, &a.EndDate, &a.Active); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// GetPackageTemplate returns a template with its items, or nil when missing.
func (s *Store) GetPackageTemplate(ctx context.Context, id string) (*jobs.PackageTemplate, error) {
	tmpl := &jobs.PackageTemplate{ID: id, Items: map[jobs.ServiceType]int{}}
	err := s.pool.QueryRow(ctx, "SELECT name FROM package_templates WHERE id = $1", id).Scan(&tmpl.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	rows, err := s.pool.Query(ctx, "SELECT service_type, quantity FROM package_template_items WHERE template_id = $1", id)
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
		tmpl.Items[jobs.ServiceType(svc)] = qty
	}
	return tmpl, rows.Err()
}

// UsageSummary derives granted, consumed, and remaining units per service type
// for one assignment. It returns nil, nil when the assignment does not exist.
func (s *Store) UsageSummary(ctx context.Context, assignmentID string) (*jobs.UsageSummary, error) {
	a, err := s.GetAssignment(ctx, assignmentID)
	if err != nil || a == nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT i.service_type, i.quantity,
                COALESCE((SELECT SUM(u.quantity) FROM usage_records u
                          WHERE u.assignment_id = $1 AND u.service_type = i.service_type), 0)::int
         FROM package_template_items i
         WHERE i.template_id = $2
         ORDER BY i.service_type`,
		a.ID, a.TemplateID,
	)
	if err != nil {
		return nil, fmt.Errorf("usage summary: %w", err)
	}
	defer rows.Close()

	summary := &jobs.UsageSummary{Assignment: *a}
	for rows.Next() {
		var (
			line jobs.UsageLine
			svc  string
		)
		if err := rows.Scan(&svc, &line.Granted, &line.Consumed); err != nil {
			return nil, fmt.Errorf("scan usage line: %w", err)
		}
		line.ServiceType = jobs.ServiceType(svc)
		line.Remaining = line.Granted - line.Consumed
		summary.Lines = append(summary.Lines, line)
	}
	return summary, rows.Err()
}
