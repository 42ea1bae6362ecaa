package jobs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const jobColumns = "id, title, job_type, status, stage, chain_id, workflow_order, depends_on, assignee_id, creator_id, client_id, price_cents, extra_cost_cents, extra_cost_reason, counts_against_package, history, version, created_at, updated_at"

// JobScanner is satisfied by *sql.Row, *sql.Rows, and pgx rows.
type JobScanner interface {
	Scan(dest ...any) error
}

// ScanJob reads one row selected with the jobs column list in table order.
func ScanJob(scanner JobScanner) (*Job, error) {
	var (
		id              string
		title           string
		jobType         string
		status          string
		stage           string
		chainID         sql.NullString
		workflowOrder   sql.NullInt64
		dependsOn       sql.NullString
		assigneeID      sql.NullString
		creatorID       string
		clientID        string
		priceCents      int64
		extraCostCents  int64
		extraCostReason sql.NullString
		counts          bool
		historyRaw      string
		version         int
		createdRaw      any
		updatedRaw      any
	)

	if err := scanner.Scan(
		&id,
		&title,
		&jobType,
		&status,
		&stage,
		&chainID,
		&workflowOrder,
		&dependsOn,
		&assigneeID,
		&creatorID,
		&clientID,
		&priceCents,
		&extraCostCents,
		&extraCostReason,
		&counts,
		&historyRaw,
		&version,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	history, err := DecodeHistory(historyRaw)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", id, err)
	}

	job := &Job{
		ID:                   id,
		Title:                title,
		Type:                 JobType(jobType),
		Status:               Status(status),
		Stage:                Stage(stage),
		ChainID:              chainID.String,
		WorkflowOrder:        int(workflowOrder.Int64),
		DependsOn:            dependsOn.String,
		AssigneeID:           assigneeID.String,
		CreatorID:            creatorID,
		ClientID:             clientID,
		PriceCents:           priceCents,
		ExtraCostCents:       extraCostCents,
		ExtraCostReason:      extraCostReason.String,
		CountsAgainstPackage: counts,
		History:              history,
		Version:              version,
		CreatedAt:            scanTime(createdRaw),
		UpdatedAt:            scanTime(updatedRaw),
	}
	return job, nil
}

// EncodeHistory serializes a history slice for storage.
func EncodeHistory(history []HistoryEntry) (string, error) {
	if len(history) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("encode history: %w", err)
	}
	return string(data), nil
}

// DecodeHistory parses a stored history column.
func DecodeHistory(raw string) ([]HistoryEntry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var history []HistoryEntry
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return history, nil
}

// scanTime accepts the RFC3339 text SQLite stores and the time.Time pgx returns.
func scanTime(value any) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v.UTC()
	case string:
		if t, err := parseTimeString(v); err == nil {
			return t
		}
	case []byte:
		if t, err := parseTimeString(string(v)); err == nil {
			return t
		}
	}
	return time.Time{}
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty time string")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return t, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
