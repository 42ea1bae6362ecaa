package jobs

import (
	"context"
	"errors"
	"fmt"
)

// InsertNotification stores a delivered notification for its recipient.
func (s *Store) InsertNotification(ctx context.Context, n *Notification) error {
	if n == nil {
		return errors.New("insert notification: nil notification")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.timestamp()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO notifications (id, recipient_id, kind, title, body, job_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.RecipientID, n.Kind, n.Title, n.Body, nullableString(n.JobID), formatTime(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a recipient's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, recipientID string, limit int) ([]*Notification, error) {
	query := `SELECT id, recipient_id, kind, title, body, job_id, created_at
              FROM notifications WHERE recipient_id = ? ORDER BY created_at DESC, id`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	var out []*Notification
	for rows.Next() {
		n, err := ScanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ScanNotification reads one notifications row.
func ScanNotification(scanner JobScanner) (*Notification, error) {
	var (
		n          Notification
		jobID      *string
		createdRaw any
	)
	if err := scanner.Scan(&n.ID, &n.RecipientID, &n.Kind, &n.Title, &n.Body, &jobID, &createdRaw); err != nil {
		return nil, err
	}
	if jobID != nil {
		n.JobID = *jobID
	}
	n.CreatedAt = scanTime(createdRaw)
	return &n, nil
}
