package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"studioflow/internal/jobs"
	"studioflow/internal/logging"
	"studioflow/internal/services"
)

// Store persists notifications and lists the administrators who receive them.
type Store interface {
	ListWorkers(ctx context.Context, filter jobs.WorkerFilter) ([]*jobs.Worker, error)
	InsertNotification(ctx context.Context, n *jobs.Notification) error
}

// Event is one committed transition.
type Event struct {
	Kind   Kind
	Before *jobs.Job
	// After is nil for deletions.
	After *jobs.Job
	Actor jobs.Actor
	Note  string
	// UnassignedRole is set when the job entered a stage nobody could take.
	UnassignedRole jobs.Role
}

func (ev Event) job() *jobs.Job {
	if ev.After != nil {
		return ev.After
	}
	return ev.Before
}

// Recipient is one distinct notification target.
type Recipient struct {
	WorkerID string
	// Assigned marks the worker who just became the job's assignee.
	Assigned bool
}

// Fanout turns a transition into one notification per interested worker.
type Fanout struct {
	store     Store
	publisher Publisher
	prefix    string
	logger    *slog.Logger
	now       func() time.Time
}

// NewFanout constructs a Fanout publishing on topics named with prefix.
func NewFanout(store Store, publisher Publisher, prefix string, logger *slog.Logger) *Fanout {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if prefix == "" {
		prefix = "studioflow"
	}
	return &Fanout{
		store:     store,
		publisher: publisher,
		prefix:    prefix,
		logger:    logging.NewComponentLogger(logger, "notifications"),
		now:       time.Now,
	}
}

// Recipients computes the ordered recipient set: the new assignee, then the
// creator, then active admins and coordinators. The actor never appears and
// nobody appears twice. When the administrator lookup fails the partial set is
// returned alongside the error.
func (f *Fanout) Recipients(ctx context.Context, ev Event) ([]Recipient, error) {
	job := ev.job()
	if job == nil {
		return nil, nil
	}
	seen := map[string]struct{}{}
	var out []Recipient
	add := func(id string, assigned bool) {
		if id == "" || id == ev.Actor.ID {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, Recipient{WorkerID: id, Assigned: assigned})
	}

	previous := ""
	if ev.Before != nil {
		previous = ev.Before.AssigneeID
	}
	if ev.After != nil && ev.After.AssigneeID != previous {
		add(ev.After.AssigneeID, true)
	}
	add(job.CreatorID, false)

	admins, err := f.store.ListWorkers(ctx, jobs.WorkerFilter{
		Roles:      []jobs.Role{jobs.RoleAdmin, jobs.RoleCoordinator},
		ActiveOnly: true,
	})
	if err != nil {
		return out, fmt.Errorf("list administrators: %w", err)
	}
	for _, w := range admins {
		add(w.ID, false)
	}
	return out, nil
}

// Notify stores and publishes one notification per recipient. Delivery is
// best-effort: failures are logged per recipient and never returned. It
// reports the notifications that were stored.
func (f *Fanout) Notify(ctx context.Context, ev Event) []*jobs.Notification {
	job := ev.job()
	if job == nil {
		return nil
	}
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, f.logger)

	recipients, err := f.Recipients(ctx, ev)
	if err != nil {
		logging.WarnWithContext(logger, "notification recipients incomplete", "notification_recipients_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check store connectivity"),
			logging.String(logging.FieldImpact, "administrators were not notified of this transition"),
		)
	}

	var delivered []*jobs.Notification
	for _, r := range recipients {
		kind := ev.Kind
		if r.Assigned {
			kind = KindAssigned
		}
		msg := compose(kind, ev, job)
		n := &jobs.Notification{
			ID:          uuid.NewString(),
			RecipientID: r.WorkerID,
			Kind:        string(kind),
			Title:       msg.Title,
			Body:        msg.Body,
			CreatedAt:   f.now().UTC(),
		}
		if ev.Kind != KindDeleted {
			n.JobID = job.ID
		}
		if err := f.store.InsertNotification(ctx, n); err != nil {
			logging.WarnWithContext(logger, "notification not stored", "notification_store_failed",
				logging.String("recipient_id", r.WorkerID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check store connectivity"),
				logging.String(logging.FieldImpact, "recipient will not see this notification in their inbox"),
			)
		} else {
			delivered = append(delivered, n)
		}
		if err := f.publisher.Publish(ctx, WorkerTopic(f.prefix, r.WorkerID), msg); err != nil {
			logging.WarnWithContext(logger, "notification push failed", "notification_push_failed",
				logging.String("recipient_id", r.WorkerID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_url and ntfy availability"),
				logging.String(logging.FieldImpact, "recipient gets no real-time alert"),
			)
		}
	}

	if ev.UnassignedRole != "" {
		if err := f.publisher.Publish(ctx, RoleTopic(f.prefix, ev.UnassignedRole), advisory(ev.UnassignedRole, job)); err != nil {
			logging.WarnWithContext(logger, "assignment advisory push failed", "notification_push_failed",
				logging.String("role", string(ev.UnassignedRole)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "role members are not told the stage needs an owner"),
			)
		}
	}

	logger.Debug("notifications fanned out",
		logging.String(logging.FieldEventType, string(ev.Kind)),
		logging.Int("recipients", len(recipients)),
		logging.Int("stored", len(delivered)),
	)
	return delivered
}
