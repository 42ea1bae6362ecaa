// Package notifications fans a committed job transition out to the workers
// who care about it.
//
// Fanout computes a de-duplicated recipient set (new assignee, creator, active
// admins and coordinators, never the actor), stores one notification per
// recipient, and pushes it to the recipient's ntfy topic. Delivery is
// best-effort: every failure is logged and none is returned, so a broken push
// channel never undoes a transition.
//
// Publisher is the transport seam. NewPublisher returns an ntfy client when
// notifications.ntfy_url is configured and a no-op otherwise.
package notifications
