package notifications

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"studioflow/internal/jobs"
)

// Kind classifies a fan-out event.
type Kind string

const (
	KindCreated       Kind = "created"
	KindAssigned      Kind = "assigned"
	KindStageAdvanced Kind = "stage_advanced"
	KindCompleted     Kind = "completed"
	KindStatusChanged Kind = "status_changed"
	KindDeleted       Kind = "deleted"
)

// humanize turns an enum token like post_production into "Post Production".
// Casers keep state, so each call builds its own.
func humanize(token string) string {
	if token == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(token, "_", " "))
}

func stageLabel(stage jobs.Stage) string {
	if stage == jobs.StageNone {
		return "unstaged"
	}
	return humanize(string(stage))
}

// compose renders the message one recipient receives for ev.
func compose(kind Kind, ev Event, job *jobs.Job) Message {
	title := fmt.Sprintf("%s: %s", humanize(string(kind)), job.Title)
	var body string
	priority := ""

	switch kind {
	case KindAssigned:
		where := humanize(string(job.Type))
		if job.Stage != jobs.StageNone {
			where = stageLabel(job.Stage)
		}
		body = fmt.Sprintf("You have been assigned %q (%s).", job.Title, where)
		priority = "high"
	case KindCreated:
		body = fmt.Sprintf("%q was created for client %s.", job.Title, job.ClientID)
	case KindStageAdvanced:
		from := jobs.StageNone
		if ev.Before != nil {
			from = ev.Before.Stage
		}
		body = fmt.Sprintf("%q moved from %s to %s.", job.Title, stageLabel(from), stageLabel(job.Stage))
	case KindCompleted:
		body = fmt.Sprintf("%q is complete.", job.Title)
	case KindStatusChanged:
		from := ""
		if ev.Before != nil {
			from = humanize(string(ev.Before.Status))
		}
		body = fmt.Sprintf("%q status changed from %s to %s.", job.Title, from, humanize(string(job.Status)))
	case KindDeleted:
		body = fmt.Sprintf("%q was deleted by %s.", job.Title, ev.Actor.ID)
	default:
		body = fmt.Sprintf("%q was updated.", job.Title)
	}
	if note := strings.TrimSpace(ev.Note); note != "" {
		body += "\nNote: " + note
	}
	return Message{
		Title:    title,
		Body:     body,
		Tags:     []string{"studioflow", string(kind)},
		Priority: priority,
	}
}

func advisory(role jobs.Role, job *jobs.Job) Message {
	return Message{
		Title:    "Assignment Needed: " + job.Title,
		Body:     fmt.Sprintf("%q entered %s and no %s was available.", job.Title, stageLabel(job.Stage), humanize(string(role))),
		Tags:     []string{"studioflow", "assignment_unavailable"},
		Priority: "high",
	}
}
