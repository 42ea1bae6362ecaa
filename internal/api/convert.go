package api

import (
	"time"

	"studioflow/internal/jobs"
	"studioflow/internal/ledger"
	"studioflow/internal/orchestrator"
	"studioflow/internal/workflow"
)

// FromJob converts a stored job to its API representation.
func FromJob(job *jobs.Job) *Job {
	if job == nil {
		return nil
	}
	dto := &Job{
		ID:                   job.ID,
		Title:                job.Title,
		Type:                 string(job.Type),
		Status:               string(job.Status),
		Stage:                string(job.Stage),
		ChainID:              job.ChainID,
		WorkflowOrder:        job.WorkflowOrder,
		DependsOn:            job.DependsOn,
		AssigneeID:           job.AssigneeID,
		CreatorID:            job.CreatorID,
		ClientID:             job.ClientID,
		PriceCents:           job.PriceCents,
		ExtraCostCents:       job.ExtraCostCents,
		ExtraCostReason:      job.ExtraCostReason,
		CountsAgainstPackage: job.CountsAgainstPackage,
		History:              make([]HistoryEntry, 0, len(job.History)),
		Version:              job.Version,
		CreatedAt:            formatTimestamp(job.CreatedAt),
		UpdatedAt:            formatTimestamp(job.UpdatedAt),
	}
	for _, h := range job.History {
		dto.History = append(dto.History, HistoryEntry{
			FromStage:  string(h.FromStage),
			ToStage:    string(h.ToStage),
			FromStatus: string(h.FromStatus),
			ToStatus:   string(h.ToStatus),
			At:         formatTimestamp(h.At),
			ActorID:    h.ActorID,
			Note:       h.Note,
		})
	}
	return dto
}

// FromJobs converts a slice of jobs, never returning nil so lists encode as [].
func FromJobs(list []*jobs.Job) []Job {
	out := make([]Job, 0, len(list))
	for _, job := range list {
		if dto := FromJob(job); dto != nil {
			out = append(out, *dto)
		}
	}
	return out
}

// FromWarnings converts state machine warnings.
func FromWarnings(warnings []workflow.Warning) []Warning {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]Warning, len(warnings))
	for i, w := range warnings {
		out[i] = Warning{Code: w.Code, Message: w.Message, Role: w.Role}
	}
	return out
}

// FromReceipt converts a debit receipt. A receipt with no record means no
// debit ran.
func FromReceipt(r *ledger.Receipt) *Receipt {
	if r == nil || r.Record.ID == "" {
		return nil
	}
	return &Receipt{
		UsageID:      r.Record.ID,
		AssignmentID: r.Record.AssignmentID,
		ServiceType:  string(r.Record.ServiceType),
		Quantity:     r.Record.Quantity,
		Existing:     r.Existing,
	}
}

// FromUsageSummary converts a derived usage summary.
func FromUsageSummary(s *jobs.UsageSummary) UsageSummary {
	if s == nil {
		return UsageSummary{}
	}
	dto := UsageSummary{
		AssignmentID: s.Assignment.ID,
		ClientID:     s.Assignment.ClientID,
		TemplateID:   s.Assignment.TemplateID,
		StartDate:    s.Assignment.StartDate.Format(jobs.DateLayout),
		EndDate:      s.Assignment.EndDate.Format(jobs.DateLayout),
		Active:       s.Assignment.Active,
		Lines:        make([]UsageLine, len(s.Lines)),
	}
	for i, line := range s.Lines {
		dto.Lines[i] = UsageLine{
			ServiceType: string(line.ServiceType),
			Granted:     line.Granted,
			Consumed:    line.Consumed,
			Remaining:   line.Remaining,
		}
	}
	return dto
}

// FromClientPackages converts a client's package listing.
func FromClientPackages(clientID string, list []orchestrator.ClientPackage) PackageListResponse {
	resp := PackageListResponse{ClientID: clientID, Packages: make([]ClientPackage, len(list))}
	for i, p := range list {
		dto := ClientPackage{
			AssignmentID: p.Assignment.ID,
			TemplateID:   p.Assignment.TemplateID,
			StartDate:    p.Assignment.StartDate.Format(jobs.DateLayout),
			EndDate:      p.Assignment.EndDate.Format(jobs.DateLayout),
			Active:       p.Assignment.Active,
			Items:        map[string]int{},
		}
		if p.Template != nil {
			dto.TemplateName = p.Template.Name
			for svc, qty := range p.Template.Items {
				dto.Items[string(svc)] = qty
			}
		}
		resp.Packages[i] = dto
	}
	return resp
}

// FromNotifications converts stored notifications.
func FromNotifications(list []*jobs.Notification) []Notification {
	out := make([]Notification, 0, len(list))
	for _, n := range list {
		out = append(out, Notification{
			ID:          n.ID,
			RecipientID: n.RecipientID,
			Kind:        n.Kind,
			Title:       n.Title,
			Body:        n.Body,
			JobID:       n.JobID,
			CreatedAt:   formatTimestamp(n.CreatedAt),
		})
	}
	return out
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
