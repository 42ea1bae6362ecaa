package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"

	"studioflow/internal/jobs"
	"studioflow/internal/ledger"
	"studioflow/internal/workflow"
)

const detailLabelWidth = 14

func statusColor(status jobs.Status) text.Colors {
	switch status {
	case jobs.StatusInProgress:
		return text.Colors{text.FgBlue}
	case jobs.StatusReview:
		return text.Colors{text.FgYellow}
	case jobs.StatusCompleted, jobs.StatusDelivered:
		return text.Colors{text.FgGreen}
	default:
		return nil
	}
}

func renderStatus(status jobs.Status, colorize bool) string {
	label := string(status)
	if colorize {
		if colors := statusColor(status); colors != nil {
			return colors.Sprint(label)
		}
	}
	return label
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func jobRows(list []*jobs.Job, colorize bool) [][]string {
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		order := "-"
		if job.WorkflowOrder > 0 {
			order = strconv.Itoa(job.WorkflowOrder)
		}
		rows = append(rows, []string{
			job.ID,
			job.Title,
			string(job.Type),
			renderStatus(job.Status, colorize),
			orDash(string(job.Stage)),
			order,
			orDash(job.AssigneeID),
			job.ClientID,
			strconv.Itoa(job.Version),
		})
	}
	return rows
}

func renderJobTable(w io.Writer, list []*jobs.Job, colorize bool) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No jobs")
		return
	}
	headers := []string{"ID", "Title", "Type", "Status", "Stage", "Order", "Assignee", "Client", "Version"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight}
	fmt.Fprintln(w, renderTable(headers, jobRows(list, colorize), aligns, colorize))
}

func renderJobDetail(w io.Writer, job *jobs.Job, colorize bool) {
	line := func(label, value string) {
		fmt.Fprintf(w, "%-*s %s\n", detailLabelWidth, label+":", value)
	}
	line("ID", job.ID)
	line("Title", job.Title)
	line("Type", string(job.Type))
	line("Status", renderStatus(job.Status, colorize))
	if job.Chained() {
		line("Stage", string(job.Stage))
		line("Chain", fmt.Sprintf("%s (step %d)", job.ChainID, job.WorkflowOrder))
		line("Depends on", orDash(job.DependsOn))
	}
	line("Assignee", orDash(job.AssigneeID))
	line("Client", job.ClientID)
	line("Creator", job.CreatorID)
	line("Price", formatCents(job.PriceCents))
	if job.ExtraCostCents != 0 {
		line("Extra cost", fmt.Sprintf("%s (%s)", formatCents(job.ExtraCostCents), orDash(job.ExtraCostReason)))
	}
	line("Package", yesNo(job.CountsAgainstPackage))
	line("Version", strconv.Itoa(job.Version))
	if len(job.History) == 0 {
		return
	}
	fmt.Fprintln(w, "History:")
	for _, h := range job.History {
		move := fmt.Sprintf("%s -> %s", h.FromStatus, h.ToStatus)
		if h.FromStage != h.ToStage {
			move = fmt.Sprintf("%s -> %s, %s", orDash(string(h.FromStage)), orDash(string(h.ToStage)), move)
		}
		entry := fmt.Sprintf("  %s  %s  by %s", h.At.UTC().Format("2006-01-02 15:04"), move, h.ActorID)
		if h.Note != "" {
			entry += "  " + strconv.Quote(h.Note)
		}
		fmt.Fprintln(w, entry)
	}
}

func renderWarnings(w io.Writer, warnings []workflow.Warning) {
	for _, warning := range warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning.Message)
	}
}

func renderReceipt(w io.Writer, receipt *ledger.Receipt) {
	if receipt == nil || receipt.Record.ID == "" {
		return
	}
	rec := receipt.Record
	if receipt.Existing {
		fmt.Fprintf(w, "Already debited %d %s from %s\n", rec.Quantity, rec.ServiceType, rec.AssignmentID)
		return
	}
	fmt.Fprintf(w, "Debited %d %s from %s\n", rec.Quantity, rec.ServiceType, rec.AssignmentID)
}
