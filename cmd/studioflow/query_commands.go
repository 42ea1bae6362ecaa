package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"studioflow/internal/api"
	"studioflow/internal/jobs"
	"studioflow/internal/orchestrator"
)

func newUsageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "usage <assignment-id>",
		Short: "Show granted, consumed, and remaining units of a package assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(cmd, func(runCtx context.Context, orch *orchestrator.Orchestrator, actor jobs.Actor) error {
				summary, err := orch.UsageSummary(runCtx, actor, args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FromUsageSummary(summary))
				}
				out := cmd.OutOrStdout()
				a := summary.Assignment
				fmt.Fprintf(out, "Assignment %s for %s (template %s)\n", a.ID, a.ClientID, a.TemplateID)
				fmt.Fprintf(out, "Window %s to %s, active: %s\n",
					a.StartDate.Format(jobs.DateLayout), a.EndDate.Format(jobs.DateLayout), yesNo(a.Active))
				rows := make([][]string, 0, len(summary.Lines))
				for _, line := range summary.Lines {
					rows = append(rows, []string{
						string(line.ServiceType),
						strconv.Itoa(line.Granted),
						strconv.Itoa(line.Consumed),
						strconv.Itoa(line.Remaining),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Service", "Granted", "Consumed", "Remaining"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
					shouldColorize(out),
				))
				return nil
			})
		},
	}
}

func newPackagesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "packages [client-id]",
		Short: "List a client's package assignments (clients default to their own)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID := ""
			if len(args) == 1 {
				clientID = args[0]
			}
			return ctx.withOrchestrator(cmd, func(runCtx context.Context, orch *orchestrator.Orchestrator, actor jobs.Actor) error {
				list, err := orch.ClientPackages(runCtx, actor, clientID)
				if err != nil {
					return err
				}
				if clientID == "" {
					clientID = actor.ID
				}
				resp := api.FromClientPackages(clientID, list)
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Packages) == 0 {
					fmt.Fprintf(out, "No packages for %s\n", clientID)
					return nil
				}
				rows := make([][]string, 0, len(resp.Packages))
				for _, p := range resp.Packages {
					rows = append(rows, []string{
						p.AssignmentID,
						orDash(p.TemplateName),
						p.StartDate,
						p.EndDate,
						yesNo(p.Active),
						formatItems(p.Items),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Assignment", "Template", "Start", "End", "Active", "Grants"},
					rows,
					nil,
					shouldColorize(out),
				))
				return nil
			})
		},
	}
}

func formatItems(items map[string]int) string {
	if len(items) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(items))
	for svc := range items {
		keys = append(keys, svc)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, svc := range keys {
		parts[i] = fmt.Sprintf("%s x%d", svc, items[svc])
	}
	return strings.Join(parts, ", ")
}

func newNotificationsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "notifications [worker-id]",
		Short: "List stored notifications, newest first (defaults to the actor's own)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipient := ""
			if len(args) == 1 {
				recipient = args[0]
			}
			return ctx.withOrchestrator(cmd, func(runCtx context.Context, orch *orchestrator.Orchestrator, actor jobs.Actor) error {
				list, err := orch.Notifications(runCtx, actor, recipient, limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.NotificationListResponse{Notifications: api.FromNotifications(list)})
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No notifications")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, n := range list {
					rows = append(rows, []string{
						n.CreatedAt.UTC().Format("2006-01-02 15:04"),
						n.Kind,
						n.Title,
						orDash(n.JobID),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"When", "Kind", "Title", "Job"},
					rows,
					nil,
					shouldColorize(out),
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of notifications (default 50)")
	return cmd
}
