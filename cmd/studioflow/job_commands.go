package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"studioflow/internal/api"
	"studioflow/internal/jobs"
	"studioflow/internal/orchestrator"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Create, move, and inspect jobs",
	}

	jobCmd.AddCommand(newJobCreateCommand(ctx))
	jobCmd.AddCommand(newJobChainCommand(ctx))
	jobCmd.AddCommand(newJobAdvanceCommand(ctx))
	jobCmd.AddCommand(newJobCompleteCommand(ctx))
	jobCmd.AddCommand(newJobStatusCommand(ctx))
	jobCmd.AddCommand(newJobDeleteCommand(ctx))
	jobCmd.AddCommand(newJobShowCommand(ctx))
	jobCmd.AddCommand(newJobListCommand(ctx))

	return jobCmd
}

func newJobCreateCommand(ctx *commandContext) *cobra.Command {
	var spec orchestrator.JobSpec

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a standalone job",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(cmd, func(runCtx context.Context, orch *orchestrator.Orchestrator, actor jobs.Actor) error {
				res, err := orch.CreateJob(runCtx, actor, spec)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.JobResponse{
						Job:      api.FromJob(res.Job),
						Changed:  true,
						Warnings: api.FromWarnings(res.Warnings),
						Receipt:  api.FromReceipt(res.Receipt),
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created job %s (%s, %s)\n", res.Job.ID, res.Job.Type, orDash(res.Job.AssigneeID))
				renderReceipt(out, res.Receipt)
				renderWarnings(out, res.Warnings)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&spec.Title, "title", "", "Job title")
	flags.StringVar(&spec.Type, "type", "", "Job type (capture, post_production, finishing, consultation, revision)")
	flags.StringVar(&spec.ClientID, "client", "", "Client worker ID")
	flags.StringVar(&spec.AssigneeID, "assignee", "", "Assign explicitly instead of resolving by role")
	flags.StringVar(&spec.DependsOn, "depends-on", "", "Job ID this job depends on")
	flags.Int64Var(&spec.PriceCents, "price", 0, "Price in cents")
	flags.Int64Var(&spec.ExtraCostCents, "extra-cost", 0, "Extra cost in cents")
	flags.StringVar(&spec.ExtraCostReason, "extra-reason", "", "Reason for the extra cost")
	flags.BoolVar(&spec.CountsAgainstPackage, "package", false, "Debit the client's package entitlement")
	return cmd
}

func newJobChainCommand(ctx *commandContext) *cobra.Command {
	var clientID string
	var rawSteps []string
	var countsAgainstPackage bool
	var priceCents int64

	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Create a linked capture, post-production, finishing chain",
		Long: "Each --step is stage:title, optionally followed by @assignee. Steps run in the order given.\n" +
			"Example: --step 'capture:Studio shoot' --step 'post_production:Retouch@pp-1'",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := parseChainSteps(rawSteps)
			if err != nil {
				return err
			}
			for i := range steps {
				steps[i].CountsAgainstPackage = countsAgainstPackage
				steps[i].PriceCents = priceCents
			}
			return ctx.withOrchestrator(cmd, func(runCtx context.Context, orch *orchestrator.Orchestrator, actor jobs.Actor) error {
				res, err := orch.CreateWorkflowChain(runCtx, actor, clientID, steps)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.ChainResponse{
						ChainID:  res.ChainID,
						Jobs:     api.FromJobs(res.Jobs),
						Warnings: api.FromWarnings(res.Warnings),
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created chain %s\n", res.ChainID)
				renderJobTable(out, res.Jobs, shouldColorize(out))
				renderWarnings(out, res.Warnings)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&clientID, "client", "", "Client worker ID")
	flags.StringArrayVar(&rawSteps, "step", nil, "Chain step as stage:title[@assignee] (repeatable)")
	flags.BoolVar(&countsAgainstPackage, "package", false, "Debit the client's package as each stage is entered")
	flags.Int64Var(&priceCents, "price", 0, "Price in cents for every step")
	return cmd
}

func parseChainSteps(raw []string) ([]orchestrator.ChainStep, error) {
	steps := make([]orchestrator.ChainStep, 0, len(raw))
	for _, value := range raw {
		stage, rest, ok := strings.Cut(value, ":")
		if !ok || strings.TrimSpace(stage) == "" {
			return nil, fmt.Errorf("invalid --step %q: expected stage:title[@assignee]", value)
		}
		step := orchestrator.ChainStep{Stage: strings.TrimSpace(stage)}
		title, assignee, hasAssignee := strings.Cut(rest, "@")
		step.Title = strings.TrimSpace(title)
		if hasAssignee {
			step.AssigneeID = strings.TrimSpace(assignee)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func newJobAdvanceCommand(ctx *commandContext) *cobra.Command {
	var note string
	var expectVersion int

	cmd := &cobra.Command{
		Use:   "advance <job-id> <post_production|finishing|handover>",
		Short: "Move a chained job to a later stage or hand it over",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(cmd, func(runCtx context.Context, orch *orchestrator.Orchestrator, actor jobs.Actor) error {
				res, err := orch.AdvanceWorkflow(runCtx, actor, orchestrator.AdvanceRequest{
					JobID:           args[0],
					Target:          args[1],
					Note:            note,
					ExpectedVersion: expectVersion,
				})
				if err != nil {
					return err
				}
				return ctx.printTransition(cmd, res)
			})
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Note recorded in the job history")
	cmd.Flags().IntVar(&expectVersion, "expect-version", 0, "Fail unless the stored job is at this version")
	return cmd
}

func newJobCompleteCommand(ctx *commandContext) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "complete <job-id>",
		Short: "Mark an assigned job completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(cmd, func(runCtx context.Context, orch *orchestrator.Orchestrator, actor jobs.Actor) error {
				res, err := orch.CompleteJob(runCtx, actor, args[0], note)
				if err != nil {
					return err
				}
				return ctx.printTransition(cmd, res)
			})
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Note recorded in the job history")
	return cmd
}

func newJobStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id> <status>",
		Short: "Override a job's status (admin or coordinator)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(cmd, func(runCtx context.Context, orch *orchestrator.Orchestrator, actor jobs.Actor) error {
				res, err := orch.SetJobStatus(runCtx, actor, args[0], args[1])
				if err != nil {
					return err
				}
				return ctx.printTransition(cmd, res)
			})
		},
	}
}

func newJobDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a job (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(cmd, func(runCtx context.Context, orch *orchestrator.Orchestrator, actor jobs.Actor) error {
				res, err := orch.DeleteJob(runCtx, actor, args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.JobResponse{Changed: res.Changed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %s\n", args[0])
				return nil
			})
		},
	}
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a job with its history and chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(cmd, func(runCtx context.Context, orch *orchestrator.Orchestrator, actor jobs.Actor) error {
				job, err := orch.GetJob(runCtx, actor, args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FromJob(job))
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				renderJobDetail(out, job, colorize)
				if !job.Chained() {
					return nil
				}
				chain, err := orch.Chain(runCtx, actor, job.ID)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Chain:")
				renderJobTable(out, chain, colorize)
				return nil
			})
		},
	}
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var filter jobs.JobFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs visible to the actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, raw := range statuses {
				status, ok := jobs.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				filter.Statuses = append(filter.Statuses, status)
			}
			if filter.Limit < 0 {
				return fmt.Errorf("--limit cannot be negative")
			}
			return ctx.withOrchestrator(cmd, func(runCtx context.Context, orch *orchestrator.Orchestrator, actor jobs.Actor) error {
				list, err := orch.ListJobs(runCtx, actor, filter)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.JobListResponse{Jobs: api.FromJobs(list)})
				}
				out := cmd.OutOrStdout()
				renderJobTable(out, list, shouldColorize(out))
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable)")
	flags.StringVar(&filter.AssigneeID, "assignee", "", "Filter by assignee")
	flags.StringVar(&filter.ClientID, "client", "", "Filter by client")
	flags.StringVar(&filter.ChainID, "chain", "", "Filter by chain")
	flags.IntVar(&filter.Limit, "limit", 0, "Maximum number of jobs")
	return cmd
}

func (c *commandContext) printTransition(cmd *cobra.Command, res *orchestrator.TransitionResult) error {
	if c.jsonOutput() {
		return writeJSON(cmd, api.JobResponse{
			Job:      api.FromJob(res.Job),
			Changed:  res.Changed,
			Warnings: api.FromWarnings(res.Warnings),
			Receipt:  api.FromReceipt(res.Receipt),
		})
	}
	out := cmd.OutOrStdout()
	job := res.Job
	if !res.Changed {
		fmt.Fprintf(out, "Job %s unchanged (%s)\n", job.ID, job.Status)
		return nil
	}
	stage := ""
	if job.Chained() {
		stage = ", stage " + string(job.Stage)
	}
	fmt.Fprintf(out, "Job %s is %s%s (assignee %s, version %d)\n",
		job.ID, renderStatus(job.Status, shouldColorize(out)), stage, orDash(job.AssigneeID), job.Version)
	renderReceipt(out, res.Receipt)
	renderWarnings(out, res.Warnings)
	return nil
}
