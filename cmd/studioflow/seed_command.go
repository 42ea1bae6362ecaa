package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"studioflow/internal/seed"
)

func newSeedCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Load workers, package templates, and assignments from YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := seed.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "Fixture valid: %d workers, %d templates, %d assignments\n",
					len(fixture.Workers), len(fixture.Templates), len(fixture.Assignments))
				return nil
			}
			return ctx.withStore(cmd, func(runCtx context.Context, store recordStore, logger *slog.Logger) error {
				summary, err := seed.Apply(runCtx, store, fixture, logger)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, summary)
				}
				fmt.Fprintf(out, "Seeded %d workers, %d templates, %d assignments\n",
					summary.Workers, summary.Templates, summary.Assignments)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the file without writing")
	return cmd
}
