package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"studioflow/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run readiness checks against the configured paths, store, and push server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var results []preflight.Result
			err = ctx.withStore(cmd, func(runCtx context.Context, store recordStore, _ *slog.Logger) error {
				results = preflight.RunAll(runCtx, cfg, store)
				return nil
			})
			if err != nil {
				results = preflight.RunAll(cmd.Context(), cfg, nil)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("studioflow readiness", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range preflightLines(results, colorize) {
				fmt.Fprintln(out, line)
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d readiness check(s) failed: %s", len(failed), failedNames(failed))
			}
			return nil
		},
	}
}

func failedNames(results []preflight.Result) string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Name
	}
	return strings.Join(names, ", ")
}
