package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"studioflow/internal/api"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <worker-id>",
		Short: "Issue an API bearer token for an active worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireTokenSecret(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = time.Duration(cfg.API.TokenTTLMinutes) * time.Minute
			}
			return ctx.withStore(cmd, func(runCtx context.Context, store recordStore, _ *slog.Logger) error {
				worker, err := store.GetWorker(runCtx, args[0])
				if err != nil {
					return err
				}
				if worker == nil || !worker.Active {
					return fmt.Errorf("worker %q is unknown or inactive", args[0])
				}
				token, err := api.SignToken(cfg.API.TokenSecret, worker.ID, ttl, time.Now())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]string{"workerId": worker.ID, "role": string(worker.Role), "token": token})
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default api.token_ttl_minutes; 0 never expires)")
	return cmd
}
