package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"studioflow/internal/api"
	"studioflow/internal/logging"
	"studioflow/internal/notifications"
	"studioflow/internal/orchestrator"
	"studioflow/internal/preflight"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.API.Bind = bind
			}
			if err := cfg.RequireTokenSecret(); err != nil {
				return err
			}

			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire server lock: %w", err)
			}
			if !locked {
				return errors.New("another studioflow server is already running")
			}
			defer func() { _ = lock.Unlock() }()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := openStore(runCtx, cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			if failed := preflight.Failed(preflight.RunAll(runCtx, cfg, store)); len(failed) > 0 {
				return fmt.Errorf("readiness check failed: %s (%s)", failed[0].Name, failed[0].Detail)
			}

			orch := orchestrator.New(cfg, store, notifications.NewPublisher(cfg), logger)
			server, err := api.NewServer(cfg, orch, logger)
			if err != nil {
				return err
			}
			if err := server.Start(runCtx); err != nil {
				return err
			}
			logger.Info("studioflow serving",
				logging.String("address", server.Addr()),
				logging.String("store_driver", cfg.Store.Driver),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s/v1\n", server.Addr())

			<-runCtx.Done()
			server.Stop()
			logger.Info("studioflow stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override api.bind")
	return cmd
}
