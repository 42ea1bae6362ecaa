package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"studioflow/internal/config"
	"studioflow/internal/jobs"
	"studioflow/internal/jobs/pgstore"
	"studioflow/internal/logging"
	"studioflow/internal/notifications"
	"studioflow/internal/orchestrator"
	"studioflow/internal/preflight"
	"studioflow/internal/seed"
)

const actorEnv = "STUDIOFLOW_ACTOR"

// recordStore is what both store drivers provide to the CLI.
type recordStore interface {
	orchestrator.Store
	seed.Store
	preflight.SchemaReporter
	Close() error
}

type commandContext struct {
	configFlag *string
	actorFlag  *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, actorFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		actorFlag:  actorFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) actorID() string {
	if c.actorFlag != nil {
		if id := strings.TrimSpace(*c.actorFlag); id != "" {
			return id
		}
	}
	return strings.TrimSpace(os.Getenv(actorEnv))
}

// fileLogger logs to the configured log file only, keeping the terminal for
// command output.
func fileLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      "json",
		OutputPaths: []string{cfg.LogPath()},
	})
}

func openStore(ctx context.Context, cfg *config.Config) (recordStore, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		store, err := pgstore.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := jobs.Open(cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// withStore opens the configured store for the duration of fn.
func (c *commandContext) withStore(cmd *cobra.Command, fn func(context.Context, recordStore, *slog.Logger) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := fileLogger(cfg)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	return fn(ctx, store, logger)
}

// withOrchestrator resolves the acting worker and hands fn a ready orchestrator.
func (c *commandContext) withOrchestrator(cmd *cobra.Command, fn func(context.Context, *orchestrator.Orchestrator, jobs.Actor) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	actorID := c.actorID()
	if actorID == "" {
		return errors.New("no actor: pass --as <worker-id> or set " + actorEnv)
	}
	return c.withStore(cmd, func(ctx context.Context, store recordStore, logger *slog.Logger) error {
		orch := orchestrator.New(cfg, store, notifications.NewPublisher(cfg), logger)
		actor, err := orch.ResolveActor(ctx, actorID)
		if err != nil {
			return err
		}
		return fn(ctx, orch, actor)
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
