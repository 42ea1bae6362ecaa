package preflight

import (
	"context"
	"strings"

	"studioflow/internal/config"
)

// Result reports the outcome of a single preflight check. Optional results
// never block startup.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// SchemaReporter is implemented by both record stores.
type SchemaReporter interface {
	SchemaVersion(ctx context.Context) (int, error)
}

// RunAll executes all applicable preflight checks for the given config.
// store may be nil when it could not be opened; that check then fails.
func RunAll(ctx context.Context, cfg *config.Config, store SchemaReporter) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckStore(ctx, cfg.Store.Driver, store),
		CheckTokenSecret(cfg),
	}

	if strings.TrimSpace(cfg.Notifications.NtfyURL) != "" {
		ntfy := CheckNtfy(ctx, cfg.Notifications.NtfyURL)
		ntfy.Optional = true
		results = append(results, ntfy)
	}

	return results
}

// Failed returns the required results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}
