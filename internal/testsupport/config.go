package testsupport

import (
	"path/filepath"
	"testing"

	"studioflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Store.SQLitePath = filepath.Join(base, "data", "studioflow.db")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.API.TokenSecret = "test-secret-0123456789abcdef"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithNtfyURL points notification delivery at url, typically an httptest server.
func WithNtfyURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyURL = url
	}
}

// WithUnitsPerStage overrides the quantity debited per stage entry.
func WithUnitsPerStage(units int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.UnitsPerStage = units
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
