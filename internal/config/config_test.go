package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioflow/internal/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"STUDIOFLOW_POSTGRES_URL", "STUDIOFLOW_TOKEN_SECRET", "STUDIOFLOW_NTFY_URL", "STUDIOFLOW_LOG_LEVEL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Chdir(t.TempDir())
	return home
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	home := isolateEnv(t)

	cfg, resolved, exists, err := config.Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, resolved)
	assert.False(t, exists, "expected config file to be absent in temp HOME")

	wantData := filepath.Join(home, ".local", "share", "studioflow")
	assert.Equal(t, wantData, cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join(wantData, "logs"), cfg.Paths.LogDir)
	assert.Equal(t, config.DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(wantData, "studioflow.db"), cfg.Store.SQLitePath)
	assert.Equal(t, "127.0.0.1:7620", cfg.API.Bind)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 1, cfg.Ledger.UnitsPerStage)
	assert.Equal(t, "studioflow", cfg.Notifications.TopicPrefix)
	assert.Equal(t, filepath.Join(wantData, "studioflow.lock"), cfg.LockPath())
}

func TestLoadFromFile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "studioflow.toml")

	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Logging.Format = "JSON"
	cfg.Logging.Level = "Debug"
	cfg.Notifications.NtfyURL = "https://ntfy.example.com/"
	cfg.Notifications.TopicPrefix = "-studio-"
	cfg.Ledger.UnitsPerStage = 2
	data, err := toml.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, resolved, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, path, resolved)
	assert.Equal(t, "json", loaded.Logging.Format)
	assert.Equal(t, "debug", loaded.Logging.Level)
	assert.Equal(t, "https://ntfy.example.com", loaded.Notifications.NtfyURL)
	assert.Equal(t, "studio", loaded.Notifications.TopicPrefix)
	assert.Equal(t, 2, loaded.Ledger.UnitsPerStage)
	assert.Equal(t, filepath.Join(dir, "data", "studioflow.db"), loaded.Store.SQLitePath)
}

func TestLoadAppliesDotEnvAndEnvironment(t *testing.T) {
	isolateEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("STUDIOFLOW_TOKEN_SECRET=from-dotenv-0123456789\n"), 0o600))
	t.Setenv("STUDIOFLOW_LOG_LEVEL", "warn")

	cfg, _, _, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv-0123456789", cfg.API.TokenSecret)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.NoError(t, cfg.RequireTokenSecret())
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[store\ndriver="), 0o644))

	_, _, _, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"defaults", func(*config.Config) {}, ""},
		{"unknown driver", func(c *config.Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"postgres without url", func(c *config.Config) { c.Store.Driver = config.DriverPostgres }, "store.postgres_url"},
		{"postgres with url", func(c *config.Config) {
			c.Store.Driver = config.DriverPostgres
			c.Store.PostgresURL = "postgres://localhost/db"
		}, ""},
		{"zero conns", func(c *config.Config) { c.Store.MaxConns = 0 }, "store.max_conns"},
		{"bad timeout", func(c *config.Config) { c.Notifications.RequestTimeout = -1 }, "notifications.request_timeout"},
		{"bad ntfy url", func(c *config.Config) { c.Notifications.NtfyURL = "ntfy.sh" }, "notifications.ntfy_url"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"zero units", func(c *config.Config) { c.Ledger.UnitsPerStage = 0 }, "ledger.units_per_stage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store.SQLitePath = "/tmp/studioflow.db"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRequireTokenSecret(t *testing.T) {
	cfg := config.Default()
	assert.Error(t, cfg.RequireTokenSecret())
	cfg.API.TokenSecret = "0123456789abcdef"
	assert.NoError(t, cfg.RequireTokenSecret())
}

func TestCreateSampleRoundTrips(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, config.CreateSample(path))

	cfg, _, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, config.DriverSQLite, cfg.Store.Driver)
	assert.Empty(t, cfg.Notifications.NtfyURL)
}
