package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"studioflow/internal/testsupport"
)

const testTokenSecret = "cli-test-secret-0123456789"

const testFixture = `
workers:
  - {id: admin-1, name: Ada, role: admin}
  - {id: coord-1, name: Cole, role: coordinator}
  - {id: cap-1, name: Cara, role: capture_specialist}
  - {id: pp-1, name: Kai, role: post_production_specialist}
  - {id: client-1, name: Northwind, role: client}
templates:
  - id: gold
    name: Gold
    items: {capture: 2, post_production: 2}
assignments:
  - {id: pkg-1, client: client-1, template: gold, start: 2020-01-01, end: 2099-12-31}
`

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("STUDIOFLOW_ACTOR", "")
	t.Setenv("STUDIOFLOW_TOKEN_SECRET", "")
	t.Setenv("STUDIOFLOW_NTFY_URL", "")

	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf("[paths]\ndata_dir = %q\nlog_dir = %q\n\n[api]\ntoken_secret = %q\n",
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
		testTokenSecret,
	)
	testsupport.WriteFile(t, configPath, content)

	return &cliTestEnv{baseDir: base, configPath: configPath}
}

// seed loads testFixture into the environment's store.
func (e *cliTestEnv) seed(t *testing.T) {
	t.Helper()
	path := filepath.Join(e.baseDir, "fixture.yaml")
	testsupport.WriteFile(t, path, testFixture)
	if _, _, err := runCLI(t, []string{"seed", path}, e.configPath); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func decodeJSON[T any](t *testing.T, raw string) T {
	t.Helper()
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return out
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
