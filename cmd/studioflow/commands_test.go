package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioflow/internal/api"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	require.NoError(t, err)
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "API token secret set: yes")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	require.NoError(t, err)
	requireContains(t, out, "Wrote sample configuration")
	_, err = os.Stat(target)
	require.NoError(t, err)

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestSeedDryRunLeavesStoreEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testFixture), 0o644))

	out, _, err := runCLI(t, []string{"seed", "--dry-run", path}, env.configPath)
	require.NoError(t, err)
	requireContains(t, out, "Fixture valid: 5 workers, 1 templates, 1 assignments")

	_, _, err = runCLI(t, []string{"job", "list", "--as", "admin-1"}, env.configPath)
	require.Error(t, err, "admin-1 was never written")
}

func TestJobCommandsRequireActor(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t)

	_, _, err := runCLI(t, []string{"job", "list"}, env.configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no actor")

	t.Setenv("STUDIOFLOW_ACTOR", "coord-1")
	out, _, err := runCLI(t, []string{"job", "list"}, env.configPath)
	require.NoError(t, err)
	requireContains(t, out, "No jobs")
}

func TestChainLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t)

	out, _, err := runCLI(t, []string{
		"job", "chain", "--as", "coord-1", "--client", "client-1",
		"--step", "capture:Studio shoot",
		"--step", "post_production:Retouch@pp-1",
		"--json",
	}, env.configPath)
	require.NoError(t, err)
	chain := decodeJSON[api.ChainResponse](t, out)
	require.Len(t, chain.Jobs, 2)
	first, second := chain.Jobs[0], chain.Jobs[1]
	assert.Equal(t, "cap-1", first.AssigneeID)
	assert.Equal(t, "pp-1", second.AssigneeID)
	assert.Equal(t, first.ID, second.DependsOn)

	out, _, err = runCLI(t, []string{"job", "advance", first.ID, "handover", "--as", "admin-1", "--note", "wrapped", "--json"}, env.configPath)
	require.NoError(t, err)
	moved := decodeJSON[api.JobResponse](t, out)
	assert.True(t, moved.Changed)
	require.NotNil(t, moved.Job)
	assert.Equal(t, "completed", moved.Job.Status)
	assert.Equal(t, 2, moved.Job.Version)

	out, _, err = runCLI(t, []string{"job", "show", first.ID, "--as", "admin-1"}, env.configPath)
	require.NoError(t, err)
	requireContains(t, out, "Studio shoot")
	requireContains(t, out, "History:")
	requireContains(t, out, `"wrapped"`)
	requireContains(t, out, "Chain:")

	out, _, err = runCLI(t, []string{"job", "list", "--as", "client-1", "--json"}, env.configPath)
	require.NoError(t, err)
	assert.Len(t, decodeJSON[api.JobListResponse](t, out).Jobs, 2)

	out, _, err = runCLI(t, []string{"notifications", "--as", "cap-1", "--json"}, env.configPath)
	require.NoError(t, err)
	assert.NotEmpty(t, decodeJSON[api.NotificationListResponse](t, out).Notifications)

	_, _, err = runCLI(t, []string{"job", "delete", second.ID, "--as", "coord-1"}, env.configPath)
	require.Error(t, err, "only admins delete")

	out, _, err = runCLI(t, []string{"job", "delete", second.ID, "--as", "admin-1"}, env.configPath)
	require.NoError(t, err)
	requireContains(t, out, "Deleted job "+second.ID)
}

func TestCreateJobDebitsPackage(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t)

	out, _, err := runCLI(t, []string{
		"job", "create", "--as", "coord-1",
		"--title", "Headshots", "--type", "capture", "--client", "client-1",
		"--price", "12000", "--package",
	}, env.configPath)
	require.NoError(t, err)
	requireContains(t, out, "Created job")
	requireContains(t, out, "Debited 1 capture from pkg-1")

	out, _, err = runCLI(t, []string{"usage", "pkg-1", "--as", "client-1", "--json"}, env.configPath)
	require.NoError(t, err)
	summary := decodeJSON[api.UsageSummary](t, out)
	require.Len(t, summary.Lines, 2)
	assert.Equal(t, "capture", summary.Lines[0].ServiceType)
	assert.Equal(t, 1, summary.Lines[0].Consumed)
	assert.Equal(t, 1, summary.Lines[0].Remaining)

	out, _, err = runCLI(t, []string{"usage", "pkg-1", "--as", "admin-1"}, env.configPath)
	require.NoError(t, err)
	requireContains(t, out, "REMAINING")
	requireContains(t, out, "post_production")

	out, _, err = runCLI(t, []string{"packages", "--as", "client-1", "--json"}, env.configPath)
	require.NoError(t, err)
	packages := decodeJSON[api.PackageListResponse](t, out)
	assert.Equal(t, "client-1", packages.ClientID)
	require.Len(t, packages.Packages, 1)
	assert.Equal(t, "pkg-1", packages.Packages[0].AssignmentID)
	assert.Equal(t, map[string]int{"capture": 2, "post_production": 2}, packages.Packages[0].Items)

	out, _, err = runCLI(t, []string{"packages", "client-1", "--as", "coord-1"}, env.configPath)
	require.NoError(t, err)
	requireContains(t, out, "capture x2, post_production x2")
}

func TestTokenCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t)

	out, _, err := runCLI(t, []string{"token", "coord-1", "--ttl", "1h"}, env.configPath)
	require.NoError(t, err)
	claims, err := api.VerifyToken(testTokenSecret, strings.TrimSpace(out), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "coord-1", claims.Sub)

	_, _, err = runCLI(t, []string{"token", "nobody"}, env.configPath)
	require.Error(t, err)
}

func TestParseChainSteps(t *testing.T) {
	steps, err := parseChainSteps([]string{"capture:Shoot", "post_production: Edit @ pp-1"})
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "capture", steps[0].Stage)
	assert.Equal(t, "Shoot", steps[0].Title)
	assert.Empty(t, steps[0].AssigneeID)
	assert.Equal(t, "Edit", steps[1].Title)
	assert.Equal(t, "pp-1", steps[1].AssigneeID)

	_, err = parseChainSteps([]string{"Shoot"})
	require.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	require.NoError(t, err)
	requireContains(t, out, "studioflow readiness")
	requireContains(t, out, "Record store (sqlite):")
	requireContains(t, out, "[OK] configured")

	t.Setenv("STUDIOFLOW_TOKEN_SECRET", "short")
	out, _, err = runCLI(t, []string{"check"}, env.configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API token secret")
	requireContains(t, out, "[ERROR]")
}
