package preflight

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"studioflow/internal/config"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStore confirms the record store answers and carries a schema.
func CheckStore(ctx context.Context, driver string, store SchemaReporter) Result {
	name := "Record store (" + driver + ")"
	if store == nil {
		return Result{Name: name, Detail: "not open"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	version, err := store.SchemaVersion(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("schema check failed (%v)", err)}
	}
	if version == 0 {
		return Result{Name: name, Detail: "schema missing"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("schema v%d", version)}
}

// CheckTokenSecret reports whether the API can sign bearer tokens.
func CheckTokenSecret(cfg *config.Config) Result {
	const name = "API token secret"
	if err := cfg.RequireTokenSecret(); err != nil {
		return Result{Name: name, Detail: "missing or shorter than 16 characters"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckNtfy verifies the ntfy server answers its health endpoint.
func CheckNtfy(ctx context.Context, baseURL string) Result {
	const name = "ntfy"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/v1/health", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", resp.StatusCode)}
	}
	var health struct {
		Healthy bool `json:"healthy"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil || !health.Healthy {
		return Result{Name: name, Detail: "server reports unhealthy"}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}
