package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"studioflow/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Record store", statusError, "not open", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Record store:", "[ERROR] not open")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Record store", statusOK, "schema v1", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestPreflightLines(t *testing.T) {
	lines := preflightLines([]preflight.Result{
		{Name: "Data directory", Passed: true, Detail: "ok"},
		{Name: "ntfy", Optional: true, Detail: "health check failed (502)"},
		{Name: "API token secret", Detail: "missing"},
	}, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK] ok") {
		t.Fatalf("expected ok line, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARN] health check failed (502)") {
		t.Fatalf("expected warn line, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[ERROR] missing") {
		t.Fatalf("expected error line, got %q", lines[2])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
