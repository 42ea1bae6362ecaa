package testsupport

import (
	"context"
	"testing"
	"time"

	"studioflow/internal/config"
	"studioflow/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedWorker stores an active worker with the given role.
func SeedWorker(t testing.TB, store *jobs.Store, id, name string, role jobs.Role) *jobs.Worker {
	t.Helper()

	w := &jobs.Worker{ID: id, Name: name, Role: role, Active: true}
	if err := store.UpsertWorker(context.Background(), w); err != nil {
		t.Fatalf("store.UpsertWorker: %v", err)
	}
	return w
}

// SeedPackage stores a template with items and assigns it to clientID for the
// window [start, end]. Dates use the YYYY-MM-DD layout.
func SeedPackage(t testing.TB, store *jobs.Store, id, clientID string, items map[jobs.ServiceType]int, start, end string) jobs.Assignment {
	t.Helper()

	ctx := context.Background()
	tmpl := jobs.PackageTemplate{ID: "tmpl-" + id, Name: "Package " + id, Items: items}
	if err := store.UpsertPackageTemplate(ctx, tmpl); err != nil {
		t.Fatalf("store.UpsertPackageTemplate: %v", err)
	}
	a := jobs.Assignment{
		ID:         id,
		ClientID:   clientID,
		TemplateID: tmpl.ID,
		StartDate:  MustDate(t, start),
		EndDate:    MustDate(t, end),
		Active:     true,
	}
	if err := store.UpsertAssignment(ctx, a); err != nil {
		t.Fatalf("store.UpsertAssignment: %v", err)
	}
	return a
}

// MustDate parses a YYYY-MM-DD date in UTC.
func MustDate(t testing.TB, value string) time.Time {
	t.Helper()

	d, err := time.Parse(jobs.DateLayout, value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return d
}
