// Package seed loads reference data (workers, package templates, and client
// package assignments) from a YAML fixture into a store.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"studioflow/internal/jobs"
	"studioflow/internal/logging"
	"studioflow/internal/services"
)

// Store receives seeded records. Both store implementations satisfy it.
type Store interface {
	UpsertWorker(ctx context.Context, w *jobs.Worker) error
	UpsertPackageTemplate(ctx context.Context, tmpl jobs.PackageTemplate) error
	UpsertAssignment(ctx context.Context, a jobs.Assignment) error
}

// Fixture is the YAML document layout.
type Fixture struct {
	Workers     []WorkerSpec     `yaml:"workers"`
	Templates   []TemplateSpec   `yaml:"templates"`
	Assignments []AssignmentSpec `yaml:"assignments"`
}

// WorkerSpec is one worker entry. Active defaults to true.
type WorkerSpec struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Role   string `yaml:"role"`
	Active *bool  `yaml:"active"`
}

// TemplateSpec is one package template. Items maps service type to quantity.
type TemplateSpec struct {
	ID    string         `yaml:"id"`
	Name  string         `yaml:"name"`
	Items map[string]int `yaml:"items"`
}

// AssignmentSpec grants a template to a client. Dates use YYYY-MM-DD and are
// inclusive. Active defaults to true.
type AssignmentSpec struct {
	ID       string `yaml:"id"`
	Client   string `yaml:"client"`
	Template string `yaml:"template"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Active   *bool  `yaml:"active"`
}

// Summary counts the records Apply wrote.
type Summary struct {
	Workers     int `json:"workers"`
	Templates   int `json:"templates"`
	Assignments int `json:"assignments"`
}

// Load reads and validates a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a fixture. Unknown keys are rejected.
func Parse(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, services.Validation("seed", "parse", err.Error())
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks references and value ranges. Every problem found is reported.
func (f *Fixture) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	roles := map[string]jobs.Role{}
	for i, w := range f.Workers {
		id := strings.TrimSpace(w.ID)
		switch {
		case id == "":
			add("workers[%d]: id is required", i)
			continue
		case roles[id] != "":
			add("workers[%d]: duplicate id %q", i, id)
			continue
		}
		role, ok := jobs.ParseRole(w.Role)
		if !ok {
			add("worker %s: unknown role %q", id, w.Role)
			role = jobs.Role("?")
		}
		if strings.TrimSpace(w.Name) == "" {
			add("worker %s: name is required", id)
		}
		roles[id] = role
	}

	templates := map[string]struct{}{}
	for i, t := range f.Templates {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			add("templates[%d]: id is required", i)
			continue
		}
		if _, dup := templates[id]; dup {
			add("templates[%d]: duplicate id %q", i, id)
			continue
		}
		templates[id] = struct{}{}
		if len(t.Items) == 0 {
			add("template %s: at least one item is required", id)
		}
		for svc, qty := range t.Items {
			if _, ok := jobs.ParseServiceType(svc); !ok {
				add("template %s: unknown service type %q", id, svc)
			}
			if qty < 0 {
				add("template %s: quantity for %s cannot be negative", id, svc)
			}
		}
	}

	assignments := map[string]struct{}{}
	for i, a := range f.Assignments {
		id := strings.TrimSpace(a.ID)
		if id == "" {
			add("assignments[%d]: id is required", i)
			continue
		}
		if _, dup := assignments[id]; dup {
			add("assignments[%d]: duplicate id %q", i, id)
			continue
		}
		assignments[id] = struct{}{}
		if role, ok := roles[strings.TrimSpace(a.Client)]; !ok || role != jobs.RoleClient {
			add("assignment %s: client %q is not a client worker in this file", id, a.Client)
		}
		if _, ok := templates[strings.TrimSpace(a.Template)]; !ok {
			add("assignment %s: unknown template %q", id, a.Template)
		}
		start, errStart := time.Parse(jobs.DateLayout, strings.TrimSpace(a.Start))
		end, errEnd := time.Parse(jobs.DateLayout, strings.TrimSpace(a.End))
		if errStart != nil {
			add("assignment %s: start %q is not YYYY-MM-DD", id, a.Start)
		}
		if errEnd != nil {
			add("assignment %s: end %q is not YYYY-MM-DD", id, a.End)
		}
		if errStart == nil && errEnd == nil && !end.After(start) {
			add("assignment %s: end must be after start", id)
		}
	}

	if len(problems) > 0 {
		return services.Validation("seed", "validate", strings.Join(problems, "; "))
	}
	return nil
}

// Apply upserts the fixture into store: workers first, then templates, then
// assignments. It stops at the first store error.
func Apply(ctx context.Context, store Store, f *Fixture, logger *slog.Logger) (Summary, error) {
	var summary Summary
	if store == nil || f == nil {
		return summary, errors.New("seed: store and fixture are required")
	}
	logger = logging.NewComponentLogger(logger, "seed")

	for _, w := range f.Workers {
		role, _ := jobs.ParseRole(w.Role)
		worker := &jobs.Worker{
			ID:     strings.TrimSpace(w.ID),
			Name:   strings.TrimSpace(w.Name),
			Role:   role,
			Active: boolOr(w.Active, true),
		}
		if err := store.UpsertWorker(ctx, worker); err != nil {
			return summary, fmt.Errorf("seed worker %s: %w", worker.ID, err)
		}
		summary.Workers++
	}

	for _, t := range f.Templates {
		tmpl := jobs.PackageTemplate{
			ID:    strings.TrimSpace(t.ID),
			Name:  strings.TrimSpace(t.Name),
			Items: make(map[jobs.ServiceType]int, len(t.Items)),
		}
		for svc, qty := range t.Items {
			parsed, _ := jobs.ParseServiceType(svc)
			tmpl.Items[parsed] = qty
		}
		if err := store.UpsertPackageTemplate(ctx, tmpl); err != nil {
			return summary, fmt.Errorf("seed template %s: %w", tmpl.ID, err)
		}
		summary.Templates++
	}

	for _, a := range f.Assignments {
		start, _ := time.Parse(jobs.DateLayout, strings.TrimSpace(a.Start))
		end, _ := time.Parse(jobs.DateLayout, strings.TrimSpace(a.End))
		assignment := jobs.Assignment{
			ID:         strings.TrimSpace(a.ID),
			ClientID:   strings.TrimSpace(a.Client),
			TemplateID: strings.TrimSpace(a.Template),
			StartDate:  start,
			EndDate:    end,
			Active:     boolOr(a.Active, true),
		}
		if err := store.UpsertAssignment(ctx, assignment); err != nil {
			return summary, fmt.Errorf("seed assignment %s: %w", assignment.ID, err)
		}
		summary.Assignments++
	}

	logger.Info("seed applied",
		logging.Int("workers", summary.Workers),
		logging.Int("templates", summary.Templates),
		logging.Int("assignments", summary.Assignments),
	)
	return summary, nil
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
