package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioflow/internal/api"
	"studioflow/internal/jobs"
	"studioflow/internal/logging"
	"studioflow/internal/notifications"
	"studioflow/internal/orchestrator"
	"studioflow/internal/testsupport"
)

const secret = "test-secret-0123456789abcdef"

var clock = func() time.Time { return time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC) }

type apiHarness struct {
	t     *testing.T
	store *jobs.Store
	srv   *httptest.Server
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedWorker(t, store, "admin-1", "Ada", jobs.RoleAdmin)
	testsupport.SeedWorker(t, store, "coord-1", "Cole", jobs.RoleCoordinator)
	testsupport.SeedWorker(t, store, "cap-1", "Cara", jobs.RoleCaptureSpecialist)
	testsupport.SeedWorker(t, store, "pp-1", "Kai", jobs.RolePostProductionSpecialist)
	testsupport.SeedWorker(t, store, "client-1", "Northwind", jobs.RoleClient)
	require.NoError(t, store.UpsertWorker(context.Background(), &jobs.Worker{ID: "gone", Name: "Gone", Role: jobs.RoleAdmin}))

	orch := orchestrator.New(cfg, store, notifications.NewPublisher(cfg), logging.NewNop(), orchestrator.WithClock(clock))
	srv := httptest.NewServer(api.NewRouter(orch, secret, logging.NewNop(), api.WithClock(clock)))
	t.Cleanup(srv.Close)
	return &apiHarness{t: t, store: store, srv: srv}
}

func (h *apiHarness) do(method, path, worker string, body any) (*http.Response, []byte) {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, reader)
	require.NoError(h.t, err)
	if worker != "" {
		token, err := api.SignToken(secret, worker, time.Hour, clock())
		require.NoError(h.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.srv.Client().Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(h.t, err)
	return resp, buf.Bytes()
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestHealthNeedsNoToken(t *testing.T) {
	h := newAPIHarness(t)
	resp, _ := h.do(http.MethodGet, "/v1/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIdentityRejectsUnknownCallers(t *testing.T) {
	h := newAPIHarness(t)

	resp, _ := h.do(http.MethodGet, "/v1/jobs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.do(http.MethodGet, "/v1/jobs", "nobody", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.do(http.MethodGet, "/v1/jobs", "gone", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, h.srv.URL+"/v1/jobs", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not.a.token")
	raw, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, raw.StatusCode)
}

func TestChainLifecycleOverHTTP(t *testing.T) {
	h := newAPIHarness(t)

	resp, body := h.do(http.MethodPost, "/v1/chains", "coord-1", api.CreateChainRequest{
		ClientID: "client-1",
		Steps: []api.ChainStepRequest{
			{Title: "Shoot", Stage: "capture", PriceCents: 50000},
			{Title: "Edit", Stage: "post_production", PriceCents: 30000},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	chain := decode[api.ChainResponse](t, body)
	require.Len(t, chain.Jobs, 2)
	first, second := chain.Jobs[0], chain.Jobs[1]
	assert.Equal(t, "cap-1", first.AssigneeID)
	assert.Equal(t, first.ID, second.DependsOn)

	resp, body = h.do(http.MethodPost, "/v1/jobs/"+second.ID+"/advance", "admin-1", api.AdvanceRequest{Target: "handover"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
	assert.Equal(t, "validation", decode[api.ErrorResponse](t, body).Kind)

	resp, body = h.do(http.MethodPost, "/v1/jobs/"+first.ID+"/advance", "cap-1", api.AdvanceRequest{Target: "handover", Note: "wrapped"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	moved := decode[api.JobResponse](t, body)
	assert.Equal(t, "completed", moved.Job.Status)
	require.Len(t, moved.Job.History, 1)
	assert.Equal(t, "wrapped", moved.Job.History[0].Note)

	resp, body = h.do(http.MethodPost, "/v1/jobs/"+first.ID+"/advance", "admin-1", api.AdvanceRequest{Target: "finishing", ExpectedVersion: 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))

	resp, body = h.do(http.MethodGet, "/v1/jobs/"+second.ID+"/chain", "client-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	view := decode[api.ChainResponse](t, body)
	assert.Equal(t, chain.ChainID, view.ChainID)
	assert.Len(t, view.Jobs, 2)

	resp, body = h.do(http.MethodGet, "/v1/notifications", "cap-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.NotEmpty(t, decode[api.NotificationListResponse](t, body).Notifications)
}

func TestErrorKindsMapToStatusCodes(t *testing.T) {
	h := newAPIHarness(t)
	testsupport.SeedPackage(t, h.store, "pkg-1", "client-1",
		map[jobs.ServiceType]int{jobs.ServiceRevision: 1}, "2026-01-01", "2026-12-31")

	revision := api.CreateJobRequest{Title: "Retouch", Type: "revision", ClientID: "client-1", AssigneeID: "pp-1", CountsAgainstPackage: true}
	resp, body := h.do(http.MethodPost, "/v1/jobs", "coord-1", revision)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	created := decode[api.JobResponse](t, body)
	require.NotNil(t, created.Receipt)
	assert.Equal(t, "pkg-1", created.Receipt.AssignmentID)

	cases := []struct {
		name   string
		method string
		path   string
		worker string
		body   any
		status int
		kind   string
	}{
		{"entitlement exhausted", http.MethodPost, "/v1/jobs", "coord-1", revision, http.StatusUnprocessableEntity, "entitlement"},
		{"client cannot create", http.MethodPost, "/v1/jobs", "client-1", revision, http.StatusForbidden, "authorization"},
		{"unknown job", http.MethodGet, "/v1/jobs/missing", "admin-1", nil, http.StatusNotFound, "not_found"},
		{"bad status", http.MethodPost, "/v1/jobs/" + created.Job.ID + "/status", "admin-1", api.StatusRequest{Status: "archived"}, http.StatusBadRequest, "validation"},
		{"unknown field", http.MethodPost, "/v1/jobs", "coord-1", map[string]any{"titel": "x"}, http.StatusBadRequest, "validation"},
		{"coordinator cannot delete", http.MethodDelete, "/v1/jobs/" + created.Job.ID, "coord-1", nil, http.StatusForbidden, "authorization"},
		{"bad limit", http.MethodGet, "/v1/jobs?limit=-2", "admin-1", nil, http.StatusBadRequest, "validation"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := h.do(tc.method, tc.path, tc.worker, tc.body)
			assert.Equal(t, tc.status, resp.StatusCode, string(body))
			assert.Equal(t, tc.kind, decode[api.ErrorResponse](t, body).Kind)
		})
	}
}

func TestUsageAndStatusEndpoints(t *testing.T) {
	h := newAPIHarness(t)
	testsupport.SeedPackage(t, h.store, "pkg-1", "client-1",
		map[jobs.ServiceType]int{jobs.ServiceConsultation: 3}, "2026-01-01", "2026-12-31")

	resp, body := h.do(http.MethodPost, "/v1/jobs", "coord-1", api.CreateJobRequest{
		Title: "Kickoff", Type: "consultation", ClientID: "client-1", AssigneeID: "coord-1", CountsAgainstPackage: true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	job := decode[api.JobResponse](t, body).Job

	resp, body = h.do(http.MethodGet, "/v1/assignments/pkg-1/usage", "client-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	usage := decode[api.UsageSummary](t, body)
	require.Len(t, usage.Lines, 1)
	assert.Equal(t, api.UsageLine{ServiceType: "consultation", Granted: 3, Consumed: 1, Remaining: 2}, usage.Lines[0])
	assert.Equal(t, "2026-12-31", usage.EndDate)

	resp, body = h.do(http.MethodGet, "/v1/clients/client-1/packages", "client-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	packages := decode[api.PackageListResponse](t, body)
	require.Len(t, packages.Packages, 1)
	assert.Equal(t, "pkg-1", packages.Packages[0].AssignmentID)
	assert.Equal(t, map[string]int{"consultation": 3}, packages.Packages[0].Items)

	resp, _ = h.do(http.MethodGet, "/v1/clients/client-1/packages", "cap-1", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = h.do(http.MethodPost, "/v1/jobs/"+job.ID+"/status", "admin-1", api.StatusRequest{Status: "review"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	changed := decode[api.JobResponse](t, body)
	assert.True(t, changed.Changed)
	assert.Equal(t, "review", changed.Job.Status)

	resp, body = h.do(http.MethodPost, "/v1/jobs/"+job.ID+"/complete", "coord-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "completed", decode[api.JobResponse](t, body).Job.Status)

	resp, body = h.do(http.MethodGet, "/v1/jobs?status=completed", "client-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Len(t, decode[api.JobListResponse](t, body).Jobs, 1)

	resp, body = h.do(http.MethodDelete, "/v1/jobs/"+job.ID, "admin-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Nil(t, decode[api.JobResponse](t, body).Job)
}
