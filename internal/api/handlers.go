package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"studioflow/internal/jobs"
	"studioflow/internal/orchestrator"
	"studioflow/internal/services"
)

type handlers struct {
	svc    Service
	logger *slog.Logger
	now    func() time.Time
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) createJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.CreateJob(r.Context(), actorFrom(r.Context()), orchestrator.JobSpec{
		Title:                req.Title,
		Type:                 req.Type,
		ClientID:             req.ClientID,
		AssigneeID:           req.AssigneeID,
		DependsOn:            req.DependsOn,
		PriceCents:           req.PriceCents,
		ExtraCostCents:       req.ExtraCostCents,
		ExtraCostReason:      req.ExtraCostReason,
		CountsAgainstPackage: req.CountsAgainstPackage,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, JobResponse{
		Job:      FromJob(res.Job),
		Changed:  true,
		Warnings: FromWarnings(res.Warnings),
		Receipt:  FromReceipt(res.Receipt),
	})
}

func (h *handlers) createChain(w http.ResponseWriter, r *http.Request) {
	var req CreateChainRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	steps := make([]orchestrator.ChainStep, len(req.Steps))
	for i, s := range req.Steps {
		steps[i] = orchestrator.ChainStep{
			Title:                s.Title,
			Stage:                s.Stage,
			AssigneeID:           s.AssigneeID,
			PriceCents:           s.PriceCents,
			ExtraCostCents:       s.ExtraCostCents,
			ExtraCostReason:      s.ExtraCostReason,
			CountsAgainstPackage: s.CountsAgainstPackage,
		}
	}
	res, err := h.svc.CreateWorkflowChain(r.Context(), actorFrom(r.Context()), req.ClientID, steps)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, ChainResponse{
		ChainID:  res.ChainID,
		Jobs:     FromJobs(res.Jobs),
		Warnings: FromWarnings(res.Warnings),
	})
}

func (h *handlers) listJobs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseJobFilter(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	list, err := h.svc.ListJobs(r.Context(), actorFrom(r.Context()), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, JobListResponse{Jobs: FromJobs(list)})
}

func (h *handlers) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.GetJob(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, JobResponse{Job: FromJob(job)})
}

func (h *handlers) chain(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Chain(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	resp := ChainResponse{Jobs: FromJobs(list)}
	if len(list) > 0 {
		resp.ChainID = list[0].ChainID
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *handlers) advance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.AdvanceWorkflow(r.Context(), actorFrom(r.Context()), orchestrator.AdvanceRequest{
		JobID:           chi.URLParam(r, "id"),
		Target:          req.Target,
		Note:            req.Note,
		ExpectedVersion: req.ExpectedVersion,
	})
	h.writeTransition(w, r, res, err)
}

func (h *handlers) complete(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}
	res, err := h.svc.CompleteJob(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Note)
	h.writeTransition(w, r, res, err)
}

func (h *handlers) setStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.SetJobStatus(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Status)
	h.writeTransition(w, r, res, err)
}

func (h *handlers) deleteJob(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DeleteJob(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	h.writeTransition(w, r, res, err)
}

func (h *handlers) writeTransition(w http.ResponseWriter, r *http.Request, res *orchestrator.TransitionResult, err error) {
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, JobResponse{
		Job:      FromJob(res.Job),
		Changed:  res.Changed,
		Warnings: FromWarnings(res.Warnings),
		Receipt:  FromReceipt(res.Receipt),
	})
}

func (h *handlers) usage(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.UsageSummary(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, FromUsageSummary(summary))
}

func (h *handlers) clientPackages(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")
	list, err := h.svc.ClientPackages(r.Context(), actorFrom(r.Context()), clientID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, FromClientPackages(clientID, list))
}

func (h *handlers) notifications(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	list, err := h.svc.Notifications(r.Context(), actorFrom(r.Context()), query.Get("recipient"), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, NotificationListResponse{Notifications: FromNotifications(list)})
}

func parseJobFilter(r *http.Request) (jobs.JobFilter, error) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		AssigneeID: strings.TrimSpace(query.Get("assignee")),
		ClientID:   strings.TrimSpace(query.Get("client")),
		ChainID:    strings.TrimSpace(query.Get("chain")),
	}
	for _, value := range query["status"] {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, ok := jobs.ParseStatus(value)
		if !ok {
			return jobs.JobFilter{}, services.Validation("api", "list jobs", "unknown status "+strconv.Quote(value))
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		return jobs.JobFilter{}, err
	}
	filter.Limit = limit
	return filter, nil
}

func parseLimit(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit < 0 {
		return 0, services.Validation("api", "parse limit", "limit must be a non-negative integer")
	}
	return limit, nil
}
