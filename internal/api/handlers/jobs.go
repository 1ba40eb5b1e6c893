package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/zenspend/zenspend/internal/api/middleware"
	"github.com/zenspend/zenspend/internal/expenses"
	"github.com/zenspend/zenspend/internal/jobs"
)

// JobsHandler handles export requests and job status endpoints.
type JobsHandler struct {
	svc *expenses.Service
	log zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(svc *expenses.Service, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{svc: svc, log: log}
}

// CreateExport handles POST /api/exports. The body is optional.
func (h *JobsHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From *civil.Date `json:"from"`
		To   *civil.Date `json:"to"`
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job, err := h.svc.RequestExport(r.Context(), req.From, req.To)
	switch {
	case errors.Is(err, expenses.ErrUnavailable):
		middleware.WriteError(w, http.StatusServiceUnavailable, "Exports are not configured")
		return
	case errors.Is(err, expenses.ErrInvalidRange):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Failed to enqueue export job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue export job")
		return
	}

	h.log.Info().Str("job_id", job.ID).Msg("Export job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := h.svc.GetJob(r.Context(), jobID)
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	case errors.Is(err, expenses.ErrUnavailable):
		middleware.WriteError(w, http.StatusServiceUnavailable, "Jobs are not configured")
		return
	case err != nil:
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Type:   jobs.JobType(query.Get("type")),
		Status: jobs.JobStatus(query.Get("status")),
	}

	var err error
	if filter.Limit, err = intParam(r, "limit"); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Offset, err = intParam(r, "offset"); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobsList, err := h.svc.ListJobs(r.Context(), filter)
	if errors.Is(err, expenses.ErrUnavailable) {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Jobs are not configured")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
