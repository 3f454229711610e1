// Package httpx provides the JSON job control API.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/target/inboxjobs/internal/domain/model"
	apperrors "github.com/target/inboxjobs/internal/errors"
	"github.com/target/inboxjobs/internal/service"
)

// JobHandlers provides HTTP handlers for job-related operations.
type JobHandlers struct {
	Svc          *service.JobService
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// ArchiveRequest starts a markReadAndArchive job.
type ArchiveRequest struct {
	Search  string   `json:"search"`
	Targets []string `json:"targets"`
}

// SendersRequest starts a fetchSenders job.
type SendersRequest struct {
	Search string `json:"search"`
}

// ResultsResponse lists the flushed Result rows of a job.
type ResultsResponse struct {
	JobID   string            `json:"job_id"`
	Results []model.ResultRow `json:"results"`
}

// CountResponse carries an exact or estimated match count.
type CountResponse struct {
	JobID    string `json:"job_id,omitempty"`
	Query    string `json:"query,omitempty"`
	Count    int    `json:"count"`
	Estimate bool   `json:"estimate,omitempty"`
}

func (h *JobHandlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if h.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	}
	return DecodeJSON(w, r, dst)
}

func (h *JobHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	RenderError(w, r, err, h.Logger)
}

// CreateJob handles POST /api/jobs with a generic create request.
func (h *JobHandlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJobRequest
	if !h.decode(w, r, &req) {
		return
	}
	job, err := h.Svc.CreateJob(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}

// StartArchive handles POST /api/jobs/archive.
func (h *JobHandlers) StartArchive(w http.ResponseWriter, r *http.Request) {
	var req ArchiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	job, err := h.Svc.StartMarkReadAndArchive(r.Context(), req.Search, req.Targets)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}

// StartSenders handles POST /api/jobs/senders.
func (h *JobHandlers) StartSenders(w http.ResponseWriter, r *http.Request) {
	var req SendersRequest
	if !h.decode(w, r, &req) {
		return
	}
	job, err := h.Svc.StartFetchSenders(r.Context(), req.Search)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}

// ListJobs handles GET /api/jobs, optionally filtered by ?status=.
func (h *JobHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	status := model.JobStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	if status != "" && !status.Valid() {
		h.fail(w, r, apperrors.Validation(errors.New("status must be one of: queued, running, done, error, cancelled")))
		return
	}

	var (
		jobs []*model.Job
		err  error
	)
	if status == model.JobStatusRunning {
		jobs, err = h.Svc.ListRunning(r.Context())
	} else {
		jobs, err = h.Svc.ListAll(r.Context())
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if status != "" && status != model.JobStatusRunning {
		filtered := make([]*model.Job, 0, len(jobs))
		for _, j := range jobs {
			if j.Status == status {
				filtered = append(filtered, j)
			}
		}
		jobs = filtered
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}
	WriteJSON(w, http.StatusOK, jobs)
}

// Stats handles GET /api/jobs/stats.
func (h *JobHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// GetStatus handles GET /api/jobs/{id}. Unknown IDs answer 404 with status "unknown".
func (h *JobHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Svc.GetStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	code := http.StatusOK
	if !resp.Known {
		code = http.StatusNotFound
	}
	WriteJSON(w, code, resp)
}

// Cancel handles POST /api/jobs/{id}/cancel.
func (h *JobHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Results handles GET /api/jobs/{id}/results.
func (h *JobHandlers) Results(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rows, err := h.Svc.Results(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if rows == nil {
		rows = []model.ResultRow{}
	}
	WriteJSON(w, http.StatusOK, ResultsResponse{JobID: id, Results: rows})
}

// ExactCount handles GET /api/jobs/{id}/count.
func (h *JobHandlers) ExactCount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	n, err := h.Svc.ExactCount(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, CountResponse{JobID: id, Count: n})
}

// Estimate handles GET /api/estimate?q=.
func (h *JobHandlers) Estimate(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		h.fail(w, r, apperrors.Validation(errors.New("query parameter q is required")))
		return
	}
	n, err := h.Svc.Estimate(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, CountResponse{Query: q, Count: n, Estimate: true})
}

// Environment handles GET /api/environment. A failed check answers 503 with the report.
func (h *JobHandlers) Environment(w http.ResponseWriter, r *http.Request) {
	report, err := h.Svc.CheckEnvironment(r.Context())
	code := http.StatusOK
	if err != nil {
		if h.Logger != nil {
			h.Logger.WarnContext(r.Context(), "environment check failed", "error", err)
		}
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, report)
}
