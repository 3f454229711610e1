package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/inboxjobs/internal/service"
)

// RouterServices holds the services needed by the HTTP router.
type RouterServices struct {
	Jobs *service.JobService
	// MaxBodyBytes caps JSON request bodies. Zero means unlimited.
	MaxBodyBytes int64
	Logger       *slog.Logger // Logger for request failures (optional)
}

// NewRouter creates the job control API router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	registerJobRoutes(mux, &JobHandlers{
		Svc:          services.Jobs,
		MaxBodyBytes: services.MaxBodyBytes,
		Logger:       logger.With("component", "http"),
	})
	health := &HealthHandlers{}
	if services.Jobs != nil {
		health.Ready = services.Jobs.CheckSchema
	}
	mux.HandleFunc("GET /healthz", health.Live)
	mux.HandleFunc("HEAD /healthz", health.Live)
	mux.HandleFunc("GET /readyz", health.Readiness)
	mux.HandleFunc("HEAD /readyz", health.Readiness)

	return mux
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) {
	mux.HandleFunc("POST /api/jobs", h.CreateJob)
	mux.HandleFunc("POST /api/jobs/archive", h.StartArchive)
	mux.HandleFunc("POST /api/jobs/senders", h.StartSenders)
	mux.HandleFunc("GET /api/jobs", h.ListJobs)
	mux.HandleFunc("GET /api/jobs/stats", h.Stats)
	mux.HandleFunc("GET /api/jobs/{id}", h.GetStatus)
	mux.HandleFunc("POST /api/jobs/{id}/cancel", h.Cancel)
	mux.HandleFunc("GET /api/jobs/{id}/results", h.Results)
	mux.HandleFunc("GET /api/jobs/{id}/count", h.ExactCount)
	mux.HandleFunc("GET /api/estimate", h.Estimate)
	mux.HandleFunc("GET /api/environment", h.Environment)
}
