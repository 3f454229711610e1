package httpx

import (
	"context"
	"net/http"
)

type healthStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthHandlers answers liveness and readiness checks.
type HealthHandlers struct {
	// Ready reports whether the job store is usable. Nil means always ready.
	Ready func(ctx context.Context) error
}

// Live answers 200 while the process is serving.
func (h *HealthHandlers) Live(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, r, http.StatusOK, healthStatus{Status: "ok"})
}

// Readiness answers 503 until the three tables carry their expected headers.
func (h *HealthHandlers) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		if err := h.Ready(r.Context()); err != nil {
			writeHealth(w, r, http.StatusServiceUnavailable, healthStatus{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	writeHealth(w, r, http.StatusOK, healthStatus{Status: "ok"})
}

func writeHealth(w http.ResponseWriter, r *http.Request, code int, body healthStatus) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		return
	}
	WriteJSON(w, code, body)
}
