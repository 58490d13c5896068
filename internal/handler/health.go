package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/josh-kwaku/budgetory/internal/logging"
)

const readinessTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store     pinger
	backend   string
	startedAt time.Time
}

// NewHealthHandler reports on the key-value store named by backend
// (memory, sqlite or postgres).
func NewHealthHandler(store pinger, backend string) *HealthHandler {
	return &HealthHandler{store: store, backend: backend, startedAt: time.Now()}
}

type storageCheck struct {
	Backend   string `json:"backend"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness pings the store. Rates are not checked: the provider always has
// its fallback table to serve.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	check := storageCheck{Backend: h.backend, Status: "ok"}
	status := http.StatusOK

	start := time.Now()
	err := h.store.Ping(ctx)
	check.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		logging.FromContext(r.Context()).Warn("readiness check failed: storage unreachable",
			"backend", h.backend,
			"error", err,
		)
		check.Status = "down"
		status = http.StatusServiceUnavailable
	}

	RespondJSON(w, status, map[string]any{
		"status":    check.Status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": map[string]storageCheck{
			"storage": check,
		},
	})
}
