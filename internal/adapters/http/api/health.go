package api

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/avalia/internal/domain/types"
	"github.com/okian/avalia/pkg/metrics"
)

// SyncStatusProvider reports the reconciliation engine.
type SyncStatusProvider interface {
	SyncStatus() types.SyncStatus
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	sync SyncStatusProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(sync SyncStatusProvider) *HealthHandler {
	return &HealthHandler{sync: sync}
}

type healthResponse struct {
	Status string           `json:"status"`
	Sync   types.SyncStatus `json:"sync"`
}

// HandleHealth handles GET /healthz requests.
// Clients asking for text/plain or OpenMetrics get the Prometheus registry;
// everyone else gets a JSON status.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/openmetrics-text") || strings.Contains(accept, "text/plain") {
		promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Sync: h.sync.SyncStatus()})
}
