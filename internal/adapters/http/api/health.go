// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"

	"github.com/okian/dropout/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps    HealthDependencies
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{
		deps:    deps,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /api/v1/health. The body reports which
// classifiers are loaded; the status code stays 200 so the document is
// always readable.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Health())
	case http.MethodOptions:
		writeJSON(w, http.StatusOK, map[string]string{"message": "OK"})
	default:
		fail(w, NewKind("api.health", ErrMethodNotAllowed))
	}
}

// HandleHealthz handles GET /healthz requests.
// If the Accept header contains "application/openmetrics-text" or "text/plain",
// it returns Prometheus metrics. Otherwise it is a liveness probe that turns
// 503 while no classifier is loaded.
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/openmetrics-text") || strings.Contains(accept, "text/plain") {
		h.metrics.ServeHTTP(w, r)
		return
	}
	health := h.deps.Health()
	status := http.StatusOK
	if !health.ModelLoaded {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"status": health.Status})
}

// HandleMetrics serves the Prometheus registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
