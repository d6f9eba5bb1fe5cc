package server

import (
	"fmt"
	"net/http"

	"github.com/desertthunder/pagewalk/internal/metrics"
)

// MetricsHandler serves the prometheus registry at /metrics.
type MetricsHandler struct {
	next http.Handler
}

// NewMetricsHandler creates a new [MetricsHandler].
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{next: metrics.Handler()}
}

// Routes returns the HTTP routes this handler serves.
func (h *MetricsHandler) Routes() []string {
	return []string{"/metrics"}
}

func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.next.ServeHTTP(w, r)
}

// HealthHandler answers liveness checks at /healthz.
type HealthHandler struct{}

// Routes returns the HTTP routes this handler serves.
func (HealthHandler) Routes() []string {
	return []string{"/healthz"}
}

func (HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "ok\n")
}
