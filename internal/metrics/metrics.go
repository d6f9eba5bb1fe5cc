// Package metrics defines the Prometheus collectors recorded by the fetch pipeline.
//
// Collectors are registered on the default registerer through promauto:
//   - pagewalk_pages_total{outcome} (Counter): page requests by outcome (ok, failed)
//   - pagewalk_items_total{reason} (Counter): fetched items by eligibility reason
//   - pagewalk_sessions_total{mode, outcome} (Counter): finished fetch sessions
//   - pagewalk_credential_refreshes_total{result} (Counter): credential refresh attempts
//   - pagewalk_transport_retries_total{status} (Counter): HTTP retries by response status or "network"
//   - pagewalk_page_duration_seconds (Histogram): page request latency
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/desertthunder/pagewalk/internal/eligibility"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session modes
const (
	ModeQuota  = "quota"
	ModeStream = "stream"
)

// Session outcomes
const (
	OutcomeComplete  = "complete"
	OutcomePartial   = "partial"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

var (
	pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagewalk_pages_total",
		Help: "Total number of page requests by outcome",
	}, []string{"outcome"})

	pageDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pagewalk_page_duration_seconds",
		Help:    "Page request duration",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagewalk_items_total",
		Help: "Total number of fetched items by eligibility reason",
	}, []string{"reason"})

	sessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagewalk_sessions_total",
		Help: "Total number of finished fetch sessions by mode and outcome",
	}, []string{"mode", "outcome"})

	refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagewalk_credential_refreshes_total",
		Help: "Total number of credential refresh attempts by result",
	}, []string{"result"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagewalk_transport_retries_total",
		Help: "Total number of HTTP retries by response status",
	}, []string{"status"})
)

// ObservePage records one page request.
func ObservePage(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	pagesTotal.WithLabelValues(outcome).Inc()
	pageDuration.Observe(d.Seconds())
}

// ObserveItems records the eligibility breakdown of one page.
func ObserveItems(counts map[eligibility.Reason]int) {
	for reason, n := range counts {
		itemsTotal.WithLabelValues(reason.String()).Add(float64(n))
	}
}

// ObserveSession records a finished session.
func ObserveSession(mode, outcome string) {
	sessionsTotal.WithLabelValues(mode, outcome).Inc()
}

// ObserveRefresh records a credential refresh attempt.
func ObserveRefresh(err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	refreshesTotal.WithLabelValues(result).Inc()
}

// ObserveRetry records a transport retry. A status of 0 means a network error.
func ObserveRetry(status int) {
	label := "network"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	retriesTotal.WithLabelValues(label).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
