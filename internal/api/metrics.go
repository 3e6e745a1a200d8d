package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes recorded in automail_api_requests_total.
const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeInvalid = "invalid"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automail_api_requests_total",
			Help: "Requests issued to the mail service, by group and outcome",
		},
		[]string{"group", "method", "outcome"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "automail_api_request_duration_seconds",
			Help:    "Mail service request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"group", "method"},
	)
)

func observe(group, method, outcome string, elapsed time.Duration) {
	apiRequestsTotal.WithLabelValues(group, method, outcome).Inc()
	if outcome != outcomeInvalid {
		apiRequestDuration.WithLabelValues(group, method).Observe(elapsed.Seconds())
	}
}
