package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/matchmaker/pkg/metrics"
)

// newMetricsHandler serves the Prometheus exposition of the service registry.
// It backs both /healthz and /metrics: a scrape that succeeds is a healthy
// process.
func newMetricsHandler() http.HandlerFunc {
	h := promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
	return h.ServeHTTP
}
