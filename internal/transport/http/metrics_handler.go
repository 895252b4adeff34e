package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler exposes the Prometheus scrape endpoint. When telemetry
// initialization supplied a handler it is used; otherwise the default
// promhttp handler serves the global registry.
func MetricsHandler(handler http.Handler) http.Handler {
	if handler != nil {
		return handler
	}
	return promhttp.Handler()
}
