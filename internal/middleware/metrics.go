package middleware

import (
	"net/http"
	"time"

	"github.com/askarbek/auth-service/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
)

// RequestMetrics records request latency per method and route pattern.
func RequestMetrics(mm *metrics.MetricsManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if mm == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			next.ServeHTTP(w, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			mm.HTTPRequestLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
