package metrics

import (
	"net/http"

	"github.com/askarbek/auth-service/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsManager holds custom Prometheus metrics for the auth service.
type MetricsManager struct {
	Registry                *prometheus.Registry
	RegistrationsTotal      prometheus.Counter
	VerificationsTotal      prometheus.Counter
	LoginsTotal             prometheus.Counter
	PasswordResetsTotal     prometheus.Counter
	AuthFailuresTotal       *prometheus.CounterVec   // Failed operations by kind
	HTTPRequestLatency      *prometheus.HistogramVec // Request latency by route
	NotificationErrorsTotal prometheus.Counter
}

// NewMetricsManager initializes and registers custom Prometheus metrics.
func NewMetricsManager(serviceName string) *MetricsManager {
	registry := prometheus.NewRegistry()

	registrationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "registrations_total",
		Help:      "Total number of successful registrations.",
	})
	verificationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "verifications_total",
		Help:      "Total number of successful email verifications.",
	})
	loginsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "logins_total",
		Help:      "Total number of successful logins.",
	})
	passwordResetsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "password_resets_total",
		Help:      "Total number of completed password resets.",
	})
	authFailuresTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "auth_failures_total",
		Help:      "Total number of failed auth operations by kind.",
	}, []string{"operation", "reason"})
	httpRequestLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: serviceName,
		Name:      "http_request_latency_seconds",
		Help:      "Latency of HTTP requests by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	notificationErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "notification_errors_total",
		Help:      "Total number of swallowed notifier failures.",
	})

	registry.MustRegister(
		registrationsTotal,
		verificationsTotal,
		loginsTotal,
		passwordResetsTotal,
		authFailuresTotal,
		httpRequestLatency,
		notificationErrorsTotal,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &MetricsManager{
		Registry:                registry,
		RegistrationsTotal:      registrationsTotal,
		VerificationsTotal:      verificationsTotal,
		LoginsTotal:             loginsTotal,
		PasswordResetsTotal:     passwordResetsTotal,
		AuthFailuresTotal:       authFailuresTotal,
		HTTPRequestLatency:      httpRequestLatency,
		NotificationErrorsTotal: notificationErrorsTotal,
	}
}

// StartMetricsServer starts an HTTP server to expose Prometheus metrics.
func StartMetricsServer(port string, appLogger *logger.Logger, registry *prometheus.Registry) error {
	if port == "" {
		appLogger.Info("Prometheus metrics server port not configured, server will not start.")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	appLogger.Info("Prometheus metrics server starting", zap.String("port", port), zap.String("path", "/metrics"))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	return server.ListenAndServe()
}
