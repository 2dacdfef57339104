package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/strata-dev/strata/pkg/server"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "strata").
	Namespace string

	// Subsystem is the metrics subsystem (default: "http").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "strata",
		Subsystem: "http",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus collectors for one middleware instance.
// Each Prometheus() call registers its own collectors, so two applications
// in a process can meter into separate registries.
type metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestErrors    *prometheus.CounterVec
	requestsInFlight prometheus.Gauge
	responseBytes    *prometheus.CounterVec
}

func newMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of requests processed",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Request processing duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"method", "route"}),

		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_errors_total",
			Help:        "Total number of request errors",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "error_type"}),

		requestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_in_flight",
			Help:        "Number of requests currently being served",
			ConstLabels: config.ConstLabels,
		}),

		responseBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "response_bytes_total",
			Help:        "Total bytes written in response bodies",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "route"}),
	}
}

// Prometheus creates middleware that collects Prometheus metrics for every
// request.
//
// Metrics collected:
//   - strata_http_requests_total: Counter by method, route, and status
//   - strata_http_request_duration_seconds: Histogram by method and route
//   - strata_http_request_errors_total: Counter by route and error type
//   - strata_http_requests_in_flight: Gauge of in-flight requests
//   - strata_http_response_bytes_total: Counter by method and route
//
// The route label is the registered pattern, such as /users/:id, so label
// cardinality stays bounded by the route table. Requests that match no
// route are labeled "unmatched".
//
// Example:
//
//	app.Use(middleware.Prometheus(
//	    middleware.WithNamespace("myapp"),
//	))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) server.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return newMetrics(config).middleware()
}

func (m *metrics) middleware() server.Middleware {
	return server.MiddlewareFunc(func(ctx *server.Context, next func() error) error {
		start := time.Now()
		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()

		err := next()

		route := ctx.Route()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Method()

		m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

		status := ctx.Writer().Status()
		if status == 0 {
			if err != nil {
				status = server.StatusFromError(err)
			} else {
				status = http.StatusOK
			}
		}
		m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.responseBytes.WithLabelValues(method, route).Add(float64(ctx.Writer().BytesWritten()))

		if err != nil {
			m.requestErrors.WithLabelValues(route, errorType(err)).Inc()
		}

		return err
	})
}

// errorType returns a bounded category for the error, derived from its
// HTTP status so arbitrary error messages never become label values.
func errorType(err error) string {
	switch code := server.StatusFromError(err); {
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return "timeout"
	case code == http.StatusTooManyRequests:
		return "rate_limit"
	case code == http.StatusNotFound:
		return "not_found"
	case code == http.StatusUnauthorized:
		return "unauthorized"
	case code == http.StatusForbidden:
		return "forbidden"
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return "validation"
	case code >= http.StatusInternalServerError:
		return "internal"
	default:
		return "other"
	}
}
