// Package monitoring provides Prometheus metrics for the platform core.
//
// Usage:
//
//  1. Setup metrics in your main function:
//     router := gin.New()
//     monitoring.SetupPrometheusMetrics(router)
//
//  2. Add HTTP metrics middleware:
//     router.Use(monitoring.HTTPMetricsMiddleware())
//
//  3. Record component metrics where the work happens:
//
//	monitoring.RecordStoreOperation("get", "hit")
//	monitoring.RecordAuthAttempt("password", "success")
//	monitoring.RecordRateLimitDecision("window", true)
//	monitoring.RecordAuditEvent("login_failure", false)
package monitoring

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_core_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code", "tenant_id"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platform_core_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "tenant_id"},
	)

	storeOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_core_store_operations_total",
			Help: "Total number of key-value store operations",
		},
		[]string{"operation", "result"}, // result: hit, miss, success, error
	)

	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_core_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "result"}, // method: password, token, oauth2, mfa
	)

	rateLimitDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_core_rate_limit_decisions_total",
			Help: "Total number of rate limit decisions",
		},
		[]string{"limit_type", "allowed"}, // limit_type: window, burst, exempt, bypass
	)

	auditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_core_audit_events_total",
			Help: "Total number of audit events written",
		},
		[]string{"event_type", "success"},
	)

	cacheManagerOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_core_cache_manager_operations_total",
			Help: "Total number of tenant cache manager operations",
		},
		[]string{"operation", "result"},
	)

	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "platform_core_active_connections",
			Help: "Number of active connections",
		},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_core_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "component"},
	)
)

// SetupPrometheusMetrics registers the core metrics and exposes /metrics.
func SetupPrometheusMetrics(router gin.IRoutes) {
	_ = prometheus.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "platform_core_build_info",
		Help: "Build information for the platform core",
		ConstLabels: prometheus.Labels{
			"component": "platform-core",
		},
	}, func() float64 { return 1 }))

	// Ignore duplicate-registration errors so tests can call this repeatedly.
	_ = prometheus.Register(httpRequestsTotal)
	_ = prometheus.Register(httpRequestDuration)
	_ = prometheus.Register(storeOperationsTotal)
	_ = prometheus.Register(authAttemptsTotal)
	_ = prometheus.Register(rateLimitDecisionsTotal)
	_ = prometheus.Register(auditEventsTotal)
	_ = prometheus.Register(cacheManagerOperationsTotal)
	_ = prometheus.Register(activeConnections)
	_ = prometheus.Register(errorsTotal)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// HTTPMetricsMiddleware collects HTTP request metrics.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		endpoint := normalizeEndpoint(c.Request.URL.Path)

		tenantID := c.GetString("tenant_id")
		if tenantID == "" {
			tenantID = "unknown"
		}

		activeConnections.Inc()
		defer activeConnections.Dec()

		c.Next()

		statusCode := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, tenantID).Inc()
		httpRequestDuration.WithLabelValues(method, endpoint, tenantID).Observe(duration)

		if c.Writer.Status() >= 400 {
			errorsTotal.WithLabelValues("http", endpoint).Inc()
		}
	}
}

// RecordStoreOperation records key-value store operation metrics.
func RecordStoreOperation(operation, result string) {
	storeOperationsTotal.WithLabelValues(operation, result).Inc()
	if result == "error" {
		errorsTotal.WithLabelValues("store", operation).Inc()
	}
}

// RecordAuthAttempt records authentication attempt metrics.
func RecordAuthAttempt(method, result string) {
	authAttemptsTotal.WithLabelValues(method, result).Inc()
	if result == "failure" {
		errorsTotal.WithLabelValues("auth", method).Inc()
	}
}

// RecordRateLimitDecision records a rate limiter admission decision.
func RecordRateLimitDecision(limitType string, allowed bool) {
	rateLimitDecisionsTotal.WithLabelValues(limitType, strconv.FormatBool(allowed)).Inc()
}

// RecordAuditEvent records an audit event write.
func RecordAuditEvent(eventType string, success bool) {
	auditEventsTotal.WithLabelValues(eventType, strconv.FormatBool(success)).Inc()
}

// RecordCacheManagerOperation records tenant cache manager metrics.
func RecordCacheManagerOperation(operation, result string) {
	cacheManagerOperationsTotal.WithLabelValues(operation, result).Inc()
	if result == "error" {
		errorsTotal.WithLabelValues("cache_manager", operation).Inc()
	}
}

// normalizeEndpoint replaces numeric path segments so metrics cardinality
// stays bounded.
func normalizeEndpoint(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if isNumeric(part) && i > 0 {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
