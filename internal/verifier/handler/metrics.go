package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	indentureVerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indenture_verdicts_total",
		Help: "Total verification verdicts by contract and outcome.",
	}, []string{"contract", "outcome"})

	indentureRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indenture_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	indentureRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "indenture_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	indentureHealthChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indenture_health_checks_total",
		Help: "Total webhook endpoint probes by result.",
	}, []string{"result"})

	indentureAuditEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "indenture_audit_entries_total",
		Help: "Total audit log entries appended.",
	})

	indentureWebhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indenture_webhook_deliveries_total",
		Help: "Total webhook deliveries by success status.",
	}, []string{"status"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		indentureRequestsTotal.WithLabelValues(method, path, status).Inc()
		indentureRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordVerdict records a verification verdict outcome.
func RecordVerdict(contractName, outcome string) {
	indentureVerdictsTotal.WithLabelValues(contractName, outcome).Inc()
}

// RecordAuditEntry records one entry successfully appended to the audit log.
func RecordAuditEntry() {
	indentureAuditEntriesTotal.Inc()
}

// RecordHealthCheck records a webhook endpoint probe result.
func RecordHealthCheck(success bool) {
	if success {
		indentureHealthChecksTotal.WithLabelValues("success").Inc()
	} else {
		indentureHealthChecksTotal.WithLabelValues("failure").Inc()
	}
}

// RecordWebhookDelivery records a webhook delivery attempt.
func RecordWebhookDelivery(success bool) {
	if success {
		indentureWebhookDeliveriesTotal.WithLabelValues("success").Inc()
	} else {
		indentureWebhookDeliveriesTotal.WithLabelValues("failure").Inc()
	}
}
