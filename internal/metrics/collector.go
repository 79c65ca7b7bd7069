// Package metrics provides internal Prometheus metrics collection. This
// package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds every Prometheus series the gateway emits.
type Collector struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	upstreamRequestsTotal   *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec

	reasoningTokensEmitted *prometheus.CounterVec
	answerTokensEmitted    *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers every series under namespace and returns the
// Collector. Call once per process; promauto panics on duplicate
// registration against the default registry.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests to the gateway.",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Gateway HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream provider calls, by phase and outcome.",
		},
		[]string{"provider", "model", "phase", "status"},
	)

	c.upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream provider call duration in seconds, by phase.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"provider", "model", "phase"},
	)

	c.reasoningTokensEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reasoning_tokens_emitted_total",
			Help:      "Total reasoning_content characters forwarded to clients.",
		},
		[]string{"deep_model"},
	)

	c.answerTokensEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_tokens_emitted_total",
			Help:      "Total content characters forwarded to clients.",
		},
		[]string{"deep_model"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordHTTPRequest records one completed gateway HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordUpstreamRequest records one completed upstream provider call.
// phase is "reason" or "answer"; status is "ok" or a lowercase failure label
// such as "upstream_http_error", "timeout", "transport_error" or "canceled".
func (c *Collector) RecordUpstreamRequest(provider, model, phase, status string, duration time.Duration) {
	c.upstreamRequestsTotal.WithLabelValues(provider, model, phase, status).Inc()
	c.upstreamRequestDuration.WithLabelValues(provider, model, phase).Observe(duration.Seconds())
}

// RecordReasoningChars adds n characters of reasoning_content emitted for deepModel.
func (c *Collector) RecordReasoningChars(deepModel string, n int) {
	if n <= 0 {
		return
	}
	c.reasoningTokensEmitted.WithLabelValues(deepModel).Add(float64(n))
}

// RecordAnswerChars adds n characters of content emitted for deepModel.
func (c *Collector) RecordAnswerChars(deepModel string, n int) {
	if n <= 0 {
		return
	}
	c.answerTokensEmitted.WithLabelValues(deepModel).Add(float64(n))
}

func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
