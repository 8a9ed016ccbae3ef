package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type coachMetrics struct {
	turnTotal    *prometheus.CounterVec
	turnDuration prometheus.Histogram

	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec

	providerCallTotal *prometheus.CounterVec
	providerFailovers prometheus.Counter

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	telegramUpdateTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *coachMetrics
)

func getMetrics() *coachMetrics {
	metricsOnce.Do(func() {
		m := &coachMetrics{
			turnTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "turn_total",
					Help: "Total processed turns by status.",
				},
				[]string{"status"},
			),
			turnDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "turn_duration_seconds",
					Help:    "Turn processing duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			providerCallTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "provider_call_total",
					Help: "Total LLM provider calls by provider and status.",
				},
				[]string{"provider", "status"},
			),
			providerFailovers: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "provider_failover_total",
					Help: "Total failovers to a lower priority auth profile.",
				},
			),
			httpRequestsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total HTTP requests by path, method and status code.",
				},
				[]string{"path", "method", "status"},
			),
			httpRequestDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request duration in seconds by path.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"path"},
			),
			telegramUpdateTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "telegram_update_total",
					Help: "Total Telegram updates by status.",
				},
				[]string{"status"},
			),
		}

		prometheus.MustRegister(
			m.turnTotal,
			m.turnDuration,
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.providerCallTotal,
			m.providerFailovers,
			m.httpRequestsTotal,
			m.httpRequestDuration,
			m.telegramUpdateTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordTurn records one processed turn.
func RecordTurn(duration time.Duration, success bool) {
	m := getMetrics()
	m.turnTotal.WithLabelValues(statusLabel(success)).Inc()
	m.turnDuration.Observe(duration.Seconds())
}

// RecordToolExecution records one tool invocation.
func RecordToolExecution(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	m.toolExecutionTotal.WithLabelValues(tool, statusLabel(success)).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordProviderCall records one LLM call against an auth profile.
func RecordProviderCall(provider string, success bool) {
	getMetrics().providerCallTotal.WithLabelValues(provider, statusLabel(success)).Inc()
}

// RecordProviderFailover records a switch to the next auth profile.
func RecordProviderFailover() {
	getMetrics().providerFailovers.Inc()
}

// RecordHTTPRequest records one request on the HTTP surface.
func RecordHTTPRequest(path, method string, status int, duration time.Duration) {
	m := getMetrics()
	m.httpRequestsTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordTelegramUpdate records one inbound Telegram update.
func RecordTelegramUpdate(success bool) {
	getMetrics().telegramUpdateTotal.WithLabelValues(statusLabel(success)).Inc()
}
