package monitor

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector holds the storefront admin metrics
type MetricsCollector struct {
	// workflow metrics
	transitionTotal     *prometheus.CounterVec
	decisionTotal       *prometheus.CounterVec
	activationSentTotal prometheus.Counter

	// reconcile and sync loops
	reconcileTotal    *prometheus.CounterVec
	reconcileDuration prometheus.Histogram
	syncOrdersTotal   prometheus.Counter

	// upstream marketplace calls
	upstreamRequestTotal    *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec

	// chat pollers
	unreadPollTotal *prometheus.CounterVec

	// http metrics
	httpRequestTotal    *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var (
	defaultCollector *MetricsCollector
	collectorOnce    sync.Once
)

// Metrics returns the process-wide collector, registering the metric
// families on first use. promauto registration is not repeatable, so
// every caller shares this instance.
func Metrics() *MetricsCollector {
	collectorOnce.Do(func() {
		defaultCollector = newMetricsCollector()
	})
	return defaultCollector
}

// newMetricsCollector creates and registers the metrics
func newMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		transitionTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storeadmin_order_transition_total",
				Help: "Total number of order state transitions",
			},
			[]string{"action", "status"},
		),
		decisionTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storeadmin_activation_decision_total",
				Help: "Total number of activation decisions by outcome",
			},
			[]string{"outcome"},
		),
		activationSentTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "storeadmin_activation_sent_total",
				Help: "Total number of orders with activation delivered",
			},
		),
		reconcileTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storeadmin_settings_reconcile_total",
				Help: "Total number of settings reconcile cycles",
			},
			[]string{"status"},
		),
		reconcileDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "storeadmin_settings_reconcile_duration_seconds",
				Help:    "Duration of settings reconcile cycles",
				Buckets: prometheus.DefBuckets,
			},
		),
		syncOrdersTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "storeadmin_sync_orders_ingested_total",
				Help: "Total number of orders ingested from the marketplace",
			},
		),
		upstreamRequestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storeadmin_upstream_request_total",
				Help: "Total number of marketplace API requests",
			},
			[]string{"method", "status"},
		),
		upstreamRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storeadmin_upstream_request_duration_seconds",
				Help:    "Duration of marketplace API requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		unreadPollTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storeadmin_chat_unread_poll_total",
				Help: "Total number of chat unread poll cycles",
			},
			[]string{"status"},
		),
		httpRequestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storeadmin_http_request_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storeadmin_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordTransition records an order transition attempt
func (mc *MetricsCollector) RecordTransition(action string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	mc.transitionTotal.WithLabelValues(action, status).Inc()
}

// RecordDecision records an activation decision outcome
func (mc *MetricsCollector) RecordDecision(outcome string) {
	mc.decisionTotal.WithLabelValues(outcome).Inc()
}

// RecordActivationSent records a delivered activation
func (mc *MetricsCollector) RecordActivationSent() {
	mc.activationSentTotal.Inc()
}

// RecordReconcile records a settings reconcile cycle
func (mc *MetricsCollector) RecordReconcile(duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	mc.reconcileTotal.WithLabelValues(status).Inc()
	mc.reconcileDuration.Observe(duration.Seconds())
}

// RecordOrdersIngested records orders pulled in by the sync loop
func (mc *MetricsCollector) RecordOrdersIngested(count int) {
	mc.syncOrdersTotal.Add(float64(count))
}

// RecordUpstreamRequest records a marketplace API call
func (mc *MetricsCollector) RecordUpstreamRequest(method string, statusCode int, duration time.Duration) {
	mc.upstreamRequestTotal.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	mc.upstreamRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordUnreadPoll records a chat unread poll cycle
func (mc *MetricsCollector) RecordUnreadPoll(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	mc.unreadPollTotal.WithLabelValues(status).Inc()
}

// GinMiddleware records HTTP metrics per route
func (mc *MetricsCollector) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		mc.httpRequestTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		mc.httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the prometheus scrape endpoint
func (mc *MetricsCollector) Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
