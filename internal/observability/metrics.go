package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_http_requests_total",
			Help: "Total number of HTTP requests processed by the messaging service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "messaging_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	messagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_messages_sent_total",
			Help: "Total number of messages persisted, by encryption scheme.",
		},
		[]string{"scheme"},
	)
	decryptFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_decrypt_failures_total",
			Help: "Total number of message decryptions that degraded to the fallback text.",
		},
		[]string{"scheme"},
	)
	activeSubscriptions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "messaging_realtime_subscriptions",
			Help: "Number of live realtime subscriptions.",
		},
		[]string{"channel"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "messaging_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messaging_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		messagesSentTotal,
		decryptFailuresTotal,
		activeSubscriptions,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncMessageSent(scheme string) {
	messagesSentTotal.WithLabelValues(scheme).Inc()
}

func IncDecryptFailure(scheme string) {
	if scheme == "" {
		scheme = "unknown"
	}
	decryptFailuresTotal.WithLabelValues(scheme).Inc()
}

func IncSubscriptions(channel string) {
	activeSubscriptions.WithLabelValues(channel).Inc()
}

func DecSubscriptions(channel string) {
	activeSubscriptions.WithLabelValues(channel).Dec()
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
