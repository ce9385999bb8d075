// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "transcript_restream"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsCreated  *prometheus.CounterVec
	SessionsActive   *prometheus.GaugeVec
	SessionsFinished *prometheus.CounterVec
	SessionsExpired  prometheus.Counter
	SessionDuration  *prometheus.HistogramVec

	// Delivery metrics
	RecordsDelivered *prometheus.CounterVec
	DeliveryErrors   *prometheus.CounterVec
	PacingWait       prometheus.Histogram

	// Webhook metrics
	WebhookRequests *prometheus.CounterVec
	WebhookLatency  prometheus.Histogram

	// Bridge metrics
	BridgeFrames       *prometheus.CounterVec
	BridgeQueueDepth   prometheus.Gauge
	BridgeForwarded    prometheus.Counter
	BridgeForwardFails prometheus.Counter

	// Kafka mirror metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// API metrics
	GRPCRequests *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of replay sessions created",
		}, []string{"sink"}),
		SessionsActive: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of replay sessions currently delivering",
		}, []string{"sink"}),
		SessionsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finished_total",
			Help:      "Total number of replay sessions retired after delivery",
		}, []string{"sink", "outcome"}),
		SessionsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Total number of pending sessions retired without a consumer",
		}),
		SessionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall-clock duration of replay sessions",
			Buckets:   []float64{1, 5, 30, 60, 300, 900, 1800, 3600, 7200},
		}, []string{"sink"}),

		RecordsDelivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_delivered_total",
			Help:      "Total number of transcript records delivered",
		}, []string{"sink"}),
		DeliveryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_errors_total",
			Help:      "Total number of aborted deliveries",
		}, []string{"sink"}),
		PacingWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pacing_wait_seconds",
			Help:      "Wait issued before each record delivery",
			Buckets:   []float64{0, 1, 2, 5, 10, 30, 60, 300},
		}),

		WebhookRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_requests_total",
			Help:      "Total number of webhook POST requests",
		}, []string{"result"}),
		WebhookLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_latency_seconds",
			Help:      "Webhook POST latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),

		BridgeFrames: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_frames_total",
			Help:      "Total number of inbound bridge frames by classification",
		}, []string{"type"}),
		BridgeQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_queue_depth",
			Help:      "Events waiting in the bridge forwarding queue",
		}),
		BridgeForwarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_forwarded_total",
			Help:      "Total number of bridge events forwarded to the webhook",
		}),
		BridgeForwardFails: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_forward_failures_total",
			Help:      "Total number of bridge events that failed to forward",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		GRPCRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Total number of gRPC calls by method and code",
		}, []string{"method", "code"}),
	}
}

// RecordSessionCreated records a new session entering the registry.
func (m *Metrics) RecordSessionCreated(sink string) {
	m.SessionsCreated.WithLabelValues(sink).Inc()
}

// RecordSessionStart records a delivery loop claiming a session.
func (m *Metrics) RecordSessionStart(sink string) {
	m.SessionsActive.WithLabelValues(sink).Inc()
}

// RecordSessionEnd records a session being retired by its delivery loop.
func (m *Metrics) RecordSessionEnd(sink string, success bool, durationSeconds float64) {
	m.SessionsActive.WithLabelValues(sink).Dec()
	m.SessionDuration.WithLabelValues(sink).Observe(durationSeconds)
	outcome := "completed"
	if !success {
		outcome = "failed"
		m.DeliveryErrors.WithLabelValues(sink).Inc()
	}
	m.SessionsFinished.WithLabelValues(sink, outcome).Inc()
}

// RecordSessionExpired records a pending session swept by the reaper.
func (m *Metrics) RecordSessionExpired() {
	m.SessionsExpired.Inc()
}

// RecordDelivered records one record delivered through a sink.
func (m *Metrics) RecordDelivered(sink string) {
	m.RecordsDelivered.WithLabelValues(sink).Inc()
}

// RecordPacingWait records the wait issued before a delivery.
func (m *Metrics) RecordPacingWait(seconds float64) {
	m.PacingWait.Observe(seconds)
}

// RecordWebhook records a webhook POST attempt.
func (m *Metrics) RecordWebhook(err error, latencySeconds float64) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.WebhookRequests.WithLabelValues(result).Inc()
	m.WebhookLatency.Observe(latencySeconds)
}

// RecordBridgeFrame records an inbound bridge frame by classification.
func (m *Metrics) RecordBridgeFrame(frameType string) {
	m.BridgeFrames.WithLabelValues(frameType).Inc()
}

// SetBridgeQueueDepth records the current forwarding backlog.
func (m *Metrics) SetBridgeQueueDepth(n int) {
	m.BridgeQueueDepth.Set(float64(n))
}

// RecordBridgeForward records a forwarded bridge event.
func (m *Metrics) RecordBridgeForward(err error) {
	if err != nil {
		m.BridgeForwardFails.Inc()
		return
	}
	m.BridgeForwarded.Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordGRPCRequest records a gRPC call outcome.
func (m *Metrics) RecordGRPCRequest(method, code string) {
	m.GRPCRequests.WithLabelValues(method, code).Inc()
}
