// Package events mirrors delivered transcript records and bridge events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"transcript-restream-service/internal/observability/metrics"
)

// Event types carried in the eventType header.
const (
	EventTypeRecord = "transcript.replay.record"
	EventTypeBridge = "transcript.bridge.event"
)

// Publisher writes mirror messages to the records and bridge topics.
// A disabled publisher only logs.
type Publisher struct {
	writerRecords *kafka.Writer
	writerBridge  *kafka.Writer
	principal     string
	topicRecords  string
	topicBridge   string
	enabled       bool
	metrics       *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers      []string
	TopicRecords string
	TopicBridge  string
	Principal    string
	Enabled      bool
}

// New creates a publisher. Without brokers or with Enabled unset it runs in log-only mode.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:    cfg.Principal,
			topicRecords: cfg.TopicRecords,
			topicBridge:  cfg.TopicBridge,
			enabled:      false,
			metrics:      m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicRecords", cfg.TopicRecords).
		Str("topicBridge", cfg.TopicBridge).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerRecords: newWriter(cfg.Brokers, cfg.TopicRecords, transport),
		writerBridge:  newWriter(cfg.Brokers, cfg.TopicBridge, transport),
		principal:     cfg.Principal,
		topicRecords:  cfg.TopicRecords,
		topicBridge:   cfg.TopicBridge,
		enabled:       true,
		metrics:       m,
	}
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// Enabled reports whether messages actually reach Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// PublishRecord mirrors a delivered record envelope, keyed by session id.
func (p *Publisher) PublishRecord(ctx context.Context, sessionID string, envelope any) error {
	return p.publish(ctx, p.writerRecords, p.topicRecords, EventTypeRecord, sessionID, envelope)
}

// PublishBridgeEvent mirrors a bridge event, keyed by upstream transcript id.
func (p *Publisher) PublishBridgeEvent(ctx context.Context, transcriptID string, event any) error {
	return p.publish(ctx, p.writerBridge, p.topicBridge, EventTypeBridge, transcriptID, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerRecords != nil {
		if e := p.writerRecords.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing records writer")
			err = e
		}
	}
	if p.writerBridge != nil {
		if e := p.writerBridge.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing bridge writer")
			err = e
		}
	}
	return err
}
