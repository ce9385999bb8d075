package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"transcript-restream-service/internal/models"
	"transcript-restream-service/internal/observability/logging"
	"transcript-restream-service/internal/observability/metrics"
)

// SourceTag marks forwarded payloads.
const SourceTag = "bridge"

// Poster is the outbound HTTP capability the forwarder needs.
type Poster interface {
	PostJSON(ctx context.Context, url string, payload any) error
}

// EventPublisher receives a copy of every forwarded event.
type EventPublisher interface {
	PublishBridgeEvent(ctx context.Context, transcriptID string, event any) error
}

// Forwarder drains a Queue into webhook POSTs, one per event.
type Forwarder struct {
	url          string
	client       Poster
	publisher    EventPublisher
	transcriptID string
	now          func() time.Time
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// NewForwarder creates a forwarder. publisher may be nil.
func NewForwarder(url, transcriptID string, client Poster, publisher EventPublisher) *Forwarder {
	return &Forwarder{
		url:          url,
		client:       client,
		publisher:    publisher,
		transcriptID: transcriptID,
		now:          time.Now,
		metrics:      metrics.DefaultMetrics,
		logger:       logging.WithBridge(transcriptID).With().Str("url", url).Logger(),
	}
}

// Run forwards events until the queue is closed and drained or ctx ends.
// A failed POST is logged and the next event is still sent.
func (f *Forwarder) Run(ctx context.Context, q *Queue) error {
	f.logger.Info().Msg("Webhook forwarder started")
	forwarded := 0
	for {
		ev, err := q.Pop(ctx)
		if errors.Is(err, ErrQueueClosed) {
			f.logger.Info().Int("forwarded", forwarded).Msg("Webhook forwarder drained")
			return nil
		}
		if err != nil {
			return err
		}
		if f.forward(ctx, ev) {
			forwarded++
		}
	}
}

func (f *Forwarder) forward(ctx context.Context, ev models.BridgeEvent) bool {
	payload := models.BridgePayload{
		Source:    SourceTag,
		Event:     ev,
		Timestamp: f.now().Unix(),
	}

	err := f.client.PostJSON(ctx, f.url, payload)
	f.metrics.RecordBridgeForward(err)

	if f.publisher != nil {
		_ = f.publisher.PublishBridgeEvent(ctx, f.transcriptID, ev)
	}

	if err != nil {
		f.logger.Error().Err(err).Str("speaker", ev.Speaker).Msg("Failed to forward event")
		return false
	}
	f.logger.Debug().Str("speaker", ev.Speaker).Str("text", truncate(ev.Text, 40)).Msg("Forwarded event")
	return true
}
