// Package webhook delivers replayed records by POSTing them to a fixed URL.
package webhook

import (
	"context"

	"transcript-restream-service/internal/models"
	"transcript-restream-service/internal/observability/logging"
	"transcript-restream-service/internal/service/replay"
	"transcript-restream-service/internal/service/session"
)

// Completion payload sent after the last record.
var completeNotice = models.CompletionNotice{
	Status:  "complete",
	Message: "Broadcast completed",
}

// Poster is the outbound HTTP capability the sink needs.
type Poster interface {
	PostJSON(ctx context.Context, url string, payload any) error
}

// Sink POSTs each record envelope and aborts on the first failure.
type Sink struct {
	url    string
	client Poster
}

// New creates a webhook sink targeting url.
func New(url string, client Poster) *Sink {
	return &Sink{url: url, client: client}
}

func (s *Sink) Kind() session.Kind {
	return session.KindWebhook
}

// Deliver sends one record or the completion notice. A failed completion
// notice is only logged: every record already reached the consumer.
func (s *Sink) Deliver(ctx context.Context, d replay.Delivery) error {
	if !d.Complete {
		return s.client.PostJSON(ctx, s.url, d.Envelope())
	}

	if err := s.client.PostJSON(ctx, s.url, completeNotice); err != nil {
		logger := logging.WithSession(d.SessionID, session.KindWebhook.String())
		logger.Warn().Err(err).Str("url", s.url).Msg("Completion notice failed")
	}
	return nil
}
