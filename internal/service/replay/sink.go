// Package replay paces a session's records through a sink and retires the session.
package replay

import (
	"context"

	"transcript-restream-service/internal/models"
	"transcript-restream-service/internal/service/session"
)

// Delivery is one unit handed to a sink: either a record or the completion signal.
type Delivery struct {
	SessionID string
	Index     int
	Record    *models.TranscriptRecord
	Complete  bool
}

// Envelope returns the wire envelope of a record delivery.
func (d Delivery) Envelope() models.Envelope {
	var body models.TranscriptRecord
	if d.Record != nil {
		body = *d.Record
	}
	return models.Envelope{SessionID: d.SessionID, Body: body}
}

// Sink is a delivery target for one session.
type Sink interface {
	Kind() session.Kind
	Deliver(ctx context.Context, d Delivery) error
}

// RecordPublisher receives copies of delivered envelopes.
type RecordPublisher interface {
	PublishRecord(ctx context.Context, sessionID string, envelope any) error
}

type mirrorSink struct {
	Sink
	pub RecordPublisher
}

// Mirror wraps primary so every record it accepts is also published.
// Publish failures are logged and never fail the delivery.
func Mirror(primary Sink, pub RecordPublisher) Sink {
	if pub == nil {
		return primary
	}
	return &mirrorSink{Sink: primary, pub: pub}
}

func (m *mirrorSink) Deliver(ctx context.Context, d Delivery) error {
	if err := m.Sink.Deliver(ctx, d); err != nil {
		return err
	}
	if d.Record == nil {
		return nil
	}
	// The publisher logs its own failures.
	_ = m.pub.PublishRecord(ctx, d.SessionID, d.Envelope())
	return nil
}
