package replay

import (
	"context"
	"errors"
	"testing"

	"transcript-restream-service/internal/models"
	"transcript-restream-service/internal/service/session"
)

type fakePublisher struct {
	keys      []string
	envelopes []any
	err       error
}

func (p *fakePublisher) PublishRecord(_ context.Context, sessionID string, envelope any) error {
	p.keys = append(p.keys, sessionID)
	p.envelopes = append(p.envelopes, envelope)
	return p.err
}

func TestMirror_NilPublisherReturnsPrimary(t *testing.T) {
	primary := newRecordingSink(session.KindWebhook)
	if got := Mirror(primary, nil); got != Sink(primary) {
		t.Error("expected primary sink unchanged")
	}
}

func TestMirror_PublishesDeliveredRecords(t *testing.T) {
	primary := newRecordingSink(session.KindLivePush)
	pub := &fakePublisher{err: errors.New("broker down")}
	sink := Mirror(primary, pub)

	if sink.Kind() != session.KindLivePush {
		t.Errorf("expected mirrored sink to keep kind, got %s", sink.Kind())
	}

	rec := models.TranscriptRecord{TimeCode: "1", Speaker: "A", Sentence: "hi"}
	if err := sink.Deliver(context.Background(), Delivery{SessionID: "s", Record: &rec}); err != nil {
		t.Fatalf("publish failure must not fail delivery: %v", err)
	}
	if err := sink.Deliver(context.Background(), Delivery{SessionID: "s", Complete: true}); err != nil {
		t.Fatal(err)
	}

	if len(pub.envelopes) != 1 {
		t.Fatalf("expected only the record mirrored, got %d", len(pub.envelopes))
	}
	env, ok := pub.envelopes[0].(models.Envelope)
	if !ok || env.SessionID != "s" || env.Body.Sentence != "hi" || pub.keys[0] != "s" {
		t.Errorf("unexpected mirrored envelope %+v", pub.envelopes[0])
	}
}

func TestMirror_FailedPrimaryIsNotPublished(t *testing.T) {
	primary := newRecordingSink(session.KindWebhook)
	primary.failAt = 0
	pub := &fakePublisher{}

	rec := models.TranscriptRecord{TimeCode: "1"}
	if err := Mirror(primary, pub).Deliver(context.Background(), Delivery{SessionID: "s", Record: &rec}); err == nil {
		t.Fatal("expected primary error")
	}
	if len(pub.envelopes) != 0 {
		t.Error("expected nothing mirrored after a failed delivery")
	}
}
