package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"transcript-restream-service/internal/config"
	"transcript-restream-service/internal/models"
	"transcript-restream-service/internal/service/replay"
	"transcript-restream-service/internal/service/session"
)

type nopSink struct{}

func (nopSink) Kind() session.Kind { return session.KindWebhook }

func (nopSink) Deliver(context.Context, replay.Delivery) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Service:     config.ServiceConfig{Name: "test", Principal: "svc-test", HTTPPort: 8080},
		Transcripts: config.TranscriptConfig{Dir: t.TempDir(), DefaultFile: "call.csv"},
		Webhook:     config.WebhookConfig{Timeout: time.Second},
		Session:     config.SessionConfig{PendingTTL: 0},
	}
}

func TestNew_WiresDependencies(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Registry == nil || a.Loader == nil || a.Scheduler == nil || a.LivePush == nil || a.Webhook == nil || a.Publisher == nil {
		t.Fatalf("expected all dependencies resolved: %+v", a)
	}
	if a.Publisher.Enabled() {
		t.Error("expected kafka disabled in test config")
	}
	if a.Loader.Dir() != a.Cfg.Transcripts.Dir {
		t.Errorf("expected loader rooted at %s, got %s", a.Cfg.Transcripts.Dir, a.Loader.Dir())
	}
}

func TestApplication_ReadyAfterStart(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Ready(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted before Start, got %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	if err := a.Ready(); err != nil {
		t.Errorf("expected ready after Start, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	a.Shutdown(ctx)
}

func TestApplication_ShutdownRetiresBackgroundSessions(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	_ = a.Start()

	recs := []models.TranscriptRecord{
		{TimeCode: "0", Speaker: "A", Sentence: "now"},
		{TimeCode: "9999", Speaker: "B", Sentence: "much later"},
	}
	_ = a.Registry.Create(session.New("bg", "call.csv", session.KindWebhook, recs))
	a.Scheduler.Start("bg", nopSink{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	a.Shutdown(ctx)

	if a.Registry.Len() != 0 {
		t.Errorf("expected background session retired on shutdown, %d left", a.Registry.Len())
	}
}
