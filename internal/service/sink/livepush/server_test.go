package livepush

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"transcript-restream-service/internal/models"
	"transcript-restream-service/internal/service/replay"
	"transcript-restream-service/internal/service/session"
)

type harness struct {
	registry *session.Registry
	server   *Server
	http     *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg := session.NewRegistry()
	srv := NewServer(replay.NewScheduler(reg), nil)

	r := chi.NewRouter()
	r.Get("/ws/{"+URLParam+"}", srv.ServeHTTP)
	ts := httptest.NewServer(r)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
	})
	return &harness{registry: reg, server: srv, http: ts}
}

func (h *harness) dial(t *testing.T, id string) *websocket.Conn {
	t.Helper()
	url := URL("ws"+strings.TrimPrefix(h.http.URL, "http"), id)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func waitRetired(t *testing.T, reg *session.Registry, id string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := reg.Get(id); !ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session %s was not retired", id)
}

func TestServer_UnknownSession(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "does-not-exist")

	mt, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected sentinel frame, got %v", err)
	}
	if mt != websocket.TextMessage || string(msg) != models.SessionNotFound {
		t.Errorf("expected %s text frame, got %d %q", models.SessionNotFound, mt, msg)
	}

	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		t.Fatalf("expected close after sentinel, got %v", err)
	}
}

func TestServer_WebhookSessionIsNotFound(t *testing.T) {
	h := newHarness(t)
	_ = h.registry.Create(session.New("wh", "c.csv", session.KindWebhook, nil))

	conn := h.dial(t, "wh")
	mt, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected sentinel frame, got %v", err)
	}
	if mt != websocket.TextMessage || string(msg) != models.SessionNotFound {
		t.Errorf("expected %s text frame, got %d %q", models.SessionNotFound, mt, msg)
	}

	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.ClosePolicyViolation {
		t.Errorf("expected policy violation close, got %v", err)
	}

	s, ok := h.registry.Get("wh")
	if !ok {
		t.Fatal("expected webhook session to stay registered")
	}
	if s.State != session.StatePending {
		t.Errorf("expected StatePending, got %s", s.State)
	}
}

func TestServer_ClaimedSessionIsNotFound(t *testing.T) {
	h := newHarness(t)
	_ = h.registry.Create(session.New("busy", "c.csv", session.KindLivePush, nil))
	if _, err := h.registry.Claim("busy", session.KindLivePush); err != nil {
		t.Fatal(err)
	}

	conn := h.dial(t, "busy")
	_, msg, err := conn.ReadMessage()
	if err != nil || string(msg) != models.SessionNotFound {
		t.Fatalf("expected %s, got %q (%v)", models.SessionNotFound, msg, err)
	}
	if _, ok := h.registry.Get("busy"); !ok {
		t.Error("session owned by another loop must not be retired")
	}
}

func TestServer_FullReplay(t *testing.T) {
	h := newHarness(t)
	recs := []models.TranscriptRecord{
		{TimeCode: "0", Speaker: "Agent", Sentence: "Hello"},
		{TimeCode: "0", Speaker: "Caller", Sentence: "Hi"},
		{TimeCode: "bad", Speaker: "Agent", Sentence: "How can I help?"},
	}
	_ = h.registry.Create(session.New("live-1", "call.csv", session.KindLivePush, recs))

	conn := h.dial(t, "live-1")
	for i, want := range recs {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if mt != websocket.TextMessage {
			t.Errorf("frame %d: expected text frame, got %d", i, mt)
		}
		var env models.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("frame %d: decode: %v", i, err)
		}
		if env.SessionID != "live-1" || env.Body != want {
			t.Errorf("frame %d: expected %+v, got %+v", i, want, env)
		}
	}

	_, msg, err := conn.ReadMessage()
	if err != nil || string(msg) != models.SessionComplete {
		t.Fatalf("expected %s, got %q (%v)", models.SessionComplete, msg, err)
	}

	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close, got %v", err)
	}
	waitRetired(t, h.registry, "live-1")
}

func TestServer_DisconnectAbortsPendingWait(t *testing.T) {
	h := newHarness(t)
	recs := []models.TranscriptRecord{
		{TimeCode: "00:00:00", Speaker: "A", Sentence: "first"},
		{TimeCode: "01:00:00", Speaker: "B", Sentence: "an hour later"},
	}
	_ = h.registry.Create(session.New("live-2", "call.csv", session.KindLivePush, recs))

	conn := h.dial(t, "live-2")
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("expected first record: %v", err)
	}
	conn.Close()

	waitRetired(t, h.registry, "live-2")
}

func TestServer_SecondConsumerGetsNotFound(t *testing.T) {
	h := newHarness(t)
	recs := []models.TranscriptRecord{
		{TimeCode: "0", Speaker: "A", Sentence: "first"},
		{TimeCode: "3600", Speaker: "B", Sentence: "later"},
	}
	_ = h.registry.Create(session.New("live-3", "call.csv", session.KindLivePush, recs))

	first := h.dial(t, "live-3")
	if _, _, err := first.ReadMessage(); err != nil {
		t.Fatalf("first consumer: %v", err)
	}

	second := h.dial(t, "live-3")
	_, msg, err := second.ReadMessage()
	if err != nil || string(msg) != models.SessionNotFound {
		t.Errorf("expected second consumer to get %s, got %q (%v)", models.SessionNotFound, msg, err)
	}
}

func TestServer_ShutdownAbortsSessions(t *testing.T) {
	h := newHarness(t)
	recs := []models.TranscriptRecord{
		{TimeCode: "0", Speaker: "A", Sentence: "first"},
		{TimeCode: "7200", Speaker: "B", Sentence: "much later"},
	}
	_ = h.registry.Create(session.New("live-4", "call.csv", session.KindLivePush, recs))

	conn := h.dial(t, "live-4")
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("expected first record: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	waitRetired(t, h.registry, "live-4")
}

func TestURL(t *testing.T) {
	tests := []struct {
		base, id, want string
	}{
		{"ws://localhost:8080", "abc", "ws://localhost:8080/ws/abc"},
		{"wss://example.com/", "abc", "wss://example.com/ws/abc"},
	}
	for _, tt := range tests {
		if got := URL(tt.base, tt.id); got != tt.want {
			t.Errorf("URL(%q, %q) = %q, want %q", tt.base, tt.id, got, tt.want)
		}
	}
}
