// Package livepush streams a session's replay to one websocket consumer.
package livepush

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"transcript-restream-service/internal/models"
	"transcript-restream-service/internal/observability/logging"
	"transcript-restream-service/internal/service/replay"
	"transcript-restream-service/internal/service/session"
)

// DefaultWriteWait bounds every outbound frame.
const DefaultWriteWait = 10 * time.Second

// URLParam is the chi route parameter holding the session id.
const URLParam = "sessionID"

// URL joins a public websocket base and a session id into a connect address.
func URL(base, sessionID string) string {
	return strings.TrimRight(base, "/") + "/ws/" + sessionID
}

// Server upgrades consumer connections and runs their sessions.
type Server struct {
	scheduler *replay.Scheduler
	publisher replay.RecordPublisher
	upgrader  websocket.Upgrader
	writeWait time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a live-push server. publisher may be nil.
func NewServer(scheduler *replay.Scheduler, publisher replay.RecordPublisher) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		scheduler: scheduler,
		publisher: publisher,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // consumers are not authenticated
			},
		},
		writeWait: DefaultWriteWait,
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// ServeHTTP handles GET /ws/{sessionID}.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, URLParam)
	logger := logging.WithSession(id, session.KindLivePush.String())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer conn.Close()

	logger.Info().Str("remote", r.RemoteAddr).Msg("Consumer connected")

	ctx, cancel := context.WithCancel(s.baseCtx)
	defer cancel()

	// Read pump: the consumer never sends data, so any read error means it left.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sink := &connSink{conn: conn, writeWait: s.writeWait}
	err = s.scheduler.Run(ctx, id, replay.Mirror(sink, s.publisher))
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionClaimed),
		errors.Is(err, session.ErrKindMismatch):
		logger.Warn().Err(err).Msg("Session not available")
		if werr := sink.writeText(models.SessionNotFound); werr != nil {
			return
		}
		sink.close(websocket.ClosePolicyViolation, "session not found")
	case err != nil:
		logger.Debug().Err(err).Msg("Live-push session ended early")
	default:
		sink.close(websocket.CloseNormalClosure, "")
	}
}

// Shutdown aborts live sessions and waits for their handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// connSink writes deliveries to a websocket. Only the delivery loop writes.
type connSink struct {
	conn      *websocket.Conn
	writeWait time.Duration
}

func (c *connSink) Kind() session.Kind {
	return session.KindLivePush
}

func (c *connSink) Deliver(_ context.Context, d replay.Delivery) error {
	if d.Complete {
		return c.writeText(models.SessionComplete)
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.conn.WriteJSON(d.Envelope())
}

func (c *connSink) writeText(msg string) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (c *connSink) close(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait))
}
