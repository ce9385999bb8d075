package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// FrameSource is a bidirectional stream of JSON text frames.
type FrameSource interface {
	Dial(ctx context.Context) error
	Send(ctx context.Context, frame []byte) error
	// ReadFrame returns ErrSourceClosed when the upstream ends the stream normally.
	ReadFrame(ctx context.Context) ([]byte, error)
	Close() error
}

const sourceWriteWait = 10 * time.Second

// WebsocketSource reads frames from a websocket endpoint.
type WebsocketSource struct {
	url    string
	header http.Header
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebsocketSource creates a source for url. header may be nil.
func NewWebsocketSource(url string, header http.Header) *WebsocketSource {
	return &WebsocketSource{
		url:    url,
		header: header,
		dialer: websocket.DefaultDialer,
	}
}

func (s *WebsocketSource) Dial(ctx context.Context) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial %s: status %d: %w", s.url, resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial %s: %w", s.url, err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return nil
}

func (s *WebsocketSource) current() (*websocket.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn, nil
}

func (s *WebsocketSource) Send(ctx context.Context, frame []byte) error {
	conn, err := s.current()
	if err != nil {
		return err
	}
	deadline := time.Now().Add(sourceWriteWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// ReadFrame skips binary and control frames.
func (s *WebsocketSource) ReadFrame(ctx context.Context) ([]byte, error) {
	conn, err := s.current()
	if err != nil {
		return nil, err
	}
	// Unblock the read when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, ErrSourceClosed
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return nil, fmt.Errorf("%w: code %d %s", ErrSourceClosed, ce.Code, ce.Text)
			}
			return nil, fmt.Errorf("websocket read: %w", err)
		}
		if mt == websocket.TextMessage {
			return data, nil
		}
	}
}

func (s *WebsocketSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := s.conn.Close()
	s.conn = nil
	return err
}
