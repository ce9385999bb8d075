package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"transcript-restream-service/internal/models"
	"transcript-restream-service/internal/observability/logging"
	"transcript-restream-service/internal/observability/metrics"
	"transcript-restream-service/internal/schema"
)

// Config identifies the upstream transcript.
type Config struct {
	Token        string
	TranscriptID string
	// AcceptBareEvents decodes unrecognized frames that are themselves
	// valid transcription events instead of dropping them.
	AcceptBareEvents bool
}

// Adapter reads frames from a source and queues transcription events.
type Adapter struct {
	cfg     Config
	source  FrameSource
	queue   *Queue
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu      sync.RWMutex
	state   State
	running bool
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithLogger replaces the adapter's logger.
func WithLogger(l zerolog.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = l }
}

// NewAdapter creates an adapter that feeds queue from source.
func NewAdapter(cfg Config, source FrameSource, queue *Queue, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		cfg:     cfg,
		source:  source,
		queue:   queue,
		metrics: metrics.DefaultMetrics,
		logger:  logging.WithBridge(cfg.TranscriptID),
		state:   StateConnecting,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns the current lifecycle state.
func (a *Adapter) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Adapter) setState(s State) {
	a.mu.Lock()
	prev := a.state
	a.state = s
	a.mu.Unlock()
	if prev != s {
		a.logger.Debug().Str("from", prev.String()).Str("to", s.String()).Msg("Bridge state changed")
	}
}

// AuthFrame builds the authenticate frame for cfg.
func AuthFrame(cfg Config) ([]byte, error) {
	return json.Marshal(map[string]any{
		"type": FrameAuthenticate,
		"data": map[string]string{
			"token":        "Bearer " + cfg.Token,
			"transcriptId": cfg.TranscriptID,
		},
	})
}

// Run connects, authenticates and reads until the source ends, ctx is
// cancelled or authentication fails. The queue is closed on return so the
// forwarder can drain what is left. A normal end of stream returns nil.
func (a *Adapter) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrAlreadyRunning
	}
	a.running = true
	a.mu.Unlock()

	defer func() {
		_ = a.source.Close()
		a.queue.Close()
		a.setState(StateClosed)
	}()

	a.setState(StateConnecting)
	if err := a.source.Dial(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	a.logger.Info().Msg("Bridge connection established")

	a.setState(StateAuthenticating)
	auth, err := AuthFrame(a.cfg)
	if err != nil {
		return err
	}
	if err := a.source.Send(ctx, auth); err != nil {
		return fmt.Errorf("send authenticate: %w", err)
	}

	for {
		f, err := a.source.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, ErrSourceClosed) {
				a.logger.Info().Err(err).Msg("Bridge stream ended")
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if err := a.handle(f); err != nil {
			return err
		}
	}
}

// handle classifies one frame. Only an authentication failure is fatal.
func (a *Adapter) handle(f []byte) error {
	if !gjson.ValidBytes(f) {
		a.metrics.RecordBridgeFrame("invalid")
		a.logger.Warn().Str("raw", truncate(string(f), 200)).Msg("Dropping non-JSON frame")
		return nil
	}

	typ := gjson.GetBytes(f, "type").String()
	data := gjson.GetBytes(f, "data")

	switch typ {
	case FrameAuthSuccess:
		a.metrics.RecordBridgeFrame(typ)
		a.setState(StateStreaming)
		a.logger.Info().Str("data", data.Raw).Msg("Bridge authenticated")

	case FrameAuthFailed:
		a.metrics.RecordBridgeFrame(typ)
		a.logger.Error().Str("data", data.Raw).Msg("Bridge authentication failed")
		return fmt.Errorf("%w: %s", ErrAuthFailed, data.Raw)

	case FrameConnectionEstablished:
		a.metrics.RecordBridgeFrame(typ)
		a.logger.Info().Msg("Bridge upstream ready")

	case FrameConnectionError:
		a.metrics.RecordBridgeFrame(typ)
		a.logger.Error().Str("data", data.Raw).Msg("Bridge upstream reported an error")

	case FrameTranscription:
		a.metrics.RecordBridgeFrame(typ)
		if a.State() == StateAuthenticating {
			// Some upstreams stream without an explicit auth.success.
			a.setState(StateStreaming)
		}
		if !data.Exists() {
			a.logger.Warn().Msg("Dropping transcription frame without data")
			return nil
		}
		a.accept([]byte(data.Raw))

	default:
		if a.cfg.AcceptBareEvents && schema.BridgeEvent.Validate(f) == nil {
			a.metrics.RecordBridgeFrame("bare")
			a.accept(f)
			return nil
		}
		a.metrics.RecordBridgeFrame("unknown")
		a.logger.Debug().Str("type", typ).Str("raw", truncate(string(f), 200)).Msg("Ignoring unknown frame")
	}
	return nil
}

// accept validates and decodes an event document and queues it.
func (a *Adapter) accept(raw []byte) {
	if err := schema.BridgeEvent.Validate(raw); err != nil {
		a.logger.Warn().
			Err(err).
			Str("expected", schema.BridgeEvent.Fields()).
			Str("raw", truncate(string(raw), 200)).
			Msg("Dropping invalid transcription event")
		return
	}
	var ev models.BridgeEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		a.logger.Warn().Err(err).Msg("Dropping undecodable transcription event")
		return
	}
	if !a.queue.Push(ev) {
		a.logger.Warn().Msg("Queue closed, dropping transcription event")
		return
	}
	a.logger.Debug().Str("speaker", ev.Speaker).Str("text", truncate(ev.Text, 40)).Msg("Queued transcription event")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
