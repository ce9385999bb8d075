package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// SimulatedUtterance is one scripted utterance with progressive partials.
type SimulatedUtterance struct {
	Speaker    string
	Partials   []string
	Final      string
	Confidence float64
}

// DefaultUtterances is the script played by a SimulatedSource.
var DefaultUtterances = []SimulatedUtterance{
	{
		Speaker:    "Caller",
		Partials:   []string{"I want", "I want to", "I want to cancel"},
		Final:      "I want to cancel my subscription",
		Confidence: 0.94,
	},
	{
		Speaker:    "Agent",
		Partials:   []string{"I can", "I can help"},
		Final:      "I can help with that, may I have your account number",
		Confidence: 0.92,
	},
	{
		Speaker:    "Caller",
		Partials:   []string{"Yes", "Yes it is"},
		Final:      "Yes it is four five six seven",
		Confidence: 0.89,
	},
	{
		Speaker:    "Agent",
		Partials:   []string{"Thank you"},
		Final:      "Thank you, the subscription is cancelled",
		Confidence: 0.97,
	},
}

// SimulatedSource plays a scripted upstream session without a network.
// It answers the authenticate frame with auth.success (or auth.failed when
// the token does not match) and then emits one transcription.broadcast frame
// per partial and final, Interval apart.
type SimulatedSource struct {
	Utterances []SimulatedUtterance
	Interval   time.Duration
	// Token, when set, must match the bearer token of the authenticate frame.
	Token string

	mu      sync.Mutex
	pending [][]byte
	ready   chan struct{}
	dialed  bool
	closed  bool
	emitted bool
	started time.Time
}

// NewSimulatedSource creates a source over the default script.
func NewSimulatedSource(interval time.Duration) *SimulatedSource {
	return &SimulatedSource{
		Utterances: DefaultUtterances,
		Interval:   interval,
	}
}

func (s *SimulatedSource) Dial(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSourceClosed
	}
	s.dialed = true
	s.ready = make(chan struct{}, 1)
	s.started = time.Now()
	s.pending = append(s.pending, frame(FrameConnectionEstablished, map[string]string{"status": "ok"}))
	return nil
}

func (s *SimulatedSource) Send(ctx context.Context, f []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dialed || s.closed {
		return ErrNotConnected
	}
	if gjson.GetBytes(f, "type").String() != FrameAuthenticate {
		return nil
	}

	token := gjson.GetBytes(f, "data.token").String()
	if s.Token != "" && token != "Bearer "+s.Token {
		s.pending = append(s.pending, frame(FrameAuthFailed, map[string]string{"message": "invalid token"}))
	} else {
		s.pending = append(s.pending, frame(FrameAuthSuccess, map[string]string{
			"transcriptId": gjson.GetBytes(f, "data.transcriptId").String(),
		}))
		if !s.emitted {
			s.emitted = true
			s.pending = append(s.pending, s.script()...)
		}
	}
	select {
	case s.ready <- struct{}{}:
	default:
	}
	return nil
}

func (s *SimulatedSource) script() [][]byte {
	var frames [][]byte
	ts := s.started.Unix()
	for _, u := range s.Utterances {
		for _, p := range u.Partials {
			frames = append(frames, transcription(u.Speaker, p, ts, nil, false))
		}
		conf := u.Confidence
		frames = append(frames, transcription(u.Speaker, u.Final, ts, &conf, true))
		ts++
	}
	return frames
}

// ReadFrame returns the next scripted frame, then ErrSourceClosed once the
// script is exhausted.
func (s *SimulatedSource) ReadFrame(ctx context.Context) ([]byte, error) {
	for {
		s.mu.Lock()
		if !s.dialed || s.closed {
			s.mu.Unlock()
			return nil, ErrNotConnected
		}
		if len(s.pending) > 0 {
			f := s.pending[0]
			s.pending = s.pending[1:]
			paced := gjson.GetBytes(f, "type").String() == FrameTranscription
			s.mu.Unlock()

			if paced && s.Interval > 0 {
				t := time.NewTimer(s.Interval)
				select {
				case <-ctx.Done():
					t.Stop()
					return nil, ctx.Err()
				case <-t.C:
				}
			}
			return f, nil
		}
		exhausted := s.emitted
		ready := s.ready
		s.mu.Unlock()

		if exhausted {
			return nil, ErrSourceClosed
		}
		select {
		case <-ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *SimulatedSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.pending = nil
	return nil
}

func frame(typ string, data any) []byte {
	b, _ := json.Marshal(map[string]any{"type": typ, "data": data})
	return b
}

func transcription(speaker, text string, ts int64, confidence *float64, final bool) []byte {
	data := map[string]any{
		"type":      "transcript",
		"timestamp": ts,
		"speaker":   speaker,
		"text":      text,
		"is_final":  final,
	}
	if confidence != nil {
		data["confidence"] = *confidence
	}
	return frame(FrameTranscription, data)
}
