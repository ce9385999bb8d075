// Package bridge ingests a live transcription stream and forwards its events to a webhook.
package bridge

import (
	"errors"
	"fmt"
)

// State is the connection lifecycle of an Adapter.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateStreaming:
		return "STREAMING"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Frame types sent by the upstream source.
const (
	FrameAuthenticate          = "authenticate"
	FrameAuthSuccess           = "auth.success"
	FrameAuthFailed            = "auth.failed"
	FrameConnectionEstablished = "connection.established"
	FrameConnectionError       = "connection.error"
	FrameTranscription         = "transcription.broadcast"
)

var (
	ErrAuthFailed     = errors.New("bridge: authentication failed")
	ErrSourceClosed   = errors.New("bridge: source closed")
	ErrNotConnected   = errors.New("bridge: source not connected")
	ErrQueueClosed    = errors.New("bridge: queue closed")
	ErrAlreadyRunning = errors.New("bridge: adapter already running")
)
