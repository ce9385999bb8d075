// Package session provides the replay session registry and lifecycle.
package session

import (
	"errors"
	"fmt"
)

// State represents the lifecycle state of a replay session.
type State int

const (
	// StatePending - Session is registered and waiting for its delivery loop.
	StatePending State = iota
	// StateDelivering - A scheduler owns the session and is delivering records.
	StateDelivering
	// StateCompleted - Every record and the completion signal were delivered.
	StateCompleted
	// StateFailed - Delivery aborted (sink error, disconnect, cancellation).
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateDelivering:
		return "DELIVERING"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal (COMPLETED or FAILED).
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Kind selects the sink a session is delivered through.
type Kind int

const (
	KindLivePush Kind = iota
	KindWebhook
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindLivePush:
		return "live_push"
	case KindWebhook:
		return "webhook"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Errors returned by registry operations.
var (
	ErrInvalidSession   = errors.New("session id is required")
	ErrSessionExists    = errors.New("session already exists")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionClaimed   = errors.New("session already claimed by a delivery loop")
	ErrKindMismatch     = errors.New("session served by a different sink kind")
	ErrCursorRegression = errors.New("session cursor cannot move backwards")
	ErrCursorOverflow   = errors.New("session cursor beyond record count")
	ErrInvalidState     = errors.New("invalid session state transition")
)

// transition validates a lifecycle move.
//
//	PENDING → DELIVERING → COMPLETED
//	                     └→ FAILED
func transition(from, to State) error {
	switch {
	case from == StatePending && to == StateDelivering:
		return nil
	case from == StateDelivering && to.IsTerminal():
		return nil
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, from, to)
	}
}
