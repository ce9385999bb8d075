package session

import (
	"sort"
	"sync"
	"time"
)

// Registry is the shared map of live sessions.
// Every method takes the single lock for a point operation only; callers
// never hold it across a pacing wait or network I/O.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create registers a new session.
func (r *Registry) Create(s Session) error {
	if s.ID == "" {
		return ErrInvalidSession
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; ok {
		return ErrSessionExists
	}
	stored := s.clone()
	r.sessions[s.ID] = &stored
	return nil
}

// Get returns an independent snapshot of the session.
func (r *Registry) Get(id string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return s.clone(), true
}

// Claim hands the session to exactly one delivery loop of the given kind.
// A kind mismatch leaves the session untouched for its own sink.
func (r *Registry) Claim(id string, kind Kind) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if s.Kind != kind {
		return Session{}, ErrKindMismatch
	}
	if s.State != StatePending {
		return Session{}, ErrSessionClaimed
	}
	s.State = StateDelivering
	return s.clone(), nil
}

// Advance moves the delivery cursor forward.
func (r *Registry) Advance(id string, cursor int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if cursor < s.Cursor {
		return ErrCursorRegression
	}
	if cursor > len(s.Records) {
		return ErrCursorOverflow
	}
	s.Cursor = cursor
	return nil
}

// Finish marks a delivering session COMPLETED (err == nil) or FAILED.
func (r *Registry) Finish(id string, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	to := StateCompleted
	if err != nil {
		to = StateFailed
	}
	if terr := transition(s.State, to); terr != nil {
		return terr
	}
	s.State = to
	return nil
}

// Remove retires a session. It reports true only for the call that removed it.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// List returns snapshots of all sessions ordered by creation time.
func (r *Registry) List() []Session {
	r.mu.Lock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.clone())
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Sweep retires pending sessions created before the cutoff and returns their ids.
// Sessions already claimed by a delivery loop are never swept.
func (r *Registry) Sweep(cutoff time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var swept []string
	for id, s := range r.sessions {
		if s.State == StatePending && s.CreatedAt.Before(cutoff) {
			delete(r.sessions, id)
			swept = append(swept, id)
		}
	}
	return swept
}
