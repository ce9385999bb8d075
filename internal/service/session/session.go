package session

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"transcript-restream-service/internal/models"
)

// Session is one in-flight replay of a transcript.
type Session struct {
	ID        string
	Filename  string
	Records   []models.TranscriptRecord
	Cursor    int
	Kind      Kind
	State     State
	CreatedAt time.Time
}

// NewID returns a random 128-bit session identifier.
func NewID() string {
	return uuid.NewString()
}

// New builds a pending session over records.
func New(id, filename string, kind Kind, records []models.TranscriptRecord) Session {
	return Session{
		ID:        id,
		Filename:  filename,
		Records:   records,
		Kind:      kind,
		State:     StatePending,
		CreatedAt: time.Now().UTC(),
	}
}

// Remaining returns how many records have not been delivered yet.
func (s Session) Remaining() int {
	return len(s.Records) - s.Cursor
}

func (s Session) clone() Session {
	s.Records = slices.Clone(s.Records)
	return s
}
