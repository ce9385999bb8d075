// Package models defines the data structures exchanged with transcript consumers.
package models

// Wire sentinels sent to live-push consumers as plain text frames.
const (
	SessionComplete = "SESSION_COMPLETE"
	SessionNotFound = "SESSION_NOT_FOUND"
)

// TranscriptRecord is one line of a recorded conversation.
// TimeCode keeps its original textual form; it is parsed only when pacing.
type TranscriptRecord struct {
	TimeCode string `json:"time_code"`
	Speaker  string `json:"speaker"`
	Sentence string `json:"sentence"`
}

// TranscriptFile is a loaded transcript with its source filename.
type TranscriptFile struct {
	Filename string             `json:"filename"`
	Records  []TranscriptRecord `json:"records"`
}

// Envelope wraps a record for delivery to a sink.
type Envelope struct {
	SessionID string           `json:"session_id"`
	Body      TranscriptRecord `json:"body"`
}

// CompletionNotice is the terminal webhook payload of a replay.
type CompletionNotice struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// WebsocketInfo tells a caller where to connect for a live-push replay.
type WebsocketInfo struct {
	WebsocketURL string `json:"websocket_url"`
	SessionID    string `json:"session_id"`
	Port         int    `json:"port"`
}
