package models

import "time"

// RerunRequest is the body of POST /api/rerun.
type RerunRequest struct {
	Filename  string `json:"filename"`
	SessionID string `json:"session_id,omitempty"`
}

// WebhookBroadcastResponse acknowledges a started webhook replay.
type WebhookBroadcastResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Filename    string `json:"filename"`
	SessionID   string `json:"session_id"`
	WebhookURL  string `json:"webhook_url"`
	Environment string `json:"environment"`
}

// ErrorResponse is returned by the API on failure.
type ErrorResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Filename string `json:"filename,omitempty"`
}

// SessionView is the read-only API view of a session.
type SessionView struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Kind      string    `json:"kind"`
	State     string    `json:"state"`
	Cursor    int       `json:"cursor"`
	Total     int       `json:"total"`
	Remaining int       `json:"remaining"`
	CreatedAt time.Time `json:"created_at"`
}
