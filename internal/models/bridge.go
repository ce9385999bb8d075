package models

// BridgeEvent is a transcription event decoded from the live upstream source.
type BridgeEvent struct {
	Kind         string   `json:"type"`
	Timestamp    int64    `json:"timestamp"`
	Speaker      string   `json:"speaker"`
	Text         string   `json:"text"`
	Confidence   *float64 `json:"confidence"`
	IsFinal      *bool    `json:"is_final"`
	TranscriptID string   `json:"transcriptId,omitempty"`
}

// BridgePayload is what the forwarder POSTs for every bridge event.
type BridgePayload struct {
	Source    string      `json:"source"`
	Event     BridgeEvent `json:"event"`
	Timestamp int64       `json:"timestamp"`
}
