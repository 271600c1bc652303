package models

// -----------------------------------------------------------------------------
// Session lifecycle events pushed to admin observers
// -----------------------------------------------------------------------------

const (
	EventSessionOpened   = "opened"
	EventSessionClosed   = "closed"
	EventSessionRejected = "rejected"
)

type MSessionEvent struct {
	Type       string           `json:"type"`
	SessionID  string           `json:"session_id,omitempty"`
	RemoteAddr string           `json:"remote_addr"`
	Timestamp  int64            `json:"timestamp"`
	Summary    *MSessionSummary `json:"summary,omitempty"`
}
