package models

import "time"

// -----------------------------------------------------------------------------
// Session Summary (counters only, never samples)
// -----------------------------------------------------------------------------

type MSessionSummary struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	OpenedAt    time.Time `json:"opened_at"`
	ClosedAt    time.Time `json:"closed_at,omitempty"`
	Inserts     int64     `json:"inserts"`
	Queries     int64     `json:"queries"`
	Errors      int64     `json:"errors"`
	BytesIn     int64     `json:"bytes_in"`
	BytesOut    int64     `json:"bytes_out"`
	Samples     int       `json:"samples"`
	CloseReason string    `json:"close_reason,omitempty"`
}

// Duration returns how long the session was (or has been) open.
func (s MSessionSummary) Duration() time.Duration {
	if s.ClosedAt.IsZero() {
		return time.Since(s.OpenedAt)
	}
	return s.ClosedAt.Sub(s.OpenedAt)
}
