package models

// MServerMetrics represents the cumulative counters of the TCP listener.
type MServerMetrics struct {
	ActiveSessions   int   `json:"active_sessions"`
	SessionsTotal    int64 `json:"sessions_total"`
	SessionsRejected int64 `json:"sessions_rejected"`
	FramesTotal      int64 `json:"frames_total"`
	InsertsTotal     int64 `json:"inserts_total"`
	QueriesTotal     int64 `json:"queries_total"`
	ErrorsTotal      int64 `json:"errors_total"`
	BytesIn          int64 `json:"bytes_in"`
	BytesOut         int64 `json:"bytes_out"`
	ArchiveErrors    int64 `json:"archive_errors"`
}
