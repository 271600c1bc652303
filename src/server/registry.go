package server

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"means-server/src/models"
)

// -----------------------------------------------------------------------------
// SessionStats holds one session's counters. It is shared between the
// session goroutine (writer) and the registry (readers); it never references
// the session's price store.
// -----------------------------------------------------------------------------

type SessionStats struct {
	ID         string
	RemoteAddr string
	OpenedAt   time.Time

	inserts  atomic.Int64
	queries  atomic.Int64
	errors   atomic.Int64
	bytesIn  atomic.Int64
	bytesOut atomic.Int64
	samples  atomic.Int64
}

func NewSessionStats(id, remoteAddr string) *SessionStats {
	return &SessionStats{ID: id, RemoteAddr: remoteAddr, OpenedAt: time.Now().UTC()}
}

// -----------------------------------------------------------------------------

// Snapshot returns the current counters as a summary (ClosedAt left zero)
func (s *SessionStats) Snapshot() models.MSessionSummary {
	return models.MSessionSummary{
		ID:         s.ID,
		RemoteAddr: s.RemoteAddr,
		OpenedAt:   s.OpenedAt,
		Inserts:    s.inserts.Load(),
		Queries:    s.queries.Load(),
		Errors:     s.errors.Load(),
		BytesIn:    s.bytesIn.Load(),
		BytesOut:   s.bytesOut.Load(),
		Samples:    int(s.samples.Load()),
	}
}

// -----------------------------------------------------------------------------
// Registry tracks live sessions and cumulative totals
// -----------------------------------------------------------------------------

type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*SessionStats

	// Totals of closed sessions; live sessions are added on read
	closed   models.MServerMetrics
	total    atomic.Int64
	rejected atomic.Int64
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*SessionStats)}
}

// -----------------------------------------------------------------------------

// Open registers a new live session
func (r *Registry) Open(stats *SessionStats) {
	r.mu.Lock()
	r.sessions[stats.ID] = stats
	r.mu.Unlock()
	r.total.Add(1)
}

// -----------------------------------------------------------------------------

// Close removes a live session and folds its counters into the totals
func (r *Registry) Close(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)

	snap := stats.Snapshot()
	r.closed.InsertsTotal += snap.Inserts
	r.closed.QueriesTotal += snap.Queries
	r.closed.ErrorsTotal += snap.Errors
	r.closed.FramesTotal += snap.Inserts + snap.Queries + snap.Errors
	r.closed.BytesIn += snap.BytesIn
	r.closed.BytesOut += snap.BytesOut
}

// -----------------------------------------------------------------------------

// Reject counts a connection turned away at the listener
func (r *Registry) Reject() {
	r.rejected.Add(1)
}

// -----------------------------------------------------------------------------

// Active returns the number of live sessions
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// -----------------------------------------------------------------------------

// ActiveSessions returns live session snapshots, oldest first
func (r *Registry) ActiveSessions() []models.MSessionSummary {
	r.mu.RLock()
	result := make([]models.MSessionSummary, 0, len(r.sessions))
	for _, stats := range r.sessions {
		result = append(result, stats.Snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].OpenedAt.Before(result[j].OpenedAt)
	})
	return result
}

// -----------------------------------------------------------------------------

// Metrics returns cumulative counters including live sessions
func (r *Registry) Metrics() models.MServerMetrics {
	r.mu.RLock()
	m := r.closed
	m.ActiveSessions = len(r.sessions)
	for _, stats := range r.sessions {
		snap := stats.Snapshot()
		m.InsertsTotal += snap.Inserts
		m.QueriesTotal += snap.Queries
		m.ErrorsTotal += snap.Errors
		m.FramesTotal += snap.Inserts + snap.Queries + snap.Errors
		m.BytesIn += snap.BytesIn
		m.BytesOut += snap.BytesOut
	}
	r.mu.RUnlock()

	m.SessionsTotal = r.total.Load()
	m.SessionsRejected = r.rejected.Load()
	return m
}
