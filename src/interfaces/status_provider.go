package interfaces

import "means-server/src/models"

// -----------------------------------------------------------------------------
// IStatusProvider exposes read-only listener state to the admin and gRPC surfaces.
// -----------------------------------------------------------------------------

type IStatusProvider interface {
	// Metrics returns cumulative counters since start.
	Metrics() models.MServerMetrics

	// ActiveSessions returns a snapshot of every connected session.
	ActiveSessions() []models.MSessionSummary
}
