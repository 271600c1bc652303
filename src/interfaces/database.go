package interfaces

import (
	"context"
	"time"

	"means-server/src/models"
)

// -----------------------------------------------------------------------------
// ISessionArchive defines the contract for storing closed-session summaries.
// -----------------------------------------------------------------------------

type ISessionArchive interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the schema / connection.
	Initialize(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// SaveSessionSummary records one closed session.
	SaveSessionSummary(ctx context.Context, summary models.MSessionSummary) error

	// -----------------------------------------------------------------------------

	// RecentSessions returns up to limit summaries, newest first.
	RecentSessions(ctx context.Context, limit int) ([]models.MSessionSummary, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes summaries closed before the cutoff.
	CleanupOldData(ctx context.Context, cutoff time.Time) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
