package interfaces

import "means-server/src/models"

// -----------------------------------------------------------------------------
// IEventPublisher receives session lifecycle events (admin hub, tests).
// -----------------------------------------------------------------------------

type IEventPublisher interface {
	// Publish must not block the caller for long; sessions call it inline.
	Publish(event models.MSessionEvent)
}
