package storage

import (
	"context"
	"slices"
	"time"

	"means-server/src/models"
	"means-server/src/utils"
)

const memoryArchiveCapacity = 1000

// -----------------------------------------------------------------------------
// MemoryArchive keeps the most recent summaries in a ring buffer. Nothing
// survives a restart.
// -----------------------------------------------------------------------------

type MemoryArchive struct {
	buffer *utils.RingBuffer[models.MSessionSummary]
}

func NewMemoryArchive(capacity int) *MemoryArchive {
	if capacity <= 0 {
		capacity = memoryArchiveCapacity
	}
	return &MemoryArchive{buffer: utils.NewRingBuffer[models.MSessionSummary](capacity)}
}

// -----------------------------------------------------------------------------

func (m *MemoryArchive) Initialize(ctx context.Context) error {
	return nil
}

// -----------------------------------------------------------------------------

func (m *MemoryArchive) SaveSessionSummary(ctx context.Context, s models.MSessionSummary) error {
	m.buffer.Append(s)
	return nil
}

// -----------------------------------------------------------------------------

func (m *MemoryArchive) RecentSessions(ctx context.Context, limit int) ([]models.MSessionSummary, error) {
	result := m.buffer.GetLatest(limit)
	slices.Reverse(result)
	return result, nil
}

// -----------------------------------------------------------------------------

func (m *MemoryArchive) CleanupOldData(ctx context.Context, cutoff time.Time) error {
	// One locked pass so a concurrent save is never dropped
	m.buffer.Filter(func(s models.MSessionSummary) bool {
		return !s.ClosedAt.Before(cutoff)
	})
	return nil
}

// -----------------------------------------------------------------------------

func (m *MemoryArchive) Close() error {
	return nil
}
