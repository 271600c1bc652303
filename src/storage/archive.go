package storage

import (
	"context"
	"fmt"
	"time"

	"means-server/src/helpers"
	"means-server/src/interfaces"
	"means-server/src/logger"
	"means-server/src/models"
)

// Compile-time checks for every backend
var (
	_ interfaces.ISessionArchive = (*SQLiteArchive)(nil)
	_ interfaces.ISessionArchive = (*PostgresArchive)(nil)
	_ interfaces.ISessionArchive = (*RedisArchive)(nil)
	_ interfaces.ISessionArchive = (*MemoryArchive)(nil)
)

// -----------------------------------------------------------------------------

// NewSessionArchive builds the backend named by storage.db_type (not yet initialized)
func NewSessionArchive(cfg *models.MConfig, log *logger.Logger) (interfaces.ISessionArchive, error) {
	switch cfg.Storage.DBType {
	case "sqlite":
		return NewSQLiteArchive(cfg, log), nil
	case "postgres":
		return NewPostgresArchive(cfg, log)
	case "redis":
		return NewRedisArchive(cfg, log), nil
	case "memory", "":
		return NewMemoryArchive(0), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Storage.DBType)
	}
}

// -----------------------------------------------------------------------------

// RunCleanup deletes summaries older than the retention window every interval
// until ctx is cancelled. Failures are logged and counted, never fatal.
func RunCleanup(ctx context.Context, archive interfaces.ISessionArchive, cfg *models.MConfig, errs *helpers.ErrorHandler) {
	interval := time.Duration(cfg.Storage.CleanupIntervalMin) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	retention := time.Duration(cfg.Storage.RetentionDays) * 24 * time.Hour

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(ctx, time.Minute)
			errs.Handle(archive.CleanupOldData(cleanupCtx, time.Now().Add(-retention)), "session archive cleanup")
			cancel()
		}
	}
}
