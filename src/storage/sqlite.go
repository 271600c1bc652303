package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"means-server/src/helpers"
	"means-server/src/logger"
	"means-server/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteArchive struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteArchive(cfg *models.MConfig, log *logger.Logger) *SQLiteArchive {
	return &SQLiteArchive{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteArchive) Initialize(ctx context.Context) error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open sqlite", err)
	}
	// One connection: keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping sqlite", err)
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables(ctx)
}

// -----------------------------------------------------------------------------

func (d *SQLiteArchive) createTables(ctx context.Context) error {
	// SQLite types: INTEGER for int64 / unix millis, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS session_summaries (
			id TEXT PRIMARY KEY,
			remote_addr TEXT,
			opened_at INTEGER,
			closed_at INTEGER,
			inserts INTEGER,
			queries INTEGER,
			errors INTEGER,
			bytes_in INTEGER,
			bytes_out INTEGER,
			samples INTEGER,
			close_reason TEXT
		);
	`
	if _, err := d.DB.ExecContext(ctx, query); err != nil {
		return helpers.NewDatabaseError("create session_summaries", err)
	}

	if _, err := d.DB.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_session_summaries_closed_at ON session_summaries (closed_at)"); err != nil {
		return helpers.NewDatabaseError("create closed_at index", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteArchive) SaveSessionSummary(ctx context.Context, s models.MSessionSummary) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO session_summaries (id, remote_addr, opened_at, closed_at, inserts, queries, errors, bytes_in, bytes_out, samples, close_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			closed_at = excluded.closed_at,
			inserts = excluded.inserts,
			queries = excluded.queries,
			errors = excluded.errors,
			bytes_in = excluded.bytes_in,
			bytes_out = excluded.bytes_out,
			samples = excluded.samples,
			close_reason = excluded.close_reason
	`, s.ID, s.RemoteAddr, s.OpenedAt.UnixMilli(), s.ClosedAt.UnixMilli(), s.Inserts, s.Queries, s.Errors, s.BytesIn, s.BytesOut, s.Samples, s.CloseReason)
	if err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("save session %s", s.ID), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteArchive) RecentSessions(ctx context.Context, limit int) ([]models.MSessionSummary, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, remote_addr, opened_at, closed_at, inserts, queries, errors, bytes_in, bytes_out, samples, close_reason
		FROM session_summaries
		ORDER BY closed_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, helpers.NewDatabaseError("query session_summaries", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// -----------------------------------------------------------------------------

func (d *SQLiteArchive) CleanupOldData(ctx context.Context, cutoff time.Time) error {
	res, err := d.DB.ExecContext(ctx, "DELETE FROM session_summaries WHERE closed_at < ?", cutoff.UnixMilli())
	if err != nil {
		return helpers.NewDatabaseError("cleanup session_summaries", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		d.Logger.Info("Cleanup removed %d session summaries older than %s", n, cutoff.Format(time.RFC3339))
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteArchive) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

// scanSummaries reads rows in the column order used by both SQL backends
func scanSummaries(rows *sql.Rows) ([]models.MSessionSummary, error) {
	result := []models.MSessionSummary{}
	for rows.Next() {
		var s models.MSessionSummary
		var openedAt, closedAt int64
		if err := rows.Scan(&s.ID, &s.RemoteAddr, &openedAt, &closedAt, &s.Inserts, &s.Queries, &s.Errors, &s.BytesIn, &s.BytesOut, &s.Samples, &s.CloseReason); err != nil {
			return nil, helpers.NewDatabaseError("scan session summary", err)
		}
		s.OpenedAt = time.UnixMilli(openedAt).UTC()
		s.ClosedAt = time.UnixMilli(closedAt).UTC()
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("iterate session summaries", err)
	}
	return result, nil
}
