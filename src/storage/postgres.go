package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"means-server/src/helpers"
	"means-server/src/logger"
	"means-server/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresArchive struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresArchive(cfg *models.MConfig, log *logger.Logger) (*PostgresArchive, error) {
	// One schema per executable name
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresArchive{
		Config: cfg,
		Schema: schemaName(name),
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresArchive) Initialize(ctx context.Context) error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open postgres", err)
	}

	// The database may still be starting next to us
	err = helpers.RetryWithBackoff(ctx, d.Logger, "postgres ping", 5, 500*time.Millisecond, func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping postgres", err)
	}

	d.DB = db

	if _, err := d.DB.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("create schema %s", d.Schema), err)
	}

	if err := d.createTables(ctx); err != nil {
		return err
	}

	d.Logger.Info("PostgresArchive initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresArchive) createTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."session_summaries" (
			id TEXT PRIMARY KEY,
			remote_addr TEXT,
			opened_at BIGINT,
			closed_at BIGINT,
			inserts BIGINT,
			queries BIGINT,
			errors BIGINT,
			bytes_in BIGINT,
			bytes_out BIGINT,
			samples INTEGER,
			close_reason TEXT
		);
	`, d.Schema)
	if _, err := d.DB.ExecContext(ctx, query); err != nil {
		return helpers.NewDatabaseError("create session_summaries", err)
	}

	query = fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_session_summaries_closed_at ON "%s"."session_summaries" (closed_at)`, d.Schema)
	if _, err := d.DB.ExecContext(ctx, query); err != nil {
		return helpers.NewDatabaseError("create closed_at index", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresArchive) SaveSessionSummary(ctx context.Context, s models.MSessionSummary) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."session_summaries" (id, remote_addr, opened_at, closed_at, inserts, queries, errors, bytes_in, bytes_out, samples, close_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			closed_at = EXCLUDED.closed_at,
			inserts = EXCLUDED.inserts,
			queries = EXCLUDED.queries,
			errors = EXCLUDED.errors,
			bytes_in = EXCLUDED.bytes_in,
			bytes_out = EXCLUDED.bytes_out,
			samples = EXCLUDED.samples,
			close_reason = EXCLUDED.close_reason
	`, d.Schema)

	_, err := d.DB.ExecContext(ctx, query, s.ID, s.RemoteAddr, s.OpenedAt.UnixMilli(), s.ClosedAt.UnixMilli(), s.Inserts, s.Queries, s.Errors, s.BytesIn, s.BytesOut, s.Samples, s.CloseReason)
	if err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("save session %s", s.ID), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresArchive) RecentSessions(ctx context.Context, limit int) ([]models.MSessionSummary, error) {
	query := fmt.Sprintf(`
		SELECT id, remote_addr, opened_at, closed_at, inserts, queries, errors, bytes_in, bytes_out, samples, close_reason
		FROM "%s"."session_summaries"
		ORDER BY closed_at DESC
		LIMIT $1
	`, d.Schema)

	rows, err := d.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, helpers.NewDatabaseError("query session_summaries", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// -----------------------------------------------------------------------------

func (d *PostgresArchive) CleanupOldData(ctx context.Context, cutoff time.Time) error {
	query := fmt.Sprintf(`DELETE FROM "%s"."session_summaries" WHERE closed_at < $1`, d.Schema)

	res, err := d.DB.ExecContext(ctx, query, cutoff.UnixMilli())
	if err != nil {
		return helpers.NewDatabaseError("cleanup session_summaries", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		d.Logger.Info("Cleanup removed %d session summaries older than %s", n, cutoff.Format(time.RFC3339))
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresArchive) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

// schemaName keeps [a-z0-9_] so the quoted identifier is always safe
func schemaName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "means_server"
	}
	return b.String()
}
