package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/scout/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL,
	record_count INTEGER NOT NULL,
	records TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, run *storage.Run) error {
	recordsJSON, err := json.Marshal(run.Records)
	if err != nil {
		return fmt.Errorf("sqlite: marshal records: %w", err)
	}

	query := `
	INSERT INTO runs (id, query, started_at, duration_ms, record_count, records)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		run.ID,
		run.Query,
		run.StartedAt.UTC(),
		run.Duration.Milliseconds(),
		len(run.Records),
		string(recordsJSON),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert run: %w", err)
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Run, error) {
	query := `SELECT id, query, started_at, duration_ms, records FROM runs WHERE 1=1`
	args := []any{}

	if filter.Query != "" {
		query += ` AND query LIKE ?`
		args = append(args, "%"+filter.Query+"%")
	}
	if filter.Since != nil {
		query += ` AND started_at >= ?`
		args = append(args, filter.Since.UTC())
	}

	query += ` ORDER BY started_at DESC`

	// SQLite only accepts OFFSET after LIMIT; -1 means no limit.
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query runs: %w", err)
	}
	defer rows.Close()

	results := []*storage.Run{}
	for rows.Next() {
		var r storage.Run
		var recordsJSON string
		var durationMs int64

		if err := rows.Scan(&r.ID, &r.Query, &r.StartedAt, &durationMs, &recordsJSON); err != nil {
			return nil, fmt.Errorf("sqlite: scan run: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(recordsJSON), &r.Records); err != nil {
			return nil, fmt.Errorf("sqlite: decode records of run %s: %w", r.ID, err)
		}
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate runs: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
