package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const spoolBusyTimeout = 5 * time.Second

// Spool persists batches locally between enqueue and delivery. Saving is
// best effort; delivery never depends on the spool succeeding.
type Spool interface {
	SaveBatch(ctx context.Context, batch Batch) error
	DeleteBatch(ctx context.Context, batchID string) error
	Close() error
}

var spoolSchema = []string{
	`CREATE TABLE IF NOT EXISTS telemetry_events (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL,
		name TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		payload TEXT,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_telemetry_events_batch
		ON telemetry_events(batch_id)`,
}

// SQLiteSpool stores spooled events in a local sqlite database.
type SQLiteSpool struct {
	db *sql.DB
}

// OpenSpool opens (and if needed creates) the spool database at path.
func OpenSpool(path string) (*SQLiteSpool, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open spool: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", int(spoolBusyTimeout.Milliseconds())),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("telemetry: apply pragma %q: %w", pragma, err)
		}
	}
	for _, stmt := range spoolSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("telemetry: apply spool schema: %w", err)
		}
	}
	return &SQLiteSpool{db: db}, nil
}

// SaveBatch writes every event of the batch in one transaction.
func (s *SQLiteSpool) SaveBatch(ctx context.Context, batch Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("telemetry: begin spool transaction: %w", err)
	}
	for _, ev := range batch.Events {
		payload, err := json.Marshal(ev.Properties)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("telemetry: marshal event %s: %w", ev.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO telemetry_events (id, batch_id, name, timestamp, payload)
			 VALUES (?, ?, ?, ?, ?)`,
			ev.ID, batch.ID, ev.Name, ev.Timestamp.UTC().Format(time.RFC3339Nano), string(payload),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("telemetry: spool event %s: %w", ev.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("telemetry: commit spool transaction: %w", err)
	}
	return nil
}

// DeleteBatch removes every spooled event of one batch, whether the batch
// was delivered or dropped.
func (s *SQLiteSpool) DeleteBatch(ctx context.Context, batchID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM telemetry_events WHERE batch_id = ?`, batchID); err != nil {
		return fmt.Errorf("telemetry: purge spool batch %s: %w", batchID, err)
	}
	return nil
}

// PendingCount returns how many events are currently spooled.
func (s *SQLiteSpool) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM telemetry_events`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("telemetry: count spooled events: %w", err)
	}
	return count, nil
}

// Close finalises the spool database connection.
func (s *SQLiteSpool) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
