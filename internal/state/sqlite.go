package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists the processed-ticket set so restarts do not
// reprocess tickets inside the lookback window.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state store: open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("state store: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_tickets (
			ticket_key    TEXT NOT NULL,
			resolved_at   TEXT NOT NULL,
			dispatched_at TEXT NOT NULL,
			PRIMARY KEY (ticket_key, resolved_at)
		);
	`)
	if err != nil {
		return fmt.Errorf("state store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Seen(ctx context.Context, k Key) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_tickets WHERE ticket_key = ? AND resolved_at = ?`,
		k.Ticket, k.ResolvedAt,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("state store: seen: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Mark(ctx context.Context, k Key) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_tickets (ticket_key, resolved_at, dispatched_at) VALUES (?, ?, ?)`,
		k.Ticket, k.ResolvedAt, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("state store: mark: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
