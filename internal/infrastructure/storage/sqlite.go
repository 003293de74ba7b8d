package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/currency_rates/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS refreshes (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			destination TEXT NOT NULL,
			rate REAL NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_refreshes_started_at ON refreshes(started_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RefreshLogRepository Implementation

func (s *SQLiteStore) SaveRefresh(ctx context.Context, rec *domain.RefreshRecord) error {
	query := `INSERT INTO refreshes (id, source, destination, rate, error, started_at, duration_ms)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, string(rec.Source), string(rec.Destination), rec.Rate, rec.Error,
		rec.StartedAt.UTC(), rec.Duration.Milliseconds())
	return err
}

// ListRefreshes returns the newest records first.
func (s *SQLiteStore) ListRefreshes(ctx context.Context, limit int) ([]*domain.RefreshRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, source, destination, rate, error, started_at, duration_ms FROM refreshes ORDER BY started_at DESC, rowid DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.RefreshRecord
	for rows.Next() {
		var (
			r          domain.RefreshRecord
			source     string
			dest       string
			durationMs int64
		)
		if err := rows.Scan(&r.ID, &source, &dest, &r.Rate, &r.Error, &r.StartedAt, &durationMs); err != nil {
			return nil, err
		}
		r.Source = domain.CurrencyCode(source)
		r.Destination = domain.CurrencyCode(dest)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, &r)
	}
	return records, rows.Err()
}
