// Package storage implements a Postgres-backed MetadataStore: the
// collaborator RecordVideo persists a finished recording's filename,
// division, and timestamp to. Connection handling follows the DVR
// service's sql.Open/Ping pattern.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Store implements session.MetadataStore against Postgres.
type Store struct {
	db *sql.DB
}

// Connect opens and pings a Postgres connection pool at dsn.
func Connect(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(3)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// RecordVideo inserts a row for a finished recording and returns its
// generated id.
func (s *Store) RecordVideo(ctx context.Context, filename, divisionID string, recordedAt time.Time) (string, error) {
	var videoID string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO recorded_videos (filename, division_id, recorded_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, filename, divisionID, recordedAt).Scan(&videoID)
	if err != nil {
		return "", fmt.Errorf("storage: insert recorded_videos: %w", err)
	}
	return videoID, nil
}

// Migrate applies the schema this Store requires. Idempotent: safe to
// run against an already-migrated database.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("storage: migrate: %w", err)
	}
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS recorded_videos (
	id           uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	filename     text NOT NULL,
	division_id  text NOT NULL,
	recorded_at  timestamptz NOT NULL,
	created_at   timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS recorded_videos_division_id_idx
	ON recorded_videos (division_id);
`
