package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/roomwatch/roomwatch/internal/duckdb/migrate"
	"github.com/roomwatch/roomwatch/internal/model"
)

// Store is the stub backend's cache of availability snapshots and refresh
// records, kept in DuckDB.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	dbPath       string
	QueryTimeout time.Duration
}

// Snapshot is one cached availability scrape.
type Snapshot struct {
	TakenAt   time.Time
	ExpiresAt time.Time
	Rooms     model.Availability
}

// NewStore opens or creates a DuckDB database.
// If dbPath is empty, an in-memory database is used.
// An optional queryTimeout can be passed; it defaults to 30s.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	dsn := ""
	if dbPath != "" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		dsn = dbPath
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}
	// An in-memory DuckDB is private to its connection.
	db.SetMaxOpenConns(1)

	if err := migrate.NewRunner(db).Run(); err != nil {
		db.Close()
		return nil, err
	}

	qt := 30 * time.Second
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}

	return &Store{
		db:           db,
		dbPath:       dbPath,
		QueryTimeout: qt,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.QueryTimeout)
}

// SaveSnapshot caches availability as scraped at takenAt, valid for ttl.
func (s *Store) SaveSnapshot(ctx context.Context, takenAt time.Time, ttl time.Duration, rooms model.Availability) error {
	payload, err := json.Marshal(rooms)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO availability_snapshots (taken_at, expires_at, payload) VALUES (?, ?, ?)`,
		takenAt.UTC(), takenAt.Add(ttl).UTC(), string(payload))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the newest snapshot that has not expired at now.
func (s *Store) LatestSnapshot(ctx context.Context, now time.Time) (Snapshot, bool, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		snap    Snapshot
		payload string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT taken_at, expires_at, payload FROM availability_snapshots
		 WHERE expires_at > ? ORDER BY taken_at DESC LIMIT 1`,
		now.UTC()).Scan(&snap.TakenAt, &snap.ExpiresAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("query snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &snap.Rooms); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	snap.TakenAt = snap.TakenAt.UTC()
	snap.ExpiresAt = snap.ExpiresAt.UTC()
	return snap, true, nil
}

// RecordRefresh stores a refresh performed at the given time. source names
// what triggered it ("manual", "wake", "cache-miss").
func (s *Store) RecordRefresh(ctx context.Context, at time.Time, ttl time.Duration, source string) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refreshes (refreshed_at, expires_at, source) VALUES (?, ?, ?)`,
		at.UTC(), at.Add(ttl).UTC(), source)
	if err != nil {
		return fmt.Errorf("insert refresh: %w", err)
	}
	return nil
}

// LastRefresh returns the most recent unexpired refresh time.
func (s *Store) LastRefresh(ctx context.Context, now time.Time) (time.Time, bool, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var at sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(refreshed_at) FROM refreshes WHERE expires_at > ?`,
		now.UTC()).Scan(&at)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query last refresh: %w", err)
	}
	if !at.Valid {
		return time.Time{}, false, nil
	}
	return at.Time.UTC(), true, nil
}

// DeleteExpired removes snapshots and refresh records whose expiry is at or
// before now. It returns the number of rows removed.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, q := range []string{
		`DELETE FROM availability_snapshots WHERE expires_at <= ?`,
		`DELETE FROM refreshes WHERE expires_at <= ?`,
	} {
		res, err := s.db.ExecContext(ctx, q, now.UTC())
		if err != nil {
			return total, fmt.Errorf("delete expired: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
