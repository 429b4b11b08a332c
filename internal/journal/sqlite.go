package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps records in a SQLite database.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore creates a store for path; call Init before use.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Init opens the database and creates the schema.
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	best, err := json.Marshal(rec.Best)
	if err != nil {
		return fmt.Errorf("encode best candidate: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO searches (
			run_id, scenario, variant, state, message, fitness, best,
			generations, evaluations, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.Scenario, rec.Variant, rec.State, rec.Message, rec.Fitness, string(best),
		rec.Generations, rec.Evaluations, rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli())
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicateRun
	}
	return err
}

// List returns up to limit records, most recently finished first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, scenario, variant, state, message, fitness, best,
			generations, evaluations, started_at, finished_at
		FROM searches
		ORDER BY finished_at DESC, run_id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var best string
		var startedAt, finished int64
		if err := rows.Scan(&rec.RunID, &rec.Scenario, &rec.Variant, &rec.State, &rec.Message,
			&rec.Fitness, &best, &rec.Generations, &rec.Evaluations, &startedAt, &finished); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(best), &rec.Best); err != nil {
			return nil, fmt.Errorf("decode best candidate of %s: %w", rec.RunID, err)
		}
		rec.StartedAt = time.UnixMilli(startedAt)
		rec.FinishedAt = time.UnixMilli(finished)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS searches (
			run_id TEXT PRIMARY KEY,
			scenario TEXT NOT NULL,
			variant TEXT NOT NULL,
			state TEXT NOT NULL,
			message TEXT NOT NULL,
			fitness REAL NOT NULL,
			best TEXT NOT NULL,
			generations INTEGER NOT NULL,
			evaluations INTEGER NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		);
	`)
	return err
}
