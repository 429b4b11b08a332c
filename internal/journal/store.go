package journal

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/simtune/internal/params"
)

// Record summarizes a completed search.
type Record struct {
	RunID       string
	Scenario    string
	Variant     string
	State       string
	Message     string
	Fitness     float64
	Best        []params.Assignment
	Generations int
	Evaluations int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// ResultStore persists completed searches.
type ResultStore interface {
	Save(ctx context.Context, rec Record) error
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

var (
	// ErrIncomplete rejects records of searches that did not terminate
	// successfully; a failed search persists nothing.
	ErrIncomplete = errors.New("journal: only converged or exhausted searches are stored")
	// ErrDuplicateRun rejects a second record for the same run.
	ErrDuplicateRun = errors.New("journal: run already stored")
)

const defaultListLimit = 50

func validateRecord(rec Record) error {
	if rec.RunID == "" {
		return errors.New("journal: run id is required")
	}
	if rec.State != "converged" && rec.State != "exhausted" {
		return ErrIncomplete
	}
	return nil
}

// Open returns a SQLite store at path, or a MemoryStore when path is empty.
func Open(ctx context.Context, path string) (ResultStore, error) {
	if path == "" {
		return NewMemoryStore(), nil
	}
	s := NewSQLiteStore(path)
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.RunID]; exists {
		return ErrDuplicateRun
	}
	rec.Best = append([]params.Assignment(nil), rec.Best...)
	s.records[rec.RunID] = rec
	return nil
}

// List returns up to limit records, most recently finished first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultListLimit
	}
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FinishedAt.Equal(out[j].FinishedAt) {
			return out[i].RunID < out[j].RunID
		}
		return out[i].FinishedAt.After(out[j].FinishedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
