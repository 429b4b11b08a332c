package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/simtune/internal/evaluator"
	"github.com/GoSim-25-26J-441/simtune/internal/params"
)

func testSpace(t *testing.T) *params.Space {
	t.Helper()
	s, err := params.New(
		[]params.FixedParameter{{Name: "drones", Value: 3}},
		[]params.VariableParameter{{Name: "speed", Lower: 0, Upper: 2}, {Name: "range", Lower: 1, Upper: 5}},
	)
	if err != nil {
		t.Fatalf("params.New: %v", err)
	}
	return s
}

func TestNilJournalIsNoop(t *testing.T) {
	j, err := NewCSVJournal("", "run", nil)
	if err != nil || j != nil {
		t.Fatalf("expected nil journal, got %v, %v", j, err)
	}
	if err := j.Write(Row{}); err != nil {
		t.Fatalf("Write on nil journal: %v", err)
	}
	j.Observe(evaluator.Evaluation{})
	if err := j.Close(); err != nil {
		t.Fatalf("Close on nil journal: %v", err)
	}
}

func TestCSVJournalWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evals.csv")
	space := testSpace(t)

	j, err := NewCSVJournal(path, "run-1", space)
	if err != nil {
		t.Fatalf("NewCSVJournal: %v", err)
	}
	j.Observe(evaluator.Evaluation{Generation: 0, Index: 0, Candidate: []float64{0.5, 2}, Fitness: -0.25, Elapsed: 1500 * time.Millisecond})
	j.Observe(evaluator.Evaluation{Generation: 1, Index: 3, Candidate: []float64{1, 4}, Err: errors.New("boom")})
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopening appends rows without a second header.
	j, err = NewCSVJournal(path, "run-2", space)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	j.Observe(evaluator.Evaluation{Generation: 0, Index: 1, Candidate: []float64{2, 1}, Fitness: -1})
	j.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d lines:\n%s", len(lines), data)
	}
	if lines[0] != "run_id,generation,index,fitness,error,elapsed_ms,parameters" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if strings.Count(string(data), "run_id") != 1 {
		t.Errorf("header written more than once:\n%s", data)
	}
	if !strings.HasPrefix(lines[1], "run-1,0,0,-0.25,,1500,") || !strings.Contains(lines[1], "speed=0.5;range=2") {
		t.Errorf("unexpected first row %q", lines[1])
	}
	if !strings.Contains(lines[2], "boom") {
		t.Errorf("error not recorded: %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "run-2,") {
		t.Errorf("unexpected appended row %q", lines[3])
	}
}

func TestFormatAssignments(t *testing.T) {
	got := FormatAssignments([]params.Assignment{{Name: "a", Value: 1}, {Name: "b", Value: 0.125}})
	if got != "a=1;b=0.125" {
		t.Fatalf("got %q", got)
	}
	if FormatAssignments(nil) != "" {
		t.Fatal("expected empty string for no assignments")
	}
}

func sampleRecord(id string, finished time.Time) Record {
	return Record{
		RunID:       id,
		Scenario:    "default",
		Variant:     "direct_report",
		State:       "converged",
		Message:     "Optimization terminated successfully.",
		Fitness:     -0.75,
		Best:        []params.Assignment{{Name: "speed", Value: 1.25}},
		Generations: 4,
		Evaluations: 50,
		StartedAt:   finished.Add(-time.Minute),
		FinishedAt:  finished,
	}
}

func exerciseStore(t *testing.T, store ResultStore) {
	t.Helper()
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	if err := store.Save(ctx, sampleRecord("old", base)); err != nil {
		t.Fatalf("Save old: %v", err)
	}
	if err := store.Save(ctx, sampleRecord("new", base.Add(time.Hour))); err != nil {
		t.Fatalf("Save new: %v", err)
	}
	if err := store.Save(ctx, sampleRecord("old", base)); !errors.Is(err, ErrDuplicateRun) {
		t.Fatalf("expected ErrDuplicateRun, got %v", err)
	}

	failed := sampleRecord("failed", base)
	failed.State = "evaluating"
	if err := store.Save(ctx, failed); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}

	recs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 || recs[0].RunID != "new" || recs[1].RunID != "old" {
		t.Fatalf("unexpected listing %+v", recs)
	}
	got := recs[1]
	if got.Fitness != -0.75 || got.Evaluations != 50 || got.Generations != 4 {
		t.Errorf("numeric fields not preserved: %+v", got)
	}
	if len(got.Best) != 1 || got.Best[0].Name != "speed" || got.Best[0].Value != 1.25 {
		t.Errorf("best candidate not preserved: %+v", got.Best)
	}
	if !got.FinishedAt.Equal(base) {
		t.Errorf("finished at %v, want %v", got.FinishedAt, base)
	}

	limited, err := store.List(ctx, 1)
	if err != nil {
		t.Fatalf("List limit: %v", err)
	}
	if len(limited) != 1 || limited[0].RunID != "new" {
		t.Fatalf("limit not applied: %+v", limited)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.db")

	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "x.db"))
	if err := s.Save(context.Background(), sampleRecord("a", time.Now())); err == nil {
		t.Fatal("expected error before Init")
	}
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenEmptyPathUsesMemory(t *testing.T) {
	store, err := Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", store)
	}
}
