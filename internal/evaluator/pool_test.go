package evaluator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/simtune/internal/fitness"
)

// funcStrategy adapts a function to fitness.Strategy and tracks concurrency.
type funcStrategy struct {
	fn      func(candidate []float64) (float64, error)
	calls   atomic.Int32
	running atomic.Int32
	peak    atomic.Int32
}

func (f *funcStrategy) Evaluate(_ context.Context, candidate []float64, _ int) (float64, error) {
	f.calls.Add(1)
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return f.fn(candidate)
}

func candidates(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = []float64{float64(i)}
	}
	return out
}

func TestEvaluateGenerationKeepsOrder(t *testing.T) {
	const n = 8
	s := &funcStrategy{fn: func(c []float64) (float64, error) {
		// earlier candidates finish last
		time.Sleep(time.Duration(n-int(c[0])) * 2 * time.Millisecond)
		return c[0] * 10, nil
	}}
	pool := NewPool(s, 4, 1)

	got, err := pool.EvaluateGeneration(context.Background(), 0, candidates(n))
	if err != nil {
		t.Fatalf("EvaluateGeneration: %v", err)
	}
	for i, v := range got {
		if v != float64(i)*10 {
			t.Fatalf("result[%d] = %v, want %v", i, v, float64(i)*10)
		}
	}
	if peak := s.peak.Load(); peak > 4 {
		t.Fatalf("peak concurrency %d exceeds 4 workers", peak)
	}
}

func TestEvaluateGenerationDoesNotMutateCandidates(t *testing.T) {
	s := &funcStrategy{fn: func(c []float64) (float64, error) {
		c[0] = -1
		return 0, nil
	}}
	batch := candidates(3)
	if _, err := NewPool(s, 2, 1).EvaluateGeneration(context.Background(), 0, batch); err != nil {
		t.Fatalf("EvaluateGeneration: %v", err)
	}
	for i, c := range batch {
		if c[0] != float64(i) {
			t.Fatalf("candidate %d mutated to %v", i, c)
		}
	}
}

func TestFailureStopsDispatch(t *testing.T) {
	s := &funcStrategy{fn: func(c []float64) (float64, error) {
		if c[0] == 1 {
			return 0, &fitness.SimulationError{Message: "boom"}
		}
		return c[0], nil
	}}
	_, err := NewPool(s, 1, 1).EvaluateGeneration(context.Background(), 3, candidates(6))

	var ce *CandidateError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CandidateError, got %v", err)
	}
	if ce.Index != 1 || ce.Generation != 3 {
		t.Fatalf("unexpected error location %+v", ce)
	}
	var se *fitness.SimulationError
	if !errors.As(err, &se) {
		t.Fatalf("SimulationError not reachable through %v", err)
	}
	if calls := s.calls.Load(); calls != 2 {
		t.Fatalf("expected 2 evaluations before dispatch stopped, got %d", calls)
	}
}

func TestInFlightSiblingsFinish(t *testing.T) {
	release := make(chan struct{})
	s := &funcStrategy{fn: func(c []float64) (float64, error) {
		switch c[0] {
		case 0:
			<-release
			return 1, nil
		case 1:
			return 0, errors.New("fail")
		}
		return 0, nil
	}}

	var (
		mu   sync.Mutex
		seen []Evaluation
	)
	pool := NewPool(s, 2, 1).WithObserver(func(ev Evaluation) {
		mu.Lock()
		seen = append(seen, ev)
		mu.Unlock()
		if ev.Err != nil {
			close(release)
		}
	})

	_, err := pool.EvaluateGeneration(context.Background(), 0, candidates(5))
	if err == nil {
		t.Fatal("expected an error")
	}

	mu.Lock()
	defer mu.Unlock()
	var finished bool
	for _, ev := range seen {
		if ev.Index == 0 && ev.Err == nil && ev.Fitness == 1 {
			finished = true
		}
	}
	if !finished {
		t.Fatalf("in-flight sibling did not finish: %+v", seen)
	}
	if calls := s.calls.Load(); calls != 2 {
		t.Fatalf("expected only the two in-flight evaluations, got %d", calls)
	}
}

func TestObserverSeesEveryEvaluation(t *testing.T) {
	s := &funcStrategy{fn: func(c []float64) (float64, error) { return c[0], nil }}
	var count atomic.Int32
	pool := NewPool(s, 3, 1).WithObserver(func(ev Evaluation) {
		if ev.Generation != 7 {
			t.Errorf("unexpected generation %d", ev.Generation)
		}
		count.Add(1)
	})
	if _, err := pool.EvaluateGeneration(context.Background(), 7, candidates(10)); err != nil {
		t.Fatalf("EvaluateGeneration: %v", err)
	}
	if count.Load() != 10 {
		t.Fatalf("observer called %d times, want 10", count.Load())
	}
}

func TestContextCancelledBeforeDispatch(t *testing.T) {
	s := &funcStrategy{fn: func(c []float64) (float64, error) { return 0, nil }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPool(s, 2, 1).EvaluateGeneration(ctx, 0, candidates(4))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewPoolDefaults(t *testing.T) {
	if NewPool(nil, 0, 1).Workers() < 1 {
		t.Fatal("expected at least one worker")
	}
	if NewPool(nil, 3, 1).Workers() != 3 {
		t.Fatal("expected 3 workers")
	}
	if _, err := NewPool(nil, 1, 1).EvaluateGeneration(context.Background(), 0, nil); err == nil {
		t.Fatal("expected error for empty batch")
	}
}
