// Package evaluator scores a generation of candidates on a fixed pool of
// workers.
//
// A generation is a frozen batch: the pool receives copies of the
// candidates, writes each fitness into the slot of its index, and returns
// only once every dispatched evaluation has finished. Nothing computed while
// a batch is in flight is visible to the caller before the batch returns.
package evaluator

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/simtune/internal/fitness"
	"github.com/GoSim-25-26J-441/simtune/pkg/logger"
)

// Evaluation describes one completed candidate evaluation.
type Evaluation struct {
	Generation int
	Index      int
	Candidate  []float64
	Fitness    float64
	Err        error
	Elapsed    time.Duration
}

// Observer is called from worker goroutines after every evaluation, so it
// must be safe for concurrent use.
type Observer func(ev Evaluation)

// CandidateError wraps the failure of a single candidate.
type CandidateError struct {
	Generation int
	Index      int
	Err        error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("generation %d candidate %d: %v", e.Generation, e.Index, e.Err)
}

func (e *CandidateError) Unwrap() error {
	return e.Err
}

// Pool evaluates candidates with W workers. Each worker runs one evaluation
// to completion before taking the next.
type Pool struct {
	strategy fitness.Strategy
	workers  int
	samples  int
	observer Observer
}

// NewPool creates a pool. workers <= 0 uses runtime.NumCPU().
func NewPool(strategy fitness.Strategy, workers, samples int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		strategy: strategy,
		workers:  workers,
		samples:  samples,
	}
}

// WithObserver registers a callback for completed evaluations.
func (p *Pool) WithObserver(o Observer) *Pool {
	p.observer = o
	return p
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// EvaluateGeneration scores candidates and returns fitness values in
// candidate order.
//
// The first failing candidate stops the dispatch of those not yet started.
// Evaluations already in flight run to completion and their results are
// discarded. The returned error is the first failure by completion time.
func (p *Pool) EvaluateGeneration(ctx context.Context, generation int, candidates [][]float64) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates provided")
	}

	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	defer stopDispatch()

	jobs := make(chan int)
	go func() {
		defer close(jobs)
		for i := range candidates {
			select {
			case <-dispatchCtx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	results := make([]float64, len(candidates))
	done := make([]bool, len(candidates))
	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)

	workers := p.workers
	if workers > len(candidates) {
		workers = len(candidates)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for idx := range jobs {
				// dispatch may race with a failure reported by a sibling
				if dispatchCtx.Err() != nil {
					continue
				}
				candidate := append([]float64(nil), candidates[idx]...)
				start := time.Now()
				score, err := p.strategy.Evaluate(ctx, candidate, p.samples)
				elapsed := time.Since(start)

				if p.observer != nil {
					p.observer(Evaluation{
						Generation: generation,
						Index:      idx,
						Candidate:  candidate,
						Fitness:    score,
						Err:        err,
						Elapsed:    elapsed,
					})
				}

				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = &CandidateError{Generation: generation, Index: idx, Err: err}
						logger.Warn("evaluation failed, cancelling generation",
							"generation", generation,
							"candidate", idx,
							"worker", worker,
							"error", err,
						)
					}
					stopDispatch()
				} else if firstErr == nil {
					results[idx] = score
					done[idx] = true
				}
				mu.Unlock()
			}
		}(w)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	for _, ok := range done {
		if !ok {
			// the caller's context ended before every candidate was dispatched
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("generation %d: not every candidate was evaluated", generation)
		}
	}
	return results, nil
}
