// Package evolution implements bounded differential evolution (rand/1/bin)
// with deferred updating: every trial of a generation is built from the
// previous population, the whole batch is scored, and only then does
// selection produce the next population.
package evolution

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/GoSim-25-26J-441/simtune/pkg/logger"
	"github.com/GoSim-25-26J-441/simtune/pkg/utils"
)

// State is the engine's lifecycle stage.
type State int

const (
	Initializing State = iota
	Evaluating
	Evolving
	Converged
	Exhausted
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Evaluating:
		return "evaluating"
	case Evolving:
		return "evolving"
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether s ends a run successfully.
func (s State) Terminal() bool {
	return s == Converged || s == Exhausted
}

const (
	msgConverged = "Optimization terminated successfully."
	msgExhausted = "Maximum number of iterations has been exceeded."
)

// Evaluator scores a frozen batch of candidates in order.
type Evaluator interface {
	EvaluateGeneration(ctx context.Context, generation int, candidates [][]float64) ([]float64, error)
}

// ProgressReporter receives the best fitness after every scored generation.
type ProgressReporter func(generation int, best float64)

// GenerationStep records one scored generation.
type GenerationStep struct {
	Generation int
	Best       float64
	Mean       float64
	Std        float64
	Accepted   int
}

// Result is the outcome of a successful run.
type Result struct {
	Best        []float64
	Fitness     float64
	State       State
	Generations int
	Evaluations int
	Message     string
	History     []GenerationStep
}

// Engine runs one search. It is not reusable.
type Engine struct {
	bounds    [][2]float64
	settings  Settings
	evaluator Evaluator
	rng       *utils.RandSource
	progress  ProgressReporter
	log       *slog.Logger

	mu    sync.RWMutex
	state State
}

// NewEngine validates settings and bounds.
func NewEngine(bounds [][2]float64, settings Settings, evaluator Evaluator) (*Engine, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("at least one bounded dimension is required")
	}
	for i, b := range bounds {
		if !utils.IsFinite(b[0]) || !utils.IsFinite(b[1]) || b[0] > b[1] {
			return nil, fmt.Errorf("dimension %d: invalid bounds [%g, %g]", i, b[0], b[1])
		}
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	return &Engine{
		bounds:    append([][2]float64(nil), bounds...),
		settings:  settings,
		evaluator: evaluator,
		rng:       utils.NewRandSource(settings.Seed),
		log:       logger.Component("evolution"),
		state:     Initializing,
	}, nil
}

// WithProgressReporter sets a per-generation callback.
func (e *Engine) WithProgressReporter(fn ProgressReporter) *Engine {
	e.progress = fn
	return e
}

// State returns the current stage.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Members returns the population size this engine uses.
func (e *Engine) Members() int {
	return MembersFor(e.settings.PopSize, len(e.bounds))
}

// Run executes the search. A failed evaluation aborts the run; the partial
// population is dropped and the error returned.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	n := e.Members()
	e.log.Info("starting differential evolution",
		"members", n,
		"dims", len(e.bounds),
		"max_generations", e.settings.MaxGenerations,
		"seed", e.rng.Seed(),
	)

	e.setState(Initializing)
	initial := e.latinHypercube(n)

	e.setState(Evaluating)
	scores, err := e.evaluator.EvaluateGeneration(ctx, 0, initial)
	if err != nil {
		return nil, fmt.Errorf("initial population: %w", err)
	}
	pop, err := NewPopulation(initial, scores)
	if err != nil {
		return nil, err
	}
	evaluations := n
	history := []GenerationStep{e.record(pop, 0, n)}

	final, message := Exhausted, msgExhausted
	for gen := 1; gen <= e.settings.MaxGenerations; gen++ {
		e.setState(Evolving)
		trials := e.trials(pop)

		e.setState(Evaluating)
		scores, err := e.evaluator.EvaluateGeneration(ctx, gen, trials)
		if err != nil {
			return nil, fmt.Errorf("generation %d: %w", gen, err)
		}
		evaluations += n

		next, accepted, err := pop.Next(trials, scores)
		if err != nil {
			return nil, err
		}
		pop = next
		history = append(history, e.record(pop, gen, countTrue(accepted)))

		if e.converged(pop) {
			final, message = Converged, msgConverged
			break
		}
	}

	e.setState(final)
	best := pop.Member(pop.Best())
	e.log.Info("differential evolution finished",
		"state", final.String(),
		"generations", pop.Version(),
		"evaluations", evaluations,
		"fitness", best.Fitness,
	)
	return &Result{
		Best:        best.Candidate,
		Fitness:     best.Fitness,
		State:       final,
		Generations: pop.Version(),
		Evaluations: evaluations,
		Message:     message,
		History:     history,
	}, nil
}

// record logs a scored generation and notifies the progress reporter.
func (e *Engine) record(pop *Population, gen, accepted int) GenerationStep {
	mean, std := pop.Spread()
	step := GenerationStep{
		Generation: gen,
		Best:       pop.members[pop.Best()].Fitness,
		Mean:       mean,
		Std:        std,
		Accepted:   accepted,
	}
	e.log.Info("differential_evolution step",
		"generation", gen,
		"best", step.Best,
		"mean", mean,
		"std", std,
		"accepted", accepted,
	)
	if e.progress != nil {
		e.progress(gen, step.Best)
	}
	return step
}

func (e *Engine) converged(pop *Population) bool {
	mean, std := pop.Spread()
	if math.IsNaN(std) || math.IsInf(mean, 0) {
		return false
	}
	return std <= e.settings.Atol+e.settings.Tolerance*math.Abs(mean)
}

// latinHypercube draws n points with exactly one point in each of the n
// equal strata of every dimension.
func (e *Engine) latinHypercube(n int) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, len(e.bounds))
	}
	seg := 1.0 / float64(n)
	for d, b := range e.bounds {
		order := e.rng.Perm(n)
		for i := 0; i < n; i++ {
			u := float64(order[i])*seg + e.rng.Float64()*seg
			points[i][d] = utils.Lerp(b[0], b[1], u)
		}
	}
	return points
}

// trials builds one trial vector per member from the current population.
// The differential weight is dithered once per generation.
func (e *Engine) trials(pop *Population) [][]float64 {
	n, dims := pop.Len(), len(e.bounds)
	f := e.rng.UniformFloat64(e.settings.Mutation[0], e.settings.Mutation[1])
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		r := e.rng.DistinctExcept(n, 3, i)
		x1, x2, x3 := pop.candidate(r[0]), pop.candidate(r[1]), pop.candidate(r[2])

		trial := cloneVector(pop.candidate(i))
		forced := e.rng.Intn(dims)
		for d := 0; d < dims; d++ {
			if d == forced || e.rng.BernoulliBool(e.settings.Recombination) {
				trial[d] = x1[d] + f*(x2[d]-x3[d])
			}
		}
		utils.ClampVector(trial, e.bounds)
		out[i] = trial
	}
	return out
}

func countTrue(v []bool) int {
	n := 0
	for _, b := range v {
		if b {
			n++
		}
	}
	return n
}
