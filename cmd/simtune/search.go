package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/GoSim-25-26J-441/simtune/internal/evaluator"
	"github.com/GoSim-25-26J-441/simtune/internal/evolution"
	"github.com/GoSim-25-26J-441/simtune/internal/fitness"
	"github.com/GoSim-25-26J-441/simtune/internal/journal"
	"github.com/GoSim-25-26J-441/simtune/internal/lifecycle"
	"github.com/GoSim-25-26J-441/simtune/internal/metrics"
	"github.com/GoSim-25-26J-441/simtune/internal/params"
	"github.com/GoSim-25-26J-441/simtune/pkg/config"
	"github.com/GoSim-25-26J-441/simtune/pkg/logger"
	"github.com/GoSim-25-26J-441/simtune/pkg/utils"
)

// search wires one run: oracle, fitness strategy, evaluator pool and engine.
type search struct {
	cfg      *config.Config
	space    *params.Space
	runID    string
	workers  int
	settings evolution.Settings
	metrics  *metrics.Collector
	started  time.Time
}

func newSearch(cfg *config.Config, space *params.Space) *search {
	workers := cfg.Search.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	dims := space.Dim()
	popsize := cfg.Search.PopSize
	if popsize <= 0 {
		popsize = evolution.PopSizeFor(workers, dims)
	}

	s := &search{
		cfg:     cfg,
		space:   space,
		runID:   utils.GenerateRunID(),
		workers: workers,
		metrics: metrics.NewCollector(),
		settings: evolution.Settings{
			PopSize:        popsize,
			MaxGenerations: cfg.Search.Generations(),
			Recombination:  cfg.Search.CrossoverRate(),
			Tolerance:      cfg.Search.RelativeTolerance(),
			Atol:           cfg.Search.Atol,
			Mutation:       [2]float64{cfg.Search.Mutation[0], cfg.Search.Mutation[1]},
			Seed:           cfg.Search.Seed,
		},
	}

	logger.Info("search configured",
		"run_id", s.runID,
		"parameters", space.String(),
		"workers", workers,
		"popsize", popsize,
		"members", evolution.MembersFor(popsize, dims),
		"max_generations", s.settings.MaxGenerations,
		"samples", cfg.Evaluation.Samples,
		"max_evaluations", evolution.MaxEvaluations(s.settings.MaxGenerations, popsize, dims, cfg.Evaluation.Samples),
		"variant", cfg.Evaluation.Variant,
		"scenario", cfg.Evaluation.Scenario,
	)
	return s
}

func (s *search) run(ctx context.Context) (*evolution.Result, error) {
	s.started = time.Now()

	o, err := newOracle(s.cfg.Oracle)
	if err != nil {
		return nil, err
	}

	builder := &fitness.RequestBuilder{
		Space:    s.space,
		Scenario: s.cfg.Evaluation.Scenario,
		Commands: fitness.Commands{
			Go:            s.cfg.Evaluation.Commands.Go,
			EndReport:     s.cfg.Evaluation.Commands.EndReport,
			StopCondition: s.cfg.Evaluation.Commands.StopCondition,
			TargetCount:   s.cfg.Evaluation.Commands.TargetCount,
			FoundCount:    s.cfg.Evaluation.Commands.FoundCount,
		},
	}
	strategy, err := fitness.New(fitness.Variant(s.cfg.Evaluation.Variant), o.transport, builder, s.cfg.Evaluation.TickBudget)
	if err != nil {
		return nil, err
	}

	j, err := journal.NewCSVJournal(s.cfg.Output.JournalCSV, s.runID, s.space)
	if err != nil {
		return nil, err
	}
	defer j.Close()

	observe := func(ev evaluator.Evaluation) {
		j.Observe(ev)
		s.metrics.Observe(ev)
	}
	pool := evaluator.NewPool(strategy, s.workers, s.cfg.Evaluation.Samples).WithObserver(observe)
	engine, err := evolution.NewEngine(s.space.Bounds(), s.settings, pool)
	if err != nil {
		return nil, err
	}
	engine.WithProgressReporter(func(gen int, best float64) {
		logger.Info("generation scored", "run_id", s.runID, "generation", gen, "best", best)
	})

	timeout, err := s.cfg.Oracle.GetReadyTimeout()
	if err != nil {
		return nil, err
	}
	mgr := lifecycle.NewManager(o.entry).WithReadyTimeout(timeout)

	var result *evolution.Result
	err = mgr.Run(ctx, func(ctx context.Context) error {
		var err error
		result, err = engine.Run(ctx)
		return err
	})
	s.logMetrics()
	if err != nil {
		logger.Error("search aborted", "run_id", s.runID, "state", engine.State().String(), "error", err)
		return nil, err
	}
	return result, nil
}

func (s *search) logMetrics() {
	summary := s.metrics.Summary()
	args := []any{"run_id", s.runID, "elapsed", s.metrics.Elapsed().String()}
	if lat := summary[metrics.EvaluationLatency]; lat != nil {
		args = append(args,
			"evaluations", lat.Count,
			"latency_mean_ms", lat.Mean,
			"latency_p95_ms", lat.P95,
			"latency_max_ms", lat.Max,
		)
	}
	if errs := summary[metrics.EvaluationErrors]; errs != nil {
		args = append(args, "failed_evaluations", errs.Count)
	}
	logger.Info("evaluation metrics", args...)
}

// objective converts an engine fitness back to the oracle's natural units.
func (s *search) objective(fit float64) (string, float64) {
	if fitness.Variant(s.cfg.Evaluation.Variant) == fitness.VariantTickStream {
		return "mean detection time (ticks)", fit
	}
	return "mean " + s.cfg.Evaluation.Commands.EndReport, -fit
}

func (s *search) report(w io.Writer, res *evolution.Result) {
	label, value := s.objective(res.Fitness)

	fmt.Fprintln(w, res.Message)
	fmt.Fprintf(w, "State: %s, generations: %d, evaluations: %d\n", res.State, res.Generations, res.Evaluations)
	fmt.Fprintln(w, "Best parameters:")
	for _, a := range s.space.Describe(res.Best) {
		fmt.Fprintf(w, "  %s = %g\n", a.Name, a.Value)
	}
	fmt.Fprintf(w, "Fitness: %g\n", res.Fitness)
	fmt.Fprintf(w, "%s: %g\n", label, value)
	if lat := s.metrics.Summary()[metrics.EvaluationLatency]; lat != nil {
		fmt.Fprintf(w, "Evaluation latency: mean %.1fms, p95 %.1fms\n", lat.Mean, lat.P95)
	}
}

// persist stores a completed search and optionally prints recent ones.
func (s *search) persist(ctx context.Context, res *evolution.Result, w io.Writer, history int) error {
	store, err := journal.Open(ctx, s.cfg.Output.ResultsDB)
	if err != nil {
		return err
	}
	defer store.Close()

	rec := journal.Record{
		RunID:       s.runID,
		Scenario:    s.cfg.Evaluation.Scenario,
		Variant:     s.cfg.Evaluation.Variant,
		State:       res.State.String(),
		Message:     res.Message,
		Fitness:     res.Fitness,
		Best:        s.space.Describe(res.Best),
		Generations: res.Generations,
		Evaluations: res.Evaluations,
		StartedAt:   s.started,
		FinishedAt:  time.Now(),
	}
	if err := store.Save(ctx, rec); err != nil {
		return err
	}
	logger.Debug("search result stored", "run_id", s.runID, "results_db", s.cfg.Output.ResultsDB)

	if history <= 0 {
		return nil
	}
	recs, err := store.List(ctx, history)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Recent searches:")
	for _, r := range recs {
		fmt.Fprintf(w, "  %s  %s  %-13s %-10s fitness=%g  %s\n",
			r.FinishedAt.Format(time.RFC3339), r.RunID, r.Variant, r.State, r.Fitness, journal.FormatAssignments(r.Best))
	}
	return nil
}
