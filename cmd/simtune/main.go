package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/GoSim-25-26J-441/simtune/internal/evolution"
	"github.com/GoSim-25-26J-441/simtune/internal/params"
	"github.com/GoSim-25-26J-441/simtune/pkg/config"
	"github.com/GoSim-25-26J-441/simtune/pkg/logger"
)

type options struct {
	configPath string
	paramsPath string
	scenario   string
	maxIter    int
	samples    int
	logLevel   string
	logFormat  string
	history    int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one search and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, set, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(opts, set)
	if err != nil {
		fmt.Fprintf(stderr, "simtune: %v\n", err)
		return 1
	}
	logger.SetDefault(logger.NewWithFormat(opts.logFormat, cfg.LogLevel, stderr))

	if opts.paramsPath == "" {
		fmt.Fprintln(stderr, "simtune: --params is required")
		return 2
	}
	// a bad definition file aborts before any oracle is started
	space, err := params.LoadFile(opts.paramsPath)
	if err != nil {
		reportFailure(stderr, err)
		return 1
	}

	s := newSearch(cfg, space)
	result, err := s.run(ctx)
	if err != nil {
		reportFailure(stderr, err)
		return 1
	}
	s.report(stdout, result)

	if err := s.persist(ctx, result, stdout, opts.history); err != nil {
		logger.Error("failed to store search result", "run_id", s.runID, "error", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (*options, map[string]bool, error) {
	opts := &options{}
	fs := flag.NewFlagSet("simtune", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "run configuration file (YAML)")
	fs.StringVar(&opts.paramsPath, "params", "", "parameter definition file (.json, .yaml or text)")
	fs.StringVar(&opts.scenario, "scenario", "", "scenario evaluated by the oracle")
	fs.IntVar(&opts.maxIter, "max-iter", 0, "maximum number of generations")
	fs.IntVar(&opts.maxIter, "m", 0, "shorthand for --max-iter")
	fs.IntVar(&opts.samples, "samples", 0, "simulation runs averaged per candidate")
	fs.IntVar(&opts.samples, "s", 0, "shorthand for --samples")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")
	fs.IntVar(&opts.history, "history", 0, "print this many stored searches after the run")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return opts, set, nil
}

// loadConfig reads the config file, if any, and lets flags override it.
func loadConfig(opts *options, set map[string]bool) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(opts.configPath); err != nil {
			return nil, err
		}
	}

	if set["scenario"] {
		cfg.Evaluation.Scenario = opts.scenario
	}
	if set["max-iter"] || set["m"] {
		g := opts.maxIter
		cfg.Search.MaxGenerations = &g
	}
	if set["samples"] || set["s"] {
		cfg.Evaluation.Samples = opts.samples
	}
	if set["log-level"] {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFormat != "text" && opts.logFormat != "json" {
		return nil, fmt.Errorf("invalid log format: %s (must be text or json)", opts.logFormat)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func reportFailure(w io.Writer, err error) {
	kind := evolution.ErrorKind(err)
	logger.Error("search failed", "kind", kind, "error", err)
	fmt.Fprintf(w, "search failed: %s: %v\n", kind, err)
}
