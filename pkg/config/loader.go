package config

import (
	"fmt"
	"os"
	"strings"
)

// Defaults used when a field is left empty
const (
	DefaultLogLevel       = "info"
	DefaultMode           = "inprocess"
	DefaultTransport      = "tcp"
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 1234
	DefaultReadyLine      = "oracle listening"
	DefaultReadyTimeout   = "30s"
	DefaultVariant        = "direct_report"
	DefaultScenario       = "default"
	DefaultSamples        = 1
	DefaultTickBudget     = 5000
	DefaultMaxGenerations = 1
	DefaultRecombination  = 0.4
	DefaultTolerance      = 0.01
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills empty fields. Zero is treated as unset except for
// max_generations, atol and seed.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	o := &cfg.Oracle
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	if o.Transport == "" {
		o.Transport = DefaultTransport
	}
	if o.Host == "" {
		o.Host = DefaultHost
	}
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.ReadyLine == "" {
		o.ReadyLine = DefaultReadyLine
	}
	if o.ReadyTimeout == "" {
		o.ReadyTimeout = DefaultReadyTimeout
	}

	e := &cfg.Evaluation
	if e.Variant == "" {
		e.Variant = DefaultVariant
	}
	if e.Scenario == "" {
		e.Scenario = DefaultScenario
	}
	if e.Samples == 0 {
		e.Samples = DefaultSamples
	}
	if e.TickBudget == 0 {
		e.TickBudget = DefaultTickBudget
	}
	c := &e.Commands
	if c.Go == "" {
		c.Go = "go-simulation"
	}
	if c.EndReport == "" {
		c.EndReport = "get-fitness"
	}
	if c.StopCondition == "" {
		c.StopCondition = "should-stop?"
	}
	if c.TargetCount == "" {
		c.TargetCount = "count-targets"
	}
	if c.FoundCount == "" {
		c.FoundCount = "count-found"
	}

	s := &cfg.Search
	if s.MaxGenerations == nil {
		g := DefaultMaxGenerations
		s.MaxGenerations = &g
	}
	if s.Recombination == nil {
		r := DefaultRecombination
		s.Recombination = &r
	}
	if s.Tolerance == nil {
		tol := DefaultTolerance
		s.Tolerance = &tol
	}
	if len(s.Mutation) == 0 {
		s.Mutation = []float64{0.5, 1.0}
	}
}

// Validate checks the configuration, typically after flags overrode it.
func (c *Config) Validate() error {
	return validateConfig(c)
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	if err := validateOracle(&cfg.Oracle); err != nil {
		return fmt.Errorf("oracle validation failed: %w", err)
	}
	if err := validateEvaluation(&cfg.Evaluation); err != nil {
		return fmt.Errorf("evaluation validation failed: %w", err)
	}
	if err := validateSearch(&cfg.Search); err != nil {
		return fmt.Errorf("search validation failed: %w", err)
	}

	return nil
}

// validateOracle validates the oracle configuration
func validateOracle(o *Oracle) error {
	validModes := map[string]bool{
		"inprocess": true,
		"exec":      true,
		"external":  true,
	}
	if !validModes[o.Mode] {
		return fmt.Errorf("invalid mode: %s (must be inprocess, exec, or external)", o.Mode)
	}

	validTransports := map[string]bool{
		"tcp":    true,
		"grpc":   true,
		"bridge": true,
	}
	if !validTransports[o.Transport] {
		return fmt.Errorf("invalid transport: %s (must be tcp, grpc, or bridge)", o.Transport)
	}
	if o.Transport == "bridge" && o.Mode != "inprocess" {
		return fmt.Errorf("transport bridge requires mode inprocess, got %s", o.Mode)
	}

	if o.Transport != "bridge" {
		if strings.TrimSpace(o.Host) == "" {
			return fmt.Errorf("host cannot be empty")
		}
		if o.Port <= 0 || o.Port > 65535 {
			return fmt.Errorf("port must be between 1 and 65535, got %d", o.Port)
		}
	}

	if o.Mode == "exec" {
		if len(o.Command) == 0 || strings.TrimSpace(o.Command[0]) == "" {
			return fmt.Errorf("command is required in exec mode")
		}
		if o.ReadyLine == "" {
			return fmt.Errorf("ready_line cannot be empty in exec mode")
		}
	}

	timeout, err := o.GetReadyTimeout()
	if err != nil {
		return fmt.Errorf("invalid ready_timeout %s: %w", o.ReadyTimeout, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("ready_timeout must be positive, got %s", o.ReadyTimeout)
	}

	return nil
}

// validateEvaluation validates the evaluation configuration
func validateEvaluation(e *Evaluation) error {
	if e.Variant != "direct_report" && e.Variant != "tick_stream" {
		return fmt.Errorf("invalid variant: %s (must be direct_report or tick_stream)", e.Variant)
	}
	if strings.TrimSpace(e.Scenario) == "" {
		return fmt.Errorf("scenario cannot be empty")
	}
	if e.Samples < 1 {
		return fmt.Errorf("samples must be at least 1, got %d", e.Samples)
	}
	if e.TickBudget < 0 {
		return fmt.Errorf("tick_budget cannot be negative, got %d", e.TickBudget)
	}
	if e.Variant == "tick_stream" && e.TickBudget == 0 {
		return fmt.Errorf("tick_budget must be positive for tick_stream")
	}

	commands := []struct {
		key, value string
	}{
		{"go", e.Commands.Go},
		{"end_report", e.Commands.EndReport},
		{"stop_condition", e.Commands.StopCondition},
		{"target_count", e.Commands.TargetCount},
		{"found_count", e.Commands.FoundCount},
	}
	for _, c := range commands {
		if strings.TrimSpace(c.value) == "" {
			return fmt.Errorf("commands.%s cannot be empty", c.key)
		}
	}

	return nil
}

// validateSearch validates the search configuration
func validateSearch(s *Search) error {
	if s.Generations() < 0 {
		return fmt.Errorf("max_generations cannot be negative, got %d", s.Generations())
	}
	if s.PopSize < 0 {
		return fmt.Errorf("popsize cannot be negative, got %d", s.PopSize)
	}
	if r := s.CrossoverRate(); r <= 0 || r >= 1 {
		return fmt.Errorf("recombination must be strictly between 0 and 1, got %g", r)
	}
	if tol := s.RelativeTolerance(); tol < 0 {
		return fmt.Errorf("tolerance cannot be negative, got %g", tol)
	}
	if s.Atol < 0 {
		return fmt.Errorf("atol cannot be negative, got %f", s.Atol)
	}
	if len(s.Mutation) != 2 {
		return fmt.Errorf("mutation must have exactly 2 values, got %d", len(s.Mutation))
	}
	if s.Mutation[0] < 0 || s.Mutation[1] >= 2 || s.Mutation[0] > s.Mutation[1] {
		return fmt.Errorf("mutation must satisfy 0 <= lo <= hi < 2, got %v", s.Mutation)
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", s.Workers)
	}
	return nil
}
