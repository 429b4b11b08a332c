package config

import "time"

// Config represents a search run configuration
type Config struct {
	LogLevel   string     `yaml:"log_level"`
	Oracle     Oracle     `yaml:"oracle"`
	Evaluation Evaluation `yaml:"evaluation"`
	Search     Search     `yaml:"search"`
	Output     Output     `yaml:"output"`
}

// Oracle describes how the simulation oracle is brought up and reached
type Oracle struct {
	Mode         string   `yaml:"mode"`      // inprocess, exec or external
	Transport    string   `yaml:"transport"` // tcp, grpc or bridge
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	Command      []string `yaml:"command,omitempty"`
	ReadyLine    string   `yaml:"ready_line,omitempty"`
	ReadyTimeout string   `yaml:"ready_timeout,omitempty"` // e.g., "30s"
	ModelPath    string   `yaml:"model_path,omitempty"`
	Seed         int64    `yaml:"seed,omitempty"`
}

// Evaluation configures how a candidate is scored
type Evaluation struct {
	Variant    string   `yaml:"variant"` // direct_report or tick_stream
	Scenario   string   `yaml:"scenario"`
	Samples    int      `yaml:"samples"`
	TickBudget int      `yaml:"tick_budget"`
	Commands   Commands `yaml:"commands"`
}

// Commands names the oracle commands and reporters used by an evaluation
type Commands struct {
	Go            string `yaml:"go"`
	EndReport     string `yaml:"end_report"`
	StopCondition string `yaml:"stop_condition"`
	TargetCount   string `yaml:"target_count"`
	FoundCount    string `yaml:"found_count"`
}

// Search configures differential evolution
type Search struct {
	// MaxGenerations, Recombination and Tolerance are pointers so an
	// explicit 0 survives ApplyDefaults.
	MaxGenerations *int      `yaml:"max_generations,omitempty"`
	PopSize        int       `yaml:"popsize"` // 0 derives it from workers
	Recombination  *float64  `yaml:"recombination,omitempty"`
	Tolerance      *float64  `yaml:"tolerance,omitempty"`
	Atol           float64   `yaml:"atol"`
	Mutation       []float64 `yaml:"mutation"`
	Seed           int64     `yaml:"seed"`
	Workers        int       `yaml:"workers"` // 0 uses runtime.NumCPU()
}

// Output configures where search activity is recorded
type Output struct {
	JournalCSV string `yaml:"journal_csv"`
	ResultsDB  string `yaml:"results_db"`
}

// GetReadyTimeout parses the ready timeout string to time.Duration
func (o *Oracle) GetReadyTimeout() (time.Duration, error) {
	return time.ParseDuration(o.ReadyTimeout)
}

// Generations returns the configured generation limit.
func (s *Search) Generations() int {
	if s.MaxGenerations == nil {
		return DefaultMaxGenerations
	}
	return *s.MaxGenerations
}

// CrossoverRate returns the configured recombination probability.
func (s *Search) CrossoverRate() float64 {
	if s.Recombination == nil {
		return DefaultRecombination
	}
	return *s.Recombination
}

// RelativeTolerance returns the configured relative convergence tolerance.
func (s *Search) RelativeTolerance() float64 {
	if s.Tolerance == nil {
		return DefaultTolerance
	}
	return *s.Tolerance
}
