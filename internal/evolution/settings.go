package evolution

import (
	"fmt"

	"github.com/GoSim-25-26J-441/simtune/pkg/utils"
)

// Settings configures a differential evolution run.
type Settings struct {
	// PopSize is the population multiplier; the population holds
	// MembersFor(PopSize, dims) members.
	PopSize        int
	MaxGenerations int
	// Recombination is the binomial crossover probability.
	Recombination float64
	// Tolerance and Atol define convergence:
	// std(fitness) <= Atol + Tolerance*|mean(fitness)|.
	Tolerance float64
	Atol      float64
	// Mutation is the dither range the differential weight is drawn from
	// once per generation.
	Mutation [2]float64
	// Seed makes a run reproducible; 0 seeds from the clock.
	Seed int64
}

// DefaultSettings returns the settings the driver uses unless configured.
func DefaultSettings() Settings {
	return Settings{
		PopSize:        1,
		MaxGenerations: 1,
		Recombination:  0.4,
		Tolerance:      0.01,
		Atol:           0,
		Mutation:       [2]float64{0.5, 1.0},
	}
}

// Validate checks the settings ranges.
func (s Settings) Validate() error {
	if s.PopSize < 1 {
		return fmt.Errorf("popsize must be at least 1, got %d", s.PopSize)
	}
	if s.MaxGenerations < 0 {
		return fmt.Errorf("max generations cannot be negative, got %d", s.MaxGenerations)
	}
	if s.Recombination <= 0 || s.Recombination >= 1 {
		return fmt.Errorf("recombination must be in (0, 1), got %g", s.Recombination)
	}
	if s.Tolerance < 0 || s.Atol < 0 {
		return fmt.Errorf("tolerances cannot be negative")
	}
	lo, hi := s.Mutation[0], s.Mutation[1]
	if lo < 0 || hi >= 2 || lo > hi {
		return fmt.Errorf("mutation range must satisfy 0 <= lo <= hi < 2, got [%g, %g]", lo, hi)
	}
	return nil
}

// PopSizeFor derives the population multiplier from the worker count and the
// number of variable parameters.
func PopSizeFor(workers, dims int) int {
	if dims <= 0 {
		return 1
	}
	return utils.Max(1, workers/dims)
}

// MembersFor returns the population size for a multiplier. rand/1 needs the
// target plus three distinct others, hence the floor of five.
func MembersFor(popsize, dims int) int {
	return utils.Max(5, popsize*dims)
}

// MaxEvaluations is the oracle evaluation budget of a run: the initial
// population plus maxGenerations trial batches, each candidate sampled
// samples times.
func MaxEvaluations(maxGenerations, popsize, dims, samples int) int {
	return samples * (maxGenerations + 1) * MembersFor(popsize, dims)
}
