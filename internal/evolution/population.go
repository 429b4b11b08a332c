package evolution

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Member is a scored candidate.
type Member struct {
	Candidate []float64
	Fitness   float64
}

// Population is one generation's scored members. It is never modified once
// built; Next returns the following version.
type Population struct {
	version int
	members []Member
}

// NewPopulation scores candidates into version 0.
func NewPopulation(candidates [][]float64, fitness []float64) (*Population, error) {
	if len(candidates) != len(fitness) {
		return nil, fmt.Errorf("%d candidates but %d fitness values", len(candidates), len(fitness))
	}
	members := make([]Member, len(candidates))
	for i := range candidates {
		members[i] = Member{Candidate: cloneVector(candidates[i]), Fitness: fitness[i]}
	}
	return &Population{members: members}, nil
}

// Version is the number of selection steps behind this population.
func (p *Population) Version() int { return p.version }

// Len returns the member count.
func (p *Population) Len() int { return len(p.members) }

// Member returns a copy of member i.
func (p *Population) Member(i int) Member {
	m := p.members[i]
	return Member{Candidate: cloneVector(m.Candidate), Fitness: m.Fitness}
}

// candidate returns member i's position without copying; callers must not
// modify it.
func (p *Population) candidate(i int) []float64 { return p.members[i].Candidate }

// Fitness returns a copy of all fitness values in member order.
func (p *Population) Fitness() []float64 {
	out := make([]float64, len(p.members))
	for i, m := range p.members {
		out[i] = m.Fitness
	}
	return out
}

// Best returns the index of the lowest fitness.
func (p *Population) Best() int {
	return floats.MinIdx(p.Fitness())
}

// Spread returns the population mean and standard deviation of fitness.
func (p *Population) Spread() (mean, std float64) {
	return stat.PopMeanStdDev(p.Fitness(), nil)
}

// Next applies greedy selection: member i is replaced by trial i when the
// trial's fitness is not worse. It reports which members were replaced.
func (p *Population) Next(trials [][]float64, fitness []float64) (*Population, []bool, error) {
	if len(trials) != len(p.members) || len(fitness) != len(p.members) {
		return nil, nil, fmt.Errorf("selection needs %d trials, got %d candidates and %d fitness values",
			len(p.members), len(trials), len(fitness))
	}
	members := make([]Member, len(p.members))
	accepted := make([]bool, len(p.members))
	for i, m := range p.members {
		if fitness[i] <= m.Fitness {
			members[i] = Member{Candidate: cloneVector(trials[i]), Fitness: fitness[i]}
			accepted[i] = true
		} else {
			members[i] = m
		}
	}
	return &Population{version: p.version + 1, members: members}, accepted, nil
}

func cloneVector(v []float64) []float64 {
	return append([]float64(nil), v...)
}
