// Package detection turns a per-tick observation stream into time-to-detect
// samples.
//
// Targets appear in batches ("time slots"). For every slot the analyzer
// measures how many ticks passed before the whole batch was found, or, when
// the slot ends first, extrapolates from the fraction found so far.
package detection

import (
	"fmt"

	"github.com/GoSim-25-26J-441/simtune/internal/protocol"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultThreshold is the fraction of targets that counts as located.
	DefaultThreshold = 1.0
	// MissPenalty is emitted for a slot that ended with nothing found.
	MissPenalty = 1000.0
)

// NoDetectionEventsError is returned when a stream yields no samples, so its
// mean is undefined.
type NoDetectionEventsError struct {
	Ticks int
}

func (e *NoDetectionEventsError) Error() string {
	return fmt.Sprintf("no detection events in %d ticks", e.Ticks)
}

// Analyzer is stateless between calls and safe for concurrent use.
type Analyzer struct {
	Threshold float64
}

// New returns an analyzer using DefaultThreshold.
func New() *Analyzer {
	return &Analyzer{Threshold: DefaultThreshold}
}

type state int

const (
	notLocated state = iota
	located
)

// tracker holds the state of one pass over a stream.
type tracker struct {
	threshold  float64
	state      state
	slotStart  int
	prevTarget int
	out        []float64
}

func (tr *tracker) observe(t int, last bool, s protocol.ObservationSample) {
	if s.TargetCount == 0 {
		return
	}
	switch tr.state {
	case notLocated:
		percent := float64(s.FoundCount) / float64(s.TargetCount)
		if percent >= tr.threshold {
			tr.out = append(tr.out, float64(t-tr.slotStart))
			tr.state = located
		} else if tr.prevTarget != s.TargetCount || last {
			if tr.prevTarget != 0 {
				tr.out = append(tr.out, tr.estimate(t, percent))
			}
			tr.slotStart = t
		}
	case located:
		if tr.prevTarget != s.TargetCount {
			tr.state = notLocated
			tr.slotStart = t
		}
	}
	tr.prevTarget = s.TargetCount
}

// estimate extrapolates the detection time of a slot that ended early.
func (tr *tracker) estimate(t int, percent float64) float64 {
	if percent == 0 {
		return MissPenalty
	}
	return tr.threshold * float64(t-tr.slotStart) / percent
}

// Analyze returns the samples emitted for the stream, in emission order.
func (a *Analyzer) Analyze(samples []protocol.ObservationSample) []float64 {
	threshold := a.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	tr := &tracker{threshold: threshold}
	for t, s := range samples {
		tr.observe(t, t == len(samples)-1, s)
	}
	return tr.out
}

// Mean returns the arithmetic mean of Analyze(samples).
func (a *Analyzer) Mean(samples []protocol.ObservationSample) (float64, error) {
	out := a.Analyze(samples)
	if len(out) == 0 {
		return 0, &NoDetectionEventsError{Ticks: len(samples)}
	}
	return stat.Mean(out, nil), nil
}
