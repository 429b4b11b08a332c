// Package fitness turns one candidate into one scalar fitness by driving the
// oracle. Two derivations exist and a deployment picks one:
//
//   - DirectReport runs n independent simulations, averages the reported
//     value and negates it, since the reported metric is higher-is-better.
//   - TickStream runs one simulation that records a per-tick observation
//     stream and returns the mean detection time, which is lower-is-better.
package fitness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/simtune/internal/detection"
	"github.com/GoSim-25-26J-441/simtune/internal/protocol"
	"github.com/GoSim-25-26J-441/simtune/pkg/logger"
	"gonum.org/v1/gonum/stat"
)

// Strategy scores a candidate. Lower is better.
type Strategy interface {
	Evaluate(ctx context.Context, candidate []float64, samples int) (float64, error)
}

// Variant names a Strategy implementation.
type Variant string

const (
	VariantDirectReport Variant = "direct_report"
	VariantTickStream   Variant = "tick_stream"
)

// ErrInvalidSamples is returned when fewer than one sample is requested.
var ErrInvalidSamples = errors.New("sample count must be at least 1")

// New builds the strategy for variant.
func New(variant Variant, transport protocol.Transport, builder *RequestBuilder, tickBudget int) (Strategy, error) {
	switch variant {
	case VariantDirectReport, "":
		return &DirectReport{Transport: transport, Builder: builder}, nil
	case VariantTickStream:
		return &TickStream{
			Transport:  transport,
			Builder:    builder,
			Analyzer:   detection.New(),
			TickBudget: tickBudget,
		}, nil
	default:
		return nil, fmt.Errorf("unknown fitness variant: %s", variant)
	}
}

// DirectReport averages the end report of repeated runs and negates it.
type DirectReport struct {
	Transport protocol.Transport
	Builder   *RequestBuilder
}

func (d *DirectReport) Evaluate(ctx context.Context, candidate []float64, samples int) (float64, error) {
	if samples < 1 {
		return 0, ErrInvalidSamples
	}
	start := time.Now()
	req, err := d.Builder.Build(candidate)
	if err != nil {
		return 0, err
	}

	results := make([]float64, 0, samples)
	for i := 0; i < samples; i++ {
		resp, err := d.Transport.Send(ctx, req)
		if err != nil {
			return 0, err
		}
		if resp.Error {
			return 0, &SimulationError{Message: resp.ResponseMessage, Sample: i}
		}
		if resp.SimulationResult == nil {
			return 0, &protocol.ProtocolError{Reason: "expected simulationResult, got an observation stream"}
		}
		results = append(results, *resp.SimulationResult)
	}

	average := stat.Mean(results, nil)
	logger.Debug("evaluation done",
		"elapsed", time.Since(start),
		"average", average,
		"samples", results,
	)
	return -average, nil
}

// TickStream runs one bulk simulation and returns the mean detection time of
// its observation stream.
type TickStream struct {
	Transport  protocol.Transport
	Builder    *RequestBuilder
	Analyzer   *detection.Analyzer
	TickBudget int
}

// Evaluate ignores samples beyond validation: the stream of one run already
// holds every slot.
func (s *TickStream) Evaluate(ctx context.Context, candidate []float64, samples int) (float64, error) {
	if samples < 1 {
		return 0, ErrInvalidSamples
	}
	start := time.Now()
	req, err := s.Builder.BuildObservation(candidate, s.TickBudget)
	if err != nil {
		return 0, err
	}

	resp, err := s.Transport.Send(ctx, req)
	if err != nil {
		return 0, err
	}
	if resp.Error {
		return 0, &SimulationError{Message: resp.ResponseMessage}
	}
	if resp.Observations == nil {
		return 0, &protocol.ProtocolError{Reason: "expected observations, got simulationResult"}
	}

	analyzer := s.Analyzer
	if analyzer == nil {
		analyzer = detection.New()
	}
	mean, err := analyzer.Mean(resp.Observations)
	if err != nil {
		return 0, err
	}
	logger.Debug("evaluation done",
		"elapsed", time.Since(start),
		"ticks", len(resp.Observations),
		"mean_detection_ticks", mean,
	)
	return mean, nil
}
