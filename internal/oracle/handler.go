package oracle

import (
	"context"
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/simtune/internal/protocol"
	"github.com/GoSim-25-26J-441/simtune/pkg/logger"
	"github.com/GoSim-25-26J-441/simtune/pkg/utils"
)

// Handler runs one simulation per request on a pooled workspace.
type Handler struct {
	pool *Pool
}

// NewHandler creates a handler backed by pool.
func NewHandler(pool *Pool) *Handler {
	return &Handler{pool: pool}
}

// Handle implements protocol.Handler.
func (h *Handler) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	if err := req.Validate(); err != nil {
		return protocol.ErrorResponse("Invalid SimulationCommand, some of the required fields are missing: %v", err)
	}

	ws, err := h.pool.Acquire()
	if err != nil {
		return protocol.ErrorResponse("%v", err)
	}

	requestID := utils.GenerateRequestID()
	logger.Debug("simulation started", "request_id", requestID, "setup_commands", len(req.SetupCommands))

	resp, err := h.simulate(ctx, ws, req)
	if err != nil {
		h.pool.Discard(ws)
		logger.Warn("simulation failed", "request_id", requestID, "error", err)
		return protocol.ErrorResponse("%v", err)
	}
	h.pool.Release(ws)
	logger.Debug("simulation finished", "request_id", requestID)
	return resp
}

func (h *Handler) simulate(ctx context.Context, ws Workspace, req *protocol.Request) (*protocol.Response, error) {
	for _, cmd := range req.SetupCommands {
		if err := ws.Command(cmd); err != nil {
			return nil, err
		}
	}

	var observations []protocol.ObservationSample
	if req.WantsObservations() {
		observations = make([]protocol.ObservationSample, 0)
	}

	for tick := 0; req.TickBudget == 0 || tick < req.TickBudget; tick++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("simulation interrupted at tick %d: %w", tick, err)
		}
		running, err := ws.Report(req.StopConditionReport)
		if err != nil {
			return nil, err
		}
		if running == 0 {
			break
		}
		if err := ws.Command(req.GoCommand); err != nil {
			return nil, err
		}
		if observations != nil {
			sample, err := observe(ws, req.ObservationReports)
			if err != nil {
				return nil, err
			}
			observations = append(observations, sample)
		}
	}

	if observations != nil {
		return protocol.ObservationResponse(observations), nil
	}
	result, err := ws.Report(req.EndReport)
	if err != nil {
		return nil, err
	}
	return protocol.ResultResponse(result), nil
}

func observe(ws Workspace, reporters []string) (protocol.ObservationSample, error) {
	targets, err := ws.Report(reporters[0])
	if err != nil {
		return protocol.ObservationSample{}, err
	}
	found, err := ws.Report(reporters[1])
	if err != nil {
		return protocol.ObservationSample{}, err
	}
	return protocol.ObservationSample{
		TargetCount: int(math.Round(targets)),
		FoundCount:  int(math.Round(found)),
	}, nil
}
