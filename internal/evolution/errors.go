package evolution

import (
	"context"
	"errors"

	"github.com/GoSim-25-26J-441/simtune/internal/detection"
	"github.com/GoSim-25-26J-441/simtune/internal/fitness"
	"github.com/GoSim-25-26J-441/simtune/internal/params"
	"github.com/GoSim-25-26J-441/simtune/internal/protocol"
)

// ErrorKind names the originating error type of a failed search for
// user-facing reports.
func ErrorKind(err error) string {
	var (
		simErr       *fitness.SimulationError
		transportErr *protocol.TransportError
		protocolErr  *protocol.ProtocolError
		detectionErr *detection.NoDetectionEventsError
		paramsErr    *params.ParameterLoadError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &simErr):
		return "SimulationError"
	case errors.As(err, &transportErr):
		return "TransportError"
	case errors.As(err, &protocolErr):
		return "ProtocolError"
	case errors.As(err, &detectionErr):
		return "NoDetectionEventsError"
	case errors.As(err, &paramsErr):
		return "ParameterLoadError"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Cancelled"
	default:
		return "Error"
	}
}
