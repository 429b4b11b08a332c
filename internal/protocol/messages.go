// Package protocol implements the oracle wire protocol: one newline-terminated
// JSON record per request and one per response, exchanged over a connection
// that lives for exactly one request.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
)

// Request asks the oracle for one simulation run. The JSON field names,
// including the historical "goCommmand", are the compatibility surface.
type Request struct {
	SetupCommands       []string `json:"setupCommands"`
	GoCommand           string   `json:"goCommmand"`
	EndReport           string   `json:"endReport"`
	StopConditionReport string   `json:"stopConditionReport"`

	// TickBudget caps the number of go commands; 0 means run until the stop
	// condition reports false.
	TickBudget int `json:"tickBudget,omitempty"`
	// ObservationReports, when set, asks the oracle to evaluate the two
	// reporters (target count, found count) after every tick and return the
	// stream instead of a single end report.
	ObservationReports []string `json:"observationReports,omitempty"`
}

// WantsObservations reports whether the request asks for a tick stream.
func (r *Request) WantsObservations() bool {
	return len(r.ObservationReports) > 0
}

// Validate checks that the fields the oracle needs are present.
func (r *Request) Validate() error {
	switch {
	case r.SetupCommands == nil:
		return fmt.Errorf("setupCommands is required")
	case r.GoCommand == "":
		return fmt.Errorf("goCommmand is required")
	case r.StopConditionReport == "":
		return fmt.Errorf("stopConditionReport is required")
	case r.EndReport == "" && !r.WantsObservations():
		return fmt.Errorf("endReport is required")
	case r.WantsObservations() && len(r.ObservationReports) != 2:
		return fmt.Errorf("observationReports needs exactly two reporters, got %d", len(r.ObservationReports))
	case r.TickBudget < 0:
		return fmt.Errorf("tickBudget cannot be negative")
	}
	return nil
}

// ObservationSample is the state of one simulated tick.
// It travels as a two element array [targetCount, foundCount].
type ObservationSample struct {
	TargetCount int
	FoundCount  int
}

func (o ObservationSample) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{o.TargetCount, o.FoundCount})
}

func (o *ObservationSample) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("observation must be [targets, found], got %d values", len(pair))
	}
	o.TargetCount, o.FoundCount = pair[0], pair[1]
	return nil
}

// Response carries either a result payload (simulationResult or
// observations) or an error flagged with a message. Exactly one is present.
type Response struct {
	SimulationResult *float64            `json:"simulationResult,omitempty"`
	Observations     []ObservationSample `json:"observations,omitempty"`
	Error            bool                `json:"error,omitempty"`
	ResponseMessage  string              `json:"responseMessage,omitempty"`
}

// MarshalJSON keeps an empty, non-nil observation stream on the wire so it
// still counts as a result payload.
func (r Response) MarshalJSON() ([]byte, error) {
	type wire struct {
		SimulationResult *float64             `json:"simulationResult,omitempty"`
		Observations     *[]ObservationSample `json:"observations,omitempty"`
		Error            bool                 `json:"error,omitempty"`
		ResponseMessage  string               `json:"responseMessage,omitempty"`
	}
	w := wire{
		SimulationResult: r.SimulationResult,
		Error:            r.Error,
		ResponseMessage:  r.ResponseMessage,
	}
	if r.Observations != nil {
		w.Observations = &r.Observations
	}
	return json.Marshal(w)
}

// ResultResponse builds a successful single-value response.
func ResultResponse(v float64) *Response {
	return &Response{SimulationResult: &v}
}

// ObservationResponse builds a successful tick-stream response.
func ObservationResponse(samples []ObservationSample) *Response {
	if samples == nil {
		samples = []ObservationSample{}
	}
	return &Response{Observations: samples}
}

// ErrorResponse builds an error response.
func ErrorResponse(format string, args ...any) *Response {
	return &Response{Error: true, ResponseMessage: fmt.Sprintf(format, args...)}
}

// HasResult reports whether a result payload is present.
func (r *Response) HasResult() bool {
	return r.SimulationResult != nil || r.Observations != nil
}

// Validate enforces the exactly-one-of shape.
func (r *Response) Validate() error {
	switch {
	case r.Error && r.HasResult():
		return &ProtocolError{Reason: "response carries both a result and an error"}
	case !r.Error && !r.HasResult():
		return &ProtocolError{Reason: "response carries neither a result nor an error"}
	case r.SimulationResult != nil && r.Observations != nil:
		return &ProtocolError{Reason: "response carries both simulationResult and observations"}
	}
	return nil
}

// Transport sends one request and returns one response.
// Implementations: Client (TCP), GRPCClient, and the in-process oracle bridge.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Handler answers a request. Handlers never return nil.
type Handler interface {
	Handle(ctx context.Context, req *Request) *Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *Request) *Response

func (f HandlerFunc) Handle(ctx context.Context, req *Request) *Response {
	return f(ctx, req)
}
