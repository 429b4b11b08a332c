package fitness

import (
	"fmt"
	"strconv"

	"github.com/GoSim-25-26J-441/simtune/internal/params"
	"github.com/GoSim-25-26J-441/simtune/internal/protocol"
)

// Commands names the oracle-side procedures a request refers to.
type Commands struct {
	Go            string
	EndReport     string
	StopCondition string
	TargetCount   string
	FoundCount    string
}

// DefaultCommands returns the procedure names of the reference model.
func DefaultCommands() Commands {
	return Commands{
		Go:            "go-simulation",
		EndReport:     "get-fitness",
		StopCondition: "should-stop?",
		TargetCount:   "count-targets",
		FoundCount:    "count-found",
	}
}

// RequestBuilder turns a candidate into an evaluation request.
type RequestBuilder struct {
	Space    *params.Space
	Scenario string
	Commands Commands
}

// SetupCommands selects and loads the scenario, initializes the simulation,
// then assigns fixed and variable parameters in definition order.
func (b *RequestBuilder) SetupCommands(candidate []float64) ([]string, error) {
	if len(candidate) != b.Space.Dim() {
		return nil, fmt.Errorf("candidate has %d components, space has %d variable parameters",
			len(candidate), b.Space.Dim())
	}
	cmds := make([]string, 0, 3+len(b.Space.Fixed)+len(candidate))
	cmds = append(cmds,
		fmt.Sprintf("set selectScenario %q", b.Scenario),
		"load_scenario",
		"init-simulation",
	)
	for _, fp := range b.Space.Fixed {
		cmds = append(cmds, setParameter(fp.Name, fp.Value))
	}
	for i, vp := range b.Space.Variable {
		cmds = append(cmds, setParameter(vp.Name, candidate[i]))
	}
	return cmds, nil
}

func setParameter(name string, v float64) string {
	return fmt.Sprintf("set_parameter %q %s", name, strconv.FormatFloat(v, 'g', -1, 64))
}

// Build returns a request that runs the simulation to its stop condition and
// reports the end value.
func (b *RequestBuilder) Build(candidate []float64) (*protocol.Request, error) {
	setup, err := b.SetupCommands(candidate)
	if err != nil {
		return nil, err
	}
	return &protocol.Request{
		SetupCommands:       setup,
		GoCommand:           b.Commands.Go,
		EndReport:           b.Commands.EndReport,
		StopConditionReport: b.Commands.StopCondition,
	}, nil
}

// BuildObservation returns a request that records a target/found sample per
// tick for at most tickBudget ticks.
func (b *RequestBuilder) BuildObservation(candidate []float64, tickBudget int) (*protocol.Request, error) {
	req, err := b.Build(candidate)
	if err != nil {
		return nil, err
	}
	req.TickBudget = tickBudget
	req.ObservationReports = []string{b.Commands.TargetCount, b.Commands.FoundCount}
	return req, nil
}
