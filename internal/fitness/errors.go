package fitness

import "fmt"

// SimulationError reports a run the oracle explicitly flagged as failed.
type SimulationError struct {
	Message string
	Sample  int
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation failed on sample %d: %s", e.Sample, e.Message)
}
