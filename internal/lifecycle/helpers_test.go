package lifecycle

import (
	"testing"

	"github.com/GoSim-25-26J-441/simtune/internal/evaluator"
	"github.com/GoSim-25-26J-441/simtune/internal/fitness"
	"github.com/GoSim-25-26J-441/simtune/internal/params"
)

func mustSpace(t *testing.T) *params.Space {
	t.Helper()
	space, err := params.New(nil, []params.VariableParameter{{Name: "speed", Lower: 0, Upper: 1}})
	if err != nil {
		t.Fatalf("params.New: %v", err)
	}
	return space
}

func poolOf(s fitness.Strategy) *evaluator.Pool {
	return evaluator.NewPool(s, 2, 1)
}
