package detection

import (
	"errors"
	"math"
	"testing"

	"github.com/GoSim-25-26J-441/simtune/internal/protocol"
)

func stream(pairs ...[2]int) []protocol.ObservationSample {
	out := make([]protocol.ObservationSample, len(pairs))
	for i, p := range pairs {
		out[i] = protocol.ObservationSample{TargetCount: p[0], FoundCount: p[1]}
	}
	return out
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name   string
		stream []protocol.ObservationSample
		want   []float64
	}{
		{
			name:   "full detection one tick after slot start",
			stream: stream([2]int{2, 0}, [2]int{2, 2}, [2]int{2, 2}),
			want:   []float64{1},
		},
		{
			name:   "slot ends on last tick with nothing found",
			stream: stream([2]int{0, 0}, [2]int{3, 0}, [2]int{3, 0}),
			want:   []float64{MissPenalty},
		},
		{
			name:   "immediate detection",
			stream: stream([2]int{1, 1}),
			want:   []float64{0},
		},
		{
			name:   "empty ticks are skipped",
			stream: stream([2]int{0, 0}, [2]int{0, 0}),
			want:   nil,
		},
		{
			// the next batch arrives at tick 2 with half of it found:
			// estimate 1.0*(2-0)/0.5
			name:   "partial detection extrapolated at slot change",
			stream: stream([2]int{4, 0}, [2]int{4, 2}, [2]int{2, 1}, [2]int{2, 2}),
			want:   []float64{4, 1},
		},
		{
			name:   "located slot resets on new batch",
			stream: stream([2]int{1, 0}, [2]int{1, 1}, [2]int{3, 0}, [2]int{3, 1}, [2]int{3, 3}),
			want:   []float64{1, 2},
		},
	}
	a := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(tt.stream)
			if len(got) != len(tt.want) {
				t.Fatalf("Analyze() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-12 {
					t.Fatalf("Analyze()[%d] = %v, want %v (all %v)", i, got[i], tt.want[i], got)
				}
			}
		})
	}
}

func TestAnalyzerIsStateless(t *testing.T) {
	a := New()
	s := stream([2]int{2, 0}, [2]int{2, 2})
	first := a.Analyze(s)
	second := a.Analyze(s)
	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Fatalf("repeated analysis differs: %v vs %v", first, second)
	}
}

func TestMean(t *testing.T) {
	a := New()
	got, err := a.Mean(stream([2]int{1, 0}, [2]int{1, 1}, [2]int{3, 0}, [2]int{3, 1}, [2]int{3, 3}))
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}
	if got != 1.5 {
		t.Fatalf("Mean() = %v, want 1.5", got)
	}
}

func TestMeanNoEvents(t *testing.T) {
	_, err := New().Mean(stream([2]int{0, 0}, [2]int{0, 0}, [2]int{0, 0}))
	var nde *NoDetectionEventsError
	if !errors.As(err, &nde) {
		t.Fatalf("expected NoDetectionEventsError, got %v", err)
	}
	if nde.Ticks != 3 {
		t.Fatalf("Ticks = %d, want 3", nde.Ticks)
	}
}

func TestCustomThreshold(t *testing.T) {
	a := &Analyzer{Threshold: 0.5}
	got := a.Analyze(stream([2]int{4, 0}, [2]int{4, 1}, [2]int{4, 2}))
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("Analyze() = %v, want [2]", got)
	}
}
