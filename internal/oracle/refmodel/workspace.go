package refmodel

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/simtune/internal/oracle"
	"github.com/GoSim-25-26J-441/simtune/pkg/utils"
)

// Parameter defaults applied by init-simulation.
var defaultParameters = map[string]float64{
	"drones":       3,
	"speed":        1,
	"sensor-range": 1,
}

var (
	selectScenarioRe = regexp.MustCompile(`^set\s+selectScenario\s+"([^"]*)"$`)
	setParameterRe   = regexp.MustCompile(`^set_parameter\s+"([^"]+)"\s+(\S+)$`)
)

// ErrClosed is returned by a workspace after Close.
var ErrClosed = errors.New("workspace closed")

// Workspace is a single simulation instance. It is not safe for concurrent
// use; the oracle pool hands it to one run at a time.
type Workspace struct {
	model *Model
	rng   *utils.RandSource

	selected    string
	scenario    *Scenario
	params      map[string]float64
	initialized bool
	closed      bool

	tick      int
	slot      int
	found     int
	fractions []float64
}

// NewWorkspace opens model with its own random source.
func NewWorkspace(model *Model, seed int64) *Workspace {
	return &Workspace{
		model:  model,
		rng:    utils.NewRandSource(seed),
		params: make(map[string]float64),
	}
}

// Factory returns an oracle.Factory whose workspaces draw their seeds from
// seed.
func Factory(model *Model, seed int64) oracle.Factory {
	seeds := utils.NewRandSource(seed)
	return func() (oracle.Workspace, error) {
		return NewWorkspace(model, int64(seeds.Intn(math.MaxInt32))+1), nil
	}
}

func (w *Workspace) Command(cmd string) error {
	if w.closed {
		return ErrClosed
	}
	cmd = strings.TrimSpace(cmd)
	if m := selectScenarioRe.FindStringSubmatch(cmd); m != nil {
		w.selected = m[1]
		return nil
	}
	if m := setParameterRe.FindStringSubmatch(cmd); m != nil {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return fmt.Errorf("set_parameter %q: %w", m[1], err)
		}
		w.params[m[1]] = v
		return nil
	}

	switch cmd {
	case "load_scenario":
		sc, ok := w.model.Scenarios[w.selected]
		if !ok {
			return fmt.Errorf("unknown scenario %q", w.selected)
		}
		w.scenario = &sc
		w.initialized = false
		return nil
	case "init-simulation":
		if w.scenario == nil {
			return fmt.Errorf("init-simulation: no scenario loaded")
		}
		w.reset()
		return nil
	case "go-simulation":
		if !w.initialized {
			return fmt.Errorf("go-simulation: simulation not initialized")
		}
		w.step()
		return nil
	default:
		return fmt.Errorf("nothing named %s has been defined", strings.ToUpper(firstWord(cmd)))
	}
}

func (w *Workspace) Report(reporter string) (float64, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if !w.initialized {
		return 0, fmt.Errorf("%s: simulation not initialized", reporter)
	}
	switch strings.TrimSpace(reporter) {
	case "should-stop?":
		// non-zero while slots remain: the oracle ticks while this holds
		return boolFloat(!w.finished()), nil
	case "get-fitness":
		if len(w.fractions) == 0 {
			return 0, nil
		}
		sum := 0.0
		for _, f := range w.fractions {
			sum += f
		}
		return sum / float64(len(w.fractions)), nil
	case "count-targets":
		if w.finished() {
			return 0, nil
		}
		return float64(w.scenario.Batches[w.slot]), nil
	case "count-found":
		return float64(w.found), nil
	case "ticks":
		return float64(w.tick), nil
	default:
		return 0, fmt.Errorf("nothing named %s has been defined", strings.ToUpper(reporter))
	}
}

func (w *Workspace) Close() error {
	w.closed = true
	return nil
}

func (w *Workspace) reset() {
	w.params = make(map[string]float64, len(defaultParameters))
	for k, v := range defaultParameters {
		w.params[k] = v
	}
	w.tick, w.slot, w.found = 0, 0, 0
	w.fractions = nil
	w.initialized = true
}

func (w *Workspace) finished() bool {
	return w.slot >= len(w.scenario.Batches)
}

// detectionProbability is the chance that one hidden target is found in a
// tick. Speed trades coverage against sensing quality and peaks at 2.
func (w *Workspace) detectionProbability() float64 {
	drones := math.Max(0, w.params["drones"])
	speed := math.Max(0, w.params["speed"])
	sensor := math.Max(0, w.params["sensor-range"])
	rate := 0.05 * drones * sensor * speed / (1 + speed*speed/4)
	return 1 - math.Exp(-rate)
}

func (w *Workspace) step() {
	if w.finished() {
		return
	}
	batch := w.scenario.Batches[w.slot]
	p := w.detectionProbability()
	for i := w.found; i < batch; i++ {
		if w.rng.BernoulliBool(p) {
			w.found++
		}
	}
	w.tick++
	if w.tick%w.scenario.SlotTicks == 0 {
		w.fractions = append(w.fractions, float64(w.found)/float64(batch))
		w.slot++
		w.found = 0
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i]
	}
	return s
}
