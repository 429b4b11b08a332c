package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/simtune/internal/journal"
)

const paramsYAML = `fixed:
  drones: 3
variable:
  speed: [0.2, 4]
  sensor-range: [0.5, 3]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile %s: %v", name, err)
	}
	return path
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestRunBridgeSearch(t *testing.T) {
	dir := t.TempDir()
	paramsPath := writeFile(t, dir, "params.yaml", paramsYAML)
	journalPath := filepath.Join(dir, "evals.csv")
	dbPath := filepath.Join(dir, "results.db")
	cfgPath := writeFile(t, dir, "simtune.yaml", fmt.Sprintf(`
log_level: warn
oracle:
  transport: bridge
  seed: 11
evaluation:
  scenario: default
search:
  max_generations: 2
  workers: 2
  seed: 5
output:
  journal_csv: %s
  results_db: %s
`, journalPath, dbPath))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config", cfgPath, "--params", paramsPath, "--history", "5"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}

	out := stdout.String()
	for _, want := range []string{"Best parameters:", "speed = ", "sensor-range = ", "Fitness: ", "mean get-fitness: ", "Recent searches:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	store, err := journal.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("open results: %v", err)
	}
	defer store.Close()
	recs, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 stored search, got %d", len(recs))
	}
	rec := recs[0]
	if rec.Scenario != "default" || rec.Generations < 1 || rec.Generations > 2 {
		t.Errorf("unexpected record %+v", rec)
	}
	// 5 members per batch: the initial population plus one batch per generation
	if rec.Evaluations != 5*(rec.Generations+1) {
		t.Errorf("evaluations = %d for %d generations", rec.Evaluations, rec.Generations)
	}

	data, err := os.ReadFile(journalPath)
	if err != nil {
		t.Fatalf("journal not written: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1+rec.Evaluations {
		t.Errorf("expected header plus %d journal rows, got %d lines", rec.Evaluations, len(lines))
	}
}

func TestRunTickStreamOverTCP(t *testing.T) {
	dir := t.TempDir()
	paramsPath := writeFile(t, dir, "params.yaml", paramsYAML)
	cfgPath := writeFile(t, dir, "simtune.yaml", fmt.Sprintf(`
log_level: error
oracle:
  mode: inprocess
  transport: tcp
  port: %d
evaluation:
  variant: tick_stream
  tick_budget: 400
search:
  workers: 3
  seed: 9
`, freePort(t)))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config", cfgPath, "--params", paramsPath, "-m", "1", "-s", "2"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "mean detection time (ticks): ") {
		t.Errorf("unexpected output:\n%s", stdout.String())
	}
}

func TestRunOverGRPC(t *testing.T) {
	dir := t.TempDir()
	paramsPath := writeFile(t, dir, "params.yaml", paramsYAML)
	cfgPath := writeFile(t, dir, "simtune.yaml", fmt.Sprintf(`
log_level: error
oracle:
  transport: grpc
  port: %d
search:
  max_generations: 0
  workers: 2
`, freePort(t)))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config", cfgPath, "--params", paramsPath}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Maximum number of iterations has been exceeded.") {
		t.Errorf("unexpected output:\n%s", stdout.String())
	}
}

func TestRunFailures(t *testing.T) {
	dir := t.TempDir()
	paramsPath := writeFile(t, dir, "params.yaml", paramsYAML)
	badParams := writeFile(t, dir, "bad.yaml", "fixed:\n  drones: 3\n")

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing params flag",
			args:     []string{},
			wantCode: 2,
			wantErr:  "--params is required",
		},
		{
			name:     "params without variable section",
			args:     []string{"--params", badParams},
			wantCode: 1,
			wantErr:  "ParameterLoadError",
		},
		{
			name:     "missing params file",
			args:     []string{"--params", filepath.Join(dir, "nope.json")},
			wantCode: 1,
			wantErr:  "ParameterLoadError",
		},
		{
			name:     "unknown scenario",
			args:     []string{"--params", paramsPath, "--scenario", "nowhere", "--log-level", "error"},
			wantCode: 1,
			wantErr:  "SimulationError",
		},
		{
			name:     "invalid samples",
			args:     []string{"--params", paramsPath, "-s", "0"},
			wantCode: 1,
			wantErr:  "samples",
		},
		{
			name:     "unknown flag",
			args:     []string{"--frobnicate"},
			wantCode: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// bridge keeps the failing runs off the network
			args := append([]string{"--config", writeFile(t, t.TempDir(), "c.yaml", "oracle:\n  transport: bridge\n")}, tt.args...)
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), args, &stdout, &stderr)
			if code != tt.wantCode {
				t.Fatalf("exit code %d, want %d, stderr:\n%s", code, tt.wantCode, stderr.String())
			}
			if tt.wantErr != "" && !strings.Contains(stderr.String(), tt.wantErr) {
				t.Errorf("stderr missing %q:\n%s", tt.wantErr, stderr.String())
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	paramsPath := writeFile(t, dir, "params.yaml", paramsYAML)
	cfgPath := writeFile(t, dir, "c.yaml", "oracle:\n  transport: bridge\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{"--config", cfgPath, "--params", paramsPath}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Cancelled") {
		t.Errorf("stderr missing Cancelled:\n%s", stderr.String())
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	opts, set, err := parseFlags([]string{"--scenario", "sparse", "-m", "0", "--samples", "4", "--log-level", "debug"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg, err := loadConfig(opts, set)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Evaluation.Scenario != "sparse" {
		t.Errorf("scenario = %s", cfg.Evaluation.Scenario)
	}
	if cfg.Search.Generations() != 0 {
		t.Errorf("generations = %d, want 0", cfg.Search.Generations())
	}
	if cfg.Evaluation.Samples != 4 {
		t.Errorf("samples = %d", cfg.Evaluation.Samples)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %s", cfg.LogLevel)
	}

	opts, set, _ = parseFlags([]string{"--log-format", "xml"}, &bytes.Buffer{})
	if _, err := loadConfig(opts, set); err == nil {
		t.Error("expected error for unknown log format")
	}
}
