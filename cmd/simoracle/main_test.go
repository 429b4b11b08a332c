package main

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/simtune/internal/protocol"
)

// lineWriter forwards every write to a channel.
type lineWriter chan string

func (w lineWriter) Write(p []byte) (int, error) {
	w <- string(p)
	return len(p), nil
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

func request() *protocol.Request {
	return &protocol.Request{
		SetupCommands: []string{
			`set selectScenario "sparse"`,
			"load_scenario",
			"init-simulation",
			`set_parameter "speed" 2`,
		},
		GoCommand:           "go-simulation",
		EndReport:           "get-fitness",
		StopConditionReport: "should-stop?",
	}
}

func TestServeLineProtocolAndGRPC(t *testing.T) {
	port, grpcPort := freePort(t), freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(lineWriter, 1)
	errc := make(chan error, 1)
	go func() { errc <- serve(ctx, "127.0.0.1", port, grpcPort, "", 1, out) }()

	select {
	case line := <-out:
		if strings.TrimSpace(line) != readyLine {
			t.Fatalf("unexpected ready line %q", line)
		}
	case err := <-errc:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no ready line")
	}

	resp, err := protocol.NewClient("127.0.0.1", port).Send(context.Background(), request())
	if err != nil {
		t.Fatalf("line protocol Send: %v", err)
	}
	if resp.Error || resp.SimulationResult == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if v := *resp.SimulationResult; v < 0 || v > 1 {
		t.Errorf("fitness %g outside [0, 1]", v)
	}

	grpcResp, err := protocol.NewGRPCClient(net.JoinHostPort("127.0.0.1", strconv.Itoa(grpcPort))).Send(context.Background(), request())
	if err != nil {
		t.Fatalf("gRPC Send: %v", err)
	}
	if grpcResp.Error || grpcResp.SimulationResult == nil {
		t.Fatalf("unexpected gRPC response %+v", grpcResp)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("serve returned %v after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServeRejectsMissingModel(t *testing.T) {
	err := serve(context.Background(), "127.0.0.1", freePort(t), 0, "does-not-exist.yaml", 1, make(lineWriter, 1))
	if err == nil {
		t.Fatal("expected error for missing model file")
	}
}

func TestServePortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	err = serve(context.Background(), "127.0.0.1", port, 0, "", 1, make(lineWriter, 1))
	if err == nil || !strings.Contains(err.Error(), "failed to listen") {
		t.Fatalf("expected listen error, got %v", err)
	}
}
