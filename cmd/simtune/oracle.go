package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/GoSim-25-26J-441/simtune/internal/lifecycle"
	"github.com/GoSim-25-26J-441/simtune/internal/oracle"
	"github.com/GoSim-25-26J-441/simtune/internal/oracle/refmodel"
	"github.com/GoSim-25-26J-441/simtune/internal/protocol"
	"github.com/GoSim-25-26J-441/simtune/pkg/config"
	"github.com/GoSim-25-26J-441/simtune/pkg/utils"
	"google.golang.org/grpc"
)

// oracleSetup pairs how the oracle is brought up with how it is reached.
type oracleSetup struct {
	entry     lifecycle.Entrypoint
	transport protocol.Transport
}

func newOracle(cfg config.Oracle) (*oracleSetup, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	o := &oracleSetup{}

	switch cfg.Transport {
	case "tcp":
		o.transport = protocol.NewClient(cfg.Host, cfg.Port)
	case "grpc":
		o.transport = protocol.NewGRPCClient(addr)
	}

	switch cfg.Mode {
	case "exec":
		o.entry = lifecycle.ExecEntrypoint(cfg.Command, cfg.ReadyLine)
	case "external":
		// attempts are unbounded; the ready timeout ends the wait
		backoff := utils.NewExponentialBackoff(100*time.Millisecond, 2*time.Second, 2)
		o.entry = lifecycle.ExternalEntrypoint(addr, backoff, 0)
	case "inprocess":
		model := refmodel.DefaultModel()
		if cfg.ModelPath != "" {
			var err error
			if model, err = refmodel.LoadModel(cfg.ModelPath); err != nil {
				return nil, err
			}
		}
		pool := oracle.NewPool(refmodel.Factory(model, cfg.Seed))
		handler := oracle.NewHandler(pool)

		switch cfg.Transport {
		case "bridge":
			o.transport = oracle.NewBridge(handler)
			o.entry = lifecycle.InlineEntrypoint(pool.Close)
		case "grpc":
			gs := grpc.NewServer()
			protocol.RegisterOracleServer(gs, handler)
			o.entry = withCleanup(lifecycle.ServerEntrypoint(lifecycle.GRPCService(gs), addr), pool.Close)
		default:
			o.entry = withCleanup(lifecycle.ServerEntrypoint(oracle.NewServer(handler), addr), pool.Close)
		}
	default:
		return nil, fmt.Errorf("unknown oracle mode: %s", cfg.Mode)
	}

	if o.transport == nil {
		return nil, fmt.Errorf("transport %s is not available in %s mode", cfg.Transport, cfg.Mode)
	}
	return o, nil
}

// withCleanup runs cleanup once entry has returned.
func withCleanup(entry lifecycle.Entrypoint, cleanup func() error) lifecycle.Entrypoint {
	return func(ctx context.Context, ready, stop *lifecycle.Signal) error {
		err := entry(ctx, ready, stop)
		if cerr := cleanup(); err == nil {
			err = cerr
		}
		return err
	}
}
