package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/GoSim-25-26J-441/simtune/internal/oracle"
	"github.com/GoSim-25-26J-441/simtune/internal/oracle/refmodel"
	"github.com/GoSim-25-26J-441/simtune/internal/protocol"
	"github.com/GoSim-25-26J-441/simtune/pkg/logger"
	"google.golang.org/grpc"
)

// readyLine is printed to stdout once every listener accepts connections.
const readyLine = "oracle listening"

func main() {
	var host string
	var port int
	var grpcPort int
	var modelPath string
	var seed int64
	var logLevel string

	flag.StringVar(&host, "host", "127.0.0.1", "listen host")
	flag.IntVar(&port, "port", 1234, "line protocol listen port")
	flag.IntVar(&grpcPort, "grpc-port", 0, "gRPC listen port (0 disables gRPC)")
	flag.StringVar(&modelPath, "model", "", "scenario model file (YAML); built-in scenarios when empty")
	flag.Int64Var(&seed, "seed", 0, "random seed of the workspaces (0 seeds from the clock)")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	// stdout carries the ready line, logs go to stderr
	logger.SetDefault(logger.NewText(logLevel, os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, host, port, grpcPort, modelPath, seed, os.Stdout); err != nil {
		logger.Error("oracle failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context, host string, port, grpcPort int, modelPath string, seed int64, stdout io.Writer) error {
	model := refmodel.DefaultModel()
	if modelPath != "" {
		var err error
		if model, err = refmodel.LoadModel(modelPath); err != nil {
			return err
		}
	}

	pool := oracle.NewPool(refmodel.Factory(model, seed))
	defer pool.Close()
	handler := oracle.NewHandler(pool)

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	srv := oracle.NewServer(handler)

	// serve errors end the process the same way a signal does
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var grpcServer *grpc.Server
	if grpcPort > 0 {
		grpcAddr := net.JoinHostPort(host, strconv.Itoa(grpcPort))
		grpcLis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			lis.Close()
			return fmt.Errorf("failed to listen for gRPC on %s: %w", grpcAddr, err)
		}
		grpcServer = grpc.NewServer()
		protocol.RegisterOracleServer(grpcServer, handler)
		go func() {
			logger.Info("gRPC server listening", "addr", grpcLis.Addr().String())
			if err := grpcServer.Serve(grpcLis); err != nil {
				cancel(fmt.Errorf("gRPC server: %w", err))
			}
		}()
	}

	go func() {
		logger.Info("oracle server listening", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil && err != oracle.ErrServerClosed {
			cancel(fmt.Errorf("oracle server: %w", err))
		}
	}()

	fmt.Fprintln(stdout, readyLine)

	<-ctx.Done()
	logger.Info("shutdown requested")

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := srv.Close(); err != nil {
		logger.Error("oracle shutdown error", "error", err)
	}

	if cause := context.Cause(ctx); cause != nil && cause != context.Canceled {
		return cause
	}
	return nil
}
