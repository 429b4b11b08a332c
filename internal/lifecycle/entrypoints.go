package lifecycle

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/GoSim-25-26J-441/simtune/internal/oracle"
	"github.com/GoSim-25-26J-441/simtune/pkg/logger"
	"github.com/GoSim-25-26J-441/simtune/pkg/utils"
	"google.golang.org/grpc"
)

// Service serves connections on a listener until closed.
type Service interface {
	Serve(ln net.Listener) error
	Close() error
}

type grpcService struct {
	srv *grpc.Server
}

func (g grpcService) Serve(ln net.Listener) error { return g.srv.Serve(ln) }

func (g grpcService) Close() error {
	g.srv.GracefulStop()
	return nil
}

// GRPCService adapts a gRPC server to Service.
func GRPCService(srv *grpc.Server) Service {
	return grpcService{srv: srv}
}

// ServerEntrypoint runs svc in-process on addr.
func ServerEntrypoint(svc Service, addr string) Entrypoint {
	return func(ctx context.Context, ready, stop *Signal) error {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		return ListenerEntrypoint(svc, ln)(ctx, ready, stop)
	}
}

// ListenerEntrypoint runs svc on an already bound listener. Ready fires
// immediately since the endpoint is open.
func ListenerEntrypoint(svc Service, ln net.Listener) Entrypoint {
	return func(ctx context.Context, ready, stop *Signal) error {
		served := make(chan error, 1)
		go func() { served <- svc.Serve(ln) }()
		ready.Notify()

		select {
		case <-stop.Done():
			closeErr := svc.Close()
			if err := serveResult(<-served); err != nil {
				return err
			}
			return closeErr
		case err := <-served:
			if err = serveResult(err); err == nil {
				err = errors.New("oracle stopped serving before stop was requested")
			}
			return err
		}
	}
}

func serveResult(err error) error {
	if err == nil || errors.Is(err, oracle.ErrServerClosed) || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// InlineEntrypoint is used when the oracle lives in the driver's process and
// needs no endpoint. It is ready at once and runs cleanup on stop.
func InlineEntrypoint(cleanup func() error) Entrypoint {
	return func(ctx context.Context, ready, stop *Signal) error {
		ready.Notify()
		<-stop.Done()
		if cleanup == nil {
			return nil
		}
		return cleanup()
	}
}

// DefaultKillDelay bounds how long ExecEntrypoint waits after the interrupt.
const DefaultKillDelay = 10 * time.Second

// ExecEntrypoint spawns argv and treats the first stdout line containing
// readyLine as the ready notification. On stop the process is interrupted and
// waited for, and killed if it has not exited after DefaultKillDelay.
func ExecEntrypoint(argv []string, readyLine string) Entrypoint {
	return func(ctx context.Context, ready, stop *Signal) error {
		if len(argv) == 0 {
			return errors.New("oracle command is empty")
		}
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Stderr = os.Stderr
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return err
		}
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("failed to start oracle: %w", err)
		}
		log := logger.Component("oracle").With("pid", cmd.Process.Pid)

		scanned := make(chan struct{})
		go func() {
			defer close(scanned)
			scanOutput(stdout, readyLine, ready, log.Debug)
		}()
		exited := make(chan error, 1)
		go func() {
			// Wait must not run before the pipe is drained
			<-scanned
			exited <- cmd.Wait()
		}()

		select {
		case <-stop.Done():
		case err := <-exited:
			if err == nil {
				err = errors.New("oracle process exited")
			}
			return err
		}

		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			cmd.Process.Kill()
		}
		select {
		case err := <-exited:
			return ignoreInterrupt(err)
		case <-time.After(DefaultKillDelay):
			cmd.Process.Kill()
			<-exited
			return fmt.Errorf("oracle did not exit within %s and was killed", DefaultKillDelay)
		}
	}
}

func scanOutput(r io.Reader, readyLine string, ready *Signal, logf func(string, ...any)) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		logf("oracle output", "line", line)
		if !ready.Notified() && strings.Contains(line, readyLine) {
			ready.Notify()
		}
	}
}

func ignoreInterrupt(err error) error {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() && ws.Signal() == syscall.SIGINT {
			return nil
		}
	}
	return err
}

// ExternalEntrypoint waits for an oracle managed elsewhere to accept
// connections on addr. Stop does not shut it down.
func ExternalEntrypoint(addr string, backoff utils.BackoffStrategy, maxAttempts int) Entrypoint {
	return func(ctx context.Context, ready, stop *Signal) error {
		var lastErr error
		for attempt := 0; maxAttempts <= 0 || attempt < maxAttempts; attempt++ {
			conn, err := net.DialTimeout("tcp", addr, time.Second)
			if err == nil {
				conn.Close()
				ready.Notify()
				<-stop.Done()
				return nil
			}
			lastErr = err
			logger.Debug("oracle not reachable yet", "addr", addr, "attempt", attempt, "error", err)

			select {
			case <-stop.Done():
				return nil
			case <-time.After(backoff.NextDelay(attempt)):
			}
		}
		return fmt.Errorf("oracle at %s unreachable after %d attempts: %w", addr, maxAttempts, lastErr)
	}
}
