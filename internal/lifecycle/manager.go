// Package lifecycle brings the oracle up before a search and tears it down
// afterwards.
//
// The oracle body (an Entrypoint) receives two one-shot signals. It fires
// ready once its endpoint accepts connections and returns after it observes
// stop. The Manager blocks the driver until ready and fires stop exactly once
// when the driver is done, whatever the outcome of the search.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/simtune/pkg/logger"
)

// Entrypoint runs the oracle until stop fires.
type Entrypoint func(ctx context.Context, ready, stop *Signal) error

var (
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("lifecycle: already started")
	// ErrNotStarted is returned by Stop before a successful Start.
	ErrNotStarted = errors.New("lifecycle: not started")
	// ErrExitedBeforeReady is returned when the entrypoint returns without
	// firing ready.
	ErrExitedBeforeReady = errors.New("lifecycle: oracle exited before it was ready")
)

// Manager owns one oracle entrypoint.
type Manager struct {
	entry Entrypoint
	ready *Signal
	stop  *Signal
	log   *slog.Logger

	readyTimeout time.Duration

	mu      sync.Mutex
	started bool
	done    chan struct{}
	err     error
}

// NewManager creates a manager for entry.
func NewManager(entry Entrypoint) *Manager {
	return &Manager{
		entry: entry,
		ready: NewSignal(),
		stop:  NewSignal(),
		log:   logger.Component("lifecycle"),
		done:  make(chan struct{}),
	}
}

// WithReadyTimeout bounds how long Start waits for ready. Zero waits until
// the Start context ends.
func (m *Manager) WithReadyTimeout(d time.Duration) *Manager {
	m.readyTimeout = d
	return m
}

// Ready exposes the ready signal.
func (m *Manager) Ready() *Signal { return m.ready }

// Stopped exposes the stop signal.
func (m *Manager) Stopped() *Signal { return m.stop }

// Start launches the entrypoint and blocks until it is ready. If the
// entrypoint exits first, or ctx ends, Start cleans up and returns an error.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	// the oracle's lifetime is governed by the stop signal only
	entryCtx := context.WithoutCancel(ctx)
	waitCtx := ctx
	if m.readyTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, m.readyTimeout)
		defer cancel()
	}

	m.log.Info("starting oracle")
	go func() {
		defer close(m.done)
		m.err = m.entry(entryCtx, m.ready, m.stop)
	}()

	select {
	case <-m.ready.Done():
		m.log.Info("oracle ready")
		return nil
	case <-m.done:
		if m.ready.Notified() {
			return nil
		}
		if m.err != nil {
			return fmt.Errorf("%w: %w", ErrExitedBeforeReady, m.err)
		}
		return ErrExitedBeforeReady
	case <-waitCtx.Done():
		m.stop.Notify()
		<-m.done
		if ctx.Err() == nil {
			return fmt.Errorf("oracle not ready after %s: %w", m.readyTimeout, waitCtx.Err())
		}
		return ctx.Err()
	}
}

// Stop fires the stop signal and waits for the entrypoint to return. It is
// safe to call more than once; the signal fires once.
func (m *Manager) Stop() error {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	if !m.stop.Notified() {
		m.log.Info("stopping oracle")
	}
	m.stop.Notify()
	<-m.done
	return m.err
}

// Run starts the oracle, runs body and stops the oracle. Stop runs on every
// path once Start has succeeded, including a panicking body. The body's
// error takes precedence over the stop error.
func (m *Manager) Run(ctx context.Context, body func(ctx context.Context) error) (err error) {
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer func() {
		r := recover()
		if stopErr := m.Stop(); stopErr != nil {
			if err == nil && r == nil {
				err = fmt.Errorf("stopping oracle: %w", stopErr)
			} else {
				m.log.Warn("oracle stopped with error", "error", stopErr)
			}
		}
		if r != nil {
			panic(r)
		}
	}()
	return body(ctx)
}
