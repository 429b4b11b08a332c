// Package oracle serves simulation runs over the oracle wire protocol.
//
// A run borrows a Workspace from a Pool, replays the request's setup
// commands, ticks the simulation while the stop-condition reporter is
// non-zero and answers with the end report or the recorded observation
// stream. Workspaces that survive a run go back to the pool; a workspace
// that failed is closed and dropped.
package oracle

import (
	"errors"
	"sync"

	"github.com/GoSim-25-26J-441/simtune/pkg/logger"
)

// Workspace is one loaded simulation model.
type Workspace interface {
	Command(cmd string) error
	Report(reporter string) (float64, error)
	Close() error
}

// Factory creates a workspace with the model opened.
type Factory func() (Workspace, error)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("workspace pool closed")

// Pool hands out idle workspaces and creates new ones on demand.
type Pool struct {
	factory Factory

	mu      sync.Mutex
	idle    []Workspace
	created int
	closed  bool
}

// NewPool creates an empty pool.
func NewPool(factory Factory) *Pool {
	return &Pool{factory: factory}
}

// Acquire returns an idle workspace or creates one.
func (p *Pool) Acquire() (Workspace, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		ws := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return ws, nil
	}
	p.created++
	created := p.created
	p.mu.Unlock()

	logger.Debug("creating workspace", "workspaces", created)
	ws, err := p.factory()
	if err != nil {
		p.mu.Lock()
		p.created--
		p.mu.Unlock()
		return nil, err
	}
	return ws, nil
}

// Release returns a healthy workspace for reuse.
func (p *Pool) Release(ws Workspace) {
	p.mu.Lock()
	if !p.closed {
		p.idle = append(p.idle, ws)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	closeWorkspace(ws)
}

// Discard closes a workspace that failed and forgets it.
func (p *Pool) Discard(ws Workspace) {
	p.mu.Lock()
	p.created--
	p.mu.Unlock()
	closeWorkspace(ws)
}

// Stats reports how many workspaces exist and how many are idle.
func (p *Pool) Stats() (created, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created, len(p.idle)
}

// Close closes every idle workspace. Workspaces still in use are closed
// when released.
func (p *Pool) Close() error {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for _, ws := range idle {
		if err := ws.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closeWorkspace(ws Workspace) {
	if err := ws.Close(); err != nil {
		logger.Warn("closing workspace failed", "error", err)
	}
}
