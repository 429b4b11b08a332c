package lifecycle

import (
	"context"
	"sync"
)

// Signal is a one-shot notification. Notify may be called any number of
// times from any goroutine; only the first call has an effect.
type Signal struct {
	once sync.Once
	ch   chan struct{}
}

// NewSignal creates an unnotified signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Notify fires the signal.
func (s *Signal) Notify() {
	s.once.Do(func() { close(s.ch) })
}

// Done is closed once the signal fires.
func (s *Signal) Done() <-chan struct{} {
	return s.ch
}

// Notified reports whether the signal has fired.
func (s *Signal) Notified() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Wait blocks until the signal fires or ctx ends.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
