// Package session holds the reload and quit conditions of a viewer session.
//
// Both conditions are single-slot, edge-triggered flags. Any number of
// goroutines (signal handlers, watcher callbacks, HTTP handlers) may Set
// them; only the viewer's poll loop calls TestAndClear. A flag is either
// pending or not, so repeated sets before a poll collapse into one.
package session

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// Trigger is a coalescing one-shot flag.
type Trigger struct {
	pending atomic.Bool
}

// Set marks the trigger as pending. Setting an already pending trigger is a no-op.
func (t *Trigger) Set() {
	t.pending.Store(true)
}

// TestAndClear reports whether the trigger was pending and clears it.
func (t *Trigger) TestAndClear() bool {
	return t.pending.CompareAndSwap(true, false)
}

// Pending reports whether the trigger is set without consuming it.
func (t *Trigger) Pending() bool {
	return t.pending.Load()
}

// Session owns the two conditions a viewer reacts to.
type Session struct {
	Reload Trigger
	Quit   Trigger
}

// New returns a session with both conditions cleared.
func New() *Session {
	return &Session{}
}

// Dispatch maps an OS signal onto a condition. It returns false for signals
// the viewer does not react to.
func (s *Session) Dispatch(sig os.Signal) bool {
	switch sig {
	case syscall.SIGHUP:
		s.Reload.Set()
	case os.Interrupt, syscall.SIGTERM:
		s.Quit.Set()
	default:
		return false
	}
	return true
}

// Notify installs handlers for SIGINT, SIGTERM and SIGHUP and feeds them into
// the session until ctx is done. The returned function uninstalls the
// handlers and waits for the dispatch goroutine to exit.
func (s *Session) Notify(ctx context.Context, logger *slog.Logger) (stop func()) {
	sigs := make(chan os.Signal, 4)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigs:
				if s.Dispatch(sig) {
					logger.Debug("signal received", slog.String("signal", sig.String()))
				}
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		cancel()
		<-done
	}
}
