package test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/fx"
)

// LifecycleRecorder is an fx.Lifecycle whose hooks the test runs by hand.
type LifecycleRecorder struct {
	Hooks []fx.Hook
}

// Append keeps h for Start and Stop.
func (l *LifecycleRecorder) Append(h fx.Hook) {
	l.Hooks = append(l.Hooks, h)
}

// Start runs OnStart hooks in registration order and stops at the first error.
func (l *LifecycleRecorder) Start(ctx context.Context) error {
	for i, h := range l.Hooks {
		if h.OnStart == nil {
			continue
		}
		if err := h.OnStart(ctx); err != nil {
			return fmt.Errorf("start hook %d: %w", i, err)
		}
	}
	return nil
}

// Stop runs OnStop hooks in reverse order, like fx does, and joins the errors.
func (l *LifecycleRecorder) Stop(ctx context.Context) error {
	var errs []error
	for i := len(l.Hooks) - 1; i >= 0; i-- {
		if l.Hooks[i].OnStop == nil {
			continue
		}
		if err := l.Hooks[i].OnStop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop hook %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// ShutdownerStub is an fx.Shutdowner that counts requests and signals Called
// without blocking.
type ShutdownerStub struct {
	Called chan struct{}
	calls  atomic.Int32
}

// Shutdown records the request.
func (s *ShutdownerStub) Shutdown(...fx.ShutdownOption) error {
	s.calls.Add(1)
	if s.Called != nil {
		select {
		case s.Called <- struct{}{}:
		default:
		}
	}
	return nil
}

// Calls reports how many shutdowns were requested.
func (s *ShutdownerStub) Calls() int {
	return int(s.calls.Load())
}
