// Package asynctest is the generic test-utility collaborator assumed
// available by the core (spec section "External Interfaces"): bounded
// execution of a body, an async task runner with a retrievable result, and
// an error-decoration helper. None of it is specific to streams or
// sockets; revivable depends on it (for DecorateError) the same way the
// teacher's routing code depends on golang.org/x/sync/errgroup for
// structured goroutine lifetimes.
package asynctest

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeLimitExceeded is returned by RunWithTimeLimit when body does not
// return within the given duration.
var ErrTimeLimitExceeded = errors.New("asynctest: time limit exceeded")

// RunWithTimeLimit executes body on its own goroutine and waits up to d for
// it to finish. If d elapses first, it returns ErrTimeLimitExceeded; body
// keeps running in the background (Go has no way to force-stop a goroutine
// that isn't honoring ctx, matching the spec's assumption that this
// collaborator only bounds the caller's wait, not body's lifetime).
func RunWithTimeLimit(ctx context.Context, d time.Duration, body func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- body()
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrTimeLimitExceeded
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AsyncHandle is returned by RunAsynchronously; it stands in for the
// collaborator's handle to a background worker thread.
type AsyncHandle struct {
	done chan struct{}
	val  any
	err  error
}

// RunAsynchronously starts body on a new goroutine and returns immediately.
func RunAsynchronously(body func() (any, error)) *AsyncHandle {
	h := &AsyncHandle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.val, h.err = body()
	}()
	return h
}

// ErrAsyncTimeout is returned by GetResult when body has not finished
// within the requested duration.
var ErrAsyncTimeout = errors.New("asynctest: async result not ready")

// GetResult blocks up to d for body to finish, re-raising its error
// (wrapped, mirroring an execution-error wrapper) or returning its value.
func (h *AsyncHandle) GetResult(d time.Duration) (any, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-h.done:
		if h.err != nil {
			return nil, fmt.Errorf("asynctest: async body failed: %w", h.err)
		}
		return h.val, nil
	case <-timer.C:
		return nil, ErrAsyncTimeout
	}
}

// Done exposes the worker's completion signal. Go goroutines cannot be
// interrupted from outside the way a Thread can, so this is the
// cooperative stand-in for "expose the worker thread for interruption":
// callers select on it to learn the body has returned.
func (h *AsyncHandle) Done() <-chan struct{} {
	return h.done
}
