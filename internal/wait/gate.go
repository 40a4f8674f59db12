// Package wait provides a broadcast condition variable built on channels
// instead of sync.Cond, so a blocked waiter can also be released by an
// explicit Interrupt call. This is the mechanical Go stand-in for the
// "ambient thread-interrupt mechanism" the design assumes: Go goroutines
// cannot be interrupted from outside, so cancellation is modeled with a
// context.Context that Interrupt replaces after firing once.
package wait

import (
	"context"
	"sync"
)

// Gate lets one or more goroutines wait for a state change signaled by
// Notify, while allowing a separate goroutine to force every current
// waiter to wake early via Interrupt.
type Gate struct {
	mu     sync.Mutex
	state  chan struct{}
	gen    context.Context
	cancel context.CancelFunc
}

// NewGate returns a ready-to-use Gate.
func NewGate() *Gate {
	ctx, cancel := context.WithCancel(context.Background())
	return &Gate{
		state:  make(chan struct{}),
		gen:    ctx,
		cancel: cancel,
	}
}

// Wait blocks until Notify or Interrupt is called, or ctx is done (ctx may
// be nil to wait without an external deadline). It returns interrupted=true
// when woken by Interrupt rather than Notify, and ctxErr set when woken by
// the caller-supplied ctx.
func (g *Gate) Wait(ctx context.Context) (interrupted bool, ctxErr error) {
	g.mu.Lock()
	ch := g.state
	gen := g.gen
	g.mu.Unlock()
	if ctx == nil {
		select {
		case <-ch:
			return false, nil
		case <-gen.Done():
			return true, nil
		}
	}
	select {
	case <-ch:
		return false, nil
	case <-gen.Done():
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Notify wakes every goroutine currently blocked in Wait. It is safe to
// call Notify with no waiters present; the next Wait call simply observes
// the freshest channel.
func (g *Gate) Notify() {
	g.mu.Lock()
	old := g.state
	g.state = make(chan struct{})
	g.mu.Unlock()
	close(old)
}

// Interrupt wakes every goroutine currently blocked in Wait with
// interrupted=true, then resets so future Wait calls are unaffected by this
// call. Calling Interrupt with no waiters present has no lasting effect.
func (g *Gate) Interrupt() {
	g.mu.Lock()
	cancel := g.cancel
	g.gen, g.cancel = context.WithCancel(context.Background())
	g.mu.Unlock()
	cancel()
}
