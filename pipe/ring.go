// Package pipe implements the killable byte pipe: a bounded, in-memory
// FIFO byte channel shared by exactly one producer and one consumer,
// wrapped on both ends by a revivable.InputStream / revivable.OutputStream
// so tests can kill, revive, and queue faults on either direction
// independently.
package pipe

import (
	"context"
	"errors"
	"io"
	"sync"

	"revivio/internal/wait"
)

// ErrInterrupted is returned by a raw end's Read/Write when Interrupt is
// called while the call is blocked.
var ErrInterrupted = errors.New("pipe: interrupted")

// ring is a fixed-capacity circular byte buffer safe for exactly one
// reading goroutine and one writing goroutine.
type ring struct {
	mu     sync.Mutex
	buf    []byte
	start  int // index of the oldest byte
	count  int // number of valid bytes starting at start
	closed bool

	dataReady  *wait.Gate // signaled when count increases or closed
	spaceReady *wait.Gate // signaled when count decreases or closed
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring{
		buf:        make([]byte, capacity),
		dataReady:  wait.NewGate(),
		spaceReady: wait.NewGate(),
	}
}

func (r *ring) read(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		r.mu.Lock()
		if r.count > 0 {
			n := r.drain(p)
			r.mu.Unlock()
			r.spaceReady.Notify()
			return n, nil
		}
		if r.closed {
			r.mu.Unlock()
			return 0, io.EOF
		}
		r.mu.Unlock()

		interrupted, ctxErr := r.dataReady.Wait(ctx)
		if ctxErr != nil {
			return 0, ctxErr
		}
		if interrupted {
			return 0, ErrInterrupted
		}
	}
}

// drain must be called with r.mu held; it copies as much of p as available
// and advances the ring, returning the number of bytes copied.
func (r *ring) drain(p []byte) int {
	n := len(p)
	if n > r.count {
		n = r.count
	}
	for i := 0; i < n; i++ {
		p[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	r.start = (r.start + n) % len(r.buf)
	r.count -= n
	return n
}

func (r *ring) write(ctx context.Context, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return total, io.ErrClosedPipe
		}
		free := len(r.buf) - r.count
		if free > 0 {
			n := len(p) - total
			if n > free {
				n = free
			}
			end := (r.start + r.count) % len(r.buf)
			for i := 0; i < n; i++ {
				r.buf[(end+i)%len(r.buf)] = p[total+i]
			}
			r.count += n
			total += n
			r.mu.Unlock()
			r.dataReady.Notify()
			continue
		}
		r.mu.Unlock()

		interrupted, ctxErr := r.spaceReady.Wait(ctx)
		if ctxErr != nil {
			return total, ctxErr
		}
		if interrupted {
			return total, ErrInterrupted
		}
	}
	return total, nil
}

func (r *ring) close() {
	r.mu.Lock()
	already := r.closed
	r.closed = true
	r.mu.Unlock()
	if already {
		return
	}
	r.dataReady.Notify()
	r.spaceReady.Notify()
}

// rawReadEnd is the blocking io.Reader the revivable input stream's worker
// reads from; it is also independently interruptible and closable so the
// pipe component can be exercised and tested on its own.
type rawReadEnd struct {
	r *ring
}

func (e *rawReadEnd) Read(p []byte) (int, error) { return e.r.read(context.Background(), p) }

// Interrupt aborts a currently blocked Read with ErrInterrupted.
func (e *rawReadEnd) Interrupt() { e.r.dataReady.Interrupt() }

func (e *rawReadEnd) Close() error {
	e.r.close()
	return nil
}

// rawWriteEnd is the blocking io.Writer the revivable output stream's
// worker writes to.
type rawWriteEnd struct {
	r *ring
}

func (e *rawWriteEnd) Write(p []byte) (int, error) { return e.r.write(context.Background(), p) }

// Interrupt aborts a currently blocked Write with ErrInterrupted.
func (e *rawWriteEnd) Interrupt() { e.r.spaceReady.Interrupt() }

func (e *rawWriteEnd) Close() error {
	e.r.close()
	return nil
}
