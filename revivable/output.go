package revivable

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"revivio/asynctest"
	"revivio/internal/wait"
)

// Control markers pushed through transferQueue alongside normal bytes
// (0..255). They live outside the byte range so the worker can tell a
// control item from real data without a tagged union.
const (
	valueFlush = -1
	valueExit  = -2
)

// flushSlot is the single-slot signal flushResponses describes: it holds at
// most one pending value (a success marker, a stateChanged marker, or an
// error) and lets a caller block for the next one while being
// independently interruptible.
type flushSlot struct {
	mu    sync.Mutex
	value any
	gate  *wait.Gate
}

type flushSuccess struct{}
type flushStateChanged struct{}

func newFlushSlot() *flushSlot { return &flushSlot{gate: wait.NewGate()} }

func (f *flushSlot) set(v any) {
	f.mu.Lock()
	f.value = v
	f.mu.Unlock()
	f.gate.Notify()
}

func (f *flushSlot) drain() {
	f.mu.Lock()
	f.value = nil
	f.mu.Unlock()
}

func (f *flushSlot) take(ctx context.Context) (any, error) {
	for {
		f.mu.Lock()
		v := f.value
		f.value = nil
		f.mu.Unlock()
		if v != nil {
			return v, nil
		}
		interrupted, ctxErr := f.gate.Wait(ctx)
		if ctxErr != nil {
			return nil, ctxErr
		}
		if interrupted {
			return nil, ErrInterrupted
		}
	}
}

func (f *flushSlot) interrupt() { f.gate.Interrupt() }

// poke wakes any pending take without delivering a value, so it re-checks
// whatever condition (e.g. a deadline) changed.
func (f *flushSlot) poke() { f.gate.Notify() }

// OutputStream wraps an arbitrary blocking io.Writer, batching writes onto
// a dedicated background worker goroutine so Write can return as soon as a
// byte is accepted into the transfer queue rather than once it has reached
// the underlying sink, while still giving Flush a hard guarantee of
// delivery.
type OutputStream struct {
	dst        io.Writer
	bufferSize int

	mu         sync.Mutex
	killed     bool
	hasKillErr bool
	killErr    error
	queue      []error
	transferErr error
	closed     bool
	decorate   bool
	deadline   time.Time

	bytesWritten atomic.Uint64

	transferQueue chan int
	availability  *wait.Gate
	flushResp     *flushSlot

	workerDoneCtx    context.Context
	workerDoneCancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// NewOutputStream wraps dst, batching up to bufferSize bytes per
// underlying write. Decoration of raised errors is enabled by default.
func NewOutputStream(dst io.Writer, bufferSize int) *OutputStream {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &OutputStream{
		dst:              dst,
		bufferSize:       bufferSize,
		decorate:         true,
		transferQueue:    make(chan int, bufferSize),
		availability:     wait.NewGate(),
		flushResp:        newFlushSlot(),
		workerDoneCtx:    ctx,
		workerDoneCancel: cancel,
	}
	go s.workerLoop()
	return s
}

func (s *OutputStream) finish(err error) error {
	s.mu.Lock()
	decorate := s.decorate
	s.mu.Unlock()
	if decorate {
		return asynctest.DecorateError(err)
	}
	return err
}

// precedenceCheck evaluates the fault-injection state in priority order
// (closed, terminal worker fault, kill-with-exception, kill, queued
// exception) and returns the first applicable error, or nil if the stream
// is currently healthy. Popping an exceptionQueue entry here consumes it.
func (s *OutputStream) precedenceCheck() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	if s.transferErr != nil {
		e := s.transferErr
		s.mu.Unlock()
		return s.finish(e)
	}
	if s.killed {
		if s.hasKillErr {
			e := s.killErr
			s.mu.Unlock()
			return s.finish(e)
		}
		s.mu.Unlock()
		return ErrStreamKilled
	}
	if len(s.queue) > 0 {
		e := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		return s.finish(e)
	}
	s.mu.Unlock()
	return nil
}

// submit enqueues item (a byte 0..255 or a control marker), applying
// precedence rules before attempting a non-blocking enqueue, then blocking
// on the availability signal and retrying on contention.
func (s *OutputStream) submit(item int) error {
	defer s.availability.Notify()
	for {
		if err := s.precedenceCheck(); err != nil {
			return err
		}

		select {
		case s.transferQueue <- item:
			return nil
		default:
		}

		ctx, cancel := s.deadlineCtx()
		interrupted, ctxErr := s.availability.Wait(ctx)
		cancel()
		if ctxErr != nil {
			return os.ErrDeadlineExceeded
		}
		if interrupted {
			return ErrInterrupted
		}
	}
}

// deadlineCtx returns a context that expires at the stream's current
// write deadline, or a nil, no-op context if none is set.
func (s *OutputStream) deadlineCtx() (context.Context, context.CancelFunc) {
	s.mu.Lock()
	d := s.deadline
	s.mu.Unlock()
	if d.IsZero() {
		return nil, func() {}
	}
	return context.WithDeadline(context.Background(), d)
}

// SetWriteDeadline arranges for any blocked or future Write/Flush to fail
// with os.ErrDeadlineExceeded once t passes. A zero Time clears it.
func (s *OutputStream) SetWriteDeadline(t time.Time) error {
	s.mu.Lock()
	s.deadline = t
	s.mu.Unlock()
	s.availability.Notify()
	s.flushResp.poke()
	return nil
}

// Write implements io.Writer, submitting bytes one at a time so ordering
// and backpressure match the transfer queue exactly.
func (s *OutputStream) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := s.submit(int(b)); err != nil {
			return i, err
		}
		s.bytesWritten.Add(1)
	}
	return len(p), nil
}

// WriteByte submits a single byte, blocking only while the transfer queue
// is full.
func (s *OutputStream) WriteByte(b byte) error {
	if err := s.submit(int(b)); err != nil {
		return err
	}
	s.bytesWritten.Add(1)
	return nil
}

// BytesWritten returns the total number of bytes successfully accepted
// from a caller so far (queued for delivery, not necessarily flushed).
func (s *OutputStream) BytesWritten() uint64 { return s.bytesWritten.Load() }

// Flush guarantees every byte accepted by a prior Write has reached the
// underlying sink and that the sink's own Flush (if any) has run, before
// returning.
func (s *OutputStream) Flush() error {
	s.flushResp.drain()
	if err := s.submit(valueFlush); err != nil {
		return err
	}
	for {
		if err := s.precedenceCheck(); err != nil {
			return err
		}
		ctx, cancel := s.deadlineCtx()
		v, err := s.flushResp.take(ctx)
		cancel()
		if err == ErrInterrupted {
			return ErrInterrupted
		}
		if err != nil {
			return os.ErrDeadlineExceeded
		}
		switch r := v.(type) {
		case error:
			return s.finish(r)
		case flushStateChanged:
			continue
		case flushSuccess:
			if f, ok := s.dst.(interface{ Flush() error }); ok {
				return f.Flush()
			}
			return nil
		}
	}
}

// Kill disables the stream: a subsequent Write with no kill error set
// raises ErrStreamKilled until Revive is called.
func (s *OutputStream) Kill() { s.killWith(nil, false) }

// Killed reports whether the stream is currently killed (awaiting a
// Revive).
func (s *OutputStream) Killed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}

// KillWithError disables the stream so every subsequent Write/Flush raises
// err until Revive is called.
func (s *OutputStream) KillWithError(err error) { s.killWith(err, true) }

func (s *OutputStream) killWith(err error, has bool) {
	s.mu.Lock()
	s.killed = true
	s.killErr = err
	s.hasKillErr = has
	s.mu.Unlock()
	s.availability.Notify()
	s.flushResp.set(flushStateChanged{})
}

// Revive (alias Resurrect) clears kill state.
func (s *OutputStream) Revive() {
	s.mu.Lock()
	s.killed = false
	s.hasKillErr = false
	s.killErr = nil
	s.mu.Unlock()
	s.availability.Notify()
	s.flushResp.set(flushStateChanged{})
}

// Resurrect is an alias for Revive.
func (s *OutputStream) Resurrect() { s.Revive() }

// QueueWriteException appends a one-shot error that the next
// otherwise-successful write raises and consumes.
func (s *OutputStream) QueueWriteException(err error) {
	s.mu.Lock()
	s.queue = append(s.queue, err)
	s.mu.Unlock()
	s.availability.Notify()
	s.flushResp.set(flushStateChanged{})
}

// SetDecorateExceptions toggles whether raised errors are wrapped with the
// caller's current stack (default true).
func (s *OutputStream) SetDecorateExceptions(enabled bool) {
	s.mu.Lock()
	s.decorate = enabled
	s.mu.Unlock()
}

// Interrupt aborts a currently blocked Write or Flush with ErrInterrupted.
func (s *OutputStream) Interrupt() {
	s.availability.Interrupt()
	s.flushResp.interrupt()
}

// Close flushes all previously accepted bytes, stops the worker, and
// closes the underlying sink. Idempotent; after Close, Write and Flush
// both fail with ErrStreamClosed. Concurrent callers all observe the
// result of the single underlying close.
func (s *OutputStream) Close() error {
	s.closeOnce.Do(func() {
		flushErr := s.Flush()

		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.sendControlBestEffort(valueExit)
		<-s.workerDoneCtx.Done()

		var closeErr error
		if c, ok := s.dst.(io.Closer); ok {
			closeErr = c.Close()
		}
		if flushErr != nil {
			s.closeErr = flushErr
		} else {
			s.closeErr = closeErr
		}
	})
	return s.closeErr
}

// sendControlBestEffort delivers a control marker to the worker without
// going through precedenceCheck: shutdown must succeed even on a killed or
// faulted stream. It gives up once the worker has already terminated.
func (s *OutputStream) sendControlBestEffort(item int) {
	for {
		select {
		case s.transferQueue <- item:
			return
		default:
		}
		if s.workerDoneCtx.Err() != nil {
			return
		}
		_, ctxErr := s.availability.Wait(s.workerDoneCtx)
		if ctxErr != nil {
			return
		}
	}
}

func (s *OutputStream) workerLoop() {
	defer s.workerDoneCancel()

	batch := make([]byte, 0, s.bufferSize)
	flushBatch := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := s.dst.Write(batch)
		batch = batch[:0]
		return err
	}
	fail := func(err error) {
		s.mu.Lock()
		s.transferErr = err
		s.mu.Unlock()
		s.flushResp.set(err)
		s.availability.Notify()
	}

	for {
		s.availability.Notify()

		item := <-s.transferQueue
		s.availability.Notify()
		if item == valueFlush || item == valueExit {
			if err := flushBatch(); err != nil {
				fail(err)
				return
			}
			if item == valueFlush {
				s.flushResp.set(flushSuccess{})
			} else {
				return
			}
		} else {
			batch = append(batch, byte(item))
			if len(batch) >= s.bufferSize {
				if err := flushBatch(); err != nil {
					fail(err)
					return
				}
			}
		}

	drain:
		for {
			select {
			case item := <-s.transferQueue:
				s.availability.Notify()
				if item == valueFlush || item == valueExit {
					if err := flushBatch(); err != nil {
						fail(err)
						return
					}
					if item == valueFlush {
						s.flushResp.set(flushSuccess{})
						continue drain
					}
					return
				}
				batch = append(batch, byte(item))
				if len(batch) >= s.bufferSize {
					if err := flushBatch(); err != nil {
						fail(err)
						return
					}
				}
			default:
				if err := flushBatch(); err != nil {
					fail(err)
					return
				}
				break drain
			}
		}
	}
}
