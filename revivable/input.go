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

// nextWorkerID hands each InputStream (and so its worker goroutine) a
// distinct id; it is the only package-level mutable state, matching the
// design note that global state is confined to a counter used purely for
// naming.
var nextWorkerID atomic.Uint64

// InputStream wraps an arbitrary blocking io.Reader with kill/revive
// controls and one-shot queued exceptions, reading it on a dedicated
// background worker goroutine so Read can be interrupted or pre-empted by
// injected faults without touching the underlying source.
type InputStream struct {
	src io.Reader
	id  uint64

	mu          sync.Mutex
	killed      bool
	hasKillErr  bool
	killErr     error
	queue       []error
	workerErr   error
	streamEOF   bool
	closed      bool
	shutdown    bool
	decorate    bool
	pendingData []byte

	requestData    bool
	requestedBytes int
	deadline       time.Time

	bytesRead atomic.Uint64

	callerWake *wait.Gate // worker -> caller and control -> caller notifications
	workerWake *wait.Gate // caller -> worker request notifications
}

// NewInputStream wraps src. Decoration of raised errors is enabled by
// default, matching the spec's documented default.
func NewInputStream(src io.Reader) *InputStream {
	s := &InputStream{
		src:        src,
		id:         nextWorkerID.Add(1),
		decorate:   true,
		callerWake: wait.NewGate(),
		workerWake: wait.NewGate(),
	}
	go s.workerLoop()
	return s
}

func (s *InputStream) workerLoop() {
	for {
		s.mu.Lock()
		for !s.requestData && !s.shutdown {
			s.mu.Unlock()
			s.workerWake.Wait(nil)
			s.mu.Lock()
		}
		if s.shutdown {
			s.mu.Unlock()
			return
		}
		n := s.requestedBytes
		s.requestData = false
		s.mu.Unlock()

		buf := make([]byte, n)
		read, err := s.src.Read(buf)

		s.mu.Lock()
		switch {
		case err == io.EOF:
			s.streamEOF = true
		case err != nil:
			s.workerErr = err
		default:
			s.pendingData = buf[:read]
		}
		s.mu.Unlock()
		s.callerWake.Notify()
	}
}

// nextChunk returns up to max bytes of the next chunk of data, applying the
// precedence rules from the design in order: stream EOF, terminal worker
// fault, kill-with-exception, kill, queued exception, pending data; it
// otherwise blocks until one of those becomes true or the caller is
// interrupted.
func (s *InputStream) nextChunk(max int) ([]byte, error) {
	for {
		s.mu.Lock()
		if s.streamEOF {
			s.mu.Unlock()
			return nil, io.EOF
		}
		if s.workerErr != nil {
			e := s.workerErr
			s.mu.Unlock()
			return nil, s.finish(e)
		}
		if s.killed {
			if s.hasKillErr {
				e := s.killErr
				s.mu.Unlock()
				return nil, s.finish(e)
			}
			s.mu.Unlock()
			return nil, io.EOF
		}
		if len(s.queue) > 0 {
			e := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return nil, s.finish(e)
		}
		if s.pendingData != nil {
			n := len(s.pendingData)
			if n > max {
				n = max
			}
			chunk := s.pendingData[:n]
			if n == len(s.pendingData) {
				s.pendingData = nil
			} else {
				s.pendingData = s.pendingData[n:]
			}
			s.mu.Unlock()
			return chunk, nil
		}
		if !s.requestData {
			s.requestedBytes = max
			s.requestData = true
			s.mu.Unlock()
			s.workerWake.Notify()
		} else {
			s.mu.Unlock()
		}

		ctx, cancel := s.deadlineCtx()
		interrupted, ctxErr := s.callerWake.Wait(ctx)
		cancel()
		if ctxErr != nil {
			return nil, os.ErrDeadlineExceeded
		}
		if interrupted {
			return nil, ErrInterrupted
		}
	}
}

// deadlineCtx returns a context that expires at the stream's current read
// deadline, or a nil, no-op context if none is set.
func (s *InputStream) deadlineCtx() (context.Context, context.CancelFunc) {
	s.mu.Lock()
	d := s.deadline
	s.mu.Unlock()
	if d.IsZero() {
		return nil, func() {}
	}
	return context.WithDeadline(context.Background(), d)
}

// SetReadDeadline arranges for any blocked or future Read/ReadByte to fail
// with os.ErrDeadlineExceeded once t passes. A zero Time clears it.
func (s *InputStream) SetReadDeadline(t time.Time) error {
	s.mu.Lock()
	s.deadline = t
	s.mu.Unlock()
	s.callerWake.Notify()
	return nil
}

func (s *InputStream) finish(err error) error {
	s.mu.Lock()
	decorate := s.decorate
	s.mu.Unlock()
	if decorate {
		return asynctest.DecorateError(err)
	}
	return err
}

// Read implements io.Reader; it may return fewer than len(p) bytes.
func (s *InputStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	chunk, err := s.nextChunk(len(p))
	if err != nil {
		return 0, err
	}
	n := copy(p, chunk)
	s.bytesRead.Add(uint64(n))
	return n, nil
}

// ReadByte implements io.ByteReader, the single-byte form of read().
func (s *InputStream) ReadByte() (byte, error) {
	chunk, err := s.nextChunk(1)
	if err != nil {
		return 0, err
	}
	s.bytesRead.Add(1)
	return chunk[0], nil
}

// Available always returns 0: the stream is semantically unbuffered to
// callers, even though a read batch may be sitting in pendingData.
func (s *InputStream) Available() int { return 0 }

// BytesRead returns the total number of bytes successfully delivered to a
// caller so far.
func (s *InputStream) BytesRead() uint64 { return s.bytesRead.Load() }

// Killed reports whether the stream is currently killed (awaiting a
// Revive).
func (s *InputStream) Killed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}

// Kill disables the stream: subsequent reads return io.EOF until Revive is
// called. Already-buffered pendingData is discarded rather than returned.
func (s *InputStream) Kill() { s.killWith(nil, false) }

// KillWithError disables the stream and makes every subsequent read raise
// err until Revive is called. A second KillWithError call replaces the
// sticky error.
func (s *InputStream) KillWithError(err error) { s.killWith(err, true) }

func (s *InputStream) killWith(err error, has bool) {
	s.mu.Lock()
	s.killed = true
	s.killErr = err
	s.hasKillErr = has
	s.pendingData = nil
	s.mu.Unlock()
	s.callerWake.Notify()
}

// Revive (alias Resurrect) clears kill state; subsequent reads resume
// pulling from the underlying source.
func (s *InputStream) Revive() {
	s.mu.Lock()
	s.killed = false
	s.hasKillErr = false
	s.killErr = nil
	s.mu.Unlock()
	s.callerWake.Notify()
}

// Resurrect is an alias for Revive.
func (s *InputStream) Resurrect() { s.Revive() }

// QueueReadException appends a one-shot error that the next
// otherwise-successful read raises and consumes. Kill state pre-empts
// queued exceptions.
func (s *InputStream) QueueReadException(err error) {
	s.mu.Lock()
	s.queue = append(s.queue, err)
	s.mu.Unlock()
	s.callerWake.Notify()
}

// SetDecorateExceptions toggles whether raised errors are wrapped with the
// caller's current stack (default true).
func (s *InputStream) SetDecorateExceptions(enabled bool) {
	s.mu.Lock()
	s.decorate = enabled
	s.mu.Unlock()
}

// Interrupt aborts a currently blocked Read/ReadByte with ErrInterrupted.
func (s *InputStream) Interrupt() { s.callerWake.Interrupt() }

// Close closes the underlying source (if it implements io.Closer), which
// releases both the background worker and any blocked Read.
func (s *InputStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.shutdown = true
	s.streamEOF = true
	s.mu.Unlock()

	s.workerWake.Notify()

	var err error
	if c, ok := s.src.(io.Closer); ok {
		err = c.Close()
	}
	s.callerWake.Notify()
	return err
}
