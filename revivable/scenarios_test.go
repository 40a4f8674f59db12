package revivable

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

// TestScenarioQueueExceptionThenRead mirrors the spec example: source
// bytes [1,2,3], a queued exception fires on the first read and is
// consumed, the next read returns the first real byte.
func TestScenarioQueueExceptionThenRead(t *testing.T) {
	s := NewInputStream(bytes.NewReader([]byte{1, 2, 3}))
	defer s.Close()

	boom := errors.New("intentional")
	s.QueueReadException(boom)

	if _, err := s.ReadByte(); !errors.Is(err, boom) {
		t.Fatalf("first read: got %v, want %v", err, boom)
	}
	b, err := s.ReadByte()
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if b != 1 {
		t.Fatalf("got %d, want 1", b)
	}
}

// TestScenarioKillOverridesQueued mirrors the spec example: a queued
// exception plus an unconditional kill. Every read while killed returns
// io.EOF (Go's read(-1) equivalent), regardless of the queued exception.
// After revive, the queued exception fires exactly once, then normal
// reads resume.
func TestScenarioKillOverridesQueued(t *testing.T) {
	s := NewInputStream(bytes.NewReader([]byte{1, 2, 3}))
	defer s.Close()

	queued := errors.New("x")
	s.QueueReadException(queued)
	s.Kill()

	for i := 0; i < 5; i++ {
		if _, err := s.ReadByte(); err != io.EOF {
			t.Fatalf("killed read %d: got %v, want io.EOF", i, err)
		}
	}

	s.Revive()

	if _, err := s.ReadByte(); !errors.Is(err, queued) {
		t.Fatalf("post-revive read: got %v, want %v", err, queued)
	}
	b, err := s.ReadByte()
	if err != nil {
		t.Fatalf("subsequent read: %v", err)
	}
	if b != 1 {
		t.Fatalf("got %d, want 1", b)
	}
}

// TestScenarioAsyncKillDuringBlockedRead mirrors the spec example: an
// empty pipe, a background goroutine that kills the read end after a
// delay, and a caller blocked in Read observing EOF only once that kill
// takes effect.
func TestScenarioAsyncKillDuringBlockedRead(t *testing.T) {
	pr, pw := io.Pipe()
	read := NewInputStream(pr)
	defer pw.Close()
	defer read.Close()

	const delay = 300 * time.Millisecond
	go func() {
		time.Sleep(delay)
		read.Kill()
	}()

	start := time.Now()
	_, err := read.Read(make([]byte, 1))
	elapsed := time.Since(start)

	if err != io.EOF {
		t.Fatalf("got %v, want io.EOF", err)
	}
	if elapsed < delay/3 || elapsed > delay*3 {
		t.Fatalf("kill took effect after %v, want roughly %v", elapsed, delay)
	}
}

// TestScenarioFlushStuckThenFail mirrors the spec example: a writer is
// stuck because the underlying sink has stalled, and a kill-with-error is
// injected on the write stream while it is stuck. The sink stalls from its
// first write, so with a 4-byte buffer the 23-byte Write itself backs up
// before Flush is reached; the injected error must be raised by whichever
// of Write or Flush the writer is blocked in.
func TestScenarioFlushStuckThenFail(t *testing.T) {
	sw := newSlowWriter()
	sw.blocked = true
	s := NewOutputStream(sw, 4)
	defer func() {
		sw.release()
		s.Close()
	}()

	data := make([]byte, 23)
	for i := range data {
		data[i] = byte(i)
	}

	flushErr := make(chan error, 1)
	go func() {
		if _, err := s.Write(data); err != nil {
			flushErr <- err
			return
		}
		flushErr <- s.Flush()
	}()

	select {
	case err := <-flushErr:
		t.Fatalf("write/flush returned early with %v while the sink was still stalled", err)
	case <-time.After(100 * time.Millisecond):
	}

	boom := errors.New("intentional")
	s.KillWithError(boom)

	select {
	case err := <-flushErr:
		if !errors.Is(err, boom) {
			t.Fatalf("write/flush error: got %v, want %v", err, boom)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("write/flush never returned after kill")
	}
}
