package revivable

import "errors"

// ErrStreamClosed is returned by Write/Flush on an OutputStream once Close
// has completed. A closed InputStream reports io.EOF instead.
var ErrStreamClosed = errors.New("revivable: Stream Closed")

// ErrStreamKilled is raised by Write when the stream is killed with no
// explicit kill exception set.
var ErrStreamKilled = errors.New("revivable: Stream [temporarily] killed")

// ErrInterrupted is raised by Read, Write, or Flush when the calling
// goroutine's blocked wait is aborted via Interrupt.
var ErrInterrupted = errors.New("revivable: interrupted I/O")
