package pipe

import "revivio/revivable"

// ReadEnd is the consuming side of a killable pipe: a revivable.InputStream
// over the pipe's raw read side.
type ReadEnd = revivable.InputStream

// WriteEnd is the producing side of a killable pipe: a revivable.OutputStream
// over the pipe's raw write side.
type WriteEnd = revivable.OutputStream

// New creates a killable byte pipe: a bounded in-memory FIFO of bufferSize
// bytes, returning its read end wrapped in a revivable input stream and its
// write end wrapped in a revivable output stream. The pipe is closed when
// either end is closed. Total observed buffering is roughly 3x bufferSize:
// the ring itself plus the output stream's transfer queue and its
// worker-side batch (the input stream's worker reads at most as many
// bytes as the pending Read asked for).
func New(bufferSize int) (*ReadEnd, *WriteEnd) {
	r := newRing(bufferSize)
	read := revivable.NewInputStream(&rawReadEnd{r: r})
	write := revivable.NewOutputStream(&rawWriteEnd{r: r}, bufferSize)
	return read, write
}
