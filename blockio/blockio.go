// Package blockio implements a length-prefixed deflate block framing on
// top of any io.Reader/io.Writer: each block is magic bytes, a compressed
// length, an uncompressed length, then the compressed payload. It has no
// relation to the revivable streams; it is an independent wire codec that
// happens to sit well on top of one (or a real socket).
package blockio

import (
	"bufio"
	"bytes"
	"compress/flate"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var magic = [2]byte{0x1F, 0x8F}

// ErrBadMagic is returned by BlockReader.ReadBlock when a block does not
// start with the expected magic bytes.
var ErrBadMagic = errors.New("blockio: bad block magic")

// DefaultMaxBlockSize bounds how large a compressed or uncompressed block
// buffer BlockReader will allocate, absent an explicit SetMaxBlockSize call.
const DefaultMaxBlockSize = 1 << 20 // 1 MiB

// BlockWriter writes length-prefixed deflate blocks to an underlying
// io.Writer.
type BlockWriter struct {
	w   io.Writer
	lvl int
}

// NewBlockWriter wraps w, compressing each block at flate's default
// compression level.
func NewBlockWriter(w io.Writer) *BlockWriter {
	return &BlockWriter{w: w, lvl: flate.DefaultCompression}
}

// SetCompressionLevel overrides the flate compression level used for
// subsequent blocks (see compress/flate's level constants).
func (bw *BlockWriter) SetCompressionLevel(level int) {
	bw.lvl = level
}

// WriteBlock compresses p and writes it as one framed block: magic, the
// compressed length, the uncompressed length, then the compressed bytes.
func (bw *BlockWriter) WriteBlock(p []byte) error {
	var compressed bufferedWriter
	fw, err := flate.NewWriter(&compressed, bw.lvl)
	if err != nil {
		return fmt.Errorf("blockio: creating flate writer: %w", err)
	}
	if _, err := fw.Write(p); err != nil {
		return fmt.Errorf("blockio: compressing block: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("blockio: flushing compressed block: %w", err)
	}

	header := make([]byte, 2+4+4)
	header[0], header[1] = magic[0], magic[1]
	binary.BigEndian.PutUint32(header[2:6], uint32(len(compressed.buf)))
	binary.BigEndian.PutUint32(header[6:10], uint32(len(p)))

	if _, err := bw.w.Write(header); err != nil {
		return fmt.Errorf("blockio: writing block header: %w", err)
	}
	if _, err := bw.w.Write(compressed.buf); err != nil {
		return fmt.Errorf("blockio: writing block payload: %w", err)
	}
	return nil
}

type bufferedWriter struct{ buf []byte }

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// BlockReader reads length-prefixed deflate blocks written by a
// BlockWriter.
type BlockReader struct {
	r            *bufio.Reader
	maxBlockSize int
}

// NewBlockReader wraps r, rejecting any block whose declared compressed or
// uncompressed size exceeds DefaultMaxBlockSize.
func NewBlockReader(r io.Reader) *BlockReader {
	return &BlockReader{r: bufio.NewReader(r), maxBlockSize: DefaultMaxBlockSize}
}

// SetMaxBlockSize overrides the maximum size of the compressed and the
// uncompressed buffer ReadBlock will allocate for a block.
func (br *BlockReader) SetMaxBlockSize(n int) {
	br.maxBlockSize = n
}

// ReadBlock reads and decompresses the next block, returning its
// uncompressed bytes. It returns ErrBadMagic if the stream is not
// positioned at a valid block boundary.
func (br *BlockReader) ReadBlock() ([]byte, error) {
	header := make([]byte, 2+4+4)
	if _, err := io.ReadFull(br.r, header); err != nil {
		return nil, err
	}
	if header[0] != magic[0] || header[1] != magic[1] {
		return nil, ErrBadMagic
	}
	compressedLen := binary.BigEndian.Uint32(header[2:6])
	uncompressedLen := binary.BigEndian.Uint32(header[6:10])
	if uncompressedLen > uint32(br.maxBlockSize) {
		return nil, fmt.Errorf("blockio: block of %d bytes exceeds max %d", uncompressedLen, br.maxBlockSize)
	}
	if compressedLen > uint32(br.maxBlockSize) {
		return nil, fmt.Errorf("blockio: compressed block of %d bytes exceeds max %d", compressedLen, br.maxBlockSize)
	}

	compressed := make([]byte, compressedLen)
	if _, err := io.ReadFull(br.r, compressed); err != nil {
		return nil, fmt.Errorf("blockio: reading compressed payload: %w", err)
	}

	fr := flate.NewReader(bytes.NewReader(compressed))
	defer fr.Close()

	out := make([]byte, uncompressedLen)
	if _, err := io.ReadFull(fr, out); err != nil {
		return nil, fmt.Errorf("blockio: decompressing block: %w", err)
	}
	return out, nil
}
