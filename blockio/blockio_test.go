package blockio

import (
	"bytes"
	"testing"
)

func TestWriteThenReadBlockRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewBlockWriter(&buf)

	want := []byte("the quick brown fox jumps over the lazy dog, repeatedly, repeatedly, repeatedly")
	if err := w.WriteBlock(want); err != nil {
		t.Fatalf("write block: %v", err)
	}

	r := NewBlockReader(&buf)
	got, err := r.ReadBlock()
	if err != nil {
		t.Fatalf("read block: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMultipleBlocksInSequence(t *testing.T) {
	var buf bytes.Buffer
	w := NewBlockWriter(&buf)

	blocks := [][]byte{[]byte("first"), []byte("second block"), []byte("")}
	for _, b := range blocks {
		if err := w.WriteBlock(b); err != nil {
			t.Fatalf("write block: %v", err)
		}
	}

	r := NewBlockReader(&buf)
	for _, want := range blocks {
		got, err := r.ReadBlock()
		if err != nil {
			t.Fatalf("read block: %v", err)
		}
		if string(got) != string(want) {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestReadBlockRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x00, 0x00, 0, 0, 0, 0, 0, 0, 0, 0})
	r := NewBlockReader(buf)
	if _, err := r.ReadBlock(); err != ErrBadMagic {
		t.Fatalf("got %v, want ErrBadMagic", err)
	}
}

func TestReadBlockRejectsOversizedBlock(t *testing.T) {
	var buf bytes.Buffer
	w := NewBlockWriter(&buf)
	if err := w.WriteBlock(make([]byte, 1024)); err != nil {
		t.Fatalf("write block: %v", err)
	}

	r := NewBlockReader(&buf)
	r.SetMaxBlockSize(10)
	if _, err := r.ReadBlock(); err == nil {
		t.Fatal("expected oversized block to be rejected")
	}
}
