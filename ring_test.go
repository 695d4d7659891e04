package shmio

import (
	"bytes"
	"testing"
)

// TestRingFramer_Store_WritesLengthPrefixedFrame checks the exact wire
// bytes store produces: with |B|=64 and POSTFIX_SIZE=0, a 2-byte payload
// produces [LEN=2][AB][NOT_FINAL=0] and advances the cursor to 7.
func TestRingFramer_Store_WritesLengthPrefixedFrame(t *testing.T) {
	buf := make([]byte, 64)
	st, err := NewState(make([]byte, MinStateBytes))
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	rf := newRingFramer(buf, 0, st, DefaultSlotLayout())

	cursor := rf.store(0, []byte("AB"), false)

	if cursor != 7 {
		t.Fatalf("cursor = %d, want 7", cursor)
	}
	if !bytes.Equal(buf[0:4], []byte{2, 0, 0, 0}) {
		t.Fatalf("length prefix = %v, want [2 0 0 0]", buf[0:4])
	}
	if !bytes.Equal(buf[4:6], []byte("AB")) {
		t.Fatalf("payload = %q, want AB", buf[4:6])
	}
	if buf[6] != 0 {
		t.Fatalf("NOT_FINAL byte = %d, want 0", buf[6])
	}
	if got := st.Load(DefaultSlotLayout().WriteIndex); got != 7 {
		t.Fatalf("WRITE_INDEX = %d, want 7", got)
	}
}

func TestRingFramer_Store_NotFinal(t *testing.T) {
	buf := make([]byte, 32)
	st, err := NewState(make([]byte, MinStateBytes))
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	rf := newRingFramer(buf, 0, st, DefaultSlotLayout())

	cursor := rf.store(0, []byte("XY"), true)
	if buf[6] != 1 {
		t.Fatalf("NOT_FINAL byte = %d, want 1", buf[6])
	}
	if cursor != 7 {
		t.Fatalf("cursor = %d, want 7", cursor)
	}
}

func TestRingFramer_Store_WithPostfix(t *testing.T) {
	buf := make([]byte, 32)
	st, err := NewState(make([]byte, MinStateBytes))
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	rf := newRingFramer(buf, 3, st, DefaultSlotLayout())

	cursor := rf.store(0, []byte("Z"), false)
	// PrefixSize(4) + len("Z")(1) + postfix(3) + notfinal(1) = 9
	if cursor != 9 {
		t.Fatalf("cursor = %d, want 9", cursor)
	}
	if !bytes.Equal(buf[5:8], []byte{0, 0, 0}) {
		t.Fatalf("postfix bytes = %v, want zeroed", buf[5:8])
	}
	if buf[8] != 0 {
		t.Fatalf("NOT_FINAL byte = %d, want 0", buf[8])
	}
}
