package shmio

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"code.hybscloud.com/iox"
)

// wouldBlockReader returns a fixed chunk once, then ErrWouldBlock forever.
type wouldBlockReader struct {
	chunk []byte
	used  bool
}

func (r *wouldBlockReader) Read(p []byte) (int, error) {
	if r.used {
		return 0, iox.ErrWouldBlock
	}
	r.used = true
	n := copy(p, r.chunk)
	return n, nil
}

func TestWriter_ReadFrom_PlainEOF(t *testing.T) {
	w, buf := newTestWriter(t, 64)
	src := bytes.NewReader([]byte("hi"))

	n, err := w.ReadFrom(src)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	if !bytes.Equal(buf[4:6], []byte("hi")) {
		t.Fatalf("payload = %q, want hi", buf[4:6])
	}
}

func TestWriter_ReadFrom_PropagatesErrWouldBlock(t *testing.T) {
	w, _ := newTestWriter(t, 64)
	src := &wouldBlockReader{chunk: []byte("partial")}

	n, err := w.ReadFrom(src)
	if !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("err = %v, want ErrWouldBlock", err)
	}
	if n != int64(len("partial")) {
		t.Fatalf("n = %d, want %d", n, len("partial"))
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestWriter_ReadFrom_PropagatesOtherErrors(t *testing.T) {
	w, _ := newTestWriter(t, 64)
	boom := errors.New("boom")
	_, err := w.ReadFrom(errReader{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

var _ io.ReaderFrom = (*Writer)(nil)
