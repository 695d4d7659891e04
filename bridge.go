package shmio

import (
	"context"
	"io"

	"code.hybscloud.com/iox"
)

// These are provided as package-level aliases so callers can reference the
// semantic control-flow errors without importing iox directly.
var (
	// ErrWouldBlock means "no further progress without waiting". src.Read
	// returning it from ReadFrom is an expected, non-failure signal.
	ErrWouldBlock = iox.ErrWouldBlock

	// ErrMore means the upstream operation remains active and more data is
	// expected from the same ongoing read.
	ErrMore = iox.ErrMore
)

// ReadFrom implements io.ReaderFrom over the Writer: each chunk read from
// src becomes one logical payload handed to WriteSync, framed (and split by
// the write engine where needed) exactly as a direct WriteSync call would frame
// it. If src.Read returns iox.ErrWouldBlock or iox.ErrMore, ReadFrom returns
// immediately with the progress count and that same error, so a caller
// driving a non-blocking transport can retry later without losing bytes
// already written.
func (w *Writer) ReadFrom(src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)

	var total int64
	for {
		n, er := src.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if blocked := w.WriteSync(context.Background(), chunk); blocked {
				total += int64(n)
				if err := w.LastError(); err != nil {
					return total, err
				}
				return total, nil
			}
			total += int64(n)
		}
		if er != nil {
			if er == io.EOF {
				return total, nil
			}
			if er == ErrWouldBlock || er == ErrMore {
				return total, er
			}
			return total, er
		}
	}
}
