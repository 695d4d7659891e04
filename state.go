package shmio

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/astrohelm/shared-stream/internal/futex"
)

// State is a typed, atomic view over the shared coordination region S: at
// least MinStateBytes of caller-owned memory, reinterpreted as an array of
// 32-bit words addressable by slot index. The Writer only ever touches the
// WRITE_* slots; the Reader owns READ_* and is expected to use an
// equivalent view over the same bytes.
type State struct {
	words []int32
}

// NewState wraps buf as a shared-state view. buf must be at least
// MinStateBytes long and 4-byte aligned; NewState reports a violation of
// either requirement as ErrInvalidArgument rather than panicking.
func NewState(buf []byte) (*State, error) {
	if len(buf) < MinStateBytes {
		return nil, wrapErr(ErrInvalidArgument, fmt.Sprintf("state buffer is %d bytes, want >= %d", len(buf), MinStateBytes))
	}
	if uintptr(unsafe.Pointer(&buf[0]))%4 != 0 {
		return nil, wrapErr(ErrInvalidArgument, "state buffer is not 4-byte aligned")
	}
	n := len(buf) / 4
	words := unsafe.Slice((*int32)(unsafe.Pointer(&buf[0])), n)
	return &State{words: words}, nil
}

func (s *State) addr(slot int) *int32 {
	return &s.words[slot]
}

// Load atomically reads the word at slot.
func (s *State) Load(slot int) int32 {
	return atomic.LoadInt32(s.addr(slot))
}

// Store atomically writes v into the word at slot.
func (s *State) Store(slot int, v int32) {
	atomic.StoreInt32(s.addr(slot), v)
}

// Notify wakes any party blocked in Wait/WaitAsync on slot.
func (s *State) Notify(slot int) {
	futex.Wake(s.addr(slot))
}

// Wait blocks until the word at slot no longer equals expected, a Notify
// arrives, timeout elapses, or ctx is done. A zero timeout waits
// indefinitely (subject to ctx).
func (s *State) Wait(ctx context.Context, slot int, expected int32, timeout time.Duration) error {
	addr := s.addr(slot)
	if atomic.LoadInt32(addr) != expected {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- futex.Wait(addr, expected, timeout) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitResult classifies how a WaitFuture settled.
type WaitResult int

const (
	// WaitOK means the watched word changed and a notify was observed.
	WaitOK WaitResult = iota
	// WaitTimedOut means the timeout elapsed before any change.
	WaitTimedOut
	// WaitNotEqual means the word already differed from expected at the
	// moment WaitAsync was called, so no blocking occurred at all.
	WaitNotEqual
)

func (r WaitResult) String() string {
	switch r {
	case WaitOK:
		return "ok"
	case WaitTimedOut:
		return "timed-out"
	case WaitNotEqual:
		return "not-equal"
	default:
		return "unknown"
	}
}

// WaitFuture represents an in-flight or already-settled asynchronous wait.
type WaitFuture struct {
	done   chan struct{}
	result WaitResult
}

// Done returns a channel closed once the future has settled.
func (f *WaitFuture) Done() <-chan struct{} { return f.done }

// Result returns the settled outcome. It must only be called after Done is
// closed.
func (f *WaitFuture) Result() WaitResult { return f.result }

func settledFuture(r WaitResult) *WaitFuture {
	ch := make(chan struct{})
	close(ch)
	return &WaitFuture{done: ch, result: r}
}

// WaitAsync starts a non-blocking wait on the word at slot. If the word
// already differs from expected, the returned future is pre-settled with
// WaitNotEqual. Otherwise a background goroutine resolves it to WaitOK or
// WaitTimedOut once the word changes, a notify arrives, or timeout elapses.
func (s *State) WaitAsync(slot int, expected int32, timeout time.Duration) *WaitFuture {
	addr := s.addr(slot)
	if atomic.LoadInt32(addr) != expected {
		return settledFuture(WaitNotEqual)
	}
	f := &WaitFuture{done: make(chan struct{})}
	go func() {
		err := futex.Wait(addr, expected, timeout)
		if err == nil {
			f.result = WaitOK
		} else {
			f.result = WaitTimedOut
		}
		close(f.done)
	}()
	return f
}
