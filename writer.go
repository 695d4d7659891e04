// Package shmio implements the writer side of a shared-memory byte-stream
// protocol for one-way inter-process communication between exactly one
// writer and one reader. The medium is a fixed-size byte region (B),
// coordinated through a second fixed-size region of atomic 32-bit words (S)
// that supports futex-like wait/notify. See State, Writer, and the four
// components they compose: the shared-state view (State), the ring framer,
// the write engine (Writer.Write/WriteSync/Flush), and the lifecycle
// controller (Writer.Synchronize/Watch/End/Close).
package shmio

import (
	"context"
	"sync"
)

// mode selects which path Write routes through (WriteSync ignores it): state
// is explicit instead of swapping in a different write implementation.
type mode int

const (
	modeNormal mode = iota
	modeBuffering
)

// Writer is the write side of a shared-memory byte stream. All public
// methods are safe to call concurrently: they are single-flight under an
// internal mutex, matching the "single dedicated thread or a mutex guarding
// all public entry points" scheduling model. A Writer must be driven by
// calling Synchronize once and then Watch from a single long-lived
// goroutine; Write/WriteSync/Flush/End/Close may be called from any
// goroutine.
type Writer struct {
	mu sync.Mutex

	buf    []byte
	state  *State
	framer *ringFramer
	opts   Options

	writeCursor int
	cycle       int32
	mode        mode

	overflowQueue     [][]byte
	pendingEndOnDrain bool

	ready     bool
	ending    bool
	ended     bool
	finished  bool
	errored   bool
	destroyed bool
	closed    bool
	needDrain bool
	watching  bool

	lastError error
}

// New constructs a Writer over the given shared-state handle and shared-
// byte-buffer handle. state must be at least MinStateBytes long and
// 4-byte aligned (see NewState); buf must be longer than
// PrefixSize+opts.PostfixSize+1. Options are applied over defaultOptions.
func New(state []byte, buf []byte, opts ...Option) (*Writer, error) {
	o := defaultOptions
	for _, apply := range opts {
		apply(&o)
	}

	st, err := NewState(state)
	if err != nil {
		return nil, err
	}

	extra := PrefixSize + o.PostfixSize
	if len(buf) <= extra+1 {
		return nil, wrapErr(ErrInvalidArgument, "shared buffer too small for prefix+postfix+notfinal")
	}

	w := &Writer{
		buf:    buf,
		state:  st,
		opts:   o,
		framer: newRingFramer(buf, o.PostfixSize, st, o.Layout),
	}
	return w, nil
}

// Write is the asynchronous write entry point. It returns true if the
// caller should stop producing until an OnDrain event fires, false if it
// may continue. Write never blocks the calling goroutine on shared-state
// waits; it may register a background async wait.
func (w *Writer) Write(payload []byte) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeLocked(context.Background(), false, payload)
}

// WriteSync is the synchronous write entry point: same return contract as
// Write, but may block the calling goroutine on the shared read-index word
// for up to ReadSpins*SpinTimeout. ctx bounds that blocking.
func (w *Writer) WriteSync(ctx context.Context, payload []byte) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeLocked(ctx, true, payload)
}

// Flush attempts to drain the overflow queue immediately and reports
// whether it fully drained.
func (w *Writer) Flush() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drainLocked(context.Background())
	return !w.needDrain
}

// writeLocked implements the unified write(sync, payload) algorithm shared
// by Write and WriteSync, expressed as a loop rather than recursion. mu is
// held throughout, including while spinForReadProgress blocks; the waiter
// goroutine started by armAsyncDrain acquires mu itself when it runs.
func (w *Writer) writeLocked(ctx context.Context, isSync bool, payload []byte) bool {
	// The mode flag only ever gates the asynchronous entry point; a
	// synchronous caller always drives the engine directly and blocks as
	// needed instead of joining the overflow queue.
	if !isSync && w.mode == modeBuffering {
		w.overflowQueue = append(w.overflowQueue, payload)
		return true
	}
	return w.engineLocked(ctx, isSync, payload)
}

func (w *Writer) engineLocked(ctx context.Context, isSync bool, payload []byte) bool {
	for {
		// Step 1: not writable.
		if w.destroyed || w.ending {
			return false
		}

		// Step 2: read reader progress.
		r := int(w.state.Load(w.opts.Layout.ReadIndex))
		rc := w.state.Load(w.opts.Layout.ReadCycle)

		// Step 3: behind/leftover.
		behind := r > w.writeCursor || rc < w.cycle
		ringEdge := len(w.buf)
		if behind {
			ringEdge = r
		}
		leftover := ringEdge - w.writeCursor - w.framer.extraSpace() - 1

		// Step 4: fault checks.
		if ringEdge < w.writeCursor {
			w.destroyLocked(wrapErr(ErrCorrupted, "reader index behind write cursor (overwritten)"))
			return false
		}
		if rc > w.cycle {
			w.destroyLocked(wrapErr(ErrCorrupted, "reader cycle ahead of writer cycle"))
			return false
		}

		switch {
		case leftover <= 0 && behind:
			// Case A: no space, reader occupies the space we'd need.
			if isSync {
				ok, err := w.spinForReadProgress(ctx, r)
				if err != nil {
					w.destroyLocked(err)
					return false
				}
				if !ok {
					w.destroyLocked(wrapErr(ErrReadTooLong, "read_spins exhausted without reader progress"))
					return false
				}
				continue
			}
			future := w.state.WaitAsync(w.opts.Layout.ReadIndex, int32(r), w.opts.SpinTimeout)
			select {
			case <-future.Done():
				if future.Result() == WaitNotEqual {
					continue
				}
			default:
			}
			w.armAsyncDrain(payload, future)
			return true

		case leftover <= 0 && !behind:
			// Case B: reader is ahead of us; wrap.
			w.wrapLocked()
			continue

		case leftover < len(payload):
			// Case C: payload overruns remaining contiguous space; split.
			head := payload[:leftover]
			w.writeCursor = w.framer.store(w.writeCursor, head, true)
			payload = payload[leftover:]
			continue

		default:
			// Case D: fits.
			w.writeCursor = w.framer.store(w.writeCursor, payload, false)
			return false
		}
	}
}

// wrapLocked resets write_cursor to 0 and advances WRITE_CYCLE by exactly
// one, pre-incremented so WRITE_CYCLE always reflects the writer's current
// lap before any frame is stored at the new cursor.
func (w *Writer) wrapLocked() {
	w.state.Store(w.opts.Layout.WriteIndex, 0)
	w.cycle++
	w.state.Store(w.opts.Layout.WriteCycle, w.cycle)
	w.state.Notify(w.opts.Layout.WriteIndex)
	w.writeCursor = 0
}

// spinForReadProgress implements write_sync's Case A spin: wait on
// READ_INDEX up to ReadSpins times, re-checking after each wake. It returns
// (true, nil) once the reader has moved past r, (false, nil) if the spin
// budget is exhausted, or a non-nil error if ctx is cancelled.
func (w *Writer) spinForReadProgress(ctx context.Context, r int) (bool, error) {
	for i := 0; i < w.opts.ReadSpins; i++ {
		_ = w.state.Wait(ctx, w.opts.Layout.ReadIndex, int32(r), w.opts.SpinTimeout)
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if int(w.state.Load(w.opts.Layout.ReadIndex)) != r {
			return true, nil
		}
	}
	return false, nil
}

// armAsyncDrain switches the engine into buffering mode, enqueues the
// current payload, and arranges for drainLocked to run once future
// settles. This is the asynchronous counterpart to spinForReadProgress:
// instead of blocking the caller, it registers a background waiter and
// returns immediately.
func (w *Writer) armAsyncDrain(payload []byte, future *WaitFuture) {
	w.needDrain = true
	w.mode = modeBuffering
	w.overflowQueue = append(w.overflowQueue, payload)

	go func() {
		<-future.Done()
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.destroyed {
			return
		}
		w.drainLocked(context.Background())
	}()
}

// drainLocked dequeues overflowQueue in FIFO order, re-entering the engine
// for each payload. If the engine reports backpressure again
// it stops; the waiter it just armed will re-enter drain on its own wake.
// When the queue empties, need_drain clears, mode returns to normal, and
// OnDrain fires.
func (w *Writer) drainLocked(ctx context.Context) {
	for len(w.overflowQueue) > 0 {
		next := w.overflowQueue[0]
		w.overflowQueue = w.overflowQueue[1:]

		w.mode = modeNormal
		blocked := w.engineLocked(ctx, false, next)
		if blocked {
			// engineLocked's own Case A path already re-enqueued `next`
			// (possibly split) at the tail via armAsyncDrain; restore FIFO
			// order by moving it back to the front.
			last := w.overflowQueue[len(w.overflowQueue)-1]
			w.overflowQueue = append([][]byte{last}, w.overflowQueue[:len(w.overflowQueue)-1]...)
			return
		}
	}
	w.needDrain = false
	w.mode = modeNormal
	w.emitDrain()
	if w.pendingEndOnDrain {
		w.pendingEndOnDrain = false
		w.endLocked()
	}
}

// Writable reports whether the Writer will currently accept writes:
// neither destroyed nor in the middle of an orderly end.
func (w *Writer) Writable() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.destroyed && !w.ending
}

// WritableEnded reports whether an orderly end is in progress.
func (w *Writer) WritableEnded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ending
}

// WritableFinished reports whether the Writer ended cleanly.
func (w *Writer) WritableFinished() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.finished
}

// WritableErrored reports whether the Writer ended with an error.
func (w *Writer) WritableErrored() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errored
}

// Ready reports whether the startup handshake has completed.
func (w *Writer) Ready() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ready
}

// Closed reports whether the Writer has been destroyed and closed.
func (w *Writer) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// WritableNeedDrain reports whether writes are currently buffered pending
// an OnDrain event.
func (w *Writer) WritableNeedDrain() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.needDrain
}

// WritableObjectMode always reports false: this Writer only ever operates
// on raw byte payloads, never on structured objects.
func (w *Writer) WritableObjectMode() bool {
	return false
}

// LastError returns the error that caused destruction, or nil if the
// Writer has not errored.
func (w *Writer) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastError
}
