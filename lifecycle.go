package shmio

import "context"

// Synchronize performs the startup handshake: it publishes WRITE_PROCESS =
// READY and then waits for the peer to reach READY itself, bounded by
// StartTimeout. On success it emits OnReady; the caller should then run
// Watch from its single long-lived scheduling context. On failure the
// Writer is destroyed and the returned error is also available via
// LastError.
func (w *Writer) Synchronize(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.synchronizeLocked(ctx)
}

func (w *Writer) synchronizeLocked(ctx context.Context) error {
	for {
		w.state.Store(w.opts.Layout.WriteProcess, int32(SignReady))
		w.state.Notify(w.opts.Layout.WriteProcess)

		peer := Sign(w.state.Load(w.opts.Layout.ReadProcess))
		switch {
		case peer == SignReady:
			w.ready = true
			w.emitReady()
			return nil

		case peer == SignEmpty:
			future := w.state.WaitAsync(w.opts.Layout.ReadProcess, int32(SignEmpty), w.opts.StartTimeout)
			<-future.Done()
			switch future.Result() {
			case WaitNotEqual:
				continue
			case WaitTimedOut:
				err := wrapErr(ErrReaderStartTimeout, "peer did not become ready before start_timeout")
				w.destroyLocked(err)
				return err
			default: // WaitOK
				if Sign(w.state.Load(w.opts.Layout.ReadProcess)) == SignReady {
					continue
				}
				err := wrapErr(ErrReaderExitedAtSync, "peer left empty without becoming ready")
				w.destroyLocked(err)
				return err
			}

		default:
			err := wrapErr(ErrReaderExitedBeforeSync, "peer process word was already terminal at attach")
			w.destroyLocked(err)
			return err
		}
	}
}

// Watch runs the liveness loop: it observes READ_PROCESS and reacts to the
// peer requesting an orderly end or exiting unexpectedly. It blocks until
// the Writer is destroyed, an orderly end stops the watch, or ctx is done,
// and is meant to be run from the caller's single dedicated goroutine,
// matching the single-scheduling-context model. It returns ctx.Err() if
// cancelled, or nil otherwise.
func (w *Writer) Watch(ctx context.Context) error {
	w.mu.Lock()
	w.watching = true
	w.mu.Unlock()

	for {
		w.mu.Lock()
		if !w.watching || w.destroyed {
			w.mu.Unlock()
			return nil
		}
		s := Sign(w.state.Load(w.opts.Layout.ReadProcess))

		if s == SignFinishing {
			if len(w.overflowQueue) == 0 {
				w.endLocked()
			} else {
				w.pendingEndOnDrain = true
			}
			w.mu.Unlock()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		if s == SignFailed || s == SignFinished {
			w.destroyLocked(wrapErr(ErrReaderExitedWhileWatch, "peer process word became terminal during watch"))
			w.mu.Unlock()
			return nil
		}

		layoutSlot := w.opts.Layout.ReadProcess
		w.mu.Unlock()

		future := w.state.WaitAsync(layoutSlot, int32(s), 0)
		select {
		case <-future.Done():
		case <-ctx.Done():
			w.mu.Lock()
			w.watching = false
			w.mu.Unlock()
			return ctx.Err()
		}
	}
}

// End performs an orderly termination: it asks the peer to finish, spins
// waiting for acknowledgement up to FinishSpins*SpinTimeout, and destroys
// the Writer with FinishTimeout or FinishReaderFailed if the peer does not
// cooperate. Calling End twice is a no-op the second time.
func (w *Writer) End(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.endLocked()
}

func (w *Writer) endLocked() error {
	if w.destroyed || w.ending {
		return nil
	}
	w.ending = true
	w.watching = false

	origin := Sign(w.state.Load(w.opts.Layout.ReadProcess))
	if origin == SignReady || origin == SignEmpty || origin == SignFinishing {
		w.state.Store(w.opts.Layout.WriteProcess, int32(SignFinishing))
		w.state.Notify(w.opts.Layout.WriteProcess)
	}

	cur := origin
	for i := 0; i < w.opts.FinishSpins && cur == origin && !cur.terminal(); i++ {
		_ = w.state.Wait(context.Background(), w.opts.Layout.ReadProcess, int32(origin), w.opts.SpinTimeout)
		cur = Sign(w.state.Load(w.opts.Layout.ReadProcess))
	}

	switch {
	case cur == SignFinished:
		w.state.Store(w.opts.Layout.WriteProcess, int32(SignFinished))
		w.state.Notify(w.opts.Layout.WriteProcess)
		w.finished = true
		w.ended = true
		w.emitFinish()
		return nil

	case cur == SignFailed:
		err := wrapErr(ErrFinishReaderFailed, "peer ended failed during orderly end")
		w.destroyLocked(err)
		return err

	case cur == origin:
		err := wrapErr(ErrFinishTimeout, "finish_spins elapsed without peer state change")
		w.destroyLocked(err)
		return err

	default:
		// cur left `origin` for a non-terminal value (for example READY to
		// FINISHING); this is treated as a clean finish.
		w.state.Store(w.opts.Layout.WriteProcess, int32(SignFinished))
		w.state.Notify(w.opts.Layout.WriteProcess)
		w.finished = true
		w.ended = true
		w.emitFinish()
		return nil
	}
}

// Close destroys the Writer cleanly, as if the peer had already finished.
// Calling Close twice emits at most one OnError and one OnClose.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroyLocked(nil)
	return nil
}

// destroyLocked is the universal destroy/cancel path, reached from every
// error branch and from Close. err is nil for a clean destroy (publishes
// FINISHED) or non-nil for a fault (publishes FAILED, records lastError,
// emits OnError); WRITE_PROCESS is only published while both process words
// are still READY or EMPTY. Idempotent: a second call is a no-op.
func (w *Writer) destroyLocked(err error) {
	if w.destroyed {
		return
	}
	w.watching = false

	wp := Sign(w.state.Load(w.opts.Layout.WriteProcess))
	rp := Sign(w.state.Load(w.opts.Layout.ReadProcess))
	if wp.attachable() && rp.attachable() {
		if err != nil {
			w.state.Store(w.opts.Layout.WriteProcess, int32(SignFailed))
		} else {
			w.state.Store(w.opts.Layout.WriteProcess, int32(SignFinished))
		}
		w.state.Notify(w.opts.Layout.WriteProcess)
	}

	if err != nil {
		w.errored = true
		w.lastError = err
		w.emitError(err)
	}

	w.destroyed = true
	w.closed = true
	w.emitClose()
}
