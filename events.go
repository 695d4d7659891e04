package shmio

// emitReady, emitDrain, emitFinish, emitError, and emitClose invoke the
// matching Handlers callback if one was registered. They are called with mu
// held, matching the single-scheduling-context model in which handlers run
// synchronously on whichever goroutine triggered the transition.
func (w *Writer) emitReady() {
	if h := w.opts.Handlers.OnReady; h != nil {
		h()
	}
}

func (w *Writer) emitDrain() {
	if h := w.opts.Handlers.OnDrain; h != nil {
		h()
	}
}

func (w *Writer) emitFinish() {
	if h := w.opts.Handlers.OnFinish; h != nil {
		h()
	}
}

func (w *Writer) emitError(err error) {
	if h := w.opts.Handlers.OnError; h != nil {
		h(err)
	}
}

func (w *Writer) emitClose() {
	if h := w.opts.Handlers.OnClose; h != nil {
		h()
	}
}
