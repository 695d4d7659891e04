package shmio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWriter_Synchronize_PeerAlreadyReady(t *testing.T) {
	var ready bool
	w, _ := newTestWriter(t, 32, WithHandlers(Handlers{OnReady: func() { ready = true }}))
	w.state.Store(w.opts.Layout.ReadProcess, int32(SignReady))

	if err := w.Synchronize(context.Background()); err != nil {
		t.Fatalf("Synchronize: %v", err)
	}
	if !ready {
		t.Fatal("OnReady was not fired")
	}
	if got := w.state.Load(w.opts.Layout.WriteProcess); got != int32(SignReady) {
		t.Fatalf("WRITE_PROCESS = %d, want SignReady", got)
	}
}

func TestWriter_Synchronize_PeerAttachesLate(t *testing.T) {
	w, _ := newTestWriter(t, 32, WithStartTimeout(2*time.Second))

	go func() {
		time.Sleep(20 * time.Millisecond)
		w.state.Store(w.opts.Layout.ReadProcess, int32(SignReady))
		w.state.Notify(w.opts.Layout.ReadProcess)
	}()

	if err := w.Synchronize(context.Background()); err != nil {
		t.Fatalf("Synchronize: %v", err)
	}
	if !w.Ready() {
		t.Fatal("Ready() = false, want true")
	}
}

func TestWriter_Synchronize_PeerAlreadyTerminal(t *testing.T) {
	w, _ := newTestWriter(t, 32)
	w.state.Store(w.opts.Layout.ReadProcess, int32(SignFailed))

	err := w.Synchronize(context.Background())
	if !errors.Is(err, ErrReaderExitedBeforeSync) {
		t.Fatalf("Synchronize err = %v, want ErrReaderExitedBeforeSync", err)
	}
	if !w.Closed() {
		t.Fatal("Closed() = false, want true")
	}
}

func TestWriter_Watch_InitiatesEndOnFinishing(t *testing.T) {
	var finished bool
	w, _ := newTestWriter(t, 32, WithFinishSpins(20), WithSpinTimeout(20*time.Millisecond),
		WithHandlers(Handlers{OnFinish: func() { finished = true }}))
	w.state.Store(w.opts.Layout.ReadProcess, int32(SignReady))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		time.Sleep(20 * time.Millisecond)
		w.state.Store(w.opts.Layout.ReadProcess, int32(SignFinishing))
		w.state.Notify(w.opts.Layout.ReadProcess)
		time.Sleep(20 * time.Millisecond)
		w.state.Store(w.opts.Layout.ReadProcess, int32(SignFinished))
		w.state.Notify(w.opts.Layout.ReadProcess)
	}()

	_ = w.Watch(ctx)

	deadline := time.After(2 * time.Second)
	for !w.WritableFinished() {
		select {
		case <-deadline:
			t.Fatal("writer never reached finished")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if !finished {
		t.Fatal("OnFinish was not fired")
	}
}

func TestWriter_Watch_ReaderExitedWhileWatch(t *testing.T) {
	var lastErr error
	w, _ := newTestWriter(t, 32, WithHandlers(Handlers{OnError: func(err error) { lastErr = err }}))
	w.state.Store(w.opts.Layout.ReadProcess, int32(SignReady))

	go func() {
		time.Sleep(20 * time.Millisecond)
		w.state.Store(w.opts.Layout.ReadProcess, int32(SignFailed))
		w.state.Notify(w.opts.Layout.ReadProcess)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = w.Watch(ctx)

	if !errors.Is(lastErr, ErrReaderExitedWhileWatch) {
		t.Fatalf("lastErr = %v, want ErrReaderExitedWhileWatch", lastErr)
	}
}

func TestWriter_Destroy_IsIdempotent(t *testing.T) {
	errs, closes := 0, 0
	w, _ := newTestWriter(t, 32, WithHandlers(Handlers{
		OnError: func(error) { errs++ },
		OnClose: func() { closes++ },
	}))
	w.mu.Lock()
	w.destroyLocked(errors.New("boom"))
	w.destroyLocked(errors.New("boom again"))
	w.mu.Unlock()

	if errs != 1 || closes != 1 {
		t.Fatalf("errs=%d closes=%d, want 1 and 1", errs, closes)
	}
}
