package shmio

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every fatal condition wraps one of these with a detail
// string via wrapErr, so callers compare with errors.Is(err, shmio.ErrX)
// regardless of the attached detail.
var (
	// ErrInvalidArgument reports a malformed constructor argument: a shared
	// region too small, an unaligned buffer, or a nil handle.
	ErrInvalidArgument = errors.New("shmio: invalid argument")

	// ErrCorrupted reports that the write_cursor/cycle invariants of the
	// ring were violated: the reader appears to have overtaken the writer,
	// or the reader's cycle counter moved ahead of the writer's.
	ErrCorrupted = errors.New("shmio: ring corrupted")

	// ErrReadTooLong reports that a synchronous write spun ReadSpins times
	// without observing reader progress.
	ErrReadTooLong = errors.New("shmio: synchronous write spun past read_spins without progress")

	// ErrReaderStartTimeout reports that StartTimeout elapsed before the
	// peer's process word became READY.
	ErrReaderStartTimeout = errors.New("shmio: reader did not attach before start_timeout")

	// ErrReaderExitedBeforeSync reports that the reader's process word was
	// already terminal (FINISHING/FINISHED/FAILED) at attach time.
	ErrReaderExitedBeforeSync = errors.New("shmio: reader process word was already terminal at attach")

	// ErrReaderExitedAtSync reports that the peer left EMPTY without
	// transitioning to READY.
	ErrReaderExitedAtSync = errors.New("shmio: reader left empty without becoming ready")

	// ErrReaderExitedWhileWatch reports that the reader's process word
	// became terminal during steady-state operation.
	ErrReaderExitedWhileWatch = errors.New("shmio: reader process word became terminal during watch")

	// ErrFinishTimeout reports that FinishSpins elapsed during an orderly
	// end without the reader's process word changing.
	ErrFinishTimeout = errors.New("shmio: finish_spins elapsed without reader state change")

	// ErrFinishReaderFailed reports that the reader ended FAILED during an
	// orderly end.
	ErrFinishReaderFailed = errors.New("shmio: reader ended failed during orderly end")
)

// wrapErr attaches detail to a sentinel while preserving errors.Is matching.
func wrapErr(sentinel error, detail string) error {
	return fmt.Errorf("%w: %s", sentinel, detail)
}
