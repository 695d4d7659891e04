// Package futex provides wait/wake primitives over a 32-bit word embedded in
// a caller-owned memory region, shared across process boundaries. On Linux
// it is backed by the real FUTEX_WAIT/FUTEX_WAKE syscalls; elsewhere each
// waiting goroutine polls the word itself while listening for a wake.
package futex

import "errors"

// ErrTimeout is returned by Wait when the timeout elapses before the word
// changes and a wake arrives.
var ErrTimeout = errors.New("futex: wait timed out")
