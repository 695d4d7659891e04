//go:build linux

package futex

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Wait blocks the calling goroutine until *addr no longer equals expected,
// a wake arrives on addr, or timeout elapses. A zero or negative timeout
// blocks indefinitely.
func Wait(addr *int32, expected int32, timeout time.Duration) error {
	var ts *unix.Timespec
	if timeout > 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(linuxFutexWait),
		uintptr(expected),
		uintptr(unsafe.Pointer(ts)),
		0, 0,
	)
	switch errno {
	case 0, unix.EAGAIN:
		return nil
	case unix.ETIMEDOUT:
		return ErrTimeout
	case unix.EINTR:
		return nil
	default:
		return errno
	}
}

// Wake wakes at least one goroutine/process blocked in Wait on addr.
func Wake(addr *int32) {
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(linuxFutexWake),
		uintptr(1<<30), // wake "all reasonable" waiters; matches FUTEX_WAKE semantics with INT_MAX
		0, 0, 0,
	)
}

const (
	linuxFutexWait = 0 // FUTEX_WAIT
	linuxFutexWake = 1 // FUTEX_WAKE
)
