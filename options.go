package shmio

import "time"

// PrefixSize is the fixed width, in bytes, of the little-endian length
// header at the start of every frame. It is a wire-format constant, not a
// tunable, so unlike PostfixSize it has no With... option.
const PrefixSize = 4

// MinStateBytes is the minimum length, in bytes, a shared-state handle
// passed to New must have: 32 slots of 4 bytes each, matching the "byte
// length >= 128" construction requirement.
const MinStateBytes = 128

// SlotLayout maps the six named coordination words onto indices within the
// shared-state region. Indices are measured in 4-byte words, not bytes.
// Layout is runtime-configurable (via WithSlotLayout) so one process can
// host several independently laid-out channels against the same package.
type SlotLayout struct {
	WriteIndex   int
	WriteCycle   int
	WriteProcess int
	ReadIndex    int
	ReadCycle    int
	ReadProcess  int
}

// DefaultSlotLayout returns the canonical packing: the six words occupy
// slots 0 through 5 in the order they are listed in the data model.
func DefaultSlotLayout() SlotLayout {
	return SlotLayout{
		WriteIndex:   0,
		WriteCycle:   1,
		WriteProcess: 2,
		ReadIndex:    3,
		ReadCycle:    4,
		ReadProcess:  5,
	}
}

// Handlers holds the lifecycle callbacks a Writer emits. ready, finish, and
// close fire at most once; error fires at most once; drain may fire
// repeatedly. Handlers run synchronously on whichever goroutine triggered
// the transition (a public method call, or the internal drain waiter), so
// a handler must not call back into the same Writer.
type Handlers struct {
	OnReady  func()
	OnDrain  func()
	OnFinish func()
	OnError  func(error)
	OnClose  func()
}

// Options configures a Writer.
type Options struct {
	// PostfixSize is the number of reserved bytes between the payload and
	// the NOT_FINAL byte of every frame. Zero means no reserved bytes.
	PostfixSize int

	// ReadSpins bounds how many times WriteSync spins on the read-index
	// word while the ring has no space, before failing ErrReadTooLong.
	ReadSpins int

	// SpinTimeout bounds each individual spin iteration of WriteSync and
	// of the orderly-end spin.
	SpinTimeout time.Duration

	// StartTimeout bounds how long Synchronize waits for the reader to
	// attach before failing ErrReaderStartTimeout.
	StartTimeout time.Duration

	// FinishSpins bounds how many times End spins waiting for the reader
	// to leave its origin process state before failing ErrFinishTimeout.
	FinishSpins int

	// Layout maps the six coordination words onto shared-state slots.
	Layout SlotLayout

	// Handlers receives lifecycle events. The zero value means no callback
	// is invoked for any event.
	Handlers Handlers
}

var defaultOptions = Options{
	PostfixSize:  0,
	ReadSpins:    10,
	SpinTimeout:  1000 * time.Millisecond,
	StartTimeout: 5000 * time.Millisecond,
	FinishSpins:  10,
	Layout:       DefaultSlotLayout(),
}

// Option configures a Writer at construction time.
type Option func(*Options)

// WithPostfixSize sets the number of reserved postfix bytes per frame.
func WithPostfixSize(n int) Option {
	return func(o *Options) { o.PostfixSize = n }
}

// WithReadSpins sets the spin budget for synchronous writes waiting on
// reader progress.
func WithReadSpins(n int) Option {
	return func(o *Options) { o.ReadSpins = n }
}

// WithSpinTimeout sets the per-iteration timeout for WriteSync's spin and
// for End's orderly-termination spin.
func WithSpinTimeout(d time.Duration) Option {
	return func(o *Options) { o.SpinTimeout = d }
}

// WithStartTimeout sets how long Synchronize waits for the reader to
// attach.
func WithStartTimeout(d time.Duration) Option {
	return func(o *Options) { o.StartTimeout = d }
}

// WithFinishSpins sets the spin budget for End's orderly-termination wait.
func WithFinishSpins(n int) Option {
	return func(o *Options) { o.FinishSpins = n }
}

// WithSlotLayout overrides the default packing of coordination words within
// the shared-state region.
func WithSlotLayout(layout SlotLayout) Option {
	return func(o *Options) { o.Layout = layout }
}

// WithHandlers registers lifecycle event callbacks.
func WithHandlers(h Handlers) Option {
	return func(o *Options) { o.Handlers = h }
}
