package shmio

import "encoding/binary"

// ringFramer serializes frames into the shared byte region B and publishes
// the new write cursor through the shared-state view. It is the only type
// that mutates B or WRITE_INDEX; every caller has already verified there is
// room (see the write engine's leftover computation), so store never fails.
type ringFramer struct {
	buf         []byte
	postfixSize int
	state       *State
	layout      SlotLayout
}

func newRingFramer(buf []byte, postfixSize int, state *State, layout SlotLayout) *ringFramer {
	return &ringFramer{buf: buf, postfixSize: postfixSize, state: state, layout: layout}
}

// extraSpace is PREFIX_SIZE + POSTFIX_SIZE for this framer's configuration.
func (rf *ringFramer) extraSpace() int {
	return PrefixSize + rf.postfixSize
}

// store writes one frame at cursor: a 4-byte little-endian length prefix,
// the payload, postfixSize reserved zero bytes, and a NOT_FINAL byte. It
// then stores the advanced cursor into WRITE_INDEX and notifies it. The
// caller is responsible for having verified
// cursor + PrefixSize + len(payload) + postfixSize + 1 <= len(buf).
func (rf *ringFramer) store(cursor int, payload []byte, notFinal bool) int {
	binary.LittleEndian.PutUint32(rf.buf[cursor:], uint32(len(payload)))
	cursor += PrefixSize

	copy(rf.buf[cursor:], payload)
	cursor += len(payload)

	for i := 0; i < rf.postfixSize; i++ {
		rf.buf[cursor+i] = 0
	}
	cursor += rf.postfixSize

	if notFinal {
		rf.buf[cursor] = 1
	} else {
		rf.buf[cursor] = 0
	}
	cursor++

	rf.state.Store(rf.layout.WriteIndex, int32(cursor))
	rf.state.Notify(rf.layout.WriteIndex)
	return cursor
}
