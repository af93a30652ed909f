package input

import (
	"encoding/binary"
	"time"
)

// KeyEvent is one press/release edge from a keyboard source. Events are
// ephemeral: they are consumed immediately by the detector and never
// persisted.
type KeyEvent struct {
	Device  string
	Code    uint16
	Pressed bool
	// Time is the kernel event timestamp, monotonic for ordering within
	// and across devices on the same clock.
	Time time.Duration
}

// Linux input_event layout on 64-bit: struct timeval (16 bytes),
// type (2), code (2), value (4).
const eventSize = 24

const (
	evKey = 1

	valRelease = 0
	valPress   = 1
	valRepeat  = 2
)

// decodeEvent parses one raw input_event. ok is false for non-key events
// and for auto-repeat, which the detector must never see.
func decodeEvent(buf []byte, device string) (KeyEvent, bool) {
	sec := binary.LittleEndian.Uint64(buf[0:8])
	usec := binary.LittleEndian.Uint64(buf[8:16])
	typ := binary.LittleEndian.Uint16(buf[16:18])
	code := binary.LittleEndian.Uint16(buf[18:20])
	value := int32(binary.LittleEndian.Uint32(buf[20:24]))

	if typ != evKey || value == valRepeat {
		return KeyEvent{}, false
	}

	return KeyEvent{
		Device:  device,
		Code:    code,
		Pressed: value == valPress,
		Time:    time.Duration(sec)*time.Second + time.Duration(usec)*time.Microsecond,
	}, true
}
