// Package detect implements the per-key double-tap state machine.
//
// The detector consumes press edges only. Release edges and auto-repeat are
// ignored upstream, which keeps the machine tolerant of modifier chording
// and held keys. Each tracked key code carries its own Idle/Armed state; a
// second press within the window consumes both presses and emits one
// trigger, a later press re-arms as a fresh first press, and an expired
// window returns to Idle silently.
package detect

import "time"

// Window is the maximum interval between two presses of the same key for
// them to count as one double-tap. There is no runtime configuration
// surface for it.
const Window = 300 * time.Millisecond

// Linux key codes for the designated trigger keys.
const (
	KeyLeftCtrl  uint16 = 29
	KeyRightCtrl uint16 = 97
)

// Detector tracks Armed state per key code. Timestamps are monotonic
// durations (kernel event time); wall-clock time is never consulted.
//
// A Detector is not safe for concurrent use. Events from all devices must be
// funneled through a single serializing channel before reaching it.
type Detector struct {
	tracked map[uint16]bool
	armedAt map[uint16]time.Duration
}

// New returns a detector tracking the given key codes. With no arguments it
// tracks left and right Ctrl independently.
func New(keys ...uint16) *Detector {
	if len(keys) == 0 {
		keys = []uint16{KeyLeftCtrl, KeyRightCtrl}
	}
	tracked := make(map[uint16]bool, len(keys))
	for _, k := range keys {
		tracked[k] = true
	}
	return &Detector{
		tracked: tracked,
		armedAt: make(map[uint16]time.Duration, len(keys)),
	}
}

// OnPress feeds one press edge at monotonic time at. It returns true when
// the press completes a double-tap; the state for that key then resets to
// Idle. Presses of untracked keys are ignored.
func (d *Detector) OnPress(code uint16, at time.Duration) bool {
	if !d.tracked[code] {
		return false
	}

	t0, armed := d.armedAt[code]
	if armed && at >= t0 && at-t0 <= Window {
		delete(d.armedAt, code)
		return true
	}

	// Idle, or the window lapsed: this press is a fresh first press.
	d.armedAt[code] = at
	return false
}

// Deadline returns the earliest instant at which an Armed state expires,
// and false when every key is Idle. The owning loop races a cancellable
// timer against the next press; when the timer wins it calls Expire.
func (d *Detector) Deadline() (time.Duration, bool) {
	var earliest time.Duration
	found := false
	for _, t0 := range d.armedAt {
		if !found || t0+Window < earliest {
			earliest = t0 + Window
			found = true
		}
	}
	return earliest, found
}

// Expire silently returns to Idle every key whose window has lapsed by now.
func (d *Detector) Expire(now time.Duration) {
	for code, t0 := range d.armedAt {
		if now-t0 > Window {
			delete(d.armedAt, code)
		}
	}
}

// Armed reports whether the given key currently holds an Armed state.
func (d *Detector) Armed(code uint16) bool {
	_, ok := d.armedAt[code]
	return ok
}
