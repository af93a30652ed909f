package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestDoubleTapWithinWindow(t *testing.T) {
	tests := []struct {
		name    string
		first   time.Duration
		second  time.Duration
		trigger bool
	}{
		{"immediate pair", ms(0), ms(50), true},
		{"exactly at the window boundary", ms(0), ms(300), true},
		{"one past the boundary", ms(0), ms(301), false},
		{"well past the boundary", ms(0), ms(1000), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			assert.False(t, d.OnPress(KeyLeftCtrl, tt.first), "first press must never trigger")
			assert.Equal(t, tt.trigger, d.OnPress(KeyLeftCtrl, tt.second))
		})
	}
}

func TestLatePressReArms(t *testing.T) {
	d := New()

	// 0ms, 100ms, 250ms: the (0,100) pair triggers and resets to Idle;
	// the press at 250ms starts a fresh window without triggering.
	assert.False(t, d.OnPress(KeyLeftCtrl, ms(0)))
	assert.True(t, d.OnPress(KeyLeftCtrl, ms(100)))
	assert.False(t, d.OnPress(KeyLeftCtrl, ms(250)))
	assert.True(t, d.Armed(KeyLeftCtrl))

	// The fresh window pairs with the next press.
	assert.True(t, d.OnPress(KeyLeftCtrl, ms(400)))
	assert.False(t, d.Armed(KeyLeftCtrl))
}

func TestStaleArmTreatedAsFreshFirstPress(t *testing.T) {
	d := New()

	assert.False(t, d.OnPress(KeyLeftCtrl, ms(0)))
	// Past the window: re-arms rather than triggering or going Idle.
	assert.False(t, d.OnPress(KeyLeftCtrl, ms(500)))
	assert.True(t, d.Armed(KeyLeftCtrl))
	assert.True(t, d.OnPress(KeyLeftCtrl, ms(700)))
}

func TestKeysAreIndependent(t *testing.T) {
	d := New()

	assert.False(t, d.OnPress(KeyLeftCtrl, ms(0)))
	// A right-Ctrl press within the window must not consume the
	// left-Ctrl arm.
	assert.False(t, d.OnPress(KeyRightCtrl, ms(100)))
	assert.True(t, d.OnPress(KeyLeftCtrl, ms(200)))
	assert.True(t, d.OnPress(KeyRightCtrl, ms(250)))
}

func TestUntrackedKeysIgnored(t *testing.T) {
	d := New()

	const keyA uint16 = 30
	assert.False(t, d.OnPress(keyA, ms(0)))
	assert.False(t, d.OnPress(keyA, ms(10)))
	assert.False(t, d.Armed(keyA))
}

func TestExpireReturnsToIdleSilently(t *testing.T) {
	d := New()

	assert.False(t, d.OnPress(KeyLeftCtrl, ms(0)))

	deadline, ok := d.Deadline()
	assert.True(t, ok)
	assert.Equal(t, ms(300), deadline)

	d.Expire(ms(301))
	assert.False(t, d.Armed(KeyLeftCtrl))

	_, ok = d.Deadline()
	assert.False(t, ok)

	// After expiry the next press is a plain first press.
	assert.False(t, d.OnPress(KeyLeftCtrl, ms(400)))
}

func TestExpireKeepsLiveWindows(t *testing.T) {
	d := New()

	d.OnPress(KeyLeftCtrl, ms(0))
	d.OnPress(KeyRightCtrl, ms(200))

	d.Expire(ms(350))
	assert.False(t, d.Armed(KeyLeftCtrl))
	assert.True(t, d.Armed(KeyRightCtrl))

	deadline, ok := d.Deadline()
	assert.True(t, ok)
	assert.Equal(t, ms(500), deadline)
}

func TestDeadlineTracksEarliestArm(t *testing.T) {
	d := New()

	d.OnPress(KeyRightCtrl, ms(120))
	d.OnPress(KeyLeftCtrl, ms(40))

	deadline, ok := d.Deadline()
	assert.True(t, ok)
	assert.Equal(t, ms(340), deadline)
}
