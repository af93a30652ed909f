package inject

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasteSequenceChord(t *testing.T) {
	seq := pasteSequence(false)

	assert.Equal(t, []keyEdge{
		{keyLeftCtrl, true},
		{keyLeftShift, true},
		{keyV, true},
		{keyV, false},
		{keyLeftShift, false},
		{keyLeftCtrl, false},
	}, seq)
}

func TestPasteSequenceWithEnter(t *testing.T) {
	seq := pasteSequence(true)

	require.Len(t, seq, 8)
	assert.Equal(t, keyEdge{keyEnter, true}, seq[6])
	assert.Equal(t, keyEdge{keyEnter, false}, seq[7])
}

// Every press must have a matching later release, and modifiers must still
// be held while V is pressed.
func TestPasteSequenceBalanced(t *testing.T) {
	for _, pressEnter := range []bool{false, true} {
		held := map[uint16]bool{}
		for _, edge := range pasteSequence(pressEnter) {
			if edge.press {
				assert.False(t, held[edge.code], "double press of %d", edge.code)
				held[edge.code] = true
				if edge.code == keyV {
					assert.True(t, held[keyLeftCtrl], "ctrl released before V press")
					assert.True(t, held[keyLeftShift], "shift released before V press")
				}
			} else {
				assert.True(t, held[edge.code], "release of %d without press", edge.code)
				delete(held, edge.code)
			}
		}
		assert.Empty(t, held, "keys left held")
	}
}

func TestEncodeKeyEvent(t *testing.T) {
	buf := encodeKeyEvent(keyV, true)

	require.Len(t, buf, 24)
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(buf[16:18]), "EV_KEY")
	assert.Equal(t, keyV, binary.LittleEndian.Uint16(buf[18:20]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[20:24]))

	buf = encodeKeyEvent(keyV, false)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf[20:24]))
}

func TestEncodeSynReport(t *testing.T) {
	buf := encodeSynReport()
	require.Len(t, buf, 24)
	for _, b := range buf {
		assert.Zero(t, b)
	}
}
