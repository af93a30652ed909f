// Package inject answers TypeText requests by replaying a paste chord on a
// virtual keyboard. The text itself travels through the clipboard: the
// desktop application fills it before emitting the signal, and this side
// only synthesizes Ctrl+Shift+V (and optionally Enter) at the focused
// window. Ctrl+Shift+V pastes in terminals as well as GUI applications.
package inject

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"

	"github.com/tapshell/tapshell/internal/config"
)

// Injector defines the interface for text injection
type Injector interface {
	Paste(ctx context.Context) error
	Close() error
}

// keyboard is the platform half: it emits single key edges.
type keyboard interface {
	emitKey(code uint16, press bool) error
	close() error
}

// Key codes the virtual device registers.
const (
	keyEnter     uint16 = 28
	keyLeftCtrl  uint16 = 29
	keyLeftShift uint16 = 42
	keyV         uint16 = 47
)

// keyEventDelay spaces the synthesized edges so the focused client keeps up.
const keyEventDelay = 10 * time.Millisecond

type keyEdge struct {
	code  uint16
	press bool
}

// pasteSequence is the ordered chord: modifiers press outside-in, release
// inside-out, then an optional Enter to submit the pasted text.
func pasteSequence(pressEnter bool) []keyEdge {
	seq := []keyEdge{
		{keyLeftCtrl, true},
		{keyLeftShift, true},
		{keyV, true},
		{keyV, false},
		{keyLeftShift, false},
		{keyLeftCtrl, false},
	}
	if pressEnter {
		seq = append(seq, keyEdge{keyEnter, true}, keyEdge{keyEnter, false})
	}
	return seq
}

// encodeKeyEvent serializes one input_event (EV_KEY) for the uinput device.
func encodeKeyEvent(code uint16, press bool) []byte {
	const evKey = 1

	value := uint32(0)
	if press {
		value = 1
	}

	buf := make([]byte, 24)
	binary.LittleEndian.PutUint16(buf[16:18], evKey)
	binary.LittleEndian.PutUint16(buf[18:20], code)
	binary.LittleEndian.PutUint32(buf[20:24], value)
	return buf
}

// encodeSynReport serializes the EV_SYN frame terminator.
func encodeSynReport() []byte {
	return make([]byte, 24)
}

type pasteInjector struct {
	cfg config.InjectConfig
	kbd keyboard
	log zerolog.Logger
}

// New creates a text injector backed by a virtual keyboard device.
func New(cfg config.InjectConfig, log zerolog.Logger) (Injector, error) {
	kbd, err := newPlatformKeyboard()
	if err != nil {
		return nil, fmt.Errorf("virtual keyboard: %w", err)
	}
	return &pasteInjector{cfg: cfg, kbd: kbd, log: log}, nil
}

// Paste replays the paste chord. An empty clipboard makes it a no-op so a
// stray request never fires a bare Enter at the focused window.
func (p *pasteInjector) Paste(ctx context.Context) error {
	text, err := clipboard.ReadAll()
	if err == nil && strings.TrimSpace(text) == "" {
		p.log.Debug().Msg("Clipboard empty, paste skipped")
		return nil
	}

	for _, edge := range pasteSequence(p.cfg.PressEnter) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.kbd.emitKey(edge.code, edge.press); err != nil {
			return fmt.Errorf("emit key %d: %w", edge.code, err)
		}
		time.Sleep(keyEventDelay)
	}

	p.log.Info().Msg("Paste chord injected")
	return nil
}

func (p *pasteInjector) Close() error {
	return p.kbd.close()
}
