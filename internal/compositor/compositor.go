// Package compositor wraps the privileged window-management surface. Only
// the shell-side host may invoke these operations; ordinary applications
// cannot, which is the entire reason the shell host exists as a separate
// process.
package compositor

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/tapshell/tapshell/internal/config"
	"github.com/tapshell/tapshell/internal/placement"
)

// Compositor exposes the shell's window-management operations plus the
// queries the cursor positioner needs.
type Compositor interface {
	CursorPosition() (placement.Point, error)
	WorkArea() (placement.Rect, error)
	WindowFrame() (width, height int, err error)

	MoveWindow(x, y int) error
	ActivateWindow() error
	SetAlwaysAbove(enabled bool) error
}

// dbusCompositor talks to a shell extension object. The endpoint triple
// comes from config so the host works against any compositor exposing the
// same surface.
type dbusCompositor struct {
	obj   dbus.BusObject
	iface string
}

// New creates a compositor client on an established session connection.
func New(conn *dbus.Conn, cfg config.CompositorConfig) Compositor {
	return &dbusCompositor{
		obj:   conn.Object(cfg.Service, dbus.ObjectPath(cfg.Path)),
		iface: cfg.Interface,
	}
}

func (c *dbusCompositor) CursorPosition() (placement.Point, error) {
	var x, y int32
	call := c.obj.Call(c.iface+".GetCursorPosition", 0)
	if call.Err != nil {
		return placement.Point{}, fmt.Errorf("cursor position: %w", call.Err)
	}
	if err := call.Store(&x, &y); err != nil {
		return placement.Point{}, fmt.Errorf("cursor position decode: %w", err)
	}
	return placement.Point{X: int(x), Y: int(y)}, nil
}

func (c *dbusCompositor) WorkArea() (placement.Rect, error) {
	var x, y, w, h int32
	call := c.obj.Call(c.iface+".GetWorkArea", 0)
	if call.Err != nil {
		return placement.Rect{}, fmt.Errorf("work area: %w", call.Err)
	}
	if err := call.Store(&x, &y, &w, &h); err != nil {
		return placement.Rect{}, fmt.Errorf("work area decode: %w", err)
	}
	return placement.Rect{X: int(x), Y: int(y), Width: int(w), Height: int(h)}, nil
}

func (c *dbusCompositor) WindowFrame() (int, int, error) {
	var w, h int32
	call := c.obj.Call(c.iface+".GetWindowFrame", 0)
	if call.Err != nil {
		return 0, 0, fmt.Errorf("window frame: %w", call.Err)
	}
	if err := call.Store(&w, &h); err != nil {
		return 0, 0, fmt.Errorf("window frame decode: %w", err)
	}
	return int(w), int(h), nil
}

func (c *dbusCompositor) MoveWindow(x, y int) error {
	return c.obj.Call(c.iface+".MoveWindow", 0, int32(x), int32(y)).Err
}

func (c *dbusCompositor) ActivateWindow() error {
	return c.obj.Call(c.iface+".ActivateWindow", 0).Err
}

func (c *dbusCompositor) SetAlwaysAbove(enabled bool) error {
	return c.obj.Call(c.iface+".SetAlwaysAbove", 0, enabled).Err
}
