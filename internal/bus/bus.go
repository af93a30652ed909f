// Package bus carries the desktop-wide trigger and control signals.
//
// Everything here is fire-and-forget broadcast: at-most-once, unordered
// across subscribers, no acknowledgement and no retry. A missed message
// degrades to a visible no-op, never an explicit failure, so emission must
// never block on subscriber presence.
package bus

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

// Well-known broadcast endpoint shared by the daemon, the desktop
// application and the shell host.
const (
	BusName    = "app.doubletap"
	ObjectPath = dbus.ObjectPath("/app/doubletap/DoubleTap")
	Interface  = "app.doubletap.DoubleTap"

	SignalTriggered      = "Triggered"
	SignalSetAlwaysOnTop = "SetAlwaysOnTop"
	SignalTypeText       = "TypeText"
)

// Connect opens a session bus connection and, when own is true, claims the
// well-known name so peers can address the daemon.
func Connect(own bool) (*dbus.Conn, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("session bus: %w", err)
	}

	if own {
		reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("request name %s: %w", BusName, err)
		}
		if reply != dbus.RequestNameReplyPrimaryOwner {
			conn.Close()
			return nil, fmt.Errorf("name %s already owned", BusName)
		}
	}

	return conn, nil
}

// Publisher emits the trigger and control signals.
type Publisher struct {
	conn *dbus.Conn
	log  zerolog.Logger
}

// NewPublisher wraps an established connection.
func NewPublisher(conn *dbus.Conn, log zerolog.Logger) *Publisher {
	return &Publisher{conn: conn, log: log}
}

// EmitTriggered broadcasts one double-tap trigger.
func (p *Publisher) EmitTriggered() {
	p.emit(SignalTriggered)
}

// EmitSetAlwaysOnTop relays the always-on-top toggle toward the shell host.
func (p *Publisher) EmitSetAlwaysOnTop(enabled bool) {
	p.emit(SignalSetAlwaysOnTop, enabled)
}

// EmitTypeText relays a text-injection request toward the daemon.
func (p *Publisher) EmitTypeText() {
	p.emit(SignalTypeText)
}

func (p *Publisher) emit(member string, values ...interface{}) {
	if err := p.conn.Emit(ObjectPath, Interface+"."+member, values...); err != nil {
		// Consumers needing delivery guarantees own their retry policy.
		p.log.Warn().Err(err).Str("signal", member).Msg("Signal dropped")
		return
	}
	p.log.Debug().Str("signal", member).Msg("Signal sent")
}

// Handler receives inbound broadcast signals. Nil callbacks are skipped, so
// each process subscribes only to the members it consumes.
type Handler struct {
	OnTriggered      func()
	OnSetAlwaysOnTop func(enabled bool)
	OnTypeText       func()
}

// Subscribe installs a match rule for the endpoint interface and dispatches
// deliveries to h until the connection closes. Malformed or unknown members
// are logged and ignored.
func Subscribe(conn *dbus.Conn, h Handler, log zerolog.Logger) error {
	err := conn.AddMatchSignal(
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchObjectPath(ObjectPath),
	)
	if err != nil {
		return fmt.Errorf("add match: %w", err)
	}

	ch := make(chan *dbus.Signal, 16)
	conn.Signal(ch)

	go func() {
		for sig := range ch {
			dispatch(sig, h, log)
		}
	}()

	return nil
}

func dispatch(sig *dbus.Signal, h Handler, log zerolog.Logger) {
	switch sig.Name {
	case Interface + "." + SignalTriggered:
		if h.OnTriggered != nil {
			h.OnTriggered()
		}

	case Interface + "." + SignalSetAlwaysOnTop:
		if h.OnSetAlwaysOnTop == nil {
			return
		}
		if len(sig.Body) != 1 {
			log.Warn().Str("signal", sig.Name).Msg("Malformed signal body")
			return
		}
		enabled, ok := sig.Body[0].(bool)
		if !ok {
			log.Warn().Str("signal", sig.Name).Msg("Malformed signal body")
			return
		}
		h.OnSetAlwaysOnTop(enabled)

	case Interface + "." + SignalTypeText:
		if h.OnTypeText != nil {
			h.OnTypeText()
		}
	}
}
