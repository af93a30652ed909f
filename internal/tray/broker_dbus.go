package tray

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/rs/zerolog"
)

// Watcher endpoint. The name is a singleton: only one host may own it on a
// session bus at a time.
const (
	WatcherName      = "tray.watcher"
	WatcherPath      = dbus.ObjectPath("/tray/watcher")
	WatcherInterface = "tray.Watcher"

	SignalItemRegistered   = "ItemRegistered"
	SignalItemUnregistered = "ItemUnregistered"

	PropRegisteredItems = "RegisteredItems"
	PropHostRegistered  = "HostRegistered"
)

// watcherExport is the bus-facing method table.
type watcherExport struct {
	broker *Broker
	log    zerolog.Logger
}

// RegisterStatusNotifierItem accepts one item registration. Malformed
// registrations are logged and ignored: the item simply never shows up.
func (w watcherExport) RegisterStatusNotifierItem(sender dbus.Sender, service string) *dbus.Error {
	if err := w.broker.Register(string(sender), service); err != nil {
		w.log.Warn().Err(err).
			Str("sender", string(sender)).
			Str("service", service).
			Msg("Registration ignored")
	}
	return nil
}

// ExportBroker claims the watcher name and exports the registration method,
// the two read-only properties and signal emission for the broker.
func ExportBroker(conn *dbus.Conn, broker *Broker, log zerolog.Logger) error {
	export := watcherExport{broker: broker, log: log}
	if err := conn.Export(export, WatcherPath, WatcherInterface); err != nil {
		return fmt.Errorf("export watcher: %w", err)
	}

	props, err := prop.Export(conn, WatcherPath, map[string]map[string]*prop.Prop{
		WatcherInterface: {
			PropRegisteredItems: {
				Value:    []string{},
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			PropHostRegistered: {
				Value:    true,
				Writable: false,
				Emit:     prop.EmitConst,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("export watcher properties: %w", err)
	}

	node := &introspect.Node{
		Name: string(WatcherPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:    WatcherInterface,
				Methods: introspect.Methods(export),
				Signals: []introspect.Signal{
					{Name: SignalItemRegistered, Args: []introspect.Arg{{Name: "identity", Type: "s"}}},
					{Name: SignalItemUnregistered, Args: []introspect.Arg{{Name: "identity", Type: "s"}}},
				},
			},
		},
	}
	err = conn.Export(introspect.NewIntrospectable(node), WatcherPath,
		"org.freedesktop.DBus.Introspectable")
	if err != nil {
		return fmt.Errorf("export introspection: %w", err)
	}

	broker.signal = func(member string, values ...interface{}) {
		if err := conn.Emit(WatcherPath, WatcherInterface+"."+member, values...); err != nil {
			log.Warn().Err(err).Str("signal", member).Msg("Signal dropped")
		}
		props.SetMust(WatcherInterface, PropRegisteredItems, broker.RegisteredItems())
	}

	reply, err := conn.RequestName(WatcherName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request name %s: %w", WatcherName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("another tray host owns %s", WatcherName)
	}
	return nil
}
