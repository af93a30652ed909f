package tray

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Menu provider endpoint, served by the application that owns the item.
const (
	MenuInterface = "tray.Menu"

	MenuMethodGetLayout = MenuInterface + ".GetLayout"
	MenuMethodEvent     = MenuInterface + ".Event"
	SignalLayoutUpdated = MenuInterface + ".LayoutUpdated"

	// menuEventClicked is the fixed event name sent back on activation.
	menuEventClicked = "clicked"
)

// MenuNode is one entry of the mirrored menu tree. Trees are rebuilt
// wholesale from GetLayout on every layout notification and never patched
// incrementally, so a node carries no identity beyond the provider's id.
type MenuNode struct {
	ID          int32
	Separator   bool
	Label       string
	Enabled     bool
	Visible     bool
	Toggle      bool
	ToggleState bool
	Children    []*MenuNode
}

var errBadLayout = errors.New("malformed menu layout")

// parseLayout decodes one GetLayout node: (id, properties, children).
func parseLayout(raw []interface{}) (*MenuNode, error) {
	if len(raw) != 3 {
		return nil, errBadLayout
	}
	id, ok := raw[0].(int32)
	if !ok {
		return nil, errBadLayout
	}
	props, ok := raw[1].(map[string]dbus.Variant)
	if !ok {
		return nil, errBadLayout
	}
	children, ok := raw[2].([]dbus.Variant)
	if !ok {
		return nil, errBadLayout
	}

	node := &MenuNode{
		ID:        id,
		Separator: propString(props, "type", "item") == "separator",
		Label:     propString(props, "label", ""),
		Enabled:   propBool(props, "enabled", true),
		Visible:   propBool(props, "visible", true),
	}

	// A reported toggle-type renders the entry as a switch driven by
	// toggle-state (1 = on).
	if propString(props, "toggle-type", "") != "" {
		node.Toggle = true
		node.ToggleState = propInt(props, "toggle-state", 0) == 1
	}

	for _, childVar := range children {
		childRaw, ok := childVar.Value().([]interface{})
		if !ok {
			return nil, errBadLayout
		}
		child, err := parseLayout(childRaw)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func propString(props map[string]dbus.Variant, key, def string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return def
}

func propBool(props map[string]dbus.Variant, key string, def bool) bool {
	if v, ok := props[key]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return def
}

func propInt(props map[string]dbus.Variant, key string, def int32) int32 {
	if v, ok := props[key]; ok {
		if n, ok := v.Value().(int32); ok {
			return n
		}
	}
	return def
}

// menuClient fetches layouts from and sends activations to one provider.
type menuClient struct {
	obj dbus.BusObject
}

func newMenuClient(conn *dbus.Conn, dest string, path dbus.ObjectPath) *menuClient {
	return &menuClient{obj: conn.Object(dest, path)}
}

// fetchLayout retrieves the full tree: root id 0, unbounded depth, no
// property filter.
func (m *menuClient) fetchLayout() (uint32, *MenuNode, error) {
	var revision uint32
	var raw []interface{}

	call := m.obj.Call(MenuMethodGetLayout, 0, int32(0), int32(-1), []string{})
	if call.Err != nil {
		return 0, nil, fmt.Errorf("GetLayout: %w", call.Err)
	}
	if err := call.Store(&revision, &raw); err != nil {
		return 0, nil, fmt.Errorf("GetLayout decode: %w", err)
	}

	root, err := parseLayout(raw)
	if err != nil {
		return 0, nil, err
	}
	return revision, root, nil
}

// activate sends the clicked event for one entry. The provider's next
// layout notification is the sole source of truth; nothing is updated
// locally.
func (m *menuClient) activate(id int32, timestamp uint32) error {
	call := m.obj.Call(MenuMethodEvent, 0, id, menuEventClicked, dbus.MakeVariant(""), timestamp)
	return call.Err
}
