package tray

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variantProps(pairs map[string]interface{}) map[string]dbus.Variant {
	props := make(map[string]dbus.Variant, len(pairs))
	for k, v := range pairs {
		props[k] = dbus.MakeVariant(v)
	}
	return props
}

func rawNode(id int32, props map[string]interface{}, children ...[]interface{}) []interface{} {
	wrapped := make([]dbus.Variant, len(children))
	for i, c := range children {
		wrapped[i] = dbus.MakeVariant(c)
	}
	return []interface{}{id, variantProps(props), wrapped}
}

// sampleLayout mirrors what a provider returns for GetLayout(0, -1, []):
// a root with a plain entry, a separator, a checked toggle and a disabled
// hidden entry with one child.
func sampleLayout() []interface{} {
	return rawNode(0, map[string]interface{}{},
		rawNode(1, map[string]interface{}{"label": "Show/Hide"}),
		rawNode(2, map[string]interface{}{"type": "separator"}),
		rawNode(3, map[string]interface{}{
			"label":        "Auto-start",
			"toggle-type":  "checkmark",
			"toggle-state": int32(1),
		}),
		rawNode(4, map[string]interface{}{
			"label":   "Advanced",
			"enabled": false,
			"visible": false,
		}, rawNode(5, map[string]interface{}{"label": "Reset"})),
	)
}

func TestParseLayout(t *testing.T) {
	root, err := parseLayout(sampleLayout())
	require.NoError(t, err)

	assert.Equal(t, int32(0), root.ID)
	require.Len(t, root.Children, 4)

	plain := root.Children[0]
	assert.Equal(t, "Show/Hide", plain.Label)
	assert.True(t, plain.Enabled, "enabled defaults to true")
	assert.True(t, plain.Visible, "visible defaults to true")
	assert.False(t, plain.Separator)
	assert.False(t, plain.Toggle)

	assert.True(t, root.Children[1].Separator)

	toggle := root.Children[2]
	assert.True(t, toggle.Toggle)
	assert.True(t, toggle.ToggleState)

	hidden := root.Children[3]
	assert.False(t, hidden.Enabled)
	assert.False(t, hidden.Visible)
	require.Len(t, hidden.Children, 1)
	assert.Equal(t, "Reset", hidden.Children[0].Label)
}

func TestParseLayoutUncheckedToggle(t *testing.T) {
	root, err := parseLayout(rawNode(0, map[string]interface{}{
		"toggle-type":  "checkmark",
		"toggle-state": int32(0),
	}))
	require.NoError(t, err)
	assert.True(t, root.Toggle)
	assert.False(t, root.ToggleState)
}

// Rebuilding from an unchanged layout must produce structurally identical
// trees; rebuild-from-scratch may never drift.
func TestParseLayoutDeterministic(t *testing.T) {
	first, err := parseLayout(sampleLayout())
	require.NoError(t, err)
	second, err := parseLayout(sampleLayout())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParseLayoutMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  []interface{}
	}{
		{"wrong arity", []interface{}{int32(0)}},
		{"bad id type", []interface{}{"0", map[string]dbus.Variant{}, []dbus.Variant{}}},
		{"bad props type", []interface{}{int32(0), "props", []dbus.Variant{}}},
		{"bad children type", []interface{}{int32(0), map[string]dbus.Variant{}, "kids"}},
		{"bad child payload", []interface{}{int32(0), map[string]dbus.Variant{},
			[]dbus.Variant{dbus.MakeVariant("child")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseLayout(tt.raw)
			assert.ErrorIs(t, err, errBadLayout)
		})
	}
}

func TestResolveIcon(t *testing.T) {
	exists := func(path string) bool { return path == "/usr/share/icons/app.png" }

	assert.Equal(t, Icon{Kind: IconFile, Value: "/usr/share/icons/app.png"},
		ResolveIcon("/usr/share/icons/app.png", exists))

	// Absolute but missing on disk: fall through to theme resolution.
	assert.Equal(t, Icon{Kind: IconTheme, Value: "/nonexistent/app.png"},
		ResolveIcon("/nonexistent/app.png", exists))

	assert.Equal(t, Icon{Kind: IconTheme, Value: "application-default-icon"},
		ResolveIcon("application-default-icon", exists))
}
