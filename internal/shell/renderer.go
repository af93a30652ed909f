package shell

import (
	"github.com/rs/zerolog"

	"github.com/tapshell/tapshell/internal/tray"
)

// LogRenderer is the headless Renderer used when no toolkit is attached:
// it records what the indicator proxy would draw. The real shell binds its
// toolkit here.
type LogRenderer struct {
	Log zerolog.Logger
}

func (r LogRenderer) SetIcon(icon tray.Icon) {
	kind := "theme"
	if icon.Kind == tray.IconFile {
		kind = "file"
	}
	r.Log.Info().Str("kind", kind).Str("icon", icon.Value).Msg("Indicator icon")
}

func (r LogRenderer) SetMenu(root *tray.MenuNode) {
	r.Log.Info().Int("entries", len(root.Children)).Msg("Indicator menu rebuilt")
}

func (r LogRenderer) Remove() {
	r.Log.Info().Msg("Indicator removed")
}
