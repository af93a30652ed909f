// Package shell reacts to broadcast signals with the privileged compositor
// operations: cursor-relative placement on a trigger and the always-on-top
// toggle.
package shell

import (
	"github.com/rs/zerolog"

	"github.com/tapshell/tapshell/internal/compositor"
	"github.com/tapshell/tapshell/internal/placement"
)

// App is the shell host's signal consumer.
type App struct {
	comp compositor.Compositor
	log  zerolog.Logger
}

// New creates the shell application.
func New(comp compositor.Compositor, log zerolog.Logger) *App {
	return &App{comp: comp, log: log}
}

// OnTriggered places the application window at the cursor and raises it.
// When any placement query fails the window is activated where it is;
// a slightly misplaced window beats no window at all.
func (a *App) OnTriggered() {
	a.log.Debug().Msg("Trigger received")

	pos, ok := a.placementTarget()
	if ok {
		if err := a.comp.MoveWindow(pos.X, pos.Y); err != nil {
			a.log.Warn().Err(err).Msg("Move failed")
		}
	}

	if err := a.comp.ActivateWindow(); err != nil {
		a.log.Warn().Err(err).Msg("Activate failed")
	}
}

func (a *App) placementTarget() (placement.Point, bool) {
	cursor, err := a.comp.CursorPosition()
	if err != nil {
		a.log.Warn().Err(err).Msg("Cursor query failed")
		return placement.Point{}, false
	}
	area, err := a.comp.WorkArea()
	if err != nil {
		a.log.Warn().Err(err).Msg("Work area query failed")
		return placement.Point{}, false
	}
	w, h, err := a.comp.WindowFrame()
	if err != nil {
		a.log.Warn().Err(err).Msg("Window frame query failed")
		return placement.Point{}, false
	}

	return placement.Place(cursor.X, cursor.Y, w, h, area), true
}

// OnSetAlwaysOnTop grants or revokes the always-above privilege. Only this
// shell host may call it; the requesting application cannot.
func (a *App) OnSetAlwaysOnTop(enabled bool) {
	if err := a.comp.SetAlwaysAbove(enabled); err != nil {
		a.log.Warn().Err(err).Bool("enabled", enabled).Msg("Always-on-top failed")
	}
}
