// Package daemon wires the input pipeline: monitor events in, detector
// decisions, trigger broadcasts out, plus the text-injection consumer.
package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tapshell/tapshell/internal/detect"
	"github.com/tapshell/tapshell/internal/inject"
	"github.com/tapshell/tapshell/internal/input"
)

// Trigger broadcasts one double-tap event.
type Trigger interface {
	EmitTriggered()
}

// Config collects the daemon's collaborators.
type Config struct {
	Monitor   *input.Monitor
	Publisher Trigger
	Injector  inject.Injector // nil when /dev/uinput is unavailable
	Logger    zerolog.Logger
}

// App runs the detector loop over the monitor's serialized event stream.
// Detector state is owned by that single loop; no other goroutine touches
// it, so Armed/Idle transitions cannot race.
type App struct {
	monitor  *input.Monitor
	pub      Trigger
	inj      inject.Injector
	detector *detect.Detector
	log      zerolog.Logger

	lastSeen time.Duration
}

// New creates the daemon application.
func New(cfg Config) *App {
	return &App{
		monitor:  cfg.Monitor,
		pub:      cfg.Publisher,
		inj:      cfg.Injector,
		detector: detect.New(),
		log:      cfg.Logger,
	}
}

// Run blocks until the supervisor reports a device failure or ctx is
// cancelled. The returned error is the restart condition.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.monitor.Run(ctx) })
	g.Go(func() error { return a.detectLoop(ctx) })
	return g.Wait()
}

// detectLoop feeds press edges to the detector and races a cancellable
// timer against the next press for window expiry. No polling: the timer is
// re-armed only when some key holds an Armed state.
func (a *App) detectLoop(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	rearm := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		deadline, ok := a.detector.Deadline()
		if !ok {
			return
		}
		wait := deadline - a.lastSeen
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-a.monitor.Events():
			if !ev.Pressed {
				continue // release edges are ignored
			}
			a.lastSeen = ev.Time
			if a.detector.OnPress(ev.Code, ev.Time) {
				a.log.Info().Str("device", ev.Device).Msg("Double-tap detected")
				a.pub.EmitTriggered()
			}
			rearm()

		case <-timer.C:
			if deadline, ok := a.detector.Deadline(); ok {
				a.detector.Expire(deadline + time.Nanosecond)
			}
			rearm()
		}
	}
}

// OnTypeText answers an inbound text-injection request. Failures are logged
// and dropped; the sender gets no acknowledgement either way.
func (a *App) OnTypeText() {
	if a.inj == nil {
		a.log.Warn().Msg("TypeText ignored, no virtual keyboard")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.inj.Paste(ctx); err != nil {
		a.log.Error().Err(err).Msg("Inject error")
	}
}
