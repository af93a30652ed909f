package input

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Source is one supervised event producer. Stream must reach a cancellation
// point at least once per bounded interval so a group-cancel completes
// promptly.
type Source interface {
	Name() string
	Stream(ctx context.Context, out chan<- KeyEvent) error
}

// Monitor supervises one task per source and funnels their events into a
// single serializing channel. The first source to fail cancels every
// sibling and Run returns that failure: a subset of working keyboards
// silently dropping triggers is worse than a clean restart, so the caller
// is expected to exit and let the service manager apply its restart
// backoff.
type Monitor struct {
	sources []Source
	events  chan KeyEvent
	log     zerolog.Logger
}

// NewMonitor creates a supervisor over the given sources.
func NewMonitor(sources []Source, log zerolog.Logger) *Monitor {
	return &Monitor{
		sources: sources,
		events:  make(chan KeyEvent, 64),
		log:     log,
	}
}

// Events is the unified ordered stream consumed by the detector loop.
func (m *Monitor) Events() <-chan KeyEvent {
	return m.events
}

// Run blocks until a source fails or ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if len(m.sources) == 0 {
		return ErrNoKeyboards
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, src := range m.sources {
		src := src
		g.Go(func() error {
			m.log.Info().Str("device", src.Name()).Msg("Monitoring started")
			err := src.Stream(ctx, m.events)
			if err != nil && !errors.Is(err, context.Canceled) {
				m.log.Warn().Err(err).Str("device", src.Name()).Msg("Source stopped")
			}
			return err
		})
	}
	return g.Wait()
}
