package input

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ErrTopologyChanged is returned when a keyboard source appears or
// disappears under /dev/input. Like ErrDeviceGone it asks for a full
// supervised restart so the monitor re-enumerates a consistent device set.
var ErrTopologyChanged = errors.New("input topology changed")

const inputDir = "/dev/input"

// TopologyWatch is a Source that never yields events; it fails the
// supervisor group when the device set changes.
type TopologyWatch struct{}

// NewTopologyWatch returns a watch over /dev/input.
func NewTopologyWatch() *TopologyWatch { return &TopologyWatch{} }

// Name implements Source.
func (t *TopologyWatch) Name() string { return inputDir }

// Stream implements Source.
func (t *TopologyWatch) Stream(ctx context.Context, _ chan<- KeyEvent) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("inotify: %w", err)
	}
	defer w.Close()

	if err := w.Add(inputDir); err != nil {
		return fmt.Errorf("watch %s: %w", inputDir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return fmt.Errorf("%w: watch closed", ErrTopologyChanged)
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), "event") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove) != 0 {
				return fmt.Errorf("%w: %s %s", ErrTopologyChanged, ev.Op, ev.Name)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return fmt.Errorf("%w: watch closed", ErrTopologyChanged)
			}
			return fmt.Errorf("watch %s: %w", inputDir, err)
		}
	}
}
