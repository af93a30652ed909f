//go:build linux

package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ErrDeviceGone is returned by a device stream when its source vanished
// (unplug, suspend/resume re-enumeration). It is a supervised-restart
// condition, never a crash.
var ErrDeviceGone = errors.New("input device gone")

// pollInterval bounds how long a read may block before the stream revisits
// its cancellation point. A supervisor-triggered group-cancel therefore
// lands within one interval.
const pollInterval = 250 * time.Millisecond

// Device is one open keyboard source.
type Device struct {
	info DeviceInfo
	f    *os.File
}

// OpenDevice opens the source non-blocking so the runtime poller can honor
// read deadlines; a plain blocking read would have no cancellation point.
func OpenDevice(info DeviceInfo) (*Device, error) {
	fd, err := unix.Open(info.Path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", info.Path, err)
	}
	return &Device{info: info, f: os.NewFile(uintptr(fd), info.Path)}, nil
}

// Name returns the kernel-reported device name.
func (d *Device) Name() string { return d.info.Name }

// Stream reads press/release edges into out until the context is cancelled
// or the device disappears. It owns the file handle and closes it on return.
func (d *Device) Stream(ctx context.Context, out chan<- KeyEvent) error {
	defer d.f.Close()

	buf := make([]byte, eventSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := d.f.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			return fmt.Errorf("deadline %s: %w", d.info.Path, err)
		}

		n, err := d.f.Read(buf)
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, syscall.ENODEV) {
				return fmt.Errorf("%w: %s", ErrDeviceGone, d.info.Name)
			}
			return fmt.Errorf("read %s: %w", d.info.Path, err)
		}
		if n < eventSize {
			continue
		}

		ev, ok := decodeEvent(buf, d.info.Name)
		if !ok {
			continue
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
