//go:build linux

package inject

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// uinput ioctl requests.
const (
	uiSetEvBit   = 0x40045564 // _IOW('U', 100, int)
	uiSetKeyBit  = 0x40045565 // _IOW('U', 101, int)
	uiDevSetup   = 0x405c5503 // _IOW('U', 3, struct uinput_setup)
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502

	evKey = 1
)

// uinputSetup mirrors struct uinput_setup: input_id, name[80],
// ff_effects_max.
type uinputSetup struct {
	BusType uint16
	Vendor  uint16
	Product uint16
	Version uint16
	Name    [80]byte
	Effects uint32
}

type uinputKeyboard struct {
	f *os.File
}

// newPlatformKeyboard creates a virtual keyboard that supports exactly the
// keys of the paste chord.
func newPlatformKeyboard() (keyboard, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/uinput: %w", err)
	}

	fd := int(f.Fd())
	if err := unix.IoctlSetInt(fd, uiSetEvBit, evKey); err != nil {
		f.Close()
		return nil, fmt.Errorf("UI_SET_EVBIT: %w", err)
	}
	for _, code := range []uint16{keyLeftCtrl, keyLeftShift, keyV, keyEnter} {
		if err := unix.IoctlSetInt(fd, uiSetKeyBit, int(code)); err != nil {
			f.Close()
			return nil, fmt.Errorf("UI_SET_KEYBIT %d: %w", code, err)
		}
	}

	setup := uinputSetup{BusType: 0x03} // BUS_USB
	copy(setup.Name[:], "tapshell virtual keyboard")
	if err := ioctlPtr(fd, uiDevSetup, unsafe.Pointer(&setup)); err != nil {
		f.Close()
		return nil, fmt.Errorf("UI_DEV_SETUP: %w", err)
	}
	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("UI_DEV_CREATE: %w", err)
	}

	return &uinputKeyboard{f: f}, nil
}

func (k *uinputKeyboard) emitKey(code uint16, press bool) error {
	if _, err := k.f.Write(encodeKeyEvent(code, press)); err != nil {
		return err
	}
	_, err := k.f.Write(encodeSynReport())
	return err
}

func (k *uinputKeyboard) close() error {
	unix.IoctlSetInt(int(k.f.Fd()), uiDevDestroy, 0)
	return k.f.Close()
}

func ioctlPtr(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
