//go:build !linux

package inject

import "errors"

func newPlatformKeyboard() (keyboard, error) {
	return nil, errors.New("virtual keyboard requires linux uinput")
}
