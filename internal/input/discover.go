package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const procDevices = "/proc/bus/input/devices"

// keyA is the capability bit a real keyboard always advertises.
const keyA = 30

// ErrNoKeyboards is returned when discovery finds no usable keyboard source.
var ErrNoKeyboards = errors.New("no keyboard devices found")

// DeviceInfo identifies one discovered keyboard source.
type DeviceInfo struct {
	Name string
	Path string
}

// Discover lists keyboard sources from /proc/bus/input/devices. A device
// counts as a keyboard when its KEY capability bitmap includes KEY_A and it
// exposes an event handler.
func Discover() ([]DeviceInfo, error) {
	f, err := os.Open(procDevices)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", procDevices, err)
	}
	defer f.Close()

	infos, err := parseDevices(f)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, ErrNoKeyboards
	}
	return infos, nil
}

func parseDevices(r io.Reader) ([]DeviceInfo, error) {
	var (
		infos   []DeviceInfo
		name    string
		handler string
		isKbd   bool
	)

	flush := func() {
		if isKbd && handler != "" {
			infos = append(infos, DeviceInfo{Name: name, Path: "/dev/input/" + handler})
		}
		name, handler, isKbd = "", "", false
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "N: Name="):
			name = strings.Trim(strings.TrimPrefix(line, "N: Name="), `"`)

		case strings.HasPrefix(line, "H: Handlers="):
			for _, part := range strings.Fields(strings.TrimPrefix(line, "H: Handlers=")) {
				if strings.HasPrefix(part, "event") {
					handler = part
				}
			}

		case strings.HasPrefix(line, "B: KEY="):
			isKbd = hasKeyBit(strings.Fields(strings.TrimPrefix(line, "B: KEY=")), keyA)

		case line == "":
			flush()
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", procDevices, err)
	}
	return infos, nil
}

// hasKeyBit checks a capability bitmap as printed by the kernel: hex words,
// most significant first, 64 bits each.
func hasKeyBit(words []string, bit uint) bool {
	idx := int(bit / 64)
	if idx >= len(words) {
		return false
	}
	word, err := strconv.ParseUint(words[len(words)-1-idx], 16, 64)
	if err != nil {
		return false
	}
	return word&(1<<(bit%64)) != 0
}
