//go:build linux

package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"layerkeyd/internal/keycode"
)

// evdevInput reads raw key events from one or more /dev/input/eventN
// devices selected by name filter (spec.md §6's `linux-dev`,
// `linux-dev-names-include`/`-exclude`).
type evdevInput struct {
	fds    []int
	events chan InputEvent
	errs   chan error
	done   chan struct{}
}

// NewInputProvider opens every /dev/input/eventN device whose name passes
// the include/exclude filters (an empty includeNames reads every device)
// and fans their key events into one channel.
func NewInputProvider(includeNames, excludeNames []string) (InputProvider, error) {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, fmt.Errorf("platform: glob /dev/input: %w", err)
	}
	in := &evdevInput{
		events: make(chan InputEvent, 100),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	opened := 0
	for _, p := range paths {
		name, err := deviceName(p)
		if err != nil {
			continue
		}
		if !deviceMatches(name, includeNames, excludeNames) {
			continue
		}
		fd, err := unix.Open(p, unix.O_RDONLY, 0)
		if err != nil {
			continue
		}
		in.fds = append(in.fds, fd)
		opened++
		go in.readLoop(fd)
	}
	if opened == 0 {
		return nil, fmt.Errorf("platform: no matching /dev/input device found (include=%v exclude=%v)", includeNames, excludeNames)
	}
	return in, nil
}

func deviceName(devicePath string) (string, error) {
	base := filepath.Base(devicePath)
	nameFile := filepath.Join("/sys/class/input", base, "device", "name")
	b, err := os.ReadFile(nameFile)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func deviceMatches(name string, include, exclude []string) bool {
	for _, ex := range exclude {
		if strings.Contains(name, ex) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, in := range include {
		if strings.Contains(name, in) {
			return true
		}
	}
	return false
}

func (in *evdevInput) readLoop(fd int) {
	buf := make([]byte, 24) // sizeof(struct input_event) on 64-bit
	for {
		n, err := unix.Read(fd, buf)
		select {
		case <-in.done:
			return
		default:
		}
		if err != nil || n < len(buf) {
			select {
			case in.errs <- err:
			default:
			}
			return
		}
		typ := uint16(buf[16]) | uint16(buf[17])<<8
		code := uint16(buf[18]) | uint16(buf[19])<<8
		value := int32(buf[20]) | int32(buf[21])<<8 | int32(buf[22])<<16 | int32(buf[23])<<24
		if typ != evKey {
			continue
		}
		k, ok := keycode.FromLinuxScancode(code)
		if !ok {
			continue
		}
		var kind InputEventKind
		switch value {
		case keyPress:
			kind = InputPress
		case keyRelease:
			kind = InputRelease
		default:
			kind = InputRepeat
		}
		select {
		case in.events <- InputEvent{Code: k, Value: kind}:
		case <-in.done:
			return
		}
	}
}

func (in *evdevInput) Read() (InputEvent, error) {
	select {
	case ev := <-in.events:
		return ev, nil
	case err := <-in.errs:
		return InputEvent{}, err
	case <-in.done:
		return InputEvent{}, errClosed
	}
}

func (in *evdevInput) Close() error {
	close(in.done)
	for _, fd := range in.fds {
		unix.Close(fd)
	}
	return nil
}
