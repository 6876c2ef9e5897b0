//go:build linux

package platform

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"layerkeyd/internal/keycode"
)

// uinput ioctl/event constants (linux/uinput.h, linux/input-event-codes.h).
// Kept as local numeric constants rather than relying on names exported by
// golang.org/x/sys/unix, matching the evdev/uinput injection approach in
// other_examples/a53c024a_miken90-fkey__platforms-linux-core-uinput.go.go.
const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02

	synReport = 0

	relX     = 0x00
	relY     = 0x01
	relWheel = 0x08

	keyPress   = 1
	keyRelease = 0

	uinputMaxNameSize = 80
	uiSetEvbit        = 0x40045564
	uiSetKeybit       = 0x40045565
	uiSetRelbit       = 0x4004556a
	uiDevCreate       = 0x5501
	uiDevDestroy      = 0x5502
	uiDevSetup        = 0x405c5503
	busUSB            = 0x03
)

type uinputSetup struct {
	ID struct {
		Bustype uint16
		Vendor  uint16
		Product uint16
		Version uint16
	}
	Name      [uinputMaxNameSize]byte
	FFEffects uint32
}

type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// uinputOut is the Linux OsOut backend: a virtual /dev/uinput keyboard +
// relative-mouse device.
type uinputOut struct {
	fd int
}

// NewOsOut opens /dev/uinput and registers every evdev code layerkeyd
// might emit (spec.md §4.6, §1's Linux target).
func NewOsOut() (OsOut, error) {
	fd, err := unix.Open("/dev/uinput", unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("platform: open /dev/uinput: %w (is the user in the 'input' group?)", err)
	}
	d := &uinputOut{fd: fd}

	if err := d.ioctl(uiSetEvbit, evKey); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("platform: UI_SET_EVBIT(EV_KEY): %w", err)
	}
	if err := d.ioctl(uiSetEvbit, evRel); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("platform: UI_SET_EVBIT(EV_REL): %w", err)
	}
	for code := 0; code < 256; code++ {
		if err := d.ioctl(uiSetKeybit, uintptr(code)); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("platform: UI_SET_KEYBIT(%d): %w", code, err)
		}
	}
	for _, rel := range []uintptr{relX, relY, relWheel} {
		if err := d.ioctl(uiSetRelbit, rel); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("platform: UI_SET_RELBIT(%d): %w", rel, err)
		}
	}

	var setup uinputSetup
	setup.ID.Bustype = busUSB
	setup.ID.Vendor = 0x4b4b // "KK"
	setup.ID.Product = 0x0001
	setup.ID.Version = 1
	copy(setup.Name[:], "layerkeyd virtual input")
	if err := d.ioctlPtr(uiDevSetup, unsafe.Pointer(&setup)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("platform: UI_DEV_SETUP: %w", err)
	}
	if err := d.ioctl(uiDevCreate, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("platform: UI_DEV_CREATE: %w", err)
	}
	time.Sleep(100 * time.Millisecond) // let udev settle the device node

	return d, nil
}

func (d *uinputOut) ioctl(req, val uintptr) error {
	return unix.IoctlSetInt(d.fd, uint(req), int(val))
}

func (d *uinputOut) ioctlPtr(req uintptr, ptr unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(ptr))
	if errno != 0 {
		return errno
	}
	return nil
}

func (d *uinputOut) writeEvent(evType, code uint16, value int32) error {
	var tv unix.Timeval
	unix.Gettimeofday(&tv)
	ev := inputEvent{Time: tv, Type: evType, Code: code, Value: value}
	buf := (*[unsafe.Sizeof(ev)]byte)(unsafe.Pointer(&ev))[:]
	_, err := unix.Write(d.fd, buf)
	return err
}

func (d *uinputOut) sync() error {
	return d.writeEvent(evSyn, synReport, 0)
}

func (d *uinputOut) PressKey(k keycode.KeyCode) error {
	code, ok := keycode.ToLinuxScancode(k)
	if !ok {
		return nil
	}
	if err := d.writeEvent(evKey, code, keyPress); err != nil {
		return err
	}
	return d.sync()
}

func (d *uinputOut) ReleaseKey(k keycode.KeyCode) error {
	code, ok := keycode.ToLinuxScancode(k)
	if !ok {
		return nil
	}
	if err := d.writeEvent(evKey, code, keyRelease); err != nil {
		return err
	}
	return d.sync()
}

func (d *uinputOut) WriteKey(k keycode.KeyCode) error {
	if err := d.PressKey(k); err != nil {
		return err
	}
	return d.ReleaseKey(k)
}

func (d *uinputOut) ClickButton(k keycode.KeyCode) error { return d.PressKey(k) }

func (d *uinputOut) ReleaseButton(k keycode.KeyCode) error { return d.ReleaseKey(k) }

func (d *uinputOut) Scroll(dir MouseDirection, notches int) error {
	axis, sign := uint16(relWheel), int32(1)
	if dir == DirLeft || dir == DirRight {
		axis = relX
	}
	if dir == DirDown || dir == DirLeft {
		sign = -1
	}
	if err := d.writeEvent(evRel, axis, sign*int32(notches)); err != nil {
		return err
	}
	return d.sync()
}

func (d *uinputOut) MoveMouse(dx, dy int) error {
	if dx != 0 {
		if err := d.writeEvent(evRel, relX, int32(dx)); err != nil {
			return err
		}
	}
	if dy != 0 {
		if err := d.writeEvent(evRel, relY, int32(dy)); err != nil {
			return err
		}
	}
	return d.sync()
}

func (d *uinputOut) SetMouse(x, y int) error {
	// A uinput relative-motion device cannot warp the cursor to an
	// absolute position; layerkeyd's Linux backend approximates
	// SetMouse as a best-effort relative jump from (0,0), matching the
	// limitation documented for uinput-based injectors generally.
	return d.MoveMouse(x, y)
}

func (d *uinputOut) SendUnicode(r rune) error {
	// Linux unicode entry goes through the Ctrl+Shift+U IBus/GTK method;
	// the projector is responsible for the termination keystroke
	// (spec.md §6's linux-unicode-termination), this just types the
	// digits.
	if err := d.PressKey(keycode.LeftCtrl); err != nil {
		return err
	}
	if err := d.PressKey(keycode.LeftShift); err != nil {
		return err
	}
	if err := d.WriteKey(keycode.U); err != nil {
		return err
	}
	if err := d.ReleaseKey(keycode.LeftShift); err != nil {
		return err
	}
	if err := d.ReleaseKey(keycode.LeftCtrl); err != nil {
		return err
	}
	for _, h := range fmt.Sprintf("%x", r) {
		if err := d.WriteKey(hexDigitKey(h)); err != nil {
			return err
		}
	}
	return nil
}

func hexDigitKey(h rune) keycode.KeyCode {
	switch {
	case h >= '0' && h <= '9':
		return keycode.Digit0 + keycode.KeyCode(h-'0')
	case h >= 'a' && h <= 'f':
		return keycode.A + keycode.KeyCode(h-'a')
	}
	return keycode.Space
}

func (d *uinputOut) WriteCode(k keycode.KeyCode) error { return d.WriteKey(k) }

func (d *uinputOut) Close() error {
	d.ioctl(uiDevDestroy, 0)
	return unix.Close(d.fd)
}
