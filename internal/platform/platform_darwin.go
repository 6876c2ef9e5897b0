//go:build darwin

package platform

import (
	"errors"

	"layerkeyd/internal/keycode"
)

// errNotImplemented is returned by every stubOut method: a full CGEventTap
// backend (native event tap + HID key translation) is out of scope per
// spec.md §1's Non-goals. This satisfies OsOut so the rest of the module
// builds and runs under `layerkeycheck`/tests on macOS; only a real daemon
// run needs the native implementation this stub calls out.
var errNotImplemented = errors.New("platform: darwin OsOut is a stub; CGEventTap backend not implemented")

type stubOut struct{}

// NewOsOut returns the stub darwin backend.
//
// TODO(darwin): replace with a CGEventTapCreate-based backend that posts
// CGEventCreateKeyboardEvent / CGEventPost for keys and
// CGEventCreateScrollWheelEvent / CGEventCreateMouseEvent for mouse.
func NewOsOut() (OsOut, error) { return &stubOut{}, nil }

func (s *stubOut) PressKey(k keycode.KeyCode) error      { return errNotImplemented }
func (s *stubOut) ReleaseKey(k keycode.KeyCode) error     { return errNotImplemented }
func (s *stubOut) WriteKey(k keycode.KeyCode) error       { return errNotImplemented }
func (s *stubOut) ClickButton(k keycode.KeyCode) error    { return errNotImplemented }
func (s *stubOut) ReleaseButton(k keycode.KeyCode) error  { return errNotImplemented }
func (s *stubOut) Scroll(dir MouseDirection, n int) error { return errNotImplemented }
func (s *stubOut) MoveMouse(dx, dy int) error             { return errNotImplemented }
func (s *stubOut) SetMouse(x, y int) error                { return errNotImplemented }
func (s *stubOut) SendUnicode(r rune) error                { return errNotImplemented }
func (s *stubOut) WriteCode(k keycode.KeyCode) error      { return errNotImplemented }
func (s *stubOut) Close() error                           { return nil }
