//go:build windows

package platform

import (
	"errors"

	"layerkeyd/internal/keycode"
)

// errNotImplemented is returned by every stubOut method: a full
// SendInput/low-level keyboard hook backend is out of scope per spec.md
// §1's Non-goals. This satisfies OsOut so the rest of the module builds
// and runs under `layerkeycheck`/tests on Windows; only a real daemon run
// needs the native implementation this stub calls out.
var errNotImplemented = errors.New("platform: windows OsOut is a stub; SendInput backend not implemented")

type stubOut struct{}

// NewOsOut returns the stub Windows backend.
//
// TODO(windows): replace with a backend built on SendInput (INPUT_KEYBOARD/
// INPUT_MOUSE) plus a WH_KEYBOARD_LL hook for input capture, applying the
// windows-altgr correction (spec.md §6) at the point SendInput is called.
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
