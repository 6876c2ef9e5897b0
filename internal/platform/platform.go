// Package platform is the OS input/output boundary (C1/C6/C7): an
// abstract OsOut capability set the projector drives, an InputProvider
// the event loop reads from, and one concrete backend per target OS.
package platform

import "layerkeyd/internal/keycode"

// OsOut is the capability set the projector drives every sync (spec.md
// §4.6). Implementations must be safe to call from the single
// event-processing thread only; none of these may block longer than it
// takes to hand the event to the OS.
type OsOut interface {
	PressKey(k keycode.KeyCode) error
	ReleaseKey(k keycode.KeyCode) error
	WriteKey(k keycode.KeyCode) error // tap: press immediately followed by release

	ClickButton(k keycode.KeyCode) error
	ReleaseButton(k keycode.KeyCode) error

	Scroll(dir MouseDirection, notches int) error
	MoveMouse(dx, dy int) error
	SetMouse(x, y int) error

	SendUnicode(r rune) error

	// WriteCode passes an unmapped physical key through unchanged
	// (spec.md §4.6's "unmapped keys ... forwards them unchanged").
	WriteCode(k keycode.KeyCode) error

	Close() error
}

// MouseDirection mirrors layout.MouseDirection at the platform boundary
// so this package does not import internal/layout.
type MouseDirection int

const (
	DirUp MouseDirection = iota
	DirDown
	DirLeft
	DirRight
)

// InputEventKind tags a raw event read from an InputProvider.
type InputEventKind int

const (
	InputPress InputEventKind = iota
	InputRelease
	InputRepeat
)

// InputEvent is one raw event yielded by InputProvider.Read.
type InputEvent struct {
	Code  keycode.KeyCode
	Value InputEventKind
}

// InputProvider exposes a blocking read of raw OS input events (spec.md
// §4.6). Implementations run on their own thread and hand events to the
// event loop over a channel; Read itself is only ever called from that
// thread.
type InputProvider interface {
	Read() (InputEvent, error)
	Close() error
}
