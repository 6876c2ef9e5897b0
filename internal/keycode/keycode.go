// Package keycode is the canonical enumeration of physical inputs: letters,
// digits, function keys, modifiers, navigation, numpad, media, mouse
// buttons, mouse wheel notches, and a block of virtual/fake-key slots. It
// carries a bidirectional mapping to a 16-bit platform-agnostic id and, for
// the subset that has one, a Linux evdev scancode.
package keycode

import "fmt"

// KeyCode is the closed enumeration of physical and virtual inputs (C1).
type KeyCode uint16

const (
	NoKey KeyCode = iota

	// Letters
	A
	B
	C
	D
	E
	F
	G
	H
	I
	J
	K
	L
	M
	N
	O
	P
	Q
	R
	S
	T
	U
	V
	W
	X
	Y
	Z

	// Digits (row, not numpad)
	Digit0
	Digit1
	Digit2
	Digit3
	Digit4
	Digit5
	Digit6
	Digit7
	Digit8
	Digit9

	// Modifiers
	LeftShift
	RightShift
	LeftCtrl
	RightCtrl
	LeftAlt
	RightAlt
	LeftMeta
	RightMeta

	// Whitespace / editing
	Space
	Tab
	Enter
	Backspace
	Escape
	CapsLock
	Delete
	Insert

	// Navigation
	Up
	Down
	Left
	Right
	Home
	End
	PageUp
	PageDown

	// Function row
	F1
	F2
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	F11
	F12

	// Numpad
	Numpad0
	Numpad1
	Numpad2
	Numpad3
	Numpad4
	Numpad5
	Numpad6
	Numpad7
	Numpad8
	Numpad9
	NumpadPlus
	NumpadMinus
	NumpadMultiply
	NumpadDivide
	NumpadEnter
	NumpadDot
	NumLock

	// Punctuation
	Minus
	Equal
	LeftBracket
	RightBracket
	Backslash
	Semicolon
	Quote
	Grave
	Comma
	Dot
	Slash

	// Media
	MediaPlayPause
	MediaNext
	MediaPrev
	MediaMute
	MediaVolumeUp
	MediaVolumeDown

	// Mouse buttons
	MouseLeft
	MouseRight
	MouseMiddle
	MouseButton4
	MouseButton5

	// Mouse wheel notches, one pseudo-key per direction
	MouseWheelUp
	MouseWheelDown
	MouseWheelLeft
	MouseWheelRight

	// firstVirtual marks the start of the fake-key block; everything from
	// here to lastKeyCode is reserved for deffakekeys/defvirtualkeys slots
	// and is never produced by a physical device.
	firstVirtual

	lastKeyCode = firstVirtual + MaxVirtualKeys - 1
)

// MaxVirtualKeys bounds how many fake-key slots a single configuration may
// declare (row 1 of the layer matrix).
const MaxVirtualKeys = 512

// VirtualKey returns the KeyCode for the i-th fake-key slot.
func VirtualKey(i int) KeyCode {
	return firstVirtual + KeyCode(i)
}

// IsVirtual reports whether k is a fake-key slot rather than a physical key.
func (k KeyCode) IsVirtual() bool {
	return k >= firstVirtual && k <= lastKeyCode
}

// VirtualIndex returns the fake-key slot index for a virtual KeyCode; ok is
// false if k is not virtual.
func (k KeyCode) VirtualIndex() (int, bool) {
	if !k.IsVirtual() {
		return 0, false
	}
	return int(k - firstVirtual), true
}

// IsMouseButton reports whether k is one of the mouse button pseudo-keys.
func (k KeyCode) IsMouseButton() bool {
	return k >= MouseLeft && k <= MouseButton5
}

// IsWheelNotch reports whether k is one of the four wheel-direction
// pseudo-keys.
func (k KeyCode) IsWheelNotch() bool {
	return k >= MouseWheelUp && k <= MouseWheelRight
}

// IsModifier reports whether k is a shift/ctrl/alt/meta key, used by the
// projector to build override mod-masks.
func (k KeyCode) IsModifier() bool {
	switch k {
	case LeftShift, RightShift, LeftCtrl, RightCtrl, LeftAlt, RightAlt, LeftMeta, RightMeta:
		return true
	default:
		return false
	}
}

var names = map[KeyCode]string{
	A: "a", B: "b", C: "c", D: "d", E: "e", F: "f", G: "g", H: "h", I: "i", J: "j",
	K: "k", L: "l", M: "m", N: "n", O: "o", P: "p", Q: "q", R: "r", S: "s", T: "t",
	U: "u", V: "v", W: "w", X: "x", Y: "y", Z: "z",
	Digit0: "0", Digit1: "1", Digit2: "2", Digit3: "3", Digit4: "4",
	Digit5: "5", Digit6: "6", Digit7: "7", Digit8: "8", Digit9: "9",
	LeftShift: "lsft", RightShift: "rsft", LeftCtrl: "lctl", RightCtrl: "rctl",
	LeftAlt: "lalt", RightAlt: "ralt", LeftMeta: "lmet", RightMeta: "rmet",
	Space: "spc", Tab: "tab", Enter: "ret", Backspace: "bspc", Escape: "esc",
	CapsLock: "caps", Delete: "del", Insert: "ins",
	Up: "up", Down: "down", Left: "left", Right: "rght",
	Home: "home", End: "end", PageUp: "pgup", PageDown: "pgdn",
	F1: "f1", F2: "f2", F3: "f3", F4: "f4", F5: "f5", F6: "f6",
	F7: "f7", F8: "f8", F9: "f9", F10: "f10", F11: "f11", F12: "f12",
	Numpad0: "kp0", Numpad1: "kp1", Numpad2: "kp2", Numpad3: "kp3", Numpad4: "kp4",
	Numpad5: "kp5", Numpad6: "kp6", Numpad7: "kp7", Numpad8: "kp8", Numpad9: "kp9",
	NumpadPlus: "kp+", NumpadMinus: "kp-", NumpadMultiply: "kp*", NumpadDivide: "kp/",
	NumpadEnter: "kprt", NumpadDot: "kp.", NumLock: "nlck",
	Minus: "-", Equal: "=", LeftBracket: "[", RightBracket: "]", Backslash: "\\",
	Semicolon: ";", Quote: "'", Grave: "`", Comma: ",", Dot: ".", Slash: "/",
	MediaPlayPause: "mplay", MediaNext: "mnext", MediaPrev: "mprev",
	MediaMute: "mute", MediaVolumeUp: "volu", MediaVolumeDown: "vold",
	MouseLeft: "mlft", MouseRight: "mrgt", MouseMiddle: "mmid",
	MouseButton4: "mbtn4", MouseButton5: "mbtn5",
	MouseWheelUp: "mwhup", MouseWheelDown: "mwhdn", MouseWheelLeft: "mwhlft", MouseWheelRight: "mwhrgt",
}

var byName = func() map[string]KeyCode {
	m := make(map[string]KeyCode, len(names))
	for k, n := range names {
		m[n] = k
	}
	return m
}()

// Name returns the canonical config-language spelling for k.
func (k KeyCode) Name() string {
	if n, ok := names[k]; ok {
		return n
	}
	if idx, ok := k.VirtualIndex(); ok {
		return fmt.Sprintf("vk%d", idx)
	}
	return fmt.Sprintf("keycode(%d)", uint16(k))
}

func (k KeyCode) String() string { return k.Name() }

// Lookup resolves a config-language atom to a KeyCode. ok is false for
// unknown names (the compiler turns that into a Semantic diagnostic).
func Lookup(name string) (KeyCode, bool) {
	k, ok := byName[name]
	return k, ok
}

// Set is a small set of KeyCodes (a map), used for chord key-sets, override
// modifier masks and fork triggers (spec.md §3 invariants: max 128 keys
// per chord group).
type Set map[KeyCode]struct{}

func NewSet(keys ...KeyCode) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s Set) Has(k KeyCode) bool {
	_, ok := s[k]
	return ok
}

func (s Set) Add(k KeyCode) { s[k] = struct{}{} }

func (s Set) Remove(k KeyCode) { delete(s, k) }

// Bitmask packs a Set into a 128-bit-capable mask represented as two
// uint64 words, used for chord group key-set comparisons (spec.md §3:
// "max 128 keys per group").
type Bitmask [2]uint64

func (s Set) Bitmask(index map[KeyCode]int) Bitmask {
	var m Bitmask
	for k := range s {
		i, ok := index[k]
		if !ok {
			continue
		}
		word, bit := i/64, uint(i%64)
		m[word] |= 1 << bit
	}
	return m
}

func (m Bitmask) Popcount() int {
	return popcount64(m[0]) + popcount64(m[1])
}

func popcount64(x uint64) int {
	n := 0
	for x != 0 {
		x &= x - 1
		n++
	}
	return n
}

// IsSubsetOf reports whether every bit set in m is also set in other.
func (m Bitmask) IsSubsetOf(other Bitmask) bool {
	return m[0]&^other[0] == 0 && m[1]&^other[1] == 0
}
