//go:build linux

package keycode

// Linux evdev/uinput scancodes (linux/input-event-codes.h KEY_* values),
// grounded on the Linux keycode table in the uinput injection example this
// repo's platform backend is modeled after.
const (
	linuxKeyEsc       = 1
	linuxKeyBackspace = 14
	linuxKeyTab       = 15
	linuxKeyEnter     = 28
	linuxKeyLeftCtrl  = 29
	linuxKeyLeftShift = 42
	linuxKeyBackslash = 43
	linuxKeyRightShift = 54
	linuxKeySpace     = 57
	linuxKeyCapsLock  = 58
	linuxKeyLeftAlt   = 56
	linuxKeyRightAlt  = 100
	linuxKeyLeftMeta  = 125
	linuxKeyRightMeta = 126
	linuxKeyRightCtrl = 97

	linuxKeyMinus       = 12
	linuxKeyEqual       = 13
	linuxKeyLeftBracket = 26
	linuxKeyRightBracket = 27
	linuxKeySemicolon   = 39
	linuxKeyQuote       = 40
	linuxKeyGrave       = 41
	linuxKeyComma       = 51
	linuxKeyDot         = 52
	linuxKeySlash       = 53

	linuxKeyUp    = 103
	linuxKeyDown  = 108
	linuxKeyLeft  = 105
	linuxKeyRight = 106
	linuxKeyHome  = 102
	linuxKeyEnd   = 107
	linuxKeyPageUp   = 104
	linuxKeyPageDown = 109
	linuxKeyInsert   = 110
	linuxKeyDelete   = 111
)

var linuxKeyLetters = map[KeyCode]uint16{
	A: 30, B: 48, C: 46, D: 32, E: 18, F: 33, G: 34, H: 35, I: 23, J: 36,
	K: 37, L: 38, M: 50, N: 49, O: 24, P: 25, Q: 16, R: 19, S: 31, T: 20,
	U: 22, V: 47, W: 17, X: 45, Y: 21, Z: 44,
}

var linuxKeyDigits = map[KeyCode]uint16{
	Digit0: 11, Digit1: 2, Digit2: 3, Digit3: 4, Digit4: 5,
	Digit5: 6, Digit6: 7, Digit7: 8, Digit8: 9, Digit9: 10,
}

var linuxKeyFunction = map[KeyCode]uint16{
	F1: 59, F2: 60, F3: 61, F4: 62, F5: 63, F6: 64,
	F7: 65, F8: 66, F9: 67, F10: 68, F11: 87, F12: 88,
}

var linuxKeyNamed = map[KeyCode]uint16{
	Escape: linuxKeyEsc, Backspace: linuxKeyBackspace, Tab: linuxKeyTab,
	Enter: linuxKeyEnter, LeftCtrl: linuxKeyLeftCtrl, RightCtrl: linuxKeyRightCtrl,
	LeftShift: linuxKeyLeftShift, RightShift: linuxKeyRightShift,
	LeftAlt: linuxKeyLeftAlt, RightAlt: linuxKeyRightAlt,
	LeftMeta: linuxKeyLeftMeta, RightMeta: linuxKeyRightMeta,
	Backslash: linuxKeyBackslash, Space: linuxKeySpace, CapsLock: linuxKeyCapsLock,
	Minus: linuxKeyMinus, Equal: linuxKeyEqual,
	LeftBracket: linuxKeyLeftBracket, RightBracket: linuxKeyRightBracket,
	Semicolon: linuxKeySemicolon, Quote: linuxKeyQuote, Grave: linuxKeyGrave,
	Comma: linuxKeyComma, Dot: linuxKeyDot, Slash: linuxKeySlash,
	Up: linuxKeyUp, Down: linuxKeyDown, Left: linuxKeyLeft, Right: linuxKeyRight,
	Home: linuxKeyHome, End: linuxKeyEnd, PageUp: linuxKeyPageUp, PageDown: linuxKeyPageDown,
	Insert: linuxKeyInsert, Delete: linuxKeyDelete,
}

// ToLinuxScancode returns the evdev KEY_* code for k, if one exists.
func ToLinuxScancode(k KeyCode) (uint16, bool) {
	if sc, ok := linuxKeyLetters[k]; ok {
		return sc, true
	}
	if sc, ok := linuxKeyDigits[k]; ok {
		return sc, true
	}
	if sc, ok := linuxKeyFunction[k]; ok {
		return sc, true
	}
	if sc, ok := linuxKeyNamed[k]; ok {
		return sc, true
	}
	return 0, false
}

// FromLinuxScancode is the inverse of ToLinuxScancode, built once at init.
var fromLinuxScancode = func() map[uint16]KeyCode {
	m := make(map[uint16]KeyCode)
	for _, tbl := range []map[KeyCode]uint16{linuxKeyLetters, linuxKeyDigits, linuxKeyFunction, linuxKeyNamed} {
		for k, sc := range tbl {
			m[sc] = k
		}
	}
	return m
}()

func FromLinuxScancode(sc uint16) (KeyCode, bool) {
	k, ok := fromLinuxScancode[sc]
	return k, ok
}
