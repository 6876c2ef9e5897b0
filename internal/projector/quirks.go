package projector

import (
	"layerkeyd/internal/config"
	"layerkeyd/internal/keycode"
)

// Quirks holds the small, named OS/compositor corrections spec.md §9
// explicitly assigns to the projector rather than the engine: neither
// changes what the engine resolves, only what reaches the OS.
type Quirks struct {
	LsftArrowkeyWorkaround bool
	WindowsAltgr           config.WindowsAltgr
}

func quirksFromOptions(o config.Options) Quirks {
	return Quirks{
		LsftArrowkeyWorkaround: o.LinuxLsftArrowkeyWorkaround,
		WindowsAltgr:           o.WindowsAltgr,
	}
}

// applyQuirksPre adjusts cur before the prev/cur diff runs: the
// windows-altgr cancel-lctl-press mode hides the Ctrl half of a physical
// AltGr press so it never reaches the OS as a separate Ctrl keystroke.
func (p *Projector) applyQuirksPre(cur []keycode.KeyCode) []keycode.KeyCode {
	if p.quirks.WindowsAltgr != config.AltgrCancelLctlPress {
		return cur
	}
	hasAltGr := false
	for _, k := range cur {
		if k == keycode.RightAlt {
			hasAltGr = true
			break
		}
	}
	if !hasAltGr {
		return cur
	}
	out := make([]keycode.KeyCode, 0, len(cur))
	for _, k := range cur {
		if k != keycode.LeftCtrl {
			out = append(out, k)
		}
	}
	return out
}

// applyQuirksPost runs extra OS-level key events the diff itself would not
// produce: windows-altgr's add-lctl-release mode synthesizes a trailing
// Ctrl release when AltGr is released, and the lsft-arrowkey workaround
// re-presses a still-held arrow key around a left-shift release so some
// terminal emulators don't latch a phantom shift-arrow selection.
func (p *Projector) applyQuirksPost(prev, cur []keycode.KeyCode) error {
	prevSet := keycode.NewSet(prev...)
	curSet := keycode.NewSet(cur...)

	if p.quirks.WindowsAltgr == config.AltgrAddLctlRelease {
		if prevSet.Has(keycode.RightAlt) && !curSet.Has(keycode.RightAlt) {
			if err := p.out.ReleaseKey(keycode.LeftCtrl); err != nil {
				return err
			}
		}
	}

	if p.quirks.LsftArrowkeyWorkaround {
		shiftReleased := (prevSet.Has(keycode.LeftShift) && !curSet.Has(keycode.LeftShift)) ||
			(prevSet.Has(keycode.RightShift) && !curSet.Has(keycode.RightShift))
		if shiftReleased {
			for _, arrow := range []keycode.KeyCode{keycode.Up, keycode.Down, keycode.Left, keycode.Right} {
				if curSet.Has(arrow) {
					if err := p.out.ReleaseKey(arrow); err != nil {
						return err
					}
					if err := p.out.PressKey(arrow); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
