package projector

import (
	"os/exec"

	"layerkeyd/internal/config"
	"layerkeyd/internal/keycode"
	"layerkeyd/internal/layout"
)

// applyCustom fulfills one drained CustomAction (spec.md §4.4 step 4's
// custom_event() drain, dispatched here once per sync). LiveReload* and
// DynamicMacro* actions are intercepted by the event loop before they ever
// reach Sync (they need the raw input stream / reload machinery the
// projector does not have); seeing one here is a sign the loop forgot to
// filter it; skip it rather than replay the loop's record.
func (p *Projector) applyCustom(ca layout.CustomAction) error {
	switch ca.Kind {
	case layout.CustomMouseClick:
		return p.out.ClickButton(ca.MouseButton)
	case layout.CustomMouseRelease:
		return p.out.ReleaseButton(ca.MouseButton)
	case layout.CustomMouseSetPosition:
		return p.out.SetMouse(ca.X, ca.Y)
	case layout.CustomMouseMove:
		return p.toggleMove(ca, false)
	case layout.CustomMouseMoveAccel:
		return p.toggleMove(ca, true)
	case layout.CustomMouseScroll:
		return p.toggleScroll(ca)
	case layout.CustomUnicode:
		return p.emitUnicode(ca.Rune)
	case layout.CustomCmdExec:
		p.runCmd(ca.Command)
		return nil
	case layout.CustomCapsWordToggle:
		p.capsWord = !p.capsWord
		return nil
	case layout.CustomUnmod:
		if p.pendingUnmod == nil {
			p.pendingUnmod = ca.KeysToStrip
		} else {
			for k := range ca.KeysToStrip {
				p.pendingUnmod.Add(k)
			}
		}
		return nil
	case layout.CustomUnshift:
		if p.pendingUnshift == nil {
			p.pendingUnshift = ca.KeysToStrip
		} else {
			for k := range ca.KeysToStrip {
				p.pendingUnshift.Add(k)
			}
		}
		return nil
	case layout.CustomSequenceLeader,
		layout.CustomLiveReload, layout.CustomLiveReloadNext, layout.CustomLiveReloadPrev,
		layout.CustomDynamicMacroRecordStart, layout.CustomDynamicMacroRecordStop, layout.CustomDynamicMacroPlay:
		return nil
	default:
		return nil
	}
}

func (p *Projector) toggleMove(ca layout.CustomAction, accel bool) error {
	if _, active := p.moves[ca.Direction]; active {
		delete(p.moves, ca.Direction)
		return nil
	}
	p.moves[ca.Direction] = &moveState{
		minDist:    ca.MinDistance,
		maxDist:    ca.MaxDistance,
		accelTicks: ca.AccelTimeTicks,
		accel:      accel,
	}
	return nil
}

func (p *Projector) toggleScroll(ca layout.CustomAction) error {
	if _, active := p.scrolls[ca.Direction]; active {
		delete(p.scrolls, ca.Direction)
		return nil
	}
	p.scrolls[ca.Direction] = &scrollState{intervalTicks: ca.ScrollIntervalTicks}
	return nil
}

// emitUnicode normalizes the rune to NFC before dispatch (spec.md §4.5)
// and follows it with the configured termination keystroke so GTK/IBus's
// Ctrl+Shift+U hex entry commits (spec.md §6's linux-unicode-termination).
func (p *Projector) emitUnicode(r rune) error {
	nr := normalizeRune(r)
	if err := p.out.SendUnicode(nr); err != nil {
		return err
	}
	return p.terminateUnicode()
}

func (p *Projector) terminateUnicode() error {
	switch p.graph.Options.LinuxUnicodeTermination {
	case config.UnicodeTermSpace:
		return p.out.WriteKey(keycode.Space)
	case config.UnicodeTermEnterSpace:
		if err := p.out.WriteKey(keycode.Enter); err != nil {
			return err
		}
		return p.out.WriteKey(keycode.Space)
	case config.UnicodeTermSpaceEnter:
		if err := p.out.WriteKey(keycode.Space); err != nil {
			return err
		}
		return p.out.WriteKey(keycode.Enter)
	default: // config.UnicodeTermEnter and unset
		return p.out.WriteKey(keycode.Enter)
	}
}

func (p *Projector) runCmd(args []string) {
	if len(args) == 0 {
		return
	}
	cmd := exec.Command(args[0], args[1:]...)
	go func() {
		out, err := cmd.CombinedOutput()
		if p.log == nil {
			return
		}
		if err != nil {
			p.log.Warnf("cmd %v failed: %v (%s)", args, err, out)
		} else {
			p.log.Debugf("cmd %v: %s", args, out)
		}
	}()
}
