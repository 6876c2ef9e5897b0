package engine

import "layerkeyd/internal/layout"

// oneshotState is the single active one-shot latch (spec.md §4.3.3).
// kanata only supports one logically-active one-shot at a time; a second
// OneShot press while one is active is treated as the re-press case for
// the *PCancel variants and otherwise layers its inner action under the
// same latch.
type oneshotState struct {
	coord    layout.Coord
	inner    layout.ActionRef
	end      layout.OneShotEndConfig
	ticksLeft uint16
	armed    bool // true once the trigger itself has been released
}

func (e *Engine) beginOneShot(coord layout.Coord, act *layout.Action) {
	spec := act.OneShot
	if e.oneshot != nil && e.oneshot.coord == coord {
		if spec.End == layout.EndOnFirstPressPCancel || spec.End == layout.EndOnFirstReleasePCancel {
			e.endOneShot()
			return
		}
	}
	e.resolveAndApply(coord, spec.Inner, true)
	e.oneshot = &oneshotState{coord: coord, inner: spec.Inner, end: spec.End, ticksLeft: spec.Timeout}
}

// releaseOneShotTrigger is called when the physical key that began the
// one-shot is itself released; per spec.md, holding the trigger past
// timeout degrades it to an ordinary held action instead of latching.
func (e *Engine) releaseOneShotTrigger() {
	if e.oneshot != nil {
		e.oneshot.armed = true
	}
}

// observeOtherKeyEvent ends an active one-shot when a non-one-shot
// press/release happens, per its configured end condition.
func (e *Engine) observeOtherKeyEvent(press bool) {
	if e.oneshot == nil {
		return
	}
	switch e.oneshot.end {
	case layout.EndOnFirstPress, layout.EndOnFirstPressPCancel:
		if press {
			e.endOneShot()
		}
	case layout.EndOnFirstRelease, layout.EndOnFirstReleasePCancel:
		if !press {
			e.endOneShot()
		}
	}
}

func (e *Engine) tickOneShot() {
	if e.oneshot == nil {
		return
	}
	if !e.oneshot.armed {
		return // trigger still physically held: behaves as a normal hold
	}
	if e.oneshot.ticksLeft == 0 {
		e.endOneShot()
		return
	}
	e.oneshot.ticksLeft--
}

func (e *Engine) endOneShot() {
	if e.oneshot == nil {
		return
	}
	e.resolveAndApply(e.oneshot.coord, e.oneshot.inner, false)
	e.oneshot = nil
}
