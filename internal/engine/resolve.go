package engine

import (
	"layerkeyd/internal/keycode"
	"layerkeyd/internal/layout"
)

// Event feeds one physical or virtual input edge into the engine
// (spec.md §4.3's `event(Press(r,c))`/`event(Release(r,c))`).
func (e *Engine) Event(ev Event) {
	e.ticksSinceIdle = 0
	if ev.Kind == EventRepeat {
		e.handleRepeat(ev.Coord)
		return
	}
	press := ev.Kind == EventPress

	// A waiting hold-tap/tap-dance absorbs every other coordinate's
	// events into its queue until it resolves (spec.md §4.3.1).
	if e.waiting != nil && ev.Coord != e.waiting.coord {
		if press && e.waiting.td != nil {
			// Another key's press commits a lazy tap-dance; the press is
			// then replayed behind the committed action.
			w := e.waiting
			w.queue = append(w.queue, layout.QueueEntry{Kind: layout.QueuePress, Coord: ev.Coord})
			e.commitTapDance(w)
			return
		}
		kind := layout.QueuePress
		if !press {
			kind = layout.QueueRelease
		}
		e.waiting.queue = append(e.waiting.queue, layout.QueueEntry{Kind: kind, Coord: ev.Coord})
		e.observeOtherKeyEvent(press)
		return
	}
	if e.waiting != nil && ev.Coord == e.waiting.coord {
		if !press {
			w := e.waiting
			if w.td != nil {
				// Releasing a lazy tap-dance trigger does not itself
				// commit; only another press, timeout, or the action
				// count ceiling does (spec.md §4.3.2).
				return
			}
			e.releaseDuringWait(w)
			return
		}
		if e.waiting.td != nil {
			e.continueTapDance(e.waiting)
		}
		return
	}

	if !press {
		e.observeOtherKeyEvent(false)
		e.handleRelease(ev.Coord)
		return
	}
	e.observeOtherKeyEvent(true)
	e.handlePress(ev.Coord, ev.Virtual)
}

func (e *Engine) handlePress(coord layout.Coord, virtual bool) {
	var ref layout.ActionRef
	if virtual {
		layerIdx := e.CurrentLayer()
		if int(coord.Col) < len(e.graph.Layers[layerIdx].Virtual) {
			ref = e.graph.Layers[layerIdx].Virtual[coord.Col]
		}
	} else {
		if int(coord.Col) >= len(e.graph.Defsrc) {
			return
		}
		ref = e.graph.Resolve(e.CurrentLayer(), int(coord.Col))
	}
	e.resolveAndApply(coord, ref, true)
}

func (e *Engine) handleRelease(coord layout.Coord) {
	if e.oneshot != nil && e.oneshot.coord == coord {
		e.releaseOneShotTrigger()
	}
	e.releaseBinding(coord)
}

func (e *Engine) handleRepeat(coord layout.Coord) {
	// Key-repeat is an output-level concern the projector fulfils by
	// replaying whichever output key the current binding produced
	// (spec.md §4.5 step 7); the engine itself has nothing to advance.
	_ = coord
}

// resolveAndApply lowers a compiled action into engine effects, binding
// whatever it opens to coord so a later release can undo exactly that.
func (e *Engine) resolveAndApply(coord layout.Coord, ref layout.ActionRef, press bool) {
	act := e.graph.At(ref)
	if !press {
		e.releaseBinding(coord)
		return
	}
	switch act.Kind {
	case layout.ActionNoOp, layout.ActionTransparent:
		// Resolve() already walked transparency away for layer cells;
		// a literal NoOp/Transparent reached here (alias, chord action,
		// macro step, ...) is simply inert.

	case layout.ActionKeyCode:
		e.pressOutputKey(act.Key)
		e.bindings[coord] = &outBinding{kind: bindKeys, keys: []keycode.KeyCode{act.Key}}

	case layout.ActionMultipleKeyCodes:
		for _, k := range act.Keys {
			e.pressOutputKey(k)
		}
		e.bindings[coord] = &outBinding{kind: bindKeys, keys: append([]keycode.KeyCode{}, act.Keys...)}

	case layout.ActionMultipleActions:
		var keys []keycode.KeyCode
		for _, child := range act.Children {
			keys = append(keys, e.applyNested(coord, child)...)
		}
		e.bindings[coord] = &outBinding{kind: bindKeys, keys: keys}

	case layout.ActionLayer:
		e.layerStack = append(e.layerStack, layerFrame{layer: act.Layer, coord: coord})
		e.bindings[coord] = &outBinding{kind: bindLayer}

	case layout.ActionDefaultLayer:
		e.layerStack[0].layer = act.Layer
		e.bindings[coord] = &outBinding{kind: bindNone}

	case layout.ActionHoldTap:
		e.beginHoldTap(coord, act)

	case layout.ActionTapDance:
		e.beginTapDance(coord, act)

	case layout.ActionOneShot:
		e.beginOneShot(coord, act)
		e.bindings[coord] = &outBinding{kind: bindNone}

	case layout.ActionChords:
		if !e.pressChordKey(coord, act.ChordGroup, act.ChordKeyName) {
			// Unknown/disabled group: pass the trigger key through inert.
			e.bindings[coord] = &outBinding{kind: bindNone}
		}

	case layout.ActionSequence:
		e.beginMacro(coord, act, false)
	case layout.ActionRepeatableSequence:
		e.beginMacro(coord, act, true)

	case layout.ActionCancelSequences:
		e.cancelAllSequences()
		e.bindings[coord] = &outBinding{kind: bindNone}

	case layout.ActionReleaseState:
		e.applyReleaseState(act.Release)
		e.bindings[coord] = &outBinding{kind: bindNone}

	case layout.ActionFork:
		held := e.heldSet()
		branch := act.Fork.Left
		if forkTriggered(held, act.Fork) {
			branch = act.Fork.Right
		}
		keys := e.applyNested(coord, branch)
		e.bindings[coord] = &outBinding{kind: bindKeys, keys: keys}

	case layout.ActionSwitch:
		e.applySwitch(coord, act.Switch)

	case layout.ActionCustom:
		for _, ca := range act.Custom {
			e.applyCustomPress(ca)
		}
		e.bindings[coord] = &outBinding{kind: bindCustom, custom: act.Custom}

	default:
		e.bindings[coord] = &outBinding{kind: bindNone}
	}
}

func forkTriggered(held keycode.Set, f *layout.ForkSpec) bool {
	for k := range f.RightTrigger {
		if held.Has(k) {
			return true
		}
	}
	return false
}

// applyNested resolves a child action as part of a compound parent
// (multi, fork branches) and returns the output keys it pressed so the
// parent's single binding can release them all together.
func (e *Engine) applyNested(coord layout.Coord, ref layout.ActionRef) []keycode.KeyCode {
	act := e.graph.At(ref)
	switch act.Kind {
	case layout.ActionKeyCode:
		e.pressOutputKey(act.Key)
		return []keycode.KeyCode{act.Key}
	case layout.ActionMultipleKeyCodes:
		for _, k := range act.Keys {
			e.pressOutputKey(k)
		}
		return append([]keycode.KeyCode{}, act.Keys...)
	case layout.ActionCustom:
		for _, ca := range act.Custom {
			e.applyCustomPress(ca)
		}
		return nil
	default:
		// Compound-of-compound (e.g. multi containing a layer action) is
		// resolved but not separately tracked for release beyond what
		// resolveAndApply already records via the outer binding.
		e.resolveAndApply(coord, ref, true)
		return nil
	}
}

func (e *Engine) applySwitch(coord layout.Coord, spec *layout.SwitchSpec) {
	held := e.heldSet()
	var keys []keycode.KeyCode
	for _, c := range spec.Cases {
		if !c.Predicate.Eval(held) {
			continue
		}
		keys = append(keys, e.applyNested(coord, c.Action)...)
		if !c.Fallthrough {
			break
		}
	}
	e.bindings[coord] = &outBinding{kind: bindKeys, keys: keys}
}

func (e *Engine) applyReleaseState(t layout.ReleaseTarget) {
	if t.IsLayer {
		for i := len(e.layerStack) - 1; i > 0; i-- {
			if e.layerStack[i].layer == t.Layer {
				e.layerStack = append(e.layerStack[:i], e.layerStack[i+1:]...)
				return
			}
		}
		return
	}
	e.releaseOutputKey(t.Key)
}

func (e *Engine) applyCustomPress(ca layout.CustomAction) {
	if ca.Kind == layout.CustomSequenceLeader {
		e.beginSequenceLeader(ca)
	}
	e.emitCustom(ca)
}

// releaseBinding undoes whatever resolveAndApply bound to coord.
func (e *Engine) releaseBinding(coord layout.Coord) {
	b, ok := e.bindings[coord]
	if !ok {
		return
	}
	delete(e.bindings, coord)
	switch b.kind {
	case bindKeys:
		for _, k := range b.keys {
			e.releaseOutputKey(k)
		}
	case bindLayer:
		// Pop by the coord that pushed this frame, not by stack position:
		// another held layer-while-held key earlier in the stack may have
		// already been released and removed, shifting every later index.
		for i := len(e.layerStack) - 1; i > 0; i-- {
			if e.layerStack[i].coord == coord {
				e.layerStack = append(e.layerStack[:i], e.layerStack[i+1:]...)
				break
			}
		}
	case bindWaiting:
		if e.waiting == b.waiting {
			e.releaseDuringWait(b.waiting)
		}
	case bindSequence:
		for i, cur := range e.activePlayback {
			if cur == b.seq {
				e.activePlayback = append(e.activePlayback[:i], e.activePlayback[i+1:]...)
				break
			}
		}
	case bindCustom:
		// Custom actions that need an explicit release edge (mouse
		// click/hold, caps-word toggle scoping, ...) re-emit the same
		// payload; DrainCustomEvents' caller distinguishes press from
		// release by call order, not by a field on CustomAction.
		for _, ca := range b.custom {
			e.emitCustom(ca)
		}
	}
}

// Tick advances every piece of timed state by exactly one millisecond
// (spec.md §4.3's external `tick()`).
func (e *Engine) Tick() {
	e.clock++
	e.ticksSinceIdle++
	if e.waiting != nil {
		if e.waiting.td != nil {
			e.tickTapDance(e.waiting)
		} else {
			e.tickHoldTap(e.waiting)
		}
	}
	e.tickEagerTapDances()
	e.tickOneShot()
	e.tickChordWindows()
	e.tickSequenceLeader()
	e.tickMacros()
}

// TicksSinceIdle is the per-tick idle counter input-event handlers reset
// (spec.md §4.4 item 6): fake-key "on-idle" actions compare against it.
func (e *Engine) TicksSinceIdle() uint64 { return e.ticksSinceIdle }
