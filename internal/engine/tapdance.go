package engine

import "layerkeyd/internal/layout"

// beginTapDance handles the first press of a TapDance action. Lazy
// tap-dances share the single `waiting` slot with hold-taps (spec.md
// §4.3: "the single in-flight hold-tap/tap-dance-lazy/... resolver");
// eager tap-dances commit immediately and only track a reset window.
func (e *Engine) beginTapDance(coord layout.Coord, act *layout.Action) {
	spec := act.TapDance
	if spec.Eager {
		e.eagerTapDancePress(coord, act)
		return
	}
	w := &waitState{coord: coord, action: act, ticks: spec.TimeoutTicks, td: &tapDanceState{count: 1, timeout: spec.TimeoutTicks}}
	e.waiting = w
	e.bindings[coord] = &outBinding{kind: bindWaiting, waiting: w}
}

// continueTapDance handles a repeated press of the same trigger while a
// lazy tap-dance is waiting.
func (e *Engine) continueTapDance(w *waitState) {
	w.td.count++
	w.ticks = w.td.timeout
	if w.td.count >= len(w.action.TapDance.Actions) {
		e.commitTapDance(w)
	}
}

func (e *Engine) tickTapDance(w *waitState) {
	if w.ticks > 0 {
		w.ticks--
	}
	if w.ticks == 0 {
		e.commitTapDance(w)
	}
}

func (e *Engine) commitTapDance(w *waitState) {
	e.waiting = nil
	delete(e.bindings, w.coord)
	idx := w.td.count - 1
	actions := w.action.TapDance.Actions
	if idx >= len(actions) {
		idx = len(actions) - 1
	}
	if idx >= 0 {
		e.resolveAndApply(w.coord, actions[idx], true)
	}
	for _, q := range w.queue {
		e.replayQueueEntry(q)
	}
}

func (e *Engine) eagerTapDancePress(coord layout.Coord, act *layout.Action) {
	spec := act.TapDance
	if e.tapDanceEager == nil {
		e.tapDanceEager = map[layout.Coord]*tapDanceState{}
	}
	st, ok := e.tapDanceEager[coord]
	if !ok {
		st = &tapDanceState{count: 0, timeout: spec.TimeoutTicks}
		e.tapDanceEager[coord] = st
	}
	// A new eager tap supersedes whatever the previous tap count applied;
	// undo it before applying the new index.
	if b, ok := e.bindings[coord]; ok && b.kind == bindKeys {
		e.releaseBinding(coord)
	}
	st.count++
	st.timeout = spec.TimeoutTicks
	idx := st.count - 1
	if idx >= len(spec.Actions) {
		idx = len(spec.Actions) - 1
	}
	if idx >= 0 {
		e.resolveAndApply(coord, spec.Actions[idx], true)
	}
}

func (e *Engine) tickEagerTapDances() {
	for coord, st := range e.tapDanceEager {
		if st.timeout == 0 {
			delete(e.tapDanceEager, coord)
			continue
		}
		st.timeout--
	}
}
