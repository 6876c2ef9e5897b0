package engine

import "layerkeyd/internal/layout"

// waitState is the single in-flight hold-tap or lazy-tap-dance resolver
// (spec.md §4.3: "the single in-flight hold-tap/tap-dance-lazy/chord
// resolver"). Only one can be active at a time; a second HoldTap/TapDance
// press while one is waiting queues behind it and is re-driven once the
// first resolves.
type waitState struct {
	coord  layout.Coord
	action *layout.Action
	ticks  uint16
	queue  []layout.QueueEntry
	td     *tapDanceState // non-nil when this wait is a lazy tap-dance
}

type tapDanceState struct {
	count   int
	timeout uint16
}

// beginHoldTap arms a HoldTap action pressed at coord. If the same trigger
// was last released within its tap_hold_interval, the tap path is forced
// immediately instead of rearming a wait (spec.md §4.3.1 quick-tap-hold).
func (e *Engine) beginHoldTap(coord layout.Coord, act *layout.Action) {
	spec := act.HoldTap
	if spec.TapHoldInterval > 0 {
		if last, ok := e.lastHoldTapRelease[coord]; ok && e.clock-last <= uint64(spec.TapHoldInterval) {
			delete(e.lastHoldTapRelease, coord)
			e.resolveAndApply(coord, spec.Tap, true)
			return
		}
	}
	w := &waitState{coord: coord, action: act, ticks: spec.TimeoutTicks}
	e.waiting = w
	e.bindings[coord] = &outBinding{kind: bindWaiting, waiting: w}
}

// tickHoldTap advances one waiting HoldTap by one tick, committing on
// timeout or an early resolver decision (spec.md §4.3.1 steps 2-3).
func (e *Engine) tickHoldTap(w *waitState) {
	spec := w.action.HoldTap
	decision := e.resolveHoldTap(spec, w.queue)
	if decision == layout.DecisionNone {
		if w.ticks > 0 {
			w.ticks--
		}
		if w.ticks > 0 {
			return
		}
		if spec.TimeoutAction == layout.TimeoutTap {
			decision = layout.DecisionTap
		} else {
			decision = layout.DecisionHold
		}
	}
	e.commitHoldTap(w, decision)
}

func (e *Engine) resolveHoldTap(spec *layout.HoldTapSpec, queue []layout.QueueEntry) layout.ResolveDecision {
	switch spec.ResolverKind {
	case layout.ResolverHoldOnOtherKeyPress:
		for _, q := range queue {
			if q.Kind == layout.QueuePress {
				return layout.DecisionHold
			}
		}
	case layout.ResolverPermissiveHold:
		pressed := map[layout.Coord]bool{}
		for _, q := range queue {
			if q.Kind == layout.QueuePress {
				pressed[q.Coord] = true
			}
			if q.Kind == layout.QueueRelease && pressed[q.Coord] {
				return layout.DecisionTap
			}
		}
	case layout.ResolverCustom:
		if spec.Resolver != nil {
			return spec.Resolver.Resolve(queue)
		}
	}
	return layout.DecisionNone
}

func (e *Engine) commitHoldTap(w *waitState, decision layout.ResolveDecision) {
	e.waiting = nil
	delete(e.bindings, w.coord)

	var chosen layout.ActionRef
	switch decision {
	case layout.DecisionHold:
		chosen = w.action.HoldTap.Hold
	case layout.DecisionTap, layout.DecisionNoOpDecision:
		chosen = w.action.HoldTap.Tap
	default:
		chosen = w.action.HoldTap.Hold
	}
	if decision != layout.DecisionNoOpDecision {
		e.resolveAndApply(w.coord, chosen, true)
	}
	for _, q := range w.queue {
		e.replayQueueEntry(q)
	}
}

// replayQueueEntry re-drives a previously queued event once a hold-tap or
// tap-dance ahead of it has committed (spec.md §4.3.1 step 5).
func (e *Engine) replayQueueEntry(q layout.QueueEntry) {
	if q.Kind == layout.QueuePress {
		e.Event(Event{Kind: EventPress, Coord: q.Coord})
	} else {
		e.Event(Event{Kind: EventRelease, Coord: q.Coord})
	}
}

// releaseDuringWait handles the trigger key of a waiting HoldTap being
// released before resolution: commit tap immediately (spec.md §4.3.1 step
// 4), recording the tick for the tap_hold_interval quick-repeat rule.
func (e *Engine) releaseDuringWait(w *waitState) {
	e.lastHoldTapRelease[w.coord] = e.clock
	e.commitHoldTap(w, layout.DecisionTap)
}
