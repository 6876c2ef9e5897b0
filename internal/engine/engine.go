// Package engine is the clocked state machine (C5): it consumes key
// press/release edges and a steady 1ms tick, and produces the set of
// currently-held output key codes plus a stream of custom (side-effectful)
// actions for the projector to fulfill.
package engine

import (
	"layerkeyd/internal/keycode"
	"layerkeyd/internal/layout"
)

// EventKind tags a physical input edge.
type EventKind int

const (
	EventPress EventKind = iota
	EventRelease
	EventRepeat
)

// Event is one physical or virtual input edge handed to Event().
type Event struct {
	Kind  EventKind
	Coord layout.Coord
	// Virtual is true when Coord addresses a fake/virtual key slot
	// (Coord.Row is unused, Coord.Col is the virtual key index) rather
	// than a physical defsrc column.
	Virtual bool
}

// outBinding records what a single input coordinate is currently holding
// open in the output, so its Release can undo exactly that and nothing
// else — layers push/pop, held keys refcount, waiting states resolve.
type outBinding struct {
	kind    bindingKind
	keys    []keycode.KeyCode // bindingKeys / bindingFork / bindingSwitch
	waiting *waitState         // bindingWaiting
	td      *tapDanceState     // bindingTapDance
	seq     *seqCursor         // bindingSequence
	custom  []layout.CustomAction
}

// layerFrame is one entry on the momentary-layer stack. coord ties a pushed
// frame back to the binding that pushed it, so releaseBinding can pop the
// matching frame by identity instead of by a position that goes stale
// whenever an earlier frame is removed out of order.
type layerFrame struct {
	layer int
	coord layout.Coord
}

type bindingKind int

const (
	bindNone bindingKind = iota
	bindKeys
	bindLayer
	bindWaiting
	bindTapDance
	bindSequence
	bindCustom
)

// Engine is the per-process layout state machine. One Engine instance owns
// exactly one *layout.Graph at a time; live reload swaps the pointer
// wholesale between ticks (spec.md §4.4 item 5).
type Engine struct {
	graph *layout.Graph

	layerStack []layerFrame // index 0 is always the persistent base layer
	bindings   map[layout.Coord]*outBinding

	held       []keycode.KeyCode    // cur output keys, insertion order
	heldRefs   map[keycode.KeyCode]int

	waiting        *waitState
	tapDanceEager  map[layout.Coord]*tapDanceState
	oneshot        *oneshotState
	chordGroups    map[string]*chordGroupState
	sequences      *sequenceState
	activePlayback []*seqCursor

	customOut []layout.CustomAction // drained once per tick by the loop

	ticksSinceIdle uint64
	clock          uint64 // monotonic tick count, never reset by activity

	// lastHoldTapRelease records, per trigger coord, the clock tick a
	// hold-tap's wait last resolved via an early release (a tap). A fresh
	// press of the same coord within that action's tap_hold_interval forces
	// the tap path again (spec.md §4.3.1's quick-tap-hold rule) instead of
	// rearming a wait.
	lastHoldTapRelease map[layout.Coord]uint64
}

// New builds an Engine bound to g, with the configuration's first declared
// layer active as the base layer.
func New(g *layout.Graph) *Engine {
	e := &Engine{
		graph:              g,
		layerStack:         []layerFrame{{layer: g.DefaultLayer}},
		bindings:           make(map[layout.Coord]*outBinding),
		heldRefs:           make(map[keycode.KeyCode]int),
		chordGroups:        make(map[string]*chordGroupState),
		lastHoldTapRelease: make(map[layout.Coord]uint64),
	}
	e.sequences = newSequenceState(g)
	for name, grp := range g.ChordGroups {
		e.chordGroups[name] = newChordGroupState(grp)
	}
	return e
}

// SwapGraph atomically replaces the compiled configuration. Per spec.md
// §4.4 the caller (event loop) is responsible for only calling this when
// the engine has no in-flight state (idle).
func (e *Engine) SwapGraph(g *layout.Graph) {
	e.graph = g
	e.layerStack = []layerFrame{{layer: g.DefaultLayer}}
	e.bindings = make(map[layout.Coord]*outBinding)
	e.heldRefs = make(map[keycode.KeyCode]int)
	e.held = nil
	e.waiting = nil
	e.tapDanceEager = nil
	e.oneshot = nil
	e.chordGroups = make(map[string]*chordGroupState)
	for name, grp := range g.ChordGroups {
		e.chordGroups[name] = newChordGroupState(grp)
	}
	e.sequences = newSequenceState(g)
	e.activePlayback = nil
	e.customOut = nil
	e.lastHoldTapRelease = make(map[layout.Coord]uint64)
}

// Graph returns the engine's currently active compiled configuration.
func (e *Engine) Graph() *layout.Graph { return e.graph }

// CurrentLayer is the top of the momentary-layer stack.
func (e *Engine) CurrentLayer() int { return e.layerStack[len(e.layerStack)-1].layer }

// Idle reports whether the engine has no reason to be ticked faster than
// the steady background rate (spec.md §4.4 step 2).
func (e *Engine) Idle() bool {
	return e.waiting == nil &&
		len(e.bindings) == 0 &&
		e.oneshot == nil &&
		len(e.activePlayback) == 0 &&
		!e.sequences.active &&
		!e.anyChordPending()
}

func (e *Engine) anyChordPending() bool {
	for _, st := range e.chordGroups {
		if len(st.pending) > 0 {
			return true
		}
	}
	return false
}

// Keycodes returns the currently held output keys in press order.
func (e *Engine) Keycodes() []keycode.KeyCode {
	out := make([]keycode.KeyCode, len(e.held))
	copy(out, e.held)
	return out
}

// DrainCustomEvents returns and clears the custom-action queue accumulated
// since the last drain (spec.md's `custom_event()`).
func (e *Engine) DrainCustomEvents() []layout.CustomAction {
	out := e.customOut
	e.customOut = nil
	return out
}

func (e *Engine) pressOutputKey(k keycode.KeyCode) {
	if e.heldRefs[k] == 0 {
		e.held = append(e.held, k)
	}
	e.heldRefs[k]++
	e.sequences.observePress(e, k)
}

func (e *Engine) releaseOutputKey(k keycode.KeyCode) {
	if e.heldRefs[k] == 0 {
		return
	}
	e.heldRefs[k]--
	if e.heldRefs[k] == 0 {
		for i, hk := range e.held {
			if hk == k {
				e.held = append(e.held[:i], e.held[i+1:]...)
				break
			}
		}
	}
}

func (e *Engine) heldSet() keycode.Set {
	s := keycode.NewSet()
	for _, k := range e.held {
		s.Add(k)
	}
	return s
}

func (e *Engine) emitCustom(a layout.CustomAction) {
	e.customOut = append(e.customOut, a)
}
