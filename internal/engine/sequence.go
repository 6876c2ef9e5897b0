package engine

import (
	"layerkeyd/internal/keycode"
	"layerkeyd/internal/layout"
)

// sequenceState is the defseq trie-matching mode (spec.md §4.3.5),
// distinct from macro/Sequence-action playback (seqCursor below). It
// begins when a SequenceLeader custom action fires and intercepts output
// key codes until it resolves, backtracks to nothing, or times out.
type sequenceState struct {
	graph     *layout.Graph
	active    bool
	mode      layout.SequenceInputMode
	timeout   uint16
	ticksLeft uint16
	path      []uint16
	charCount int // character-producing keys already emitted, for VisibleBackspaced
}

func newSequenceState(g *layout.Graph) *sequenceState {
	return &sequenceState{graph: g}
}

func (e *Engine) beginSequenceLeader(a layout.CustomAction) {
	e.sequences.active = true
	e.sequences.mode = a.SeqMode
	e.sequences.timeout = a.SeqTimeout
	e.sequences.ticksLeft = a.SeqTimeout
	e.sequences.path = nil
	e.sequences.charCount = 0
}

// observePress feeds an output keypress into the active sequence-trie
// matcher, if one is running. It must be called after the key has already
// been pressed in the output so VisibleBackspaced mode's live echo is
// correct.
func (s *sequenceState) observePress(e *Engine, k keycode.KeyCode) {
	if !s.active {
		return
	}
	s.path = append(s.path, uint16(k))
	s.charCount++
	s.ticksLeft = s.timeout
	e.evaluateSequencePath()
}

func (e *Engine) evaluateSequencePath() {
	s := e.sequences
	node, isLeaf, isPrefix := s.graph.Sequences.Lookup(s.path)
	if isLeaf {
		e.completeSequence(node.Leaf)
		return
	}
	if isPrefix {
		return
	}
	// Not a prefix: attempt a one-step backtrack by clearing modifier bits
	// in reverse (spec.md §4.3.5), then re-test once.
	for i := len(s.path) - 1; i >= 0; i-- {
		if s.path[i]&0xff00 != 0 {
			s.path[i] &^= 0xff00
			if node2, isLeaf2, isPrefix2 := s.graph.Sequences.Lookup(s.path); isLeaf2 {
				e.completeSequence(node2.Leaf)
				return
			} else if isPrefix2 {
				return
			}
			break
		}
	}
	e.cancelSequence(false)
}

func (e *Engine) completeSequence(vkIndex int) {
	s := e.sequences
	n := s.charCount
	s.active = false
	s.path = nil
	if s.mode == layout.SeqModeVisibleBackspaced {
		for i := 0; i < n; i++ {
			e.tapVirtualOrKey(keycode.Backspace)
		}
	}
	e.tapVirtualKey(vkIndex)
}

// cancelSequence ends sequence mode without a match, applying the input
// mode's post-cancel discipline (spec.md §4.3.5). timedOut distinguishes
// the two cancellation paths for callers that care; both behave the same.
func (e *Engine) cancelSequence(timedOut bool) {
	s := e.sequences
	switch s.mode {
	case layout.SeqModeHiddenDelayType:
		for _, code := range s.path {
			e.tapVirtualOrKey(keycode.KeyCode(code &^ 0xff00))
		}
	case layout.SeqModeHiddenSuppressed, layout.SeqModeVisibleBackspaced:
		// Nothing further to emit: Suppressed never echoed, and
		// VisibleBackspaced already echoed live as each key arrived.
	}
	s.active = false
	s.path = nil
}

func (e *Engine) tickSequenceLeader() {
	s := e.sequences
	if !s.active {
		return
	}
	if s.ticksLeft == 0 {
		e.cancelSequence(true)
		return
	}
	s.ticksLeft--
}

func (e *Engine) tapVirtualOrKey(k keycode.KeyCode) {
	e.pressOutputKey(k)
	e.releaseOutputKey(k)
}

func (e *Engine) tapVirtualKey(vkIndex int) {
	if vkIndex < 0 || vkIndex >= len(e.graph.VirtualKeyInv) {
		return
	}
	layerIdx := e.CurrentLayer()
	if layerIdx >= len(e.graph.Layers) || vkIndex >= len(e.graph.Layers[layerIdx].Virtual) {
		return
	}
	ref := e.graph.Layers[layerIdx].Virtual[vkIndex]
	coord := layout.Coord{Row: 1, Col: uint16(vkIndex)}
	e.resolveAndApply(coord, ref, true)
	e.resolveAndApply(coord, ref, false)
}

// --- macro playback (Sequence / RepeatableSequence actions) --------------

// seqCursor plays back a compiled macro's SeqEvent list over time.
type seqCursor struct {
	coord    layout.Coord
	events   []layout.SeqEvent
	pos      int
	delay    uint16
	repeat   bool
}

func (e *Engine) beginMacro(coord layout.Coord, act *layout.Action, repeat bool) {
	cur := &seqCursor{coord: coord, events: act.Sequence, repeat: repeat}
	e.activePlayback = append(e.activePlayback, cur)
	e.bindings[coord] = &outBinding{kind: bindSequence, seq: cur}
}

func (e *Engine) tickMacros() {
	var still []*seqCursor
	for _, cur := range e.activePlayback {
		if e.stepMacro(cur) {
			still = append(still, cur)
		}
	}
	e.activePlayback = still
}

// stepMacro advances one macro cursor by one tick, returning false once
// the cursor has finished (and, for non-repeating macros, should be
// dropped from activePlayback).
func (e *Engine) stepMacro(cur *seqCursor) bool {
	if cur.delay > 0 {
		cur.delay--
		return true
	}
	if cur.pos >= len(cur.events) {
		if cur.repeat {
			cur.pos = 0
		} else {
			delete(e.bindings, cur.coord)
			return false
		}
	}
	ev := cur.events[cur.pos]
	cur.pos++
	switch ev.Kind {
	case layout.SeqPress:
		e.pressOutputKey(ev.Key)
	case layout.SeqRelease:
		e.releaseOutputKey(ev.Key)
	case layout.SeqDelay:
		cur.delay = ev.DelayTicks
	case layout.SeqCustom:
		if ev.Custom != nil {
			e.emitCustom(*ev.Custom)
		}
	}
	return true
}

// cancelAllSequences stops every active macro cursor and trie-mode match,
// fulfilling the CancelSequences action.
func (e *Engine) cancelAllSequences() {
	for _, cur := range e.activePlayback {
		delete(e.bindings, cur.coord)
	}
	e.activePlayback = nil
	if e.sequences.active {
		e.cancelSequence(false)
	}
}
