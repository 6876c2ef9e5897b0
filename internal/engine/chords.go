package engine

import (
	"layerkeyd/internal/keycode"
	"layerkeyd/internal/layout"
)

// chordGroupState tracks a single defchords group's in-flight press
// window (spec.md §4.3.4).
type chordGroupState struct {
	group   *layout.ChordGroup
	pending []pendingChordKey
	idle    uint16 // ticks remaining in the current window; 0 = no window open
}

type pendingChordKey struct {
	coord layout.Coord
	name  string
}

func newChordGroupState(g *layout.ChordGroup) *chordGroupState {
	return &chordGroupState{group: g}
}

// pressChordKey handles a physical press resolving to (chord GROUP KEY).
// Returns true if the press was absorbed into a pending chord window.
func (e *Engine) pressChordKey(coord layout.Coord, groupName, keyName string) bool {
	st, ok := e.chordGroups[groupName]
	if !ok {
		return false
	}
	if st.group.DisabledLayers[e.CurrentLayer()] {
		return false
	}
	st.pending = append(st.pending, pendingChordKey{coord: coord, name: keyName})
	st.idle = st.group.MinIdleTicks
	e.bindings[coord] = &outBinding{kind: bindCustom} // placeholder; resolved or passed-through on window close

	mask := e.chordMaskOf(st)
	if ref, ok := st.group.Chords[mask]; ok {
		e.fireChord(st, ref)
		return true
	}
	return true
}

func (e *Engine) chordMaskOf(st *chordGroupState) keycode.Bitmask {
	var mask keycode.Bitmask
	for _, p := range st.pending {
		idx, ok := st.group.KeyIndex[p.name]
		if !ok {
			continue
		}
		word, bit := idx/64, uint(idx%64)
		mask[word] |= 1 << bit
	}
	return mask
}

func (e *Engine) fireChord(st *chordGroupState, ref layout.ActionRef) {
	coords := make([]layout.Coord, 0, len(st.pending))
	for _, p := range st.pending {
		coords = append(coords, p.coord)
		delete(e.bindings, p.coord)
	}
	st.pending = nil
	st.idle = 0
	if len(coords) == 0 {
		return
	}
	anchor := coords[0]
	e.resolveAndApply(anchor, ref, true)
	for _, c := range coords[1:] {
		e.bindings[c] = &outBinding{kind: bindNone}
	}
}

// tickChordWindows counts down every open chord window, passing its keys
// through unchanged as ordinary presses if the window expires with no
// match (spec.md §4.3.4).
func (e *Engine) tickChordWindows() {
	for _, st := range e.chordGroups {
		if len(st.pending) == 0 {
			continue
		}
		if st.idle > 0 {
			st.idle--
		}
		if st.idle == 0 {
			e.expireChordWindow(st)
		}
	}
}

func (e *Engine) expireChordWindow(st *chordGroupState) {
	pending := st.pending
	st.pending = nil
	for _, p := range pending {
		delete(e.bindings, p.coord)
		if int(p.coord.Col) < len(e.graph.Defsrc) {
			e.pressOutputKey(e.graph.Defsrc[p.coord.Col])
			e.bindings[p.coord] = &outBinding{kind: bindKeys, keys: []keycode.KeyCode{e.graph.Defsrc[p.coord.Col]}}
		}
	}
}
