package engine

import (
	"fmt"

	"layerkeyd/internal/layout"
)

// FakeKeyAction names the four ways the control surface (C8) can drive a
// `deffakekeys`/`defvirtualkeys` slot from outside the normal key matrix
// (spec.md §6's `ActOnFakeKey`).
type FakeKeyAction int

const (
	FakeKeyPress FakeKeyAction = iota
	FakeKeyRelease
	FakeKeyTap
	FakeKeyToggle
)

// LayerNames returns every layer name in layer-index order: deflayer
// layers in file order, then deflayermap layers in file order.
func (e *Engine) LayerNames() []string {
	names := make([]string, len(e.graph.Layers))
	for i, l := range e.graph.Layers {
		names[i] = l.Name
	}
	return names
}

// CurrentLayerName is the deflayer name at the top of the momentary-layer
// stack.
func (e *Engine) CurrentLayerName() string {
	return e.graph.Layers[e.CurrentLayer()].Name
}

// ChangeLayer implements spec.md §6's `ChangeLayer{new}` control request:
// it replaces the persistent base layer the same way an `ActionDefaultLayer`
// cell does (engine.go's layerStack[0] slot), rather than pushing a
// momentary layer, so it survives every other layer popping off the stack.
func (e *Engine) ChangeLayer(idx int) error {
	if idx < 0 || idx >= len(e.graph.Layers) {
		return fmt.Errorf("engine: layer index %d out of range [0,%d)", idx, len(e.graph.Layers))
	}
	e.layerStack[0].layer = idx
	return nil
}

// virtualKeySlot resolves a `deffakekeys`/`defvirtualkeys` name to its slot
// index.
func (e *Engine) virtualKeySlot(name string) (int, bool) {
	slot, ok := e.graph.VirtualKeys[name]
	return slot, ok
}

// fakeKeyCoord mirrors sequence.go's tapVirtualKey convention: Row 1
// addresses the virtual-key slot namespace, distinct from Row 0's physical
// defsrc columns.
func fakeKeyCoord(slot int) layout.Coord {
	return layout.Coord{Row: 1, Col: uint16(slot)}
}

// ActOnFakeKey implements spec.md §6's `ActOnFakeKey{name, action}`: press,
// release, tap (press immediately followed by release), or toggle (flip
// whatever the slot's current binding state is) a named virtual key,
// exactly as if a `deflayer` cell bound to it had been struck.
func (e *Engine) ActOnFakeKey(name string, action FakeKeyAction) error {
	slot, ok := e.virtualKeySlot(name)
	if !ok {
		return fmt.Errorf("engine: unknown fake key %q", name)
	}
	coord := fakeKeyCoord(slot)

	switch action {
	case FakeKeyPress:
		e.Event(Event{Kind: EventPress, Coord: coord, Virtual: true})
	case FakeKeyRelease:
		e.Event(Event{Kind: EventRelease, Coord: coord, Virtual: true})
	case FakeKeyTap:
		e.Event(Event{Kind: EventPress, Coord: coord, Virtual: true})
		e.Event(Event{Kind: EventRelease, Coord: coord, Virtual: true})
	case FakeKeyToggle:
		if _, held := e.bindings[coord]; held {
			e.Event(Event{Kind: EventRelease, Coord: coord, Virtual: true})
		} else {
			e.Event(Event{Kind: EventPress, Coord: coord, Virtual: true})
		}
	default:
		return fmt.Errorf("engine: unknown fake key action %d", action)
	}
	return nil
}
