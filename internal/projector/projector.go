// Package projector is the output projector (C6): it turns the engine's
// held-keycode set and drained custom-action stream into calls against an
// platform.OsOut, diffing previous and current output on every sync so
// only the actual press/release delta reaches the OS (spec.md §4.5).
package projector

import (
	"layerkeyd/internal/keycode"
	"layerkeyd/internal/layout"
	"layerkeyd/internal/obslog"
	"layerkeyd/internal/platform"
)

// Projector owns the prev/cur key diffing state plus every cross-tick
// output concern the engine itself does not model: caps-word, unmod/
// unshift stripping, mouse movement/scroll interval-driven counters, and
// key repeat.
type Projector struct {
	out   platform.OsOut
	log   *obslog.Logger
	graph *layout.Graph

	prevKeys []keycode.KeyCode

	capsWord bool

	pendingUnmod   keycode.Set
	pendingUnshift keycode.Set

	moves   map[layout.MouseDirection]*moveState
	scrolls map[layout.MouseDirection]*scrollState

	quirks Quirks
}

type moveState struct {
	minDist, maxDist int
	accelTicks       int
	ticksActive      int
	accel            bool
}

type scrollState struct {
	intervalTicks int
	ticksLeft     int
}

// New builds a Projector bound to out, driven by g's KeyOutputs/Overrides
// and its defcfg Options until SwapGraph replaces it.
func New(out platform.OsOut, g *layout.Graph, log *obslog.Logger) *Projector {
	return &Projector{
		out:     out,
		log:     log,
		graph:   g,
		moves:   map[layout.MouseDirection]*moveState{},
		scrolls: map[layout.MouseDirection]*scrollState{},
		quirks:  quirksFromOptions(g.Options),
	}
}

// SwapGraph updates the compiled configuration a live reload replaced.
// In-flight mouse motion/scroll counters are intentionally preserved:
// a reload never interrupts a physically-held movemouse/scroll key.
func (p *Projector) SwapGraph(g *layout.Graph) {
	p.graph = g
	p.quirks = quirksFromOptions(g.Options)
}

// Sync runs one full projector cycle (spec.md §4.5 steps 1-6): collect,
// override, caps-word, unmod/unshift, diff, mouse.
func (p *Projector) Sync(curOutput []keycode.KeyCode, custom []layout.CustomAction) error {
	for _, ca := range custom {
		if err := p.applyCustom(ca); err != nil {
			return err
		}
	}

	cur := append([]keycode.KeyCode{}, curOutput...)
	cur = p.applyOverrides(cur)
	cur = p.applyCapsWord(cur)
	cur = p.applyUnmodUnshift(cur)
	cur = p.applyQuirksPre(cur)
	p.pendingUnmod = nil
	p.pendingUnshift = nil

	prev := p.prevKeys
	if err := p.diff(cur); err != nil {
		return err
	}
	if err := p.applyQuirksPost(prev, cur); err != nil {
		return err
	}
	return p.tickMouse()
}

// applyOverrides implements spec.md §4.3.6 / §4.5 step 2: at most one
// `defoverrides` pair applies per non-modifier trigger per tick — among
// every override whose InMods+InNonMod are all present in cur, the one
// whose InMods is the largest matching subset of active modifiers wins
// (longest-prefix). Every override is matched against the original
// pre-rewrite set, so one override's output can never feed another's match
// within the same tick.
func (p *Projector) applyOverrides(cur []keycode.KeyCode) []keycode.KeyCode {
	if len(p.graph.Overrides) == 0 {
		return cur
	}
	active := keycode.NewSet(cur...)

	best := map[keycode.KeyCode]layout.Override{}
	for _, ov := range p.graph.Overrides {
		if !active.Has(ov.InNonMod) {
			continue
		}
		matchedAllMods := true
		for m := range ov.InMods {
			if !active.Has(m) {
				matchedAllMods = false
				break
			}
		}
		if !matchedAllMods {
			continue
		}
		if existing, ok := best[ov.InNonMod]; !ok || len(ov.InMods) > len(existing.InMods) {
			best[ov.InNonMod] = ov
		}
	}
	if len(best) == 0 {
		return cur
	}

	set := keycode.NewSet(cur...)
	for _, ov := range best {
		set.Remove(ov.InNonMod)
		for m := range ov.InMods {
			set.Remove(m)
		}
		set.Add(ov.OutNonMod)
		for _, m := range ov.OutMods {
			set.Add(m)
		}
	}
	out := make([]keycode.KeyCode, 0, len(set))
	for _, k := range cur {
		if set.Has(k) {
			out = append(out, k)
		}
	}
	for k := range set {
		found := false
		for _, o := range out {
			if o == k {
				found = true
				break
			}
		}
		if !found {
			out = append(out, k)
		}
	}
	return out
}

// applyCapsWord implements spec.md §4.5 step 3: while caps-word is active,
// a capitalizable key gets a synthetic left-shift; a terminator key ends
// caps-word instead.
func (p *Projector) applyCapsWord(cur []keycode.KeyCode) []keycode.KeyCode {
	if !p.capsWord {
		return cur
	}
	needsShift := false
	for _, k := range cur {
		if isCapsWordTerminator(k) {
			p.capsWord = false
			return cur
		}
		if isCapitalizable(k) {
			needsShift = true
		}
	}
	if !needsShift {
		return cur
	}
	out := make([]keycode.KeyCode, 0, len(cur)+1)
	out = append(out, keycode.LeftShift)
	out = append(out, cur...)
	return out
}

func isCapitalizable(k keycode.KeyCode) bool {
	return k >= keycode.A && k <= keycode.Z
}

func isCapsWordTerminator(k keycode.KeyCode) bool {
	switch k {
	case keycode.Space, keycode.Enter, keycode.Tab, keycode.Escape:
		return true
	default:
		return false
	}
}

// applyUnmodUnshift implements spec.md §4.5 step 4: one-shot stripping of
// whichever keys a just-drained `unmod`/`unshift` custom action named,
// then re-inserting them so only this one sync cycle is affected.
func (p *Projector) applyUnmodUnshift(cur []keycode.KeyCode) []keycode.KeyCode {
	if len(p.pendingUnmod) == 0 && len(p.pendingUnshift) == 0 {
		return cur
	}
	strip := keycode.NewSet()
	for k := range p.pendingUnmod {
		strip.Add(k)
	}
	for k := range p.pendingUnshift {
		strip.Add(k)
	}
	out := make([]keycode.KeyCode, 0, len(cur))
	var removed []keycode.KeyCode
	for _, k := range cur {
		if strip.Has(k) {
			removed = append(removed, k)
			continue
		}
		out = append(out, k)
	}
	return append(out, removed...)
}

// diff implements spec.md §4.5 step 5: release anything in prevKeys not in
// cur, press anything in cur not in prevKeys, each in insertion order.
func (p *Projector) diff(cur []keycode.KeyCode) error {
	curSet := keycode.NewSet(cur...)
	prevSet := keycode.NewSet(p.prevKeys...)

	for _, k := range p.prevKeys {
		if !curSet.Has(k) {
			if err := p.out.ReleaseKey(k); err != nil {
				return err
			}
		}
	}
	for _, k := range cur {
		if !prevSet.Has(k) {
			if err := p.out.PressKey(k); err != nil {
				return err
			}
		}
	}
	p.prevKeys = cur
	return nil
}

// Repeat handles a physical Repeat event (spec.md §4.5 step 7): find the
// first KeyOutputs entry for the current layer whose output is currently
// held and re-emit it as an OS-level repeat.
func (p *Projector) Repeat(layerIdx int, physical keycode.KeyCode) error {
	outputs, ok := p.graph.KeyOutputs[layerIdx]
	if !ok {
		return nil
	}
	held := keycode.NewSet(p.prevKeys...)
	for _, out := range outputs[physical] {
		if held.Has(out) {
			return p.out.WriteKey(out)
		}
	}
	return nil
}
