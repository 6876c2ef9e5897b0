package projector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"layerkeyd/internal/config"
	"layerkeyd/internal/keycode"
	"layerkeyd/internal/layout"
	"layerkeyd/internal/platform"
)

func newTestGraph() *layout.Graph {
	return &layout.Graph{
		KeyOutputs: layout.KeyOutputs{},
	}
}

func TestProjectorSyncDiffsPressAndRelease(t *testing.T) {
	out := platform.NewSimOut()
	p := New(out, newTestGraph(), nil)

	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.A, keycode.B}, nil))
	require.ElementsMatch(t, []keycode.KeyCode{keycode.A, keycode.B}, out.Held())

	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.B, keycode.C}, nil))
	require.ElementsMatch(t, []keycode.KeyCode{keycode.B, keycode.C}, out.Held())

	require.Equal(t, []platform.SimEvent{
		{Kind: platform.SimPress, Key: keycode.A},
		{Kind: platform.SimPress, Key: keycode.B},
		{Kind: platform.SimRelease, Key: keycode.A},
		{Kind: platform.SimPress, Key: keycode.C},
	}, out.Events)
}

func TestProjectorSyncIsIdempotentOnUnchangedKeys(t *testing.T) {
	out := platform.NewSimOut()
	p := New(out, newTestGraph(), nil)

	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.A}, nil))
	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.A}, nil))

	require.Len(t, out.Events, 1, "second sync with no change must not re-press")
}

func TestProjectorApplyOverridesRewritesMatchedCombo(t *testing.T) {
	g := newTestGraph()
	g.Overrides = []layout.Override{
		{
			InMods:    keycode.NewSet(keycode.LeftShift),
			InNonMod:  keycode.Digit1,
			OutNonMod: keycode.F1,
		},
	}
	out := platform.NewSimOut()
	p := New(out, g, nil)

	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.LeftShift, keycode.Digit1}, nil))
	require.ElementsMatch(t, []keycode.KeyCode{keycode.F1}, out.Held())
}

func TestProjectorApplyOverridesLeavesUnmatchedComboAlone(t *testing.T) {
	g := newTestGraph()
	g.Overrides = []layout.Override{
		{
			InMods:    keycode.NewSet(keycode.LeftShift),
			InNonMod:  keycode.Digit1,
			OutNonMod: keycode.F1,
		},
	}
	out := platform.NewSimOut()
	p := New(out, g, nil)

	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.Digit1}, nil))
	require.ElementsMatch(t, []keycode.KeyCode{keycode.Digit1}, out.Held())
}

func TestProjectorApplyOverridesPicksLongestMatchingModifierPrefix(t *testing.T) {
	g := newTestGraph()
	g.Overrides = []layout.Override{
		{
			InMods:    keycode.NewSet(keycode.LeftShift),
			InNonMod:  keycode.Digit1,
			OutNonMod: keycode.F1,
		},
		{
			InMods:    keycode.NewSet(keycode.LeftShift, keycode.LeftCtrl),
			InNonMod:  keycode.Digit1,
			OutNonMod: keycode.F2,
		},
	}
	out := platform.NewSimOut()
	p := New(out, g, nil)

	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.LeftShift, keycode.LeftCtrl, keycode.Digit1}, nil))
	require.ElementsMatch(t, []keycode.KeyCode{keycode.F2}, out.Held())
}

func TestProjectorApplyOverridesDoesNotChainRewrittenOutputIntoAnotherMatch(t *testing.T) {
	g := newTestGraph()
	g.Overrides = []layout.Override{
		{
			InMods:    keycode.NewSet(keycode.LeftShift),
			InNonMod:  keycode.Digit1,
			OutNonMod: keycode.F1,
		},
		{
			// Would match if the first override's OutNonMod (F1) were fed
			// back in as an input within the same tick; it must not be.
			InMods:    keycode.NewSet(keycode.LeftShift),
			InNonMod:  keycode.F1,
			OutNonMod: keycode.F2,
		},
	}
	out := platform.NewSimOut()
	p := New(out, g, nil)

	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.LeftShift, keycode.Digit1}, nil))
	require.ElementsMatch(t, []keycode.KeyCode{keycode.F1}, out.Held())
}

func TestProjectorCapsWordShiftsCapitalizableKeys(t *testing.T) {
	out := platform.NewSimOut()
	p := New(out, newTestGraph(), nil)

	require.NoError(t, p.Sync(nil, []layout.CustomAction{{Kind: layout.CustomCapsWordToggle}}))
	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.A}, nil))
	require.ElementsMatch(t, []keycode.KeyCode{keycode.LeftShift, keycode.A}, out.Held())
}

func TestProjectorCapsWordEndsOnTerminator(t *testing.T) {
	out := platform.NewSimOut()
	p := New(out, newTestGraph(), nil)

	require.NoError(t, p.Sync(nil, []layout.CustomAction{{Kind: layout.CustomCapsWordToggle}}))
	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.Space}, nil))
	require.ElementsMatch(t, []keycode.KeyCode{keycode.Space}, out.Held())

	// caps-word is now off; a following letter gets no synthetic shift.
	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.A}, nil))
	require.ElementsMatch(t, []keycode.KeyCode{keycode.A}, out.Held())
}

func TestProjectorUnmodReordersStrippedKeyToEndForOneSyncOnly(t *testing.T) {
	out := platform.NewSimOut()
	p := New(out, newTestGraph(), nil)

	strip := keycode.NewSet(keycode.LeftShift)
	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.LeftShift, keycode.A},
		[]layout.CustomAction{{Kind: layout.CustomUnmod, KeysToStrip: strip}}))
	// both keys still reach the OS, but the named key is pushed to the
	// back of the batch for this one sync (re-inserted, not dropped).
	require.Equal(t, []platform.SimEvent{
		{Kind: platform.SimPress, Key: keycode.A},
		{Kind: platform.SimPress, Key: keycode.LeftShift},
	}, out.Events)

	// the reorder was one-shot; an unchanged follow-up sync presses nothing new.
	out.Events = nil
	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.LeftShift, keycode.A}, nil))
	require.Empty(t, out.Events)
}

func TestProjectorMouseClickAndRelease(t *testing.T) {
	out := platform.NewSimOut()
	p := New(out, newTestGraph(), nil)

	require.NoError(t, p.Sync(nil, []layout.CustomAction{{Kind: layout.CustomMouseClick, MouseButton: keycode.MouseLeft}}))
	require.NoError(t, p.Sync(nil, []layout.CustomAction{{Kind: layout.CustomMouseRelease, MouseButton: keycode.MouseLeft}}))

	require.Equal(t, []platform.SimEvent{
		{Kind: platform.SimClick, Key: keycode.MouseLeft},
		{Kind: platform.SimReleaseButton, Key: keycode.MouseLeft},
	}, out.Events)
}

func TestProjectorMouseMoveTogglesAndTicksDistance(t *testing.T) {
	out := platform.NewSimOut()
	p := New(out, newTestGraph(), nil)

	start := layout.CustomAction{Kind: layout.CustomMouseMove, Direction: layout.DirRight, MinDistance: 5, MaxDistance: 5}

	// starting the move also ticks it once in the same Sync call.
	require.NoError(t, p.Sync(nil, []layout.CustomAction{start}))
	require.Equal(t, []platform.SimEvent{{Kind: platform.SimMove, X: 5, Y: 0}}, out.Events)

	out.Events = nil
	require.NoError(t, p.Sync(nil, nil))
	require.Equal(t, []platform.SimEvent{{Kind: platform.SimMove, X: 5, Y: 0}}, out.Events, "movement continues every tick while active")

	// a second occurrence of the same direction toggles movement off
	// before tickMouse runs in that same call.
	out.Events = nil
	require.NoError(t, p.Sync(nil, []layout.CustomAction{start}))
	require.Empty(t, out.Events)
}

func TestProjectorMovemouseSmoothDiagonalsCombinesAxes(t *testing.T) {
	g := newTestGraph()
	g.Options.MovemouseSmoothDiagonals = true
	out := platform.NewSimOut()
	p := New(out, g, nil)

	right := layout.CustomAction{Kind: layout.CustomMouseMove, Direction: layout.DirRight, MinDistance: 3, MaxDistance: 3}
	down := layout.CustomAction{Kind: layout.CustomMouseMove, Direction: layout.DirDown, MinDistance: 4, MaxDistance: 4}
	require.NoError(t, p.Sync(nil, []layout.CustomAction{right, down}))

	require.Equal(t, []platform.SimEvent{{Kind: platform.SimMove, X: 3, Y: 4}}, out.Events)
}

func TestProjectorScrollFiresEveryIntervalTicks(t *testing.T) {
	out := platform.NewSimOut()
	p := New(out, newTestGraph(), nil)

	start := layout.CustomAction{Kind: layout.CustomMouseScroll, Direction: layout.DirDown, ScrollIntervalTicks: 2}

	// the scroll counter starts at zero, so it fires on the same Sync
	// call that starts it, then again every intervalTicks ticks after.
	require.NoError(t, p.Sync(nil, []layout.CustomAction{start}))
	require.Equal(t, []platform.SimEvent{{Kind: platform.SimScroll, Dir: platform.DirDown, N: 1}}, out.Events)

	out.Events = nil
	require.NoError(t, p.Sync(nil, nil)) // ticksLeft 2 -> 1
	require.Empty(t, out.Events)
	require.NoError(t, p.Sync(nil, nil)) // ticksLeft 1 -> 0
	require.Empty(t, out.Events)
	require.NoError(t, p.Sync(nil, nil)) // fires, resets ticksLeft
	require.Equal(t, []platform.SimEvent{{Kind: platform.SimScroll, Dir: platform.DirDown, N: 1}}, out.Events)
}

func TestProjectorUnicodeNormalizesAndTerminates(t *testing.T) {
	g := newTestGraph()
	g.Options.LinuxUnicodeTermination = config.UnicodeTermSpace
	out := platform.NewSimOut()
	p := New(out, g, nil)

	require.NoError(t, p.Sync(nil, []layout.CustomAction{{Kind: layout.CustomUnicode, Rune: 'e'}}))
	require.Equal(t, []platform.SimEvent{
		{Kind: platform.SimUnicode, Rune: 'e'},
		{Kind: platform.SimWrite, Key: keycode.Space},
	}, out.Events)
}

func TestProjectorRepeatEmitsFirstHeldPossibleOutput(t *testing.T) {
	g := newTestGraph()
	g.KeyOutputs[0] = map[keycode.KeyCode][]keycode.KeyCode{
		keycode.A: {keycode.X, keycode.Y},
	}
	out := platform.NewSimOut()
	p := New(out, g, nil)

	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.Y}, nil))
	out.Events = nil // discard the sync's own press

	require.NoError(t, p.Repeat(0, keycode.A))
	require.Equal(t, []platform.SimEvent{{Kind: platform.SimWrite, Key: keycode.Y}}, out.Events)
}

func TestProjectorRepeatNoOutputHeldIsNoop(t *testing.T) {
	g := newTestGraph()
	g.KeyOutputs[0] = map[keycode.KeyCode][]keycode.KeyCode{
		keycode.A: {keycode.X},
	}
	out := platform.NewSimOut()
	p := New(out, g, nil)

	require.NoError(t, p.Repeat(0, keycode.A))
	require.Empty(t, out.Events)
}

func TestProjectorWindowsAltgrCancelLctlHidesCtrl(t *testing.T) {
	g := newTestGraph()
	g.Options.WindowsAltgr = config.AltgrCancelLctlPress
	out := platform.NewSimOut()
	p := New(out, g, nil)

	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.LeftCtrl, keycode.RightAlt}, nil))
	require.ElementsMatch(t, []keycode.KeyCode{keycode.RightAlt}, out.Held())
}

func TestProjectorWindowsAltgrAddLctlReleaseOnAltGrRelease(t *testing.T) {
	g := newTestGraph()
	g.Options.WindowsAltgr = config.AltgrAddLctlRelease
	out := platform.NewSimOut()
	p := New(out, g, nil)

	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.RightAlt}, nil))
	out.Events = nil
	require.NoError(t, p.Sync(nil, nil))

	require.Equal(t, []platform.SimEvent{
		{Kind: platform.SimRelease, Key: keycode.RightAlt},
		{Kind: platform.SimRelease, Key: keycode.LeftCtrl},
	}, out.Events)
}

func TestProjectorLsftArrowkeyWorkaroundRepressesArrow(t *testing.T) {
	g := newTestGraph()
	g.Options.LinuxLsftArrowkeyWorkaround = true
	out := platform.NewSimOut()
	p := New(out, g, nil)

	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.LeftShift, keycode.Up}, nil))
	out.Events = nil
	require.NoError(t, p.Sync([]keycode.KeyCode{keycode.Up}, nil))

	require.Equal(t, []platform.SimEvent{
		{Kind: platform.SimRelease, Key: keycode.LeftShift},
		{Kind: platform.SimRelease, Key: keycode.Up},
		{Kind: platform.SimPress, Key: keycode.Up},
	}, out.Events)
}

func TestProjectorLiveReloadAndDynamicMacroActionsAreNoops(t *testing.T) {
	out := platform.NewSimOut()
	p := New(out, newTestGraph(), nil)

	kinds := []layout.CustomActionKind{
		layout.CustomLiveReload, layout.CustomLiveReloadNext, layout.CustomLiveReloadPrev,
		layout.CustomDynamicMacroRecordStart, layout.CustomDynamicMacroRecordStop, layout.CustomDynamicMacroPlay,
	}
	for _, k := range kinds {
		require.NoError(t, p.Sync(nil, []layout.CustomAction{{Kind: k}}))
	}
	require.Empty(t, out.Events, "loop-owned custom actions must not reach the OS boundary")
}

func TestProjectorSwapGraphPreservesInFlightMouseMotion(t *testing.T) {
	out := platform.NewSimOut()
	g1 := newTestGraph()
	p := New(out, g1, nil)

	start := layout.CustomAction{Kind: layout.CustomMouseMove, Direction: layout.DirRight, MinDistance: 2, MaxDistance: 2}
	require.NoError(t, p.Sync(nil, []layout.CustomAction{start}))

	g2 := newTestGraph()
	p.SwapGraph(g2)

	out.Events = nil
	require.NoError(t, p.Sync(nil, nil))
	require.Equal(t, []platform.SimEvent{{Kind: platform.SimMove, X: 2, Y: 0}}, out.Events)
}
