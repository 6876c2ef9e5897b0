package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"layerkeyd/internal/keycode"
	"layerkeyd/internal/layout"
	"layerkeyd/internal/sexpr"
)

func mustCompile(t *testing.T, src string) *layout.Graph {
	t.Helper()
	res, err := sexpr.ReadSource("t.kbd", src, "linux")
	require.NoError(t, err)
	g, report := layout.Compile(res)
	require.False(t, report.HasErrors(), "%v", report.Diagnostics)
	return g
}

func coord(col int) layout.Coord { return layout.Coord{Row: 0, Col: uint16(col)} }

func TestEnginePlainKeyPressRelease(t *testing.T) {
	g := mustCompile(t, `
(defsrc a)
(deflayer base x)
`)
	e := New(g)
	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	require.Equal(t, []keycode.KeyCode{keycode.X}, e.Keycodes())
	e.Event(Event{Kind: EventRelease, Coord: coord(0)})
	require.Empty(t, e.Keycodes())
}

func TestEngineLayerWhileHeld(t *testing.T) {
	g := mustCompile(t, `
(defsrc a b)
(deflayer base (layer-while-held extra) _)
(deflayer extra _ y)
`)
	e := New(g)
	require.Equal(t, 0, e.CurrentLayer())
	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	require.Equal(t, 1, e.CurrentLayer())
	e.Event(Event{Kind: EventPress, Coord: coord(1)})
	require.Contains(t, e.Keycodes(), keycode.Y)
	e.Event(Event{Kind: EventRelease, Coord: coord(0)})
	require.Equal(t, 0, e.CurrentLayer())
}

func TestEngineLayerWhileHeldReleasedOutOfPressOrder(t *testing.T) {
	g := mustCompile(t, `
(defsrc a b c)
(deflayer base (layer-while-held one) (layer-while-held two) _)
(deflayer one _ _ _)
(deflayer two _ _ z)
`)
	e := New(g)
	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	require.Equal(t, 1, e.CurrentLayer())
	e.Event(Event{Kind: EventPress, Coord: coord(1)})
	require.Equal(t, 2, e.CurrentLayer())

	// Release in press order (not LIFO): the earlier frame (one) is popped
	// first, which must not desync the later frame's (two) own release.
	e.Event(Event{Kind: EventRelease, Coord: coord(0)})
	require.Equal(t, 2, e.CurrentLayer())
	e.Event(Event{Kind: EventRelease, Coord: coord(1)})
	require.Equal(t, 0, e.CurrentLayer())
}

func TestEngineHoldTapTapPath(t *testing.T) {
	g := mustCompile(t, `
(defsrc a)
(deflayer base (tap-hold 200 200 esc lsft))
`)
	e := New(g)
	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	require.Empty(t, e.Keycodes())
	e.Event(Event{Kind: EventRelease, Coord: coord(0)})
	require.Equal(t, []keycode.KeyCode{keycode.Escape}, e.Keycodes())
}

func TestEngineHoldTapHoldPathOnTimeout(t *testing.T) {
	g := mustCompile(t, `
(defsrc a)
(deflayer base (tap-hold 5 5 esc lsft))
`)
	e := New(g)
	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	for i := 0; i < 5; i++ {
		e.Tick()
	}
	require.Equal(t, []keycode.KeyCode{keycode.LeftShift}, e.Keycodes())
}

func TestEngineHoldTapHoldOnOtherKeyPress(t *testing.T) {
	g := mustCompile(t, `
(defsrc a b)
(deflayer base (tap-hold-press 200 200 esc lsft) y)
`)
	e := New(g)
	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	e.Event(Event{Kind: EventPress, Coord: coord(1)})
	e.Tick()
	require.Contains(t, e.Keycodes(), keycode.LeftShift)
}

func TestEngineHoldTapQuickRetapForcesTapPath(t *testing.T) {
	g := mustCompile(t, `
(defsrc a)
(deflayer base (tap-hold 200 50 esc lsft))
`)
	e := New(g)
	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	e.Event(Event{Kind: EventRelease, Coord: coord(0)})
	require.Equal(t, []keycode.KeyCode{keycode.Escape}, e.Keycodes())

	// Released and pressed again with no ticks elapsed (well inside the
	// 50-tick tap_hold_interval): must resolve via the tap path immediately
	// rather than rearming a wait.
	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	require.Nil(t, e.waiting, "a retap within tap_hold_interval must force the tap path, not rearm a wait")
	require.Contains(t, e.Keycodes(), keycode.Escape)
}

func TestEngineHoldTapRetapAfterIntervalRearmsWait(t *testing.T) {
	g := mustCompile(t, `
(defsrc a)
(deflayer base (tap-hold 200 2 esc lsft))
`)
	e := New(g)
	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	e.Event(Event{Kind: EventRelease, Coord: coord(0)})
	for i := 0; i < 5; i++ {
		e.Tick()
	}

	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	require.NotNil(t, e.waiting, "a retap after tap_hold_interval has elapsed should rearm a normal wait")
}

func TestEngineTapDanceLazy(t *testing.T) {
	g := mustCompile(t, `
(defsrc a)
(deflayer base (tap-dance 50 (esc lsft)))
`)
	e := New(g)
	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	e.Event(Event{Kind: EventRelease, Coord: coord(0)})
	for i := 0; i < 50; i++ {
		e.Tick()
	}
	require.Equal(t, []keycode.KeyCode{keycode.Escape}, e.Keycodes())
}

func TestEngineOneShotReleasesOnNextPress(t *testing.T) {
	g := mustCompile(t, `
(defsrc a b)
(deflayer base (one-shot 500 lsft) y)
`)
	e := New(g)
	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	require.Contains(t, e.Keycodes(), keycode.LeftShift)
	e.Event(Event{Kind: EventRelease, Coord: coord(0)})
	require.Contains(t, e.Keycodes(), keycode.LeftShift, "one-shot persists after trigger release")
	e.Event(Event{Kind: EventPress, Coord: coord(1)})
	require.Contains(t, e.Keycodes(), keycode.LeftShift, "still active through the triggering press")
	e.Event(Event{Kind: EventRelease, Coord: coord(1)})
	require.NotContains(t, e.Keycodes(), keycode.LeftShift)
}

func TestEngineChordFiresOnMatch(t *testing.T) {
	g := mustCompile(t, `
(defsrc a b)
(deflayer base (chord g k1) (chord g k2))
(defchords g (k1 k2)
  ((k1 k2) ret))
`)
	e := New(g)
	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	e.Event(Event{Kind: EventPress, Coord: coord(1)})
	require.Equal(t, []keycode.KeyCode{keycode.Enter}, e.Keycodes())
}

func TestEngineChordExpiresToPassthrough(t *testing.T) {
	g := mustCompile(t, `
(defcfg chords-v2-min-idle 3)
(defsrc a b)
(deflayer base (chord g k1) (chord g k2))
(defchordsv2-experimental g (k1 k2)
  ((k1 k2) ret))
`)
	e := New(g)
	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	for i := 0; i < 3; i++ {
		e.Tick()
	}
	require.Equal(t, []keycode.KeyCode{keycode.A}, e.Keycodes())
}

func TestEngineSwitchPicksFirstMatchingCase(t *testing.T) {
	g := mustCompile(t, `
(defsrc a b)
(deflayer base lsft (switch
  ((key lsft) x break)
  ((key lctl) y break)))
`)
	e := New(g)
	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	e.Event(Event{Kind: EventPress, Coord: coord(1)})
	require.Contains(t, e.Keycodes(), keycode.X)
	require.NotContains(t, e.Keycodes(), keycode.Y)
}

func TestEngineForkUsesRightWhenTriggerHeld(t *testing.T) {
	g := mustCompile(t, `
(defsrc a b)
(deflayer base lctl (fork x y (lctl)))
`)
	e := New(g)
	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	e.Event(Event{Kind: EventPress, Coord: coord(1)})
	require.Contains(t, e.Keycodes(), keycode.Y)
	require.NotContains(t, e.Keycodes(), keycode.X)
}
