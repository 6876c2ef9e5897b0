package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"layerkeyd/internal/keycode"
)

func TestEngineLayerNamesAndCurrentLayerName(t *testing.T) {
	g := mustCompile(t, `
(defsrc a)
(deflayer base x)
(deflayer nav y)
`)
	e := New(g)
	require.Equal(t, []string{"base", "nav"}, e.LayerNames())
	require.Equal(t, "base", e.CurrentLayerName())
}

func TestEngineChangeLayerReplacesBaseLayer(t *testing.T) {
	g := mustCompile(t, `
(defsrc a)
(deflayer base x)
(deflayer nav y)
`)
	e := New(g)
	require.NoError(t, e.ChangeLayer(1))
	require.Equal(t, 1, e.CurrentLayer())
	require.Equal(t, "nav", e.CurrentLayerName())
}

func TestEngineChangeLayerOutOfRangeErrors(t *testing.T) {
	g := mustCompile(t, `
(defsrc a)
(deflayer base x)
`)
	e := New(g)
	require.Error(t, e.ChangeLayer(5))
	require.Error(t, e.ChangeLayer(-1))
}

func TestEngineChangeLayerSurvivesMomentaryLayerPop(t *testing.T) {
	// ChangeLayer writes layerStack[0], the persistent base, distinct from
	// the momentary layer-while-held push at layerStack[1:].
	g := mustCompile(t, `
(defsrc a b)
(deflayer base (layer-while-held extra) _)
(deflayer nav _ y)
(deflayer extra _ z)
`)
	e := New(g)
	require.NoError(t, e.ChangeLayer(1))
	e.Event(Event{Kind: EventPress, Coord: coord(0)})
	require.Equal(t, 2, e.CurrentLayer())
	e.Event(Event{Kind: EventRelease, Coord: coord(0)})
	require.Equal(t, 1, e.CurrentLayer())
}

func TestEngineActOnFakeKeyPressReleaseTap(t *testing.T) {
	g := mustCompile(t, `
(defsrc a)
(defvirtualkeys leader y)
(deflayer base x)
`)
	e := New(g)

	require.NoError(t, e.ActOnFakeKey("leader", FakeKeyPress))
	require.Contains(t, e.Keycodes(), keycode.Y)

	require.NoError(t, e.ActOnFakeKey("leader", FakeKeyRelease))
	require.NotContains(t, e.Keycodes(), keycode.Y)

	require.NoError(t, e.ActOnFakeKey("leader", FakeKeyTap))
	require.NotContains(t, e.Keycodes(), keycode.Y)
}

func TestEngineActOnFakeKeyToggle(t *testing.T) {
	g := mustCompile(t, `
(defsrc a)
(defvirtualkeys leader y)
(deflayer base x)
`)
	e := New(g)

	require.NoError(t, e.ActOnFakeKey("leader", FakeKeyToggle))
	require.Contains(t, e.Keycodes(), keycode.Y)

	require.NoError(t, e.ActOnFakeKey("leader", FakeKeyToggle))
	require.NotContains(t, e.Keycodes(), keycode.Y)
}

func TestEngineActOnFakeKeyUnknownNameErrors(t *testing.T) {
	g := mustCompile(t, `
(defsrc a)
(deflayer base x)
`)
	e := New(g)
	require.Error(t, e.ActOnFakeKey("ghost", FakeKeyTap))
}
