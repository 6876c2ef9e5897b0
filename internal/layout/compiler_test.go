package layout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"layerkeyd/internal/keycode"
	"layerkeyd/internal/sexpr"
)

func compileSrc(t *testing.T, src string) *Graph {
	t.Helper()
	res, err := sexpr.ReadSource("test.kbd", src, "linux")
	require.NoError(t, err)
	g, report := Compile(res)
	require.False(t, report.HasErrors(), "unexpected diagnostics: %v", report.Diagnostics)
	require.NotNil(t, g)
	return g
}

func TestCompileMinimalLayer(t *testing.T) {
	g := compileSrc(t, `
(defsrc a b)
(deflayer base x y)
`)
	require.Len(t, g.Layers, 1)
	require.Equal(t, "base", g.Layers[0].Name)
	a0 := g.At(g.Layers[0].Physical[0])
	require.Equal(t, ActionKeyCode, a0.Kind)
	require.Equal(t, keycode.X, a0.Key)
}

func TestCompileAliasAndLayerSwitch(t *testing.T) {
	g := compileSrc(t, `
(defsrc a b)
(defalias nav (layer-while-held extra))
(deflayer base @nav _)
(deflayer extra x y)
`)
	base := g.Layers[0]
	act := g.At(base.Physical[0])
	require.Equal(t, ActionLayer, act.Kind)
	require.Equal(t, 1, act.Layer)
}

func TestCompileForwardLayerReferenceAllowed(t *testing.T) {
	g := compileSrc(t, `
(defsrc a)
(deflayer base (layer-while-held extra))
(deflayer extra x)
`)
	act := g.At(g.Layers[0].Physical[0])
	require.Equal(t, ActionLayer, act.Kind)
	require.Equal(t, 1, act.Layer)
}

func TestCompileTapHold(t *testing.T) {
	g := compileSrc(t, `
(defsrc a)
(deflayer base (tap-hold 200 200 esc lsft))
`)
	act := g.At(g.Layers[0].Physical[0])
	require.Equal(t, ActionHoldTap, act.Kind)
	require.Equal(t, uint16(200), act.HoldTap.TimeoutTicks)
	require.Equal(t, ResolverDefault, act.HoldTap.ResolverKind)
}

func TestCompileChordPlaceholder(t *testing.T) {
	g := compileSrc(t, `
(defsrc a b)
(deflayer base (chord mygroup k1) (chord mygroup k2))
(defchords mygroup (k1 k2)
  ((k1 k2) ret))
`)
	act := g.At(g.Layers[0].Physical[0])
	require.Equal(t, ActionChords, act.Kind)
	require.Equal(t, "mygroup", act.ChordGroup)
	require.Equal(t, "k1", act.ChordKeyName)
	require.Contains(t, g.ChordGroups, "mygroup")
}

func TestCompileDefseqRequiresVirtualKey(t *testing.T) {
	res, err := sexpr.ReadSource("test.kbd", `
(defsrc a)
(deflayer base a)
(defseq myseq (lctl a))
`, "linux")
	require.NoError(t, err)
	_, report := Compile(res)
	require.True(t, report.HasErrors())
}

func TestCompileDefseqWithVirtualKey(t *testing.T) {
	g := compileSrc(t, `
(defsrc a)
(defvirtualkeys myvk ret)
(deflayer base a)
(defseq myvk (lctl a))
`)
	require.Contains(t, g.VirtualKeys, "myvk")
	vk := g.VirtualKeys["myvk"]
	node, isLeaf, isPrefix := g.Sequences.Lookup([]uint16{uint16(keycode.LeftCtrl), uint16(keycode.A)})
	require.True(t, isPrefix)
	require.True(t, isLeaf)
	require.Equal(t, vk, node.Leaf)
}

func TestCompileDefoverrides(t *testing.T) {
	g := compileSrc(t, `
(defsrc a)
(deflayer base a)
(defoverrides
  ((lsft a) (b)))
`)
	require.Len(t, g.Overrides, 1)
	require.Equal(t, keycode.A, g.Overrides[0].InNonMod)
	require.Equal(t, keycode.B, g.Overrides[0].OutNonMod)
}

func TestCompileDuplicateDefsrcKeyIsError(t *testing.T) {
	res, err := sexpr.ReadSource("test.kbd", `(defsrc a a)`, "linux")
	require.NoError(t, err)
	_, report := Compile(res)
	require.True(t, report.HasErrors())
}

func TestCompileMacro(t *testing.T) {
	g := compileSrc(t, `
(defsrc a)
(deflayer base (macro h e l l o 200 (down lsft) w (up lsft)))
`)
	act := g.At(g.Layers[0].Physical[0])
	require.Equal(t, ActionSequence, act.Kind)
	require.NotEmpty(t, act.Sequence)
}

func TestCompileMultiCompactsToKeycodes(t *testing.T) {
	g := compileSrc(t, `
(defsrc a)
(deflayer base (multi lsft a))
`)
	act := g.At(g.Layers[0].Physical[0])
	require.Equal(t, ActionMultipleKeyCodes, act.Kind)
	require.Equal(t, []keycode.KeyCode{keycode.LeftShift, keycode.A}, act.Keys)
}

func TestCompileSwitchPredicate(t *testing.T) {
	g := compileSrc(t, `
(defsrc a)
(deflayer base (switch
  ((key lsft) b break)
  ((key lctl) c break)))
`)
	act := g.At(g.Layers[0].Physical[0])
	require.Equal(t, ActionSwitch, act.Kind)
	require.Len(t, act.Switch.Cases, 2)
	require.Equal(t, PredKey, act.Switch.Cases[0].Predicate.Op)
}

func TestCompileTemplateExpansion(t *testing.T) {
	g := compileSrc(t, `
(deftemplate hrm ($1 $2)
  (tap-hold 200 200 $1 $2))
(defsrc a)
(deflayer base (t hrm esc lsft))
`)
	act := g.At(g.Layers[0].Physical[0])
	require.Equal(t, ActionHoldTap, act.Kind)
}
