package loop

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"layerkeyd/internal/keycode"
	"layerkeyd/internal/layout"
	"layerkeyd/internal/platform"
	realprojector "layerkeyd/internal/projector"
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

func newTestLoop(t *testing.T, g *layout.Graph) (*Loop, *platform.SimOut) {
	t.Helper()
	out := platform.NewSimOut()
	proj := realprojector.New(out, g, nil)
	l := New(g, out, nil, proj, nil, "linux", nil)
	return l, out
}

func TestLoopDispatchesMappedKeyPressRelease(t *testing.T) {
	g := mustCompile(t, `
(defsrc a)
(deflayer base x)
`)
	l, out := newTestLoop(t, g)

	l.dispatch(press(keycode.A))
	l.tickOnce()
	require.Equal(t, []keycode.KeyCode{keycode.X}, out.Held())

	l.dispatch(release(keycode.A))
	l.tickOnce()
	require.Empty(t, out.Held())
}

func TestLoopPassesThroughUnmappedKey(t *testing.T) {
	g := mustCompile(t, `
(defsrc a)
(deflayer base x)
`)
	l, out := newTestLoop(t, g)

	l.dispatch(press(keycode.B)) // b was never declared in defsrc
	require.Equal(t, []keycode.KeyCode{keycode.B}, out.Held())

	l.dispatch(release(keycode.B))
	require.Empty(t, out.Held())
}

func TestLoopDebounceDropsBounceBeforeReachingEngine(t *testing.T) {
	g := mustCompile(t, `
(defcfg debounce-algorithm sym-eager-pk debounce-time-ms 5)
(defsrc a)
(deflayer base x)
`)
	l, out := newTestLoop(t, g)

	l.handleInputEvent(press(keycode.A))
	require.Equal(t, []keycode.KeyCode{keycode.X}, out.Held())

	// a bounced release arriving inside the debounce window is dropped;
	// the key stays logically held.
	l.handleInputEvent(release(keycode.A))
	require.Equal(t, []keycode.KeyCode{keycode.X}, out.Held())

	for i := 0; i < 10; i++ {
		l.tickOnce()
	}
	l.handleInputEvent(release(keycode.A))
	require.Empty(t, out.Held())
}

func TestLoopHardExitComboStopsRun(t *testing.T) {
	g := mustCompile(t, `
(defsrc a)
(deflayer base x)
`)
	l, _ := newTestLoop(t, g)

	l.handleInputEvent(press(keycode.LeftCtrl))
	l.handleInputEvent(press(keycode.Space))
	select {
	case <-l.done:
		t.Fatal("combo should not fire before all three keys are held")
	default:
	}
	l.handleInputEvent(press(keycode.Escape))

	select {
	case <-l.done:
	default:
		t.Fatal("expected done to be closed once Ctrl+Space+Escape are all held")
	}
}

func TestLoopRequestReloadSwapsGraph(t *testing.T) {
	gOld := mustCompile(t, `
(defsrc a)
(deflayer base x)
`)
	l, out := newTestLoop(t, gOld)

	dir := t.TempDir()
	path := filepath.Join(dir, "new.kbd")
	require.NoError(t, os.WriteFile(path, []byte("(defsrc a)\n(deflayer base y)\n"), 0o644))

	l.configPaths = []string{path}
	l.beginReload(path)
	l.performReload()

	l.dispatch(press(keycode.A))
	l.tickOnce()
	require.Equal(t, []keycode.KeyCode{keycode.Y}, out.Held())
}

func TestLoopLiveReloadCustomActionRequestsReload(t *testing.T) {
	g := mustCompile(t, `
(defsrc a)
(deflayer base (live-reload))
`)
	l, _ := newTestLoop(t, g)

	l.dispatch(press(keycode.A))
	l.tickOnce() // drains the CustomLiveReload action onto reloadRequests

	select {
	case path := <-l.reloadRequests:
		require.Empty(t, path, "no live-reload-file argument was given")
	default:
		t.Fatal("expected a reload request to be queued")
	}
}
