package loop

import (
	"fmt"

	"layerkeyd/internal/control"
	"layerkeyd/internal/engine"
)

// controlOp is one control-surface request marshalled onto the loop's
// single owning goroutine (spec.md §5: exactly one goroutine ever touches
// engine/projector state). Every control.Backend method on *Loop below is
// a thin synchronous-looking wrapper around dispatchControl, so a
// control-surface client's own goroutine never calls into the engine or
// projector directly.
type controlOp struct {
	do    func(l *Loop) controlResult
	reply chan controlResult
}

type controlResult struct {
	err   error
	value any
}

var errLoopStopped = fmt.Errorf("loop: stopped")

func (l *Loop) dispatchControl(do func(l *Loop) controlResult) controlResult {
	reply := make(chan controlResult, 1)
	select {
	case l.controlOps <- controlOp{do: do, reply: reply}:
	case <-l.done:
		return controlResult{err: errLoopStopped}
	}
	select {
	case res := <-reply:
		return res
	case <-l.done:
		return controlResult{err: errLoopStopped}
	}
}

var _ control.Backend = (*Loop)(nil)

func (l *Loop) LayerNames() []string {
	res := l.dispatchControl(func(l *Loop) controlResult {
		return controlResult{value: l.eng.LayerNames()}
	})
	names, _ := res.value.([]string)
	return names
}

func (l *Loop) CurrentLayerName() string {
	res := l.dispatchControl(func(l *Loop) controlResult {
		return controlResult{value: l.eng.CurrentLayerName()}
	})
	name, _ := res.value.(string)
	return name
}

func (l *Loop) CurrentLayerIndex() int {
	res := l.dispatchControl(func(l *Loop) controlResult {
		return controlResult{value: l.eng.CurrentLayer()}
	})
	idx, _ := res.value.(int)
	return idx
}

// ChangeLayer implements spec.md §6's `ChangeLayer{new}` request: new
// names a deflayer by name, resolved against the engine's current graph
// on the loop goroutine so it can never race a live reload swapping graphs.
func (l *Loop) ChangeLayer(name string) error {
	res := l.dispatchControl(func(l *Loop) controlResult {
		for i, n := range l.eng.LayerNames() {
			if n == name {
				return controlResult{err: l.eng.ChangeLayer(i)}
			}
		}
		return controlResult{err: fmt.Errorf("loop: unknown layer %q", name)}
	})
	return res.err
}

func (l *Loop) ActOnFakeKey(name string, action control.FakeKeyAction) error {
	res := l.dispatchControl(func(l *Loop) controlResult {
		return controlResult{err: l.eng.ActOnFakeKey(name, fakeKeyActionFromControl(action))}
	})
	return res.err
}

func fakeKeyActionFromControl(a control.FakeKeyAction) engine.FakeKeyAction {
	switch a {
	case control.FakeKeyPress:
		return engine.FakeKeyPress
	case control.FakeKeyRelease:
		return engine.FakeKeyRelease
	case control.FakeKeyToggle:
		return engine.FakeKeyToggle
	default:
		return engine.FakeKeyTap
	}
}

// Reload implements ReloadFile when path is non-empty and plain Reload
// (re-read the active config path) when it is empty; both just enqueue,
// same as a drained CustomLiveReload action (spec.md §4.4 item 5).
func (l *Loop) Reload(path string) {
	l.RequestReload(path)
}

func (l *Loop) ReloadNext() {
	res := l.dispatchControl(func(l *Loop) controlResult {
		return controlResult{value: l.cycleConfigPath(1)}
	})
	if path, ok := res.value.(string); ok {
		l.RequestReload(path)
	}
}

func (l *Loop) ReloadPrev() {
	res := l.dispatchControl(func(l *Loop) controlResult {
		return controlResult{value: l.cycleConfigPath(-1)}
	})
	if path, ok := res.value.(string); ok {
		l.RequestReload(path)
	}
}

func (l *Loop) ReloadNum(n int) error {
	res := l.dispatchControl(func(l *Loop) controlResult {
		if n < 0 || n >= len(l.configPaths) {
			return controlResult{err: fmt.Errorf("loop: reload index %d out of range [0,%d)", n, len(l.configPaths))}
		}
		l.configIndex = n
		return controlResult{value: l.configPaths[n]}
	})
	if res.err != nil {
		return res.err
	}
	path, _ := res.value.(string)
	l.RequestReload(path)
	return nil
}

// SetMouse implements spec.md §6's `SetMouse{x,y}`, routed through the loop
// goroutine since platform.OsOut is otherwise only ever written to from
// there (tickOnce's diff/tickMouse).
func (l *Loop) SetMouse(x, y int) error {
	res := l.dispatchControl(func(l *Loop) controlResult {
		return controlResult{err: l.out.SetMouse(x, y)}
	})
	return res.err
}

// Subscribe registers a fan-out sink for this loop's own LayerChange/
// KeyEvent notifications, fed from the loop goroutine (notifyKeyEvent,
// checkLayerChange). A slow or absent reader has its notifications
// dropped rather than ever blocking tickOnce.
func (l *Loop) Subscribe() (<-chan control.Notification, func()) {
	ch := make(chan control.Notification, 32)
	l.notifyMu.Lock()
	id := l.notifyNextID
	l.notifyNextID++
	l.notifySubs[id] = ch
	l.notifyMu.Unlock()

	unsubscribe := func() {
		l.notifyMu.Lock()
		delete(l.notifySubs, id)
		l.notifyMu.Unlock()
	}
	return ch, unsubscribe
}

func (l *Loop) notify(n control.Notification) {
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()
	for _, ch := range l.notifySubs {
		select {
		case ch <- n:
		default:
		}
	}
}
