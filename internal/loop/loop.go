// Package loop is the event loop (C7): the single thread that owns the
// engine's mutable state, pulls input events off the platform boundary,
// drives the 1ms tick clock, and calls the projector. Grounded on the
// teacher's `fyne_ui.go` updateLoop — a ticker-driven fixed-timestep
// accumulator — generalized from a 60Hz emulation frame step to a 1ms
// engine tick, and on `internal/clock.MasterClock`'s advance-to-next-due-
// component cadence, generalized from three emulator subsystems to the
// single engine/projector pair.
package loop

import (
	"fmt"
	"sync"
	"time"

	"layerkeyd/internal/control"
	"layerkeyd/internal/engine"
	"layerkeyd/internal/keycode"
	"layerkeyd/internal/layout"
	"layerkeyd/internal/obslog"
	"layerkeyd/internal/platform"
	"layerkeyd/internal/sexpr"
)

// maxCatchUp bounds how much wall-clock delay a single iteration folds
// into tick work, mirroring the teacher's updateLoop catch-up clamp
// (there: 4 frames at 60Hz; here: a flat duration) so a long scheduler
// stall never floods the engine with thousands of queued ticks.
const maxCatchUp = 250 * time.Millisecond

// Loop owns the engine/projector pair and the platform I/O around them.
// Exactly one goroutine (Run's caller) ever calls into the engine or
// projector — the concurrency guarantee spec.md §5 requires.
type Loop struct {
	eng  *engine.Engine
	proj projector
	out  platform.OsOut
	in   platform.InputProvider
	log  *obslog.Logger

	platformName string
	configPaths  []string
	configIndex  int

	debounce Debounce

	events chan platform.InputEvent
	errs   chan error
	done   chan struct{}

	reloadRequests chan string

	mappedKeysMu sync.RWMutex
	mappedKeys   keycode.Set

	heldPhysical keycode.Set // raw, pre-debounce, for the exit combo

	lastTick time.Time
	tickAccum time.Duration

	reloadPending    bool
	reloadPath       string
	reloadWaitTicks  uint32

	macros *macroManager

	initWindow      time.Duration
	initDeadline    time.Time
	initActive      bool

	idleCheckCountdown int

	controlOps chan controlOp

	notifyMu     sync.Mutex
	notifySubs   map[int]chan control.Notification
	notifyNextID int
	lastLayer    int
}

// projector is the subset of *projector.Projector the loop calls; kept as
// a narrow local interface so loop's own tests can swap in a fake.
type projector interface {
	Sync(cur []keycode.KeyCode, custom []layout.CustomAction) error
	SwapGraph(g *layout.Graph)
	Repeat(layerIdx int, physical keycode.KeyCode) error
}

// New builds a Loop bound to one compiled graph, one platform boundary,
// and (optionally) a cycle of config paths for ReloadNext/ReloadPrev.
func New(g *layout.Graph, out platform.OsOut, in platform.InputProvider, proj projector, log *obslog.Logger, platformName string, configPaths []string) *Loop {
	if len(configPaths) == 0 {
		configPaths = []string{""}
	}
	l := &Loop{
		eng:            engine.New(g),
		proj:           proj,
		out:            out,
		in:             in,
		log:            log,
		platformName:   platformName,
		configPaths:    configPaths,
		debounce:       NewDebounce(g.Options.DebounceAlgorithm, g.Options.DebounceTimeMs),
		events:         make(chan platform.InputEvent, 100),
		errs:           make(chan error, 1),
		done:           make(chan struct{}),
		reloadRequests: make(chan string, 4),
		mappedKeys:     mappedKeysOf(g),
		heldPhysical:   keycode.NewSet(),
		macros:         newMacroManager(g.Options.DynamicMacroMaxPresses),
		initWindow:     g.Options.InitializationWindow,
		controlOps:     make(chan controlOp, 8),
		notifySubs:     make(map[int]chan control.Notification),
		lastLayer:      g.DefaultLayer,
	}
	return l
}

func mappedKeysOf(g *layout.Graph) keycode.Set {
	s := keycode.NewSet()
	for k := range g.ColIndex {
		s.Add(k)
	}
	return s
}

// Stop requests a clean shutdown; Run returns nil once it observes it.
func (l *Loop) Stop() {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}

// RequestReload enqueues a reload from path (or the active config path
// when path is empty), shared by a drained CustomLiveReload action and by
// the control surface's ReloadFile request (spec.md §4.4 item 5).
func (l *Loop) RequestReload(path string) {
	select {
	case l.reloadRequests <- path:
	default:
		if l.log != nil {
			l.log.Log(obslog.ComponentLoop, obslog.LevelWarn, "reload request dropped: queue full", nil)
		}
	}
}

// Run blocks, pumping input.Read() on its own goroutine and driving the
// engine/projector from this one, until Stop is called or the input
// provider's channel closes (spec.md §4.4's cancellation-by-dropped-
// sender rule).
func (l *Loop) Run() error {
	go l.readInput()

	now := time.Now()
	l.lastTick = now
	l.initActive = l.initWindow > 0
	l.initDeadline = now.Add(l.initWindow)

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		idle := l.eng.Idle() && !l.reloadPending && !l.macros.hasPendingPlayback()

		if idle {
			select {
			case ev, ok := <-l.events:
				if !ok {
					return nil
				}
				l.handleInputEvent(ev)
			case path := <-l.reloadRequests:
				l.beginReload(path)
			case op := <-l.controlOps:
				op.reply <- op.do(l)
			case <-ticker.C:
				l.advanceTicks(time.Now())
			case err := <-l.errs:
				return err
			case <-l.done:
				return nil
			}
			continue
		}

		select {
		case ev, ok := <-l.events:
			if !ok {
				return nil
			}
			l.handleInputEvent(ev)
		case path := <-l.reloadRequests:
			l.beginReload(path)
		case op := <-l.controlOps:
			op.reply <- op.do(l)
		case <-ticker.C:
			l.advanceTicks(time.Now())
		case err := <-l.errs:
			return err
		case <-l.done:
			return nil
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func (l *Loop) readInput() {
	for {
		ev, err := l.in.Read()
		if err != nil {
			select {
			case l.errs <- fmt.Errorf("input provider: %w", err):
			default:
			}
			close(l.events)
			return
		}
		select {
		case l.events <- ev:
		case <-l.done:
			return
		}
	}
}

// handleInputEvent is step 3 of spec.md §4.4: feed the engine (or pass
// through an unmapped key) then advance ticks so output latency never
// exceeds roughly one tick.
func (l *Loop) handleInputEvent(raw platform.InputEvent) {
	l.trackExitCombo(raw)
	if l.initActive {
		if time.Now().After(l.initDeadline) {
			l.initActive = false
		} else if raw.Value == platform.InputPress {
			return // swallow presses during the init window
		}
	}

	if !l.debounce.ProcessEvent(raw) {
		l.advanceTicks(time.Now())
		return
	}
	l.dispatch(raw)
	l.advanceTicks(time.Now())
}

func (l *Loop) dispatch(ev platform.InputEvent) {
	l.mappedKeysMu.RLock()
	mapped := l.mappedKeys.Has(ev.Code)
	l.mappedKeysMu.RUnlock()

	if !mapped {
		l.passthrough(ev)
		return
	}

	col, ok := l.eng.Graph().ColIndex[ev.Code]
	if !ok {
		l.passthrough(ev)
		return
	}

	l.macros.record(ev)

	coord := layout.Coord{Row: 0, Col: uint16(col)}
	l.eng.Event(engine.Event{Kind: engineEventKind(ev.Value), Coord: coord})
	if ev.Value == platform.InputRepeat {
		if err := l.proj.Repeat(l.eng.CurrentLayer(), ev.Code); err != nil {
			l.logErr("repeat", err)
		}
	}
	l.notifyKeyEvent(ev)
}

// notifyKeyEvent feeds the control surface's KeyEvent{kind: Input} stream
// (spec.md §6). Only the input side is modeled: the output side would
// need a notification hook threaded through every per-OS platform.OsOut
// implementation just to serve an optional diagnostic feed, which DESIGN.md
// records as not worth the cross-cutting change.
func (l *Loop) notifyKeyEvent(ev platform.InputEvent) {
	if ev.Value == platform.InputRepeat {
		return
	}
	action := "Press"
	if ev.Value == platform.InputRelease {
		action = "Release"
	}
	l.notify(control.Notification{
		Kind:    control.NotifyKeyEvent,
		Key:     ev.Code.String(),
		Action:  action,
		KeyKind: control.KeyEventInput,
	})
}

func engineEventKind(v platform.InputEventKind) engine.EventKind {
	switch v {
	case platform.InputRelease:
		return engine.EventRelease
	case platform.InputRepeat:
		return engine.EventRepeat
	default:
		return engine.EventPress
	}
}

// passthrough implements spec.md §4.6's "unmapped keys ... forwards them
// unchanged": out.PressKey/ReleaseKey preserve the held-duration a tap-
// only WriteCode call could not (see DESIGN.md's Open Question entry on
// this).
func (l *Loop) passthrough(ev platform.InputEvent) {
	var err error
	switch ev.Value {
	case platform.InputPress:
		err = l.out.PressKey(ev.Code)
	case platform.InputRelease:
		err = l.out.ReleaseKey(ev.Code)
	case platform.InputRepeat:
		err = l.out.WriteCode(ev.Code)
	}
	if err != nil {
		l.logErr("passthrough", err)
	}
	l.notifyKeyEvent(ev)
}

// advanceTicks folds elapsed wall time into whole-millisecond tick steps,
// the same fixed-timestep accumulator the teacher's updateLoop runs at
// 60Hz, generalized to 1ms.
func (l *Loop) advanceTicks(now time.Time) {
	delta := now.Sub(l.lastTick)
	l.lastTick = now
	if delta > maxCatchUp {
		delta = maxCatchUp
	}
	l.tickAccum += delta
	for l.tickAccum >= time.Millisecond {
		l.tickOnce()
		l.tickAccum -= time.Millisecond
	}
}

func (l *Loop) tickOnce() {
	for _, ev := range l.debounce.Tick() {
		l.dispatch(ev)
	}

	l.eng.Tick()
	l.macros.tick(l.dispatch)
	l.checkIdleSupplement()

	custom := l.eng.DrainCustomEvents()
	forward := custom[:0]
	for _, ca := range custom {
		if l.interceptCustom(ca) {
			continue
		}
		forward = append(forward, ca)
	}

	if err := l.proj.Sync(l.eng.Keycodes(), forward); err != nil {
		l.logErr("sync", err)
	}

	l.checkLayerChange()
	l.tickReload()
}

// checkLayerChange notifies the control surface whenever the momentary
// layer stack's top changed since the last tick, whether that came from a
// deflayer cell's layer/default-layer action or from a ChangeLayer control
// request (both land through the same eng.CurrentLayer()).
func (l *Loop) checkLayerChange() {
	cur := l.eng.CurrentLayer()
	if cur == l.lastLayer {
		return
	}
	l.lastLayer = cur
	l.notify(control.Notification{Kind: control.NotifyLayerChange, LayerName: l.eng.CurrentLayerName()})
}

// interceptCustom handles the six custom-action kinds the projector
// explicitly does not own (see internal/projector/custom.go's comment):
// live reload needs the recompile machinery, dynamic macros need the raw
// input stream, both of which only the loop has.
func (l *Loop) interceptCustom(ca layout.CustomAction) bool {
	switch ca.Kind {
	case layout.CustomLiveReload:
		l.RequestReload(ca.ReloadPath)
		return true
	case layout.CustomLiveReloadNext:
		l.RequestReload(l.cycleConfigPath(1))
		return true
	case layout.CustomLiveReloadPrev:
		l.RequestReload(l.cycleConfigPath(-1))
		return true
	case layout.CustomDynamicMacroRecordStart:
		l.macros.startRecording(ca.MacroSlot)
		return true
	case layout.CustomDynamicMacroRecordStop:
		l.macros.stopRecording()
		return true
	case layout.CustomDynamicMacroPlay:
		l.macros.play(ca.MacroSlot)
		return true
	default:
		return false
	}
}

// idleSupplementPeriod is how often checkIdleSupplement cross-checks the
// engine's tick-based idle counter against the desktop session's own idle
// clock. Five seconds is frequent enough to catch a stuck ticksSinceIdle
// without spamming a D-Bus call on every tick.
const idleSupplementPeriod = 5000

// checkIdleSupplement periodically asks the OS session (D-Bus on Linux,
// unavailable elsewhere) how long the user has been idle and logs it
// alongside the engine's own ticksSinceIdle, per SPEC_FULL.md §4.4's note
// that session idle time "supplements" rather than replaces the tick
// counter. Nothing reads this back into engine state; it is diagnostic
// only, since the engine's counter is what invariants like idle tap-dance
// timeouts actually key off.
func (l *Loop) checkIdleSupplement() {
	l.idleCheckCountdown--
	if l.idleCheckCountdown > 0 {
		return
	}
	l.idleCheckCountdown = idleSupplementPeriod

	sessionIdle, ok := sessionIdleTime()
	if !ok || l.log == nil {
		return
	}
	l.log.Logf(obslog.ComponentLoop, obslog.LevelDebug,
		"idle supplement: session=%s ticks_since_idle=%dms", sessionIdle, l.eng.TicksSinceIdle())
}

func (l *Loop) cycleConfigPath(delta int) string {
	n := len(l.configPaths)
	l.configIndex = ((l.configIndex+delta)%n + n) % n
	return l.configPaths[l.configIndex]
}

func (l *Loop) logErr(where string, err error) {
	if l.log == nil {
		return
	}
	l.log.Logf(obslog.ComponentLoop, obslog.LevelError, "%s: %v", where, err)
}

// beginReload is the immediate entry point for a reload request arriving
// outside a tick boundary (e.g. the control surface, or fsnotify firing
// between ticks); it just arms the same flag tickReload consumes.
func (l *Loop) beginReload(path string) {
	l.reloadPending = true
	l.reloadPath = path
	l.reloadWaitTicks = 0
}

// tickReload implements spec.md §4.4 item 5: apply a pending reload once
// the engine is idle, or after 1000ms regardless.
func (l *Loop) tickReload() {
	if !l.reloadPending {
		return
	}
	l.reloadWaitTicks++
	if !l.eng.Idle() && l.reloadWaitTicks < 1000 {
		return
	}
	l.performReload()
}

func (l *Loop) performReload() {
	path := l.reloadPath
	if path == "" {
		path = l.configPaths[l.configIndex]
	}
	l.reloadPending = false
	l.reloadWaitTicks = 0

	res, err := sexpr.Read(path, l.platformName)
	if err != nil {
		l.logErr("reload read", err)
		return
	}
	newGraph, report := layout.Compile(res)
	if report.HasErrors() {
		l.logErr("reload compile", report)
		return
	}

	l.logReloadDiff(l.eng.Graph(), newGraph)

	l.eng.SwapGraph(newGraph)
	l.proj.SwapGraph(newGraph)
	l.debounce = NewDebounce(newGraph.Options.DebounceAlgorithm, newGraph.Options.DebounceTimeMs)

	l.mappedKeysMu.Lock()
	l.mappedKeys = mappedKeysOf(newGraph)
	l.mappedKeysMu.Unlock()

	if l.log != nil {
		l.log.Logf(obslog.ComponentLoop, obslog.LevelInfo, "reloaded config from %s", path)
	}
}

// trackExitCombo maintains heldPhysical and raises Stop when Ctrl+Space+
// Escape are all down at once (spec.md §4.4's fixed hard-exit combo).
func (l *Loop) trackExitCombo(ev platform.InputEvent) {
	switch ev.Value {
	case platform.InputPress:
		l.heldPhysical.Add(ev.Code)
	case platform.InputRelease:
		l.heldPhysical.Remove(ev.Code)
	default:
		return
	}
	ctrl := l.heldPhysical.Has(keycode.LeftCtrl) || l.heldPhysical.Has(keycode.RightCtrl)
	if ctrl && l.heldPhysical.Has(keycode.Space) && l.heldPhysical.Has(keycode.Escape) {
		l.Stop()
	}
}
