//go:build linux

package loop

import (
	"time"

	"github.com/godbus/dbus/v5"
)

// sessionIdleTime asks the session's screensaver service for how long the
// user has been idle (SPEC_FULL.md §4.4: "supplemented by the session
// idle time reported over github.com/godbus/dbus/v5"). This only
// augments the engine's own per-tick ticks_since_idle counter — when the
// session bus or the ScreenSaver interface is unavailable (no desktop
// session, sandboxed, headless), ok is false and the caller falls back to
// the tick counter alone.
func sessionIdleTime() (d time.Duration, ok bool) {
	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return 0, false
	}
	defer conn.Close()
	if err := conn.Auth(nil); err != nil {
		return 0, false
	}
	if err := conn.Hello(); err != nil {
		return 0, false
	}

	obj := conn.Object("org.freedesktop.ScreenSaver", "/org/freedesktop/ScreenSaver")
	var idleMs uint32
	if err := obj.Call("org.freedesktop.ScreenSaver.GetSessionIdleTime", 0).Store(&idleMs); err != nil {
		return 0, false
	}
	return time.Duration(idleMs) * time.Millisecond, true
}
