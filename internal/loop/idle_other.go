//go:build !linux

package loop

import "time"

// sessionIdleTime has no D-Bus ScreenSaver equivalent wired on this OS;
// the caller falls back to the engine's own ticks_since_idle counter.
func sessionIdleTime() (time.Duration, bool) {
	return 0, false
}
