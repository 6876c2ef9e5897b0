package loop

import (
	"testing"

	"github.com/stretchr/testify/require"

	"layerkeyd/internal/config"
	"layerkeyd/internal/keycode"
	"layerkeyd/internal/platform"
)

func press(k keycode.KeyCode) platform.InputEvent {
	return platform.InputEvent{Code: k, Value: platform.InputPress}
}

func release(k keycode.KeyCode) platform.InputEvent {
	return platform.InputEvent{Code: k, Value: platform.InputRelease}
}

func TestNewDebounceZeroDurationIsNoop(t *testing.T) {
	d := NewDebounce(config.DebounceSymEagerPk, 0)
	require.True(t, d.ProcessEvent(press(keycode.A)))
	require.True(t, d.ProcessEvent(release(keycode.A)))
	require.Nil(t, d.Tick())
}

func TestSymEagerPkForwardsFirstEdgeThenDropsBounce(t *testing.T) {
	d := NewDebounce(config.DebounceSymEagerPk, 5)
	require.True(t, d.ProcessEvent(press(keycode.A)))
	require.False(t, d.ProcessEvent(release(keycode.A)), "bounce within the debounce window must be dropped")

	for i := 0; i < 10; i++ {
		d.Tick()
	}
	require.True(t, d.ProcessEvent(release(keycode.A)), "edge after quiet time must forward")
}

func TestSymEagerPkRepeatAlwaysForwards(t *testing.T) {
	d := NewDebounce(config.DebounceSymEagerPk, 5)
	require.True(t, d.ProcessEvent(press(keycode.A)))
	ev := platform.InputEvent{Code: keycode.A, Value: platform.InputRepeat}
	require.True(t, d.ProcessEvent(ev))
	require.True(t, d.ProcessEvent(ev))
}

func TestSymDeferPkHoldsUntilQuiet(t *testing.T) {
	d := NewDebounce(config.DebounceSymDeferPk, 2)
	require.False(t, d.ProcessEvent(press(keycode.A)), "sym-defer-pk never forwards synchronously")
	require.Empty(t, d.Tick())
	require.Empty(t, d.Tick())
	ready := d.Tick()
	require.Equal(t, []platform.InputEvent{press(keycode.A)}, ready)
}

func TestSymDeferPkRestartsHoldOffOnNewEdge(t *testing.T) {
	d := NewDebounce(config.DebounceSymDeferPk, 2)
	d.ProcessEvent(press(keycode.A))
	d.Tick()
	// a second edge arrives before the first's hold-off elapsed; it
	// should replace the pending edge and restart the countdown.
	d.ProcessEvent(release(keycode.A))
	require.Empty(t, d.Tick())
	require.Empty(t, d.Tick())
	ready := d.Tick()
	require.Equal(t, []platform.InputEvent{release(keycode.A)}, ready)
}

func TestAsymEagerDeferPkPressesEagerlyDefersRelease(t *testing.T) {
	d := NewDebounce(config.DebounceAsymEagerDeferPk, 3)
	require.True(t, d.ProcessEvent(press(keycode.A)), "press forwards immediately")
	require.False(t, d.ProcessEvent(release(keycode.A)), "release is deferred")

	for i := 0; i < 3; i++ {
		require.Empty(t, d.Tick())
	}
	ready := d.Tick()
	require.Equal(t, []platform.InputEvent{release(keycode.A)}, ready)
}

func TestAsymEagerDeferPkSwallowsBouncedRelease(t *testing.T) {
	d := NewDebounce(config.DebounceAsymEagerDeferPk, 4)
	d.ProcessEvent(press(keycode.A))
	d.ProcessEvent(release(keycode.A))
	// a bounced second release before the deferred one fires is dropped.
	require.False(t, d.ProcessEvent(release(keycode.A)))
}
