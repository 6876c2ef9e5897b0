package loop

import (
	"testing"

	"github.com/stretchr/testify/require"

	"layerkeyd/internal/keycode"
	"layerkeyd/internal/platform"
)

func noopDispatch(platform.InputEvent) {}

func TestMacroManagerRecordCapsAtMaxPresses(t *testing.T) {
	m := newMacroManager(2)
	m.startRecording(1)
	m.record(press(keycode.A))
	m.record(press(keycode.B))
	m.record(press(keycode.C)) // dropped, buffer already at cap
	m.stopRecording()

	require.Len(t, m.slots[1], 2)
}

func TestMacroManagerRecordOutsideWindowIsNoop(t *testing.T) {
	m := newMacroManager(10)
	m.record(press(keycode.A)) // not recording; nothing to append to
	require.Empty(t, m.recordBuf)
}

func TestMacroManagerStopWithoutStartIsNoop(t *testing.T) {
	m := newMacroManager(10)
	m.stopRecording()
	require.Empty(t, m.slots)
}

func TestMacroManagerPlaybackReproducesRecordedGaps(t *testing.T) {
	m := newMacroManager(10)
	m.startRecording(1)
	m.record(press(keycode.A))
	for i := 0; i < 3; i++ {
		m.tick(noopDispatch)
	}
	m.record(release(keycode.A))
	m.stopRecording()

	require.Equal(t, []recordedEdge{
		{delayTicks: 0, ev: press(keycode.A)},
		{delayTicks: 3, ev: release(keycode.A)},
	}, m.slots[1])

	var got []platform.InputEvent
	collect := func(ev platform.InputEvent) { got = append(got, ev) }

	m.play(1)
	require.True(t, m.hasPendingPlayback())

	m.tick(collect) // first edge has a zero delay, fires immediately
	require.Equal(t, []platform.InputEvent{press(keycode.A)}, got)

	for i := 0; i < 3; i++ {
		m.tick(collect)
	}
	require.True(t, m.hasPendingPlayback(), "release still pending until the 3-tick delay elapses")
	m.tick(collect)

	require.Equal(t, []platform.InputEvent{press(keycode.A), release(keycode.A)}, got)
	require.False(t, m.hasPendingPlayback())
}

func TestMacroManagerPlayUnknownSlotIsNoop(t *testing.T) {
	m := newMacroManager(10)
	m.play(99)
	require.False(t, m.hasPendingPlayback())
}
