package obslog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitForEntries(t *testing.T, l *Logger, n int) []Entry {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if entries := l.Entries(); len(entries) >= n {
			return entries
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d entries", n)
	return nil
}

func TestLoggerDisabledComponentDropsEntries(t *testing.T) {
	l := New(100)
	defer l.Close()

	l.Log(ComponentEngine, LevelError, "should be dropped", nil)
	time.Sleep(10 * time.Millisecond)
	require.Empty(t, l.Entries())
}

func TestLoggerEnabledComponentRecords(t *testing.T) {
	l := New(100)
	defer l.Close()

	l.SetComponentEnabled(ComponentEngine, true)
	l.Log(ComponentEngine, LevelError, "boom", map[string]interface{}{"coord": 3})

	entries := waitForEntries(t, l, 1)
	require.Len(t, entries, 1)
	require.Equal(t, ComponentEngine, entries[0].Component)
	require.Equal(t, LevelError, entries[0].Level)
	require.Equal(t, "boom", entries[0].Message)
}

func TestLoggerMinLevelFilters(t *testing.T) {
	l := New(100)
	defer l.Close()
	l.SetComponentEnabled(ComponentLoop, true)

	l.Logf(ComponentLoop, LevelDebug, "too verbose")
	time.Sleep(10 * time.Millisecond)
	require.Empty(t, l.Entries())

	l.SetMinLevel(LevelDebug)
	l.Logf(ComponentLoop, LevelDebug, "now visible")
	entries := waitForEntries(t, l, 1)
	require.Equal(t, "now visible", entries[0].Message)
}

func TestLoggerRingBufferWraps(t *testing.T) {
	l := New(100)
	defer l.Close()
	l.SetComponentEnabled(ComponentControl, true)

	for i := 0; i < 150; i++ {
		l.Logf(ComponentControl, LevelInfo, "entry %d", i)
	}

	entries := waitForEntries(t, l, 100)
	require.Len(t, entries, 100)
	require.Equal(t, "entry 50", entries[0].Message)
	require.Equal(t, "entry 149", entries[99].Message)
}

func TestLoggerRecentEntries(t *testing.T) {
	l := New(100)
	defer l.Close()
	l.SetComponentEnabled(ComponentCompiler, true)

	for i := 0; i < 5; i++ {
		l.Logf(ComponentCompiler, LevelInfo, "line %d", i)
	}
	waitForEntries(t, l, 5)

	recent := l.RecentEntries(2)
	require.Len(t, recent, 2)
	require.Equal(t, "line 3", recent[0].Message)
	require.Equal(t, "line 4", recent[1].Message)
}

func TestLoggerConvenienceMethods(t *testing.T) {
	l := New(100)
	defer l.Close()
	l.SetComponentEnabled(ComponentProjector, true)
	l.SetMinLevel(LevelTrace)

	l.Warnf("cmd %s failed", "notify-send")
	l.Debugf("cmd output: %s", "ok")

	entries := waitForEntries(t, l, 2)
	require.Equal(t, LevelWarn, entries[0].Level)
	require.Equal(t, LevelDebug, entries[1].Level)
}
