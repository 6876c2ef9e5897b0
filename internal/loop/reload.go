package loop

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"layerkeyd/internal/layout"
	"layerkeyd/internal/obslog"
)

// snapshotLines renders the shape of g that matters for a human-readable
// reload diff: layer names/sizes and the option set (spec.md §4.4's live
// reload note in SPEC_FULL.md). This is purely diagnostic — the swap
// itself is still the atomic pointer replace spec.md describes.
func snapshotLines(g *layout.Graph) []string {
	var lines []string
	for _, layer := range g.Layers {
		lines = append(lines, fmt.Sprintf("layer %s: %d physical, %d virtual", layer.Name, len(layer.Physical), len(layer.Virtual)))
	}
	opts := map[string]interface{}{
		"process-unmapped-keys":       g.Options.ProcessUnmappedKeys,
		"sequence-timeout":            g.Options.SequenceTimeout,
		"sequence-input-mode":         g.Options.SequenceInputMode,
		"movemouse-smooth-diagonals":  g.Options.MovemouseSmoothDiagonals,
		"dynamic-macro-max-presses":   g.Options.DynamicMacroMaxPresses,
		"windows-altgr":               g.Options.WindowsAltgr,
		"linux-unicode-termination":   g.Options.LinuxUnicodeTermination,
		"debounce-algorithm":          g.Options.DebounceAlgorithm,
		"debounce-time-ms":            g.Options.DebounceTimeMs,
		"chords-v2-min-idle":          g.Options.ChordsV2MinIdleTicks,
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("option %s: %v", k, opts[k]))
	}
	return lines
}

// logReloadDiff renders a unified diff between old and new's snapshot
// lines with go-difflib and logs it at info level, grounded on the
// teacher's reliance on go-spew/text-rendering for human-facing dumps,
// generalized here to a line-oriented diff since the compared shape
// (layers + options) is inherently line-shaped rather than a single
// nested struct worth spewing.
func (l *Loop) logReloadDiff(old, updated *layout.Graph) {
	if l.log == nil {
		return
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        snapshotLines(old),
		B:        snapshotLines(updated),
		FromFile: "current config",
		ToFile:   "reloaded config",
		Context:  1,
	})
	if err != nil {
		l.log.Logf(obslog.ComponentLoop, obslog.LevelWarn, "reload diff: %v", err)
		return
	}
	if strings.TrimSpace(text) == "" {
		l.log.Log(obslog.ComponentLoop, obslog.LevelInfo, "reload: no layer/option shape change", nil)
		return
	}
	l.log.Log(obslog.ComponentLoop, obslog.LevelInfo, "reload diff:\n"+text, nil)
}
