// Package config holds the `defcfg` option set (spec.md §6) and the
// process environment snapshot `defaliasenvcond` reads against.
package config

import "time"

// SequenceInputMode mirrors layout.SequenceInputMode's three named values
// as defcfg atoms; kept as strings at the config boundary and converted to
// the layout package's typed enum during compilation, avoiding an import
// cycle between config and layout.
type SequenceInputMode string

const (
	SeqVisibleBackspaced SequenceInputMode = "visible-backspaced"
	SeqHiddenSuppressed  SequenceInputMode = "hidden-suppressed"
	SeqHiddenDelayType   SequenceInputMode = "hidden-delay-type"
)

// WindowsAltgr names the three `windows-altgr` behaviors.
type WindowsAltgr string

const (
	AltgrCancelLctlPress WindowsAltgr = "cancel-lctl-press"
	AltgrAddLctlRelease  WindowsAltgr = "add-lctl-release"
	AltgrDoNothing       WindowsAltgr = "do-nothing"
)

// LinuxUnicodeTermination names the four `linux-unicode-termination`
// behaviors.
type LinuxUnicodeTermination string

const (
	UnicodeTermEnter      LinuxUnicodeTermination = "enter"
	UnicodeTermSpace      LinuxUnicodeTermination = "space"
	UnicodeTermEnterSpace LinuxUnicodeTermination = "enter-space"
	UnicodeTermSpaceEnter LinuxUnicodeTermination = "space-enter"
)

// DebounceAlgorithm names the three debounce strategies carried over from
// original_source (see SPEC_FULL.md §3).
type DebounceAlgorithm string

const (
	DebounceSymEagerPk      DebounceAlgorithm = "sym-eager-pk"
	DebounceSymDeferPk      DebounceAlgorithm = "sym-defer-pk"
	DebounceAsymEagerDeferPk DebounceAlgorithm = "asym-eager-defer-pk"
)

// Options is the fully-parsed `defcfg` options table plus the handful of
// defaults the engine/loop/projector need when a key is absent.
type Options struct {
	ProcessUnmappedKeys bool
	SequenceTimeout     uint16 // ticks
	SequenceInputMode   SequenceInputMode
	LogLayerChanges     bool
	DelegateToFirstLayer bool

	MovemouseSmoothDiagonals   bool
	MovemouseInheritAccelState bool

	DynamicMacroMaxPresses int

	WindowsAltgr             WindowsAltgr
	LinuxUnicodeTermination  LinuxUnicodeTermination
	LinuxLsftArrowkeyWorkaround bool

	DebounceAlgorithm DebounceAlgorithm
	DebounceTimeMs    uint16

	ChordsV2MinIdleTicks uint16

	DeviceFilters []string

	InitializationWindow time.Duration
}

// Default returns the option set in effect when defcfg omits a key.
func Default() Options {
	return Options{
		ProcessUnmappedKeys: false,
		SequenceTimeout:     1000,
		SequenceInputMode:   SeqVisibleBackspaced,
		LogLayerChanges:     false,
		DelegateToFirstLayer: false,

		MovemouseSmoothDiagonals:   false,
		MovemouseInheritAccelState: false,

		DynamicMacroMaxPresses: 256,

		WindowsAltgr:            AltgrDoNothing,
		LinuxUnicodeTermination: UnicodeTermEnter,

		DebounceAlgorithm: DebounceSymEagerPk,
		DebounceTimeMs:    5,

		ChordsV2MinIdleTicks: 50,

		InitializationWindow: 500 * time.Millisecond,
	}
}

// EnvSnapshot is the process environment captured once at startup, which
// `defaliasenvcond` reads against (spec.md §6: "The environment is
// read-only").
type EnvSnapshot map[string]string

func SnapshotEnviron(environ []string) EnvSnapshot {
	snap := make(EnvSnapshot, len(environ))
	for _, kv := range environ {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				snap[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return snap
}
