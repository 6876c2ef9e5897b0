package layout

import "layerkeyd/internal/keycode"

// CustomActionKind enumerates the one concrete side-effectful payload type
// the engine is generic over (spec.md §9: "provide a single concrete T
// that is a tagged variant enumerating all side-effectful actions").
type CustomActionKind int

const (
	CustomMouseClick CustomActionKind = iota
	CustomMouseRelease
	CustomMouseMove
	CustomMouseMoveAccel
	CustomMouseScroll
	CustomMouseSetPosition
	CustomUnicode
	CustomCmdExec
	CustomDynamicMacroRecordStart
	CustomDynamicMacroRecordStop
	CustomDynamicMacroPlay
	CustomCapsWordToggle
	CustomLiveReload
	CustomLiveReloadNext
	CustomLiveReloadPrev
	CustomUnmod
	CustomUnshift
	CustomSequenceLeader
)

// MouseDirection is used by CustomMouseMove/CustomMouseScroll.
type MouseDirection int

const (
	DirUp MouseDirection = iota
	DirDown
	DirLeft
	DirRight
)

// SequenceInputMode controls how a cancelled-or-completed sequence's
// already-displayed characters are cleaned up (spec.md §4.3.5).
type SequenceInputMode int

const (
	SeqModeVisibleBackspaced SequenceInputMode = iota
	SeqModeHiddenSuppressed
	SeqModeHiddenDelayType
)

// CustomAction is one concrete side effect the projector fulfills.
type CustomAction struct {
	Kind CustomActionKind

	MouseButton keycode.KeyCode
	Direction   MouseDirection

	// CustomMouseMove / CustomMouseMoveAccel
	MinDistance, MaxDistance int
	AccelTimeTicks           int

	// CustomMouseScroll
	ScrollIntervalTicks int

	// CustomMouseSetPosition
	X, Y int

	Rune rune // CustomUnicode

	Command []string // CustomCmdExec

	MacroSlot int // dynamic macro record/play

	// CustomLiveReload*
	ReloadPath string
	ReloadNum  int

	// CustomSequenceLeader
	SeqTimeout uint16
	SeqMode    SequenceInputMode

	// Unmod/Unshift
	KeysToStrip keycode.Set
}
