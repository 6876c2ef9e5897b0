// Package layout lowers the reader's syntax tree into the compiled action
// graph the engine executes (C3/C4): the layer matrix, overrides table,
// chord groups, sequence trie, virtual-key map, and runtime options.
//
// Actions live in one arena (Graph.Actions) and are referenced by index
// (ActionRef) everywhere else in the graph, per spec.md §9's guidance to
// use an arena of stable indices rather than a general cyclic graph — the
// natural shape here is a DAG rooted at each layer cell.
package layout

import "layerkeyd/internal/keycode"

// ActionRef is a stable index into a Graph's action arena.
type ActionRef int

// NilAction is the "no reference" sentinel; it is never a valid arena
// index, since indices start at 0, where NoOp always sits.
const NilAction ActionRef = -1

// ActionKind tags the Action variant (spec.md §3).
type ActionKind int

const (
	ActionNoOp ActionKind = iota
	ActionTransparent
	ActionKeyCode
	ActionMultipleKeyCodes
	ActionMultipleActions
	ActionLayer
	ActionDefaultLayer
	ActionHoldTap
	ActionTapDance
	ActionOneShot
	ActionChords
	ActionSequence
	ActionRepeatableSequence
	ActionCancelSequences
	ActionReleaseState
	ActionFork
	ActionSwitch
	ActionCustom
)

func (k ActionKind) String() string {
	switch k {
	case ActionNoOp:
		return "NoOp"
	case ActionTransparent:
		return "Transparent"
	case ActionKeyCode:
		return "KeyCode"
	case ActionMultipleKeyCodes:
		return "MultipleKeyCodes"
	case ActionMultipleActions:
		return "MultipleActions"
	case ActionLayer:
		return "Layer"
	case ActionDefaultLayer:
		return "DefaultLayer"
	case ActionHoldTap:
		return "HoldTap"
	case ActionTapDance:
		return "TapDance"
	case ActionOneShot:
		return "OneShot"
	case ActionChords:
		return "Chords"
	case ActionSequence:
		return "Sequence"
	case ActionRepeatableSequence:
		return "RepeatableSequence"
	case ActionCancelSequences:
		return "CancelSequences"
	case ActionReleaseState:
		return "ReleaseState"
	case ActionFork:
		return "Fork"
	case ActionSwitch:
		return "Switch"
	case ActionCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// HoldTapTimeoutAction names which branch a HoldTap commits to when its
// timeout elapses with no early resolution.
type HoldTapTimeoutAction int

const (
	TimeoutHold HoldTapTimeoutAction = iota
	TimeoutTap
)

// HoldTapResolverKind selects one of the built-in early-resolution
// policies, or Custom to dispatch through a user-supplied Resolver.
type HoldTapResolverKind int

const (
	ResolverDefault HoldTapResolverKind = iota
	ResolverHoldOnOtherKeyPress
	ResolverPermissiveHold
	ResolverCustom
)

// HoldTapResolver is the single-method interface a `Custom(fn)` resolver
// implements (spec.md §9: "represent as an interface with a single method
// resolve(queue) -> Decision"). Equality between resolvers is by identity
// only.
type HoldTapResolver interface {
	Resolve(queue []QueueEntry) ResolveDecision
}

// ResolveDecision is what a resolver (built-in or custom) returns each
// tick.
type ResolveDecision int

const (
	DecisionNone ResolveDecision = iota
	DecisionTap
	DecisionHold
	DecisionNoOpDecision
)

// HoldTapSpec is the static data carried by a HoldTap action.
type HoldTapSpec struct {
	TimeoutTicks    uint16
	TapHoldInterval uint16
	Tap             ActionRef
	Hold            ActionRef
	TimeoutAction   HoldTapTimeoutAction
	ResolverKind    HoldTapResolverKind
	Resolver        HoldTapResolver // only set when ResolverKind == ResolverCustom
}

// TapDanceSpec is the static data carried by a TapDance action.
type TapDanceSpec struct {
	TimeoutTicks uint16
	Actions      []ActionRef
	Eager        bool
}

// OneShotEndConfig selects when a one-shot latch releases (spec.md §4.3.3).
type OneShotEndConfig int

const (
	EndOnFirstPress OneShotEndConfig = iota
	EndOnFirstRelease
	EndOnFirstPressPCancel
	EndOnFirstReleasePCancel
)

// OneShotSpec is the static data carried by a OneShot action.
type OneShotSpec struct {
	Inner   ActionRef
	Timeout uint16
	End     OneShotEndConfig
}

// ReleaseTarget names what a ReleaseState action force-releases.
type ReleaseTarget struct {
	IsLayer bool
	Key     keycode.KeyCode
	Layer   int
}

// ForkSpec is the static data carried by a Fork action.
type ForkSpec struct {
	Left         ActionRef
	Right        ActionRef
	RightTrigger keycode.Set
}

// PredOp tags a Switch predicate node.
type PredOp int

const (
	PredKey PredOp = iota
	PredAnd
	PredOr
	PredNot
)

// Predicate is a small expression tree over KeyCode membership
// (spec.md §4.3.7): `key`/`and`/`or`/`not` combinators evaluated against
// the currently-held output keys.
type Predicate struct {
	Op       PredOp
	Key      keycode.KeyCode
	Children []*Predicate
}

func (p *Predicate) Eval(held keycode.Set) bool {
	switch p.Op {
	case PredKey:
		return held.Has(p.Key)
	case PredNot:
		return !p.Children[0].Eval(held)
	case PredAnd:
		for _, c := range p.Children {
			if !c.Eval(held) {
				return false
			}
		}
		return true
	case PredOr:
		for _, c := range p.Children {
			if c.Eval(held) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// SwitchCase is one evaluated-in-order arm of a Switch action.
type SwitchCase struct {
	Predicate   *Predicate
	Action      ActionRef
	Fallthrough bool
}

// SwitchSpec is the static data carried by a Switch action.
type SwitchSpec struct {
	Cases []SwitchCase
}

// SeqEventKind tags one macro-playback step.
type SeqEventKind int

const (
	SeqPress SeqEventKind = iota
	SeqRelease
	SeqDelay
	SeqCustom
)

// SeqEvent is one step of a Sequence/RepeatableSequence macro.
type SeqEvent struct {
	Kind       SeqEventKind
	Key        keycode.KeyCode
	DelayTicks uint16
	Custom     *CustomAction
}

// Action is the tagged variant every layer cell and sub-expression
// resolves to; all fields carry configuration-lifetime (immutable) data.
type Action struct {
	Kind ActionKind

	// ActionKeyCode
	Key keycode.KeyCode
	// ActionMultipleKeyCodes
	Keys []keycode.KeyCode
	// ActionMultipleActions / action-list-bearing kinds
	Children []ActionRef
	// ActionLayer / ActionDefaultLayer
	Layer int

	HoldTap *HoldTapSpec
	TapDance *TapDanceSpec
	OneShot  *OneShotSpec

	// ActionChords
	ChordGroup   string
	ChordKeyName string // which group key-name this physical cell represents

	// ActionSequence / ActionRepeatableSequence
	Sequence []SeqEvent

	// ActionReleaseState
	Release ReleaseTarget

	Fork   *ForkSpec
	Switch *SwitchSpec

	// ActionCustom — one or more side-effectful actions fulfilled by the
	// projector.
	Custom []CustomAction
}
