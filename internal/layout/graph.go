package layout

import (
	"layerkeyd/internal/config"
	"layerkeyd/internal/keycode"
)

// Layer is one row-pair of the layer matrix: physical columns (row 0,
// indexed the same as Graph.Defsrc) and virtual/fake-key slots (row 1,
// indexed the same as Graph.VirtualKeys).
type Layer struct {
	Name     string
	Icon     string // deflayer option, purely descriptive (§3)
	Physical []ActionRef
	Virtual  []ActionRef
}

// Override is one compiled `defoverrides` pair (spec.md §4.2).
type Override struct {
	InMods    keycode.Set
	InNonMod  keycode.KeyCode
	OutMods   []keycode.KeyCode
	OutNonMod keycode.KeyCode
}

// ChordGroup holds the keys participating in a named chord group and the
// action each distinct simultaneous key-set maps to (spec.md §3, §4.2).
type ChordGroup struct {
	Name           string
	Keys           []string // declared key names, index is the bit position
	KeyIndex       map[string]int
	Chords         map[keycode.Bitmask]ActionRef
	DisabledLayers map[int]bool
	MinIdleTicks   uint16 // defchordsv2-experimental "chords-v2-min-idle"
}

// SeqTrieNode is one node of the sequence trie (spec.md §4.2, §4.3.5):
// `defseq` paths are 16-bit "modded" key codes (modifier bits OR'd into
// the upper byte of the code), and a leaf names the virtual key the
// completed sequence taps.
type SeqTrieNode struct {
	Children map[uint16]*SeqTrieNode
	Leaf     int // virtual key index; -1 if this node is not a leaf
}

func newSeqTrieNode() *SeqTrieNode {
	return &SeqTrieNode{Children: make(map[uint16]*SeqTrieNode), Leaf: -1}
}

// SeqTrie is the full set of compiled defseq paths.
type SeqTrie struct {
	Root *SeqTrieNode
}

func NewSeqTrie() *SeqTrie {
	return &SeqTrie{Root: newSeqTrieNode()}
}

// Insert adds path->vkIndex, rejecting insertions that are a prefix of an
// existing path or for which an existing path is a prefix of this one
// (spec.md §3 invariant: "no sequence is a proper prefix of another").
func (t *SeqTrie) Insert(path []uint16, vkIndex int) error {
	n := t.Root
	for _, code := range path {
		if n.Leaf >= 0 {
			return errDescendantConflict
		}
		child, ok := n.Children[code]
		if !ok {
			child = newSeqTrieNode()
			n.Children[code] = child
		}
		n = child
	}
	if n.Leaf >= 0 {
		return errDuplicateSequence
	}
	if len(n.Children) > 0 {
		return errAncestorConflict
	}
	n.Leaf = vkIndex
	return nil
}

// Lookup walks path from the root, returning the node reached, whether it
// is an exact leaf match, and whether the path is still a valid prefix of
// some inserted sequence.
func (t *SeqTrie) Lookup(path []uint16) (node *SeqTrieNode, isLeaf bool, isPrefix bool) {
	n := t.Root
	for _, code := range path {
		child, ok := n.Children[code]
		if !ok {
			return nil, false, false
		}
		n = child
	}
	return n, n.Leaf >= 0, true
}

// KeyOutputs maps, per layer, each physical input KeyCode to the set of
// KeyCodes it could possibly output — used by the projector's key-repeat
// handling (spec.md §4.5 step 7).
type KeyOutputs map[int]map[keycode.KeyCode][]keycode.KeyCode

// Graph is the compiled, immutable configuration the engine executes
// (C4). Nothing in Graph is mutated after Compile returns; live reload
// replaces the whole *Graph pointer atomically (spec.md §3 invariants).
type Graph struct {
	Actions []Action // arena; index 0 is always a NoOp

	Defsrc   []keycode.KeyCode
	ColIndex map[keycode.KeyCode]int

	Layers       []Layer
	DefaultLayer int

	Overrides []Override

	ChordGroups map[string]*ChordGroup

	Sequences *SeqTrie

	VirtualKeys   map[string]int // name -> slot index
	VirtualKeyInv []string       // slot index -> name

	KeyOutputs KeyOutputs

	Options config.Options
}

func newGraph() *Graph {
	g := &Graph{
		ColIndex:    make(map[keycode.KeyCode]int),
		ChordGroups: make(map[string]*ChordGroup),
		Sequences:   NewSeqTrie(),
		VirtualKeys: make(map[string]int),
		KeyOutputs:  make(KeyOutputs),
	}
	g.Actions = append(g.Actions, Action{Kind: ActionNoOp})
	return g
}

// Add appends an action to the arena and returns its stable reference.
func (g *Graph) add(a Action) ActionRef {
	g.Actions = append(g.Actions, a)
	return ActionRef(len(g.Actions) - 1)
}

func (g *Graph) At(ref ActionRef) *Action {
	if ref < 0 || int(ref) >= len(g.Actions) {
		return &g.Actions[0]
	}
	return &g.Actions[ref]
}

// Resolve returns the compiled action at (layerIndex, keycode), applying
// Transparent resolution: a Transparent cell on any layer other than 0
// resolves to layer 0's cell at the same column. Options.DelegateToFirstLayer
// is not read here, and there is no fallback to the defsrc key itself: a
// Transparent cell on layer 0 (or one that layer 0 maps to Transparent)
// resolves to that Transparent action, which the engine treats as inert.
func (g *Graph) Resolve(layerIndex int, col int) ActionRef {
	if layerIndex < 0 || layerIndex >= len(g.Layers) {
		return 0
	}
	ref := g.Layers[layerIndex].Physical[col]
	seen := map[int]bool{}
	for g.At(ref).Kind == ActionTransparent && !seen[layerIndex] {
		seen[layerIndex] = true
		layerIndex = 0
		ref = g.Layers[layerIndex].Physical[col]
	}
	return ref
}

var (
	errAncestorConflict  = newSeqErr("sequence is an ancestor of a previously defined sequence")
	errDescendantConflict = newSeqErr("sequence is a descendant of a previously defined sequence")
	errDuplicateSequence = newSeqErr("duplicate sequence path")
)

type seqErr string

func newSeqErr(s string) error { return seqErr(s) }
func (e seqErr) Error() string { return string(e) }
