package layout

import (
	"strconv"
	"strings"

	"layerkeyd/internal/config"
	"layerkeyd/internal/keycode"
	"layerkeyd/internal/sexpr"
)

// compileActionExpr lowers one action-expression node (a layer cell, an
// alias body, a chord/tap-dance/one-shot sub-action, ...) into an
// ActionRef. layerIdx/col are only meaningful for direct layer cells and
// are passed through unused by most forms; they exist so a future
// cell-position-sensitive action (there are none yet) has somewhere to
// read from.
func (c *compiler) compileActionExpr(n sexpr.Node, layerIdx, col int) ActionRef {
	switch v := n.(type) {
	case *sexpr.Atom:
		return c.compileAtomAction(v)
	case *sexpr.List:
		return c.compileListAction(v, layerIdx, col)
	default:
		return 0
	}
}

func (c *compiler) compileAtomAction(a *sexpr.Atom) ActionRef {
	switch a.Value {
	case "_":
		return c.g.add(Action{Kind: ActionTransparent})
	case "XX", "nop":
		return 0
	}
	if strings.HasPrefix(a.Value, "@") {
		name := strings.TrimPrefix(a.Value, "@")
		if c.aliasPending[name] {
			c.errf(a.Span(), c.file, "alias @%s is referenced before its definition completes (forward/self reference)", name)
			return 0
		}
		ref, ok := c.aliases[name]
		if !ok {
			c.errf(a.Span(), c.file, "undefined alias @%s", name)
			return 0
		}
		return ref
	}
	text := a.Value
	if strings.HasPrefix(text, "$") {
		text = c.substituteVar(text)
	}
	if k, ok := keycode.Lookup(text); ok {
		return c.g.add(Action{Kind: ActionKeyCode, Key: k})
	}
	c.errf(a.Span(), c.file, "unrecognized action atom %q", a.Value)
	return 0
}

func (c *compiler) compileListAction(l *sexpr.List, layerIdx, col int) ActionRef {
	head := l.Head()
	rest := l.Rest()

	switch head {
	case "multi":
		if keys, ok := c.allBareKeycodes(rest); ok {
			return c.g.add(Action{Kind: ActionMultipleKeyCodes, Keys: keys})
		}
		return c.g.add(Action{Kind: ActionMultipleActions, Children: c.compileActionList(rest, layerIdx, col)})

	case "layer-while-held":
		return c.g.add(Action{Kind: ActionLayer, Layer: c.resolveLayerArg(rest, l)})

	case "layer-switch":
		return c.g.add(Action{Kind: ActionDefaultLayer, Layer: c.resolveLayerArg(rest, l)})

	case "tap-hold", "tap-hold-press", "tap-hold-release":
		return c.compileTapHold(head, rest, l, layerIdx, col)

	case "tap-dance", "tap-dance-eager":
		return c.compileTapDance(head, rest, l, layerIdx, col)

	case "one-shot", "one-shot-press", "one-shot-release", "one-shot-press-pcancel", "one-shot-release-pcancel":
		return c.compileOneShot(head, rest, l, layerIdx, col)

	case "chord":
		return c.compileChordRef(rest, l)

	case "release-key":
		return c.compileReleaseKey(rest, l)

	case "release-layer":
		return c.g.add(Action{Kind: ActionReleaseState, Release: ReleaseTarget{IsLayer: true, Layer: c.resolveLayerArg(rest, l)}})

	case "fork":
		return c.compileFork(rest, l, layerIdx, col)

	case "switch":
		return c.compileSwitch(rest, l, layerIdx, col)

	case "macro":
		return c.compileMacro(rest, l, false)
	case "macro-repeat":
		return c.compileMacro(rest, l, true)

	case "cancel-sequences":
		return c.g.add(Action{Kind: ActionCancelSequences})

	case "cmd":
		return c.compileCustomSingle(customCmdFromArgs(rest))

	case "unicode":
		return c.compileCustomSingle(c.customUnicode(rest, l))

	case "caps-word", "caps-word-toggle":
		return c.compileCustomSingle(CustomAction{Kind: CustomCapsWordToggle})

	case "live-reload":
		return c.compileCustomSingle(CustomAction{Kind: CustomLiveReload})
	case "live-reload-next":
		return c.compileCustomSingle(CustomAction{Kind: CustomLiveReloadNext})
	case "live-reload-prev":
		return c.compileCustomSingle(CustomAction{Kind: CustomLiveReloadPrev})
	case "live-reload-num":
		return c.compileCustomSingle(CustomAction{Kind: CustomLiveReload, ReloadNum: int(c.intArg(rest, 0, l))})
	case "live-reload-file":
		return c.compileCustomSingle(CustomAction{Kind: CustomLiveReload, ReloadPath: c.stringArg(rest, 0, l)})

	case "mouse-click":
		return c.compileCustomSingle(CustomAction{Kind: CustomMouseClick, MouseButton: c.keyArg(rest, 0, l)})
	case "mouse-release":
		return c.compileCustomSingle(CustomAction{Kind: CustomMouseRelease, MouseButton: c.keyArg(rest, 0, l)})
	case "mouse-set-pos":
		return c.compileCustomSingle(CustomAction{Kind: CustomMouseSetPosition, X: int(c.intArg(rest, 0, l)), Y: int(c.intArg(rest, 1, l))})

	case "movemouse-up", "movemouse-down", "movemouse-left", "movemouse-right":
		return c.compileCustomSingle(c.mouseMove(head, rest, l))
	case "movemouse-accel-up", "movemouse-accel-down", "movemouse-accel-left", "movemouse-accel-right":
		return c.compileCustomSingle(c.mouseMoveAccel(head, rest, l))

	case "scroll-up", "scroll-down", "scroll-left", "scroll-right":
		return c.compileCustomSingle(c.mouseScroll(head, rest, l))

	case "unmod":
		return c.compileCustomSingle(CustomAction{Kind: CustomUnmod, KeysToStrip: c.keySetArg(rest)})
	case "unshift":
		return c.compileCustomSingle(CustomAction{Kind: CustomUnshift, KeysToStrip: c.keySetArg(rest)})

	case "dynamic-macro-record":
		return c.compileCustomSingle(CustomAction{Kind: CustomDynamicMacroRecordStart, MacroSlot: int(c.intArg(rest, 0, l))})
	case "dynamic-macro-record-stop":
		return c.compileCustomSingle(CustomAction{Kind: CustomDynamicMacroRecordStop})
	case "dynamic-macro-play":
		return c.compileCustomSingle(CustomAction{Kind: CustomDynamicMacroPlay, MacroSlot: int(c.intArg(rest, 0, l))})

	case "sequence-leader":
		return c.compileCustomSingle(CustomAction{
			Kind:       CustomSequenceLeader,
			SeqTimeout: c.intArg(rest, 0, l),
			SeqMode:    sequenceInputModeFromConfig(c.g.Options.SequenceInputMode),
		})

	case "t", "template-expand":
		return c.compileTemplateCall(rest, l, layerIdx, col)

	default:
		c.errf(l.Span(), c.file, "unrecognized action form (%s ...)", head)
		return 0
	}
}

// allBareKeycodes reports whether every node is a plain key-name atom (no
// aliases, sentinels, or nested forms), letting `multi` compile to the
// lighter ActionMultipleKeyCodes representation instead of a child list.
func (c *compiler) allBareKeycodes(nodes []sexpr.Node) ([]keycode.KeyCode, bool) {
	keys := make([]keycode.KeyCode, 0, len(nodes))
	for _, n := range nodes {
		a, ok := n.(*sexpr.Atom)
		if !ok {
			return nil, false
		}
		k, ok := keycode.Lookup(a.Value)
		if !ok {
			return nil, false
		}
		keys = append(keys, k)
	}
	return keys, true
}

func (c *compiler) compileActionList(nodes []sexpr.Node, layerIdx, col int) []ActionRef {
	out := make([]ActionRef, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, c.compileActionExpr(n, layerIdx, col))
	}
	return out
}

func (c *compiler) compileCustomSingle(a CustomAction) ActionRef {
	return c.g.add(Action{Kind: ActionCustom, Custom: []CustomAction{a}})
}

// --- argument helpers -------------------------------------------------

func (c *compiler) atomAt(nodes []sexpr.Node, i int, l *sexpr.List) (*sexpr.Atom, bool) {
	if i >= len(nodes) {
		c.errf(l.Span(), c.file, "(%s ...) expects at least %d arguments", l.Head(), i+1)
		return nil, false
	}
	a, ok := nodes[i].(*sexpr.Atom)
	if !ok {
		c.errf(nodes[i].Span(), c.file, "(%s ...) argument %d must be an atom", l.Head(), i+1)
		return nil, false
	}
	return a, true
}

func (c *compiler) intArg(nodes []sexpr.Node, i int, l *sexpr.List) uint16 {
	a, ok := c.atomAt(nodes, i, l)
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(c.substituteVar(a.Value), 0, 16)
	if err != nil {
		c.errf(a.Span(), c.file, "expected an integer, found %q", a.Value)
		return 0
	}
	return uint16(n)
}

func (c *compiler) stringArg(nodes []sexpr.Node, i int, l *sexpr.List) string {
	a, ok := c.atomAt(nodes, i, l)
	if !ok {
		return ""
	}
	return c.substituteVar(a.Value)
}

func (c *compiler) keyArg(nodes []sexpr.Node, i int, l *sexpr.List) keycode.KeyCode {
	a, ok := c.atomAt(nodes, i, l)
	if !ok {
		return keycode.NoKey
	}
	k, ok := keycode.Lookup(c.substituteVar(a.Value))
	if !ok {
		c.errf(a.Span(), c.file, "unknown key name %q", a.Value)
		return keycode.NoKey
	}
	return k
}

func (c *compiler) keySetArg(nodes []sexpr.Node) keycode.Set {
	set := keycode.NewSet()
	for _, n := range nodes {
		a, ok := n.(*sexpr.Atom)
		if !ok {
			continue
		}
		if k, ok := keycode.Lookup(a.Value); ok {
			set.Add(k)
		} else {
			c.errf(a.Span(), c.file, "unknown key name %q", a.Value)
		}
	}
	return set
}

func (c *compiler) resolveLayerArg(nodes []sexpr.Node, l *sexpr.List) int {
	a, ok := c.atomAt(nodes, 0, l)
	if !ok {
		return 0
	}
	idx, ok := c.layerIndexByName[a.Value]
	if !ok {
		c.errf(a.Span(), c.file, "unknown layer %q", a.Value)
		return 0
	}
	return idx
}

// --- tap-hold / tap-dance / one-shot ------------------------------------

func (c *compiler) compileTapHold(head string, rest []sexpr.Node, l *sexpr.List, layerIdx, col int) ActionRef {
	if len(rest) != 4 {
		c.errf(l.Span(), c.file, "(%s timeout interval tap-action hold-action) requires 4 arguments", head)
		return 0
	}
	timeout := c.intArg(rest, 0, l)
	interval := c.intArg(rest, 1, l)
	tap := c.compileActionExpr(rest[2], layerIdx, col)
	hold := c.compileActionExpr(rest[3], layerIdx, col)
	kind := ResolverDefault
	switch head {
	case "tap-hold-press":
		kind = ResolverHoldOnOtherKeyPress
	case "tap-hold-release":
		kind = ResolverPermissiveHold
	}
	return c.g.add(Action{Kind: ActionHoldTap, HoldTap: &HoldTapSpec{
		TimeoutTicks: timeout, TapHoldInterval: interval,
		Tap: tap, Hold: hold, TimeoutAction: TimeoutHold, ResolverKind: kind,
	}})
}

func (c *compiler) compileTapDance(head string, rest []sexpr.Node, l *sexpr.List, layerIdx, col int) ActionRef {
	if len(rest) != 2 {
		c.errf(l.Span(), c.file, "(%s timeout (action...)) requires 2 arguments", head)
		return 0
	}
	timeout := c.intArg(rest, 0, l)
	actionsList, ok := rest[1].(*sexpr.List)
	if !ok {
		c.errf(rest[1].Span(), c.file, "(%s ...) second argument must be a list of actions", head)
		return 0
	}
	return c.g.add(Action{Kind: ActionTapDance, TapDance: &TapDanceSpec{
		TimeoutTicks: timeout,
		Actions:      c.compileActionList(actionsList.Items, layerIdx, col),
		Eager:        head == "tap-dance-eager",
	}})
}

func (c *compiler) compileOneShot(head string, rest []sexpr.Node, l *sexpr.List, layerIdx, col int) ActionRef {
	if len(rest) != 2 {
		c.errf(l.Span(), c.file, "(%s timeout action) requires 2 arguments", head)
		return 0
	}
	timeout := c.intArg(rest, 0, l)
	inner := c.compileActionExpr(rest[1], layerIdx, col)
	end := EndOnFirstPress
	switch head {
	case "one-shot-release":
		end = EndOnFirstRelease
	case "one-shot-press-pcancel":
		end = EndOnFirstPressPCancel
	case "one-shot-release-pcancel":
		end = EndOnFirstReleasePCancel
	}
	return c.g.add(Action{Kind: ActionOneShot, OneShot: &OneShotSpec{Inner: inner, Timeout: timeout, End: end}})
}

func (c *compiler) compileChordRef(rest []sexpr.Node, l *sexpr.List) ActionRef {
	if len(rest) != 2 {
		c.errf(l.Span(), c.file, "(chord group key) requires exactly 2 arguments")
		return 0
	}
	group, ok1 := c.atomAt(rest, 0, l)
	key, ok2 := c.atomAt(rest, 1, l)
	if !ok1 || !ok2 {
		return 0
	}
	return c.g.add(Action{Kind: ActionChords, ChordGroup: group.Value, ChordKeyName: key.Value})
}

func (c *compiler) compileReleaseKey(rest []sexpr.Node, l *sexpr.List) ActionRef {
	k := c.keyArg(rest, 0, l)
	return c.g.add(Action{Kind: ActionReleaseState, Release: ReleaseTarget{Key: k}})
}

func (c *compiler) compileFork(rest []sexpr.Node, l *sexpr.List, layerIdx, col int) ActionRef {
	if len(rest) != 3 {
		c.errf(l.Span(), c.file, "(fork left right (triggers...)) requires exactly 3 arguments")
		return 0
	}
	left := c.compileActionExpr(rest[0], layerIdx, col)
	right := c.compileActionExpr(rest[1], layerIdx, col)
	triggersList, ok := rest[2].(*sexpr.List)
	if !ok {
		c.errf(rest[2].Span(), c.file, "fork's third argument must be a key list")
		return 0
	}
	return c.g.add(Action{Kind: ActionFork, Fork: &ForkSpec{
		Left: left, Right: right, RightTrigger: c.keySetArg(triggersList.Items),
	}})
}

// compileSwitch expects each case as a 3-item list: (predicate action
// break-or-fallthrough). A Predicate is `(key NAME)`, `(and p...)`,
// `(or p...)`, or `(not p)`.
func (c *compiler) compileSwitch(rest []sexpr.Node, l *sexpr.List, layerIdx, col int) ActionRef {
	spec := &SwitchSpec{}
	for _, caseNode := range rest {
		caseList, ok := caseNode.(*sexpr.List)
		if !ok || len(caseList.Items) != 3 {
			c.errf(caseNode.Span(), c.file, "switch case must be (predicate action break-or-fallthrough)")
			continue
		}
		predNode, ok := caseList.Items[0].(*sexpr.List)
		if !ok {
			c.errf(caseList.Items[0].Span(), c.file, "switch predicate must be a list")
			continue
		}
		pred := c.compilePredicate(predNode)
		action := c.compileActionExpr(caseList.Items[1], layerIdx, col)
		fallthroughFlag := false
		if flagAtom, ok := caseList.Items[2].(*sexpr.Atom); ok {
			fallthroughFlag = flagAtom.Value == "fallthrough"
		}
		spec.Cases = append(spec.Cases, SwitchCase{Predicate: pred, Action: action, Fallthrough: fallthroughFlag})
	}
	return c.g.add(Action{Kind: ActionSwitch, Switch: spec})
}

func (c *compiler) compilePredicate(l *sexpr.List) *Predicate {
	switch l.Head() {
	case "key":
		a, ok := c.atomAt(l.Rest(), 0, l)
		if !ok {
			return &Predicate{Op: PredOr}
		}
		k, ok := keycode.Lookup(a.Value)
		if !ok {
			c.errf(a.Span(), c.file, "unknown key name %q in switch predicate", a.Value)
			return &Predicate{Op: PredOr}
		}
		return &Predicate{Op: PredKey, Key: k}
	case "and":
		p := &Predicate{Op: PredAnd}
		for _, item := range l.Rest() {
			if sub, ok := item.(*sexpr.List); ok {
				p.Children = append(p.Children, c.compilePredicate(sub))
			}
		}
		return p
	case "or":
		p := &Predicate{Op: PredOr}
		for _, item := range l.Rest() {
			if sub, ok := item.(*sexpr.List); ok {
				p.Children = append(p.Children, c.compilePredicate(sub))
			}
		}
		return p
	case "not":
		if len(l.Rest()) != 1 {
			c.errf(l.Span(), c.file, "(not p) requires exactly one child predicate")
			return &Predicate{Op: PredOr}
		}
		sub, ok := l.Rest()[0].(*sexpr.List)
		if !ok {
			return &Predicate{Op: PredOr}
		}
		return &Predicate{Op: PredNot, Children: []*Predicate{c.compilePredicate(sub)}}
	default:
		c.errf(l.Span(), c.file, "unrecognized switch predicate (%s ...)", l.Head())
		return &Predicate{Op: PredOr}
	}
}

// --- macro / macro-repeat ------------------------------------------------

func (c *compiler) compileMacro(rest []sexpr.Node, l *sexpr.List, repeat bool) ActionRef {
	var events []SeqEvent
	for _, item := range rest {
		switch v := item.(type) {
		case *sexpr.Atom:
			if n, err := strconv.ParseUint(v.Value, 0, 16); err == nil {
				events = append(events, SeqEvent{Kind: SeqDelay, DelayTicks: uint16(n)})
				continue
			}
			k, ok := keycode.Lookup(v.Value)
			if !ok {
				c.errf(v.Span(), c.file, "unknown key name %q in macro", v.Value)
				continue
			}
			events = append(events, SeqEvent{Kind: SeqPress, Key: k}, SeqEvent{Kind: SeqRelease, Key: k})
		case *sexpr.List:
			switch v.Head() {
			case "down":
				k := c.keyArg(v.Rest(), 0, v)
				events = append(events, SeqEvent{Kind: SeqPress, Key: k})
			case "up":
				k := c.keyArg(v.Rest(), 0, v)
				events = append(events, SeqEvent{Kind: SeqRelease, Key: k})
			default:
				ref := c.compileActionExpr(v, -1, -1)
				custom := *c.g.At(ref)
				if custom.Kind == ActionCustom && len(custom.Custom) == 1 {
					events = append(events, SeqEvent{Kind: SeqCustom, Custom: &custom.Custom[0]})
				} else {
					c.errf(v.Span(), c.file, "macro step (%s ...) is not a key, delay, or custom action", v.Head())
				}
			}
		}
	}
	kind := ActionSequence
	if repeat {
		kind = ActionRepeatableSequence
	}
	return c.g.add(Action{Kind: kind, Sequence: events})
}

// --- custom-action helpers ------------------------------------------------

func customCmdFromArgs(rest []sexpr.Node) CustomAction {
	cmd := make([]string, 0, len(rest))
	for _, item := range rest {
		if a, ok := item.(*sexpr.Atom); ok {
			cmd = append(cmd, a.Value)
		}
	}
	return CustomAction{Kind: CustomCmdExec, Command: cmd}
}

func (c *compiler) customUnicode(rest []sexpr.Node, l *sexpr.List) CustomAction {
	s := c.stringArg(rest, 0, l)
	var r rune
	for _, ch := range s {
		r = ch
		break
	}
	return CustomAction{Kind: CustomUnicode, Rune: r}
}

func (c *compiler) mouseMove(head string, rest []sexpr.Node, l *sexpr.List) CustomAction {
	dir := directionFromHead(head, "movemouse-")
	return CustomAction{
		Kind: CustomMouseMove, Direction: dir,
		MinDistance: int(c.intArg(rest, 0, l)),
		MaxDistance: int(c.intArg(rest, 1, l)),
	}
}

func (c *compiler) mouseMoveAccel(head string, rest []sexpr.Node, l *sexpr.List) CustomAction {
	dir := directionFromHead(head, "movemouse-accel-")
	return CustomAction{
		Kind: CustomMouseMoveAccel, Direction: dir,
		MinDistance:    int(c.intArg(rest, 0, l)),
		MaxDistance:    int(c.intArg(rest, 1, l)),
		AccelTimeTicks: int(c.intArg(rest, 2, l)),
	}
}

func (c *compiler) mouseScroll(head string, rest []sexpr.Node, l *sexpr.List) CustomAction {
	dir := directionFromHead(head, "scroll-")
	return CustomAction{
		Kind: CustomMouseScroll, Direction: dir,
		ScrollIntervalTicks: int(c.intArg(rest, 0, l)),
	}
}

func directionFromHead(head, prefix string) MouseDirection {
	switch strings.TrimPrefix(head, prefix) {
	case "up":
		return DirUp
	case "down":
		return DirDown
	case "left":
		return DirLeft
	case "right":
		return DirRight
	default:
		return DirUp
	}
}

func sequenceInputModeFromConfig(m config.SequenceInputMode) SequenceInputMode {
	switch m {
	case config.SeqHiddenSuppressed:
		return SeqModeHiddenSuppressed
	case config.SeqHiddenDelayType:
		return SeqModeHiddenDelayType
	default:
		return SeqModeVisibleBackspaced
	}
}

// --- templates --------------------------------------------------------

func (c *compiler) compileTemplateCall(rest []sexpr.Node, l *sexpr.List, layerIdx, col int) ActionRef {
	if len(rest) == 0 {
		c.errf(l.Span(), c.file, "(t name ...) requires a template name")
		return 0
	}
	nameAtom, ok := rest[0].(*sexpr.Atom)
	if !ok {
		c.errf(rest[0].Span(), c.file, "template name must be an atom")
		return 0
	}
	tmpl, ok := c.templates[nameAtom.Value]
	if !ok {
		c.errf(nameAtom.Span(), c.file, "undefined template %q", nameAtom.Value)
		return 0
	}
	args := rest[1:]
	expanded := substituteTemplateNodes(tmpl.Items, args)
	if len(expanded) == 1 {
		return c.compileActionExpr(expanded[0], layerIdx, col)
	}
	return c.g.add(Action{Kind: ActionMultipleActions, Children: c.compileActionList(expanded, layerIdx, col)})
}

// substituteTemplateNodes deep-copies a template body, replacing $1..$9
// placeholder atoms with the corresponding call argument node.
func substituteTemplateNodes(nodes []sexpr.Node, args []sexpr.Node) []sexpr.Node {
	out := make([]sexpr.Node, len(nodes))
	for i, n := range nodes {
		out[i] = substituteTemplateNode(n, args)
	}
	return out
}

func substituteTemplateNode(n sexpr.Node, args []sexpr.Node) sexpr.Node {
	switch v := n.(type) {
	case *sexpr.Atom:
		if len(v.Value) == 2 && v.Value[0] == '$' && v.Value[1] >= '1' && v.Value[1] <= '9' {
			idx := int(v.Value[1] - '1')
			if idx < len(args) {
				return args[idx]
			}
		}
		return v
	case *sexpr.List:
		return &sexpr.List{Items: substituteTemplateNodes(v.Items, args), SpanVal: v.SpanVal}
	default:
		return n
	}
}
