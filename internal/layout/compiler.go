package layout

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"layerkeyd/internal/config"
	"layerkeyd/internal/diag"
	"layerkeyd/internal/keycode"
	"layerkeyd/internal/sexpr"
)

// Platform selects which deflocalkeys-<platform> block the reader retains;
// the compiler itself is platform-agnostic once the reader has filtered.
type Platform string

// compiler accumulates state across the fixed-order walk of top-level
// forms (spec.md §4.2).
type compiler struct {
	graph *diagGraph
	g     *Graph
	vars  map[string]string
	env   config.EnvSnapshot

	aliases       map[string]ActionRef
	aliasPending  map[string]bool // guards against a forward/self reference
	aliasExprs    map[string]sexpr.Node
	aliasOrder    []string

	templates map[string]*sexpr.List

	layerOrder       []string
	layerIndexByName map[string]int
	sawDefsrc        bool
	sawDefcfg        bool

	// vkActions holds each virtual key's compiled action; fake keys carry
	// one action shared by every layer (spec.md §4.2), so a new layer's
	// Virtual slice is simply a copy of this slice at creation time.
	vkActions []ActionRef

	file string
}

// diagGraph bundles the report with the file name currently being
// compiled, to keep call sites short.
type diagGraph struct {
	report diag.Report
}

// Compile lowers a reader Result into a Graph. On semantic error the
// returned *diag.Report carries SeverityError diagnostics and Graph is nil.
func Compile(res *sexpr.Result) (*Graph, *diag.Report) {
	c := &compiler{
		g:            newGraph(),
		vars:         map[string]string{},
		env:          config.SnapshotEnviron(os.Environ()),
		aliases:      map[string]ActionRef{},
		aliasPending: map[string]bool{},
		aliasExprs:   map[string]sexpr.Node{},
		templates:    map[string]*sexpr.List{},
		graph:        &diagGraph{},
	}
	c.g.Options = config.Default()

	byHead := map[string][]sexpr.TopLevel{}
	for _, tl := range res.TopLevel {
		byHead[tl.Form.Head()] = append(byHead[tl.Form.Head()], tl)
	}

	// Layers may reference each other out of textual order (e.g. a
	// `layer-while-held` pointing at a layer defined later in the file),
	// so layer names are indexed up front before any action expression is
	// compiled.
	c.layerIndexByName = map[string]int{}
	for _, head := range []string{"deflayer", "deflayermap"} {
		for _, tl := range byHead[head] {
			rest := tl.Form.Rest()
			if len(rest) == 0 {
				continue
			}
			if a, ok := rest[0].(*sexpr.Atom); ok {
				if _, dup := c.layerIndexByName[a.Value]; !dup {
					c.layerIndexByName[a.Value] = len(c.layerIndexByName)
				}
			}
		}
	}
	c.g.Layers = make([]Layer, len(c.layerIndexByName))

	// Fixed processing order (spec.md §4.2).
	// Aliases, templates and virtual-key slots must exist before any layer
	// or chord-group action expression can reference them; chord-group
	// names are resolved lazily at runtime so defchords may follow layers.
	order := []string{
		"defcfg", "defsrc", "defvar", "deftemplate",
		"defalias", "defaliasenvcond",
		"deffakekeys", "defvirtualkeys",
		"deflayer", "deflayermap",
		"defoverrides", "defchords", "defchordsv2-experimental",
		"defseq",
	}

	oneOnly := map[string]bool{"defcfg": true, "defsrc": true}
	for _, head := range order {
		forms := byHead[head]
		if oneOnly[head] && len(forms) > 1 {
			c.errf(forms[1].Form.Span(), forms[1].File, "duplicate top-level form %q: only one is allowed", head)
			continue
		}
		for _, tl := range forms {
			c.file = tl.File
			c.compileForm(head, tl.Form)
		}
	}

	// Reject unknown top-level heads.
	known := map[string]bool{}
	for _, h := range order {
		known[h] = true
	}
	known["include"] = true
	for _, tl := range res.TopLevel {
		h := tl.Form.Head()
		if !known[h] {
			c.errf(tl.Form.Span(), tl.File, "unknown top-level form %q", h)
		}
	}

	if c.graph.report.HasErrors() {
		return nil, &c.graph.report
	}
	c.buildKeyOutputs()
	return c.g, &c.graph.report
}

// buildKeyOutputs indexes, per layer, which output KeyCodes each physical
// input could possibly produce, so the projector's key-repeat handling
// (spec.md §4.5 step 7) can find the live binding for a Repeat event
// without re-walking the action graph on every repeat.
func (c *compiler) buildKeyOutputs() {
	for layerIdx, layer := range c.g.Layers {
		out := map[keycode.KeyCode][]keycode.KeyCode{}
		for col, ref := range layer.Physical {
			if col >= len(c.g.Defsrc) {
				continue
			}
			in := c.g.Defsrc[col]
			out[in] = c.possibleOutputs(ref, nil)
		}
		c.g.KeyOutputs[layerIdx] = out
	}
}

// possibleOutputs collects the bare KeyCodes a compiled action could
// directly emit, descending into compound actions that have one
// unconditional nested action (multi, both tap-hold branches, one-shot's
// inner action). It is a
// best-effort static approximation: actions whose output depends on
// runtime state (switch, fork, tap-dance) contribute their statically
// reachable branches.
func (c *compiler) possibleOutputs(ref ActionRef, seen map[ActionRef]bool) []keycode.KeyCode {
	if seen == nil {
		seen = map[ActionRef]bool{}
	}
	if seen[ref] {
		return nil
	}
	seen[ref] = true
	act := c.g.At(ref)
	switch act.Kind {
	case ActionKeyCode:
		return []keycode.KeyCode{act.Key}
	case ActionMultipleKeyCodes:
		return append([]keycode.KeyCode{}, act.Keys...)
	case ActionMultipleActions:
		var out []keycode.KeyCode
		for _, child := range act.Children {
			out = append(out, c.possibleOutputs(child, seen)...)
		}
		return out
	case ActionHoldTap:
		out := c.possibleOutputs(act.HoldTap.Tap, seen)
		out = append(out, c.possibleOutputs(act.HoldTap.Hold, seen)...)
		return out
	case ActionTapDance:
		var out []keycode.KeyCode
		for _, a := range act.TapDance.Actions {
			out = append(out, c.possibleOutputs(a, seen)...)
		}
		return out
	case ActionOneShot:
		return c.possibleOutputs(act.OneShot.Inner, seen)
	case ActionFork:
		out := c.possibleOutputs(act.Fork.Left, seen)
		out = append(out, c.possibleOutputs(act.Fork.Right, seen)...)
		return out
	case ActionSwitch:
		var out []keycode.KeyCode
		for _, cs := range act.Switch.Cases {
			out = append(out, c.possibleOutputs(cs.Action, seen)...)
		}
		return out
	default:
		return nil
	}
}

func (c *compiler) errf(span diag.Span, file, format string, args ...any) {
	c.graph.report.Add(diag.Diagnostic{
		Category: diag.CategorySemantic,
		Message:  fmt.Sprintf(format, args...),
		File:     file,
		Span:     span,
		Severity: diag.SeverityError,
		Stage:    diag.StageSemantic,
	})
}

func (c *compiler) compileForm(head string, f *sexpr.List) {
	switch head {
	case "defcfg":
		c.compileDefcfg(f)
	case "defsrc":
		c.compileDefsrc(f)
	case "defvar":
		c.compileDefvar(f)
	case "deftemplate":
		c.compileDeftemplate(f)
	case "deflayer":
		c.compileDeflayer(f)
	case "deflayermap":
		c.compileDeflayermap(f)
	case "defalias":
		c.compileDefalias(f)
	case "defaliasenvcond":
		c.compileDefaliasenvcond(f)
	case "defoverrides":
		c.compileDefoverrides(f)
	case "defchords":
		c.compileDefchords(f, false)
	case "defchordsv2-experimental":
		c.compileDefchords(f, true)
	case "defseq":
		c.compileDefseq(f)
	case "deffakekeys", "defvirtualkeys":
		c.compileDeffakekeys(f)
	}
}

// --- defcfg ---------------------------------------------------------------

func (c *compiler) compileDefcfg(f *sexpr.List) {
	c.sawDefcfg = true
	rest := f.Rest()
	if len(rest)%2 != 0 {
		c.errf(f.Span(), c.file, "defcfg options must be key/value pairs")
		return
	}
	opts := &c.g.Options
	for i := 0; i < len(rest); i += 2 {
		keyAtom, ok := rest[i].(*sexpr.Atom)
		if !ok {
			c.errf(rest[i].Span(), c.file, "defcfg option name must be an atom")
			continue
		}
		valAtom, ok := rest[i+1].(*sexpr.Atom)
		if !ok {
			c.errf(rest[i+1].Span(), c.file, "defcfg option value must be an atom")
			continue
		}
		key, val := keyAtom.Value, valAtom.Value
		switch key {
		case "process-unmapped-keys":
			opts.ProcessUnmappedKeys = val == "true" || val == "yes"
		case "sequence-timeout":
			opts.SequenceTimeout = parseUint16(val)
		case "sequence-input-mode":
			opts.SequenceInputMode = config.SequenceInputMode(val)
		case "log-layer-changes":
			opts.LogLayerChanges = val == "true" || val == "yes"
		case "delegate-to-first-layer":
			opts.DelegateToFirstLayer = val == "true" || val == "yes"
		case "movemouse-smooth-diagonals":
			opts.MovemouseSmoothDiagonals = val == "true" || val == "yes"
		case "movemouse-inherit-accel-state":
			opts.MovemouseInheritAccelState = val == "true" || val == "yes"
		case "dynamic-macro-max-presses":
			opts.DynamicMacroMaxPresses = int(parseUint16(val))
		case "windows-altgr":
			opts.WindowsAltgr = config.WindowsAltgr(val)
		case "linux-unicode-termination":
			opts.LinuxUnicodeTermination = config.LinuxUnicodeTermination(val)
		case "linux-lsft-arrowkey-workaround":
			opts.LinuxLsftArrowkeyWorkaround = val == "true" || val == "yes"
		case "debounce-algorithm":
			opts.DebounceAlgorithm = config.DebounceAlgorithm(val)
		case "debounce-time-ms":
			opts.DebounceTimeMs = parseUint16(val)
		case "chords-v2-min-idle":
			opts.ChordsV2MinIdleTicks = parseUint16(val)
		case "linux-dev", "linux-dev-names-include", "linux-dev-names-exclude", "windows-interception-device":
			opts.DeviceFilters = append(opts.DeviceFilters, val)
		default:
			c.errf(keyAtom.Span(), c.file, "unknown defcfg option %q", key)
		}
	}
}

func parseUint16(s string) uint16 {
	n, _ := strconv.ParseUint(s, 0, 16)
	return uint16(n)
}

// --- defsrc ----------------------------------------------------------------

func (c *compiler) compileDefsrc(f *sexpr.List) {
	c.sawDefsrc = true
	for _, item := range f.Rest() {
		a, ok := item.(*sexpr.Atom)
		if !ok {
			c.errf(item.Span(), c.file, "defsrc entries must be key names")
			continue
		}
		k, ok := keycode.Lookup(a.Value)
		if !ok {
			c.errf(a.Span(), c.file, "unknown key name %q in defsrc", a.Value)
			continue
		}
		if _, dup := c.g.ColIndex[k]; dup {
			c.errf(a.Span(), c.file, "duplicate key %q in defsrc", a.Value)
			continue
		}
		c.g.ColIndex[k] = len(c.g.Defsrc)
		c.g.Defsrc = append(c.g.Defsrc, k)
	}
}

// --- defvar ------------------------------------------------------------

func (c *compiler) compileDefvar(f *sexpr.List) {
	rest := f.Rest()
	for i := 0; i+1 < len(rest); i += 2 {
		nameAtom, ok := rest[i].(*sexpr.Atom)
		if !ok {
			c.errf(rest[i].Span(), c.file, "defvar name must be an atom")
			continue
		}
		c.vars[nameAtom.Value] = c.varValueText(rest[i+1])
	}
}

// varValueText renders a defvar value node back to text, supporting
// `(concat a b ...)` of atoms/vars (spec.md §4.2).
func (c *compiler) varValueText(n sexpr.Node) string {
	switch v := n.(type) {
	case *sexpr.Atom:
		return c.substituteVar(v.Value)
	case *sexpr.List:
		if v.Head() == "concat" {
			var b strings.Builder
			for _, item := range v.Rest() {
				b.WriteString(c.varValueText(item))
			}
			return b.String()
		}
	}
	return ""
}

func (c *compiler) substituteVar(atom string) string {
	if strings.HasPrefix(atom, "$") {
		if v, ok := c.vars[strings.TrimPrefix(atom, "$")]; ok {
			return v
		}
	}
	return atom
}

// --- deftemplate ---------------------------------------------------------

func (c *compiler) compileDeftemplate(f *sexpr.List) {
	rest := f.Rest()
	if len(rest) == 0 {
		c.errf(f.Span(), c.file, "deftemplate requires a name")
		return
	}
	nameAtom, ok := rest[0].(*sexpr.Atom)
	if !ok {
		c.errf(rest[0].Span(), c.file, "deftemplate name must be an atom")
		return
	}
	body := rest[1:]
	// An optional `(param1 param2 ...)` declaration list documents the
	// $1/$2/... placeholders but carries no information the substitution
	// pass needs, so it is skipped rather than treated as a body form.
	if len(body) > 0 {
		if _, isParamList := body[0].(*sexpr.List); isParamList {
			body = body[1:]
		}
	}
	c.templates[nameAtom.Value] = &sexpr.List{Items: body}
}

// --- deflayer / deflayermap -----------------------------------------------

func (c *compiler) compileDeflayer(f *sexpr.List) {
	rest := f.Rest()
	if len(rest) == 0 {
		c.errf(f.Span(), c.file, "deflayer requires a name")
		return
	}
	nameAtom, ok := rest[0].(*sexpr.Atom)
	if !ok {
		c.errf(rest[0].Span(), c.file, "deflayer name must be an atom")
		return
	}
	rest = rest[1:]

	icon := ""
	sawIcon := false
	// Optional leading `(icon "...")` option list entries.
	for len(rest) > 0 {
		opt, ok := rest[0].(*sexpr.List)
		if !ok {
			break
		}
		if opt.Head() != "icon" {
			c.errf(opt.Span(), c.file, "invalid option in deflayer: %q, expected one of [icon]", opt.Head())
			rest = rest[1:]
			continue
		}
		if sawIcon {
			c.errf(opt.Span(), c.file, "duplicate icon option in deflayer")
		}
		sawIcon = true
		if len(opt.Rest()) != 1 {
			c.errf(opt.Span(), c.file, "icon option requires exactly one value")
		} else if v, ok := opt.Rest()[0].(*sexpr.Atom); ok {
			icon = v.Value
		}
		rest = rest[1:]
	}

	if !c.sawDefsrc {
		c.errf(f.Span(), c.file, "deflayer %q appears before defsrc", nameAtom.Value)
		return
	}
	if len(rest) != len(c.g.Defsrc) {
		c.errf(f.Span(), c.file, "deflayer %q has %d actions, but defsrc declares %d columns", nameAtom.Value, len(rest), len(c.g.Defsrc))
		return
	}

	layerIdx := c.layerIndexByName[nameAtom.Value]
	layer := Layer{Name: nameAtom.Value, Icon: icon, Physical: make([]ActionRef, len(rest))}
	for i, item := range rest {
		layer.Physical[i] = c.compileActionExpr(item, layerIdx, i)
	}
	layer.Virtual = append([]ActionRef(nil), c.vkActions...)
	c.g.Layers[layerIdx] = layer
	c.layerOrder = append(c.layerOrder, nameAtom.Value)
}

func (c *compiler) compileDeflayermap(f *sexpr.List) {
	rest := f.Rest()
	if len(rest) == 0 {
		c.errf(f.Span(), c.file, "deflayermap requires a name")
		return
	}
	nameAtom, ok := rest[0].(*sexpr.Atom)
	if !ok {
		return
	}
	if !c.sawDefsrc {
		c.errf(f.Span(), c.file, "deflayermap %q appears before defsrc", nameAtom.Value)
		return
	}
	layerIdx := c.layerIndexByName[nameAtom.Value]
	layer := Layer{Name: nameAtom.Value, Physical: make([]ActionRef, len(c.g.Defsrc))}
	for i := range layer.Physical {
		layer.Physical[i] = c.g.add(Action{Kind: ActionTransparent})
	}
	for _, pairNode := range rest[1:] {
		pair, ok := pairNode.(*sexpr.List)
		if !ok || len(pair.Items) != 2 {
			c.errf(pairNode.Span(), c.file, "deflayermap entries must be (input action) pairs")
			continue
		}
		inAtom, ok := pair.Items[0].(*sexpr.Atom)
		if !ok {
			continue
		}
		switch inAtom.Value {
		case "_", "__", "___":
			// Sentinels: "any default-source", "any unmapped", "any" —
			// applying them uniformly to every remaining transparent
			// column is a reasonable generalization since this compiler
			// has no separate "unmapped key" column class distinct from
			// defsrc.
			action := c.compileActionExpr(pair.Items[1], layerIdx, -1)
			for i := range layer.Physical {
				if c.g.At(layer.Physical[i]).Kind == ActionTransparent {
					layer.Physical[i] = action
				}
			}
			continue
		}
		k, ok := keycode.Lookup(inAtom.Value)
		if !ok {
			c.errf(inAtom.Span(), c.file, "unknown key name %q in deflayermap", inAtom.Value)
			continue
		}
		col, ok := c.g.ColIndex[k]
		if !ok {
			c.errf(inAtom.Span(), c.file, "key %q in deflayermap is not declared in defsrc", inAtom.Value)
			continue
		}
		layer.Physical[col] = c.compileActionExpr(pair.Items[1], layerIdx, col)
	}
	layer.Virtual = append([]ActionRef(nil), c.vkActions...)
	c.g.Layers[layerIdx] = layer
	c.layerOrder = append(c.layerOrder, nameAtom.Value)
}

// --- defalias / defaliasenvcond -------------------------------------------

func (c *compiler) compileDefalias(f *sexpr.List) {
	rest := f.Rest()
	for i := 0; i+1 < len(rest); i += 2 {
		nameAtom, ok := rest[i].(*sexpr.Atom)
		if !ok {
			c.errf(rest[i].Span(), c.file, "defalias name must be an atom")
			continue
		}
		c.defineAlias(nameAtom.Value, rest[i+1], nameAtom.Span())
	}
}

func (c *compiler) defineAlias(name string, expr sexpr.Node, span diag.Span) {
	if _, dup := c.aliasExprs[name]; dup {
		c.errf(span, c.file, "duplicate alias @%s", name)
		return
	}
	c.aliasExprs[name] = expr
	c.aliasOrder = append(c.aliasOrder, name)
	// Resolve eagerly: aliases may only reference previously-defined
	// aliases (spec.md §4.2: "resolution is a single forward pass —
	// backward references are a compile-time error").
	c.aliasPending[name] = true
	ref := c.compileActionExpr(expr, -1, -1)
	delete(c.aliasPending, name)
	c.aliases[name] = ref
}

func (c *compiler) compileDefaliasenvcond(f *sexpr.List) {
	rest := f.Rest()
	if len(rest) == 0 {
		return
	}
	cond, ok := rest[0].(*sexpr.List)
	if !ok || len(cond.Items) != 2 {
		c.errf(f.Span(), c.file, "defaliasenvcond requires a (VAR VALUE) condition")
		return
	}
	varAtom, ok1 := cond.Items[0].(*sexpr.Atom)
	valAtom, ok2 := cond.Items[1].(*sexpr.Atom)
	if !ok1 || !ok2 {
		return
	}
	if c.env[varAtom.Value] != valAtom.Value {
		return
	}
	aliasRest := rest[1:]
	for i := 0; i+1 < len(aliasRest); i += 2 {
		nameAtom, ok := aliasRest[i].(*sexpr.Atom)
		if !ok {
			continue
		}
		c.defineAlias(nameAtom.Value, aliasRest[i+1], nameAtom.Span())
	}
}

// --- defoverrides ----------------------------------------------------------

func (c *compiler) compileDefoverrides(f *sexpr.List) {
	for _, pairNode := range f.Rest() {
		pair, ok := pairNode.(*sexpr.List)
		if !ok || len(pair.Items) != 2 {
			c.errf(pairNode.Span(), c.file, "defoverrides entries must be (<in-keys> <out-keys>) pairs")
			continue
		}
		inList, ok1 := pair.Items[0].(*sexpr.List)
		outList, ok2 := pair.Items[1].(*sexpr.List)
		if !ok1 || !ok2 {
			c.errf(pairNode.Span(), c.file, "override in/out must both be key lists")
			continue
		}
		inMods, inNonMod, ok := c.splitModsAndOne(inList)
		if !ok {
			c.errf(inList.Span(), c.file, "override input must name exactly one non-modifier key")
			continue
		}
		outMods, outNonMod, ok := c.splitModsAndOne(outList)
		if !ok {
			c.errf(outList.Span(), c.file, "override output must name exactly one non-modifier key")
			continue
		}
		c.g.Overrides = append(c.g.Overrides, Override{
			InMods: inMods, InNonMod: inNonMod, OutMods: outMods, OutNonMod: outNonMod,
		})
	}
}

func (c *compiler) splitModsAndOne(list *sexpr.List) (mods keycode.Set, nonMod keycode.KeyCode, ok bool) {
	mods = keycode.NewSet()
	found := false
	for _, item := range list.Items {
		a, ok2 := item.(*sexpr.Atom)
		if !ok2 {
			return nil, 0, false
		}
		k, ok2 := keycode.Lookup(a.Value)
		if !ok2 {
			return nil, 0, false
		}
		if k.IsModifier() {
			mods.Add(k)
			continue
		}
		if found {
			return nil, 0, false
		}
		nonMod = k
		found = true
	}
	if !found {
		return nil, 0, false
	}
	return mods, nonMod, true
}

// --- defchords / defchordsv2-experimental ---------------------------------

func (c *compiler) compileDefchords(f *sexpr.List, v2 bool) {
	rest := f.Rest()
	if len(rest) < 2 {
		c.errf(f.Span(), c.file, "defchords requires a name and a key list")
		return
	}
	nameAtom, ok := rest[0].(*sexpr.Atom)
	if !ok {
		return
	}
	keysList, ok := rest[1].(*sexpr.List)
	if !ok {
		c.errf(rest[1].Span(), c.file, "defchords key list must be a list")
		return
	}
	group := &ChordGroup{
		Name:           nameAtom.Value,
		KeyIndex:       map[string]int{},
		Chords:         map[keycode.Bitmask]ActionRef{},
		DisabledLayers: map[int]bool{},
	}
	if v2 {
		group.MinIdleTicks = c.g.Options.ChordsV2MinIdleTicks
	}
	for _, item := range keysList.Items {
		a, ok := item.(*sexpr.Atom)
		if !ok {
			continue
		}
		if _, dup := group.KeyIndex[a.Value]; dup {
			c.errf(a.Span(), c.file, "duplicate key %q in defchords group %q", a.Value, nameAtom.Value)
			continue
		}
		if len(group.Keys) >= 128 {
			c.errf(a.Span(), c.file, "defchords group %q exceeds the 128-key limit", nameAtom.Value)
			continue
		}
		group.KeyIndex[a.Value] = len(group.Keys)
		group.Keys = append(group.Keys, a.Value)
	}
	for _, chordEntryNode := range rest[2:] {
		entry, ok := chordEntryNode.(*sexpr.List)
		if !ok || len(entry.Items) != 2 {
			c.errf(chordEntryNode.Span(), c.file, "defchords entries must be (key-set action) pairs")
			continue
		}
		keySetList, ok := entry.Items[0].(*sexpr.List)
		if !ok {
			c.errf(entry.Items[0].Span(), c.file, "defchords key-set must be a list")
			continue
		}
		var mask keycode.Bitmask
		for _, kn := range keySetList.Items {
			a, ok := kn.(*sexpr.Atom)
			if !ok {
				continue
			}
			idx, ok := group.KeyIndex[a.Value]
			if !ok {
				c.errf(a.Span(), c.file, "unreferenced chord key %q not declared in group %q's key list", a.Value, nameAtom.Value)
				continue
			}
			word, bit := idx/64, uint(idx%64)
			mask[word] |= 1 << bit
		}
		if _, dup := group.Chords[mask]; dup {
			c.errf(entry.Span(), c.file, "duplicate key-set bitmask in defchords group %q", nameAtom.Value)
			continue
		}
		action := c.compileActionExpr(entry.Items[1], -1, -1)
		group.Chords[mask] = action
	}
	if _, dup := c.g.ChordGroups[nameAtom.Value]; dup {
		c.errf(nameAtom.Span(), c.file, "duplicate defchords group %q", nameAtom.Value)
		return
	}
	c.g.ChordGroups[nameAtom.Value] = group
}

// --- defseq ------------------------------------------------------------

func (c *compiler) compileDefseq(f *sexpr.List) {
	rest := f.Rest()
	if len(rest) != 2 {
		c.errf(f.Span(), c.file, "defseq requires a name and a key list")
		return
	}
	nameAtom, ok := rest[0].(*sexpr.Atom)
	if !ok {
		return
	}
	keysList, ok := rest[1].(*sexpr.List)
	if !ok {
		c.errf(rest[1].Span(), c.file, "defseq key list must be a list")
		return
	}
	vkIdx, ok := c.g.VirtualKeys[nameAtom.Value]
	if !ok {
		c.errf(nameAtom.Span(), c.file, "defseq %q references an undeclared virtual key; declare it with deffakekeys/defvirtualkeys first", nameAtom.Value)
		return
	}
	path := make([]uint16, 0, len(keysList.Items))
	for _, item := range keysList.Items {
		a, ok := item.(*sexpr.Atom)
		if !ok {
			continue
		}
		k, ok := keycode.Lookup(a.Value)
		if !ok {
			c.errf(a.Span(), c.file, "unknown key name %q in defseq", a.Value)
			continue
		}
		path = append(path, uint16(k))
	}
	if err := c.g.Sequences.Insert(path, vkIdx); err != nil {
		c.errf(f.Span(), c.file, "defseq %q: %s", nameAtom.Value, err.Error())
	}
}

// --- deffakekeys / defvirtualkeys -----------------------------------------

func (c *compiler) compileDeffakekeys(f *sexpr.List) {
	rest := f.Rest()
	for i := 0; i+1 < len(rest); i += 2 {
		nameAtom, ok := rest[i].(*sexpr.Atom)
		if !ok {
			continue
		}
		if _, dup := c.g.VirtualKeys[nameAtom.Value]; dup {
			c.errf(nameAtom.Span(), c.file, "duplicate virtual key %q", nameAtom.Value)
			continue
		}
		idx := len(c.g.VirtualKeyInv)
		if idx >= keycode.MaxVirtualKeys {
			c.errf(nameAtom.Span(), c.file, "too many virtual keys declared (max %d)", keycode.MaxVirtualKeys)
			continue
		}
		c.g.VirtualKeys[nameAtom.Value] = idx
		c.g.VirtualKeyInv = append(c.g.VirtualKeyInv, nameAtom.Value)
		action := c.compileActionExpr(rest[i+1], -1, -1)
		for len(c.vkActions) <= idx {
			c.vkActions = append(c.vkActions, NilAction)
		}
		c.vkActions[idx] = action
	}
}
