// Package sexpr tokenizes and parses the S-expression configuration
// language (C2): double-quoted atoms, `;` line comments, `#| ... |#` block
// comments, and `include "path"` expansion with cycle detection.
package sexpr

import "layerkeyd/internal/diag"

// Node is either an Atom or a List; every node carries its source Span.
type Node interface {
	Span() diag.Span
}

// Atom is a spanned bare or quoted token.
type Atom struct {
	Value   string
	Quoted  bool
	SpanVal diag.Span
}

func (a *Atom) Span() diag.Span { return a.SpanVal }

// List is a parenthesized sequence of Nodes.
type List struct {
	Items   []Node
	SpanVal diag.Span
}

func (l *List) Span() diag.Span { return l.SpanVal }

// Head returns the first atom of a list (the form's keyword), or "" if the
// list is empty or starts with a nested list.
func (l *List) Head() string {
	if len(l.Items) == 0 {
		return ""
	}
	if a, ok := l.Items[0].(*Atom); ok {
		return a.Value
	}
	return ""
}

// Rest returns every item after the head.
func (l *List) Rest() []Node {
	if len(l.Items) == 0 {
		return nil
	}
	return l.Items[1:]
}

// TopLevel is one top-level form read from a file (always a List per the
// grammar — bare atoms are not valid top-level forms).
type TopLevel struct {
	Form *List
	File string
}

// InactiveBlock records a platform-conditional top-level form
// (`deflocalkeys-<platform>`) that was parsed but not retained because it
// named a different platform; spec.md §4.1 keeps these around for LSP
// hints rather than discarding them silently.
type InactiveBlock struct {
	Platform string
	Form     *List
	File     string
}
