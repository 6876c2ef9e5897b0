// Package diag provides the spanned diagnostics shared by the
// S-expression reader, the configuration compiler, and engine invariant
// checks.
package diag

import (
	"fmt"
	"strings"

	"github.com/kr/text"
)

// Severity classifies how serious a Diagnostic is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Stage names the pipeline stage that raised a Diagnostic.
type Stage string

const (
	StageIO        Stage = "io"
	StageLexer     Stage = "lexer"
	StageParser    Stage = "parser"
	StageSemantic  Stage = "semantic"
	StageCodegen   Stage = "codegen"
	StageEngine    Stage = "engine"
	StageProjector Stage = "projector"
)

// Category is a short machine-matchable error kind, grouped the way
// spec.md §7 enumerates error kinds.
type Category string

const (
	CategorySyntax             Category = "Syntax"
	CategorySemantic           Category = "Semantic"
	CategoryPlatformIO         Category = "PlatformIO"
	CategoryInvariantViolation Category = "InvariantViolation"
	CategoryClientProtocol     Category = "ClientProtocol"
)

// Span is a half-open byte range within one interned file.
type Span struct {
	FileID     int
	ByteStart  int
	ByteEnd    int
	Line       int
	Column     int
}

// Diagnostic is one reader/compiler/engine finding: a span, a severity,
// and a single-sentence human message.
type Diagnostic struct {
	Category Category
	Code     string
	Message  string
	File     string
	Span     Span
	Severity Severity
	Stage    Stage
	Notes    []string
}

func (d Diagnostic) Error() string {
	if d.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Span.Line, d.Span.Column, d.Message)
	}
	if d.Span.Line > 0 {
		return fmt.Sprintf("line %d:%d: %s", d.Span.Line, d.Span.Column, d.Message)
	}
	return d.Message
}

// Report is an ordered collection of diagnostics from one compile pass.
type Report struct {
	Diagnostics []Diagnostic
}

func (r *Report) Add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
}

func (r *Report) Errorf(stage Stage, cat Category, span Span, file, format string, args ...any) {
	r.Add(Diagnostic{
		Category: cat,
		Message:  fmt.Sprintf(format, args...),
		File:     file,
		Span:     span,
		Severity: SeverityError,
		Stage:    stage,
	})
}

func (r *Report) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (r *Report) Error() string {
	if len(r.Diagnostics) == 0 {
		return ""
	}
	return r.Diagnostics[0].Error()
}

// Format renders every diagnostic as one wrapped line-block, suitable for
// printing to stderr. Long notes are wrapped to width columns.
func Format(diags []Diagnostic, width int) string {
	var b strings.Builder
	for _, d := range diags {
		fmt.Fprintf(&b, "%s [%s]\n", d.Error(), d.Category)
		for _, n := range d.Notes {
			wrapped := text.Wrap(n, width)
			for _, line := range strings.Split(wrapped, "\n") {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		}
	}
	return b.String()
}

// FileTable interns file contents by a small integer id so Spans never
// carry an owned string.
type FileTable struct {
	names   []string
	sources []string
}

func NewFileTable() *FileTable {
	return &FileTable{}
}

func (t *FileTable) Intern(name, source string) int {
	for i, n := range t.names {
		if n == name {
			t.sources[i] = source
			return i
		}
	}
	t.names = append(t.names, name)
	t.sources = append(t.sources, source)
	return len(t.names) - 1
}

func (t *FileTable) Name(id int) string {
	if id < 0 || id >= len(t.names) {
		return ""
	}
	return t.names[id]
}

func (t *FileTable) Source(id int) string {
	if id < 0 || id >= len(t.sources) {
		return ""
	}
	return t.sources[id]
}
