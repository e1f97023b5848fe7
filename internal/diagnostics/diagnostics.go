// Package diagnostics defines the structured error values carried through
// the engine instead of bare errors. A Diagnostic records a severity level,
// a message, and optionally the source span the problem originates from, so
// CLI and editor surfaces can render IDE-grade reports.
package diagnostics

import (
	"fmt"
	"strings"
)

// Level classifies the severity of a Diagnostic.
type Level int

const (
	Note Level = iota
	Warning
	Error
)

// String returns the lowercase label used when rendering a diagnostic.
func (l Level) String() string {
	switch l {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Span locates a diagnostic within a source file, 1-indexed.
type Span struct {
	Line   int
	Column int
}

// Diagnostic is the sole user-facing error representation of the engine.
// Construct-local failures, validation findings, and graph-level errors are
// all expressed as Diagnostics and accumulated rather than thrown.
type Diagnostic struct {
	Level    Level
	Message  string
	Span     *Span
	Location string
	// Parent links a propagated diagnostic back to its root cause, e.g. a
	// dependent that failed because an upstream construct failed.
	Parent *Diagnostic
}

// Errorf builds an Error-level diagnostic from a format string.
func Errorf(format string, args ...any) *Diagnostic {
	return &Diagnostic{Level: Error, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a Warning-level diagnostic from a format string.
func Warnf(format string, args ...any) *Diagnostic {
	return &Diagnostic{Level: Warning, Message: fmt.Sprintf(format, args...)}
}

// Notef builds a Note-level diagnostic from a format string.
func Notef(format string, args ...any) *Diagnostic {
	return &Diagnostic{Level: Note, Message: fmt.Sprintf(format, args...)}
}

// WithSpan attaches a source span and returns the diagnostic for chaining.
func (d *Diagnostic) WithSpan(line, column int) *Diagnostic {
	d.Span = &Span{Line: line, Column: column}
	return d
}

// WithLocation attaches a source file location and returns the diagnostic.
func (d *Diagnostic) WithLocation(location string) *Diagnostic {
	d.Location = location
	return d
}

// WithParent links a root-cause diagnostic and returns the diagnostic.
func (d *Diagnostic) WithParent(parent *Diagnostic) *Diagnostic {
	d.Parent = parent
	return d
}

// IsError reports whether the diagnostic is fatal to its owning construct.
func (d *Diagnostic) IsError() bool {
	return d.Level == Error
}

// Error implements the error interface so a Diagnostic can flow through
// plain error returns at package boundaries.
func (d *Diagnostic) Error() string {
	var sb strings.Builder
	sb.WriteString(d.Level.String())
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	if d.Location != "" {
		sb.WriteString(" (")
		sb.WriteString(d.Location)
		if d.Span != nil {
			fmt.Fprintf(&sb, ":%d:%d", d.Span.Line, d.Span.Column)
		}
		sb.WriteString(")")
	} else if d.Span != nil {
		fmt.Fprintf(&sb, " (%d:%d)", d.Span.Line, d.Span.Column)
	}
	return sb.String()
}

// HasErrors reports whether any diagnostic in the slice is Error-level.
func HasErrors(diags []*Diagnostic) bool {
	for _, d := range diags {
		if d.IsError() {
			return true
		}
	}
	return false
}
