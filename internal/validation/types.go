// Package validation implements the editor-facing static checker for
// runbook sources. Validation never executes anything: it parses, collects
// declared symbols, and then checks every block and reference, accumulating
// all findings instead of stopping at the first.
package validation

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// Mode selects how deep validation goes.
type Mode int

const (
	// ModeBasic checks syntax, block structure, and action types.
	ModeBasic Mode = iota
	// ModeFull additionally resolves references, checks block attributes
	// against the specification's declared inputs, and detects cycles.
	ModeFull
)

// ErrorKind classifies a validation finding.
type ErrorKind int

const (
	KindInvalidFormat ErrorKind = iota
	KindUnknownNamespace
	KindUnknownAction
	KindUndefinedReference
	KindCircularDependency
	KindUndeclaredInput
	KindUnusedDeclaration
)

// String returns the finding category label.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidFormat:
		return "invalid format"
	case KindUnknownNamespace:
		return "unknown namespace"
	case KindUnknownAction:
		return "unknown action"
	case KindUndefinedReference:
		return "undefined reference"
	case KindCircularDependency:
		return "circular dependency"
	case KindUndeclaredInput:
		return "undeclared input"
	case KindUnusedDeclaration:
		return "unused declaration"
	default:
		return "unknown"
	}
}

// ValidationError is one finding with enough position data for an editor
// to underline it.
type ValidationError struct {
	Kind     ErrorKind
	Message  string
	Location string
	Range    hcl.Range
	// Suggestion optionally names valid alternatives.
	Suggestion string
}

// Error renders the finding for log output.
func (e ValidationError) Error() string {
	msg := fmt.Sprintf("%s:%d,%d: %s: %s", e.Location, e.Range.Start.Line, e.Range.Start.Column, e.Kind, e.Message)
	if e.Suggestion != "" {
		msg += " (" + e.Suggestion + ")"
	}
	return msg
}

// ValidationResult aggregates all findings of one validation pass.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// Valid reports whether no errors were found. Warnings do not invalidate.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) addError(e ValidationError) {
	r.Errors = append(r.Errors, e)
}

func (r *ValidationResult) addWarning(e ValidationError) {
	r.Warnings = append(r.Warnings, e)
}
