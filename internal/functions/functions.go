// Package functions defines the specification contract for the pure,
// synchronous functions addons expose to runbook expressions.
package functions

import (
	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/values"
)

// Parameter declares one function argument.
type Parameter struct {
	Name          string
	Documentation string
	Type          values.Type
	Optional      bool
}

// FunctionSpecification is an addon-supplied, declarative description of a
// function plus its check and run hooks. Run must be pure and synchronous;
// anything that needs I/O belongs in a command.
type FunctionSpecification struct {
	Name          string
	Documentation string
	Parameters    []Parameter
	ReturnType    values.Type

	// CheckInstantiability type-checks argument types ahead of execution.
	// When nil, the declared Parameters are checked positionally.
	CheckInstantiability func(spec *FunctionSpecification, argTypes []values.Type) (values.Type, *diagnostics.Diagnostic)
	// Run evaluates the function.
	Run func(spec *FunctionSpecification, args []values.Value) (values.Value, *diagnostics.Diagnostic)
}

// CheckArgs performs the default positional type check used when a
// specification declares no custom instantiability hook.
func (s *FunctionSpecification) CheckArgs(argTypes []values.Type) (values.Type, *diagnostics.Diagnostic) {
	if s.CheckInstantiability != nil {
		return s.CheckInstantiability(s, argTypes)
	}
	required := 0
	for _, p := range s.Parameters {
		if !p.Optional {
			required++
		}
	}
	if len(argTypes) < required || len(argTypes) > len(s.Parameters) {
		return values.NullType(), diagnostics.Errorf(
			"function %q expects between %d and %d arguments, got %d",
			s.Name, required, len(s.Parameters), len(argTypes))
	}
	return s.ReturnType, nil
}

// Execute runs the function after an argument count sanity check.
func (s *FunctionSpecification) Execute(args []values.Value) (values.Value, *diagnostics.Diagnostic) {
	if s.Run == nil {
		return values.Null(), diagnostics.Errorf("function %q has no run hook", s.Name)
	}
	return s.Run(s, args)
}
