package commands

import "github.com/vk/runbookgo/internal/values"

// The built-in construct kinds (variable, output, module) are modeled as
// pass-through commands so the scheduler drives every construct through the
// same lifecycle.

// NewVariableSpecification describes the `variable` block: a single `value`
// input mirrored to a `value` output.
func NewVariableSpecification() *CommandSpecification {
	return &CommandSpecification{
		Name:                     "variable",
		Matcher:                  "variable",
		Documentation:            "Declares a named value usable by downstream constructs.",
		CreateOutputForEachInput: true,
		Inputs: []CommandInput{
			{Name: "value", Documentation: "The variable's value.", Type: values.AnyType(), Optional: false},
			{Name: "description", Documentation: "Optional documentation.", Type: values.StringType(), Optional: true},
			{Name: "editable", Documentation: "Whether a supervisor may edit the value.", Type: values.BoolType(), Optional: true},
		},
		Outputs: []CommandOutput{
			{Name: "value", Documentation: "The evaluated value."},
		},
	}
}

// NewOutputSpecification describes the `output` block: evaluates `value`
// and surfaces it in the run report.
func NewOutputSpecification() *CommandSpecification {
	return &CommandSpecification{
		Name:                     "output",
		Matcher:                  "output",
		Documentation:            "Surfaces a value in the runbook's output report.",
		CreateOutputForEachInput: true,
		Inputs: []CommandInput{
			{Name: "value", Documentation: "The output's value.", Type: values.AnyType(), Optional: false},
			{Name: "description", Documentation: "Optional documentation.", Type: values.StringType(), Optional: true},
		},
		Outputs: []CommandOutput{
			{Name: "value", Documentation: "The evaluated value."},
		},
	}
}

// NewModuleSpecification describes the `module` block: arbitrary attributes
// mirrored one-to-one as outputs.
func NewModuleSpecification() *CommandSpecification {
	return &CommandSpecification{
		Name:                     "module",
		Matcher:                  "module",
		Documentation:            "Groups arbitrary values under one referenceable name.",
		AcceptsArbitraryInputs:   true,
		CreateOutputForEachInput: true,
	}
}
