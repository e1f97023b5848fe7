// Package commands implements the command side of the execution model: the
// addon-supplied CommandSpecification, the per-construct CommandInstance
// binding a specification to source attributes, and the typed state machine
// that drives an action from declaration to completion.
package commands

import (
	"context"

	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/supervisor"
	"github.com/vk/runbookgo/internal/values"
)

// CommandInput declares one input of a command specification.
type CommandInput struct {
	Name          string
	Documentation string
	Type          values.Type
	Optional      bool
	// Sensitive inputs are redacted from logs and progress events.
	Sensitive bool
}

// CommandOutput declares one output of a command specification.
type CommandOutput struct {
	Name          string
	Documentation string
	Type          values.Type
	// BackgroundOnly outputs only materialize once the command's background
	// task completes; dependents referencing them wait on the task, while
	// dependents of primary outputs do not.
	BackgroundOnly bool
}

// CommandExecutionResult carries a completed command's outputs.
type CommandExecutionResult struct {
	Outputs *values.ValueStore
}

// NewCommandExecutionResult returns an empty result for the named construct.
func NewCommandExecutionResult(name string) *CommandExecutionResult {
	return &CommandExecutionResult{Outputs: values.NewValueStore(name)}
}

// InstantiabilityChecker statically type-checks declared inputs and returns
// the command's result type.
type InstantiabilityChecker func(spec *CommandSpecification, argTypes map[string]values.Type) (values.Type, *diagnostics.Diagnostic)

// ExecutabilityChecker gives a command the chance to request human review
// before running. Returned action items are driven to terminal status by
// the scheduler before RunExecution is invoked.
type ExecutabilityChecker func(ctx context.Context, constructDid did.ConstructDid, instanceName string, spec *CommandSpecification, inputs *values.ValueStore, sup supervisor.Context) ([]*supervisor.ActionItemRequest, *diagnostics.Diagnostic)

// ExecutionRunner is the async command body, the only part of the lifecycle
// allowed to perform I/O. Progress goes to the supplied channel.
type ExecutionRunner func(ctx context.Context, constructDid did.ConstructDid, spec *CommandSpecification, inputs *values.ValueStore, progress chan<- supervisor.BlockEvent) (*CommandExecutionResult, *diagnostics.Diagnostic)

// BackgroundTaskBuilder assembles the optional post-completion async unit
// (e.g. "wait for N confirmations"). The returned func runs detached from
// the dependency graph and merges extra outputs when it finishes.
type BackgroundTaskBuilder func(ctx context.Context, constructDid did.ConstructDid, spec *CommandSpecification, inputs *values.ValueStore, outputs *values.ValueStore, progress chan<- supervisor.BlockEvent) (func(context.Context) (*CommandExecutionResult, *diagnostics.Diagnostic), *diagnostics.Diagnostic)

// CommandSpecification is the immutable, addon-supplied description of an
// action: declared inputs/outputs, capabilities, and lifecycle hooks.
type CommandSpecification struct {
	Name          string
	Matcher       string
	Documentation string

	// AcceptsArbitraryInputs bypasses static input declarations; used by the
	// built-in pass-through constructs (module).
	AcceptsArbitraryInputs bool
	// CreateOutputForEachInput mirrors every provided input as an
	// identically-named output.
	CreateOutputForEachInput bool
	// ImplementsSigningCapability marks commands that delegate to a signer.
	ImplementsSigningCapability bool
	// ImplementsBackgroundTaskCapability marks commands with a
	// post-completion task tracked to finality outside the graph.
	ImplementsBackgroundTaskCapability bool

	Inputs  []CommandInput
	Outputs []CommandOutput

	CheckInstantiability InstantiabilityChecker
	CheckExecutability   ExecutabilityChecker
	RunExecution         ExecutionRunner
	BuildBackgroundTask  BackgroundTaskBuilder
}

// Input looks up a declared input by name.
func (s *CommandSpecification) Input(name string) (CommandInput, bool) {
	for _, in := range s.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return CommandInput{}, false
}

// Output looks up a declared output by name.
func (s *CommandSpecification) Output(name string) (CommandOutput, bool) {
	for _, out := range s.Outputs {
		if out.Name == name {
			return out, true
		}
	}
	return CommandOutput{}, false
}
