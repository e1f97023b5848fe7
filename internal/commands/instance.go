package commands

import (
	"context"
	"sync/atomic"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/supervisor"
	"github.com/vk/runbookgo/internal/values"
)

// State is the command lifecycle position. Transitions only move forward:
// Declared → InstantiabilityChecked → ExecutabilityChecked → Running →
// Completed | Failed.
type State int32

const (
	StateDeclared State = iota
	StateInstantiabilityChecked
	StateExecutabilityChecked
	StateRunning
	StateCompleted
	StateFailed
)

// String returns the state label used in logs.
func (s State) String() string {
	switch s {
	case StateDeclared:
		return "declared"
	case StateInstantiabilityChecked:
		return "instantiability_checked"
	case StateExecutabilityChecked:
		return "executability_checked"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CommandInstance binds an immutable specification to one construct's
// source attributes. The expressions stay unevaluated until the scheduler
// dispatches the instance with its dependencies' outputs in scope.
type CommandInstance struct {
	Specification *CommandSpecification
	Name          string
	Namespace     string
	ConstructDid  did.ConstructDid

	// Inputs holds the block's unevaluated attribute expressions; InputOrder
	// preserves declaration order for deterministic evaluation.
	Inputs     map[string]hcl.Expression
	InputOrder []string

	state atomic.Int32
}

// NewCommandInstance binds a specification to a construct.
func NewCommandInstance(spec *CommandSpecification, namespace, name string, constructDid did.ConstructDid) *CommandInstance {
	return &CommandInstance{
		Specification: spec,
		Name:          name,
		Namespace:     namespace,
		ConstructDid:  constructDid,
		Inputs:        make(map[string]hcl.Expression),
	}
}

// State returns the current lifecycle position.
func (c *CommandInstance) State() State {
	return State(c.state.Load())
}

func (c *CommandInstance) transition(s State) {
	c.state.Store(int32(s))
}

// CheckInstantiability statically type-checks the evaluated argument types
// against the declared inputs and returns the command's result type. A
// specification with AcceptsArbitraryInputs bypasses the declaration check.
func (c *CommandInstance) CheckInstantiability(argTypes map[string]values.Type) (values.Type, *diagnostics.Diagnostic) {
	spec := c.Specification
	if spec.CheckInstantiability != nil {
		t, diag := spec.CheckInstantiability(spec, argTypes)
		if diag != nil {
			c.transition(StateFailed)
			return values.NullType(), diag
		}
		c.transition(StateInstantiabilityChecked)
		return t, nil
	}

	if !spec.AcceptsArbitraryInputs {
		for name := range argTypes {
			if _, ok := spec.Input(name); !ok {
				c.transition(StateFailed)
				return values.NullType(), diagnostics.Errorf(
					"command %q (%s::%s) does not declare input %q",
					c.Name, c.Namespace, spec.Matcher, name)
			}
		}
		for _, in := range spec.Inputs {
			if _, ok := argTypes[in.Name]; !ok && !in.Optional {
				c.transition(StateFailed)
				return values.NullType(), diagnostics.Errorf(
					"command %q (%s::%s) is missing required input %q",
					c.Name, c.Namespace, spec.Matcher, in.Name)
			}
		}
	}
	c.transition(StateInstantiabilityChecked)
	return values.ObjectType(), nil
}

// CheckTypedInputs verifies evaluated values against declared input types.
// Addon-to-addon mismatches are tolerated (the payload is opaque here).
func (c *CommandInstance) CheckTypedInputs(inputs *values.ValueStore) *diagnostics.Diagnostic {
	spec := c.Specification
	if spec.AcceptsArbitraryInputs {
		return nil
	}
	for _, in := range spec.Inputs {
		v, ok := inputs.Get(in.Name)
		if !ok {
			continue
		}
		if !in.Type.Check(v) {
			return diagnostics.Errorf(
				"command %q input %q is %s, expected %s",
				c.Name, in.Name, v.Kind(), in.Type)
		}
	}
	return nil
}

// CheckExecutability collects the action items the command wants resolved
// before running. A nil hook means the command runs without review.
func (c *CommandInstance) CheckExecutability(ctx context.Context, inputs *values.ValueStore, sup supervisor.Context) ([]*supervisor.ActionItemRequest, *diagnostics.Diagnostic) {
	spec := c.Specification
	if spec.CheckExecutability == nil {
		c.transition(StateExecutabilityChecked)
		return nil, nil
	}
	reqs, diag := spec.CheckExecutability(ctx, c.ConstructDid, c.Name, spec, inputs, sup)
	if diag != nil {
		c.transition(StateFailed)
		return nil, diag
	}
	c.transition(StateExecutabilityChecked)
	return reqs, nil
}

// RunExecution invokes the async command body. Commands without a run hook
// but with CreateOutputForEachInput mirror every input as an output, which
// is how the built-in variable/output/module constructs evaluate.
func (c *CommandInstance) RunExecution(ctx context.Context, inputs *values.ValueStore, progress chan<- supervisor.BlockEvent) (*CommandExecutionResult, *diagnostics.Diagnostic) {
	spec := c.Specification
	c.transition(StateRunning)

	if spec.RunExecution == nil {
		if !spec.CreateOutputForEachInput {
			c.transition(StateFailed)
			return nil, diagnostics.Errorf("command %q (%s::%s) has no run hook", c.Name, c.Namespace, spec.Matcher)
		}
		result := NewCommandExecutionResult(c.Name)
		for _, key := range inputs.Keys() {
			v, _ := inputs.Get(key)
			result.Outputs.Insert(key, v)
		}
		c.transition(StateCompleted)
		return result, nil
	}

	result, diag := spec.RunExecution(ctx, c.ConstructDid, spec, inputs, progress)
	if diag != nil {
		c.transition(StateFailed)
		return nil, diag
	}
	c.transition(StateCompleted)
	return result, nil
}

// BuildBackgroundTask assembles the post-completion async unit, or returns
// nil when the command declares no background capability.
func (c *CommandInstance) BuildBackgroundTask(ctx context.Context, inputs, outputs *values.ValueStore, progress chan<- supervisor.BlockEvent) (func(context.Context) (*CommandExecutionResult, *diagnostics.Diagnostic), *diagnostics.Diagnostic) {
	spec := c.Specification
	if !spec.ImplementsBackgroundTaskCapability || spec.BuildBackgroundTask == nil {
		return nil, nil
	}
	return spec.BuildBackgroundTask(ctx, c.ConstructDid, spec, inputs, outputs, progress)
}
