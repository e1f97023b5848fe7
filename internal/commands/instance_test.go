package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/supervisor"
	"github.com/vk/runbookgo/internal/values"
)

func newTestInstance(spec *CommandSpecification) *CommandInstance {
	constructDid := did.NewConstructDid(did.FromComponents("test.tx", "action", spec.Matcher))
	return NewCommandInstance(spec, "test", "subject", constructDid)
}

func TestLifecycle_HappyPath(t *testing.T) {
	t.Parallel()

	spec := &CommandSpecification{
		Name:    "Echo",
		Matcher: "echo",
		Inputs:  []CommandInput{{Name: "message", Type: values.StringType()}},
		RunExecution: func(ctx context.Context, constructDid did.ConstructDid, spec *CommandSpecification, inputs *values.ValueStore, progress chan<- supervisor.BlockEvent) (*CommandExecutionResult, *diagnostics.Diagnostic) {
			result := NewCommandExecutionResult("echo")
			v, _ := inputs.Get("message")
			result.Outputs.Insert("message", v)
			return result, nil
		},
	}
	c := newTestInstance(spec)
	assert.Equal(t, StateDeclared, c.State())

	argTypes := map[string]values.Type{"message": values.StringType()}
	_, diag := c.CheckInstantiability(argTypes)
	require.Nil(t, diag)
	assert.Equal(t, StateInstantiabilityChecked, c.State())

	inputs := values.NewValueStore("echo")
	inputs.Insert("message", values.String("hi"))
	require.Nil(t, c.CheckTypedInputs(inputs))

	_, diag = c.CheckExecutability(context.Background(), inputs, supervisor.Context{})
	require.Nil(t, diag)
	assert.Equal(t, StateExecutabilityChecked, c.State())

	result, diag := c.RunExecution(context.Background(), inputs, nil)
	require.Nil(t, diag)
	assert.Equal(t, StateCompleted, c.State())

	out, ok := result.Outputs.Get("message")
	require.True(t, ok)
	assert.True(t, out.Equals(values.String("hi")))
}

func TestCheckTypedInputs_BuiltinValueIsUnconstrained(t *testing.T) {
	t.Parallel()

	// The variable/output `value` input carries whatever the expression
	// evaluated to, so any kind must pass the typed check.
	for _, spec := range []*CommandSpecification{NewVariableSpecification(), NewOutputSpecification()} {
		c := newTestInstance(spec)
		for _, v := range []values.Value{
			values.Integer(1),
			values.String("hello"),
			values.Bool(true),
			values.Array(values.Integer(1), values.Integer(2)),
		} {
			inputs := values.NewValueStore("v")
			inputs.Insert("value", v)
			assert.Nil(t, c.CheckTypedInputs(inputs), "%s must accept %s", spec.Matcher, v.String())
		}
	}
}

func TestRunExecution_MirrorsInputsWithoutRunHook(t *testing.T) {
	t.Parallel()

	c := newTestInstance(&CommandSpecification{
		Name:                     "Variable",
		Matcher:                  "variable",
		AcceptsArbitraryInputs:   true,
		CreateOutputForEachInput: true,
	})

	inputs := values.NewValueStore("v")
	inputs.Insert("value", values.Integer(7))
	inputs.Insert("extra", values.String("x"))

	result, diag := c.RunExecution(context.Background(), inputs, nil)
	require.Nil(t, diag)
	assert.Equal(t, []string{"value", "extra"}, result.Outputs.Keys())
	assert.Equal(t, StateCompleted, c.State())
}

func TestRunExecution_NoHookNoMirrorFails(t *testing.T) {
	t.Parallel()

	c := newTestInstance(&CommandSpecification{Name: "Broken", Matcher: "broken"})
	_, diag := c.RunExecution(context.Background(), values.NewValueStore("b"), nil)
	require.NotNil(t, diag)
	assert.Contains(t, diag.Message, "no run hook")
	assert.Equal(t, StateFailed, c.State())
}

func TestRunExecution_FailureTransitions(t *testing.T) {
	t.Parallel()

	c := newTestInstance(&CommandSpecification{
		Name:    "Boom",
		Matcher: "boom",
		RunExecution: func(ctx context.Context, constructDid did.ConstructDid, spec *CommandSpecification, inputs *values.ValueStore, progress chan<- supervisor.BlockEvent) (*CommandExecutionResult, *diagnostics.Diagnostic) {
			return nil, diagnostics.Errorf("exploded")
		},
	})
	_, diag := c.RunExecution(context.Background(), values.NewValueStore("b"), nil)
	require.NotNil(t, diag)
	assert.Equal(t, StateFailed, c.State())
}

func TestCheckInstantiability_UndeclaredInput(t *testing.T) {
	t.Parallel()

	c := newTestInstance(&CommandSpecification{
		Name:    "Strict",
		Matcher: "strict",
		Inputs:  []CommandInput{{Name: "url", Type: values.StringType()}},
	})
	_, diag := c.CheckInstantiability(map[string]values.Type{
		"url":  values.StringType(),
		"typo": values.StringType(),
	})
	require.NotNil(t, diag)
	assert.Contains(t, diag.Message, `does not declare input "typo"`)
	assert.Equal(t, StateFailed, c.State())
}

func TestCheckInstantiability_MissingRequiredInput(t *testing.T) {
	t.Parallel()

	c := newTestInstance(&CommandSpecification{
		Name:    "Strict",
		Matcher: "strict",
		Inputs: []CommandInput{
			{Name: "url", Type: values.StringType()},
			{Name: "method", Type: values.StringType(), Optional: true},
		},
	})
	_, diag := c.CheckInstantiability(map[string]values.Type{})
	require.NotNil(t, diag)
	assert.Contains(t, diag.Message, `missing required input "url"`)
}

func TestCheckInstantiability_ArbitraryInputsBypass(t *testing.T) {
	t.Parallel()

	c := newTestInstance(&CommandSpecification{
		Name:                   "Loose",
		Matcher:                "loose",
		AcceptsArbitraryInputs: true,
	})
	_, diag := c.CheckInstantiability(map[string]values.Type{"anything": values.IntegerType()})
	require.Nil(t, diag)
	assert.Equal(t, StateInstantiabilityChecked, c.State())
}

func TestCheckInstantiability_CustomHook(t *testing.T) {
	t.Parallel()

	called := false
	c := newTestInstance(&CommandSpecification{
		Name:    "Hooked",
		Matcher: "hooked",
		CheckInstantiability: func(spec *CommandSpecification, argTypes map[string]values.Type) (values.Type, *diagnostics.Diagnostic) {
			called = true
			return values.StringType(), nil
		},
	})
	resultType, diag := c.CheckInstantiability(nil)
	require.Nil(t, diag)
	assert.True(t, called)
	assert.Equal(t, values.StringType(), resultType)
}

func TestCheckTypedInputs_Mismatch(t *testing.T) {
	t.Parallel()

	c := newTestInstance(&CommandSpecification{
		Name:    "Strict",
		Matcher: "strict",
		Inputs:  []CommandInput{{Name: "count", Type: values.IntegerType()}},
	})
	inputs := values.NewValueStore("s")
	inputs.Insert("count", values.String("three"))

	diag := c.CheckTypedInputs(inputs)
	require.NotNil(t, diag)
	assert.Contains(t, diag.Message, `input "count"`)
}

func TestCheckTypedInputs_NullSatisfiesDeclaredType(t *testing.T) {
	t.Parallel()

	c := newTestInstance(&CommandSpecification{
		Name:    "Strict",
		Matcher: "strict",
		Inputs:  []CommandInput{{Name: "count", Type: values.IntegerType(), Optional: true}},
	})
	inputs := values.NewValueStore("s")
	inputs.Insert("count", values.Null())
	assert.Nil(t, c.CheckTypedInputs(inputs))
}

func TestBuildBackgroundTask_NilWithoutCapability(t *testing.T) {
	t.Parallel()

	c := newTestInstance(&CommandSpecification{Name: "Plain", Matcher: "plain"})
	task, diag := c.BuildBackgroundTask(context.Background(), values.NewValueStore("in"), values.NewValueStore("out"), nil)
	assert.Nil(t, task)
	assert.Nil(t, diag)
}
