package signers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/supervisor"
	"github.com/vk/runbookgo/internal/values"
)

func newTestSigner(spec *SignerSpecification) *SignerInstance {
	constructDid := did.NewConstructDid(did.FromComponents("test.tx", "signer", "ops"))
	return NewSignerInstance(spec, "test", "ops", constructDid)
}

func countingSpec(hookRuns *atomic.Int32) *SignerSpecification {
	return &SignerSpecification{
		Name:    "Counting signer",
		Matcher: "counting",
		Activate: func(ctx context.Context, constructDid did.ConstructDid, spec *SignerSpecification, inputs *values.ValueStore, state *values.ValueStore, responses []*supervisor.ActionItemResponse) (*ActivationResult, *diagnostics.Diagnostic) {
			hookRuns.Add(1)
			state.Insert("secret", values.Buffer([]byte{1, 2, 3}))
			outputs := values.NewValueStore("ops")
			outputs.Insert("public_key", values.String("pk"))
			return &ActivationResult{Outputs: outputs}, nil
		},
		Sign: func(ctx context.Context, caller did.ConstructDid, title string, payload values.Value, spec *SignerSpecification, inputs *values.ValueStore, state *values.ValueStore) (values.Value, *diagnostics.Diagnostic) {
			if _, ok := state.Get("secret"); !ok {
				return values.Null(), diagnostics.Errorf("no key material")
			}
			return values.Buffer([]byte("signed")), nil
		},
	}
}

func TestActivate_AtMostOnceUnderConcurrency(t *testing.T) {
	t.Parallel()

	var hookRuns atomic.Int32
	s := newTestSigner(countingSpec(&hookRuns))
	inputs := values.NewValueStore("ops")

	const callers = 16
	results := make([]*ActivationResult, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			res, diag := s.Activate(context.Background(), inputs, nil)
			assert.Nil(t, diag)
			results[i] = res
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), hookRuns.Load())
	assert.Equal(t, 1, s.ActivationCount())
	assert.Equal(t, StateActivated, s.State())

	// Every caller observes the same cached result.
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestActivate_FailureIsCached(t *testing.T) {
	t.Parallel()

	var hookRuns atomic.Int32
	spec := &SignerSpecification{
		Name:    "Failing signer",
		Matcher: "failing",
		Activate: func(ctx context.Context, constructDid did.ConstructDid, spec *SignerSpecification, inputs *values.ValueStore, state *values.ValueStore, responses []*supervisor.ActionItemResponse) (*ActivationResult, *diagnostics.Diagnostic) {
			hookRuns.Add(1)
			return nil, diagnostics.Errorf("no key")
		},
	}
	s := newTestSigner(spec)
	inputs := values.NewValueStore("ops")

	_, first := s.Activate(context.Background(), inputs, nil)
	require.NotNil(t, first)
	assert.Equal(t, StateFailed, s.State())

	// A retry does not rerun the hook; the cached failure comes back.
	_, second := s.Activate(context.Background(), inputs, nil)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), hookRuns.Load())
}

func TestActivate_NoHook(t *testing.T) {
	t.Parallel()

	s := newTestSigner(&SignerSpecification{Name: "Hollow", Matcher: "hollow"})
	_, diag := s.Activate(context.Background(), values.NewValueStore("ops"), nil)
	require.NotNil(t, diag)
	assert.Contains(t, diag.Message, "no activate hook")
	assert.Equal(t, StateFailed, s.State())
}

func TestCheckSignability_BeforeActivation(t *testing.T) {
	t.Parallel()

	var hookRuns atomic.Int32
	s := newTestSigner(countingSpec(&hookRuns))
	caller := did.NewConstructDid(did.FromComponents("test.tx", "action", "send"))

	_, diag := s.CheckSignability(context.Background(), caller, "send", values.String("p"), values.NewValueStore("ops"), supervisor.Context{})
	require.NotNil(t, diag)
	assert.Contains(t, diag.Message, "before activation")
}

func TestSign_BeforeActivation(t *testing.T) {
	t.Parallel()

	var hookRuns atomic.Int32
	s := newTestSigner(countingSpec(&hookRuns))
	caller := did.NewConstructDid(did.FromComponents("test.tx", "action", "send"))

	_, diag := s.Sign(context.Background(), caller, "send", values.String("p"), values.NewValueStore("ops"))
	require.NotNil(t, diag)
	assert.Contains(t, diag.Message, "before activation")
}

func TestSign_UsesPrivateState(t *testing.T) {
	t.Parallel()

	var hookRuns atomic.Int32
	s := newTestSigner(countingSpec(&hookRuns))
	inputs := values.NewValueStore("ops")
	caller := did.NewConstructDid(did.FromComponents("test.tx", "action", "send"))

	_, diag := s.Activate(context.Background(), inputs, nil)
	require.Nil(t, diag)

	sig, diag := s.Sign(context.Background(), caller, "send", values.String("p"), inputs)
	require.Nil(t, diag)
	assert.True(t, sig.Equals(values.Buffer([]byte("signed"))))
}

func TestCheckActivability_StateTransition(t *testing.T) {
	t.Parallel()

	var hookRuns atomic.Int32
	s := newTestSigner(countingSpec(&hookRuns))
	assert.Equal(t, StateDeclared, s.State())

	// No activability hook: the check passes with nothing to resolve.
	reqs, diag := s.CheckActivability(context.Background(), values.NewValueStore("ops"), supervisor.Context{})
	require.Nil(t, diag)
	assert.Empty(t, reqs)
	assert.Equal(t, StateActivabilityChecked, s.State())
}
