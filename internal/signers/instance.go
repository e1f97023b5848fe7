package signers

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/runbookgo/internal/ctxlog"
	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/supervisor"
	"github.com/vk/runbookgo/internal/values"
)

// State is the signer lifecycle position: Declared → ActivabilityChecked →
// Activated, then any number of (SignabilityChecked → Signed) rounds.
type State int32

const (
	StateDeclared State = iota
	StateActivabilityChecked
	StateActivated
	StateFailed
)

// SignerInstance binds a specification to one signer construct. The private
// state store holds resolved key material, scoped to this instance and
// never published into the shared value store.
type SignerInstance struct {
	Specification *SignerSpecification
	Name          string
	Namespace     string
	ConstructDid  did.ConstructDid

	// Inputs holds the block's unevaluated attribute expressions.
	Inputs     map[string]hcl.Expression
	InputOrder []string

	state         atomic.Int32
	activateOnce  sync.Once
	activations   atomic.Int32
	activationRes *ActivationResult
	activationErr *diagnostics.Diagnostic
	// privateState holds key material; guarded by stateMu because signing
	// rounds from concurrent dependents read it.
	stateMu      sync.Mutex
	privateState *values.ValueStore
}

// NewSignerInstance binds a specification to a construct.
func NewSignerInstance(spec *SignerSpecification, namespace, name string, constructDid did.ConstructDid) *SignerInstance {
	return &SignerInstance{
		Specification: spec,
		Name:          name,
		Namespace:     namespace,
		ConstructDid:  constructDid,
		Inputs:        make(map[string]hcl.Expression),
		privateState:  values.NewValueStore(name),
	}
}

// State returns the current lifecycle position.
func (s *SignerInstance) State() State {
	return State(s.state.Load())
}

// ActivationCount returns how many times the Activate hook actually ran.
// The at-most-once invariant means this never exceeds 1.
func (s *SignerInstance) ActivationCount() int {
	return int(s.activations.Load())
}

// CheckActivability collects the startup action items the signer needs
// resolved (provide public key, confirm address, review balance).
func (s *SignerInstance) CheckActivability(ctx context.Context, inputs *values.ValueStore, sup supervisor.Context) ([]*supervisor.ActionItemRequest, *diagnostics.Diagnostic) {
	spec := s.Specification
	if spec.CheckActivability == nil {
		s.state.Store(int32(StateActivabilityChecked))
		return nil, nil
	}
	reqs, diag := spec.CheckActivability(ctx, s.ConstructDid, s.Name, spec, inputs, sup)
	if diag != nil {
		s.state.Store(int32(StateFailed))
		return nil, diag
	}
	s.state.Store(int32(StateActivabilityChecked))
	return reqs, nil
}

// Activate resolves the signer's key material exactly once; concurrent and
// repeated calls return the cached outcome. The scheduler activates a
// signer when its construct node executes, and every signing round funnels
// through here as well, so a signer reached first by a sign request still
// activates only once.
func (s *SignerInstance) Activate(ctx context.Context, inputs *values.ValueStore, responses []*supervisor.ActionItemResponse) (*ActivationResult, *diagnostics.Diagnostic) {
	s.activateOnce.Do(func() {
		logger := ctxlog.FromContext(ctx)
		logger.Debug("Activating signer.", "signer", s.Name)

		spec := s.Specification
		if spec.Activate == nil {
			s.activationErr = diagnostics.Errorf("signer %q (%s::%s) has no activate hook", s.Name, s.Namespace, spec.Matcher)
			s.state.Store(int32(StateFailed))
			return
		}
		s.activations.Add(1)
		s.stateMu.Lock()
		res, diag := spec.Activate(ctx, s.ConstructDid, spec, inputs, s.privateState, responses)
		s.stateMu.Unlock()
		if diag != nil {
			s.activationErr = diag
			s.state.Store(int32(StateFailed))
			return
		}
		s.activationRes = res
		s.state.Store(int32(StateActivated))
	})
	return s.activationRes, s.activationErr
}

// CheckPublicKeyExpectations validates declared expectations against the
// resolved key material. Must be called after activation.
func (s *SignerInstance) CheckPublicKeyExpectations(ctx context.Context, inputs *values.ValueStore) *diagnostics.Diagnostic {
	spec := s.Specification
	if spec.CheckPublicKeyExpectations == nil {
		return nil
	}
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return spec.CheckPublicKeyExpectations(ctx, s.ConstructDid, spec, inputs, s.privateState)
}

// CheckSignability collects the approval action items for one payload.
// Requests are keyed by the caller's construct did plus the payload title,
// so concurrent signing rounds against the same signer do not collide.
func (s *SignerInstance) CheckSignability(ctx context.Context, caller did.ConstructDid, title string, payload values.Value, inputs *values.ValueStore, sup supervisor.Context) ([]*supervisor.ActionItemRequest, *diagnostics.Diagnostic) {
	if s.State() != StateActivated {
		return nil, diagnostics.Errorf("signer %q asked to sign before activation", s.Name)
	}
	spec := s.Specification
	if spec.CheckSignability == nil {
		return nil, nil
	}
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return spec.CheckSignability(ctx, caller, title, payload, spec, inputs, s.privateState, sup)
}

// Sign produces a signature over the payload for one caller.
func (s *SignerInstance) Sign(ctx context.Context, caller did.ConstructDid, title string, payload values.Value, inputs *values.ValueStore) (values.Value, *diagnostics.Diagnostic) {
	if s.State() != StateActivated {
		return values.Null(), diagnostics.Errorf("signer %q asked to sign before activation", s.Name)
	}
	spec := s.Specification
	if spec.Sign == nil {
		return values.Null(), diagnostics.Errorf("signer %q (%s::%s) has no sign hook", s.Name, s.Namespace, spec.Matcher)
	}
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return spec.Sign(ctx, caller, title, payload, spec, inputs, s.privateState)
}
