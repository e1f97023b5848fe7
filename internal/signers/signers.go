// Package signers implements the signer side of the execution model: the
// addon-supplied SignerSpecification, the per-construct SignerInstance, and
// the state machine driving activation and signing with human-in-the-loop
// approval. Activation resolves at most once per instance and is cached;
// signing requests are independent and keyed by caller.
package signers

import (
	"context"

	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/supervisor"
	"github.com/vk/runbookgo/internal/values"
)

// SignerInput declares one input of a signer specification.
type SignerInput struct {
	Name          string
	Documentation string
	Type          values.Type
	Optional      bool
	Sensitive     bool
}

// SignerOutput declares one output of a signer specification.
type SignerOutput struct {
	Name          string
	Documentation string
	Type          values.Type
}

// ActivationResult carries a signer's activation outputs (public key,
// address) plus the private state persisted into the signer's own store.
type ActivationResult struct {
	Outputs *values.ValueStore
}

// ActivabilityChecker determines what startup data the signer still needs
// from the user: a public key, an address confirmation, a balance review.
type ActivabilityChecker func(ctx context.Context, constructDid did.ConstructDid, instanceName string, spec *SignerSpecification, inputs *values.ValueStore, sup supervisor.Context) ([]*supervisor.ActionItemRequest, *diagnostics.Diagnostic)

// Activator persists resolved key material into the signer's private state
// store and produces the activation outputs.
type Activator func(ctx context.Context, constructDid did.ConstructDid, spec *SignerSpecification, inputs *values.ValueStore, state *values.ValueStore, responses []*supervisor.ActionItemResponse) (*ActivationResult, *diagnostics.Diagnostic)

// SignabilityChecker decides whether a given payload needs human approval
// before signing.
type SignabilityChecker func(ctx context.Context, caller did.ConstructDid, title string, payload values.Value, spec *SignerSpecification, inputs *values.ValueStore, state *values.ValueStore, sup supervisor.Context) ([]*supervisor.ActionItemRequest, *diagnostics.Diagnostic)

// SignFunc produces the signature for one payload.
type SignFunc func(ctx context.Context, caller did.ConstructDid, title string, payload values.Value, spec *SignerSpecification, inputs *values.ValueStore, state *values.ValueStore) (values.Value, *diagnostics.Diagnostic)

// ExpectationsChecker validates user-declared expectations (e.g. an
// expected address) against the resolved key material after activation.
type ExpectationsChecker func(ctx context.Context, constructDid did.ConstructDid, spec *SignerSpecification, inputs *values.ValueStore, state *values.ValueStore) *diagnostics.Diagnostic

// SignerSpecification is the immutable, addon-supplied description of a
// signer: declared inputs/outputs plus the activation and signing hooks.
type SignerSpecification struct {
	Name          string
	Matcher       string
	Documentation string

	Inputs  []SignerInput
	Outputs []SignerOutput

	CheckActivability          ActivabilityChecker
	Activate                   Activator
	CheckSignability           SignabilityChecker
	Sign                       SignFunc
	CheckPublicKeyExpectations ExpectationsChecker
}

// Input looks up a declared input by name.
func (s *SignerSpecification) Input(name string) (SignerInput, bool) {
	for _, in := range s.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return SignerInput{}, false
}
