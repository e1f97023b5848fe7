// Package supervisor implements the human-in-the-loop protocol between the
// engine and whatever surface supervises a run (CLI prompt, web UI). The
// core publishes ActionItemRequests and suspends the owning construct's
// goroutine until a matching ActionItemResponse arrives; unrelated branches
// keep executing.
package supervisor

import (
	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/values"
)

// ActionItemStatus tracks a request through its lifecycle.
type ActionItemStatus int

const (
	StatusTodo ActionItemStatus = iota
	StatusInProgress
	StatusSuccess
	StatusError
)

// ActionItemRequestType identifies what the supervisor is being asked for.
type ActionItemRequestType int

const (
	// ProvidePublicKey asks the user to connect a wallet / supply key material.
	ProvidePublicKey ActionItemRequestType = iota
	// ReviewInput asks the user to confirm a computed value (address, balance,
	// contract call parameters) before execution proceeds.
	ReviewInput
	// ProvideSignedTransaction asks the user to approve or produce a signature
	// over the attached payload.
	ProvideSignedTransaction
)

// String returns the label used in logs and the supervisor UI payload.
func (t ActionItemRequestType) String() string {
	switch t {
	case ProvidePublicKey:
		return "provide_public_key"
	case ReviewInput:
		return "review_input"
	case ProvideSignedTransaction:
		return "provide_signed_transaction"
	default:
		return "unknown"
	}
}

// ActionItemRequest is one supervision unit emitted by a command or signer.
type ActionItemRequest struct {
	// ConstructDid identifies the construct whose execution is suspended on
	// this request.
	ConstructDid did.ConstructDid
	Title        string
	Description  string
	Status       ActionItemStatus
	Type         ActionItemRequestType
	// Key disambiguates concurrent requests against the same construct
	// (e.g. two dependents asking one signer for signatures).
	Key string
	// Payload carries the value under review or the payload to sign.
	Payload values.Value
	// AutoApprovable marks requests the engine may approve itself when the
	// run is unsupervised.
	AutoApprovable bool
	// Diagnostic is set when Status is StatusError.
	Diagnostic *diagnostics.Diagnostic
}

// ActionItemResponse answers a request.
type ActionItemResponse struct {
	ConstructDid did.ConstructDid
	Key          string
	Accepted     bool
	// Payload carries user-supplied material (public key, signature bytes).
	Payload values.Value
}

// routingKey pairs a construct identity with a request key so concurrent
// requests against the same construct do not collide.
func routingKey(constructDid did.ConstructDid, key string) string {
	return constructDid.String() + "/" + key
}
