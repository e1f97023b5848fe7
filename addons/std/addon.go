// Package std is the built-in addon: general purpose functions, an HTTP
// request action, and a local secret key signer. It carries no chain
// specific logic and is always registered.
package std

import (
	"github.com/vk/runbookgo/internal/commands"
	"github.com/vk/runbookgo/internal/functions"
	"github.com/vk/runbookgo/internal/signers"
)

// Namespace is the addon's reference prefix.
const Namespace = "std"

// Addon implements registry.Addon.
type Addon struct{}

// New returns the std addon.
func New() *Addon {
	return &Addon{}
}

// Namespace returns "std".
func (a *Addon) Namespace() string {
	return Namespace
}

// Functions lists the addon's pure functions.
func (a *Addon) Functions() []*functions.FunctionSpecification {
	return []*functions.FunctionSpecification{
		newConcatFunction(),
		newAddFunction(),
		newUpperFunction(),
		newBase64EncodeFunction(),
		newBase64DecodeFunction(),
		newSha256Function(),
		newEncodeHexFunction(),
		newDecodeHexFunction(),
	}
}

// Actions lists the addon's commands.
func (a *Addon) Actions() []*commands.CommandSpecification {
	return []*commands.CommandSpecification{
		newSendHTTPRequestSpecification(),
	}
}

// Signers lists the addon's signer specifications.
func (a *Addon) Signers() []*signers.SignerSpecification {
	return []*signers.SignerSpecification{
		newSecretKeySignerSpecification(),
	}
}
