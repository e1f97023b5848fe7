// Package runbook implements the construct and package data model, the
// dependency graph context built over them, and the Runbook aggregate that
// owns graph and execution state for the duration of one run.
package runbook

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/vk/runbookgo/internal/commands"
	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/signers"
)

// Kind discriminates construct block kinds.
type Kind int

const (
	KindRoot Kind = iota
	KindVariable
	KindOutput
	KindModule
	KindImport
	KindAction
	KindSigner
	KindAddonConfig
	KindEmbeddedRunbook
)

// String returns the block label of the kind.
func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindVariable:
		return "variable"
	case KindOutput:
		return "output"
	case KindModule:
		return "module"
	case KindImport:
		return "import"
	case KindAction:
		return "action"
	case KindSigner:
		return "signer"
	case KindAddonConfig:
		return "addon"
	case KindEmbeddedRunbook:
		return "runbook"
	default:
		return "unknown"
	}
}

// Reference is one traversal-style reference collected from a construct's
// expressions: `<namespace>.<name>[.<field>]`.
type Reference struct {
	// Namespace is the traversal root: variable, output, action, signer,
	// module, input, or env.
	Namespace string
	Name      string
	Field     string
	// InputName is the attribute the reference appeared in.
	InputName string
	Range     hcl.Range
}

// String renders the reference the way it appeared in source.
func (r Reference) String() string {
	s := r.Namespace + "." + r.Name
	if r.Field != "" {
		s += "." + r.Field
	}
	return s
}

// Construct is one named unit parsed from a runbook block. Expressions stay
// unevaluated until execution; References is the pre-scanned list of
// traversals the graph builder resolves into edges.
type Construct struct {
	Did        did.ConstructDid
	PackageDid did.PackageDid
	Kind       Kind
	Name       string
	Location   string
	DeclRange  hcl.Range

	// Expressions holds the block's attribute expressions in declaration
	// order (ExprOrder).
	Expressions map[string]hcl.Expression
	ExprOrder   []string
	References  []Reference

	// Command is bound for variable, output, module, and action constructs;
	// Signer for signer constructs. Exactly one of the two is non-nil for
	// executable kinds.
	Command *commands.CommandInstance
	Signer  *signers.SignerInstance

	// ImportPath is set for import constructs and redirects reference
	// resolution into the package indexed from that path.
	ImportPath string
	// EmbeddedLocation is set for embedded runbook constructs.
	EmbeddedLocation string
}

// Executable reports whether the scheduler dispatches this construct.
func (c *Construct) Executable() bool {
	switch c.Kind {
	case KindVariable, KindOutput, KindModule, KindAction, KindSigner, KindEmbeddedRunbook:
		return true
	default:
		return false
	}
}
