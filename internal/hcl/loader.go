// Package hcl parses runbook source files into the construct model. Parsing
// keeps every attribute as an unevaluated hcl.Expression; evaluation happens
// later, once the scheduler has the construct's dependencies in scope.
package hcl

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/runbookgo/internal/commands"
	"github.com/vk/runbookgo/internal/ctxlog"
	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/fsutil"
	"github.com/vk/runbookgo/internal/registry"
	"github.com/vk/runbookgo/internal/runbook"
	"github.com/vk/runbookgo/internal/signers"
)

// SourceExtension is the runbook file extension.
const SourceExtension = ".tx"

// Loader parses runbook sources and indexes them into a Runbook aggregate.
type Loader struct {
	registry *registry.Registry
	parser   *hclparse.Parser
}

// NewLoader returns a loader bound to the given specification registry.
func NewLoader(reg *registry.Registry) *Loader {
	return &Loader{
		registry: reg,
		parser:   hclparse.NewParser(),
	}
}

// Load discovers every runbook source file under the given paths, parses
// each into a package of constructs, and returns the indexed aggregate.
// Parse and indexing failures are fatal; the returned diagnostics are
// non-empty exactly when loading failed.
func (l *Loader) Load(ctx context.Context, runbookName string, paths ...string) (*runbook.Runbook, []*diagnostics.Diagnostic) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, path := range paths {
		found, err := fsutil.FindFilesByExtension(path, SourceExtension)
		if err != nil {
			return nil, []*diagnostics.Diagnostic{diagnostics.Errorf("discovering runbook sources in %s: %s", path, err)}
		}
		files = append(files, found...)
	}
	logger.Debug("Discovered runbook sources.", "count", len(files))

	rb := runbook.New(runbookName)
	for _, file := range files {
		hclFile, hclDiags := l.parser.ParseHCLFile(file)
		if hclDiags.HasErrors() {
			return nil, convertHclDiagnostics(hclDiags, file)
		}
		if diags := l.indexFile(ctx, rb, file, hclFile); len(diags) > 0 {
			return nil, diags
		}
	}
	return rb, nil
}

// LoadSource parses one in-memory source buffer into the given runbook. The
// location labels diagnostics and seeds construct identity the same way a
// file path does.
func (l *Loader) LoadSource(ctx context.Context, rb *runbook.Runbook, location string, src []byte) []*diagnostics.Diagnostic {
	hclFile, hclDiags := l.parser.ParseHCL(src, location)
	if hclDiags.HasErrors() {
		return convertHclDiagnostics(hclDiags, location)
	}
	return l.indexFile(ctx, rb, location, hclFile)
}

// indexFile walks the top-level blocks of one parsed file, builds a
// construct per block, and indexes them into the file's package.
func (l *Loader) indexFile(ctx context.Context, rb *runbook.Runbook, location string, file *hcl.File) []*diagnostics.Diagnostic {
	logger := ctxlog.FromContext(ctx)

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return []*diagnostics.Diagnostic{diagnostics.Errorf("unsupported source syntax in %s", location)}
	}

	pkgName := filepath.Base(location)
	pkg := rb.IndexPackage(pkgName, location)

	for _, block := range body.Blocks {
		c, diag := l.buildConstruct(location, block)
		if diag != nil {
			return []*diagnostics.Diagnostic{diag}
		}
		if c == nil {
			continue
		}
		if err := rb.IndexConstruct(pkg, c); err != nil {
			return []*diagnostics.Diagnostic{diagnostics.Errorf("%s", err).WithLocation(location)}
		}
		logger.Debug("Indexed construct.", "kind", c.Kind.String(), "name", c.Name, "refs", len(c.References))
	}
	return nil
}

// buildConstruct translates one top-level block into a construct, binding a
// command or signer instance for executable kinds. Unknown block types
// return a nil construct and a diagnostic.
func (l *Loader) buildConstruct(location string, block *hclsyntax.Block) (*runbook.Construct, *diagnostics.Diagnostic) {
	switch block.Type {
	case "variable":
		return l.buildCommandConstruct(location, block, runbook.KindVariable, commands.NewVariableSpecification(), "std")
	case "output":
		return l.buildCommandConstruct(location, block, runbook.KindOutput, commands.NewOutputSpecification(), "std")
	case "module":
		return l.buildCommandConstruct(location, block, runbook.KindModule, commands.NewModuleSpecification(), "std")
	case "action":
		return l.buildActionConstruct(location, block)
	case "signer":
		return l.buildSignerConstruct(location, block)
	case "import":
		return l.buildImportConstruct(location, block)
	case "addon":
		return l.buildAddonConstruct(location, block)
	case "runbook":
		return l.buildEmbeddedConstruct(location, block)
	default:
		return nil, diagnostics.Errorf("unknown block type %q", block.Type).
			WithLocation(location).
			WithSpan(block.TypeRange.Start.Line, block.TypeRange.Start.Column)
	}
}

func (l *Loader) buildCommandConstruct(location string, block *hclsyntax.Block, kind runbook.Kind, spec *commands.CommandSpecification, namespace string) (*runbook.Construct, *diagnostics.Diagnostic) {
	name, diag := singleLabel(location, block)
	if diag != nil {
		return nil, diag
	}
	c := newConstruct(location, kind, name, block)
	instance := commands.NewCommandInstance(spec, namespace, name, c.Did)
	instance.Inputs = c.Expressions
	instance.InputOrder = c.ExprOrder
	c.Command = instance
	return c, nil
}

// buildActionConstruct resolves the block's second label ("namespace::matcher")
// in the registry and binds the resulting command specification.
func (l *Loader) buildActionConstruct(location string, block *hclsyntax.Block) (*runbook.Construct, *diagnostics.Diagnostic) {
	name, actionType, diag := doubleLabel(location, block)
	if diag != nil {
		return nil, diag
	}
	spec, err := l.registry.Action(actionType)
	if err != nil {
		return nil, diagnostics.Errorf("action %q: %s", name, err).
			WithLocation(location).
			WithSpan(block.TypeRange.Start.Line, block.TypeRange.Start.Column)
	}
	namespace, _, _ := registry.SplitActionType(actionType)
	c := newConstruct(location, runbook.KindAction, name, block)
	instance := commands.NewCommandInstance(spec, namespace, name, c.Did)
	instance.Inputs = c.Expressions
	instance.InputOrder = c.ExprOrder
	c.Command = instance
	return c, nil
}

func (l *Loader) buildSignerConstruct(location string, block *hclsyntax.Block) (*runbook.Construct, *diagnostics.Diagnostic) {
	name, signerType, diag := doubleLabel(location, block)
	if diag != nil {
		return nil, diag
	}
	spec, err := l.registry.Signer(signerType)
	if err != nil {
		return nil, diagnostics.Errorf("signer %q: %s", name, err).
			WithLocation(location).
			WithSpan(block.TypeRange.Start.Line, block.TypeRange.Start.Column)
	}
	namespace, _, _ := registry.SplitActionType(signerType)
	c := newConstruct(location, runbook.KindSigner, name, block)
	instance := signers.NewSignerInstance(spec, namespace, name, c.Did)
	instance.Inputs = c.Expressions
	instance.InputOrder = c.ExprOrder
	c.Signer = instance
	return c, nil
}

// buildImportConstruct reads the import's path attribute eagerly: it must be
// a literal because resolution redirection happens before any evaluation.
func (l *Loader) buildImportConstruct(location string, block *hclsyntax.Block) (*runbook.Construct, *diagnostics.Diagnostic) {
	name, diag := singleLabel(location, block)
	if diag != nil {
		return nil, diag
	}
	c := newConstruct(location, runbook.KindImport, name, block)
	pathExpr, ok := c.Expressions["path"]
	if !ok {
		return nil, diagnostics.Errorf("import %q is missing the path attribute", name).
			WithLocation(location).
			WithSpan(block.TypeRange.Start.Line, block.TypeRange.Start.Column)
	}
	val, hclDiags := pathExpr.Value(nil)
	if hclDiags.HasErrors() || val.Type() != cty.String {
		return nil, diagnostics.Errorf("import %q path must be a string literal", name).
			WithLocation(location).
			WithSpan(block.TypeRange.Start.Line, block.TypeRange.Start.Column)
	}
	c.ImportPath = val.AsString()
	return c, nil
}

func (l *Loader) buildAddonConstruct(location string, block *hclsyntax.Block) (*runbook.Construct, *diagnostics.Diagnostic) {
	name, diag := singleLabel(location, block)
	if diag != nil {
		return nil, diag
	}
	if !l.registry.HasNamespace(name) {
		return nil, diagnostics.Errorf("addon %q is not registered", name).
			WithLocation(location).
			WithSpan(block.TypeRange.Start.Line, block.TypeRange.Start.Column)
	}
	return newConstruct(location, runbook.KindAddonConfig, name, block), nil
}

func (l *Loader) buildEmbeddedConstruct(location string, block *hclsyntax.Block) (*runbook.Construct, *diagnostics.Diagnostic) {
	name, diag := singleLabel(location, block)
	if diag != nil {
		return nil, diag
	}
	c := newConstruct(location, runbook.KindEmbeddedRunbook, name, block)
	if locExpr, ok := c.Expressions["location"]; ok {
		if val, hclDiags := locExpr.Value(nil); !hclDiags.HasErrors() && val.Type() == cty.String {
			c.EmbeddedLocation = val.AsString()
		}
	}
	return c, nil
}

// newConstruct assembles the common construct fields: content-hash identity,
// declaration-ordered expressions, and the pre-scanned reference list.
func newConstruct(location string, kind runbook.Kind, name string, block *hclsyntax.Block) *runbook.Construct {
	exprs, order := blockExpressions(block)
	c := &runbook.Construct{
		Did:         did.NewConstructDid(did.FromComponents(location, kind.String(), name)),
		Kind:        kind,
		Name:        name,
		Location:    location,
		DeclRange:   block.DefRange(),
		Expressions: exprs,
		ExprOrder:   order,
	}
	for _, attrName := range order {
		c.References = append(c.References, collectReferences(attrName, exprs[attrName])...)
	}
	return c
}

func singleLabel(location string, block *hclsyntax.Block) (string, *diagnostics.Diagnostic) {
	if len(block.Labels) != 1 || block.Labels[0] == "" {
		return "", diagnostics.Errorf("%s block requires exactly one name label", block.Type).
			WithLocation(location).
			WithSpan(block.TypeRange.Start.Line, block.TypeRange.Start.Column)
	}
	return block.Labels[0], nil
}

func doubleLabel(location string, block *hclsyntax.Block) (string, string, *diagnostics.Diagnostic) {
	if len(block.Labels) != 2 || block.Labels[0] == "" || block.Labels[1] == "" {
		return "", "", diagnostics.Errorf("%s block requires a name label and a type label", block.Type).
			WithLocation(location).
			WithSpan(block.TypeRange.Start.Line, block.TypeRange.Start.Column)
	}
	return block.Labels[0], block.Labels[1], nil
}

// convertHclDiagnostics maps hcl parser diagnostics onto the engine's
// diagnostic type, keeping source spans.
func convertHclDiagnostics(hclDiags hcl.Diagnostics, location string) []*diagnostics.Diagnostic {
	out := make([]*diagnostics.Diagnostic, 0, len(hclDiags))
	for _, hd := range hclDiags {
		msg := hd.Summary
		if hd.Detail != "" {
			msg = fmt.Sprintf("%s: %s", hd.Summary, hd.Detail)
		}
		d := diagnostics.Errorf("%s", msg).WithLocation(location)
		if hd.Severity == hcl.DiagWarning {
			d = diagnostics.Warnf("%s", msg).WithLocation(location)
		}
		if hd.Subject != nil {
			d = d.WithSpan(hd.Subject.Start.Line, hd.Subject.Start.Column)
		}
		out = append(out, d)
	}
	return out
}
