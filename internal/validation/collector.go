package validation

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// symbolTable is the phase-one product: every declared name per namespace,
// plus the raw reference material phase two checks against it.
type symbolTable struct {
	variables map[string]hcl.Range
	outputs   map[string]hcl.Range
	modules   map[string]hcl.Range
	actions   map[string]hcl.Range
	signers   map[string]hcl.Range
	runbooks  map[string]hcl.Range

	// variableRefs maps each variable name to the variable names its
	// expressions reference, for cycle detection.
	variableRefs map[string][]string

	// references collects every namespaced traversal with its position.
	references []collectedReference
}

type collectedReference struct {
	namespace string
	name      string
	location  string
	srcRange  hcl.Range
}

func newSymbolTable() *symbolTable {
	return &symbolTable{
		variables:    make(map[string]hcl.Range),
		outputs:      make(map[string]hcl.Range),
		modules:      make(map[string]hcl.Range),
		actions:      make(map[string]hcl.Range),
		signers:      make(map[string]hcl.Range),
		runbooks:     make(map[string]hcl.Range),
		variableRefs: make(map[string][]string),
	}
}

// lookup reports whether a name is declared in a namespace. The input and
// env namespaces are satisfied at runtime and always pass.
func (t *symbolTable) lookup(namespace, name string) bool {
	switch namespace {
	case "variable":
		_, ok := t.variables[name]
		return ok
	case "output":
		_, ok := t.outputs[name]
		return ok
	case "module":
		_, ok := t.modules[name]
		return ok
	case "action":
		_, ok := t.actions[name]
		return ok
	case "signer":
		_, ok := t.signers[name]
		return ok
	case "runbook":
		_, ok := t.runbooks[name]
		return ok
	case "input", "env":
		return true
	default:
		return false
	}
}

// collect indexes one parsed file's declarations and references into the
// table. Structural problems are deferred to phase two, which re-walks the
// blocks with the full table available.
func (t *symbolTable) collect(location string, body *hclsyntax.Body) {
	for _, block := range body.Blocks {
		if len(block.Labels) == 0 {
			continue
		}
		name := block.Labels[0]
		switch block.Type {
		case "variable":
			t.variables[name] = block.DefRange()
			t.collectVariableRefs(name, block)
		case "output":
			t.outputs[name] = block.DefRange()
		case "module":
			t.modules[name] = block.DefRange()
		case "action":
			t.actions[name] = block.DefRange()
		case "signer":
			t.signers[name] = block.DefRange()
		case "runbook":
			t.runbooks[name] = block.DefRange()
		}
		t.collectBlockReferences(location, block)
	}
}

func (t *symbolTable) collectVariableRefs(name string, block *hclsyntax.Block) {
	for _, attr := range block.Body.Attributes {
		for _, traversal := range attr.Expr.Variables() {
			ns, refName, ok := splitTraversal(traversal)
			if ok && ns == "variable" {
				t.variableRefs[name] = append(t.variableRefs[name], refName)
			}
		}
	}
}

func (t *symbolTable) collectBlockReferences(location string, block *hclsyntax.Block) {
	for _, attr := range block.Body.Attributes {
		for _, traversal := range attr.Expr.Variables() {
			ns, name, ok := splitTraversal(traversal)
			if !ok {
				continue
			}
			t.references = append(t.references, collectedReference{
				namespace: ns,
				name:      name,
				location:  location,
				srcRange:  traversal.SourceRange(),
			})
		}
	}
}

// splitTraversal extracts the `<namespace>.<name>` head of a traversal.
func splitTraversal(traversal hcl.Traversal) (string, string, bool) {
	if len(traversal) < 2 {
		return "", "", false
	}
	root, ok := traversal[0].(hcl.TraverseRoot)
	if !ok {
		return "", "", false
	}
	attr, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return "", "", false
	}
	return root.Name, attr.Name, true
}
