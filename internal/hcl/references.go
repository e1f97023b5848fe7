package hcl

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/vk/runbookgo/internal/runbook"
)

// referenceNamespaces are the traversal roots the graph builder resolves
// into dependency edges. Any other root is left for expression evaluation
// to reject.
var referenceNamespaces = map[string]bool{
	"variable": true,
	"output":   true,
	"module":   true,
	"action":   true,
	"signer":   true,
	"runbook":  true,
	"input":    true,
	"env":      true,
}

// blockExpressions extracts a block's attribute expressions in declaration
// order. hclsyntax stores attributes as a map, so order is recovered from
// source byte offsets.
func blockExpressions(block *hclsyntax.Block) (map[string]hcl.Expression, []string) {
	exprs := make(map[string]hcl.Expression, len(block.Body.Attributes))
	attrs := make([]*hclsyntax.Attribute, 0, len(block.Body.Attributes))
	for _, attr := range block.Body.Attributes {
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})
	order := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		exprs[attr.Name] = attr.Expr
		order = append(order, attr.Name)
	}
	return exprs, order
}

// collectReferences scans an expression's variable traversals for
// `<namespace>.<name>[.<field>]` references. Traversals with an unknown
// root or without a name step carry no dependency information and are
// skipped.
func collectReferences(inputName string, expr hcl.Expression) []runbook.Reference {
	var refs []runbook.Reference
	for _, traversal := range expr.Variables() {
		root, ok := traversal[0].(hcl.TraverseRoot)
		if !ok || !referenceNamespaces[root.Name] {
			continue
		}
		if len(traversal) < 2 {
			continue
		}
		name, ok := traversal[1].(hcl.TraverseAttr)
		if !ok {
			continue
		}
		ref := runbook.Reference{
			Namespace: root.Name,
			Name:      name.Name,
			InputName: inputName,
			Range:     traversal.SourceRange(),
		}
		if len(traversal) > 2 {
			if field, ok := traversal[2].(hcl.TraverseAttr); ok {
				ref.Field = field.Name
			}
		}
		refs = append(refs, ref)
	}
	return refs
}
