package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/vk/runbookgo/internal/dag"
	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/registry"
)

// Validator checks runbook sources against the specification registry.
type Validator struct {
	registry *registry.Registry
	mode     Mode
}

// NewValidator returns a validator for the given registry and depth.
func NewValidator(reg *registry.Registry, mode Mode) *Validator {
	return &Validator{registry: reg, mode: mode}
}

// Validate checks a set of sources keyed by location. Files that fail to
// parse contribute findings but do not abort the pass; the remaining files
// are still checked so an editor sees everything at once.
func (v *Validator) Validate(sources map[string][]byte) *ValidationResult {
	result := &ValidationResult{}
	parser := hclparse.NewParser()
	table := newSymbolTable()

	locations := make([]string, 0, len(sources))
	for loc := range sources {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	bodies := make(map[string]*hclsyntax.Body)
	for _, loc := range locations {
		file, hclDiags := parser.ParseHCL(sources[loc], loc)
		if hclDiags.HasErrors() {
			for _, hd := range hclDiags {
				e := ValidationError{
					Kind:     KindInvalidFormat,
					Message:  hd.Summary,
					Location: loc,
				}
				if hd.Subject != nil {
					e.Range = *hd.Subject
				}
				result.addError(e)
			}
			continue
		}
		body, ok := file.Body.(*hclsyntax.Body)
		if !ok {
			continue
		}
		bodies[loc] = body
		table.collect(loc, body)
	}

	for _, loc := range locations {
		body, ok := bodies[loc]
		if !ok {
			continue
		}
		v.checkBlocks(loc, body, result)
	}

	if v.mode == ModeFull {
		v.checkReferences(table, result)
		v.checkVariableCycles(table, result)
		v.checkUnusedVariables(table, result)
	}
	return result
}

// checkBlocks verifies block structure and action/signer types.
func (v *Validator) checkBlocks(location string, body *hclsyntax.Body, result *ValidationResult) {
	for _, block := range body.Blocks {
		switch block.Type {
		case "variable", "output", "module", "import", "addon", "runbook":
			if len(block.Labels) != 1 || block.Labels[0] == "" {
				result.addError(ValidationError{
					Kind:     KindInvalidFormat,
					Message:  fmt.Sprintf("%s block requires exactly one name label", block.Type),
					Location: location,
					Range:    block.TypeRange,
				})
			}
		case "action", "signer":
			if len(block.Labels) != 2 || block.Labels[0] == "" || block.Labels[1] == "" {
				result.addError(ValidationError{
					Kind:     KindInvalidFormat,
					Message:  fmt.Sprintf("%s block requires a name label and a type label", block.Type),
					Location: location,
					Range:    block.TypeRange,
				})
				continue
			}
			v.checkConstructType(location, block, result)
		default:
			result.addError(ValidationError{
				Kind:     KindInvalidFormat,
				Message:  fmt.Sprintf("unknown block type %q", block.Type),
				Location: location,
				Range:    block.TypeRange,
			})
		}
	}
}

// checkConstructType verifies the "namespace::matcher" type label of an
// action or signer block against the registry.
func (v *Validator) checkConstructType(location string, block *hclsyntax.Block, result *ValidationResult) {
	typeLabel := block.Labels[1]
	ns, matcher, err := registry.SplitActionType(typeLabel)
	if err != nil {
		result.addError(ValidationError{
			Kind:     KindInvalidFormat,
			Message:  err.Error(),
			Location: location,
			Range:    block.LabelRanges[1],
		})
		return
	}
	if !v.registry.HasNamespace(ns) {
		result.addError(ValidationError{
			Kind:       KindUnknownNamespace,
			Message:    fmt.Sprintf("namespace %q is not registered", ns),
			Location:   location,
			Range:      block.LabelRanges[1],
			Suggestion: "available namespaces: " + strings.Join(v.registry.Namespaces(), ", "),
		})
		return
	}

	var lookupErr error
	var declared []string
	checkInputs := v.mode == ModeFull
	if block.Type == "signer" {
		spec, err := v.registry.Signer(typeLabel)
		lookupErr = err
		if err == nil {
			for _, in := range spec.Inputs {
				declared = append(declared, in.Name)
			}
		}
	} else {
		spec, err := v.registry.Action(typeLabel)
		lookupErr = err
		if err == nil {
			checkInputs = checkInputs && !spec.AcceptsArbitraryInputs
			for _, in := range spec.Inputs {
				declared = append(declared, in.Name)
			}
		}
	}
	if lookupErr != nil {
		e := ValidationError{
			Kind:     KindUnknownAction,
			Message:  fmt.Sprintf("unknown %s type %q", block.Type, matcher),
			Location: location,
			Range:    block.LabelRanges[1],
		}
		if matchers := v.registry.ActionMatchers(ns); len(matchers) > 0 {
			sort.Strings(matchers)
			e.Suggestion = fmt.Sprintf("known types in %s: %s", ns, strings.Join(matchers, ", "))
		}
		result.addError(e)
		return
	}
	if checkInputs {
		v.checkDeclaredInputs(location, block, declared, result)
	}
}

// checkDeclaredInputs flags block attributes the resolved specification does
// not declare. A typo in an input name would otherwise only surface when the
// construct executes.
func (v *Validator) checkDeclaredInputs(location string, block *hclsyntax.Block, declared []string, result *ValidationResult) {
	known := make(map[string]bool, len(declared))
	for _, name := range declared {
		known[name] = true
	}
	sort.Strings(declared)

	names := make([]string, 0, len(block.Body.Attributes))
	for name := range block.Body.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if known[name] {
			continue
		}
		e := ValidationError{
			Kind:     KindUndeclaredInput,
			Message:  fmt.Sprintf("%s type %q does not declare input %q", block.Type, block.Labels[1], name),
			Location: location,
			Range:    block.Body.Attributes[name].NameRange,
		}
		if len(declared) > 0 {
			e.Suggestion = "declared inputs: " + strings.Join(declared, ", ")
		}
		result.addError(e)
	}
}

// checkReferences resolves every collected reference against the symbol
// table. Each undefined reference is its own finding.
func (v *Validator) checkReferences(table *symbolTable, result *ValidationResult) {
	for _, ref := range table.references {
		switch ref.namespace {
		case "variable", "output", "module", "action", "signer", "runbook", "input", "env":
			if !table.lookup(ref.namespace, ref.name) {
				result.addError(ValidationError{
					Kind:     KindUndefinedReference,
					Message:  fmt.Sprintf("reference to undefined %s %q", ref.namespace, ref.name),
					Location: ref.location,
					Range:    ref.srcRange,
				})
			}
		}
	}
}

// checkVariableCycles detects reference cycles among variables. A variable
// may not, directly or transitively, depend on itself.
func (v *Validator) checkVariableCycles(table *symbolTable, result *ValidationResult) {
	g := dag.New()
	names := make([]string, 0, len(table.variables))
	for name := range table.variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		g.AddNode(name)
	}
	for _, name := range names {
		for _, dep := range table.variableRefs[name] {
			if !g.HasNode(dep) {
				continue
			}
			if err := g.AddEdge(dep, name); err != nil {
				// Self-reference surfaces as a single-member cycle.
				result.addError(ValidationError{
					Kind:     KindCircularDependency,
					Message:  fmt.Sprintf("variable %q references itself", name),
					Range:    table.variables[name],
					Location: table.variables[name].Filename,
				})
			}
		}
	}
	if err := g.DetectCycles(); err != nil {
		var cycleErr *diagnostics.CycleError
		if errors.As(err, &cycleErr) {
			result.addError(ValidationError{
				Kind:    KindCircularDependency,
				Message: fmt.Sprintf("cycling dependency between variables: %s", strings.Join(cycleErr.Members, ", ")),
			})
			return
		}
		result.addError(ValidationError{
			Kind:    KindCircularDependency,
			Message: err.Error(),
		})
	}
}

// checkUnusedVariables reports variables no expression ever references.
// These are legal, so they surface as warnings and never fail validation.
func (v *Validator) checkUnusedVariables(table *symbolTable, result *ValidationResult) {
	used := make(map[string]bool)
	for _, ref := range table.references {
		if ref.namespace == "variable" {
			used[ref.name] = true
		}
	}

	names := make([]string, 0, len(table.variables))
	for name := range table.variables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if used[name] {
			continue
		}
		result.addWarning(ValidationError{
			Kind:     KindUnusedDeclaration,
			Message:  fmt.Sprintf("variable %q is declared but never referenced", name),
			Location: table.variables[name].Filename,
			Range:    table.variables[name],
		})
	}
}
