package executor

import (
	"errors"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/vk/runbookgo/internal/functions"
	"github.com/vk/runbookgo/internal/registry"
	"github.com/vk/runbookgo/internal/runbook"
	"github.com/vk/runbookgo/internal/values"
)

// buildEvalContext assembles the expression scope for one node from the
// current published results: one object per reference namespace, plus the
// registry's functions under their "namespace::name" call syntax.
//
// Variables and outputs surface their single value directly; actions,
// signers, modules, and embedded runbooks surface their full output object.
func buildEvalContext(rb *runbook.Runbook, results *ResultsStore, reg *registry.Registry) *hcl.EvalContext {
	scopes := map[string]map[string]cty.Value{
		"variable": {},
		"output":   {},
		"module":   {},
		"action":   {},
		"signer":   {},
		"runbook":  {},
		"input":    {},
		"env":      {},
	}

	for constructDid, store := range results.Snapshot() {
		c, ok := rb.Construct(constructDid)
		if !ok {
			continue
		}
		switch c.Kind {
		case runbook.KindVariable, runbook.KindOutput:
			if val, found := store.Get("value"); found {
				scopes[c.Kind.String()][c.Name] = val.ToCty()
			}
		case runbook.KindModule, runbook.KindAction, runbook.KindSigner, runbook.KindEmbeddedRunbook:
			scopes[c.Kind.String()][c.Name] = storeToCty(store)
		}
	}

	for name, constructDid := range rb.TopLevelInputs {
		if val, ok := rb.InputValues[constructDid]; ok {
			scopes["input"][name] = val.ToCty()
			scopes["env"][name] = val.ToCty()
		}
	}

	vars := make(map[string]cty.Value, len(scopes))
	for ns, attrs := range scopes {
		if len(attrs) == 0 {
			continue
		}
		vars[ns] = cty.ObjectVal(attrs)
	}

	fns := make(map[string]function.Function)
	if reg != nil {
		for _, ns := range reg.Namespaces() {
			for name, spec := range registryFunctions(reg, ns) {
				fns[ns+"::"+name] = bridgeFunction(spec)
			}
		}
	}

	return &hcl.EvalContext{Variables: vars, Functions: fns}
}

// storeToCty renders a value store as a cty object.
func storeToCty(store *values.ValueStore) cty.Value {
	if store.Len() == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, store.Len())
	for _, key := range store.Keys() {
		val, _ := store.Get(key)
		attrs[key] = val.ToCty()
	}
	return cty.ObjectVal(attrs)
}

func registryFunctions(reg *registry.Registry, ns string) map[string]*functions.FunctionSpecification {
	out := make(map[string]*functions.FunctionSpecification)
	for _, name := range reg.FunctionNames(ns) {
		if spec, ok := reg.Function(ns, name); ok {
			out[name] = spec
		}
	}
	return out
}

// bridgeFunction adapts an addon function specification into a cty function
// callable from runbook expressions. Arguments pass through the engine's
// value model, so buffers and addon payloads survive the round trip.
func bridgeFunction(spec *functions.FunctionSpecification) function.Function {
	return function.New(&function.Spec{
		VarParam: &function.Parameter{
			Name:             "args",
			Type:             cty.DynamicPseudoType,
			AllowNull:        true,
			AllowDynamicType: true,
		},
		Type: func(args []cty.Value) (cty.Type, error) {
			return cty.DynamicPseudoType, nil
		},
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			converted := make([]values.Value, len(args))
			for i, arg := range args {
				val, err := values.FromCty(arg)
				if err != nil {
					return cty.NilVal, err
				}
				converted[i] = val
			}
			out, diag := spec.Execute(converted)
			if diag != nil {
				return cty.NilVal, errors.New(diag.Message)
			}
			return out.ToCty(), nil
		},
	})
}
