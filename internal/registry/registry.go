// Package registry holds the addon-supplied specifications available to a
// run. Addons register explicitly at process start; the resulting lookup
// tables are immutable afterwards, so the scheduler and validator can read
// them without coordination.
package registry

import (
	"fmt"
	"strings"

	"github.com/vk/runbookgo/internal/commands"
	"github.com/vk/runbookgo/internal/functions"
	"github.com/vk/runbookgo/internal/signers"
)

// Addon is the contract every chain-specific collaborator implements.
type Addon interface {
	Namespace() string
	Functions() []*functions.FunctionSpecification
	Actions() []*commands.CommandSpecification
	Signers() []*signers.SignerSpecification
}

// Registry is the immutable specification lookup for one application
// instance.
type Registry struct {
	namespaces []string
	addons     map[string]Addon
	actions    map[string]map[string]*commands.CommandSpecification
	signers    map[string]map[string]*signers.SignerSpecification
	functions  map[string]map[string]*functions.FunctionSpecification
}

// New builds a registry from the given addons. Registering two addons under
// the same namespace is a programmer error and panics, matching the
// fail-at-startup policy for wiring mistakes.
func New(addons ...Addon) *Registry {
	r := &Registry{
		addons:    make(map[string]Addon),
		actions:   make(map[string]map[string]*commands.CommandSpecification),
		signers:   make(map[string]map[string]*signers.SignerSpecification),
		functions: make(map[string]map[string]*functions.FunctionSpecification),
	}
	for _, addon := range addons {
		ns := addon.Namespace()
		if _, exists := r.addons[ns]; exists {
			panic(fmt.Sprintf("addon namespace %q already registered", ns))
		}
		r.addons[ns] = addon
		r.namespaces = append(r.namespaces, ns)

		actionTable := make(map[string]*commands.CommandSpecification)
		for _, spec := range addon.Actions() {
			if _, exists := actionTable[spec.Matcher]; exists {
				panic(fmt.Sprintf("action %s::%s already registered", ns, spec.Matcher))
			}
			actionTable[spec.Matcher] = spec
		}
		r.actions[ns] = actionTable

		signerTable := make(map[string]*signers.SignerSpecification)
		for _, spec := range addon.Signers() {
			if _, exists := signerTable[spec.Matcher]; exists {
				panic(fmt.Sprintf("signer %s::%s already registered", ns, spec.Matcher))
			}
			signerTable[spec.Matcher] = spec
		}
		r.signers[ns] = signerTable

		fnTable := make(map[string]*functions.FunctionSpecification)
		for _, spec := range addon.Functions() {
			if _, exists := fnTable[spec.Name]; exists {
				panic(fmt.Sprintf("function %s::%s already registered", ns, spec.Name))
			}
			fnTable[spec.Name] = spec
		}
		r.functions[ns] = fnTable
	}
	return r
}

// Namespaces returns the registered namespaces in registration order.
func (r *Registry) Namespaces() []string {
	return r.namespaces
}

// HasNamespace reports whether the namespace is registered.
func (r *Registry) HasNamespace(ns string) bool {
	_, ok := r.addons[ns]
	return ok
}

// Action resolves a "namespace::matcher" action type string.
func (r *Registry) Action(actionType string) (*commands.CommandSpecification, error) {
	ns, matcher, err := SplitActionType(actionType)
	if err != nil {
		return nil, err
	}
	table, ok := r.actions[ns]
	if !ok {
		return nil, fmt.Errorf("unknown namespace %q", ns)
	}
	spec, ok := table[matcher]
	if !ok {
		return nil, fmt.Errorf("unknown action %q in namespace %q", matcher, ns)
	}
	return spec, nil
}

// Signer resolves a "namespace::matcher" signer type string.
func (r *Registry) Signer(signerType string) (*signers.SignerSpecification, error) {
	ns, matcher, err := SplitActionType(signerType)
	if err != nil {
		return nil, err
	}
	table, ok := r.signers[ns]
	if !ok {
		return nil, fmt.Errorf("unknown namespace %q", ns)
	}
	spec, ok := table[matcher]
	if !ok {
		return nil, fmt.Errorf("unknown signer %q in namespace %q", matcher, ns)
	}
	return spec, nil
}

// Function resolves a function by namespace and name.
func (r *Registry) Function(ns, name string) (*functions.FunctionSpecification, bool) {
	table, ok := r.functions[ns]
	if !ok {
		return nil, false
	}
	spec, ok := table[name]
	return spec, ok
}

// FunctionNames returns the function names of a namespace.
func (r *Registry) FunctionNames(ns string) []string {
	var out []string
	for name := range r.functions[ns] {
		out = append(out, name)
	}
	return out
}

// ActionMatchers returns the known matchers of a namespace, for validator
// error reporting.
func (r *Registry) ActionMatchers(ns string) []string {
	var out []string
	for matcher := range r.actions[ns] {
		out = append(out, matcher)
	}
	for matcher := range r.signers[ns] {
		out = append(out, matcher)
	}
	return out
}

// SplitActionType splits "namespace::matcher" into its parts.
func SplitActionType(actionType string) (string, string, error) {
	parts := strings.Split(actionType, "::")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid action type %q, expected \"namespace::action\"", actionType)
	}
	return parts[0], parts[1], nil
}
