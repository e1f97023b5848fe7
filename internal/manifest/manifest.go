// Package manifest reads the workspace manifest (runbooks.yml): the list of
// runbooks a workspace ships and the named environments whose key/value
// pairs become top-level inputs.
package manifest

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is where a workspace keeps its manifest.
const DefaultFileName = "runbooks.yml"

// RunbookRef is one manifest entry pointing at a runbook's sources.
type RunbookRef struct {
	Name        string `yaml:"name"`
	Location    string `yaml:"location"`
	Description string `yaml:"description,omitempty"`
}

// Manifest is the parsed workspace manifest.
type Manifest struct {
	Name         string                       `yaml:"name"`
	ID           string                       `yaml:"id"`
	Runbooks     []RunbookRef                 `yaml:"runbooks"`
	Environments map[string]map[string]string `yaml:"environments,omitempty"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("manifest %s is missing a name", path)
	}
	return &m, nil
}

// Runbook finds a manifest entry by name.
func (m *Manifest) Runbook(name string) (RunbookRef, bool) {
	for _, ref := range m.Runbooks {
		if ref.Name == name {
			return ref, true
		}
	}
	return RunbookRef{}, false
}

// Environment returns an environment's key/value pairs with keys sorted,
// so input registration order is deterministic.
func (m *Manifest) Environment(name string) (map[string]string, []string, error) {
	env, ok := m.Environments[name]
	if !ok {
		return nil, nil, fmt.Errorf("environment %q is not defined in the manifest", name)
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return env, keys, nil
}

// EnvironmentNames lists defined environments, sorted.
func (m *Manifest) EnvironmentNames() []string {
	names := make([]string, 0, len(m.Environments))
	for name := range m.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
