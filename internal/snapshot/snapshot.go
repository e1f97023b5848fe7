// Package snapshot persists the outcome of a runbook run in a form another
// runbook can embed. A snapshot records each construct's content fingerprint
// and published outputs; on reuse, fingerprints decide whether the recorded
// outputs are still valid or the embedded runbook must re-execute.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/runbook"
	"github.com/vk/runbookgo/internal/values"
)

// OutputEntry is one published output, order preserved.
type OutputEntry struct {
	Key   string       `json:"key"`
	Value values.Value `json:"value"`
}

// ConstructSnapshot captures one construct's identity and outputs.
type ConstructSnapshot struct {
	Did     string        `json:"did"`
	Kind    string        `json:"kind"`
	Name    string        `json:"name"`
	Outputs []OutputEntry `json:"outputs,omitempty"`
}

// Snapshot is the embeddable record of one completed run.
type Snapshot struct {
	Name        string              `json:"name"`
	Fingerprint string              `json:"fingerprint"`
	Constructs  []ConstructSnapshot `json:"constructs"`
}

// Capture builds a snapshot from a resolved runbook and the outputs its
// execution published. Constructs appear in execution order so fingerprints
// are stable across identical runs.
func Capture(rb *runbook.Runbook, outputs map[did.ConstructDid]*values.ValueStore) *Snapshot {
	s := &Snapshot{Name: rb.Name}
	for _, constructDid := range rb.Graph.ExecutionOrder {
		c, ok := rb.Construct(constructDid)
		if !ok {
			continue
		}
		cs := ConstructSnapshot{
			Did:  c.Did.String(),
			Kind: c.Kind.String(),
			Name: c.Name,
		}
		if store, found := outputs[c.Did]; found {
			for _, key := range store.Keys() {
				val, _ := store.Get(key)
				cs.Outputs = append(cs.Outputs, OutputEntry{Key: key, Value: val})
			}
		}
		s.Constructs = append(s.Constructs, cs)
	}
	s.Fingerprint = s.fingerprint()
	return s
}

// fingerprint hashes the serialized construct list. The did of each
// construct already covers its source identity, so two snapshots match
// exactly when both sources and outputs match.
func (s *Snapshot) fingerprint() string {
	payload, err := json.Marshal(s.Constructs)
	if err != nil {
		return ""
	}
	return did.FromBytes(payload).String()
}

// Match reports whether the snapshot still describes the given runbook:
// every construct present, same did, same order. A match means the recorded
// outputs can be reused instead of re-executing.
func (s *Snapshot) Match(rb *runbook.Runbook) bool {
	return len(s.Changed(rb)) == 0
}

// Changed returns the names of constructs whose identity diverged from the
// snapshot, including constructs added or removed since it was taken.
func (s *Snapshot) Changed(rb *runbook.Runbook) []string {
	recorded := make(map[string]ConstructSnapshot, len(s.Constructs))
	for _, cs := range s.Constructs {
		recorded[cs.Did] = cs
	}

	var changed []string
	seen := make(map[string]bool)
	for _, constructDid := range rb.Graph.ExecutionOrder {
		c, ok := rb.Construct(constructDid)
		if !ok {
			continue
		}
		id := c.Did.String()
		seen[id] = true
		if _, found := recorded[id]; !found {
			changed = append(changed, c.Name)
		}
	}
	for _, cs := range s.Constructs {
		if !seen[cs.Did] {
			changed = append(changed, cs.Name)
		}
	}
	return changed
}

// Outputs rebuilds the published value stores recorded in the snapshot.
func (s *Snapshot) Outputs() map[did.ConstructDid]*values.ValueStore {
	out := make(map[did.ConstructDid]*values.ValueStore, len(s.Constructs))
	for _, cs := range s.Constructs {
		if len(cs.Outputs) == 0 {
			continue
		}
		store := values.NewValueStore(cs.Name)
		for _, entry := range cs.Outputs {
			store.Insert(entry.Key, entry.Value)
		}
		out[did.NewConstructDid(did.FromHexString(cs.Did))] = store
	}
	return out
}

// Save writes the snapshot as indented JSON.
func (s *Snapshot) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	return nil
}

// Load reads a snapshot from disk and verifies its fingerprint.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	if got := s.fingerprint(); got != s.Fingerprint {
		return nil, fmt.Errorf("snapshot %s fingerprint mismatch: recorded %s, computed %s", path, s.Fingerprint, got)
	}
	return &s, nil
}
