package values

import "fmt"

// ValueStore holds the resolved inputs or outputs of one construct
// evaluation. Stores are written by exactly one goroutine during a
// construct's execution and become read-only once the executor publishes
// them; dependents only ever see a completed store.
type ValueStore struct {
	name    string
	keys    []string
	entries map[string]Value
}

// NewValueStore returns an empty store labeled with the owning construct's
// name for diagnostics.
func NewValueStore(name string) *ValueStore {
	return &ValueStore{name: name, entries: make(map[string]Value)}
}

// Name returns the store label.
func (s *ValueStore) Name() string { return s.name }

// Insert sets a key, preserving first-insertion order.
func (s *ValueStore) Insert(key string, val Value) {
	if _, ok := s.entries[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.entries[key] = val
}

// Get looks up a key.
func (s *ValueStore) Get(key string) (Value, bool) {
	v, ok := s.entries[key]
	return v, ok
}

// GetExpected looks up a key that must be present.
func (s *ValueStore) GetExpected(key string) (Value, error) {
	v, ok := s.entries[key]
	if !ok {
		return Null(), fmt.Errorf("store %q is missing expected value %q", s.name, key)
	}
	return v, nil
}

// GetString looks up a key that must hold a string.
func (s *ValueStore) GetString(key string) (string, error) {
	v, err := s.GetExpected(key)
	if err != nil {
		return "", err
	}
	str, ok := v.AsString()
	if !ok {
		return "", fmt.Errorf("store %q value %q is %s, expected string", s.name, key, v.Kind())
	}
	return str, nil
}

// Keys returns the insertion-ordered key list.
func (s *ValueStore) Keys() []string { return s.keys }

// Len returns the entry count.
func (s *ValueStore) Len() int { return len(s.keys) }

// Clone returns an independent copy. The executor clones a command's input
// store before handing it to addon code so the canonical store cannot be
// mutated mid-flight.
func (s *ValueStore) Clone() *ValueStore {
	c := NewValueStore(s.name)
	for _, k := range s.keys {
		c.Insert(k, s.entries[k])
	}
	return c
}
