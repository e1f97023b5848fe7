// Package values implements the runtime value and type model shared by
// commands, signers, and functions. Value is a tagged union mirroring what
// runbook expressions can produce; Addon values carry opaque bytes plus a
// namespaced type id (e.g. "evm::address") so chain addons can stash binary
// payloads without the core understanding them.
package values

import (
	"bytes"
	"fmt"
	"math"
)

// Kind discriminates the Value union.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInteger
	KindFloat
	KindString
	KindBuffer
	KindArray
	KindObject
	KindAddon
)

// String returns the lowercase kind label used in JSON and diagnostics.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBuffer:
		return "buffer"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindAddon:
		return "addon"
	default:
		return "unknown"
	}
}

// AddonData is the payload of an addon-typed value.
type AddonData struct {
	Bytes []byte
	ID    string
}

// Value is the engine's runtime value. The zero value is Null.
type Value struct {
	kind     Kind
	boolVal  bool
	intVal   int64
	floatVal float64
	strVal   string
	bufVal   []byte
	arrVal   []Value
	objVal   *ObjectMap
	addonVal AddonData
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a bool.
func Bool(b bool) Value { return Value{kind: KindBool, boolVal: b} }

// Integer wraps an int64.
func Integer(i int64) Value { return Value{kind: KindInteger, intVal: i} }

// Float wraps a float64.
func Float(f float64) Value { return Value{kind: KindFloat, floatVal: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, strVal: s} }

// Buffer wraps raw bytes.
func Buffer(b []byte) Value { return Value{kind: KindBuffer, bufVal: b} }

// Array wraps a slice of values.
func Array(vals ...Value) Value { return Value{kind: KindArray, arrVal: vals} }

// Object wraps an ordered key/value map.
func Object(m *ObjectMap) Value {
	if m == nil {
		m = NewObjectMap()
	}
	return Value{kind: KindObject, objVal: m}
}

// Addon wraps opaque addon bytes tagged with a namespaced type id.
func Addon(b []byte, id string) Value {
	return Value{kind: KindAddon, addonVal: AddonData{Bytes: b, ID: id}}
}

// Kind returns the union discriminant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the bool payload, with ok=false on kind mismatch.
func (v Value) AsBool() (bool, bool) { return v.boolVal, v.kind == KindBool }

// AsInteger returns the integer payload, with ok=false on kind mismatch.
func (v Value) AsInteger() (int64, bool) { return v.intVal, v.kind == KindInteger }

// AsFloat returns the float payload. Integers convert losslessly.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.floatVal, true
	case KindInteger:
		return float64(v.intVal), true
	}
	return 0, false
}

// AsString returns the string payload, with ok=false on kind mismatch.
func (v Value) AsString() (string, bool) { return v.strVal, v.kind == KindString }

// AsBuffer returns the byte payload of a buffer or addon value.
func (v Value) AsBuffer() ([]byte, bool) {
	switch v.kind {
	case KindBuffer:
		return v.bufVal, true
	case KindAddon:
		return v.addonVal.Bytes, true
	}
	return nil, false
}

// AsArray returns the element slice, with ok=false on kind mismatch.
func (v Value) AsArray() ([]Value, bool) { return v.arrVal, v.kind == KindArray }

// AsObject returns the ordered map, with ok=false on kind mismatch.
func (v Value) AsObject() (*ObjectMap, bool) { return v.objVal, v.kind == KindObject }

// AsAddon returns the addon payload, with ok=false on kind mismatch.
func (v Value) AsAddon() (AddonData, bool) { return v.addonVal, v.kind == KindAddon }

// Type returns the type descriptor this value satisfies.
func (v Value) Type() Type {
	switch v.kind {
	case KindNull:
		return NullType()
	case KindBool:
		return BoolType()
	case KindInteger:
		return IntegerType()
	case KindFloat:
		return FloatType()
	case KindString:
		return StringType()
	case KindBuffer:
		return BufferType()
	case KindArray:
		if len(v.arrVal) > 0 {
			return ArrayType(v.arrVal[0].Type())
		}
		return ArrayType(NullType())
	case KindObject:
		return ObjectType()
	case KindAddon:
		return AddonType(v.addonVal.ID)
	default:
		return NullType()
	}
}

// Equals performs structural equality. Float/integer comparisons are strict
// on kind; addon values compare both type id and bytes.
func (v Value) Equals(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.boolVal == other.boolVal
	case KindInteger:
		return v.intVal == other.intVal
	case KindFloat:
		return v.floatVal == other.floatVal
	case KindString:
		return v.strVal == other.strVal
	case KindBuffer:
		return bytes.Equal(v.bufVal, other.bufVal)
	case KindArray:
		if len(v.arrVal) != len(other.arrVal) {
			return false
		}
		for i := range v.arrVal {
			if !v.arrVal[i].Equals(other.arrVal[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.objVal.Equals(other.objVal)
	case KindAddon:
		return v.addonVal.ID == other.addonVal.ID && bytes.Equal(v.addonVal.Bytes, other.addonVal.Bytes)
	default:
		return false
	}
}

// String renders the value for logs and diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.boolVal)
	case KindInteger:
		return fmt.Sprintf("%d", v.intVal)
	case KindFloat:
		if v.floatVal == math.Trunc(v.floatVal) {
			return fmt.Sprintf("%.1f", v.floatVal)
		}
		return fmt.Sprintf("%g", v.floatVal)
	case KindString:
		return v.strVal
	case KindBuffer:
		return fmt.Sprintf("0x%x", v.bufVal)
	case KindArray:
		return fmt.Sprintf("array[%d]", len(v.arrVal))
	case KindObject:
		return fmt.Sprintf("object{%d}", v.objVal.Len())
	case KindAddon:
		return fmt.Sprintf("%s(0x%x)", v.addonVal.ID, v.addonVal.Bytes)
	default:
		return "unknown"
	}
}

// ObjectMap is an insertion-ordered string-keyed map of values.
type ObjectMap struct {
	keys    []string
	entries map[string]Value
}

// NewObjectMap returns an empty ordered map.
func NewObjectMap() *ObjectMap {
	return &ObjectMap{entries: make(map[string]Value)}
}

// Set inserts or replaces a key, preserving first-insertion order. It
// returns the map for chaining.
func (m *ObjectMap) Set(key string, val Value) *ObjectMap {
	if _, ok := m.entries[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = val
	return m
}

// Get looks up a key.
func (m *ObjectMap) Get(key string) (Value, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Keys returns the insertion-ordered key list.
func (m *ObjectMap) Keys() []string { return m.keys }

// Len returns the entry count.
func (m *ObjectMap) Len() int { return len(m.keys) }

// Equals performs structural equality ignoring insertion order.
func (m *ObjectMap) Equals(other *ObjectMap) bool {
	if m == nil || other == nil {
		return m == other
	}
	if len(m.entries) != len(other.entries) {
		return false
	}
	for k, v := range m.entries {
		ov, ok := other.entries[k]
		if !ok || !v.Equals(ov) {
			return false
		}
	}
	return true
}
