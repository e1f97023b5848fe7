package values

import "fmt"

// TypeKind discriminates the Type union.
type TypeKind int

const (
	TypeNull TypeKind = iota
	TypeBool
	TypeInteger
	TypeFloat
	TypeString
	TypeBuffer
	TypeArray
	TypeObject
	TypeAddon
	TypeAny
)

// Type describes the declared shape of a command or function input/output.
// It mirrors Value's kinds; Array carries an element type and Addon carries
// the namespaced type id.
type Type struct {
	kind    TypeKind
	elem    *Type
	addonID string
}

func NullType() Type    { return Type{kind: TypeNull} }
func BoolType() Type    { return Type{kind: TypeBool} }
func IntegerType() Type { return Type{kind: TypeInteger} }
func FloatType() Type   { return Type{kind: TypeFloat} }
func StringType() Type  { return Type{kind: TypeString} }
func BufferType() Type  { return Type{kind: TypeBuffer} }
func ObjectType() Type  { return Type{kind: TypeObject} }

// AnyType places no constraint on the value. Used by the built-in
// pass-through constructs whose `value` carries whatever the expression
// evaluated to.
func AnyType() Type { return Type{kind: TypeAny} }

// ArrayType describes an array of elem.
func ArrayType(elem Type) Type { return Type{kind: TypeArray, elem: &elem} }

// AddonType describes an addon-opaque value tagged with id.
func AddonType(id string) Type { return Type{kind: TypeAddon, addonID: id} }

// Kind returns the union discriminant.
func (t Type) Kind() TypeKind { return t.kind }

// AddonID returns the namespaced addon type id, empty for non-addon types.
func (t Type) AddonID() string { return t.addonID }

// Elem returns the array element type, NullType for non-arrays.
func (t Type) Elem() Type {
	if t.elem != nil {
		return *t.elem
	}
	return NullType()
}

// Check reports whether a value satisfies the declared type. Addon-to-addon
// checks are permissive regardless of type id: the payload is opaque to the
// core, so only the concrete addon can judge it. Null satisfies everything
// (optional inputs are modeled as nullable).
func (t Type) Check(v Value) bool {
	if v.IsNull() {
		return true
	}
	switch t.kind {
	case TypeAny:
		return true
	case TypeNull:
		return v.Kind() == KindNull
	case TypeBool:
		return v.Kind() == KindBool
	case TypeInteger:
		return v.Kind() == KindInteger
	case TypeFloat:
		return v.Kind() == KindFloat || v.Kind() == KindInteger
	case TypeString:
		return v.Kind() == KindString
	case TypeBuffer:
		return v.Kind() == KindBuffer || v.Kind() == KindAddon
	case TypeArray:
		arr, ok := v.AsArray()
		if !ok {
			return false
		}
		for _, el := range arr {
			if !t.Elem().Check(el) {
				return false
			}
		}
		return true
	case TypeObject:
		return v.Kind() == KindObject
	case TypeAddon:
		return v.Kind() == KindAddon || v.Kind() == KindBuffer
	default:
		return false
	}
}

// String renders the type for diagnostics.
func (t Type) String() string {
	switch t.kind {
	case TypeAny:
		return "any"
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBuffer:
		return "buffer"
	case TypeArray:
		return fmt.Sprintf("array[%s]", t.Elem())
	case TypeObject:
		return "object"
	case TypeAddon:
		return fmt.Sprintf("addon(%s)", t.addonID)
	default:
		return "unknown"
	}
}
