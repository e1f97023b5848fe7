package values

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
)

// Buffers and addon payloads have no native cty representation, so they ride
// through expressions as capsule values and convert back losslessly.
var (
	bufferCapsule = cty.Capsule("buffer", reflect.TypeOf([]byte(nil)))
	addonCapsule  = cty.Capsule("addon", reflect.TypeOf(AddonData{}))
)

// ToCty converts a Value into the cty value used inside hcl.EvalContext
// variable scopes.
func (v Value) ToCty() cty.Value {
	switch v.kind {
	case KindNull:
		return cty.NullVal(cty.DynamicPseudoType)
	case KindBool:
		return cty.BoolVal(v.boolVal)
	case KindInteger:
		return cty.NumberIntVal(v.intVal)
	case KindFloat:
		return cty.NumberFloatVal(v.floatVal)
	case KindString:
		return cty.StringVal(v.strVal)
	case KindBuffer:
		buf := v.bufVal
		return cty.CapsuleVal(bufferCapsule, &buf)
	case KindArray:
		if len(v.arrVal) == 0 {
			return cty.EmptyTupleVal
		}
		elems := make([]cty.Value, len(v.arrVal))
		for i, el := range v.arrVal {
			elems[i] = el.ToCty()
		}
		return cty.TupleVal(elems)
	case KindObject:
		if v.objVal.Len() == 0 {
			return cty.EmptyObjectVal
		}
		attrs := make(map[string]cty.Value, v.objVal.Len())
		for _, k := range v.objVal.Keys() {
			entry, _ := v.objVal.Get(k)
			attrs[k] = entry.ToCty()
		}
		return cty.ObjectVal(attrs)
	case KindAddon:
		data := v.addonVal
		return cty.CapsuleVal(addonCapsule, &data)
	default:
		return cty.NilVal
	}
}

// FromCty converts an evaluated cty value back into the engine's value
// model. Whole numbers become integers, everything else with a fractional
// part becomes a float.
func FromCty(val cty.Value) (Value, error) {
	if val == cty.NilVal || val.IsNull() {
		return Null(), nil
	}
	if !val.IsKnown() {
		return Null(), fmt.Errorf("cannot convert unknown value")
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return String(val.AsString()), nil
	case ty == cty.Bool:
		return Bool(val.True()), nil
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int64()
			return Integer(i), nil
		}
		f, _ := bf.Float64()
		return Float(f), nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		var elems []Value
		for it := val.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			converted, err := FromCty(ev)
			if err != nil {
				return Null(), err
			}
			elems = append(elems, converted)
		}
		return Array(elems...), nil
	case ty.IsObjectType() || ty.IsMapType():
		m := NewObjectMap()
		for it := val.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			converted, err := FromCty(ev)
			if err != nil {
				return Null(), err
			}
			m.Set(k.AsString(), converted)
		}
		return Object(m), nil
	case ty.IsCapsuleType():
		switch {
		case ty.Equals(bufferCapsule):
			buf := val.EncapsulatedValue().(*[]byte)
			return Buffer(*buf), nil
		case ty.Equals(addonCapsule):
			data := val.EncapsulatedValue().(*AddonData)
			return Addon(data.Bytes, data.ID), nil
		}
		return Null(), fmt.Errorf("unsupported capsule type %s", ty.FriendlyName())
	default:
		return Null(), fmt.Errorf("unsupported cty type for conversion: %s", ty.FriendlyName())
	}
}
