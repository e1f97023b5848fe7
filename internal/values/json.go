package values

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// jsonEnvelope is the tagged wire shape: {"type": "<kind>", "value": ...}.
type jsonEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type jsonAddon struct {
	ID    string `json:"id"`
	Bytes string `json:"bytes"`
}

// MarshalJSON encodes the value as a kind-tagged envelope. Buffers and addon
// bytes render as 0x-prefixed hex so binary payloads survive text transport.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.kind {
	case KindNull:
		payload = nil
	case KindBool:
		payload = v.boolVal
	case KindInteger:
		payload = v.intVal
	case KindFloat:
		payload = v.floatVal
	case KindString:
		payload = v.strVal
	case KindBuffer:
		payload = "0x" + hex.EncodeToString(v.bufVal)
	case KindArray:
		payload = v.arrVal
	case KindObject:
		ordered := make([]map[string]json.RawMessage, 0, v.objVal.Len())
		for _, k := range v.objVal.Keys() {
			entry, _ := v.objVal.Get(k)
			raw, err := json.Marshal(entry)
			if err != nil {
				return nil, err
			}
			ordered = append(ordered, map[string]json.RawMessage{k: raw})
		}
		payload = ordered
	case KindAddon:
		payload = jsonAddon{ID: v.addonVal.ID, Bytes: "0x" + hex.EncodeToString(v.addonVal.Bytes)}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}{Type: v.kind.String(), Value: raw})
}

// UnmarshalJSON decodes a kind-tagged envelope produced by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	switch env.Type {
	case "null":
		*v = Null()
	case "bool":
		var b bool
		if err := json.Unmarshal(env.Value, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case "integer":
		var i int64
		if err := json.Unmarshal(env.Value, &i); err != nil {
			return err
		}
		*v = Integer(i)
	case "float":
		var f float64
		if err := json.Unmarshal(env.Value, &f); err != nil {
			return err
		}
		*v = Float(f)
	case "string":
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return err
		}
		*v = String(s)
	case "buffer":
		b, err := decodeHexPayload(env.Value)
		if err != nil {
			return err
		}
		*v = Buffer(b)
	case "array":
		var elems []Value
		if err := json.Unmarshal(env.Value, &elems); err != nil {
			return err
		}
		*v = Array(elems...)
	case "object":
		var ordered []map[string]Value
		if err := json.Unmarshal(env.Value, &ordered); err != nil {
			return err
		}
		m := NewObjectMap()
		for _, entry := range ordered {
			for k, ev := range entry {
				m.Set(k, ev)
			}
		}
		*v = Object(m)
	case "addon":
		var a jsonAddon
		if err := json.Unmarshal(env.Value, &a); err != nil {
			return err
		}
		b, err := hex.DecodeString(strings.TrimPrefix(a.Bytes, "0x"))
		if err != nil {
			return err
		}
		*v = Addon(b, a.ID)
	default:
		return fmt.Errorf("unknown value kind %q", env.Type)
	}
	return nil
}

func decodeHexPayload(raw json.RawMessage) ([]byte, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
