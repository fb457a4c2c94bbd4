package extract

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// ValueKind tags the variant of a decoded argument value.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueBool
	ValueNumber
	ValueString
	ValueArray
	ValueObject
)

// Value is a decoded structured-data value: object, array, string, number,
// boolean or null. Values are decoded once into this fixed representation;
// no further type coercion happens downstream.
type Value struct {
	Kind ValueKind
	Bool bool
	Num  float64
	Str  string
	Arr  []Value
	Obj  map[string]Value
}

// NullValue returns the null value.
func NullValue() Value { return Value{Kind: ValueNull} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// NumberValue wraps a number. Numbers follow double-precision decimal
// semantics; there is no separate integer type.
func NumberValue(n float64) Value { return Value{Kind: ValueNumber, Num: n} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// ArrayValue wraps an array.
func ArrayValue(items []Value) Value { return Value{Kind: ValueArray, Arr: items} }

// ObjectValue wraps an object.
func ObjectValue(members map[string]Value) Value { return Value{Kind: ValueObject, Obj: members} }

// Interface converts the value into the plain Go shape used at the
// protocol boundary (map[string]any / []any / float64 / string / bool / nil).
func (v Value) Interface() any {
	switch v.Kind {
	case ValueBool:
		return v.Bool
	case ValueNumber:
		return v.Num
	case ValueString:
		return v.Str
	case ValueArray:
		out := make([]any, len(v.Arr))
		for i, item := range v.Arr {
			out[i] = item.Interface()
		}
		return out
	case ValueObject:
		out := make(map[string]any, len(v.Obj))
		for k, member := range v.Obj {
			out[k] = member.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes the value using the standard JSON grammar. Object
// keys are emitted in sorted order so output is deterministic.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueBool:
		return strconv.AppendBool(nil, v.Bool), nil
	case ValueNumber:
		return json.Marshal(v.Num)
	case ValueString:
		return json.Marshal(v.Str)
	case ValueArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.Arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case ValueObject:
		keys := make([]string, 0, len(v.Obj))
		for k := range v.Obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := v.Obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return []byte("null"), nil
	}
}
