// Package inertiavalue implements a tagged JSON value used to hold page props.
//
// Page props are arbitrarily nested and schema-less, so the client keeps them
// as Values rather than map[string]any. A Value is one of Null, Bool, Number,
// String, Sequence or Mapping. Mappings preserve key insertion order, which
// keeps merged props stable across re-encoding.
package inertiavalue

import (
	"fmt"
	"math"
	"reflect"

	"github.com/go-json-experiment/json"
	"go.inout.gg/foundations/must"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a tagged JSON value. The zero Value is Null.
type Value struct {
	m    *Map
	s    string
	seq  []Value
	n    float64
	kind Kind
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Int returns a numeric value from an integer.
func Int(i int) Value { return Number(float64(i)) }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Sequence returns a sequence holding items. The slice is not copied.
func Sequence(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}

	return Value{kind: KindSequence, seq: items}
}

// Mapping wraps m into a Value. A nil m is treated as an empty mapping.
func Mapping(m *Map) Value {
	if m == nil {
		m = NewMap()
	}

	return Value{kind: KindMapping, m: m}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) IsZero() bool { return v.kind == KindNull }
func (v Value) Bool() bool   { return v.kind == KindBool && v.b }

// Float returns the number held by v, or 0 if v is not a number.
func (v Value) Float() float64 {
	if v.kind != KindNumber {
		return 0
	}

	return v.n
}

// Str returns the string held by v, or "" if v is not a string.
func (v Value) Str() string {
	if v.kind != KindString {
		return ""
	}

	return v.s
}

// Items returns the sequence items, or nil if v is not a sequence.
func (v Value) Items() []Value {
	if v.kind != KindSequence {
		return nil
	}

	return v.seq
}

// Map returns the mapping held by v, or nil if v is not a mapping.
func (v Value) Map() *Map {
	if v.kind != KindMapping {
		return nil
	}

	return v.m
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindSequence:
		items := make([]Value, len(v.seq))
		for i, item := range v.seq {
			items[i] = item.Clone()
		}

		return Sequence(items...)
	case KindMapping:
		return Mapping(v.m.Clone())
	default:
		return v
	}
}

// Any converts v into plain Go values: nil, bool, float64, string,
// []any and map[string]any.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Any()
		}

		return out
	case KindMapping:
		return v.m.Any()
	default:
		return nil
	}
}

// Equal reports whether a and b are deeply equal. Mapping key order is
// not significant.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}

	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindString:
		return a.s == b.s
	case KindSequence:
		if len(a.seq) != len(b.seq) {
			return false
		}

		for i := range a.seq {
			if !Equal(a.seq[i], b.seq[i]) {
				return false
			}
		}

		return true
	case KindMapping:
		if a.m.Len() != b.m.Len() {
			return false
		}

		for k, av := range a.m.All() {
			bv, ok := b.m.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}

		return true
	}

	return false
}

// FromAny converts a Go value into a Value.
//
// Common shapes (nil, bool, numbers, string, []any, map[string]any, Value,
// *Map) are converted directly. Anything else is round-tripped through JSON.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Map:
		return Mapping(t), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case []Value:
		return Sequence(t...), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}

			items[i] = v
		}

		return Sequence(items...), nil
	case map[string]any:
		m, err := MapFrom(t)
		if err != nil {
			return Value{}, err
		}

		return Mapping(m), nil
	}

	if rv := reflect.ValueOf(x); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return Null(), nil
	}

	b, err := json.Marshal(x)
	if err != nil {
		return Value{}, fmt.Errorf("inertiavalue: failed to encode %T: %w", x, err)
	}

	return Parse(b)
}

// MustFromAny is like FromAny, but panics if an error occurs.
func MustFromAny(x any) Value {
	return must.Must(FromAny(x))
}

// identity returns a comparable identity for scalar values. Sequences and
// mappings have no identity; ok is false for them.
func (v Value) identity() (id Identity, ok bool) {
	switch v.kind {
	case KindNull, KindBool, KindString:
		return Identity{kind: v.kind, b: v.b, s: v.s}, true
	case KindNumber:
		n := v.n
		if n == 0 {
			n = 0 // -0 and +0 are the same key
		}

		if math.IsNaN(n) {
			return Identity{kind: v.kind, nan: true}, true
		}

		return Identity{kind: v.kind, n: n}, true
	default:
		return Identity{}, false
	}
}

// Identity is a comparable key derived from a scalar Value.
type Identity struct {
	s    string
	n    float64
	kind Kind
	b    bool
	nan  bool
}

// IdentityOf returns the identity of v. It reports false for sequences and
// mappings, which never compare equal to one another.
func IdentityOf(v Value) (Identity, bool) { return v.identity() }
