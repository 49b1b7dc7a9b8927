package inertiavalue

import (
	"iter"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Map is an insertion-ordered string-keyed mapping of Values.
//
// Setting an existing key keeps its original position. A nil *Map behaves as
// an empty, read-only mapping.
type Map struct {
	vals map[string]Value
	keys []string
}

// NewMap creates an empty Map.
func NewMap() *Map {
	return &Map{vals: make(map[string]Value), keys: nil}
}

// MapFrom converts a Go map into a Map. Keys are inserted in sorted order
// since Go maps carry no order of their own.
func MapFrom(src map[string]any) (*Map, error) {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	m := NewMap()

	for _, k := range keys {
		v, err := FromAny(src[k])
		if err != nil {
			return nil, err
		}

		m.Set(k, v)
	}

	return m, nil
}

// Len returns the number of keys in m.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}

	return len(m.keys)
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}

	v, ok := m.vals[key]

	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores v under key, appending the key if it is new.
func (m *Map) Set(key string, v Value) {
	if m.vals == nil {
		m.vals = make(map[string]Value)
	}

	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}

	m.vals[key] = v
}

// Delete removes key from m.
func (m *Map) Delete(key string) {
	if m == nil {
		return
	}

	if _, ok := m.vals[key]; !ok {
		return
	}

	delete(m.vals, key)

	if i := slices.Index(m.keys, key); i >= 0 {
		m.keys = slices.Delete(m.keys, i, i+1)
	}
}

// Keys returns the keys of m in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}

	return slices.Clone(m.keys)
}

// All iterates over m in insertion order.
func (m *Map) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if m == nil {
			return
		}

		for _, k := range m.keys {
			if !yield(k, m.vals[k]) {
				return
			}
		}
	}
}

// Clone returns a deep copy of m. Cloning a nil Map yields an empty Map.
func (m *Map) Clone() *Map {
	out := NewMap()
	if m == nil {
		return out
	}

	out.keys = make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		out.Set(k, m.vals[k].Clone())
	}

	return out
}

// Any converts m into a map[string]any.
func (m *Map) Any() map[string]any {
	out := make(map[string]any, m.Len())
	for k, v := range m.All() {
		out[k] = v.Any()
	}

	return out
}

// Lookup resolves a dotted path such as "user.addresses.0.city".
// Numeric segments index into sequences.
func (m *Map) Lookup(path string) (Value, bool) {
	if path == "" {
		return Value{}, false
	}

	segments := strings.Split(path, ".")

	cur, ok := m.Get(segments[0])
	if !ok {
		return Value{}, false
	}

	for _, seg := range segments[1:] {
		cur, ok = child(cur, seg)
		if !ok {
			return Value{}, false
		}
	}

	return cur, true
}

// SetPath stores v at a dotted path, creating intermediate mappings as
// needed. Numeric segments replace existing sequence items in range;
// any other intermediate value is replaced by a mapping.
func (m *Map) SetPath(path string, v Value) {
	segments := strings.Split(path, ".")
	if len(segments) == 1 {
		m.Set(path, v)
		return
	}

	head := segments[0]
	cur, _ := m.Get(head)
	m.Set(head, setChild(cur, segments[1:], v))
}

func setChild(cur Value, segments []string, v Value) Value {
	if len(segments) == 0 {
		return v
	}

	seg := segments[0]

	if cur.kind == KindSequence {
		if i, err := strconv.Atoi(seg); err == nil && i >= 0 && i < len(cur.seq) {
			items := slices.Clone(cur.seq)
			items[i] = setChild(items[i], segments[1:], v)

			return Sequence(items...)
		}
	}

	next := cur.Map()
	if next == nil {
		next = NewMap()
	}

	existing, _ := next.Get(seg)
	next.Set(seg, setChild(existing, segments[1:], v))

	return Mapping(next)
}

func child(v Value, seg string) (Value, bool) {
	switch v.kind {
	case KindMapping:
		return v.m.Get(seg)
	case KindSequence:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(v.seq) {
			return Value{}, false
		}

		return v.seq[i], true
	default:
		return Value{}, false
	}
}
