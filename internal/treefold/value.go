// Package treefold folds a markup tree into a canonical value: a bare Scalar
// for leaf nodes, or an ordered Map from child name to value.
//
// Folding rules (applied bottom-up):
//   - a node with no attributes and no children becomes Scalar(trim(text))
//   - children are grouped by name in document order; every group is kept as
//     a sequence internally, and Get collapses single-member groups to a bare
//     value for callers that want the historical shape
//   - attributes are stored under AttrPrefix+name
//   - non-empty text on a node that became a Map is stored under TextKey
package treefold

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// AttrPrefix namespaces attribute-derived keys.
	AttrPrefix = "@"
	// TextKey holds text content co-located with attributes or children.
	TextKey = "#text"
)

var (
	// ErrCardinality is returned by One when a group does not have exactly one member.
	ErrCardinality = errors.New("treefold: unexpected cardinality")
	// ErrShape is returned when a value is not the kind the caller asked for.
	ErrShape = errors.New("treefold: unexpected value shape")
	// ErrMissing is returned when a key is absent.
	ErrMissing = errors.New("treefold: missing key")
)

// Value is one of Scalar, *Map or List.
type Value interface {
	isValue()
}

// Scalar is a trimmed text leaf.
type Scalar string

// List is the collapsed shape of a name-group with two or more members.
type List []Value

func (Scalar) isValue() {}
func (List) isValue()   {}
func (*Map) isValue()   {}

// Map is an ordered set of name-groups. Keys keep first-insertion order.
type Map struct {
	keys   []string
	groups map[string][]Value
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{groups: make(map[string][]Value)}
}

// Add appends v to the group named key.
func (m *Map) Add(key string, v Value) {
	if m.groups == nil {
		m.groups = make(map[string][]Value)
	}
	if _, ok := m.groups[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.groups[key] = append(m.groups[key], v)
}

// Set replaces the group named key with the single value v.
func (m *Map) Set(key string, v Value) {
	if m.groups == nil {
		m.groups = make(map[string][]Value)
	}
	if _, ok := m.groups[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.groups[key] = []Value{v}
}

// Len is the number of distinct keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.groups[key]
	return ok
}

// All returns every member of the group named key, in document order.
func (m *Map) All(key string) []Value {
	if m == nil {
		return nil
	}
	return m.groups[key]
}

// Get returns the collapsed shape of a group: the bare value when it has one
// member, a List when it has more.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	g, ok := m.groups[key]
	if !ok {
		return nil, false
	}
	return collapse(g), true
}

// One returns the only member of the group named key. Absent keys report
// ErrMissing; groups with several members report ErrCardinality.
func (m *Map) One(key string) (Value, error) {
	g := m.All(key)
	switch len(g) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrMissing, key)
	case 1:
		return g[0], nil
	default:
		return nil, fmt.Errorf("%w: %q has %d members", ErrCardinality, key, len(g))
	}
}

// First returns the first member of the group named key.
func (m *Map) First(key string) (Value, error) {
	g := m.All(key)
	if len(g) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissing, key)
	}
	return g[0], nil
}

// Child returns the single Map under key.
func (m *Map) Child(key string) (*Map, error) {
	v, err := m.One(key)
	if err != nil {
		return nil, err
	}
	c, ok := v.(*Map)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %s, want map", ErrShape, key, kind(v))
	}
	return c, nil
}

// Children returns every Map in the group named key. Scalar members (which
// the service emits for empty elements) are skipped.
func (m *Map) Children(key string) []*Map {
	var out []*Map
	for _, v := range m.All(key) {
		if c, ok := v.(*Map); ok {
			out = append(out, c)
		}
	}
	return out
}

// Path walks nested single-member groups.
func (m *Map) Path(keys ...string) (*Map, error) {
	cur := m
	for i, k := range keys {
		next, err := cur.Child(k)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", strings.Join(keys[:i+1], "."), err)
		}
		cur = next
	}
	return cur, nil
}

// Text returns the text of the single member under key. A Map member yields
// its TextKey entry (empty when it has none).
func (m *Map) Text(key string) (string, error) {
	v, err := m.One(key)
	if err != nil {
		return "", err
	}
	return TextOf(v)
}

// TextOr returns Text(key), or def when the key is absent or not textual.
func (m *Map) TextOr(key, def string) string {
	s, err := m.Text(key)
	if err != nil {
		return def
	}
	return s
}

// Attr returns the attribute value for name.
func (m *Map) Attr(name string) (string, bool) {
	s, err := m.Text(AttrPrefix + name)
	if err != nil {
		return "", false
	}
	return s, true
}

// TextOf returns a Scalar's string, or a Map's TextKey entry.
func TextOf(v Value) (string, error) {
	switch t := v.(type) {
	case Scalar:
		return string(t), nil
	case *Map:
		return t.TextOr(TextKey, ""), nil
	default:
		return "", fmt.Errorf("%w: %s has no text", ErrShape, kind(v))
	}
}

// Members returns v as a sequence: a List's elements, or v alone.
func Members(v Value) []Value {
	switch t := v.(type) {
	case nil:
		return nil
	case List:
		return t
	default:
		return []Value{t}
	}
}

// Interface converts v into plain Go values (string, []any, map[string]any)
// using the collapsed shape. Useful for comparisons and JSON output.
func Interface(v Value) any {
	switch t := v.(type) {
	case Scalar:
		return string(t)
	case List:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Interface(e)
		}
		return out
	case *Map:
		out := make(map[string]any, t.Len())
		for _, k := range t.keys {
			out[k] = Interface(collapse(t.groups[k]))
		}
		return out
	default:
		return nil
	}
}

// FromInterface is the inverse of Interface: strings become Scalars,
// []any a List and map[string]any a Map. Numbers and booleans are formatted
// as their text. It reports false for anything else.
func FromInterface(v any) (Value, bool) {
	switch t := v.(type) {
	case Value:
		return t, true
	case string:
		return Scalar(t), true
	case int, int64, float64, bool:
		return Scalar(fmt.Sprint(t)), true
	case []any:
		out := make(List, len(t))
		for i, e := range t {
			ev, ok := FromInterface(e)
			if !ok {
				return nil, false
			}
			out[i] = ev
		}
		return out, true
	case map[string]any:
		m := NewMap()
		for k, e := range t {
			ev, ok := FromInterface(e)
			if !ok {
				return nil, false
			}
			m.Set(k, ev)
		}
		return m, true
	default:
		return nil, false
	}
}

// Equal reports whether a and b have the same collapsed shape and content.
// Map key order is not significant.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Scalar:
		y, ok := b.(Scalar)
		return ok && x == y
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Map:
		y, ok := b.(*Map)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			xv, _ := x.Get(k)
			yv, ok := y.Get(k)
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}

func collapse(g []Value) Value {
	if len(g) == 1 {
		return g[0]
	}
	out := make(List, len(g))
	copy(out, g)
	return out
}

func kind(v Value) string {
	switch v.(type) {
	case Scalar:
		return "scalar"
	case List:
		return "list"
	case *Map:
		return "map"
	default:
		return "nil"
	}
}
