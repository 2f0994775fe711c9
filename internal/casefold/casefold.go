// Package casefold provides a map keyed by strings with case-insensitive
// identity. The remote service is inconsistent about key casing across
// endpoints, so decoded top-level responses are wrapped in a Map.
package casefold

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
	"strings"
)

var (
	ErrKeyNotFound   = errors.New("casefold: key not found")
	ErrNotComparable = errors.New("casefold: value is not associative")
)

type entry[V any] struct {
	key   string // last-written casing
	value V
}

// Map is a case-insensitive associative container. Iteration yields each
// logical key once, in its most recently written casing, in first-insertion
// order. The zero value is ready to use. Not safe for concurrent mutation.
type Map[V any] struct {
	order []string // folded keys
	store map[string]entry[V]
	cmp   Compare[V]
}

// Compare customises how Equal treats values of type V.
type Compare[V any] struct {
	// Equal compares two values. nil means reflect.DeepEqual.
	Equal func(a, b V) bool
	// Convert turns a foreign value, such as an element of a map[string]any
	// operand, into a V. nil accepts only values that already are a V.
	Convert func(v any) (V, bool)
}

// SetCompare installs the value comparison used by Equal.
func (m *Map[V]) SetCompare(c Compare[V]) { m.cmp = c }

// New returns a Map holding the entries of src.
func New[V any](src map[string]V) *Map[V] {
	m := &Map[V]{}
	for k, v := range src {
		m.Set(k, v)
	}
	return m
}

func fold(k string) string { return strings.ToLower(k) }

// Set stores v under key, replacing both the value and the casing of any
// entry that differs only by case.
func (m *Map[V]) Set(key string, v V) {
	if m.store == nil {
		m.store = make(map[string]entry[V])
	}
	f := fold(key)
	if _, ok := m.store[f]; !ok {
		m.order = append(m.order, f)
	}
	m.store[f] = entry[V]{key: key, value: v}
}

// Get returns the value for key, ignoring case.
func (m *Map[V]) Get(key string) (V, error) {
	e, ok := m.store[fold(key)]
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return e.value, nil
}

// Lookup is Get in comma-ok form.
func (m *Map[V]) Lookup(key string) (V, bool) {
	e, ok := m.store[fold(key)]
	return e.value, ok
}

// Has reports whether key is present, ignoring case.
func (m *Map[V]) Has(key string) bool {
	_, ok := m.store[fold(key)]
	return ok
}

// Delete removes key, ignoring case.
func (m *Map[V]) Delete(key string) error {
	f := fold(key)
	if _, ok := m.store[f]; !ok {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	delete(m.store, f)
	for i, k := range m.order {
		if k == f {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len is the number of distinct folded keys.
func (m *Map[V]) Len() int { return len(m.store) }

// All yields (original-cased key, value) pairs.
func (m *Map[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, f := range m.order {
			e := m.store[f]
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

// Keys returns the keys in their stored casing.
func (m *Map[V]) Keys() []string {
	out := make([]string, 0, len(m.order))
	for k := range m.All() {
		out = append(out, k)
	}
	return out
}

// Copy returns an independent Map with the same entries. Values are copied
// shallowly.
func (m *Map[V]) Copy() *Map[V] {
	c := &Map[V]{
		order: make([]string, len(m.order)),
		store: make(map[string]entry[V], len(m.store)),
		cmp:   m.cmp,
	}
	copy(c.order, m.order)
	for k, e := range m.store {
		c.store[k] = e
	}
	return c
}

// Equal compares case-folded contents. Values are compared with the Compare
// set on m, or reflect.DeepEqual. other may be a *Map[V], Map[V],
// map[string]V, map[string]any, or any type with Keys() []string and
// Get(string) (V, bool); anything else reports ErrNotComparable.
func (m *Map[V]) Equal(other any) (bool, error) {
	eq := m.cmp.Equal
	if eq == nil {
		eq = func(a, b V) bool { return reflect.DeepEqual(a, b) }
	}
	return m.EqualFunc(other, eq)
}

// keyed is an ordered associative container from another package.
type keyed[V any] interface {
	Keys() []string
	Get(key string) (V, bool)
}

// EqualFunc is Equal with a caller-supplied value comparison.
func (m *Map[V]) EqualFunc(other any, eq func(a, b V) bool) (bool, error) {
	var o *Map[V]
	switch t := other.(type) {
	case *Map[V]:
		o = t
	case Map[V]:
		o = &t
	case map[string]V:
		o = New(t)
	case map[string]any:
		o = &Map[V]{}
		for k, v := range t {
			cv, ok := m.convert(v)
			if !ok {
				return false, nil
			}
			o.Set(k, cv)
		}
	case keyed[V]:
		if rv := reflect.ValueOf(t); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return false, fmt.Errorf("%w: nil map", ErrNotComparable)
		}
		o = &Map[V]{}
		for _, k := range t.Keys() {
			v, _ := t.Get(k)
			o.Set(k, v)
		}
	default:
		return false, fmt.Errorf("%w: %T", ErrNotComparable, other)
	}
	if o == nil {
		return false, fmt.Errorf("%w: nil map", ErrNotComparable)
	}
	if m.Len() != o.Len() {
		return false, nil
	}
	for f, e := range m.store {
		oe, ok := o.store[f]
		if !ok || !eq(e.value, oe.value) {
			return false, nil
		}
	}
	return true, nil
}

func (m *Map[V]) convert(v any) (V, bool) {
	if cv, ok := v.(V); ok {
		return cv, true
	}
	if m.cmp.Convert != nil {
		return m.cmp.Convert(v)
	}
	var zero V
	return zero, false
}

// String renders the map for debugging.
func (m *Map[V]) String() string {
	var b strings.Builder
	b.WriteString("casefold.Map{")
	i := 0
	for k, v := range m.All() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: %v", k, v)
		i++
	}
	b.WriteString("}")
	return b.String()
}
