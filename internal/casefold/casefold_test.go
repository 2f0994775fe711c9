package casefold

import (
	"errors"
	"strconv"
	"strings"
	"testing"
)

func TestGet_anyCasing(t *testing.T) {
	m := New(map[string]int{"MixEdCase": 42})
	for _, k := range []string{"MixEdCase", "mixedcase", "MIXEDCASE", "mixEdCase"} {
		v, err := m.Get(k)
		if err != nil || v != 42 {
			t.Errorf("Get(%q) = %d, %v", k, v, err)
		}
	}
	if _, err := m.Get("other"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get(missing) err = %v", err)
	}
}

func TestSet_lastCasingWins(t *testing.T) {
	var m Map[string]
	m.Set("Watchlist", "a")
	m.Set("watchList", "b")
	m.Set("Items", "c")
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
	keys := m.Keys()
	if len(keys) != 2 || keys[0] != "watchList" || keys[1] != "Items" {
		t.Errorf("Keys = %v", keys)
	}
	if v, _ := m.Get("WATCHLIST"); v != "b" {
		t.Errorf("value = %q, want b", v)
	}
	n := 0
	for range m.All() {
		n++
	}
	if n != 2 {
		t.Errorf("iteration count = %d, want 2", n)
	}
}

func TestDelete(t *testing.T) {
	m := New(map[string]int{"Hero": 1, "pointer": 2})
	if err := m.Delete("HERO"); err != nil {
		t.Fatal(err)
	}
	if m.Has("hero") || m.Len() != 1 {
		t.Errorf("hero not deleted: %v", m)
	}
	if err := m.Delete("hero"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("second Delete err = %v", err)
	}
	if keys := m.Keys(); len(keys) != 1 || keys[0] != "pointer" {
		t.Errorf("Keys after delete = %v", keys)
	}
}

func TestEqual(t *testing.T) {
	a := New(map[string]int{"Title": 1, "ID": 2})
	b := New(map[string]int{"title": 1, "id": 2})
	ok, err := a.Equal(b)
	if err != nil || !ok {
		t.Errorf("Equal(casefold) = %v, %v", ok, err)
	}
	ok, err = a.Equal(map[string]int{"TITLE": 1, "Id": 2})
	if err != nil || !ok {
		t.Errorf("Equal(plain map) = %v, %v", ok, err)
	}
	ok, _ = a.Equal(map[string]int{"title": 1})
	if ok {
		t.Error("different sizes compared equal")
	}
	ok, _ = a.Equal(map[string]int{"title": 1, "id": 3})
	if ok {
		t.Error("different values compared equal")
	}
	if _, err := a.Equal([]int{1, 2}); !errors.Is(err, ErrNotComparable) {
		t.Errorf("Equal(slice) err = %v", err)
	}
	if _, err := a.Equal("x"); !errors.Is(err, ErrNotComparable) {
		t.Errorf("Equal(string) err = %v", err)
	}
}

// ordered is an associative type from outside the package.
type ordered struct {
	keys []string
	vals map[string]int
}

func (o ordered) Keys() []string { return o.keys }

func (o ordered) Get(k string) (int, bool) {
	v, ok := o.vals[k]
	return v, ok
}

func TestEqual_associativeOperands(t *testing.T) {
	a := New(map[string]int{"Title": 1, "ID": 2})
	ok, err := a.Equal(map[string]any{"title": 1, "id": 2})
	if err != nil || !ok {
		t.Errorf("Equal(map[string]any) = %v, %v", ok, err)
	}
	ok, err = a.Equal(map[string]any{"title": "1", "id": 2})
	if err != nil || ok {
		t.Errorf("Equal(unconvertible value) = %v, %v", ok, err)
	}
	ok, err = a.Equal(ordered{keys: []string{"TITLE", "id"}, vals: map[string]int{"TITLE": 1, "id": 2}})
	if err != nil || !ok {
		t.Errorf("Equal(keyed) = %v, %v", ok, err)
	}
}

func TestEqual_customCompare(t *testing.T) {
	a := New(map[string]string{"Title": "Trigun"})
	a.SetCompare(Compare[string]{
		Equal: strings.EqualFold,
		Convert: func(v any) (string, bool) {
			n, ok := v.(int)
			return strconv.Itoa(n), ok
		},
	})
	if ok, _ := a.Equal(map[string]string{"title": "TRIGUN"}); !ok {
		t.Error("custom Equal not used")
	}
	b := New(map[string]string{"n": "7"})
	b.SetCompare(a.cmp)
	if ok, err := b.Equal(map[string]any{"N": 7}); err != nil || !ok {
		t.Errorf("Convert not used: %v, %v", ok, err)
	}
}

func TestCopy_independent(t *testing.T) {
	a := New(map[string]int{"A": 1})
	b := a.Copy()
	b.Set("a", 5)
	b.Set("B", 2)
	if v, _ := a.Get("A"); v != 1 {
		t.Errorf("original mutated: %d", v)
	}
	if a.Len() != 1 || b.Len() != 2 {
		t.Errorf("lens = %d, %d", a.Len(), b.Len())
	}
	if keys := b.Keys(); keys[0] != "a" {
		t.Errorf("copy casing = %v", keys)
	}
}
