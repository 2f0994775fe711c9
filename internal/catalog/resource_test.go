package catalog

import (
	"errors"
	"testing"

	"github.com/snapetech/funimationlater/internal/casefold"
	"github.com/snapetech/funimationlater/internal/treefold"
)

func TestWrapEqual(t *testing.T) {
	a := Wrap(decode(t, `<r><x><p>1</p><q>2</q></x></r>`))
	reordered := decode(t, `<R><x><q>2</q><p>1</p></x></R>`)

	tests := []struct {
		name  string
		other any
		want  bool
	}{
		{"reordered children", Wrap(reordered), true},
		{"tree map", reordered, true},
		{"plain map", treefold.Interface(reordered), true},
		{"plain map with number", map[string]any{"r": map[string]any{"x": map[string]any{"p": 1, "q": "2"}}}, true},
		{"different leaf", Wrap(decode(t, `<r><x><p>1</p><q>3</q></x></r>`)), false},
		{"different shape", map[string]any{"r": 1}, false},
		{"extra key", map[string]any{"r": "", "s": ""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Equal(tt.other)
			if err != nil {
				t.Fatalf("Equal: %v", err)
			}
			if got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}

	for _, other := range []any{[]int{1}, "r", 3, (*treefold.Map)(nil)} {
		if _, err := a.Equal(other); !errors.Is(err, casefold.ErrNotComparable) {
			t.Errorf("Equal(%T) err = %v, want ErrNotComparable", other, err)
		}
	}

	if ok, _ := a.Copy().Equal(Wrap(reordered)); !ok {
		t.Error("Copy lost the tree comparison")
	}
}
