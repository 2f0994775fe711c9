package treefold

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode_note(t *testing.T) {
	m, err := DecodeString(`<note><to foo="bar">Hi</to><from>Bar</from></note>`)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"note": map[string]any{
			"to":   map[string]any{"#text": "Hi", "@foo": "bar"},
			"from": "Bar",
		},
	}
	if diff := cmp.Diff(want, Interface(m)); diff != "" {
		t.Errorf("decode mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_whitespaceAndNesting(t *testing.T) {
	doc := `
	<note>
		<to foo="bar">Foo</to>
		<from>Bar</from>
		<heading>Foo Bar</heading>
		<body>Fooooo baarrrrr</body>
	</note>`
	m, err := DecodeString(doc)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"note": map[string]any{
		"body":    "Fooooo baarrrrr",
		"from":    "Bar",
		"heading": "Foo Bar",
		"to":      map[string]any{"#text": "Foo", "@foo": "bar"},
	}}
	if diff := cmp.Diff(want, Interface(m)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestFold_cardinality(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		key   string
		count int
	}{
		{"single", `<r><item>a</item></r>`, "item", 1},
		{"pair", `<r><item>a</item><item>b</item></r>`, "item", 2},
		{"interleaved", `<r><item>a</item><x/><item>b</item><item>c</item></r>`, "item", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeString(tt.doc)
			if err != nil {
				t.Fatal(err)
			}
			r, err := m.Child("r")
			if err != nil {
				t.Fatal(err)
			}
			if got := len(r.All(tt.key)); got != tt.count {
				t.Fatalf("All(%q) len = %d, want %d", tt.key, got, tt.count)
			}
			v, _ := r.Get(tt.key)
			if tt.count == 1 {
				if _, ok := v.(Scalar); !ok {
					t.Errorf("single member should be bare, got %T", v)
				}
				return
			}
			l, ok := v.(List)
			if !ok || len(l) != tt.count {
				t.Fatalf("Get(%q) = %#v, want List of %d", tt.key, v, tt.count)
			}
			if l[0] != Scalar("a") || l[1] != Scalar("b") {
				t.Errorf("order not preserved: %#v", l)
			}
			if _, err := r.One(tt.key); !errors.Is(err, ErrCardinality) {
				t.Errorf("One on %d members: err = %v, want ErrCardinality", tt.count, err)
			}
		})
	}
}

func TestFold_leafCollapse(t *testing.T) {
	tests := []struct {
		text string
		want Scalar
	}{
		{"", ""},
		{"  x  ", "x"},
		{"\n\tSeason 1\n", "Season 1"},
	}
	for _, tt := range tests {
		got := Fold(&Node{Name: "leaf", Text: tt.text})
		if got != tt.want {
			t.Errorf("Fold(%q) = %#v, want %#v", tt.text, got, tt.want)
		}
	}
}

func TestFold_attrOnlyHasNoText(t *testing.T) {
	m, err := DecodeString(`<r><thumb platforms="ios"/></r>`)
	if err != nil {
		t.Fatal(err)
	}
	thumb, err := m.Path("r", "thumb")
	if err != nil {
		t.Fatal(err)
	}
	if thumb.Has(TextKey) {
		t.Error("empty text should not produce #text")
	}
	if p, ok := thumb.Attr("platforms"); !ok || p != "ios" {
		t.Errorf("Attr(platforms) = %q, %v", p, ok)
	}
}

func TestDecode_deterministic(t *testing.T) {
	doc := `<a x="1"><b>1</b><b>2</b><c><d y="z">t</d></c></a>`
	m1, err := DecodeString(doc)
	if err != nil {
		t.Fatal(err)
	}
	m2, _ := DecodeString(doc)
	if !Equal(m1, m2) {
		t.Error("decoding twice produced different values")
	}
}

func TestDecode_malformed(t *testing.T) {
	for _, doc := range []string{`<a><b></a>`, `<a>`, `not markup`, `<a/><b/>`} {
		_, err := DecodeString(doc)
		if !errors.Is(err, ErrDecode) {
			t.Errorf("DecodeString(%q) err = %v, want ErrDecode", doc, err)
		}
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Errorf("DecodeString(%q) err is not *DecodeError", doc)
		}
	}
}

func TestDecodeBytes_emptyBody(t *testing.T) {
	m, err := DecodeBytes([]byte("  \n"))
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 0 {
		t.Errorf("empty body should decode to empty map, got %v", Interface(m))
	}
}

func TestParse_charset(t *testing.T) {
	// "é" in ISO-8859-1 is 0xE9.
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><t>caf\xe9</t>"
	m, err := DecodeReader(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if got := m.TextOr("t", ""); got != "café" {
		t.Errorf("text = %q, want café", got)
	}
}

func TestMap_accessors(t *testing.T) {
	m, err := DecodeString(`<r><a><b>x</b></a><n>1</n><n>2</n></r>`)
	if err != nil {
		t.Fatal(err)
	}
	r, _ := m.Child("r")
	if _, err := r.Path("a", "missing"); !errors.Is(err, ErrMissing) {
		t.Errorf("Path missing err = %v", err)
	}
	if _, err := r.Child("n"); !errors.Is(err, ErrCardinality) {
		t.Errorf("Child on list err = %v", err)
	}
	if _, err := r.Path("a", "b"); !errors.Is(err, ErrShape) {
		t.Errorf("Path into scalar err = %v", err)
	}
	first, err := r.First("n")
	if err != nil || first != Scalar("1") {
		t.Errorf("First = %v, %v", first, err)
	}
	if got := Members(List{Scalar("1"), Scalar("2")}); len(got) != 2 {
		t.Errorf("Members(list) len = %d", len(got))
	}
	if got := Members(Scalar("1")); len(got) != 1 {
		t.Errorf("Members(scalar) len = %d", len(got))
	}
}
