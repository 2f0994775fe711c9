package catalog

import (
	"strings"

	"github.com/snapetech/funimationlater/internal/treefold"
)

const pointerKey = "pointer"

// Pointer is a continuation descriptor embedded in a response: Path and
// Params describe the next request, Target names the key to pull out of its
// response. Alternates are platform-tagged variants of the same pointer.
type Pointer struct {
	Target     string
	Path       string
	Params     string
	Platforms  []string
	Alternates []Pointer
}

// ExtractPointer reads the "pointer" entry of m. When the service sends
// several pointers the first is the primary navigation pointer; the rest
// describe unrelated continuations (similar items and the like) and are
// ignored. That ordering is observed behaviour, not a documented contract,
// so any shape that does not yield a usable pointer reports absent rather
// than failing.
func ExtractPointer(m *treefold.Map) (Pointer, bool) {
	first, err := m.First(pointerKey)
	if err != nil {
		return Pointer{}, false
	}
	pm, ok := first.(*treefold.Map)
	if !ok {
		return Pointer{}, false
	}
	return parsePointer(pm)
}

func parsePointer(m *treefold.Map) (Pointer, bool) {
	p := Pointer{
		Target: m.TextOr("target", ""),
		Path:   m.TextOr("path", ""),
		Params: m.TextOr("params", ""),
	}
	if pl, ok := m.Attr("platforms"); ok {
		p.Platforms = splitPlatforms(pl)
	}
	for _, alt := range m.Children("alternate") {
		if ap, ok := parsePointer(alt); ok {
			p.Alternates = append(p.Alternates, ap)
		}
	}
	if p.Path == "" || p.Target == "" {
		// Some containers only carry alternates; promote the first.
		if len(p.Alternates) > 0 {
			alt := p.Alternates[0]
			alt.Alternates = p.Alternates[1:]
			return alt, true
		}
		return Pointer{}, false
	}
	return p, true
}

// For returns the alternate tagged with platform, or p itself.
func (p Pointer) For(platform string) Pointer {
	if platform == "" {
		return p
	}
	for _, alt := range p.Alternates {
		if hasPlatform(alt.Platforms, platform) {
			return alt
		}
	}
	return p
}

// WithParam returns a copy of p whose Params has key set to value. An
// existing key=... token is substituted in place; otherwise the token is
// appended. Other tokens keep their order and encoding.
func (p Pointer) WithParam(key, value string) Pointer {
	token := key + "=" + value
	parts := strings.Split(p.Params, "&")
	out := make([]string, 0, len(parts)+1)
	replaced := false
	for _, part := range parts {
		if part == "" {
			continue
		}
		if part == key || strings.HasPrefix(part, key+"=") {
			if !replaced {
				out = append(out, token)
				replaced = true
			}
			continue
		}
		out = append(out, part)
	}
	if !replaced {
		out = append(out, token)
	}
	q := p
	q.Params = strings.Join(out, "&")
	q.Alternates = append([]Pointer(nil), p.Alternates...)
	return q
}

func splitPlatforms(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '|' })
}

func hasPlatform(platforms []string, want string) bool {
	for _, p := range platforms {
		if strings.EqualFold(p, want) {
			return true
		}
	}
	return false
}

// platformText returns the text of m[key], preferring an "alternate" child
// whose @platforms names platform.
func platformText(m *treefold.Map, key, platform string) string {
	v, err := m.First(key)
	if err != nil {
		return ""
	}
	vm, ok := v.(*treefold.Map)
	if !ok {
		s, _ := treefold.TextOf(v)
		return s
	}
	text := vm.TextOr(treefold.TextKey, "")
	if platform == "" {
		return text
	}
	for _, alt := range vm.Children("alternate") {
		pl, _ := alt.Attr("platforms")
		if hasPlatform(splitPlatforms(pl), platform) {
			return alt.TextOr(treefold.TextKey, text)
		}
	}
	return text
}
