package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/snapetech/funimationlater/internal/treefold"
)

// SeasonRef is one entry of a show's season selector.
type SeasonRef struct {
	Number int
	Label  string
}

// ShowDetails is a show's details page. Its pointer is a template: the
// season number is added by Season before the request is made.
type ShowDetails struct {
	resource
	Title       string
	Description string
	Format      string
	ReleaseYear int
	Thumbnail   string
	// Seasons is in the order the service lists them.
	Seasons []SeasonRef
}

// NewShowDetails builds ShowDetails from a details payload. It does no I/O.
func NewShowDetails(tr Transport, data *treefold.Map, platform string) (ShowDetails, error) {
	hero, err := data.Path("hero", "item")
	if err != nil {
		return ShowDetails{}, shapeErr("details", err)
	}
	d := ShowDetails{
		resource:  resource{tr: tr, platform: platform},
		Title:     hero.TextOr("title", data.TextOr("title", "")),
		Thumbnail: platformText(hero, "thumbnail", platform),
	}
	d.ptr, d.hasPtr = ExtractPointer(data)
	if content, err := hero.Child("content"); err == nil {
		d.Description = content.TextOr("description", "")
		if md, err := content.Child("metadata"); err == nil {
			d.Format = md.TextOr("format", "")
			d.ReleaseYear, _ = strconv.Atoi(strings.TrimSpace(md.TextOr("releaseYear", "")))
		}
	}
	d.Seasons = seasonButtons(data)
	return d, nil
}

// seasonButtons reads pointer[0].longList.palette.filter[0].choices.button.
// Buttons whose value is not an integer are skipped.
func seasonButtons(data *treefold.Map) []SeasonRef {
	first, err := data.First(pointerKey)
	if err != nil {
		return nil
	}
	pm, ok := first.(*treefold.Map)
	if !ok {
		return nil
	}
	palette, err := pm.Path("longList", "palette")
	if err != nil {
		return nil
	}
	fv, err := palette.First("filter")
	if err != nil {
		return nil
	}
	filter, ok := fv.(*treefold.Map)
	if !ok {
		return nil
	}
	choices, err := filter.Child("choices")
	if err != nil {
		return nil
	}
	var out []SeasonRef
	for _, b := range choices.Children("button") {
		n, err := strconv.Atoi(strings.TrimSpace(b.TextOr("value", "")))
		if err != nil {
			continue
		}
		out = append(out, SeasonRef{Number: n, Label: b.TextOr("title", "")})
	}
	return out
}

func (d ShowDetails) String() string { return "ShowDetails(" + d.Title + ")" }

// SeasonLabel returns the label for season n.
func (d ShowDetails) SeasonLabel(n int) (string, bool) {
	for _, s := range d.Seasons {
		if s.Number == n {
			return s.Label, true
		}
	}
	return "", false
}

// Season fetches the episode listing for season n. n must be one of Seasons.
func (d ShowDetails) Season(ctx context.Context, n int) (Season, error) {
	label, ok := d.SeasonLabel(n)
	if !ok {
		return Season{}, fmt.Errorf("%w: %d (show %q)", ErrUnknownSeason, n, d.Title)
	}
	if !d.hasPtr {
		return Season{}, ErrNoContinuation
	}
	v, err := invoke(ctx, d.tr, d.ptr.WithParam("season", strconv.Itoa(n)))
	if err != nil {
		return Season{}, err
	}
	m, ok := v.(*treefold.Map)
	if !ok {
		// An empty listing element decodes to a scalar.
		return Season{resource: resource{tr: d.tr, platform: d.platform}, Number: n, Label: label}, nil
	}
	return NewSeason(d.tr, m, n, label, d.platform)
}
