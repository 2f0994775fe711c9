package catalog

import (
	"context"

	"github.com/snapetech/funimationlater/internal/treefold"
)

// Show is a catalog entry as it appears in listings, queue and history: just
// enough to identify it, plus the pointer to its details.
type Show struct {
	resource
	ID        string
	Title     string
	Thumbnail string
}

// NewShow builds a Show from a listing item. It does no I/O.
func NewShow(tr Transport, item *treefold.Map, platform string) Show {
	s := Show{
		resource:  resource{tr: tr, platform: platform},
		ID:        item.TextOr("id", ""),
		Title:     item.TextOr("title", ""),
		Thumbnail: platformText(item, "thumbnail", platform),
	}
	s.ptr, s.hasPtr = ExtractPointer(item)
	if s.ID == "" {
		s.ID = item.TextOr("@id", "")
	}
	return s
}

// RestoreShow rebuilds a Show from stored fields. An empty pointer path
// leaves the show without a continuation.
func RestoreShow(tr Transport, id, title, thumbnail string, p Pointer, platform string) Show {
	return Show{
		resource:  resource{tr: tr, ptr: p, hasPtr: p.Path != "" && p.Target != "", platform: platform},
		ID:        id,
		Title:     title,
		Thumbnail: thumbnail,
	}
}

func (s Show) String() string { return "Show(" + s.Title + ")" }

// Details fetches the show's details page.
func (s Show) Details(ctx context.Context) (ShowDetails, error) {
	m, err := s.follow(ctx, s.ptr)
	if err != nil {
		return ShowDetails{}, err
	}
	return NewShowDetails(s.tr, m, s.platform)
}

// showsFrom turns the members of a listing's item group into Shows, skipping
// members that are not maps.
func showsFrom(tr Transport, group []treefold.Value, platform string) []Show {
	var out []Show
	for _, m := range group {
		if item, ok := m.(*treefold.Map); ok {
			out = append(out, NewShow(tr, item, platform))
		}
	}
	return out
}
