package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/snapetech/funimationlater/internal/treefold"
)

// Audio tracks accepted by Episode.StreamTrack.
const (
	TrackSubtitled = "japanese"
	TrackDubbed    = "english"

	audioParam = "audio"
)

// Season is the ordered episode listing of one season. It carries no pointer
// of its own; episodes are reached by index.
type Season struct {
	resource
	Number   int
	Label    string
	Episodes []Episode
}

// NewSeason builds a Season from a listing payload. An empty items element
// yields a Season with no episodes.
func NewSeason(tr Transport, data *treefold.Map, number int, label, platform string) (Season, error) {
	s := Season{resource: resource{tr: tr, platform: platform}, Number: number, Label: label}
	items, err := data.First("items")
	if err != nil {
		return s, shapeErr("season", err)
	}
	im, ok := items.(*treefold.Map)
	if !ok {
		return s, nil
	}
	for _, item := range im.Children("item") {
		ep, err := NewEpisode(tr, item, platform)
		if err != nil {
			return Season{}, err
		}
		s.Episodes = append(s.Episodes, ep)
	}
	return s, nil
}

// Episode returns the episode whose number equals n exactly.
func (s Season) Episode(n float64) (Episode, error) {
	for _, ep := range s.Episodes {
		if ep.Number == n {
			return ep, nil
		}
	}
	return Episode{}, fmt.Errorf("%w: %v in season %d", ErrUnknownEpisode, n, s.Number)
}

// Episode is an entry of a season listing. Its pointer leads to the stream.
type Episode struct {
	resource
	ID          string
	Title       string
	Description string
	Duration    int // seconds
	Format      string
	Number      float64 // fractional for specials such as 0.5
	Languages   []string
	Thumbnail   string
}

// NewEpisode builds an Episode from a listing item. It does no I/O.
func NewEpisode(tr Transport, item *treefold.Map, platform string) (Episode, error) {
	ep := Episode{
		resource:  resource{tr: tr, platform: platform},
		ID:        item.TextOr("id", ""),
		Title:     item.TextOr("title", ""),
		Thumbnail: platformText(item, "thumbnail", platform),
	}
	ep.ptr, ep.hasPtr = ExtractPointer(item)
	content, err := item.Child("content")
	if err != nil {
		return Episode{}, shapeErr("episode "+ep.Title, err)
	}
	ep.Description = content.TextOr("description", "")
	md, err := content.Child("metadata")
	if err != nil {
		return Episode{}, shapeErr("episode "+ep.Title, err)
	}
	ep.Format = md.TextOr("format", "")
	ep.Duration, _ = strconv.Atoi(strings.TrimSpace(md.TextOr("duration", "")))
	num := strings.TrimSpace(md.TextOr("episodeNumber", ""))
	ep.Number, err = strconv.ParseFloat(num, 64)
	if err != nil {
		return Episode{}, fmt.Errorf("%w: episode %q has number %q", ErrUnknownResponse, ep.Title, num)
	}
	for _, l := range strings.Split(md.TextOr("languages", ""), ",") {
		if l = strings.TrimSpace(l); l != "" {
			ep.Languages = append(ep.Languages, l)
		}
	}
	return ep, nil
}

func (ep Episode) String() string {
	return "Episode(" + strconv.FormatFloat(ep.Number, 'f', -1, 64) + " " + ep.Title + ")"
}

// Stream fetches the stream on the service's default audio track.
func (ep Episode) Stream(ctx context.Context) (Stream, error) {
	return ep.stream(ctx, ep.ptr)
}

// Sub fetches the subtitled stream.
func (ep Episode) Sub(ctx context.Context) (Stream, error) {
	return ep.StreamTrack(ctx, TrackSubtitled)
}

// Dub fetches the dubbed stream.
func (ep Episode) Dub(ctx context.Context) (Stream, error) {
	return ep.StreamTrack(ctx, TrackDubbed)
}

// StreamTrack fetches the stream for an audio track. An empty track is the
// same as Stream.
func (ep Episode) StreamTrack(ctx context.Context, track string) (Stream, error) {
	if track == "" {
		return ep.Stream(ctx)
	}
	return ep.stream(ctx, ep.ptr.WithParam(audioParam, track))
}

func (ep Episode) stream(ctx context.Context, p Pointer) (Stream, error) {
	m, err := ep.follow(ctx, p)
	if err != nil {
		return Stream{}, err
	}
	return NewStream(ep.tr, m, ep.platform)
}
