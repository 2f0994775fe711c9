package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/snapetech/funimationlater/internal/safeurl"
	"github.com/snapetech/funimationlater/internal/treefold"
)

// Rating is one regional content rating of a stream.
type Rating struct {
	Region string
	Value  string
}

// Stream is a resolved playable stream. Its pointer leads to related shows.
type Stream struct {
	resource
	ID               int
	Title            string
	VideoURL         string
	ClosedCaptionURL string
	Thumbnail        string
	Duration         int // seconds
	Episode          int
	Season           int
	ShowName         string
	Ratings          []Rating
}

// NewStream builds a Stream from a stream payload. It does no I/O. Stream
// URLs that are not http(s) are rejected.
func NewStream(tr Transport, data *treefold.Map, platform string) (Stream, error) {
	item, err := data.Child("item")
	if err != nil {
		return Stream{}, shapeErr("stream", err)
	}
	video, err := item.Child("video")
	if err != nil {
		return Stream{}, shapeErr("stream", err)
	}
	s := Stream{
		resource:  resource{tr: tr, platform: platform},
		Title:     video.TextOr("title", ""),
		Thumbnail: platformText(video, "thumbnail", platform),
	}
	s.ID, _ = strconv.Atoi(strings.TrimSpace(video.TextOr("id", "")))
	if md, err := video.Path("content", "metadata"); err == nil {
		s.Duration, _ = strconv.Atoi(strings.TrimSpace(md.TextOr("duration", "")))
		s.Episode = ordinal(md.TextOr("episode", ""))
		s.Season = ordinal(md.TextOr("season", ""))
		s.ShowName = md.TextOr("showName", "")
	}
	if hls, err := item.Child("hls"); err == nil {
		if s.VideoURL, err = safeurl.Playable("hls.url", hls.TextOr("url", "")); err != nil {
			return Stream{}, shapeErr("stream", err)
		}
		if s.ClosedCaptionURL, err = safeurl.Playable("hls.closedCaptionUrl", hls.TextOr("closedCaptionUrl", "")); err != nil {
			return Stream{}, shapeErr("stream", err)
		}
	}
	if related, err := item.Child("related"); err == nil {
		if p, ok := parsePointer(related); ok {
			s.ptr, s.hasPtr = p.For(platform), true
		}
	}
	if ratings, err := item.Child("ratings"); err == nil {
		for _, r := range ratings.All("tv") {
			value, _ := treefold.TextOf(r)
			rating := Rating{Value: value}
			if rm, ok := r.(*treefold.Map); ok {
				rating.Region, _ = rm.Attr("region")
			}
			s.Ratings = append(s.Ratings, rating)
		}
	}
	return s, nil
}

// ordinal parses the number out of labels such as "Episode 12" or "Season 2".
// A bare number is accepted too; anything else is 0.
func ordinal(label string) int {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0
	}
	n, _ := strconv.Atoi(fields[len(fields)-1])
	return n
}

func (s Stream) String() string { return "Stream(" + s.Title + ")" }

// Related fetches the details page of the show the stream belongs to.
func (s Stream) Related(ctx context.Context) (ShowDetails, error) {
	m, err := s.follow(ctx, s.ptr)
	if err != nil {
		return ShowDetails{}, err
	}
	return NewShowDetails(s.tr, m, s.platform)
}
