package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/snapetech/funimationlater/internal/catalog"
	"github.com/snapetech/funimationlater/internal/store"
)

// printer writes listings with coloured headings and ids.
type printer struct {
	w       io.Writer
	heading *color.Color
	id      *color.Color
	dim     *color.Color
}

func newPrinter(w io.Writer, noColor bool) *printer {
	p := &printer{
		w:       w,
		heading: color.New(color.FgCyan, color.Bold),
		id:      color.New(color.FgYellow),
		dim:     color.New(color.Faint),
	}
	if noColor {
		for _, c := range []*color.Color{p.heading, p.id, p.dim} {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) headingf(format string, args ...any) {
	p.heading.Fprintf(p.w, format, args...)
	fmt.Fprintln(p.w)
}

func (p *printer) shows(title string, shows []catalog.Show) {
	p.headingf("%s (%d)", title, len(shows))
	for _, s := range shows {
		fmt.Fprintf(p.w, "  %s  %s\n", p.id.Sprintf("%-8s", s.ID), s.Title)
	}
}

func (p *printer) records(title string, recs []store.Record) {
	p.headingf("%s (%d)", title, len(recs))
	for _, r := range recs {
		fmt.Fprintf(p.w, "  %s  %s  %s\n", p.id.Sprintf("%-8s", r.ID), r.Title,
			p.dim.Sprint(r.SyncedAt.UTC().Format("2006-01-02")))
	}
}

func (p *printer) details(d catalog.ShowDetails) {
	p.headingf("%s", d.Title)
	if d.ReleaseYear > 0 || d.Format != "" {
		fmt.Fprintf(p.w, "  %s\n", p.dim.Sprint(strings.TrimSpace(d.Format+" "+yearString(d.ReleaseYear))))
	}
	if d.Description != "" {
		fmt.Fprintf(p.w, "  %s\n", d.Description)
	}
	if d.Thumbnail != "" {
		fmt.Fprintf(p.w, "  thumbnail: %s\n", d.Thumbnail)
	}
	for _, s := range d.Seasons {
		fmt.Fprintf(p.w, "  %s  %s\n", p.id.Sprintf("%3d", s.Number), s.Label)
	}
}

func (p *printer) season(s catalog.Season) {
	p.headingf("%s (%d episodes)", s.Label, len(s.Episodes))
	for _, ep := range s.Episodes {
		fmt.Fprintf(p.w, "  %s  %s  %s\n", p.id.Sprintf("%5s", formatNumber(ep.Number)), ep.Title,
			p.dim.Sprintf("%dm %s", ep.Duration/60, strings.Join(ep.Languages, ",")))
	}
}

func (p *printer) stream(s catalog.Stream) {
	p.headingf("%s S%02dE%02d %s", s.ShowName, s.Season, s.Episode, s.Title)
	fmt.Fprintf(p.w, "  video:    %s\n", s.VideoURL)
	if s.ClosedCaptionURL != "" {
		fmt.Fprintf(p.w, "  captions: %s\n", s.ClosedCaptionURL)
	}
	for _, r := range s.Ratings {
		fmt.Fprintf(p.w, "  rating:   %s %s\n", r.Region, r.Value)
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func yearString(y int) string {
	if y <= 0 {
		return ""
	}
	return strconv.Itoa(y)
}
