package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/snapetech/funimationlater/internal/catalog"
	"github.com/snapetech/funimationlater/internal/health"
	"github.com/snapetech/funimationlater/internal/store"
)

var errUsage = errors.New("usage")

// command is one subcommand: its own flags plus the action.
type command struct {
	name    string
	args    string
	summary string
	flags   func(fs *pflag.FlagSet) func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"shows", "", "List a catalog page", showsCmd},
	{"search", "<query>", "Search the catalog", searchCmd},
	{"queue", "", "Show or edit your queue (login)", queueCmd},
	{"history", "", "Show your watch history (login)", historyCmd},
	{"show", "<id>", "Show details and seasons", showCmd},
	{"season", "<id> <season>", "List a season's episodes", seasonCmd},
	{"stream", "<id> <season> <episode>", "Resolve an episode's stream", streamCmd},
	{"related", "<id> <season> <episode>", "Details of the show a stream belongs to", relatedCmd},
	{"sync", "", "Snapshot the whole catalog into the local db", syncCmd},
	{"local", "[query]", "List or search the local snapshot", localCmd},
	{"check", "", "Check that the API answers", checkCmd},
	{"login", "", "Verify credentials", loginCmd},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func showsCmd(fs *pflag.FlagSet) func(context.Context, *app, []string) error {
	kind := fs.String("kind", string(catalog.AllShowsList), "simulcasts, broadcast-dubs or shows")
	limit := fs.Int("limit", 0, "page size (default: page_limit)")
	offset := fs.Int("offset", 0, "page offset")
	sortBy := fs.String("sort", "title", "title or date")
	asc := fs.Bool("asc", false, "sort ascending")
	return func(ctx context.Context, a *app, args []string) error {
		if err := a.login(ctx, false); err != nil {
			return err
		}
		opts := catalog.ListOptions{Limit: *limit, Offset: *offset, SortBy: catalog.SortTitle}
		switch *sortBy {
		case "title":
		case "date":
			opts.SortBy = catalog.SortDate
		default:
			return fmt.Errorf("%w: --sort must be title or date", errUsage)
		}
		if *asc {
			opts.SortDirection = "asc"
		}
		shows, err := a.client.Shows(ctx, catalog.ShowType(*kind), opts)
		if err != nil {
			return err
		}
		a.out.shows(*kind, shows)
		return nil
	}
}

func searchCmd(fs *pflag.FlagSet) func(context.Context, *app, []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		q := strings.TrimSpace(strings.Join(args, " "))
		if q == "" {
			return fmt.Errorf("%w: search needs a query", errUsage)
		}
		if err := a.login(ctx, false); err != nil {
			return err
		}
		shows, err := a.client.Search(ctx, q)
		if err != nil {
			return err
		}
		a.out.shows("search: "+q, shows)
		return nil
	}
}

func queueCmd(fs *pflag.FlagSet) func(context.Context, *app, []string) error {
	add := fs.String("add", "", "show id to add")
	remove := fs.String("remove", "", "show id to remove")
	return func(ctx context.Context, a *app, args []string) error {
		if err := a.login(ctx, true); err != nil {
			return err
		}
		if *add != "" {
			if err := a.client.AddToQueue(ctx, *add); err != nil {
				return err
			}
			a.log.Info("added to queue", "id", *add)
		}
		if *remove != "" {
			if err := a.client.RemoveFromQueue(ctx, *remove); err != nil {
				return err
			}
			a.log.Info("removed from queue", "id", *remove)
		}
		shows, err := a.client.MyQueue(ctx)
		if err != nil {
			return err
		}
		a.out.shows("queue", shows)
		return nil
	}
}

func historyCmd(fs *pflag.FlagSet) func(context.Context, *app, []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		if err := a.login(ctx, true); err != nil {
			return err
		}
		shows, err := a.client.History(ctx)
		if err != nil {
			return err
		}
		a.out.shows("history", shows)
		return nil
	}
}

func showCmd(fs *pflag.FlagSet) func(context.Context, *app, []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("%w: show <id>", errUsage)
		}
		if err := a.login(ctx, false); err != nil {
			return err
		}
		d, err := a.client.ShowByID(ctx, args[0])
		if err != nil {
			return err
		}
		a.out.details(d)
		return nil
	}
}

func seasonCmd(fs *pflag.FlagSet) func(context.Context, *app, []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		if len(args) != 2 {
			return fmt.Errorf("%w: season <id> <season>", errUsage)
		}
		if err := a.login(ctx, false); err != nil {
			return err
		}
		s, err := a.season(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		a.out.season(s)
		return nil
	}
}

func streamCmd(fs *pflag.FlagSet) func(context.Context, *app, []string) error {
	track := fs.String("track", "", "sub, dub, or empty for the default track")
	check := fs.Bool("check", false, "fetch the playlist and check it is HLS")
	return func(ctx context.Context, a *app, args []string) error {
		s, err := a.stream(ctx, args, *track)
		if err != nil {
			return err
		}
		a.out.stream(s)
		if *check {
			if err := health.CheckStream(ctx, nil, s.VideoURL); err != nil {
				return fmt.Errorf("stream check: %w", err)
			}
			a.log.Info("stream ok", "url", s.VideoURL)
		}
		return nil
	}
}

func relatedCmd(fs *pflag.FlagSet) func(context.Context, *app, []string) error {
	track := fs.String("track", "", "sub, dub, or empty for the default track")
	return func(ctx context.Context, a *app, args []string) error {
		s, err := a.stream(ctx, args, *track)
		if err != nil {
			return err
		}
		d, err := s.Related(ctx)
		if err != nil {
			return err
		}
		a.out.details(d)
		return nil
	}
}

func syncCmd(fs *pflag.FlagSet) func(context.Context, *app, []string) error {
	prune := fs.Bool("prune", false, "delete shows not seen by this sync")
	batch := fs.Int("batch", 200, "rows per transaction")
	return func(ctx context.Context, a *app, args []string) error {
		if err := a.login(ctx, false); err != nil {
			return err
		}
		st, err := store.Open(a.cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		start := time.Now()
		// Stored timestamps have second resolution.
		cutoff := start.Truncate(time.Second)
		var pending []store.Record
		written := 0
		flush := func() error {
			n, err := st.Upsert(ctx, pending)
			written += n
			pending = pending[:0]
			return err
		}
		for show, err := range a.client.EachShow(ctx) {
			if err != nil {
				return err
			}
			pending = append(pending, store.FromShow(show, start))
			if len(pending) >= *batch {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if err := flush(); err != nil {
			return err
		}
		var pruned int64
		if *prune {
			if pruned, err = st.PruneBefore(ctx, cutoff); err != nil {
				return err
			}
		}
		total, err := st.Count(ctx)
		if err != nil {
			return err
		}
		a.log.Info("sync done", "written", written, "pruned", pruned, "total", total, "db", a.cfg.DBPath, "elapsed", time.Since(start).Round(time.Millisecond))
		a.out.headingf("synced %d shows (%d in %s)", written, total, a.cfg.DBPath)
		return nil
	}
}

func localCmd(fs *pflag.FlagSet) func(context.Context, *app, []string) error {
	open := fs.String("open", "", "fetch live details for a stored show id")
	return func(ctx context.Context, a *app, args []string) error {
		st, err := store.Open(a.cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		q := strings.TrimSpace(strings.Join(args, " "))
		var recs []store.Record
		if q == "" {
			recs, err = st.List(ctx)
		} else {
			recs, err = st.Search(ctx, q)
		}
		if err != nil {
			return err
		}
		if *open == "" {
			title := "local"
			if q != "" {
				title += ": " + q
			}
			a.out.records(title, recs)
			return nil
		}
		for _, r := range recs {
			if r.ID != *open {
				continue
			}
			if err := a.login(ctx, false); err != nil {
				return err
			}
			d, err := r.Show(a.session, a.cfg.Platform).Details(ctx)
			if err != nil {
				return err
			}
			a.out.details(d)
			return nil
		}
		return fmt.Errorf("%w: %s (not in %s; run sync)", catalog.ErrUnknownShow, *open, a.cfg.DBPath)
	}
}

func checkCmd(fs *pflag.FlagSet) func(context.Context, *app, []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		if err := health.CheckAPI(ctx, nil, a.cfg.BaseURL); err != nil {
			return err
		}
		a.out.headingf("api ok: %s", a.cfg.BaseURL)
		return nil
	}
}

func loginCmd(fs *pflag.FlagSet) func(context.Context, *app, []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		if err := a.login(ctx, true); err != nil {
			return err
		}
		a.out.headingf("logged in as %s", a.cfg.Username)
		return nil
	}
}

// season resolves a show id and season number argument.
func (a *app) season(ctx context.Context, id, seasonArg string) (catalog.Season, error) {
	n, err := strconv.Atoi(seasonArg)
	if err != nil {
		return catalog.Season{}, fmt.Errorf("%w: season %q is not a number", errUsage, seasonArg)
	}
	d, err := a.client.ShowByID(ctx, id)
	if err != nil {
		return catalog.Season{}, err
	}
	return d.Season(ctx, n)
}

// stream resolves <id> <season> <episode> and fetches the stream on track.
func (a *app) stream(ctx context.Context, args []string, track string) (catalog.Stream, error) {
	if len(args) != 3 {
		return catalog.Stream{}, fmt.Errorf("%w: <id> <season> <episode>", errUsage)
	}
	num, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return catalog.Stream{}, fmt.Errorf("%w: episode %q is not a number", errUsage, args[2])
	}
	audio, err := parseTrack(track)
	if err != nil {
		return catalog.Stream{}, err
	}
	if err := a.login(ctx, false); err != nil {
		return catalog.Stream{}, err
	}
	s, err := a.season(ctx, args[0], args[1])
	if err != nil {
		return catalog.Stream{}, err
	}
	ep, err := s.Episode(num)
	if err != nil {
		return catalog.Stream{}, err
	}
	return ep.StreamTrack(ctx, audio)
}

func parseTrack(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "sub", "subbed", "subtitled", catalog.TrackSubtitled:
		return catalog.TrackSubtitled, nil
	case "dub", "dubbed", catalog.TrackDubbed:
		return catalog.TrackDubbed, nil
	default:
		return "", fmt.Errorf("%w: --track must be sub or dub", errUsage)
	}
}
