package catalog

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strconv"
	"sync/atomic"

	"github.com/snapetech/funimationlater/internal/treefold"
)

// ShowType selects a listing.
type ShowType string

const (
	Simulcasts    ShowType = "simulcasts"
	BroadcastDubs ShowType = "broadcast-dubs"
	SearchResults ShowType = "search"
	AllShowsList  ShowType = "shows"
)

// SortBy selects a listing's sort key.
type SortBy string

const (
	SortTitle SortBy = "slug_exact"
	SortDate  SortBy = "start_timestamp"
)

const (
	DefaultPageLimit = 20
	DefaultPlatform  = "ios"
	DefaultTerritory = "US"

	allShowsLimit = 99999
)

// Options configures a Client. Zero values pick defaults.
type Options struct {
	Platform  string
	Territory string
	PageLimit int
	Logger    *slog.Logger
}

// Client is the entry point into the catalog. Every resource it returns
// shares its Transport, so headers added by Login apply to all of them.
type Client struct {
	tr        Transport
	platform  string
	territory string
	pageLimit int
	log       *slog.Logger
	loggedIn  atomic.Bool
}

// New returns a Client over tr.
func New(tr Transport, opts Options) *Client {
	c := &Client{
		tr:        tr,
		platform:  opts.Platform,
		territory: opts.Territory,
		pageLimit: opts.PageLimit,
		log:       opts.Logger,
	}
	if c.platform == "" {
		c.platform = DefaultPlatform
	}
	if c.territory == "" {
		c.territory = DefaultTerritory
	}
	if c.pageLimit <= 0 {
		c.pageLimit = DefaultPageLimit
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// LoggedIn reports whether Login has succeeded.
func (c *Client) LoggedIn() bool { return c.loggedIn.Load() }

func (c *Client) requireLogin() error {
	if !c.loggedIn.Load() {
		return ErrLoginRequired
	}
	return nil
}

// Login authenticates and copies the header set the service returns into the
// session. On failure the client stays logged out.
func (c *Client) Login(ctx context.Context, username, password string) error {
	resp, err := c.tr.Post(ctx, "/auth/login/?", url.Values{"username": {username}, "password": {password}})
	if err != nil {
		return err
	}
	auth, empty, err := root(resp, "authentication")
	if err != nil {
		return err
	}
	if empty {
		return fmt.Errorf("%w: empty authentication response", ErrUnknownResponse)
	}
	if auth.Has("error") {
		c.log.Info("login rejected", "user", username)
		return fmt.Errorf("%w: %s", ErrAuthenticationFailed, auth.TextOr("error", "username or password is incorrect"))
	}
	params, err := auth.Child("parameters")
	if err != nil {
		return shapeErr("authentication", err)
	}
	header, err := params.One("header")
	if err != nil {
		return shapeErr("authentication", err)
	}
	if err := c.tr.AddHeaders(header); err != nil {
		return err
	}
	c.loggedIn.Store(true)
	c.log.Info("logged in", "user", username)
	return nil
}

// MyQueue returns the shows in the user's queue.
func (c *Client) MyQueue(ctx context.Context) ([]Show, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	resp, err := c.tr.Get(ctx, "/myqueue/get-items/?", "")
	if err != nil {
		return nil, err
	}
	return c.watchlist(resp, "item")
}

// AddToQueue adds a show to the user's queue.
func (c *Client) AddToQueue(ctx context.Context, showID string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	_, err := c.tr.Get(ctx, "/myqueue/add/", url.Values{"id": {showID}}.Encode())
	return err
}

// RemoveFromQueue removes a show from the user's queue.
func (c *Client) RemoveFromQueue(ctx context.Context, showID string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	_, err := c.tr.Get(ctx, "/myqueue/remove/", url.Values{"id": {showID}}.Encode())
	return err
}

// History returns the shows the user has watched.
func (c *Client) History(ctx context.Context) ([]Show, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	resp, err := c.tr.Get(ctx, "/history/get-items/?", "")
	if err != nil {
		return nil, err
	}
	return c.watchlist(resp, "historyitem")
}

// watchlist reads watchlist.items.<entry>[*].item. An empty items element is
// an empty list.
func (c *Client) watchlist(resp *treefold.Map, entry string) ([]Show, error) {
	wl, empty, err := root(resp, "watchlist")
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, nil
	}
	items, err := wl.First("items")
	if err != nil {
		return nil, shapeErr("watchlist", err)
	}
	im, ok := items.(*treefold.Map)
	if !ok {
		return nil, nil
	}
	var out []Show
	for _, e := range im.Children(entry) {
		if item, err := e.Child("item"); err == nil {
			out = append(out, NewShow(c.tr, item, c.platform))
		}
	}
	return out, nil
}

// ListOptions narrows a listing. Zero values pick defaults.
type ListOptions struct {
	SortBy        SortBy
	SortDirection string // "asc" or "desc"
	Limit         int
	Offset        int
	// Extra is merged into the query, e.g. q for searches.
	Extra url.Values
}

// Shows returns one page of a listing. An empty page is (nil, nil).
func (c *Client) Shows(ctx context.Context, kind ShowType, opts ListOptions) ([]Show, error) {
	if opts.SortBy == "" {
		opts.SortBy = SortTitle
	}
	if opts.SortDirection == "" {
		opts.SortDirection = "desc"
	}
	if opts.Limit <= 0 {
		opts.Limit = c.pageLimit
	}
	q := url.Values{
		"id":             {string(kind)},
		"sort":           {string(opts.SortBy)},
		"sort_direction": {opts.SortDirection},
		"itemThemes":     {"dateAddedShow"},
		"territory":      {c.territory},
		"role":           {"g"},
		"offset":         {strconv.Itoa(opts.Offset)},
		"limit":          {strconv.Itoa(opts.Limit)},
	}
	for k, vs := range opts.Extra {
		q[k] = vs
	}
	resp, err := c.tr.Get(ctx, "/longlist/content/page/", q.Encode())
	if err != nil {
		return nil, err
	}
	items, empty, err := root(resp, "items")
	if err != nil || empty {
		return nil, err
	}
	return showsFrom(c.tr, items.All("item"), c.platform), nil
}

// Search returns the shows matching query.
func (c *Client) Search(ctx context.Context, query string) ([]Show, error) {
	return c.Shows(ctx, SearchResults, ListOptions{Extra: url.Values{"q": {query}}})
}

// AllShows returns the whole catalog in one request.
func (c *Client) AllShows(ctx context.Context) ([]Show, error) {
	return c.Shows(ctx, AllShowsList, ListOptions{Limit: allShowsLimit})
}

// Simulcasts returns one page of simulcasts.
func (c *Client) Simulcasts(ctx context.Context, limit, offset int) ([]Show, error) {
	return c.Shows(ctx, Simulcasts, ListOptions{Limit: limit, Offset: offset})
}

// EachShow walks the catalog page by page, stopping after the first page
// shorter than the page limit. Iteration stops at the first error.
func (c *Client) EachShow(ctx context.Context) iter.Seq2[Show, error] {
	return func(yield func(Show, error) bool) {
		for offset := 0; ; offset += c.pageLimit {
			page, err := c.Shows(ctx, AllShowsList, ListOptions{Limit: c.pageLimit, Offset: offset})
			if err != nil {
				yield(Show{}, err)
				return
			}
			for _, s := range page {
				if !yield(s, nil) {
					return
				}
			}
			if len(page) < c.pageLimit {
				return
			}
		}
	}
}

// ShowByID fetches a show's details page directly. A not-found transport
// error is reported as ErrUnknownShow.
func (c *Client) ShowByID(ctx context.Context, id string) (ShowDetails, error) {
	resp, err := c.tr.Get(ctx, "/detail/", url.Values{"pk": {id}}.Encode())
	if isNotFound(err) {
		return ShowDetails{}, fmt.Errorf("%w: %s", ErrUnknownShow, id)
	}
	if err != nil {
		return ShowDetails{}, err
	}
	keys := resp.Keys()
	if len(keys) != 1 {
		return ShowDetails{}, fmt.Errorf("%w: detail response has %d roots", ErrUnknownResponse, len(keys))
	}
	data, empty, err := root(resp, keys[0])
	if err != nil {
		return ShowDetails{}, err
	}
	if empty {
		return ShowDetails{}, fmt.Errorf("%w: %s", ErrUnknownShow, id)
	}
	return NewShowDetails(c.tr, data, c.platform)
}
