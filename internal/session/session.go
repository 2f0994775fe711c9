// Package session performs round trips against the catalog API and decodes
// each markup response into a treefold value. A Session carries the header
// set shared by every resource built from one client: headers added after
// login are visible to all later requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/snapetech/funimationlater/internal/httpclient"
	"github.com/snapetech/funimationlater/internal/metrics"
	"github.com/snapetech/funimationlater/internal/safeurl"
	"github.com/snapetech/funimationlater/internal/treefold"
)

const DefaultUserAgent = "Go:FunimationLater:v0.1.0"

var (
	// ErrInvalidArgument is returned by AddHeaders for a value that is not a map.
	ErrInvalidArgument = errors.New("session: invalid argument")
	// ErrNotFound matches a StatusError for HTTP 404.
	ErrNotFound = errors.New("session: not found")
)

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string // first bytes of the response, for diagnostics
	Err        error  // set when the body could not be read in full
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s returned %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return e.Err }

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.NotFound()
}

// NotFound reports an HTTP 404. Transport consumers match on this method
// rather than on ErrNotFound.
func (e *StatusError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// Options configures New. Zero values pick defaults.
type Options struct {
	BaseURL   string // e.g. https://api-funimation.dadcdigital.com/xml
	UserAgent string
	Client    *http.Client
	// RateLimit is requests per second; 0 disables pacing.
	RateLimit float64
	RateBurst int
	Retry     httpclient.RetryPolicy
	HostSem   *httpclient.HostSemaphore
	Metrics   *metrics.Recorder
	Logger    *slog.Logger

	// MaxBodyBytes caps a decoded response; 0 means httpclient.MaxBodyBytes.
	MaxBodyBytes int64
}

// Session is safe for concurrent use; header changes are serialized.
type Session struct {
	base    string
	client  *http.Client
	limiter *rate.Limiter
	retry   httpclient.RetryPolicy
	sem     *httpclient.HostSemaphore
	metrics *metrics.Recorder
	log     *slog.Logger
	maxBody int64

	mu      sync.RWMutex
	headers http.Header
}

// New validates opts and returns a Session with the default header set.
func New(opts Options) (*Session, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if !safeurl.IsHTTPOrHTTPS(base) {
		return nil, fmt.Errorf("%w: base url %q must be http(s)", ErrInvalidArgument, opts.BaseURL)
	}
	s := &Session{
		base:    base,
		client:  opts.Client,
		retry:   opts.Retry,
		sem:     opts.HostSem,
		metrics: opts.Metrics,
		log:     opts.Logger,
		maxBody: opts.MaxBodyBytes,
		headers: http.Header{},
	}
	if s.maxBody <= 0 {
		s.maxBody = httpclient.MaxBodyBytes
	}
	if s.client == nil {
		c, err := httpclient.NewSessionClient(httpclient.DefaultTimeout)
		if err != nil {
			return nil, err
		}
		s.client = c
	}
	if s.sem == nil {
		s.sem = httpclient.GlobalHostSem
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	s.headers.Set("User-Agent", ua)
	s.headers.Set("Accept-Encoding", httpclient.AcceptEncoding)
	if s.retry.OnRetry == nil {
		s.retry.OnRetry = func(req *http.Request, status int, wait time.Duration) {
			s.metrics.Retry(status)
			s.log.Warn("retrying request", "method", req.Method, "url", req.URL.Redacted(), "status", status, "wait", wait)
		}
	}
	return s, nil
}

// BaseURL returns the API root every path is joined to.
func (s *Session) BaseURL() string { return s.base }

// SetHeader sets one session header.
func (s *Session) SetHeader(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers.Set(key, value)
}

// Header returns a copy of the session headers.
func (s *Session) Header() http.Header {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headers.Clone()
}

// AddHeaders merges a decoded header-set description into the session
// headers. Each key of the map becomes a header whose value is the member's
// text. Anything other than a map is rejected with ErrInvalidArgument.
func (s *Session) AddHeaders(v treefold.Value) error {
	m, ok := v.(*treefold.Map)
	if !ok {
		return fmt.Errorf("%w: header set must be a map, got %T", ErrInvalidArgument, v)
	}
	h := make(map[string]string, m.Len())
	for _, k := range m.Keys() {
		if strings.HasPrefix(k, treefold.AttrPrefix) || k == treefold.TextKey {
			continue
		}
		text, err := m.Text(k)
		if err != nil {
			return fmt.Errorf("%w: header %q: %v", ErrInvalidArgument, k, err)
		}
		h[k] = text
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, val := range h {
		s.headers.Set(k, val)
	}
	return nil
}

// URL joins path and an already-encoded query onto the base URL. A trailing
// "?" on path is kept when there is no query, since some endpoints are
// registered with it.
func (s *Session) URL(path, query string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := s.base + path
	query = strings.TrimPrefix(query, "?")
	if query == "" {
		return u
	}
	switch {
	case strings.HasSuffix(u, "?"):
		return u + query
	case strings.Contains(u, "?"):
		return u + "&" + query
	default:
		return u + "?" + query
	}
}

// Get issues a GET for path with an encoded query and decodes the response.
func (s *Session) Get(ctx context.Context, path, query string) (*treefold.Map, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(path, query), nil)
	if err != nil {
		return nil, err
	}
	return s.do(ctx, req)
}

// GetValues is Get with a url.Values query.
func (s *Session) GetValues(ctx context.Context, path string, q url.Values) (*treefold.Map, error) {
	return s.Get(ctx, path, q.Encode())
}

// Post issues a form-encoded POST and decodes the response.
func (s *Session) Post(ctx context.Context, path string, form url.Values) (*treefold.Map, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL(path, ""), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(ctx, req)
}

func (s *Session) do(ctx context.Context, req *http.Request) (*treefold.Map, error) {
	for k, vs := range s.Header() {
		if req.Header.Get(k) == "" {
			req.Header[k] = vs
		}
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	release, err := s.sem.Acquire(ctx, s.base)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	target := req.URL.Redacted()
	resp, err := httpclient.DoWithRetry(ctx, s.client, req, s.retry)
	if err != nil {
		s.metrics.ObserveRequest(req.Method, 0, time.Since(start))
		s.log.Debug("request failed", "method", req.Method, "url", target, "err", err)
		return nil, fmt.Errorf("%s %s: %w", req.Method, target, err)
	}
	body, err := httpclient.ReadBodyLimit(resp, s.maxBody)
	elapsed := time.Since(start)
	s.metrics.ObserveRequest(req.Method, resp.StatusCode, elapsed)
	s.log.Debug("request", "method", req.Method, "url", target, "status", resp.StatusCode, "elapsed", elapsed, "bytes", len(body))
	// A non-2xx status is reported even when the body read failed.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &StatusError{Method: req.Method, URL: target, StatusCode: resp.StatusCode, Body: snippet, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", req.Method, target, err)
	}
	m, err := treefold.DecodeBytes(body)
	if err != nil {
		s.metrics.DecodeError()
		return nil, fmt.Errorf("%s %s: %w", req.Method, target, err)
	}
	return m, nil
}
