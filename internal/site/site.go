// Package site is the content site hookprof profiles.
//
// A Site runs a request in three steps, each firing its hooks on the site's
// registry: Bootstrap loads plugins and the theme, ResolveRequest turns the
// URL into a list of posts, and RenderTemplate renders them. Plugins read
// options through an LRU object cache, query a DuckDB database whose
// statements are recorded in a query log, and may call remote services
// through an HTTP client that fires request hooks.
package site

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/hookprof/internal/duckdb"
	errs "github.com/coral-mesh/hookprof/internal/errors"
	"github.com/coral-mesh/hookprof/internal/hooks"
	"github.com/coral-mesh/hookprof/internal/site/httpclient"
	"github.com/coral-mesh/hookprof/internal/site/objectcache"
	"github.com/coral-mesh/hookprof/internal/site/querylog"
)

// DefaultURL is requested when no URL is configured.
const DefaultURL = "http://localhost/"

// ErrNotBootstrapped is returned by steps that need a bootstrapped site.
var ErrNotBootstrapped = errors.New("site is not bootstrapped")

// Config configures a Site.
type Config struct {
	// URL is the request to serve.
	URL string
	// DSN is the DuckDB data source; empty opens an in-memory database.
	DSN string
	// SaveQueries is the configured query log setting; nil when unset.
	SaveQueries *bool
	// CacheSize bounds the object cache.
	CacheSize int
	// RemoteURL, when set, is fetched by the remote plugin on every request.
	RemoteURL string
	// Plugins lists the plugins to load; empty loads all of them.
	Plugins []string
	// HTTPTimeout bounds outbound requests.
	HTTPTimeout time.Duration
}

// Post is one published post.
type Post struct {
	ID      int
	Slug    string
	Title   string
	Content string
	Related []string
}

// Request is the parsed request.
type Request struct {
	URL  *url.URL
	Slug string
	// Home is set for the front page.
	Home bool
	// NotFound is set once resolution found nothing to show.
	NotFound bool
	Headers  http.Header
}

// PostQuery selects the posts a request shows.
type PostQuery struct {
	Slug  string
	Limit int
}

// Option configures a Site.
type Option func(*Site)

// WithLogger sets the site logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Site) { s.logger = logger.With().Str("component", "site").Logger() }
}

// WithOutput sets where the rendered page is written. Defaults to io.Discard.
func WithOutput(w io.Writer) Option {
	return func(s *Site) { s.out = w }
}

// WithTransport sets the base transport of the outbound HTTP client.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Site) { s.transport = rt }
}

// Site is a content site with an instrumented database, object cache and
// HTTP client.
type Site struct {
	cfg       Config
	logger    zerolog.Logger
	out       io.Writer
	transport http.RoundTripper

	hooks   *hooks.Registry
	queries *querylog.Log
	cache   *objectcache.Cache
	db      *sql.DB
	client  *http.Client

	loaded   bool
	resolved bool
	rendered bool

	request *Request
	posts   []Post
}

// New creates a site. Nothing is opened until Bootstrap.
func New(cfg Config, opts ...Option) (*Site, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid site url %q: %w", cfg.URL, err)
	}
	cache, err := objectcache.New(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	s := &Site{
		cfg:     cfg,
		logger:  zerolog.Nop(),
		out:     io.Discard,
		hooks:   hooks.NewRegistry(),
		queries: querylog.New(),
		cache:   cache,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.client = httpclient.NewClient(&http.Client{Transport: s.transport, Timeout: cfg.HTTPTimeout}, s.hooks)
	return s, nil
}

// Hooks returns the site's event registry.
func (s *Site) Hooks() *hooks.Registry { return s.hooks }

// Queries returns the site's query log.
func (s *Site) Queries() *querylog.Log { return s.queries }

// Cache returns the site's object cache.
func (s *Site) Cache() *objectcache.Cache { return s.cache }

// DB returns the site database, nil before Bootstrap.
func (s *Site) DB() *sql.DB { return s.db }

// SaveQueries returns the configured query log setting.
func (s *Site) SaveQueries() *bool { return s.cfg.SaveQueries }

// EnableSaveQueries turns the query log on.
func (s *Site) EnableSaveQueries() { s.queries.SetEnabled(true) }

// Loaded reports whether Bootstrap has run.
func (s *Site) Loaded() bool { return s.loaded }

// Request returns the resolved request, nil before ResolveRequest.
func (s *Site) Request() *Request { return s.request }

// Posts returns the posts the request resolved to.
func (s *Site) Posts() []Post { return s.posts }

// Bootstrap opens the database, loads the plugins and the theme and
// initializes them. It runs once.
func (s *Site) Bootstrap(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	s.loaded = true

	if err := s.open(ctx); err != nil {
		return err
	}

	s.loadMuPlugins()
	s.hooks.DoAction(EventMuPluginsLoaded, ctx)

	if err := s.loadPlugins(); err != nil {
		return err
	}
	s.hooks.DoAction(EventPluginsLoaded, ctx)

	s.hooks.DoAction(EventSetupTheme, ctx)
	s.loadTheme()
	s.hooks.DoAction(EventAfterSetupTheme, ctx)

	s.hooks.DoAction(EventInit, ctx)
	s.hooks.DoAction(EventLoaded, ctx)

	s.logger.Debug().Int("queries", s.queries.Len()).Msg("Site bootstrapped")
	return nil
}

func (s *Site) open(ctx context.Context) error {
	db, err := duckdb.Open(s.cfg.DSN, s.queries)
	if err != nil {
		return err
	}
	s.db = db

	if err := migrate(ctx, s.db, s.logger); err != nil {
		errs.DeferClose(s.logger, s.db, "failed to close site database")
		s.db = nil
		return err
	}
	return nil
}

// ResolveRequest parses the URL and loads the posts it asks for. It runs
// once.
func (s *Site) ResolveRequest(ctx context.Context) error {
	if !s.loaded || s.db == nil {
		return ErrNotBootstrapped
	}
	if s.resolved {
		return nil
	}
	s.resolved = true

	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return fmt.Errorf("invalid site url %q: %w", s.cfg.URL, err)
	}
	req := &Request{URL: u, Headers: http.Header{}}
	path := strings.Trim(u.Path, "/")
	switch {
	case path == "":
		req.Home = true
	case strings.HasPrefix(path, "post/"):
		req.Slug = strings.TrimPrefix(path, "post/")
	default:
		req.NotFound = true
	}
	s.request = req
	s.hooks.DoAction(EventParseRequest, ctx, req)

	req.Headers.Set("Content-Type", "text/html; charset=utf-8")
	s.hooks.DoAction(EventSendHeaders, ctx, req)

	q := &PostQuery{Slug: req.Slug, Limit: 10}
	if !req.Home {
		q.Limit = 1
	}
	s.hooks.DoAction(EventPreGetPosts, ctx, q)

	var posts []Post
	if !req.NotFound {
		posts, err = s.loadPosts(ctx, q)
		if err != nil {
			return err
		}
	}
	if filtered, ok := s.hooks.ApplyFilters(EventThePosts, posts, ctx).([]Post); ok {
		posts = filtered
	}
	if !req.Home && len(posts) == 0 {
		req.NotFound = true
	}
	s.posts = posts

	s.hooks.DoAction(EventRequestResolved, ctx, req)
	return nil
}

func (s *Site) loadPosts(ctx context.Context, q *PostQuery) ([]Post, error) {
	query := `SELECT id, slug, title, content FROM posts ORDER BY id DESC LIMIT ?`
	args := []any{q.Limit}
	if q.Slug != "" {
		query = `SELECT id, slug, title, content FROM posts WHERE slug = ? LIMIT ?`
		args = []any{q.Slug, q.Limit}
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer errs.DeferClose(s.logger, rows, "failed to close post rows")

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Slug, &p.Title, &p.Content); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Option returns a site option, reading through the object cache.
func (s *Site) Option(ctx context.Context, name string) (string, error) {
	if v, ok := s.cache.Get("options", name); ok {
		if value, ok := v.(string); ok {
			return value, nil
		}
		s.logger.Debug().Str("option", name).Msgf("Ignoring cached %T", v)
	}
	if s.db == nil {
		return "", ErrNotBootstrapped
	}
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM options WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		value = ""
	} else if err != nil {
		return "", fmt.Errorf("failed to read option %s: %w", name, err)
	}
	s.cache.Set("options", name, value)
	return value, nil
}

// Fetch performs a GET through the instrumented client and returns the
// response status.
func (s *Site) Fetch(ctx context.Context, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("invalid request url %q: %w", target, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer errs.DeferClose(s.logger, resp.Body, "failed to close response body")
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// Shutdown fires the shutdown hook.
func (s *Site) Shutdown(ctx context.Context) {
	s.hooks.DoAction(EventShutdown, ctx)
}

// Close releases the database.
func (s *Site) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
