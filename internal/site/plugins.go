package site

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	errs "github.com/coral-mesh/hookprof/internal/errors"
	"github.com/coral-mesh/hookprof/internal/hooks"
)

// Built-in plugins.
const (
	PluginSEO        = "seo"
	PluginRelated    = "related"
	PluginShortcodes = "shortcodes"
	PluginRemote     = "remote"
	PluginStats      = "stats"
)

// PluginNames lists the built-in plugins in load order.
var PluginNames = []string{PluginSEO, PluginRelated, PluginShortcodes, PluginRemote, PluginStats}

// loadMuPlugins registers the must-use plugins, which are always loaded.
func (s *Site) loadMuPlugins() {
	s.hooks.Add(EventMuPluginsLoaded, s.primeOptions)
}

// primeOptions warms the object cache with the options every request reads.
func (s *Site) primeOptions(args ...any) any {
	ctx := ctxArg(args)
	for _, name := range []string{"blogname", "blogdescription"} {
		if _, err := s.Option(ctx, name); err != nil {
			s.logger.Warn().Err(err).Str("option", name).Msg("Failed to prime option")
		}
	}
	return nil
}

func (s *Site) loadPlugins() error {
	enabled := s.cfg.Plugins
	if len(enabled) == 0 {
		enabled = PluginNames
	}
	for _, name := range enabled {
		switch name {
		case PluginSEO:
			p := &seo{site: s}
			s.hooks.Add(EventInit, p.init)
			s.hooks.Add(EventHead, p.head, hooks.WithAcceptedArgs(2))
			s.hooks.Add(EventDocumentTitle, p.documentTitle, hooks.WithAcceptedArgs(2))
			s.hooks.Add(EventDocumentTitle, sanitizeTitle, hooks.WithPriority(20))
		case PluginRelated:
			p := &related{site: s}
			s.hooks.Add(EventThePosts, p.attach, hooks.WithAcceptedArgs(2))
		case PluginShortcodes:
			s.hooks.Add(EventInit, func(args ...any) any {
				year := strconv.Itoa(time.Now().Year())
				s.hooks.Add(EventTheContent, func(args ...any) any {
					content, _ := args[0].(string)
					return strings.ReplaceAll(content, "[year]", year)
				}, hooks.WithPriority(9))
				return nil
			})
		case PluginRemote:
			if s.cfg.RemoteURL == "" {
				continue
			}
			p := &remote{site: s, url: s.cfg.RemoteURL}
			s.hooks.Add(EventTemplateRedirect, p.ping)
		case PluginStats:
			s.hooks.Add(EventShutdown, func(args ...any) any {
				ctx := ctxArg(args)
				if s.db == nil {
					return nil
				}
				if _, err := s.db.ExecContext(ctx,
					`INSERT INTO stats (queries, cache_hits, cache_misses) VALUES (?, ?, ?)`,
					s.queries.Len(), s.cache.Hits(), s.cache.Misses()); err != nil {
					s.logger.Warn().Err(err).Msg("Failed to record request stats")
				}
				return nil
			})
		default:
			return fmt.Errorf("unknown plugin %q: must be one of %s", name, strings.Join(PluginNames, ", "))
		}
		s.logger.Debug().Str("plugin", name).Msg("Loaded plugin")
	}
	return nil
}

// loadTheme registers the theme's listeners.
func (s *Site) loadTheme() {
	perPage := 10
	s.hooks.Add(EventAfterSetupTheme, func(args ...any) any {
		v, err := s.Option(ctxArg(args), "posts_per_page")
		if err != nil {
			return nil
		}
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			perPage = n
		}
		return nil
	})
	s.hooks.Add(EventPreGetPosts, func(args ...any) any {
		if len(args) < 2 {
			return nil
		}
		if q, ok := args[1].(*PostQuery); ok && q.Slug == "" {
			q.Limit = perPage
		}
		return nil
	}, hooks.WithAcceptedArgs(2))
	s.hooks.Add(EventTemplateInclude, s.chooseTemplate)
	s.hooks.Add(EventTheContent, autop)
	s.hooks.Add(EventFooter, themeCredit)
}

// chooseTemplate picks the template for the resolved request.
func (s *Site) chooseTemplate(args ...any) any {
	switch {
	case s.request == nil || s.request.NotFound:
		return template404
	case s.request.Slug != "":
		return templateSingle
	default:
		return args[0]
	}
}

// autop wraps blank-line separated blocks of post content in paragraphs.
func autop(args ...any) any {
	content, _ := args[0].(string)
	var b strings.Builder
	for block := range strings.SplitSeq(content, "\n\n") {
		if block = strings.TrimSpace(block); block != "" {
			b.WriteString("<p>" + block + "</p>\n")
		}
	}
	return b.String()
}

func sanitizeTitle(args ...any) any {
	title, _ := args[0].(string)
	return strings.Join(strings.Fields(title), " ")
}

func themeCredit(...any) any {
	return nil
}

type seo struct {
	site  *Site
	title string
}

func (p *seo) init(args ...any) any {
	ctx := ctxArg(args)
	name, err := p.site.Option(ctx, "blogname")
	if err != nil {
		p.site.logger.Warn().Err(err).Msg("SEO plugin failed to read blog name")
	}
	p.title = name
	p.site.hooks.DoAction(EventSEOLoaded, ctx, p)
	return nil
}

func (p *seo) head(args ...any) any {
	ctx := ctxArg(args)
	title := p.title
	if posts := p.site.posts; len(posts) == 1 && p.site.request != nil && !p.site.request.Home {
		title = posts[0].Title
	}
	if v, ok := p.site.hooks.ApplyFilters(EventDocumentTitle, title, ctx).(string); ok && p.site.request != nil {
		p.site.request.Headers.Set("X-Document-Title", v)
	}
	return nil
}

func (p *seo) documentTitle(args ...any) any {
	title, _ := args[0].(string)
	ctx := ctxArg(args)
	sep, _ := p.site.Option(ctx, "seo_separator")
	if title == p.title {
		desc, _ := p.site.Option(ctx, "blogdescription")
		return title + " " + sep + " " + desc
	}
	return title + " " + sep + " " + p.title
}

type related struct {
	site *Site
}

// attach fills in up to two related posts for every post.
func (p *related) attach(args ...any) any {
	posts, _ := args[0].([]Post)
	ctx := ctxArg(args)
	for i := range posts {
		slugs, err := p.load(ctx, posts[i].ID)
		if err != nil {
			p.site.logger.Warn().Err(err).Int("post", posts[i].ID).Msg("Failed to load related posts")
			continue
		}
		posts[i].Related = append(posts[i].Related, slugs...)
	}
	return posts
}

func (p *related) load(ctx context.Context, id int) ([]string, error) {
	rows, err := p.site.db.QueryContext(ctx,
		`SELECT slug FROM posts WHERE id <> ? ORDER BY abs(id - ?), id LIMIT 2`, id, id)
	if err != nil {
		return nil, err
	}
	defer errs.DeferClose(p.site.logger, rows, "failed to close related rows")

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("failed to scan related post: %w", err)
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

type remote struct {
	site *Site
	url  string
}

func (p *remote) ping(args ...any) any {
	status, err := p.site.Fetch(ctxArg(args), p.url)
	if err != nil {
		p.site.logger.Warn().Err(err).Str("url", p.url).Msg("Remote ping failed")
		return nil
	}
	p.site.logger.Debug().Int("status", status).Str("url", p.url).Msg("Remote ping")
	return nil
}
