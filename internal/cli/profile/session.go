package profile

import (
	"os"

	"github.com/coral-mesh/hookprof/internal/cli/helpers"
	errs "github.com/coral-mesh/hookprof/internal/errors"
	"github.com/coral-mesh/hookprof/internal/logging"
	"github.com/coral-mesh/hookprof/internal/profiler"
	"github.com/coral-mesh/hookprof/internal/site"
)

// session is one site request under a profiler.
type session struct {
	site     *site.Site
	profiler *profiler.Profiler
}

// newSession builds the site from the configuration and attaches a profiler
// with the given scope. url overrides the configured request URL.
func newSession(env *helpers.Env, url string, scope profiler.Scope) (*session, error) {
	cfg := env.Config
	opts := cfg.SiteOptions()
	if url != "" {
		opts.URL = url
	}

	s, err := site.New(opts, site.WithLogger(logging.WithComponent(env.Logger, "site")))
	if err != nil {
		return nil, err
	}

	var roots []string
	if wd, err := os.Getwd(); err == nil {
		roots = append(roots, wd)
	}
	roots = append(roots, cfg.Profiler.LocationRoots...)

	p, err := profiler.New(s, scope,
		profiler.WithQuerySource(s.Queries()),
		profiler.WithCacheSource(s.Cache()),
		profiler.WithLogger(logging.WithComponent(env.Logger, "profiler")),
		profiler.WithStageHooks(cfg.StageHooks()),
		profiler.WithLocationRoots(roots...),
	)
	if err != nil {
		errs.DeferClose(env.Logger, s, "failed to close site")
		return nil, err
	}
	return &session{site: s, profiler: p}, nil
}

func (s *session) Close() error {
	return s.site.Close()
}

func loggerRows(loggers []*profiler.Logger) []helpers.Row {
	rows := make([]helpers.Row, 0, len(loggers))
	for _, l := range loggers {
		rows = append(rows, l.Record())
	}
	return rows
}
