// Package profiler measures where a site request spends its time.
//
// A Profiler drives the site through its bootstrap, request resolution and
// template rendering while an Interceptor listens on every dispatched hook.
// Depending on the Scope, it reports one Logger per stage, per boundary hook
// of a stage, per hook, or per callback of a hook. Every Logger carries wall
// time plus the query, object cache, hook and outbound request cost observed
// while it was running.
package profiler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/hookprof/internal/hooks"
)

// ErrSaveQueriesDisabled is returned when the site configuration turns the
// query log off explicitly.
var ErrSaveQueriesDisabled = errors.New("save_queries is set to false and must be true; check the site configuration")

// Host is the site being profiled.
type Host interface {
	// Hooks returns the site's event registry.
	Hooks() *hooks.Registry
	// SaveQueries returns the configured query log setting, nil when unset.
	SaveQueries() *bool
	// EnableSaveQueries turns the query log on.
	EnableSaveQueries()
	// Loaded reports whether the site has already bootstrapped.
	Loaded() bool

	Bootstrap(ctx context.Context) error
	ResolveRequest(ctx context.Context) error
	RenderTemplate(ctx context.Context) error
}

// Option configures a Profiler.
type Option func(*Profiler)

// WithQuerySource sets the query log loggers read from.
func WithQuerySource(q QuerySource) Option {
	return func(p *Profiler) { p.queries = q }
}

// WithCacheSource sets the object cache counters loggers read from.
func WithCacheSource(c CacheSource) Option {
	return func(p *Profiler) { p.cache = c }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Profiler) { p.now = now }
}

// WithLogger sets the logger for run diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Profiler) { p.logger = logger }
}

// WithStageHooks replaces the boundary hooks of the stages it names.
func WithStageHooks(stages StageHooks) Option {
	return func(p *Profiler) {
		for name, list := range stages {
			if len(list) > 0 {
				p.stages[name] = list
			}
		}
	}
}

// WithLocationRoots sets the directories trimmed from callback locations.
func WithLocationRoots(roots ...string) Option {
	return func(p *Profiler) { p.roots = roots }
}

// Profiler runs the site once under instrumentation.
type Profiler struct {
	host   Host
	scope  Scope
	stages StageHooks
	roots  []string
	logger zerolog.Logger

	now     func() time.Time
	queries QuerySource
	cache   CacheSource

	tracker     *Tracker
	units       *units
	interceptor *Interceptor
	runID       string
	installed   bool
}

// New creates a profiler for host. It fails with ErrInvalidStage when the
// scope focuses on a stage that does not exist.
func New(host Host, scope Scope, opts ...Option) (*Profiler, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	p := &Profiler{
		host:   host,
		scope:  scope,
		stages: DefaultStageHooks(),
		logger: zerolog.Nop(),
		units:  newUnits(),
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("run_id", p.runID).Logger()
	p.tracker = NewTracker(p.now, p.queries, p.cache)
	p.interceptor = newInterceptor(host.Hooks(), p.tracker, scope, p.units, p.roots, p.logger)
	return p, nil
}

// RunID identifies this profiling run in logs.
func (p *Profiler) RunID() string {
	return p.runID
}

// Scope returns the profiling scope.
func (p *Profiler) Scope() Scope {
	return p.scope
}

// Tracker returns the tracker owning the run's loggers.
func (p *Profiler) Tracker() *Tracker {
	return p.tracker
}

type step struct {
	stage string
	run   func(context.Context) error
}

// Run bootstraps the site, resolves the request and renders the template
// with the interceptor installed. A site that has already bootstrapped is
// left alone. Open units are stopped and wrapped listeners put back on every
// return path.
func (p *Profiler) Run(ctx context.Context) error {
	if sq := p.host.SaveQueries(); sq != nil && !*sq {
		return ErrSaveQueriesDisabled
	}
	p.host.EnableSaveQueries()

	p.install()
	defer p.interceptor.Finish()

	if p.host.Loaded() {
		p.logger.Warn().Msg("Site already bootstrapped, nothing to profile")
		return nil
	}

	p.logger.Info().Str("scope", p.scope.String()).Msg("Profiling site request")
	start := time.Now()

	if p.scope.Type == ScopeStage && p.scope.Focus == AllFocus {
		p.interceptor.SetStageHooks(p.stages.Merged())
	}

	steps := []step{
		{StageBootstrap, p.host.Bootstrap},
		{StageMainQuery, p.host.ResolveRequest},
		{StageTemplate, p.host.RenderTemplate},
	}
	for _, s := range steps {
		if err := p.runStep(ctx, s); err != nil {
			return err
		}
	}

	p.logger.Info().
		Dur("elapsed", time.Since(start)).
		Int("units", p.units.m.Len()).
		Msg("Profiling finished")
	return nil
}

func (p *Profiler) runStep(ctx context.Context, s step) error {
	var overview *Logger
	switch {
	case p.scope.Type == ScopeStage && p.scope.Focus == s.stage:
		p.interceptor.SetStageHooks(p.stages[s.stage])
	case p.scope.Overview():
		overview = p.tracker.NewLogger(KindStage)
		overview.Stage = s.stage
		overview.Start()
	}

	p.logger.Debug().Str("stage", s.stage).Msg("Running stage")
	err := s.run(ctx)

	p.interceptor.CloseRunning()
	if overview != nil {
		overview.Stop()
		p.units.add(stageKey(s.stage), overview)
	}
	if err != nil {
		return fmt.Errorf("%s stage failed: %w", s.stage, err)
	}
	return nil
}

func (p *Profiler) install() {
	if p.installed {
		return
	}
	p.interceptor.Install()
	p.installed = true
}

// Measure runs fn after Run. Hook scopes report through the interceptor and
// return every unit; other scopes time fn as a single span.
func (p *Profiler) Measure(fn func() error) ([]*Logger, error) {
	p.install()
	if p.scope.HookScoped() {
		err := fn()
		p.interceptor.Finish()
		return p.Loggers(), err
	}

	span := p.tracker.NewLogger(KindSpan)
	span.Start()
	err := fn()
	span.Stop()
	return []*Logger{span}, err
}

// Loggers returns the run's loggers in the order their units first appeared.
func (p *Profiler) Loggers() []*Logger {
	return p.units.list()
}
