package profiler

import (
	"math"
	"slices"
	"time"

	"github.com/coral-mesh/hookprof/internal/site/querylog"
)

// Kind discriminates what a Logger measures.
type Kind int

const (
	// KindSpan is an anonymous span around arbitrary code.
	KindSpan Kind = iota
	// KindStage measures one stage of the request.
	KindStage
	// KindHook measures one hook, or the gap before or after one.
	KindHook
	// KindCallback measures one listener of one hook.
	KindCallback
)

func (k Kind) String() string {
	switch k {
	case KindStage:
		return "stage"
	case KindHook:
		return "hook"
	case KindCallback:
		return "callback"
	default:
		return "span"
	}
}

// QuerySource is the append-only query log a Logger reads deltas from.
type QuerySource interface {
	Len() int
	Slice(from, to int) []querylog.Query
}

// CacheSource exposes the object cache's monotonically increasing counters.
type CacheSource interface {
	Hits() int64
	Misses() int64
}

// QueryStats is the query cost observed in a window of the query log.
type QueryStats struct {
	Count   int
	Time    time.Duration
	Indices []int
}

// QueryDelta summarizes window, the query log entries recorded since offset.
func QueryDelta(window []querylog.Query, offset int) QueryStats {
	stats := QueryStats{Count: len(window)}
	if len(window) > 0 {
		stats.Indices = make([]int, 0, len(window))
	}
	for i, q := range window {
		stats.Time += q.Elapsed
		stats.Indices = append(stats.Indices, offset+i)
	}
	return stats
}

// CacheDelta returns the hits and misses recorded since the offsets.
// Counters that went backwards (a replaced cache) count as zero.
func CacheDelta(hits, misses, hitOffset, missOffset int64) (int64, int64) {
	return max(hits-hitOffset, 0), max(misses-missOffset, 0)
}

// CacheRatio returns hits as a percentage of lookups rounded to two places,
// or nil when there were no lookups.
func CacheRatio(hits, misses int64) *float64 {
	total := hits + misses
	if total == 0 {
		return nil
	}
	ratio := math.Round(float64(hits)/float64(total)*100*100) / 100
	return &ratio
}

// Logger accumulates the cost of one unit of work across every span it was
// started and stopped for.
type Logger struct {
	Kind Kind

	// Identity. Stage is set for stage loggers, Hook for hook and callback
	// loggers, Callback and Location for callback loggers.
	Stage    string
	Hook     string
	Callback string
	Location string

	// Pseudo marks a logger measuring the gap before or after a hook.
	Pseudo bool
	// CallbackCount is the number of listeners the hook had when it fired.
	CallbackCount int

	Time         time.Duration
	QueryCount   int
	QueryTime    time.Duration
	QueryIndices []int
	CacheHits    int64
	CacheMisses  int64
	HookCount    int
	HookTime     time.Duration
	RequestCount int
	RequestTime  time.Duration

	tracker *Tracker
	// exclusive loggers leave out the time spent in nested hooks.
	exclusive bool

	running     bool
	startedAt   time.Time
	queryOffset int
	hitOffset   int64
	missOffset  int64
	hookOffset  time.Duration

	hookRunning   bool
	hookStartedAt time.Time
	hookDepth     int

	requestRunning   bool
	requestStartedAt time.Time
}

// CacheRatio returns the hit ratio over everything the logger observed.
func (l *Logger) CacheRatio() *float64 {
	return CacheRatio(l.CacheHits, l.CacheMisses)
}

// Running reports whether the logger is between Start and Stop.
func (l *Logger) Running() bool {
	return l.running
}

// Start snapshots the counters and joins the active set. Starting a running
// logger does nothing.
func (l *Logger) Start() {
	if l.running {
		return
	}
	t := l.tracker
	l.running = true
	l.startedAt = t.now()
	l.queryOffset = t.queryLen()
	l.hitOffset, l.missOffset = t.cacheCounters()
	l.hookOffset = l.HookTime
	t.activate(l)
}

// Stop folds the counter deltas since Start into the totals and leaves the
// active set. Stopping a logger that is not running only leaves the set.
func (l *Logger) Stop() {
	t := l.tracker
	defer t.deactivate(l)
	if !l.running {
		return
	}

	if l.hookRunning {
		l.hookDepth = 0
		l.StopHookTimer()
	}

	elapsed := t.now().Sub(l.startedAt)
	if l.exclusive {
		elapsed -= l.HookTime - l.hookOffset
	}
	l.Time += max(elapsed, 0)

	end := t.queryLen()
	if end > l.queryOffset {
		stats := QueryDelta(t.querySlice(l.queryOffset, end), l.queryOffset)
		l.QueryCount += stats.Count
		l.QueryTime += stats.Time
		l.QueryIndices = append(l.QueryIndices, stats.Indices...)
	}

	hits, misses := t.cacheCounters()
	dh, dm := CacheDelta(hits, misses, l.hitOffset, l.missOffset)
	l.CacheHits += dh
	l.CacheMisses += dm

	l.running = false
	l.startedAt = time.Time{}
	l.queryOffset, l.hitOffset, l.missOffset, l.hookOffset = 0, 0, 0, 0
}

// StartHookTimer marks entry into a hook. Nested entries before the matching
// StopHookTimer only deepen the timer.
func (l *Logger) StartHookTimer() {
	if l.hookRunning {
		l.hookDepth++
		return
	}
	l.HookCount++
	l.hookRunning = true
	l.hookStartedAt = l.tracker.now()
}

// StopHookTimer marks exit from a hook. The outermost exit adds the elapsed
// time to HookTime; a stop without a start does nothing.
func (l *Logger) StopHookTimer() {
	if l.hookDepth > 0 {
		l.hookDepth--
		return
	}
	if !l.hookRunning {
		return
	}
	l.HookTime += l.tracker.now().Sub(l.hookStartedAt)
	l.hookRunning = false
	l.hookStartedAt = time.Time{}
}

// StartRequestTimer marks the start of an outbound request.
func (l *Logger) StartRequestTimer() {
	l.RequestCount++
	l.requestRunning = true
	l.requestStartedAt = l.tracker.now()
}

// StopRequestTimer adds the time since StartRequestTimer to RequestTime.
func (l *Logger) StopRequestTimer() {
	if !l.requestRunning {
		return
	}
	l.RequestTime += l.tracker.now().Sub(l.requestStartedAt)
	l.requestRunning = false
	l.requestStartedAt = time.Time{}
}

// Tracker owns the set of running loggers and the counter sources they read.
type Tracker struct {
	now     func() time.Time
	queries QuerySource
	cache   CacheSource
	active  []*Logger
}

// NewTracker creates a tracker. A nil clock uses time.Now; nil sources
// report no queries and no cache traffic.
func NewTracker(now func() time.Time, queries QuerySource, cache CacheSource) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{now: now, queries: queries, cache: cache}
}

// NewLogger creates a stopped logger of the given kind.
func (t *Tracker) NewLogger(kind Kind) *Logger {
	return &Logger{Kind: kind, tracker: t}
}

// Active returns the running loggers in start order.
func (t *Tracker) Active() []*Logger {
	return slices.Clone(t.active)
}

// StartHookTimers starts the hook timer of every running logger.
func (t *Tracker) StartHookTimers() {
	for _, l := range t.Active() {
		l.StartHookTimer()
	}
}

// StopHookTimers stops the hook timer of every running logger.
func (t *Tracker) StopHookTimers() {
	for _, l := range t.Active() {
		l.StopHookTimer()
	}
}

// StartRequestTimers starts the request timer of every running logger.
func (t *Tracker) StartRequestTimers() {
	for _, l := range t.Active() {
		l.StartRequestTimer()
	}
}

// StopRequestTimers stops the request timer of every running logger.
func (t *Tracker) StopRequestTimers() {
	for _, l := range t.Active() {
		l.StopRequestTimer()
	}
}

func (t *Tracker) activate(l *Logger) {
	if !slices.Contains(t.active, l) {
		t.active = append(t.active, l)
	}
}

func (t *Tracker) deactivate(l *Logger) {
	if i := slices.Index(t.active, l); i >= 0 {
		t.active = slices.Delete(t.active, i, i+1)
	}
}

func (t *Tracker) queryLen() int {
	if t.queries == nil {
		return 0
	}
	return t.queries.Len()
}

func (t *Tracker) querySlice(from, to int) []querylog.Query {
	if t.queries == nil {
		return nil
	}
	return t.queries.Slice(from, to)
}

func (t *Tracker) cacheCounters() (int64, int64) {
	if t.cache == nil {
		return 0, 0
	}
	return t.cache.Hits(), t.cache.Misses()
}
