package profiler

import (
	"math"
	"slices"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/hookprof/internal/hooks"
)

// Listener slot ids owned by the interceptor.
const (
	beginID        = "hookprof:begin"
	endID          = "hookprof:end"
	requestBeginID = "hookprof:request-begin"
	requestEndID   = "hookprof:request-end"
)

// Host events bracketing an outbound HTTP request.
const (
	EventRequestBegin = "pre_http_request"
	EventRequestEnd   = "http_api_debug"
)

// wrapped is the one hook whose listener table is currently replaced by
// timing wrappers, with the table to put back.
type wrapped struct {
	hook  string
	saved hooks.Table
}

// callbackUnit is the cached identity of one listener slot on one hook.
type callbackUnit struct {
	key      string
	hook     string
	callable Callable
	logger   *Logger
}

// Interceptor turns host dispatches into logger activity. It listens on the
// catch-all event ahead of every other listener and, for each event, adds a
// listener behind every other one to observe the exit.
type Interceptor struct {
	registry *hooks.Registry
	tracker  *Tracker
	scope    Scope
	units    *units
	roots    []string
	log      zerolog.Logger

	stageHooks []string
	// frames holds, per nested dispatch, the hook unit it opened or nil.
	frames    []*Logger
	wrapped   *wrapped
	callbacks map[string]*callbackUnit
	open      map[*Logger]int
	// running is the closing pseudo unit of the current stage.
	running *Logger
}

func newInterceptor(registry *hooks.Registry, tracker *Tracker, scope Scope, u *units, roots []string, log zerolog.Logger) *Interceptor {
	return &Interceptor{
		registry:  registry,
		tracker:   tracker,
		scope:     scope,
		units:     u,
		roots:     roots,
		log:       log,
		callbacks: make(map[string]*callbackUnit),
		open:      make(map[*Logger]int),
	}
}

// Install registers the dispatch and request listeners. Installing twice is
// harmless.
func (i *Interceptor) Install() {
	i.registry.Add(hooks.All, i.begin,
		hooks.WithID(beginID), hooks.WithPriority(math.MinInt), hooks.WithAcceptedArgs(0))
	i.registry.Add(EventRequestBegin, i.requestBegin, hooks.WithID(requestBeginID))
	i.registry.Add(EventRequestEnd, i.requestEnd, hooks.WithID(requestEndID))
}

// Depth returns how many dispatches the interceptor has entered and not yet
// left.
func (i *Interceptor) Depth() int {
	return len(i.frames)
}

// SetStageHooks switches the boundary hooks being profiled and opens the
// unit covering the time before the first of them.
func (i *Interceptor) SetStageHooks(hooks []string) {
	i.stageHooks = hooks
	if len(hooks) == 0 {
		return
	}
	i.pseudo(hooks[0] + ":before").Start()
}

// CloseRunning stops the closing pseudo unit of the stage that just ended.
func (i *Interceptor) CloseRunning() {
	if i.running != nil {
		i.running.Stop()
		i.running = nil
	}
}

// Finish stops every unit still open and puts back any wrapped listener
// table. It is a no-op while a dispatch is in progress.
func (i *Interceptor) Finish() {
	if i.registry.Depth() > 0 {
		return
	}
	i.resync(0)
	i.CloseRunning()
	for _, l := range i.units.list() {
		if l.Kind == KindHook && l.Pseudo && l.Running() {
			i.log.Debug().Str("hook", l.Hook).Msg("Closing pseudo unit whose hook never fired")
			l.Stop()
		}
	}
	i.restore()
}

func (i *Interceptor) begin(...any) any {
	event := i.registry.Current()
	if event == hooks.All {
		return nil
	}
	i.resync(i.registry.Depth() - 1)

	i.tracker.StartHookTimers()

	var unit *Logger
	if i.scope.Tracks(event, i.stageHooks) {
		if p, ok := i.units.get(hookKey(event + ":before")); ok {
			p.Stop()
		}
		unit = i.hookUnit(event)
		unit.CallbackCount = i.callbackCount(event)
		i.enter(unit)
	}

	if len(i.frames) == 0 {
		i.restore()
		if i.scope.Wraps(event) {
			i.wrap(event)
		}
	}

	i.frames = append(i.frames, unit)

	i.registry.Add(event, i.end,
		hooks.WithID(endID), hooks.WithPriority(math.MaxInt), hooks.WithAcceptedArgs(1))
	return nil
}

func (i *Interceptor) end(args ...any) any {
	event := i.registry.Current()

	i.tracker.StopHookTimers()

	if n := len(i.frames); n > 0 {
		unit := i.frames[n-1]
		i.frames = i.frames[:n-1]
		if unit != nil {
			i.leave(unit)
			if i.scope.Type == ScopeStage {
				i.openNext(event)
			}
		}
	}

	if len(args) > 0 {
		return args[0]
	}
	return nil
}

// openNext starts the gap unit that follows a boundary hook: the time before
// the next boundary hook, or after the last one.
func (i *Interceptor) openNext(event string) {
	idx := slices.Index(i.stageHooks, event)
	if idx >= 0 && idx+1 < len(i.stageHooks) {
		i.pseudo(i.stageHooks[idx+1] + ":before").Start()
		return
	}
	p := i.pseudo(event + ":after")
	p.Start()
	i.running = p
}

// resync unwinds frames whose dispatch ended without reaching the exit
// listener, which happens when a listener panics.
func (i *Interceptor) resync(depth int) {
	for len(i.frames) > max(depth, 0) {
		n := len(i.frames)
		unit := i.frames[n-1]
		i.frames = i.frames[:n-1]
		i.tracker.StopHookTimers()
		if unit != nil {
			i.leave(unit)
		}
	}
}

func (i *Interceptor) wrap(event string) {
	table, ok := i.registry.Callbacks(event)
	if !ok {
		return
	}
	i.wrapped = &wrapped{hook: event, saved: table.Clone()}
	for pi := range table {
		for ei, e := range table[pi].Entries {
			if e.ID == endID {
				continue
			}
			table[pi].Entries[ei].Callback = i.wrapCallback(event, e)
		}
	}
	i.registry.SetCallbacks(event, table)
}

func (i *Interceptor) restore() {
	if i.wrapped == nil {
		return
	}
	i.registry.SetCallbacks(i.wrapped.hook, i.wrapped.saved)
	i.wrapped = nil
}

func (i *Interceptor) wrapCallback(event string, e hooks.Entry) hooks.Callback {
	key := callbackKey(event, e.ID)
	cu, ok := i.callbacks[key]
	if !ok {
		cu = &callbackUnit{key: key, hook: event, callable: Describe(e.Callback)}
		i.callbacks[key] = cu
	}
	original := e.Callback
	return func(args ...any) any {
		l := i.callbackLogger(cu)
		i.enter(l)
		defer i.leave(l)
		return original(args...)
	}
}

func (i *Interceptor) callbackLogger(cu *callbackUnit) *Logger {
	if cu.logger != nil {
		return cu.logger
	}
	l := i.tracker.NewLogger(KindCallback)
	l.Hook = cu.hook
	l.Callback = cu.callable.Name()
	l.Location = ShortLocation(cu.callable.Location(), i.roots)
	l.exclusive = true
	cu.logger = l
	i.units.add(cu.key, l)
	return l
}

func (i *Interceptor) hookUnit(event string) *Logger {
	key := hookKey(event)
	if l, ok := i.units.get(key); ok {
		return l
	}
	l := i.tracker.NewLogger(KindHook)
	l.Hook = event
	l.exclusive = i.scope.Type == ScopeAllHooks
	i.units.add(key, l)
	return l
}

func (i *Interceptor) pseudo(name string) *Logger {
	key := hookKey(name)
	if l, ok := i.units.get(key); ok {
		return l
	}
	l := i.tracker.NewLogger(KindHook)
	l.Hook = name
	l.Pseudo = true
	i.units.add(key, l)
	return l
}

// callbackCount counts the host's listeners, leaving out the exit listener.
func (i *Interceptor) callbackCount(event string) int {
	n := i.registry.Count(event)
	if table, ok := i.registry.Callbacks(event); ok {
		for _, e := range table.Entries() {
			if e.ID == endID {
				n--
			}
		}
	}
	return n
}

// enter and leave depth-count a unit so that a unit re-entered while open
// is started and stopped once.
func (i *Interceptor) enter(l *Logger) {
	if i.open[l] == 0 {
		l.Start()
	}
	i.open[l]++
}

func (i *Interceptor) leave(l *Logger) {
	n := i.open[l]
	if n <= 1 {
		delete(i.open, l)
		l.Stop()
		return
	}
	i.open[l] = n - 1
}

func (i *Interceptor) requestBegin(args ...any) any {
	i.tracker.StartRequestTimers()
	if len(args) > 0 {
		return args[0]
	}
	return nil
}

func (i *Interceptor) requestEnd(...any) any {
	i.tracker.StopRequestTimers()
	return nil
}
