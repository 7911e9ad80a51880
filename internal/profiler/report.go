package profiler

import (
	"strconv"
)

// Report field names.
const (
	FieldStage         = "stage"
	FieldHook          = "hook"
	FieldCallback      = "callback"
	FieldLocation      = "location"
	FieldCallbackCount = "callback_count"
	FieldTime          = "time"
	FieldQueryTime     = "query_time"
	FieldQueryCount    = "query_count"
	FieldCacheRatio    = "cache_ratio"
	FieldCacheHits     = "cache_hits"
	FieldCacheMisses   = "cache_misses"
	FieldHookTime      = "hook_time"
	FieldHookCount     = "hook_count"
	FieldRequestTime   = "request_time"
	FieldRequestCount  = "request_count"
)

// UnitMetrics are the metrics reported for hooks, callbacks and spans.
var UnitMetrics = []string{
	FieldTime,
	FieldQueryTime,
	FieldQueryCount,
	FieldCacheRatio,
	FieldCacheHits,
	FieldCacheMisses,
	FieldRequestTime,
	FieldRequestCount,
}

// StageMetrics are the metrics reported for whole stages.
var StageMetrics = []string{
	FieldTime,
	FieldQueryTime,
	FieldQueryCount,
	FieldCacheRatio,
	FieldCacheHits,
	FieldCacheMisses,
	FieldHookTime,
	FieldHookCount,
	FieldRequestTime,
	FieldRequestCount,
}

// FormatRatio renders a cache ratio as "93.21%", or "" when undefined.
func FormatRatio(ratio *float64) string {
	if ratio == nil {
		return ""
	}
	return strconv.FormatFloat(*ratio, 'f', -1, 64) + "%"
}

// Record returns the logger's report fields. Durations are seconds; the
// cache ratio is a percentage string or nil. Identity fields that do not
// apply to the logger's kind are absent.
func (l *Logger) Record() map[string]any {
	r := map[string]any{
		FieldTime:         l.Time.Seconds(),
		FieldQueryTime:    l.QueryTime.Seconds(),
		FieldQueryCount:   l.QueryCount,
		FieldCacheHits:    l.CacheHits,
		FieldCacheMisses:  l.CacheMisses,
		FieldHookTime:     l.HookTime.Seconds(),
		FieldHookCount:    l.HookCount,
		FieldRequestTime:  l.RequestTime.Seconds(),
		FieldRequestCount: l.RequestCount,
		FieldCacheRatio:   nil,
	}
	if ratio := l.CacheRatio(); ratio != nil {
		r[FieldCacheRatio] = FormatRatio(ratio)
	}

	switch l.Kind {
	case KindStage:
		r[FieldStage] = l.Stage
	case KindHook:
		r[FieldHook] = l.Hook
		if !l.Pseudo {
			r[FieldCallbackCount] = l.CallbackCount
		}
	case KindCallback:
		r[FieldHook] = l.Hook
		r[FieldCallback] = l.Callback
		r[FieldLocation] = l.Location
	}
	return r
}

// Record returns the query's report fields. Hook and callback are nil for
// queries no unit claimed.
func (q QueryRecord) Record() map[string]any {
	return map[string]any{
		"query":       q.SQL,
		FieldTime:     q.Elapsed.Seconds(),
		"caller":      q.Caller,
		FieldHook:     orNil(q.Hook),
		FieldCallback: orNil(q.Callback),
	}
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
