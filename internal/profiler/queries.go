package profiler

import (
	"strings"

	"github.com/coral-mesh/hookprof/internal/site/querylog"
)

// QueryFilter narrows the query report to one hook and/or callback.
// Callback matches as a case-insensitive substring of the callback name.
type QueryFilter struct {
	Hook     string
	Callback string
}

func (f QueryFilter) empty() bool {
	return f.Hook == "" && f.Callback == ""
}

// ScopeFor returns the scope a run needs so that its loggers can attribute
// queries for the filter.
func (f QueryFilter) ScopeFor() Scope {
	switch {
	case f.Callback != "":
		return Hook(AllFocus)
	case f.Hook != "":
		return Hook(f.Hook)
	default:
		return None()
	}
}

// QueryRecord is one logged query with the unit that issued it.
type QueryRecord struct {
	Index int
	querylog.Query
	Hook     string
	Callback string
}

// Queries returns the logged queries, restricted to those attributed to a
// logger matching the filter when the filter is set.
func (p *Profiler) Queries(filter QueryFilter) []QueryRecord {
	if p.queries == nil {
		return nil
	}
	all := p.queries.Slice(0, p.queries.Len())

	type owner struct{ hook, callback string }
	owners := make(map[int]owner)
	if !filter.empty() {
		needle := strings.ToLower(strings.TrimSpace(filter.Callback))
		for _, l := range p.Loggers() {
			if filter.Callback != "" {
				if l.Kind != KindCallback {
					continue
				}
				if !strings.Contains(strings.ToLower(strings.TrimSpace(l.Callback)), needle) {
					continue
				}
			}
			if filter.Hook != "" && l.Hook != "" && l.Hook != filter.Hook {
				continue
			}
			for _, idx := range l.QueryIndices {
				if _, seen := owners[idx]; !seen {
					owners[idx] = owner{hook: l.Hook, callback: l.Callback}
				}
			}
		}
	}

	out := make([]QueryRecord, 0, len(all))
	for i, q := range all {
		o, ok := owners[i]
		if !filter.empty() && !ok {
			continue
		}
		out = append(out, QueryRecord{Index: i, Query: q, Hook: o.hook, Callback: o.callback})
	}
	return out
}
