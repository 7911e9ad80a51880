package profiler

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// units keeps the loggers of a run in the order their units first appeared.
type units struct {
	m *orderedmap.OrderedMap[string, *Logger]
}

func newUnits() *units {
	return &units{m: orderedmap.New[string, *Logger]()}
}

func (u *units) get(key string) (*Logger, bool) {
	return u.m.Get(key)
}

func (u *units) add(key string, l *Logger) {
	u.m.Set(key, l)
}

func (u *units) list() []*Logger {
	out := make([]*Logger, 0, u.m.Len())
	for pair := u.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func stageKey(stage string) string { return "stage:" + stage }
func hookKey(hook string) string   { return "hook:" + hook }

func callbackKey(hook, slot string) string { return "callback:" + hook + "/" + slot }
