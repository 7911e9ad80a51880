package testutil

import (
	"github.com/coral-mesh/hookprof/internal/hooks"
)

// EventRecorder records the name of every event dispatched on a registry.
type EventRecorder struct {
	events []string
}

// RecordEvents attaches a recorder to the registry's catch-all event.
func RecordEvents(r *hooks.Registry) *EventRecorder {
	rec := &EventRecorder{}
	r.Add(hooks.All, func(args ...any) any {
		if name, ok := args[0].(string); ok {
			rec.events = append(rec.events, name)
		}
		return nil
	}, hooks.WithID("testutil:recorder"))
	return rec
}

// Events returns the recorded event names in dispatch order.
func (r *EventRecorder) Events() []string {
	return append([]string(nil), r.events...)
}

// Count returns how many times the event was dispatched.
func (r *EventRecorder) Count(name string) int {
	n := 0
	for _, e := range r.events {
		if e == name {
			n++
		}
	}
	return n
}
