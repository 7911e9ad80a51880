// Package hooks implements the host's synchronous, re-entrant event dispatch.
//
// Listeners are registered against a named event with a priority; lower
// priorities run first. Every dispatch first notifies the listeners of the
// catch-all event All, then walks the event's own listener table. The table
// is re-read between priorities, so a listener added while the event is being
// dispatched still runs in the current pass when its priority is later than
// the one currently executing.
package hooks

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"
)

// All is the catch-all event. Its listeners receive the dispatched event name
// followed by the dispatch arguments.
const All = "all"

// DefaultPriority is the priority used when none is given.
const DefaultPriority = 10

// Callback is a listener. For filters the first argument is the value being
// filtered and the return value replaces it; for actions the return value is
// ignored.
type Callback func(args ...any) any

// Entry is one registered listener slot.
type Entry struct {
	ID           string
	Callback     Callback
	AcceptedArgs int
}

// Priority groups the listeners registered at the same priority, in
// registration order.
type Priority struct {
	Priority int
	Entries  []Entry
}

// Table is the listener table of one event, sorted by ascending priority.
type Table []Priority

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	for i, p := range t {
		out[i] = Priority{
			Priority: p.Priority,
			Entries:  append([]Entry(nil), p.Entries...),
		}
	}
	return out
}

// Count returns the number of listeners in the table.
func (t Table) Count() int {
	n := 0
	for _, p := range t {
		n += len(p.Entries)
	}
	return n
}

// Entries returns the listeners in dispatch order.
func (t Table) Entries() []Entry {
	out := make([]Entry, 0, t.Count())
	for _, p := range t {
		out = append(out, p.Entries...)
	}
	return out
}

// next returns the index of the first bucket with a priority strictly greater
// than after, or the first bucket when first is true.
func (t Table) next(after int, first bool) int {
	for i, p := range t {
		if first || p.Priority > after {
			return i
		}
	}
	return -1
}

type addOptions struct {
	id           string
	priority     int
	acceptedArgs int
}

// Option configures a listener registration.
type Option func(*addOptions)

// WithPriority sets the listener priority.
func WithPriority(priority int) Option {
	return func(o *addOptions) { o.priority = priority }
}

// WithAcceptedArgs sets how many dispatch arguments the listener receives.
func WithAcceptedArgs(n int) Option {
	return func(o *addOptions) { o.acceptedArgs = n }
}

// WithID sets the slot id. Registering the same id twice at the same
// priority is a no-op.
func WithID(id string) Option {
	return func(o *addOptions) { o.id = id }
}

// Registry holds the listener tables of every event and the stack of events
// currently being dispatched.
type Registry struct {
	tables map[string]Table
	stack  []string
	fired  map[string]int
	seq    int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tables: make(map[string]Table),
		fired:  make(map[string]int),
	}
}

// Add registers fn on the named event and returns its slot id.
func (r *Registry) Add(name string, fn Callback, opts ...Option) string {
	o := addOptions{priority: DefaultPriority, acceptedArgs: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = r.slotID(fn)
	}

	t := r.tables[name]
	idx := sort.Search(len(t), func(i int) bool { return t[i].Priority >= o.priority })
	entry := Entry{ID: o.id, Callback: fn, AcceptedArgs: o.acceptedArgs}

	if idx < len(t) && t[idx].Priority == o.priority {
		for _, e := range t[idx].Entries {
			if e.ID == o.id {
				return o.id
			}
		}
		// Copy on write: an in-flight dispatch may hold the old slice.
		out := t.Clone()
		out[idx].Entries = append(out[idx].Entries, entry)
		r.tables[name] = out
		return o.id
	}

	out := make(Table, 0, len(t)+1)
	out = append(out, t[:idx]...)
	out = append(out, Priority{Priority: o.priority, Entries: []Entry{entry}})
	out = append(out, t[idx:]...)
	r.tables[name] = out
	return o.id
}

// Remove unregisters the slot id from the event. It reports whether a
// listener was removed.
func (r *Registry) Remove(name, id string) bool {
	t, ok := r.tables[name]
	if !ok {
		return false
	}
	for i, p := range t {
		for j, e := range p.Entries {
			if e.ID != id {
				continue
			}
			entries := make([]Entry, 0, len(p.Entries)-1)
			entries = append(entries, p.Entries[:j]...)
			entries = append(entries, p.Entries[j+1:]...)
			out := t.Clone()
			if len(entries) == 0 {
				out = append(out[:i], out[i+1:]...)
			} else {
				out[i].Entries = entries
			}
			r.tables[name] = out
			return true
		}
	}
	return false
}

// RemoveAll drops every listener of the event.
func (r *Registry) RemoveAll(name string) {
	delete(r.tables, name)
}

// Has reports whether the event has a listener table.
func (r *Registry) Has(name string) bool {
	_, ok := r.tables[name]
	return ok
}

// Count returns the number of listeners registered on the event.
func (r *Registry) Count(name string) int {
	return r.tables[name].Count()
}

// Callbacks returns a copy of the event's listener table.
func (r *Registry) Callbacks(name string) (Table, bool) {
	t, ok := r.tables[name]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// SetCallbacks replaces the event's listener table.
func (r *Registry) SetCallbacks(name string, t Table) {
	r.tables[name] = t.Clone()
}

// Current returns the innermost event being dispatched, or "" when idle.
func (r *Registry) Current() string {
	if len(r.stack) == 0 {
		return ""
	}
	return r.stack[len(r.stack)-1]
}

// Depth returns the number of nested dispatches in progress.
func (r *Registry) Depth() int {
	return len(r.stack)
}

// Doing reports whether the event is anywhere on the dispatch stack.
func (r *Registry) Doing(name string) bool {
	for _, s := range r.stack {
		if s == name {
			return true
		}
	}
	return false
}

// Fired returns how many times the event has been dispatched.
func (r *Registry) Fired(name string) int {
	return r.fired[name]
}

// ApplyFilters dispatches a filter and returns the filtered value.
func (r *Registry) ApplyFilters(name string, value any, args ...any) any {
	all := make([]any, 0, len(args)+1)
	all = append(all, value)
	all = append(all, args...)
	return r.dispatch(name, true, all)
}

// DoAction dispatches an action.
func (r *Registry) DoAction(name string, args ...any) {
	r.dispatch(name, false, append([]any(nil), args...))
}

func (r *Registry) dispatch(name string, filter bool, args []any) any {
	r.fired[name]++
	r.stack = append(r.stack, name)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	if name != All {
		if _, ok := r.tables[All]; ok {
			r.callAll(name, args)
		}
	}

	var value any
	if len(args) > 0 {
		value = args[0]
	}

	after, first := 0, true
	for {
		t := r.tables[name]
		i := t.next(after, first)
		if i < 0 {
			break
		}
		bucket := t[i]
		for _, e := range bucket.Entries {
			out := e.Callback(limitArgs(args, e.AcceptedArgs)...)
			if filter {
				value = out
				args[0] = value
			}
		}
		after, first = bucket.Priority, false
	}
	return value
}

func (r *Registry) callAll(name string, args []any) {
	withName := make([]any, 0, len(args)+1)
	withName = append(withName, name)
	withName = append(withName, args...)

	after, first := 0, true
	for {
		t := r.tables[All]
		i := t.next(after, first)
		if i < 0 {
			return
		}
		bucket := t[i]
		for _, e := range bucket.Entries {
			e.Callback(withName...)
		}
		after, first = bucket.Priority, false
	}
}

func limitArgs(args []any, n int) []any {
	if n < 0 || n >= len(args) {
		return append([]any(nil), args...)
	}
	return append([]any(nil), args[:n]...)
}

// slotID names a listener after its function. Named functions share one slot
// per event; methods and closures get a unique slot per registration since
// distinct receivers or captures share the same code.
func (r *Registry) slotID(fn Callback) string {
	name := FuncName(fn)
	if name != "" && !strings.HasSuffix(name, "-fm") && !IsClosureName(name) {
		return name
	}
	r.seq++
	return fmt.Sprintf("%s#%d", name, r.seq)
}

// FuncName returns the runtime symbol name of a function value.
func FuncName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	return f.Name()
}

// IsClosureName reports whether a runtime symbol name denotes a function
// literal (pkg.F.func1, pkg.glob..func2, pkg.(*T).M.func1.3).
func IsClosureName(name string) bool {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	for _, seg := range strings.Split(name, ".") {
		if len(seg) > 4 && strings.HasPrefix(seg, "func") && isDigits(seg[4:]) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}
