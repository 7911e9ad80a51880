package profiler

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/coral-mesh/hookprof/internal/hooks"
)

// CallableKind tells how a listener was bound.
type CallableKind int

const (
	// CallableUnknown could not be resolved to a symbol.
	CallableUnknown CallableKind = iota
	// CallableFunction is a package-level function.
	CallableFunction
	// CallableMethod is a method bound to a receiver.
	CallableMethod
	// CallableStatic is a method expression, called with the receiver as an
	// argument.
	CallableStatic
	// CallableClosure is a function literal.
	CallableClosure
)

// Callable describes an opaque listener for reports.
type Callable struct {
	Kind CallableKind
	// Symbol is the runtime symbol, e.g. "example.com/site.(*SEO).Head-fm".
	Symbol string
	File   string
	Line   int
}

// Describe resolves fn to a Callable. It reflects once; callers cache the
// result.
func Describe(fn any) Callable {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return Callable{}
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return Callable{}
	}
	c := Callable{Symbol: f.Name()}
	c.Kind = symbolKind(c.Symbol)
	// Method value wrappers are compiler generated and carry no position.
	if file, line := f.FileLine(f.Entry()); !strings.HasPrefix(file, "<") {
		c.File, c.Line = file, line
	}
	return c
}

func symbolKind(symbol string) CallableKind {
	switch {
	case symbol == "":
		return CallableUnknown
	case hooks.IsClosureName(symbol):
		return CallableClosure
	case strings.HasSuffix(symbol, "-fm"):
		return CallableMethod
	case len(symbolParts(symbol)) > 2:
		return CallableStatic
	default:
		return CallableFunction
	}
}

// symbolParts splits "path/to/pkg.(*T).M" into ["pkg", "T", "M"]. Type
// argument lists are dropped and escaped dots in the package name restored,
// so "gopkg.in/yaml%2ev3.Marshal" yields ["yaml.v3", "Marshal"].
func symbolParts(symbol string) []string {
	base := strings.ReplaceAll(symbol, "[...]", "")
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, "-fm")
	parts := strings.Split(base, ".")
	for i, p := range parts {
		p = strings.TrimSuffix(strings.TrimPrefix(p, "(*"), ")")
		parts[i] = strings.ReplaceAll(p, "%2e", ".")
	}
	return parts
}

// Name renders the callable the way reports show it: "pkg.Func()",
// "pkg.Type->Method()", "pkg.Type::Method()" or "closure".
func (c Callable) Name() string {
	parts := symbolParts(c.Symbol)
	switch c.Kind {
	case CallableClosure:
		return "closure"
	case CallableMethod, CallableStatic:
		sep := "->"
		if c.Kind == CallableStatic {
			sep = "::"
		}
		n := len(parts)
		if n < 2 {
			return c.Symbol + "()"
		}
		return strings.Join(parts[:n-1], ".") + sep + parts[n-1] + "()"
	case CallableFunction:
		return strings.Join(parts, ".") + "()"
	default:
		return ""
	}
}

// Location returns "file:line", or "" when the source is unknown.
func (c Callable) Location() string {
	if c.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.File, c.Line)
}

func (c Callable) String() string {
	return c.Name()
}

// ShortLocation trims the first matching root from location, compared
// case-insensitively. Module cache paths are cut after "/pkg/mod/".
func ShortLocation(location string, roots []string) string {
	lower := strings.ToLower(location)
	for _, root := range roots {
		if root == "" {
			continue
		}
		root = strings.TrimSuffix(root, "/") + "/"
		if strings.HasPrefix(lower, strings.ToLower(root)) {
			return location[len(root):]
		}
	}
	if i := strings.Index(location, "/pkg/mod/"); i >= 0 {
		return location[i+len("/pkg/mod/"):]
	}
	return location
}
