package profiler

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// AllFocus selects every hook or every stage.
const AllFocus = "all"

// Stage names, in request order.
const (
	StageBootstrap = "bootstrap"
	StageMainQuery = "main_query"
	StageTemplate  = "template"
)

// StageNames lists the stages in the order the request runs them.
var StageNames = []string{StageBootstrap, StageMainQuery, StageTemplate}

// ErrInvalidStage is returned for a stage focus that names no stage.
var ErrInvalidStage = errors.New("invalid stage")

// StageHooks maps each stage to its ordered boundary hooks.
type StageHooks map[string][]string

// DefaultStageHooks returns the boundary hooks the site fires per stage.
func DefaultStageHooks() StageHooks {
	return StageHooks{
		StageBootstrap: {
			"mu_plugins_loaded",
			"plugins_loaded",
			"setup_theme",
			"after_setup_theme",
			"init",
			"loaded",
		},
		StageMainQuery: {
			"parse_request",
			"send_headers",
			"pre_get_posts",
			"the_posts",
			"request_resolved",
		},
		StageTemplate: {
			"template_redirect",
			"template_include",
			"head",
			"loop_start",
			"loop_end",
			"footer",
		},
	}
}

// Merged returns every stage's hooks in request order.
func (s StageHooks) Merged() []string {
	var out []string
	for _, name := range StageNames {
		out = append(out, s[name]...)
	}
	return out
}

// ScopeType is the granularity a profiling run reports at.
type ScopeType int

const (
	// ScopeNone tracks nothing beyond explicit spans.
	ScopeNone ScopeType = iota
	// ScopeAllHooks opens one unit per hook.
	ScopeAllHooks
	// ScopeHook opens one unit per callback of the focused hook.
	ScopeHook
	// ScopeStage opens one unit per stage, or per boundary hook of the
	// focused stage.
	ScopeStage
)

// Scope decides which dispatched hooks become units of their own.
type Scope struct {
	Type  ScopeType
	Focus string
}

// None returns a scope that tracks nothing.
func None() Scope { return Scope{Type: ScopeNone} }

// AllHooks returns a scope tracking every hook.
func AllHooks() Scope { return Scope{Type: ScopeAllHooks} }

// Hook returns a scope tracking the callbacks of the named hook. AllFocus
// tracks the callbacks of every hook; an empty name tracks every hook.
func Hook(name string) Scope {
	if name == "" {
		return AllHooks()
	}
	return Scope{Type: ScopeHook, Focus: name}
}

// Stage returns a scope tracking the boundary hooks of the named stage.
// AllFocus merges every stage; an empty name tracks whole stages.
func Stage(name string) Scope {
	return Scope{Type: ScopeStage, Focus: name}
}

// Overview reports whether the scope tracks whole stages.
func (s Scope) Overview() bool {
	return s.Type == ScopeStage && s.Focus == ""
}

// HookScoped reports whether the scope reports hooks or callbacks.
func (s Scope) HookScoped() bool {
	return s.Type == ScopeAllHooks || s.Type == ScopeHook
}

// Validate checks a stage focus against the known stages.
func (s Scope) Validate() error {
	if s.Type != ScopeStage || s.Focus == "" || s.Focus == AllFocus {
		return nil
	}
	if !slices.Contains(StageNames, s.Focus) {
		return fmt.Errorf("%w %q: must be one of %s, or use --all",
			ErrInvalidStage, s.Focus, strings.Join(StageNames, ", "))
	}
	return nil
}

// Tracks reports whether the hook opens a unit of its own, given the
// boundary hooks of the stage currently being profiled.
func (s Scope) Tracks(hook string, stageHooks []string) bool {
	switch s.Type {
	case ScopeAllHooks:
		return true
	case ScopeStage:
		return s.Focus != "" && slices.Contains(stageHooks, hook)
	default:
		return false
	}
}

// Wraps reports whether the hook's callbacks are individually timed.
func (s Scope) Wraps(hook string) bool {
	return s.Type == ScopeHook && (s.Focus == AllFocus || s.Focus == hook)
}

func (s Scope) String() string {
	switch s.Type {
	case ScopeAllHooks:
		return "hooks"
	case ScopeHook:
		return "hook:" + s.Focus
	case ScopeStage:
		if s.Focus == "" {
			return "stages"
		}
		return "stage:" + s.Focus
	default:
		return "none"
	}
}
