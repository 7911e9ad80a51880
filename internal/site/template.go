package site

import (
	"context"
	"fmt"
	"html/template"
)

const (
	templateIndex  = "index"
	templateSingle = "single"
	template404    = "404"
)

const layout = `
{{define "header"}}<!doctype html>
<html><head><title>{{head}}</title></head><body>{{end}}
{{define "footer"}}{{footer}}</body></html>{{end}}
{{define "loop"}}{{loopStart}}{{range .}}<article id="post-{{.ID}}"><h2>{{.Title}}</h2>{{content .}}{{if .Related}}<ul>{{range .Related}}<li>{{.}}</li>{{end}}</ul>{{end}}</article>{{end}}{{loopEnd}}{{end}}
{{define "index"}}{{template "header"}}{{template "loop" .}}{{template "footer"}}{{end}}
{{define "single"}}{{template "header"}}{{template "loop" .}}{{template "footer"}}{{end}}
{{define "404"}}{{template "header"}}<h1>Not found</h1>{{template "footer"}}{{end}}
`

// RenderTemplate picks a template for the resolved request and renders it.
// It runs once.
func (s *Site) RenderTemplate(ctx context.Context) error {
	if !s.loaded {
		return ErrNotBootstrapped
	}
	if s.rendered {
		return nil
	}
	s.rendered = true

	s.hooks.DoAction(EventTemplateRedirect, ctx)

	name, ok := s.hooks.ApplyFilters(EventTemplateInclude, templateIndex, ctx).(string)
	if !ok || name == "" {
		name = templateIndex
	}

	tmpl, err := template.New("site").Funcs(s.templateFuncs(ctx)).Parse(layout)
	if err != nil {
		return fmt.Errorf("failed to parse theme templates: %w", err)
	}
	if tmpl.Lookup(name) == nil {
		return fmt.Errorf("unknown template %q", name)
	}
	if err := tmpl.ExecuteTemplate(s.out, name, s.posts); err != nil {
		return fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return nil
}

// templateFuncs returns the theme's template tags. Each fires its hook.
func (s *Site) templateFuncs(ctx context.Context) template.FuncMap {
	return template.FuncMap{
		"head": func() string {
			s.hooks.DoAction(EventHead, ctx)
			if s.request != nil {
				if title := s.request.Headers.Get("X-Document-Title"); title != "" {
					return title
				}
			}
			name, _ := s.Option(ctx, "blogname")
			return name
		},
		"loopStart": func() string {
			s.hooks.DoAction(EventLoopStart, ctx)
			return ""
		},
		"content": func(p Post) template.HTML {
			out, _ := s.hooks.ApplyFilters(EventTheContent, p.Content, ctx, p).(string)
			return template.HTML(out) //nolint:gosec // post content is trusted site data
		},
		"loopEnd": func() string {
			s.hooks.DoAction(EventLoopEnd, ctx)
			return ""
		},
		"footer": func() string {
			s.hooks.DoAction(EventFooter, ctx)
			return ""
		},
	}
}
