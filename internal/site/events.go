package site

import (
	"context"
)

// Events fired while bootstrapping.
const (
	EventMuPluginsLoaded = "mu_plugins_loaded"
	EventPluginsLoaded   = "plugins_loaded"
	EventSetupTheme      = "setup_theme"
	EventAfterSetupTheme = "after_setup_theme"
	EventInit            = "init"
	EventLoaded          = "loaded"
)

// Events fired while resolving the request.
const (
	EventParseRequest    = "parse_request"
	EventSendHeaders     = "send_headers"
	EventPreGetPosts     = "pre_get_posts"
	EventThePosts        = "the_posts"
	EventRequestResolved = "request_resolved"
)

// Events fired while rendering the template.
const (
	EventTemplateRedirect = "template_redirect"
	EventTemplateInclude  = "template_include"
	EventHead             = "head"
	EventLoopStart        = "loop_start"
	EventTheContent       = "the_content"
	EventLoopEnd          = "loop_end"
	EventFooter           = "footer"
)

// Other events.
const (
	EventDocumentTitle = "document_title"
	EventSEOLoaded     = "seo_loaded"
	EventShutdown      = "shutdown"
)

// ctxArg returns the first context.Context among a listener's arguments.
func ctxArg(args []any) context.Context {
	for _, a := range args {
		if ctx, ok := a.(context.Context); ok {
			return ctx
		}
	}
	return context.Background()
}
