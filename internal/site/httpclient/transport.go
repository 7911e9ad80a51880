// Package httpclient provides the site's outbound HTTP client.
//
// Every round trip is bracketed by two events so listeners can observe
// outbound request cost: the EventRequest filter fires before the request is
// sent and the EventRequestDone action fires once it has finished.
package httpclient

import (
	"net/http"

	"github.com/coral-mesh/hookprof/internal/hooks"
)

const (
	// EventRequest is a filter over a *http.Response, initially nil.
	// Returning a non-nil response short-circuits the round trip.
	// Extra arguments: *http.Request.
	EventRequest = "pre_http_request"

	// EventRequestDone is an action fired after every round trip with
	// (*http.Response, error, *http.Request).
	EventRequestDone = "http_api_debug"
)

// Transport is an http.RoundTripper that fires request lifecycle events.
type Transport struct {
	// Base is the underlying RoundTripper to execute the request.
	// If nil, http.DefaultTransport is used.
	Base http.RoundTripper

	hooks *hooks.Registry
}

// NewTransport creates a Transport dispatching on the given registry.
func NewTransport(base http.RoundTripper, registry *hooks.Registry) *Transport {
	return &Transport{Base: base, hooks: registry}
}

// RoundTrip executes a single HTTP transaction.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var pre *http.Response
	if v, ok := t.hooks.ApplyFilters(EventRequest, pre, req).(*http.Response); ok && v != nil {
		t.hooks.DoAction(EventRequestDone, v, nil, req)
		return v, nil
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	t.hooks.DoAction(EventRequestDone, resp, err, req)
	return resp, err
}

// NewClient returns a client whose transport fires request events on registry.
func NewClient(base *http.Client, registry *hooks.Registry) *http.Client {
	client := &http.Client{}
	if base != nil {
		*client = *base
	}
	client.Transport = NewTransport(client.Transport, registry)
	return client
}
