// Package constants defines shared configuration constants and defaults.
package constants

import "time"

// Site defaults.
const (
	// DefaultURL is the request profiled when none is configured.
	DefaultURL = "http://localhost/"

	// DefaultCacheSize bounds the site's object cache.
	DefaultCacheSize = 1024

	// DefaultHTTPTimeout bounds outbound requests made by the site.
	DefaultHTTPTimeout = 10 * time.Second
)

// Output defaults.
const (
	DefaultFormat = FormatTable

	DefaultOrder = OrderAsc

	DefaultLogLevel = "warn"
)
