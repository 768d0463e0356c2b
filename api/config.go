// Package api provides the yearbook HTTP API: browsing and posting memories,
// resolving media, exchanging letters and streaming live changes.
package api

import "time"

// DefaultKeepAlive is how often an idle event stream sends a comment.
const DefaultKeepAlive = 15 * time.Second

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// AccessCode, when set, must be sent in the X-Yearbook-Code header.
	// Comparison ignores case.
	AccessCode string

	// KeepAlive is the event stream keep-alive interval.
	KeepAlive time.Duration

	// BindingReason and EventsProvider are reported by /status.
	BindingReason  string
	EventsProvider string
}
