// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// Gelatinarm is the canonical application identifier used for filesystem paths and CLI branding.
	Gelatinarm = "gelatinarm"

	// Version is the current application semantic version string.
	Version = "0.1.0"

	// UserAgent identifies this client to media servers and auxiliary skip-segment services.
	UserAgent = "gelatinarm/" + Version
)

// Build metadata, overridden at link time by the release pipeline.
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
