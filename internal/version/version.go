// Package version holds the application version string.
// The value is overridden at build time via -ldflags for release builds.
package version

// Version is the application version reported by the system endpoints.
var Version = "0.3.0-dev"
