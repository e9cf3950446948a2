// Package logging configures slog output for the daemon and provides the
// attribute helpers shared by all components.
package logging
