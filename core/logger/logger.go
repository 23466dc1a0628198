// Package logger defines the logging interface used across the simulation
// core. Packages depend on this interface rather than a concrete backend so
// solver and runner code stays free of zerolog imports.
package logger

// Logger is the minimal logging surface the core packages need. Debugw
// attaches structured fields to a debug message; the printf-style methods
// cover everything else.
type Logger interface {
	Debugf(format string, args ...any)
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
