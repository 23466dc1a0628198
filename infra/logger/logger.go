package logger

import corelogger "github.com/kilianp07/gridplan/core/logger"

// Logger aliases the core interface so infra packages need a single import.
type Logger = corelogger.Logger

// NopLogger discards everything. Useful in tests that only care about return
// values.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns the default logger for a component, currently zerolog on
// stdout.
func New(component string) Logger {
	return NewZerologLogger(component)
}
