// Package logging assembles structured slog loggers and formatting helpers used
// across mediaframe components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and stamps every record with the request and operation carried by
// the context so one processing call can be followed across components. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
