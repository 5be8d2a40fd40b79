// Package notifications publishes processing job outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers notify unconditionally. Jobs shorter than the configured minimum
// duration are not announced; failures always are.
package notifications
