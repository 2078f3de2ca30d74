// Package notifications pushes job outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers publish unconditionally. Completed-job and failure events can be
// silenced independently in the [notifications] config section.
package notifications
