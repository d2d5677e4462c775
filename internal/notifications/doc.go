// Package notifications delivers daemon events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers publish unconditionally. Events carry a loosely typed Payload and
// are rendered into a title, message and tag set here rather than at the
// call site.
package notifications
