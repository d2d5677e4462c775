// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates queue entries and workflow status into
// transport-friendly DTOs so the CLI and remote consumers never touch the
// internal job or queue types directly.
//
// # Key Types
//
// QueueEntry: transport representation of a pending or quarantined record,
// including undecodable blobs (DecodeError set, Raw holding the bytes).
//
// WorkflowStatus: consumer running state, counters, queue sizes and health.
//
// DaemonStatus: aggregated runtime information including dependencies.
//
// # Converters
//
// FromEntry / FromRecord: queue.Entry and job.Record -> QueueEntry.
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Record payloads are summarised into a single Subject string for table views
// and passed through whole as json.RawMessage for detail views.
package api
