// Package services defines shared utilities consumed by the pipeline step
// actions and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job keys, job kinds, step names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that record which step and
//     operation failed, and Details which classifies a failure for operators.
//
// Use these helpers when writing new step actions so error handling and
// observability stay uniform across the pipeline.
package services
