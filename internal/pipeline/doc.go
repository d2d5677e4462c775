// Package pipeline turns a job record into work.
//
// A Registry resolves every record to exactly one Kind. Upload records are
// routed by file extension to one of three step chains (image, raw, video);
// the maintenance types (tag-day, mass-tag, edit-dates, change-date) map to
// single-shot kinds that perform one catalog mutation.
//
// A Chain executes at most one step per call and reports the successor
// record, or nil when the job is complete. Step actions receive their
// collaborators through an Env built once at daemon start.
package pipeline
