// Package workflow runs the single queue consumer.
//
// The Manager pops the head record, resolves its kind through the pipeline
// registry, runs exactly one step and re-appends the successor to the tail.
// It owns the retry bound, quarantine into the poison table and graceful
// shutdown: a record in flight when the daemon context is cancelled goes
// back to the queue unchanged.
package workflow
