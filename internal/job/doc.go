// Package job defines the record that travels through the work queue.
//
// A Record is a tagged union: a shared envelope (key, type, step, attempt,
// skip, data) that the queue engine reads, plus exactly one kind-specific
// payload matching Type. Records are serialized as JSON; the queue stores the
// encoded bytes and never interprets payloads.
package job
