// Package ingest is the producer side of the queue.
//
// AddFile validates an upload's extension, copies it into the upload
// directory under a collision-free name and appends a fresh upload record.
// The maintenance builders assemble tag-day, mass-tag, edit-dates and
// change-date records; Enqueue validates any record before it is appended.
package ingest
