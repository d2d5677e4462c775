package queue

import (
	"time"

	"photolog/internal/job"
)

// Table names a queue table.
type Table string

const (
	TablePending Table = "queue"
	TableBad     Table = "bad_jobs"
)

// Entry is a stored record plus its storage handle. Record is nil when the
// blob cannot be decoded.
type Entry struct {
	ID         int64
	EnqueuedAt time.Time
	Blob       []byte
	Record     *job.Record
	DecodeErr  string
}

// Stats holds table sizes.
type Stats struct {
	Pending int
	Bad     int
}

// DatabaseHealth captures diagnostics for the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TablesPresent    []string
	MissingTables    []string
	IntegrityCheck   bool
	Pending          int
	Bad              int
	Error            string
}
