package ipc

import (
	"photolog/internal/api"
	"photolog/internal/job"
)

// StartRequest triggers daemon workflow startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon workflow.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse reports whether the exit request was accepted.
type ShutdownResponse struct {
	Accepted bool `json:"accepted"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse is the aggregated daemon status DTO.
type StatusResponse = api.DaemonStatus

// QueueEntry mirrors the HTTP API queue DTO for internal IPC callers.
type QueueEntry = api.QueueEntry

// QueueListRequest bounds a listing. Zero means the default peek size.
type QueueListRequest struct {
	Limit int `json:"limit"`
}

// QueueListResponse contains queue entries plus the table size.
type QueueListResponse = api.QueueListResponse

// QueueStatsRequest fetches table sizes.
type QueueStatsRequest struct{}

// QueueStatsResponse reports table sizes.
type QueueStatsResponse = api.QueueStats

// QueueRetryRequest moves every quarantined record back to the pending queue.
type QueueRetryRequest struct{}

// QueueRetryResponse reports how many records moved.
type QueueRetryResponse = api.RetryResponse

// QueuePurgeRequest removes quarantined records by id, or all of them.
type QueuePurgeRequest struct {
	IDs []int64 `json:"ids"`
	All bool    `json:"all"`
}

// QueuePurgeResponse reports removed records and, for id purges, per-id outcomes.
type QueuePurgeResponse struct {
	Removed int                   `json:"removed"`
	Items   []api.PurgeItemResult `json:"items,omitempty"`
}

// EnqueueRequest carries a maintenance record built by the caller.
type EnqueueRequest struct {
	Record job.Record `json:"record"`
}

// EnqueueResponse identifies the queued record.
type EnqueueResponse = api.EnqueueResponse

// AddFileRequest queues a local file for upload.
type AddFileRequest struct {
	Path string   `json:"path"`
	Name string   `json:"name"`
	Tags []string `json:"tags"`
	Skip []string `json:"skip"`
}

// AddFileResponse describes the queued upload.
type AddFileResponse struct {
	Key      string `json:"key"`
	Filename string `json:"filename"`
	Format   string `json:"format"`
	Checksum string `json:"checksum"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    int      `json:"schema_version"`
	TablesPresent    []string `json:"tables_present"`
	MissingTables    []string `json:"missing_tables"`
	IntegrityCheck   bool     `json:"integrity_check"`
	Pending          int      `json:"pending"`
	Bad              int      `json:"bad"`
	Error            string   `json:"error"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
