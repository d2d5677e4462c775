package api

import "encoding/json"

const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// DefaultPeekLimit bounds queue listings when the caller does not ask for a
// specific size.
const DefaultPeekLimit = 200

// QueueEntry is the transport representation of one stored record.
type QueueEntry struct {
	ID          int64           `json:"id"`
	EnqueuedAt  string          `json:"enqueuedAt,omitempty"`
	Key         string          `json:"key,omitempty"`
	Type        string          `json:"type,omitempty"`
	Step        string          `json:"step,omitempty"`
	Attempt     int             `json:"attempt"`
	Skip        []string        `json:"skip,omitempty"`
	Subject     string          `json:"subject,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	DecodeError string          `json:"decodeError,omitempty"`
	Record      json.RawMessage `json:"record,omitempty"`
}

// QueueStats mirrors queue.Stats.
type QueueStats struct {
	Pending int `json:"pending"`
	Bad     int `json:"bad"`
}

// QueueListResponse wraps a bounded listing plus the full table size.
type QueueListResponse struct {
	Entries []QueueEntry `json:"entries"`
	Total   int          `json:"total"`
}

// RetryResponse reports how many quarantined records moved back.
type RetryResponse struct {
	Moved int `json:"moved"`
}

// PurgeResponse reports how many quarantined records were removed.
type PurgeResponse struct {
	Removed int `json:"removed"`
}

// EnqueueResponse identifies the record just queued.
type EnqueueResponse struct {
	Key      string `json:"key"`
	Type     string `json:"type"`
	Filename string `json:"filename,omitempty"`
}

// WorkflowCounters mirrors workflow.Counters.
type WorkflowCounters struct {
	Processed      int `json:"processed"`
	Advanced       int `json:"advanced"`
	Completed      int `json:"completed"`
	Retried        int `json:"retried"`
	Quarantined    int `json:"quarantined"`
	DispatchFailed int `json:"dispatchFailed"`
}

// Health describes readiness of one pipeline collaborator.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus describes availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// WorkflowStatus summarises the consumer loop.
type WorkflowStatus struct {
	Running   bool             `json:"running"`
	LastError string           `json:"lastError,omitempty"`
	LastJob   *QueueEntry      `json:"lastJob,omitempty"`
	Counters  WorkflowCounters `json:"counters"`
	Queue     QueueStats       `json:"queue"`
	Health    []Health         `json:"health,omitempty"`
}

// DaemonStatus is the aggregated runtime view served by the daemon.
type DaemonStatus struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	QueueDBPath   string             `json:"queueDbPath"`
	CatalogDBPath string             `json:"catalogDbPath"`
	LockFilePath  string             `json:"lockFilePath"`
	APIBind       string             `json:"apiBind,omitempty"`
	Workflow      WorkflowStatus     `json:"workflow"`
	Dependencies  []DependencyStatus `json:"dependencies,omitempty"`
}
