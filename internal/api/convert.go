package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"photolog/internal/deps"
	"photolog/internal/job"
	"photolog/internal/pipeline"
	"photolog/internal/queue"
	"photolog/internal/workflow"
)

// FromEntry converts a stored queue row to its API representation. Rows whose
// blob failed to decode keep the raw bytes when they are valid JSON.
func FromEntry(entry queue.Entry) QueueEntry {
	dto := FromRecord(entry.Record)
	dto.ID = entry.ID
	if !entry.EnqueuedAt.IsZero() {
		dto.EnqueuedAt = entry.EnqueuedAt.UTC().Format(dateTimeFormat)
	}
	if entry.Record == nil {
		dto.DecodeError = entry.DecodeErr
		if dto.DecodeError == "" {
			dto.DecodeError = "record missing"
		}
		if json.Valid(entry.Blob) {
			dto.Record = json.RawMessage(entry.Blob)
		} else if len(entry.Blob) > 0 {
			dto.Subject = fmt.Sprintf("%d undecodable bytes", len(entry.Blob))
		}
	}
	return dto
}

// FromEntries converts a slice of queue rows.
func FromEntries(entries []queue.Entry) []QueueEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]QueueEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromEntry(entry))
	}
	return out
}

// FromRecord converts a decoded record. The storage handle fields stay empty.
func FromRecord(rec *job.Record) QueueEntry {
	if rec == nil {
		return QueueEntry{}
	}
	dto := QueueEntry{
		Key:     rec.Key,
		Type:    string(rec.Kind()),
		Step:    rec.Step,
		Attempt: rec.Attempt,
		Skip:    append([]string(nil), rec.Skip...),
		Subject: Subject(rec),
		Tags:    recordTags(rec),
	}
	if raw, err := rec.Encode(); err == nil {
		dto.Record = raw
	}
	return dto
}

// Subject summarises what a record operates on, for one-line listings.
func Subject(rec *job.Record) string {
	if rec == nil {
		return ""
	}
	switch rec.Kind() {
	case job.TypeUpload:
		if rec.Upload == nil {
			return ""
		}
		if rec.Upload.OriginalFilename != "" && rec.Upload.OriginalFilename != rec.Upload.Filename {
			return fmt.Sprintf("%s (%s)", rec.Upload.Filename, rec.Upload.OriginalFilename)
		}
		return rec.Upload.Filename
	case job.TypeTagDay:
		if rec.TagDay == nil {
			return ""
		}
		return rec.TagDay.Day.String()
	case job.TypeMassTag:
		if rec.MassTag == nil {
			return ""
		}
		return pluralize(len(rec.MassTag.Keys), "picture")
	case job.TypeEditDates:
		if rec.EditDates == nil {
			return ""
		}
		return pluralize(len(rec.EditDates.Items), "edit")
	case job.TypeChangeDate:
		if rec.ChangeDate == nil {
			return ""
		}
		return rec.ChangeDate.From.String() + " -> " + rec.ChangeDate.To.String()
	default:
		return ""
	}
}

func recordTags(rec *job.Record) []string {
	var tags []string
	switch {
	case rec.Upload != nil:
		tags = rec.Upload.Tags
	case rec.TagDay != nil:
		tags = rec.TagDay.Tags
	case rec.MassTag != nil:
		tags = rec.MassTag.Tags
	}
	if len(tags) == 0 {
		return nil
	}
	return append([]string(nil), tags...)
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// FromStatusSummary converts workflow status into its API representation.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	status := WorkflowStatus{
		Running:   summary.Running,
		LastError: strings.TrimSpace(summary.LastError),
		Counters: WorkflowCounters{
			Processed:      summary.Counters.Processed,
			Advanced:       summary.Counters.Advanced,
			Completed:      summary.Counters.Completed,
			Retried:        summary.Counters.Retried,
			Quarantined:    summary.Counters.Quarantined,
			DispatchFailed: summary.Counters.DispatchFailed,
		},
		Queue:  FromQueueStats(summary.Queue),
		Health: FromHealth(summary.Health),
	}
	if summary.LastJob != nil {
		last := FromRecord(summary.LastJob)
		last.Record = nil
		status.LastJob = &last
	}
	return status
}

// FromQueueStats converts queue table sizes.
func FromQueueStats(stats queue.Stats) QueueStats {
	return QueueStats{Pending: stats.Pending, Bad: stats.Bad}
}

// FromHealth converts pipeline health results, preserving order.
func FromHealth(health []pipeline.Health) []Health {
	if len(health) == 0 {
		return nil
	}
	out := make([]Health, 0, len(health))
	for _, h := range health {
		out = append(out, Health{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FromDependencies converts binary availability checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, DependencyStatus{
			Name:        s.Name,
			Command:     s.Command,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Detail:      s.Detail,
		})
	}
	return out
}
