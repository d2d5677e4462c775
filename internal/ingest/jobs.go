package ingest

import (
	"photolog/internal/job"
	"photolog/internal/textutil"
)

// NewTagDay builds a tag-day job. Validation happens in Enqueue.
func NewTagDay(day job.Day, tags []string) *job.Record {
	return &job.Record{
		Key:    NewKey(),
		Type:   job.TypeTagDay,
		TagDay: &job.TagDay{Day: day, Tags: textutil.NormalizeTags(tags)},
	}
}

// NewMassTag builds a mass-tag job.
func NewMassTag(keys, tags []string) *job.Record {
	return &job.Record{
		Key:     NewKey(),
		Type:    job.TypeMassTag,
		MassTag: &job.MassTag{Keys: keys, Tags: textutil.NormalizeTags(tags)},
	}
}

// NewEditDates builds an edit-dates job.
func NewEditDates(items []job.DateEdit) *job.Record {
	return &job.Record{
		Key:       NewKey(),
		Type:      job.TypeEditDates,
		EditDates: &job.EditDates{Items: items},
	}
}

// NewChangeDate builds a change-date job.
func NewChangeDate(from, to job.Day) *job.Record {
	return &job.Record{
		Key:        NewKey(),
		Type:       job.TypeChangeDate,
		ChangeDate: &job.ChangeDate{From: from, To: to},
	}
}
