package pipeline

import (
	"context"

	"photolog/internal/job"
)

// Kind processes one record of a job kind.
//
// Process performs one unit of work. A non-nil record is the successor to
// re-append; nil means the job is finished. On error the caller's snapshot
// of the record is authoritative.
type Kind interface {
	Name() string
	Process(ctx context.Context, rec *job.Record) (*job.Record, error)
}

// Action is a step body. It returns the (possibly mutated) record, nil to
// finish the job, or an error. Actions must tolerate being re-run for the
// same step after a failure.
type Action func(ctx context.Context, rec *job.Record) (*job.Record, error)

// singleShot adapts a function that performs the whole job.
type singleShot struct {
	name string
	run  func(ctx context.Context, rec *job.Record) error
}

func (s singleShot) Name() string { return s.name }

func (s singleShot) Process(ctx context.Context, rec *job.Record) (*job.Record, error) {
	if err := s.run(ctx, rec); err != nil {
		return nil, err
	}
	return nil, nil
}
