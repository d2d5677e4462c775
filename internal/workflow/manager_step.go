package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"photolog/internal/job"
	"photolog/internal/logging"
	"photolog/internal/pipeline"
)

func (m *Manager) execute(ctx context.Context, rec *job.Record) (Outcome, error) {
	snapshot := rec.Clone()
	jobCtx := withJobContext(ctx, rec, uuid.NewString())
	logger := logging.WithContext(jobCtx, m.logger)
	m.setLastJob(rec)
	m.markBatchActive()

	kind, err := m.resolver.Resolve(rec)
	if err != nil {
		return m.dispatchFailed(jobCtx, snapshot, "", err)
	}

	logger.Debug("step started",
		logging.String(logging.FieldEventType, "step_started"),
		logging.String("kind", kind.Name()),
		logging.Int(logging.FieldAttempt, rec.Attempt),
	)
	start := time.Now()
	next, err := kind.Process(jobCtx, rec)
	m.bump(func(c *Counters) { c.Processed++ })

	if err != nil {
		if ctx.Err() != nil {
			logger.Info("step interrupted by shutdown; job requeued unchanged",
				logging.String(logging.FieldEventType, "job_requeued"),
				logging.String("kind", kind.Name()),
			)
			if reqErr := m.persist(ctx, snapshot); reqErr != nil {
				return OutcomeIdle, reqErr
			}
			return OutcomeRequeued, ctx.Err()
		}
		if errors.Is(err, pipeline.ErrUnknownStep) {
			return m.dispatchFailed(jobCtx, snapshot, kind.Name(), err)
		}
		return m.retryOrQuarantine(jobCtx, snapshot, kind.Name(), err)
	}

	if next != nil {
		if err := m.persist(ctx, next); err != nil {
			return OutcomeIdle, err
		}
		m.bump(func(c *Counters) { c.Advanced++ })
		logger.Info("job advanced",
			logging.String(logging.FieldEventType, "job_advanced"),
			logging.String("kind", kind.Name()),
			logging.String("next_step", next.Step),
			logging.Duration("duration", time.Since(start)),
		)
		return OutcomeAdvanced, nil
	}

	m.bump(func(c *Counters) { c.Completed++ })
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String("kind", kind.Name()),
		logging.Duration("duration", time.Since(start)),
	)
	m.notifyCompleted(jobCtx, kind.Name(), rec)
	m.finishBatchItem(ctx, false)
	return OutcomeCompleted, nil
}

// persist appends rec to the tail. If that fails the record is moved to the
// poison table instead so it is not dropped.
func (m *Manager) persist(ctx context.Context, rec *job.Record) error {
	ctx = context.WithoutCancel(ctx)
	err := m.store.Append(ctx, rec)
	if err == nil {
		return nil
	}
	if badErr := m.store.AppendBad(ctx, rec); badErr != nil {
		return errors.Join(err, badErr)
	}
	logging.ErrorWithContext(m.logger, "requeue failed; job moved to poison table", "job_requeue_failed",
		append(logging.ErrorAttrs(err),
			logging.String(logging.FieldJobKey, rec.Key),
			logging.String(logging.FieldStep, rec.Step),
			logging.String(logging.FieldErrorHint, "run 'photolog queue retry' once the queue database is healthy"),
		)...,
	)
	return err
}
