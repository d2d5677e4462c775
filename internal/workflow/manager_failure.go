package workflow

import (
	"context"
	"fmt"
	"strings"

	"photolog/internal/job"
	"photolog/internal/logging"
	"photolog/internal/notifications"
)

// retryOrQuarantine bumps the snapshot's attempt counter and requeues it
// while the counter stays within the configured bound. The record that
// exceeds the bound goes to the poison table with its final attempt.
func (m *Manager) retryOrQuarantine(ctx context.Context, snapshot *job.Record, kind string, stepErr error) (Outcome, error) {
	logger := logging.WithContext(ctx, m.logger)
	m.setLastError(stepErr)
	snapshot.Attempt++
	limit := m.maxAttempts()
	attrs := append(logging.ErrorAttrs(stepErr),
		logging.String("kind", kind),
		logging.Int(logging.FieldAttempt, snapshot.Attempt),
		logging.Int("max_attempts", limit),
	)

	if snapshot.Attempt <= limit {
		if err := m.persist(ctx, snapshot); err != nil {
			return OutcomeIdle, err
		}
		m.bump(func(c *Counters) { c.Retried++ })
		logging.WarnWithContext(logger, "step failed; retry scheduled", "job_retry_scheduled",
			append(attrs, logging.String(logging.FieldImpact, "job requeued at the tail"))...,
		)
		return OutcomeRetried, nil
	}

	if err := m.store.AppendBad(context.WithoutCancel(ctx), snapshot); err != nil {
		return OutcomeIdle, fmt.Errorf("quarantine %s: %w", snapshot.Key, err)
	}
	m.bump(func(c *Counters) { c.Quarantined++ })
	logging.ErrorWithContext(logger, "job quarantined after repeated failures", "job_quarantined",
		append(attrs,
			logging.Alert("job_quarantined"),
			logging.String(logging.FieldImpact, "job moved to poison table"),
		)...,
	)
	m.notifyQuarantined(ctx, snapshot, kind, stepErr)
	m.finishBatchItem(ctx, true)
	return OutcomeQuarantined, nil
}

// dispatchFailed moves a record that cannot be routed straight to the
// poison table. Retrying cannot help: the same record resolves the same way.
func (m *Manager) dispatchFailed(ctx context.Context, snapshot *job.Record, kind string, cause error) (Outcome, error) {
	logger := logging.WithContext(ctx, m.logger)
	m.setLastError(cause)
	if err := m.store.AppendBad(context.WithoutCancel(ctx), snapshot); err != nil {
		return OutcomeIdle, fmt.Errorf("quarantine %s: %w", snapshot.Key, err)
	}
	m.bump(func(c *Counters) {
		c.DispatchFailed++
		c.Quarantined++
	})
	logging.ErrorWithContext(logger, "job dispatch failed", "job_dispatch_failed",
		append(logging.ErrorAttrs(cause),
			logging.String(logging.FieldJobType, string(snapshot.Kind())),
			logging.Alert("job_dispatch_failed"),
			logging.String(logging.FieldImpact, "job moved to poison table without retry"),
		)...,
	)
	if kind == "" {
		kind = string(snapshot.Kind())
	}
	m.notifyQuarantined(ctx, snapshot, kind, cause)
	m.finishBatchItem(ctx, true)
	return OutcomeDispatchFailed, nil
}

func (m *Manager) handleCorrupt(ctx context.Context, cause error) {
	m.setLastError(cause)
	m.bump(func(c *Counters) { c.Quarantined++ })
	logging.ErrorWithContext(m.logger, "undecodable queue entry moved to poison table", "job_corrupt",
		append(logging.ErrorAttrs(cause),
			logging.Alert("job_corrupt"),
			logging.String(logging.FieldImpact, "entry kept in bad_jobs for inspection"),
		)...,
	)
	m.publish(ctx, notifications.EventJobQuarantined, notifications.Payload{
		"kind":  "undecodable entry",
		"step":  "dispatch",
		"error": cause,
	})
	m.markBatchActive()
	m.finishBatchItem(ctx, true)
}

// requeue puts rec back unchanged after shutdown interrupted the iteration
// between pop and execution.
func (m *Manager) requeue(ctx context.Context, rec *job.Record) error {
	if err := m.persist(ctx, rec); err != nil {
		return err
	}
	logging.WithContext(withJobContext(ctx, rec, ""), m.logger).Info("job requeued for shutdown",
		logging.String(logging.FieldEventType, "job_requeued"),
	)
	return nil
}

func failureMessage(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}
