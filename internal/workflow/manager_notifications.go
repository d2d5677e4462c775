package workflow

import (
	"context"
	"errors"
	"time"

	"photolog/internal/job"
	"photolog/internal/logging"
	"photolog/internal/notifications"
)

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, notification skipped", logging.String("event", string(event)))
			return
		}
		m.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

func (m *Manager) notifyQuarantined(ctx context.Context, rec *job.Record, kind string, cause error) {
	payload := notifications.Payload{
		"key":     rec.Key,
		"kind":    kind,
		"step":    rec.Step,
		"attempt": rec.Attempt,
		"error":   failureMessage(cause),
	}
	if rec.Upload != nil {
		payload["filename"] = rec.Upload.OriginalFilename
	}
	m.publish(ctx, notifications.EventJobQuarantined, payload)
}

func (m *Manager) notifyCompleted(ctx context.Context, kind string, rec *job.Record) {
	if rec.Upload == nil {
		return
	}
	name := rec.Upload.OriginalFilename
	if name == "" {
		name = rec.Upload.Filename
	}
	m.publish(ctx, notifications.EventUploadComplete, notifications.Payload{
		"filename": name,
		"kind":     kind,
	})
}

func (m *Manager) notifyError(ctx context.Context, label string, err error) {
	m.publish(ctx, notifications.EventError, notifications.Payload{
		"context": label,
		"error":   err,
	})
}

func (m *Manager) markBatchActive() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batchActive {
		return
	}
	m.batchActive = true
	m.batchStart = time.Now()
	m.batchFinished = 0
	m.batchQuarantined = 0
}

// finishBatchItem records a job leaving the queue for good and announces
// the end of a batch once nothing is pending.
func (m *Manager) finishBatchItem(ctx context.Context, quarantined bool) {
	m.mu.Lock()
	if quarantined {
		m.batchQuarantined++
	} else {
		m.batchFinished++
	}
	m.mu.Unlock()

	pending, err := m.store.Len(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logging.WarnWithContext(m.logger, "queue length unavailable; drain notification skipped", "queue_stats_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
		return
	}
	if pending > 0 {
		return
	}

	m.mu.Lock()
	if !m.batchActive {
		m.mu.Unlock()
		return
	}
	finished, bad := m.batchFinished, m.batchQuarantined
	duration := time.Since(m.batchStart).Round(time.Second)
	m.batchActive = false
	m.mu.Unlock()

	m.logger.Info("queue drained",
		logging.String(logging.FieldEventType, "queue_drained"),
		logging.Int("completed", finished),
		logging.Int("quarantined", bad),
		logging.Duration("duration", duration),
	)
	m.publish(ctx, notifications.EventQueueDrained, notifications.Payload{
		"processed":   finished,
		"quarantined": bad,
		"duration":    duration,
	})
}
