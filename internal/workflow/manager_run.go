package workflow

import (
	"context"
	"errors"
	"time"

	"photolog/internal/logging"
	"photolog/internal/queue"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.resolver == nil {
		m.mu.Unlock()
		return errors.New("workflow registry not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("workflow started",
		logging.String(logging.FieldEventType, "workflow_started"),
		logging.Int("max_attempts", m.maxAttempts()),
	)
	go m.run(runCtx)
	return nil
}

// Stop cancels processing and waits for the in-flight iteration to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stopped"))
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		_, err := m.ProcessNext(ctx, true)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		m.handleNextError(ctx, err)
	}
}

func (m *Manager) handleNextError(ctx context.Context, err error) {
	m.setLastError(err)
	logging.ErrorWithContext(m.logger, "queue iteration failed", "queue_fetch_failed",
		append(logging.ErrorAttrs(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.Duration("retry_in", m.errorDelay),
		)...,
	)
	m.notifyError(ctx, "queue", err)
	timer := time.NewTimer(m.errorDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// ProcessNext runs one iteration: pop the head record, execute one step and
// requeue, finish, retry or quarantine it. With blocking set it waits for a
// record; otherwise an empty queue yields OutcomeIdle. A non-nil error means
// the iteration could not complete (store failure or shutdown).
func (m *Manager) ProcessNext(ctx context.Context, blocking bool) (Outcome, error) {
	rec, err := m.store.PopLeft(ctx, blocking)
	switch {
	case errors.Is(err, queue.ErrEmpty):
		return OutcomeIdle, nil
	case errors.Is(err, queue.ErrCorruptRecord):
		m.handleCorrupt(ctx, err)
		return OutcomeQuarantined, nil
	case err != nil:
		return OutcomeIdle, err
	}

	if err := ctx.Err(); err != nil {
		if reqErr := m.requeue(ctx, rec); reqErr != nil {
			return OutcomeIdle, reqErr
		}
		return OutcomeRequeued, err
	}
	return m.execute(ctx, rec)
}
