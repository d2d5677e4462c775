package workflow

import (
	"context"

	"photolog/internal/job"
	"photolog/internal/logging"
	"photolog/internal/pipeline"
	"photolog/internal/queue"
)

// Outcome describes what one ProcessNext iteration did with the head record.
type Outcome string

const (
	OutcomeIdle           Outcome = "idle"
	OutcomeAdvanced       Outcome = "advanced"
	OutcomeCompleted      Outcome = "completed"
	OutcomeRetried        Outcome = "retried"
	OutcomeQuarantined    Outcome = "quarantined"
	OutcomeDispatchFailed Outcome = "dispatch_failed"
	OutcomeRequeued       Outcome = "requeued"
)

// Counters accumulate since the manager was created.
type Counters struct {
	Processed      int
	Advanced       int
	Completed      int
	Retried        int
	Quarantined    int
	DispatchFailed int
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running   bool
	LastError string
	LastJob   *job.Record
	Counters  Counters
	Queue     queue.Stats
	Health    []pipeline.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:  m.running,
		Counters: m.counters,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastJob != nil {
		summary.LastJob = m.lastJob.Clone()
	}
	health := m.health
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	summary.Queue = stats
	if health != nil {
		summary.Health = health.HealthCheck(ctx)
	}
	return summary
}

func (m *Manager) bump(fn func(*Counters)) {
	m.mu.Lock()
	fn(&m.counters)
	m.mu.Unlock()
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(rec *job.Record) {
	m.mu.Lock()
	if rec != nil {
		m.lastJob = rec.Clone()
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}
