package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"photolog/internal/config"
	"photolog/internal/job"
	"photolog/internal/logging"
	"photolog/internal/notifications"
	"photolog/internal/pipeline"
	"photolog/internal/queue"
)

// Resolver maps a record to the kind that processes it.
type Resolver interface {
	Resolve(rec *job.Record) (pipeline.Kind, error)
}

// HealthChecker reports collaborator readiness for Status.
type HealthChecker interface {
	HealthCheck(ctx context.Context) []pipeline.Health
}

// Manager consumes the queue one step at a time.
type Manager struct {
	cfg        *config.Config
	store      *queue.Store
	resolver   Resolver
	health     HealthChecker
	logger     *slog.Logger
	notifier   notifications.Service
	errorDelay time.Duration

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastJob  *job.Record
	counters Counters

	batchActive      bool
	batchStart       time.Time
	batchFinished    int
	batchQuarantined int
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier replaces the notifier built from config.
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithHealthChecker adds collaborator health to Status.
func WithHealthChecker(checker HealthChecker) ManagerOption {
	return func(m *Manager) {
		m.health = checker
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, resolver Resolver, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	delay := time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second
	if delay <= 0 {
		delay = time.Second
	}
	m := &Manager{
		cfg:        cfg,
		store:      store,
		resolver:   resolver,
		logger:     logging.NewComponentLogger(logger, "workflow"),
		notifier:   notifications.NewService(cfg),
		errorDelay: delay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) maxAttempts() int {
	if m.cfg == nil || m.cfg.Queue.MaxAttempts < 0 {
		return 0
	}
	return m.cfg.Queue.MaxAttempts
}
