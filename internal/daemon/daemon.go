package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"photolog/internal/api"
	"photolog/internal/config"
	"photolog/internal/deps"
	"photolog/internal/ingest"
	"photolog/internal/job"
	"photolog/internal/logging"
	"photolog/internal/notifications"
	"photolog/internal/queue"
	"photolog/internal/services"
	"photolog/internal/workflow"
)

// ErrAlreadyRunning is returned when the lock is held by this or another process.
var ErrAlreadyRunning = errors.New("another photolog daemon instance is already running")

// Daemon coordinates the queue consumer and the operator surfaces, and
// enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	producer *ingest.Producer
	workflow *workflow.Manager
	notifier notifications.Service
	queueSvc *api.QueueService

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	depsMu       sync.RWMutex
	dependencies []deps.Status

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithNotifier overrides the notifier used for test notifications.
func WithNotifier(n notifications.Service) Option {
	return func(d *Daemon) {
		if n != nil {
			d.notifier = n
		}
	}
}

// WithDependencies seeds the binary availability snapshot reported by Status.
func WithDependencies(statuses []deps.Status) Option {
	return func(d *Daemon) {
		d.dependencies = append([]deps.Status(nil), statuses...)
	}
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	Workflow      workflow.StatusSummary
	QueueDBPath   string
	CatalogDBPath string
	LockFilePath  string
	APIBind       string
	Dependencies  []deps.Status
}

// New constructs a daemon around already-opened collaborators.
func New(cfg *config.Config, store *queue.Store, producer *ingest.Producer, wf *workflow.Manager, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || producer == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, producer, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		producer: producer,
		workflow: wf,
		notifier: notifications.NewService(cfg),
		queueSvc: api.NewQueueService(store),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the daemon lock, launches the consumer loop and, when
// configured, the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		d.release()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.workflow.Stop()
		d.release()
		return err
	}

	d.running.Store(true)
	d.logger.Info("photolog daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock_path", d.lockPath))
	return nil
}

func (d *Daemon) release() {
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_lock_release_failed"),
			logging.String(logging.FieldImpact, "next daemon start may report an existing instance"),
			logging.String(logging.FieldErrorHint, "remove the lock file if no daemon is running"))
	}
}

// Stop stops the consumer loop, letting the in-flight record requeue, and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.api.stop()
	d.workflow.Stop()
	d.release()
	d.running.Store(false)
	d.logger.Info("photolog daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the consumer is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// PeekQueue lists pending records in dequeue order.
func (d *Daemon) PeekQueue(ctx context.Context, limit int) (api.QueueListResponse, error) {
	return d.queueSvc.Peek(ctx, limit)
}

// BadJobs lists quarantined records, most recent first.
func (d *Daemon) BadJobs(ctx context.Context, limit int) (api.QueueListResponse, error) {
	return d.queueSvc.Bad(ctx, limit)
}

// QueueStats returns both table sizes.
func (d *Daemon) QueueStats(ctx context.Context) (api.QueueStats, error) {
	return d.queueSvc.Stats(ctx)
}

// RetryBad moves quarantined records back to the pending queue.
func (d *Daemon) RetryBad(ctx context.Context) (api.RetryResponse, error) {
	resp, err := api.RetryBad(ctx, d.store)
	if err != nil {
		return resp, err
	}
	d.logger.Info("quarantined jobs requeued",
		logging.String(logging.FieldEventType, "queue_retry"),
		logging.Int("moved", resp.Moved))
	return resp, nil
}

// PurgeBad removes the listed quarantined records.
func (d *Daemon) PurgeBad(ctx context.Context, ids []int64) (api.PurgeItemsResult, error) {
	result, err := api.PurgeBadByID(ctx, d.store, ids)
	if err != nil {
		return result, err
	}
	d.logger.Info("quarantined jobs purged",
		logging.String(logging.FieldEventType, "queue_purge"),
		logging.Int("removed", result.Removed))
	return result, nil
}

// PurgeAllBad empties the poison table.
func (d *Daemon) PurgeAllBad(ctx context.Context) (api.PurgeResponse, error) {
	resp, err := api.PurgeAllBad(ctx, d.store)
	if err != nil {
		return resp, err
	}
	d.logger.Info("quarantine cleared",
		logging.String(logging.FieldEventType, "queue_purge_all"),
		logging.Int("removed", resp.Removed))
	return resp, nil
}

// AddFile copies a local file into the upload directory and queues it.
func (d *Daemon) AddFile(ctx context.Context, req ingest.Request) (ingest.Result, error) {
	if strings.TrimSpace(req.Path) == "" {
		return ingest.Result{}, services.Wrap(services.ErrValidation, "", "add_file", "source path is required", nil)
	}
	return d.producer.AddFile(ctx, req)
}

// Enqueue validates and appends a maintenance record. Uploads must go
// through AddFile so the source file lands in the upload directory.
func (d *Daemon) Enqueue(ctx context.Context, rec *job.Record) (*job.Record, error) {
	if rec == nil || rec.Kind() == job.TypeUpload {
		return nil, services.Wrap(services.ErrValidation, "", "enqueue", "uploads are queued with add_file", nil)
	}
	if err := d.producer.Enqueue(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// DatabaseHealth returns detailed queue database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// RefreshDependencies re-probes external binaries.
func (d *Daemon) RefreshDependencies() []deps.Status {
	statuses := deps.CheckBinaries(deps.Requirements(d.cfg))
	d.depsMu.Lock()
	d.dependencies = statuses
	d.depsMu.Unlock()
	return statuses
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.depsMu.RLock()
	dependencies := append([]deps.Status(nil), d.dependencies...)
	d.depsMu.RUnlock()
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		Workflow:      d.workflow.Status(ctx),
		QueueDBPath:   d.store.Path(),
		CatalogDBPath: d.cfg.CatalogDBPath(),
		LockFilePath:  d.lockPath,
		APIBind:       d.api.address(),
		Dependencies:  dependencies,
	}
}

// ToAPI converts a Status into the transport DTO.
func (s Status) ToAPI() api.DaemonStatus {
	return api.DaemonStatus{
		Running:       s.Running,
		PID:           s.PID,
		QueueDBPath:   s.QueueDBPath,
		CatalogDBPath: s.CatalogDBPath,
		LockFilePath:  s.LockFilePath,
		APIBind:       s.APIBind,
		Workflow:      api.FromStatusSummary(s.Workflow),
		Dependencies:  api.FromDependencies(s.Dependencies),
	}
}
