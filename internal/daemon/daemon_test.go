package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"photolog/internal/config"
	"photolog/internal/deps"
	"photolog/internal/ingest"
	"photolog/internal/job"
	"photolog/internal/logging"
	"photolog/internal/notifications"
	"photolog/internal/pipeline"
	"photolog/internal/queue"
	"photolog/internal/services"
	"photolog/internal/testsupport"
	"photolog/internal/workflow"
)

type finishKind struct{}

func (finishKind) Name() string { return "finish" }

func (finishKind) Process(context.Context, *job.Record) (*job.Record, error) { return nil, nil }

type finishResolver struct{}

func (finishResolver) Resolve(*job.Record) (pipeline.Kind, error) { return finishKind{}, nil }

type recordingNotifier struct {
	events []notifications.Event
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.events = append(n.events, event)
	return n.err
}

func newTestDaemon(t *testing.T, cfg *config.Config, opts ...Option) (*Daemon, *queue.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, finishResolver{}, logger)
	producer := ingest.New(cfg, store, logger)
	d, err := New(cfg, store, producer, mgr, logger, opts...)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
	})
	return d, store
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(nil, nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing collaborators")
	}
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	d, _ := newTestDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running || !status.Workflow.Running {
		t.Fatalf("expected daemon and workflow running, got %+v", status)
	}
	if status.LockFilePath != cfg.LockPath() || status.QueueDBPath != cfg.QueueDBPath() {
		t.Fatalf("unexpected paths: %+v", status)
	}
	if status.APIBind != "" {
		t.Fatalf("expected api disabled, got %q", status.APIBind)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart after stop failed: %v", err)
	}
}

func TestDaemonLockHeldElsewhere(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	other := flock.New(cfg.LockPath())
	ok, err := other.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-lock failed: ok=%v err=%v", ok, err)
	}
	defer other.Unlock()

	d, _ := newTestDaemon(t, cfg)
	if err := d.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestDaemonDrainsQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	d, store := newTestDaemon(t, cfg)
	testsupport.MustAppend(t, store, ingest.NewTagDay(job.Day{Year: 2024, Month: 1, Day: 2}, []string{"x"}))

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	testsupport.Eventually(t, func() bool {
		n, err := store.Len(ctx)
		return err == nil && n == 0
	})
}

func TestDaemonEnqueueRejectsUploads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := newTestDaemon(t, cfg)
	ctx := context.Background()

	if _, err := d.Enqueue(ctx, testsupport.UploadRecord("", "a.jpg")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for upload, got %v", err)
	}
	if _, err := d.AddFile(ctx, ingest.Request{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty path, got %v", err)
	}
	rec, err := d.Enqueue(ctx, ingest.NewMassTag([]string{"k1"}, []string{"Beach"}))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if rec.Key == "" {
		t.Fatal("expected generated key")
	}
	if n, _ := store.Len(ctx); n != 1 {
		t.Fatalf("expected 1 pending record, got %d", n)
	}
}

func TestDaemonTestNotification(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	notifier := &recordingNotifier{}
	d, _ := newTestDaemon(t, cfg, WithNotifier(notifier))

	sent, message, err := d.TestNotification(context.Background())
	if err != nil || sent {
		t.Fatalf("expected skip without topic, got sent=%v err=%v", sent, err)
	}
	if message != "ntfy topic not configured" {
		t.Fatalf("unexpected message %q", message)
	}

	cfg.Notifications.NtfyTopic = "https://ntfy.example/photolog"
	sent, _, err = d.TestNotification(context.Background())
	if err != nil || !sent {
		t.Fatalf("expected notification sent, got sent=%v err=%v", sent, err)
	}
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventTest {
		t.Fatalf("unexpected events %v", notifier.events)
	}
}

func TestDaemonStatusDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	snapshot := []deps.Status{{Name: "FFmpeg", Command: "ffmpeg", Available: true}}
	d, _ := newTestDaemon(t, cfg, WithDependencies(snapshot))

	status := d.Status(context.Background())
	if len(status.Dependencies) != 1 || status.Dependencies[0].Name != "FFmpeg" {
		t.Fatalf("unexpected dependencies %+v", status.Dependencies)
	}
	dto := status.ToAPI()
	if dto.CatalogDBPath != filepath.Join(cfg.Paths.DataDir, "catalog.db") {
		t.Fatalf("unexpected catalog path %q", dto.CatalogDBPath)
	}
	if len(dto.Dependencies) != 1 || !dto.Dependencies[0].Available {
		t.Fatalf("unexpected dto dependencies %+v", dto.Dependencies)
	}
}
