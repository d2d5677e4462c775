package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"photolog/internal/config"
	"photolog/internal/job"
	"photolog/internal/logging"
	"photolog/internal/notifications"
	"photolog/internal/pipeline"
	"photolog/internal/queue"
	"photolog/internal/services"
	"photolog/internal/testsupport"
	"photolog/internal/workflow"
)

type stubNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *stubNotifier) count(event notifications.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e == event {
			n++
		}
	}
	return n
}

type funcKind struct {
	name  string
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, rec *job.Record) (*job.Record, error)
}

func (k *funcKind) Name() string { return k.name }

func (k *funcKind) Process(ctx context.Context, rec *job.Record) (*job.Record, error) {
	k.mu.Lock()
	k.calls++
	k.mu.Unlock()
	return k.fn(ctx, rec)
}

func (k *funcKind) Calls() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.calls
}

type stubResolver struct {
	kind pipeline.Kind
	err  error
}

func (r stubResolver) Resolve(*job.Record) (pipeline.Kind, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.kind, nil
}

func newManager(t *testing.T, cfg *config.Config, resolver workflow.Resolver) (*workflow.Manager, *queue.Store, *stubNotifier) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &stubNotifier{}
	mgr := workflow.NewManager(cfg, store, resolver, logging.NewNop(), workflow.WithNotifier(notifier))
	return mgr, store, notifier
}

func mustProcess(t *testing.T, mgr *workflow.Manager) workflow.Outcome {
	t.Helper()
	outcome, err := mgr.ProcessNext(context.Background(), false)
	if err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	return outcome
}

func TestRetryBoundQuarantinesAfterMaxAttempts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxAttempts(3))
	kind := &funcKind{name: "image", fn: func(context.Context, *job.Record) (*job.Record, error) {
		return nil, services.Wrap(services.ErrTransient, "flickr", "upload", "status 503", nil)
	}}
	mgr, store, notifier := newManager(t, cfg, stubResolver{kind: kind})
	testsupport.MustAppend(t, store, testsupport.UploadRecord("r1", "a.jpg"))

	want := []workflow.Outcome{workflow.OutcomeRetried, workflow.OutcomeRetried, workflow.OutcomeRetried, workflow.OutcomeQuarantined}
	for i, expected := range want {
		if got := mustProcess(t, mgr); got != expected {
			t.Fatalf("iteration %d: expected %s, got %s", i+1, expected, got)
		}
	}
	if got := mustProcess(t, mgr); got != workflow.OutcomeIdle {
		t.Fatalf("expected idle queue after quarantine, got %s", got)
	}
	if kind.Calls() != 4 {
		t.Fatalf("expected 4 executions, got %d", kind.Calls())
	}

	ctx := context.Background()
	bad, err := store.BadJobs(ctx, 10)
	if err != nil {
		t.Fatalf("BadJobs: %v", err)
	}
	if len(bad) != 1 {
		t.Fatalf("expected exactly one poison entry, got %d", len(bad))
	}
	if bad[0].Key != "r1" || bad[0].Attempt != 4 || bad[0].Step != "upload_and_store" {
		t.Fatalf("unexpected poison record %+v", bad[0])
	}
	if n, _ := store.Len(ctx); n != 0 {
		t.Fatalf("expected empty queue, got %d", n)
	}
	if notifier.count(notifications.EventJobQuarantined) != 1 {
		t.Fatalf("expected one quarantine notification, got %v", notifier.events)
	}

	status := mgr.Status(ctx)
	if status.Counters.Retried != 3 || status.Counters.Quarantined != 1 || status.Counters.Processed != 4 {
		t.Fatalf("unexpected counters %+v", status.Counters)
	}
	if status.Queue.Bad != 1 || status.LastError == "" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestRetryRestoresSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	kind := &funcKind{name: "image", fn: func(_ context.Context, rec *job.Record) (*job.Record, error) {
		rec.Step = "mutated"
		_ = rec.SetData("partial", true)
		return nil, errors.New("boom")
	}}
	mgr, store, _ := newManager(t, cfg, stubResolver{kind: kind})
	testsupport.MustAppend(t, store, testsupport.UploadRecord("r1", "a.jpg"))

	if got := mustProcess(t, mgr); got != workflow.OutcomeRetried {
		t.Fatalf("expected retry, got %s", got)
	}
	pending, err := store.Peek(context.Background(), 1)
	if err != nil || len(pending) != 1 {
		t.Fatalf("Peek: %v (%d)", err, len(pending))
	}
	rec := pending[0]
	if rec.Step != "upload_and_store" || rec.Attempt != 1 || len(rec.Data) != 0 {
		t.Fatalf("expected pre-step snapshot with attempt 1, got %+v", rec)
	}
}

func TestDispatchFailureQuarantinesImmediately(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	unknown := fmt.Errorf("%w: %q", pipeline.ErrUnknownType, "defrag")
	mgr, store, notifier := newManager(t, cfg, stubResolver{err: unknown})
	rec := &job.Record{Key: "m1", Type: "defrag", Attempt: 1}
	testsupport.MustAppend(t, store, rec)

	if got := mustProcess(t, mgr); got != workflow.OutcomeDispatchFailed {
		t.Fatalf("expected dispatch failure, got %s", got)
	}
	bad, _ := store.BadJobs(context.Background(), 10)
	if len(bad) != 1 || bad[0].Attempt != 1 || bad[0].Type != "defrag" {
		t.Fatalf("expected unchanged record in poison table, got %+v", bad)
	}
	if n, _ := store.Len(context.Background()); n != 0 {
		t.Fatalf("expected empty queue, got %d", n)
	}
	if notifier.count(notifications.EventJobQuarantined) != 1 {
		t.Fatalf("expected quarantine notification, got %v", notifier.events)
	}
	if mgr.Status(context.Background()).Counters.DispatchFailed != 1 {
		t.Fatal("expected dispatch failure counted")
	}
}

func TestUnknownStepIsDispatchFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	kind := &funcKind{name: "image", fn: func(_ context.Context, rec *job.Record) (*job.Record, error) {
		return nil, fmt.Errorf("%w: %q", pipeline.ErrUnknownStep, rec.Step)
	}}
	mgr, store, _ := newManager(t, cfg, stubResolver{kind: kind})
	rec := testsupport.UploadRecord("r1", "a.jpg")
	rec.Step = "polish"
	testsupport.MustAppend(t, store, rec)

	if got := mustProcess(t, mgr); got != workflow.OutcomeDispatchFailed {
		t.Fatalf("expected dispatch failure, got %s", got)
	}
	if kind.Calls() != 1 {
		t.Fatalf("expected a single attempt, got %d", kind.Calls())
	}
}

func TestAdvancedJobsInterleaveAtTail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) pipeline.Action {
		return func(_ context.Context, rec *job.Record) (*job.Record, error) {
			mu.Lock()
			order = append(order, rec.Key+":"+name)
			mu.Unlock()
			return rec, nil
		}
	}
	chain, err := pipeline.NewChain("image",
		pipeline.Step{Name: "upload_and_store", Action: record("upload_and_store"), Next: "finish"},
		pipeline.Step{Name: "finish", Action: record("finish")},
	)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	mgr, store, notifier := newManager(t, cfg, stubResolver{kind: chain})
	testsupport.MustAppend(t, store, testsupport.UploadRecord("a", "a.jpg"), testsupport.UploadRecord("b", "b.jpg"))

	want := []workflow.Outcome{workflow.OutcomeAdvanced, workflow.OutcomeAdvanced, workflow.OutcomeCompleted, workflow.OutcomeCompleted}
	for i, expected := range want {
		if got := mustProcess(t, mgr); got != expected {
			t.Fatalf("iteration %d: expected %s, got %s", i+1, expected, got)
		}
	}
	wantOrder := []string{"a:upload_and_store", "b:upload_and_store", "a:finish", "b:finish"}
	for i := range wantOrder {
		if order[i] != wantOrder[i] {
			t.Fatalf("expected order %v, got %v", wantOrder, order)
		}
	}
	if notifier.count(notifications.EventUploadComplete) != 2 {
		t.Fatalf("expected two upload notifications, got %v", notifier.events)
	}
	if notifier.count(notifications.EventQueueDrained) != 1 {
		t.Fatalf("expected one drain notification, got %v", notifier.events)
	}
}

func TestCorruptLastEntryDrainsQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	kind := &funcKind{name: "tag-day", fn: func(context.Context, *job.Record) (*job.Record, error) { return nil, nil }}
	mgr, store, notifier := newManager(t, cfg, stubResolver{kind: kind})
	testsupport.MustAppend(t, store, testsupport.UploadRecord("a", "a.jpg"))
	testsupport.InsertRaw(t, store, queue.TablePending, []byte("{not json"))

	if got := mustProcess(t, mgr); got != workflow.OutcomeCompleted {
		t.Fatalf("expected first job completed, got %s", got)
	}
	if notifier.count(notifications.EventQueueDrained) != 0 {
		t.Fatalf("expected no drain while an entry is pending, got %v", notifier.events)
	}
	if got := mustProcess(t, mgr); got != workflow.OutcomeQuarantined {
		t.Fatalf("expected corrupt entry quarantined, got %s", got)
	}
	if notifier.count(notifications.EventQueueDrained) != 1 {
		t.Fatalf("expected drain notification after the corrupt tail, got %v", notifier.events)
	}
	if stats, err := store.Stats(context.Background()); err != nil || stats.Pending != 0 || stats.Bad != 1 {
		t.Fatalf("unexpected stats %+v %v", stats, err)
	}
	if status := mgr.Status(context.Background()); status.Counters.Quarantined != 1 || status.Counters.Completed != 1 {
		t.Fatalf("unexpected counters %+v", status.Counters)
	}
}

func TestSingleShotCompletesWithoutRequeue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	kind := &funcKind{name: "tag-day", fn: func(context.Context, *job.Record) (*job.Record, error) {
		return nil, nil
	}}
	mgr, store, notifier := newManager(t, cfg, stubResolver{kind: kind})
	testsupport.MustAppend(t, store, &job.Record{
		Key:    "t1",
		Type:   job.TypeTagDay,
		TagDay: &job.TagDay{Day: job.Day{Year: 2020, Month: 1, Day: 2}, Tags: []string{"x"}},
	})

	if got := mustProcess(t, mgr); got != workflow.OutcomeCompleted {
		t.Fatalf("expected completion, got %s", got)
	}
	stats, _ := store.Stats(context.Background())
	if stats.Pending != 0 || stats.Bad != 0 {
		t.Fatalf("expected no residue, got %+v", stats)
	}
	if notifier.count(notifications.EventUploadComplete) != 0 {
		t.Fatal("maintenance jobs must not announce uploads")
	}
}

func TestShutdownRequeuesSnapshotUnchanged(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	kind := &funcKind{name: "image", fn: func(stepCtx context.Context, rec *job.Record) (*job.Record, error) {
		rec.Attempt = 99
		cancel()
		<-stepCtx.Done()
		return nil, stepCtx.Err()
	}}
	mgr, store, _ := newManager(t, cfg, stubResolver{kind: kind})
	rec := testsupport.UploadRecord("r1", "a.jpg")
	rec.Attempt = 2
	testsupport.MustAppend(t, store, rec)

	outcome, err := mgr.ProcessNext(ctx, false)
	if outcome != workflow.OutcomeRequeued || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected requeue on shutdown, got %s / %v", outcome, err)
	}
	pending, _ := store.Peek(context.Background(), 10)
	if len(pending) != 1 || pending[0].Attempt != 2 || pending[0].Step != "upload_and_store" {
		t.Fatalf("expected unchanged record back in queue, got %+v", pending)
	}
	if bad, _ := store.BadLen(context.Background()); bad != 0 {
		t.Fatalf("shutdown must not quarantine, got %d bad", bad)
	}
}

func TestStartStopDrainsQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	kind := &funcKind{name: "mass-tag", fn: func(context.Context, *job.Record) (*job.Record, error) {
		return nil, nil
	}}
	mgr, store, _ := newManager(t, cfg, stubResolver{kind: kind})
	store.SetPollBackoff(5*time.Millisecond, 20*time.Millisecond)

	ctx := context.Background()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := mgr.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}
	for i := 0; i < 3; i++ {
		testsupport.MustAppend(t, store, &job.Record{
			Key:     fmt.Sprintf("m%d", i),
			Type:    job.TypeMassTag,
			MassTag: &job.MassTag{Keys: []string{"k"}, Tags: []string{"t"}},
		})
	}

	deadline := time.Now().Add(5 * time.Second)
	for kind.Calls() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for jobs, processed %d", kind.Calls())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !mgr.Status(ctx).Running {
		t.Fatal("expected running status")
	}
	mgr.Stop()
	status := mgr.Status(ctx)
	if status.Running || status.Counters.Completed != 3 || status.Queue.Pending != 0 {
		t.Fatalf("unexpected status after stop: %+v", status)
	}
}
