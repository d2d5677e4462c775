package main

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"photolog/internal/api"
	"photolog/internal/queue"
	"photolog/internal/testsupport"
)

func TestQueueCommandsFallBackToStore(t *testing.T) {
	env := setupCLIConfig(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	testsupport.MustAppend(t, store,
		testsupport.UploadRecord("alpha-key", "alpha.jpg"),
		testsupport.UploadRecord("beta-key", "beta.jpg"))

	out, err := env.run(t, "queue", "status")
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "Pending")
	requireContains(t, out, "daemon not running")

	out, err = env.run(t, "queue", "peek", "--limit", "1")
	if err != nil {
		t.Fatalf("queue peek: %v", err)
	}
	requireContains(t, out, "alpha.jpg")
	requireContains(t, out, "Showing 1 of 2")

	out, err = env.run(t, "queue", "bad")
	if err != nil {
		t.Fatalf("queue bad: %v", err)
	}
	requireContains(t, out, "No quarantined jobs")
}

func TestQueueQuarantineCommandsThroughDaemon(t *testing.T) {
	env := setupCLIConfig(t)
	store := env.startDaemon(t)
	ctx := context.Background()
	for _, key := range []string{"bad-one", "bad-two"} {
		if err := store.AppendBad(ctx, testsupport.UploadRecord(key, key+".jpg")); err != nil {
			t.Fatalf("AppendBad: %v", err)
		}
	}

	out, err := env.run(t, "--json", "queue", "bad")
	if err != nil {
		t.Fatalf("queue bad: %v", err)
	}
	var listing api.QueueListResponse
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		t.Fatalf("decode listing %q: %v", out, err)
	}
	if listing.Total != 2 || listing.Entries[0].Key != "bad-two" {
		t.Fatalf("unexpected quarantine listing %+v", listing)
	}

	target := strconv.FormatInt(listing.Entries[0].ID, 10)
	out, err = env.run(t, "queue", "purge", target, "999999")
	if err != nil {
		t.Fatalf("queue purge: %v", err)
	}
	requireContains(t, out, "Job "+target+" purged")
	requireContains(t, out, "Job 999999 not found")

	out, err = env.run(t, "queue", "retry")
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Requeued 1 quarantined job(s)")
	if n, _ := store.Len(ctx); n != 1 {
		t.Fatalf("expected 1 pending after retry, got %d", n)
	}

	if _, err := env.run(t, "queue", "purge"); err == nil {
		t.Fatal("expected purge without target to fail")
	}
	if _, err := env.run(t, "queue", "purge", "--all", "1"); err == nil {
		t.Fatal("expected purge with ids and --all to fail")
	}
	if _, err := env.run(t, "queue", "purge", "abc"); err == nil {
		t.Fatal("expected purge with bad id to fail")
	}
	out, err = env.run(t, "queue", "purge", "--all")
	if err != nil {
		t.Fatalf("queue purge --all: %v", err)
	}
	requireContains(t, out, "Purged 0 quarantined job(s)")
}

func TestQueueHealthCommand(t *testing.T) {
	env := setupCLIConfig(t)

	out, err := env.run(t, "queue", "health")
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	requireContains(t, out, "Database path: "+env.cfg.QueueDBPath())
	requireContains(t, out, "Missing tables: none")
	requireContains(t, out, "Integrity check: yes")
}

func TestJobCommandsEnqueue(t *testing.T) {
	env := setupCLIConfig(t)

	cases := [][]string{
		{"tag-day", "2024-05-01", "Beach Day"},
		{"mass-tag", "--tags", "sky,sea", "key-1", "key-2"},
		{"edit-dates", "key-1=2024-05-01 10:00:00"},
		{"change-date", "2024-05-01", "2024-05-02"},
	}
	for _, args := range cases {
		out, err := env.run(t, args...)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		requireContains(t, out, "Queued "+args[0]+" job")
	}

	store, err := queue.Open(env.cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	defer store.Close()
	pending, err := store.Peek(context.Background(), 10)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if len(pending) != len(cases) {
		t.Fatalf("expected %d queued jobs, got %d", len(cases), len(pending))
	}
	for i, rec := range pending {
		if string(rec.Kind()) != cases[i][0] {
			t.Fatalf("job %d: expected %s, got %s", i, cases[i][0], rec.Kind())
		}
	}

	for _, bad := range [][]string{
		{"tag-day", "2024-02-30", "x"},
		{"mass-tag", "key-1"},
		{"edit-dates", "missing-equals"},
		{"change-date", "2024-05-01", "yesterday"},
	} {
		if _, err := env.run(t, bad...); err == nil {
			t.Fatalf("expected %v to fail", bad)
		}
	}
}
