package main

import (
	"strings"
	"testing"
	"time"

	"photolog/internal/api"
	"photolog/internal/daemonctl"
)

func TestDaemonStatusOffline(t *testing.T) {
	env := setupCLIConfig(t)

	out, err := env.run(t, "daemon", "status")
	if err != nil {
		t.Fatalf("daemon status: %v", err)
	}
	requireContains(t, out, "== System Status ==")
	requireContains(t, out, "Not running")
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "Pending")
}

func TestDaemonStopWhenNotRunning(t *testing.T) {
	env := setupCLIConfig(t)
	out, err := env.run(t, "daemon", "stop")
	if err != nil {
		t.Fatalf("daemon stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestTestNotifyThroughDaemon(t *testing.T) {
	env := setupCLIConfig(t)
	if _, err := env.run(t, "test-notify"); err == nil || !strings.Contains(err.Error(), "photolog daemon start") {
		t.Fatalf("expected dial hint without daemon, got %v", err)
	}

	env.startDaemon(t)
	out, err := env.run(t, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}

func TestRenderSnapshotIncludesWorkflow(t *testing.T) {
	snap := daemonctl.Snapshot{
		Reachable: true,
		Status: api.DaemonStatus{
			Running: true,
			Workflow: api.WorkflowStatus{
				LastError: "upload_and_store: storage unreachable",
				Counters:  api.WorkflowCounters{Completed: 4, Retried: 2, Quarantined: 1},
				Health:    []api.Health{{Name: "catalog", Ready: false, Detail: "locked"}},
			},
		},
		SystemChecks:      []daemonctl.StatusLine{{Label: "Photolog", Severity: "ok", Detail: "Running"}},
		DependencySummary: daemonctl.DependencySummary{Severity: "ok", Detail: "2/2 available"},
	}
	joined := strings.Join(renderSnapshot(snap, false), "\n")
	for _, want := range []string{"[OK] Running", "[WARN] upload_and_store: storage unreachable", "catalog:", "[WARN] locked", "4 completed, 2 retried, 1 quarantined", "2/2 available"} {
		requireContains(t, joined, want)
	}
	if strings.Contains(joined, ansiReset) {
		t.Fatal("expected no ANSI codes when colorize is false")
	}
}

func TestTypeLabelAndQueueRows(t *testing.T) {
	if got := typeLabel("tag-day"); got != "Tag Day" {
		t.Fatalf("typeLabel = %q", got)
	}
	if got := typeLabel(""); got != "Upload" {
		t.Fatalf("typeLabel empty = %q", got)
	}
	rows := buildQueueRows([]api.QueueEntry{
		{ID: 3, Key: "0123456789abcdef", Type: "upload", Step: "finish", Attempt: 1, Subject: "a.jpg"},
		{ID: 4, DecodeError: "unexpected end of JSON input"},
	}, time.Now())
	if rows[0][1] != "0123456789ab" || rows[0][2] != "Upload" || rows[0][6] != "-" {
		t.Fatalf("unexpected row %v", rows[0])
	}
	if rows[1][2] != "Corrupt" || rows[1][3] != "-" || rows[1][5] != "unexpected end of JSON input" {
		t.Fatalf("unexpected corrupt row %v", rows[1])
	}
	if listingFooter(2, 2) != "" || !strings.Contains(listingFooter(200, 1500), "1,500") {
		t.Fatal("unexpected listing footer")
	}
}
