package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"photolog/internal/daemonctl"
	"photolog/internal/testsupport"
)

func TestRunServesIPCUntilShutdown(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithShortDataDir())
	cfg.Paths.APIBind = ""

	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), cfg, Options{Quiet: true})
	}()

	client, err := daemonctl.WaitForClient(cfg.SocketPath(), 5*time.Second)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping daemon run test: %v", err)
		}
		t.Fatalf("WaitForClient: %v", err)
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.PID != os.Getpid() {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.QueueDBPath != cfg.QueueDBPath() {
		t.Fatalf("unexpected queue path %q", status.QueueDBPath)
	}
	if pid, err := daemonctl.ReadPID(cfg.PIDPath()); err != nil || pid != os.Getpid() {
		t.Fatalf("expected pid file with current pid, got %d %v", pid, err)
	}

	if _, err := client.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not exit after shutdown")
	}

	if _, err := os.Stat(cfg.PIDPath()); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, got %v", err)
	}
	if _, err := os.Stat(cfg.SocketPath()); !os.IsNotExist(err) {
		t.Fatalf("expected socket removed, got %v", err)
	}
	logs, _ := filepath.Glob(filepath.Join(cfg.Paths.LogDir, "photolog-*.log"))
	if len(logs) != 1 {
		t.Fatalf("expected one run log, got %v", logs)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
