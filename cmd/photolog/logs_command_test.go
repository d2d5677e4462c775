package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogsCommandPrintsTail(t *testing.T) {
	env := setupCLIConfig(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	content := "level=INFO msg=\"daemon started\"\nlevel=WARN msg=\"upload retried\"\nlevel=INFO msg=\"upload complete\"\n"
	if err := os.WriteFile(filepath.Join(env.cfg.Paths.LogDir, "photolog.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, err := env.run(t, "logs", "-n", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "daemon started") {
		t.Fatalf("expected only the last two lines, got %q", out)
	}
	requireContains(t, out, "upload retried")
	requireContains(t, out, "upload complete")

	out, err = env.run(t, "logs", "--grep", "warn")
	if err != nil {
		t.Fatalf("logs --grep: %v", err)
	}
	if strings.TrimSpace(out) != `level=WARN msg="upload retried"` {
		t.Fatalf("unexpected filtered output %q", out)
	}
}

func TestLogsCommandWithoutLogFile(t *testing.T) {
	env := setupCLIConfig(t)
	out, err := env.run(t, "logs")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no output, got %q", out)
	}
	if _, err := env.run(t, "logs", "-n", "-1"); err == nil {
		t.Fatal("expected error for negative --lines")
	}
}
