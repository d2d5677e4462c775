package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photolog/internal/config"
	"photolog/internal/daemon"
	"photolog/internal/ingest"
	"photolog/internal/ipc"
	"photolog/internal/job"
	"photolog/internal/logging"
	"photolog/internal/pipeline"
	"photolog/internal/queue"
	"photolog/internal/testsupport"
	"photolog/internal/workflow"
)

type idleResolver struct{}

func (idleResolver) Resolve(*job.Record) (pipeline.Kind, error) {
	return nil, pipeline.ErrUnknownType
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

// setupCLIConfig writes a config file pointing every directory at a fresh
// temp tree. No daemon listens on its socket.
func setupCLIConfig(t *testing.T) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithShortDataDir())
	cfg.Paths.APIBind = ""
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "photolog.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

// startDaemon serves IPC on the config's socket with a consumer that never
// runs a job.
func (e *cliTestEnv) startDaemon(t *testing.T) *queue.Store {
	t.Helper()
	store := testsupport.MustOpenStore(t, e.cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(e.cfg, store, idleResolver{}, logger)
	d, err := daemon.New(e.cfg, store, ingest.New(e.cfg, store, logger), mgr, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, e.cfg.SocketPath(), d, logger)
	if err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping daemon-backed CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})
	return store
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
upload_dir = %q
thumbs_dir = %q
data_dir = %q
log_dir = %q
api_bind = %q

[queue]
max_attempts = %d

[storage]
backend = "dir"
dir = %q
`,
		cfg.Paths.UploadDir,
		cfg.Paths.ThumbsDir,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		"off",
		cfg.Queue.MaxAttempts,
		cfg.Storage.Dir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
