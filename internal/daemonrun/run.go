package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"photolog/internal/catalog"
	"photolog/internal/config"
	"photolog/internal/daemon"
	"photolog/internal/deps"
	"photolog/internal/ingest"
	"photolog/internal/ipc"
	"photolog/internal/logging"
	"photolog/internal/notifications"
	"photolog/internal/pipeline"
	"photolog/internal/queue"
	"photolog/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Quiet drops the stdout sink so only the run log file is written.
	Quiet bool
}

// Run starts the photolog daemon and blocks until SIGINT, SIGTERM, the
// Shutdown RPC, or cancellation of cmdCtx.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, stopSignals := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	runCtx, shutdown := context.WithCancel(signalCtx)
	defer shutdown()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("photolog-%s.log", runID))
	outputs := []string{"stdout", logPath}
	errorOutputs := []string{"stderr", logPath}
	if opts.Quiet {
		outputs, errorOutputs = []string{logPath}, []string{logPath}
	}
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      outputs,
		ErrorOutputPaths: errorOutputs,
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update photolog.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "photolog-*.log", Exclude: []string{logPath}},
	)
	dependencies := deps.CheckBinaries(deps.Requirements(cfg))
	logDependencySnapshot(logger, dependencies)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	cat, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog", logging.Error(err))
		return err
	}
	defer cat.Close()

	env, err := pipeline.NewEnv(cfg, cat, logger)
	if err != nil {
		return fmt.Errorf("build pipeline env: %w", err)
	}
	registry, err := pipeline.NewRegistry(cfg, env)
	if err != nil {
		return fmt.Errorf("build pipeline registry: %w", err)
	}

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManager(cfg, store, registry, logger,
		workflow.WithNotifier(notifier),
		workflow.WithHealthChecker(env))

	d, err := daemon.New(cfg, store, ingest.New(cfg, store, logger), manager, logger,
		daemon.WithNotifier(notifier),
		daemon.WithDependencies(dependencies))
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(runCtx, cfg.SocketPath(), d, logger, ipc.WithShutdown(shutdown))
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(runCtx); err != nil {
		logging.WarnWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for another photolog daemon and queue database access"),
			logging.String(logging.FieldImpact, "queue will not be consumed until `photolog daemon start`"),
		)
	}

	<-runCtx.Done()
	logger.Info("photolog daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "photolog.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, statuses []deps.Status) {
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range statuses {
		attrs = append(attrs,
			logging.Bool(status.Command+"_available", status.Available),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	for _, missing := range deps.Missing(statuses) {
		logging.WarnWithContext(logger, "required binary missing", "dependency_missing",
			logging.String("dependency", missing.Name),
			logging.String("detail", missing.Detail),
			logging.String(logging.FieldImpact, "uploads needing "+missing.Command+" will be retried then quarantined"),
			logging.String(logging.FieldErrorHint, "install "+missing.Command+" and restart the daemon"),
		)
	}
}
