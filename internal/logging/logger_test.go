package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"photolog/internal/config"
	"photolog/internal/logging"
	"photolog/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (*slog.Logger, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "photolog.log")
	logger, err := logging.New(logging.Options{
		Format:           format,
		Level:            level,
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return logger, logPath
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleLoggerRendersComponentAndSubject(t *testing.T) {
	logger, logPath := newFileLogger(t, "console", "info")
	logger = logging.NewComponentLogger(logger, "workflow")

	logger.Info("job advanced",
		logging.String(logging.FieldJobKey, "0123456789abcdef"),
		logging.String(logging.FieldStep, "flickr"),
		logging.String(logging.FieldEventType, "job_advanced"),
		logging.String("next_step", "gphotos"),
	)

	content := readLog(t, logPath)
	for _, fragment := range []string{"INFO [workflow] Job 01234567 (flickr) – job advanced", "- Event: job_advanced", "- Next: gphotos"} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in console output, got %q", fragment, content)
		}
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logger, logPath := newFileLogger(t, "console", "debug")
	logger.Debug("message with caller", logging.String("queue_path", "/tmp/q.db"))

	content := readLog(t, logPath)
	if !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
	if !strings.Contains(content, "queue_path: /tmp/q.db") {
		t.Fatalf("expected raw debug field, got %q", content)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logger, logPath := newFileLogger(t, "json", "info")
	logger.Warn("json message", logging.String("k", "v"))

	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload["msg"] != "json message" || payload["level"] != "warn" || payload["k"] != "v" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logger, logPath := newFileLogger(t, "console", "invalid")
	logger.Debug("hidden")
	logger.Info("visible")
	content := readLog(t, logPath)
	if strings.Contains(content, "hidden") || !strings.Contains(content, "visible") {
		t.Fatalf("expected info threshold, got %q", content)
	}
}

type captureHandler struct {
	attrs   []slog.Attr
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := &captureHandler{attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
	return clone
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobKey(ctx, "abc")
	ctx = services.WithStep(ctx, "finish")
	ctx = services.WithRequestID(ctx, "req-xyz")

	base := &captureHandler{}
	logger := logging.WithContext(ctx, slog.New(base))
	handler, ok := logger.Handler().(*captureHandler)
	if !ok {
		t.Fatalf("unexpected handler type %T", logger.Handler())
	}

	want := map[string]string{
		logging.FieldJobKey:        "abc",
		logging.FieldStep:          "finish",
		logging.FieldCorrelationID: "req-xyz",
	}
	for key, value := range want {
		found := false
		for _, attr := range handler.attrs {
			if attr.Key == key && attr.Value.String() == value {
				found = true
			}
		}
		if !found {
			t.Fatalf("field %s=%s not found in %v", key, value, handler.attrs)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logging.WarnWithContext(logger, "mirror slow", "mirror_slow")
	out := buf.String()
	for _, fragment := range []string{"event_type=mirror_slow", "error_hint=", "impact="} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in %q", fragment, out)
		}
	}
}

func TestErrorAttrsClassify(t *testing.T) {
	err := services.Wrap(services.ErrExternalTool, "flickr", "upload", "status 502", errors.New("bad gateway"))
	attrs := logging.ErrorAttrs(err)
	if !logging.HasAttrKey(attrs, logging.FieldErrorKind) || !logging.HasAttrKey(attrs, logging.FieldErrorOperation) {
		t.Fatalf("expected kind and operation attrs, got %v", attrs)
	}
	if logging.ErrorAttrs(nil) != nil {
		t.Fatal("expected no attrs for nil error")
	}
}

func TestCleanupOldLogsRemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "photolog-old.log")
	keepPath := filepath.Join(dir, "photolog-new.log")
	activePath := filepath.Join(dir, "photolog-active.log")
	for _, path := range []string{oldPath, keepPath, activePath} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	past := time.Now().AddDate(0, 0, -40)
	for _, path := range []string{oldPath, activePath} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 30, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "photolog-*.log",
		Exclude: []string{activePath},
	})
	if removed != 1 {
		t.Fatalf("expected 1 file removed, got %d", removed)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{keepPath, activePath} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}
