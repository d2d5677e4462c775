package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"photolog/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Paths.ThumbsDir = filepath.Join(base, "thumbs")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Storage.Dir = filepath.Join(base, "objects")
	cfgVal.Storage.BaseURL = "file://" + cfgVal.Storage.Dir
	cfgVal.Queue.PollInitialMS = 5
	cfgVal.Queue.PollMaxMS = 20
	cfgVal.Workflow.ErrorRetryInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMaxAttempts overrides the retry bound.
func WithMaxAttempts(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.MaxAttempts = n
	}
}

// WithMirrors enables the named mirrors with the given endpoint and a test token.
func WithMirrors(endpoint string, names ...string) ConfigOption {
	return func(b *configBuilder) {
		for _, name := range names {
			mirror := config.Mirror{Enabled: true, Endpoint: endpoint, Token: "test-token", RequestTimeout: 5}
			switch name {
			case config.MirrorFlickr:
				b.cfg.Mirrors.Flickr = mirror
			case config.MirrorGPhotos:
				b.cfg.Mirrors.GPhotos = mirror
			default:
				b.t.Fatalf("unknown mirror %q", name)
			}
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.UploadDir)
}

// WithShortDataDir relocates the data directory under a short temp path so
// the Unix socket stays under the sun_path limit.
func WithShortDataDir() ConfigOption {
	return func(b *configBuilder) {
		dir, err := os.MkdirTemp("", "pl")
		if err != nil {
			b.t.Fatalf("mkdir short data dir: %v", err)
		}
		b.t.Cleanup(func() { _ = os.RemoveAll(dir) })
		b.cfg.Paths.DataDir = dir
	}
}
