package thumbs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeFFmpeg installs a fake ffmpeg that writes its last argument, or fails
// when the output name contains failOn.
func writeFFmpeg(t *testing.T, failOn string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\nfor last; do :; done\n"
	if failOn != "" {
		script += "case \"$last\" in *" + failOn + "*) echo boom >&2; exit 1;; esac\n"
	}
	script += "echo thumb > \"$last\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return path
}

func TestImagesRendersEverySize(t *testing.T) {
	dir := t.TempDir()
	gen := Generator{
		FFmpeg: writeFFmpeg(t, ""),
		Dir:    dir,
		Sizes:  map[string]int{"thumb": 100, "web": 1200},
		Secret: func() string { return "s3cr3t" },
	}
	out, err := gen.Images(context.Background(), "/uploads/Beach Day.JPG")
	if err != nil {
		t.Fatalf("Images: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 thumbnails, got %v", out)
	}
	want := filepath.Join(dir, "Beach-Day--thumb-s3cr3t.jpg")
	if out["thumb"] != want {
		t.Fatalf("unexpected thumb path %q want %q", out["thumb"], want)
	}
	for _, path := range out {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to exist: %v", path, err)
		}
	}
}

func TestFailureRemovesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	gen := Generator{
		FFmpeg: writeFFmpeg(t, "--web-"),
		Dir:    dir,
		Sizes:  map[string]int{"large": 2048, "web": 1200},
	}
	_, err := gen.Images(context.Background(), "/uploads/pic.jpg")
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected ffmpeg failure, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no leftover thumbnails, found %d", len(entries))
	}
}

func TestQScale(t *testing.T) {
	if qscale(100) != 2 || qscale(0) != qscale(85) || qscale(1) != 30 {
		t.Fatalf("unexpected qscale mapping: %d %d %d", qscale(100), qscale(0), qscale(1))
	}
}
