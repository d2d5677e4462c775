package thumbs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"photolog/internal/textutil"
)

// Generator renders thumbnails into Dir.
type Generator struct {
	FFmpeg  string
	Dir     string
	Sizes   map[string]int
	Quality int
	// Secret returns the random suffix for one output; nil uses a uuid prefix.
	Secret func() string
}

// Images renders one thumbnail per configured size from an image file.
func (g Generator) Images(ctx context.Context, src string) (map[string]string, error) {
	return g.render(ctx, src, nil)
}

// VideoPosters renders one poster frame per configured size, taken one
// second into the video.
func (g Generator) VideoPosters(ctx context.Context, src string) (map[string]string, error) {
	return g.render(ctx, src, []string{"-ss", "1"})
}

func (g Generator) render(ctx context.Context, src string, inputArgs []string) (map[string]string, error) {
	if strings.TrimSpace(g.Dir) == "" {
		return nil, errors.New("thumbnail directory not configured")
	}
	if err := os.MkdirAll(g.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create thumbnail dir: %w", err)
	}
	stem := textutil.SafeStem(strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)))

	names := make([]string, 0, len(g.Sizes))
	for name := range g.Sizes {
		names = append(names, name)
	}
	sort.Strings(names)

	generated := make(map[string]string, len(names))
	for _, name := range names {
		out := filepath.Join(g.Dir, fmt.Sprintf("%s--%s-%s.jpg", stem, name, g.secret()))
		if err := g.run(ctx, src, out, g.Sizes[name], inputArgs); err != nil {
			Remove(generated)
			_ = os.Remove(out)
			return nil, fmt.Errorf("thumbnail %s of %s: %w", name, filepath.Base(src), err)
		}
		generated[name] = out
	}
	return generated, nil
}

func (g Generator) run(ctx context.Context, src, out string, dim int, inputArgs []string) error {
	binary := strings.TrimSpace(g.FFmpeg)
	if binary == "" {
		binary = "ffmpeg"
	}
	args := []string{"-y", "-v", "error", "-hide_banner"}
	args = append(args, inputArgs...)
	args = append(args,
		"-i", src,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale='min(iw,%d)':'min(ih,%d)':force_original_aspect_ratio=decrease", dim, dim),
		"-q:v", fmt.Sprint(qscale(g.Quality)),
		out,
	)
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", binary, err, strings.TrimSpace(string(output)))
	}
	if _, err := os.Stat(out); err != nil {
		return fmt.Errorf("%s produced no output: %w", binary, err)
	}
	return nil
}

func (g Generator) secret() string {
	if g.Secret != nil {
		return g.Secret()
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// qscale maps a 1-100 JPEG quality onto ffmpeg's 2-31 mjpeg scale, where
// lower is better.
func qscale(quality int) int {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return 2 + (100-quality)*29/100
}

// Remove deletes every generated file. Errors are ignored.
func Remove(generated map[string]string) {
	for _, path := range generated {
		_ = os.Remove(path)
	}
}
