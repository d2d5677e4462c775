package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"photolog/internal/config"
	"photolog/internal/fileutil"
	"photolog/internal/job"
	"photolog/internal/logging"
	"photolog/internal/media/exifmeta"
	"photolog/internal/pipeline"
	"photolog/internal/services"
	"photolog/internal/textutil"
)

// Appender is the queue operation producers need.
type Appender interface {
	Append(ctx context.Context, rec *job.Record) error
}

// Request describes one file to upload.
type Request struct {
	// Path is the local file to copy into the upload directory.
	Path string
	// Name overrides the original filename recorded on the job.
	Name string
	Tags []string
	Skip []string
}

// Result reports a queued upload.
type Result struct {
	Key      string
	Filename string
	Format   exifmeta.Format
	Checksum string
	Record   *job.Record
}

// Producer creates and enqueues job records.
type Producer struct {
	cfg    *config.Config
	queue  Appender
	logger *slog.Logger

	now    func() time.Time
	newKey func() string
}

// New builds a producer appending to q.
func New(cfg *config.Config, q Appender, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Producer{
		cfg:    cfg,
		queue:  q,
		logger: logging.NewComponentLogger(logger, "ingest"),
		now:    time.Now,
		newKey: NewKey,
	}
}

// NewKey returns a fresh 32-character hex job key.
func NewKey() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}

// AddFile copies req.Path into the upload directory and enqueues an upload
// job at the first step of its chain.
func (p *Producer) AddFile(ctx context.Context, req Request) (Result, error) {
	format, err := pipeline.Classify(p.cfg.Files, req.Path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "", "add file", "invalid file extension", err)
	}
	name, err := originalName(req.Path, req.Name)
	if err != nil {
		return Result{}, err
	}
	info, err := os.Stat(req.Path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "", "add file", req.Path, err)
	}
	if !info.Mode().IsRegular() {
		return Result{}, services.Wrap(services.ErrValidation, "", "add file", req.Path+" is not a regular file", nil)
	}

	checksum, err := fileutil.SHA256File(req.Path)
	if err != nil {
		return Result{}, fmt.Errorf("checksum %s: %w", req.Path, err)
	}
	filename, err := uniqueFilename(p.cfg.Paths.UploadDir, name, checksum)
	if err != nil {
		return Result{}, err
	}
	dst := filepath.Join(p.cfg.Paths.UploadDir, filename)
	if _, err := fileutil.CopyFileVerified(req.Path, dst); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "", "add file", "copy into upload dir", err)
	}

	rec := &job.Record{
		Key:  p.newKey(),
		Type: job.TypeUpload,
		Step: pipeline.StepUploadAndStore,
		Skip: p.skipSet(req.Skip),
		Upload: &job.Upload{
			Filename:         filename,
			OriginalFilename: name,
			Tags:             textutil.NormalizeTags(req.Tags),
			UploadedAt:       p.now().UTC(),
			Checksum:         checksum,
		},
	}
	if err := p.Enqueue(ctx, rec); err != nil {
		_ = os.Remove(dst)
		return Result{}, err
	}
	p.logger.Info("upload queued",
		logging.String(logging.FieldEventType, "upload_queued"),
		logging.String(logging.FieldJobKey, rec.Key),
		logging.String("kind", string(format)),
		logging.String("filename", filename),
		logging.Int64("size", info.Size()),
	)
	return Result{Key: rec.Key, Filename: filename, Format: format, Checksum: checksum, Record: rec}, nil
}

// PlanDirectory lists the allowed files directly inside dir in upload order:
// images first, then raw files, then videos, each group in name order.
// Files with other extensions are ignored.
func PlanDirectory(files config.Files, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	groups := map[exifmeta.Format][]string{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		format, err := pipeline.Classify(files, entry.Name())
		if err != nil {
			continue
		}
		groups[format] = append(groups[format], entry.Name())
	}

	var paths []string
	for _, format := range []exifmeta.Format{exifmeta.FormatImage, exifmeta.FormatRaw, exifmeta.FormatVideo} {
		names := groups[format]
		slices.Sort(names)
		for _, name := range names {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}

// AddDirectory queues every file PlanDirectory selects in dir.
func (p *Producer) AddDirectory(ctx context.Context, dir string, tags, skip []string) ([]Result, error) {
	paths, err := PlanDirectory(p.cfg.Files, dir)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		res, err := p.AddFile(ctx, Request{Path: path, Tags: tags, Skip: skip})
		if err != nil {
			return results, fmt.Errorf("queue %s: %w", filepath.Base(path), err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Enqueue validates rec against the producer contract and appends it.
func (p *Producer) Enqueue(ctx context.Context, rec *job.Record) error {
	if rec != nil && rec.Key == "" {
		rec.Key = p.newKey()
	}
	if err := rec.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "", "enqueue", "", err)
	}
	if rec.Attempt != 0 {
		return services.Wrap(services.ErrValidation, "", "enqueue", "new jobs start at attempt 0", nil)
	}
	if err := p.queue.Append(ctx, rec); err != nil {
		return fmt.Errorf("append %s: %w", rec.Key, err)
	}
	if rec.Kind() != job.TypeUpload {
		p.logger.Info("job queued",
			logging.String(logging.FieldEventType, "job_queued"),
			logging.String(logging.FieldJobKey, rec.Key),
			logging.String(logging.FieldJobType, string(rec.Kind())),
		)
	}
	return nil
}

// skipSet slugifies the requested step names and adds every disabled
// mirror, so uploads never stall on a mirror that has no client.
func (p *Producer) skipSet(requested []string) []string {
	var out []string
	add := func(step string) {
		if step != "" && !slices.Contains(out, step) {
			out = append(out, step)
		}
	}
	for _, step := range requested {
		add(textutil.Slugify(step, '_'))
	}
	for _, mirror := range []string{config.MirrorFlickr, config.MirrorGPhotos} {
		if !p.cfg.MirrorEnabled(mirror) {
			add(mirror)
		}
	}
	return out
}

// originalName returns the filename recorded on the job. An override may
// drop the extension but must not change it, since the kind is chosen from
// the file on disk.
func originalName(path, override string) (string, error) {
	name := strings.TrimSpace(override)
	if name == "" {
		return filepath.Base(path), nil
	}
	name = filepath.Base(name)
	pathExt := filepath.Ext(path)
	nameExt := filepath.Ext(name)
	switch {
	case nameExt == "":
		return name + pathExt, nil
	case !strings.EqualFold(nameExt, pathExt):
		return "", services.Wrap(services.ErrValidation, "", "add file",
			fmt.Sprintf("name %q does not match the %s extension of %s", name, pathExt, filepath.Base(path)), nil)
	}
	return name, nil
}

// uniqueFilename builds "<stem>-<CRC><ext>" from the checksum prefix and
// adds a counter when that name is already taken.
func uniqueFilename(dir, name, checksum string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	stem := textutil.SafeStem(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	tag := strings.ToUpper(checksum)
	if len(tag) > 8 {
		tag = tag[:8]
	}
	base := stem + "-" + tag
	candidate := base + ext
	for i := 2; ; i++ {
		_, err := os.Stat(filepath.Join(dir, candidate))
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("check upload name: %w", err)
		}
		if i > 1000 {
			return "", fmt.Errorf("no free upload name for %s", name)
		}
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
}
