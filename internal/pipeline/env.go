package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"photolog/internal/catalog"
	"photolog/internal/config"
	"photolog/internal/deps"
	"photolog/internal/job"
	"photolog/internal/logging"
	"photolog/internal/media/exifmeta"
	"photolog/internal/media/thumbs"
	"photolog/internal/publish"
)

// Catalog is the subset of the picture catalog the pipelines mutate.
type Catalog interface {
	AddPicture(ctx context.Context, p catalog.Picture, tags []string) error
	UpdateService(ctx context.Context, key, service, value string) error
	TagDay(ctx context.Context, day job.Day, tags []string) (int, error)
	MassTag(ctx context.Context, keys, tags []string) (int, error)
	EditDates(ctx context.Context, items []job.DateEdit) (int, error)
	ChangeDate(ctx context.Context, from, to job.Day) (int, error)
	Ping(ctx context.Context) error
}

// MetadataReader extracts capture metadata from an upload.
type MetadataReader interface {
	Read(ctx context.Context, path string, format exifmeta.Format, uploadedAt time.Time) (exifmeta.Metadata, error)
}

// Thumbnailer renders thumbnails for images and poster frames for videos.
type Thumbnailer interface {
	Images(ctx context.Context, src string) (map[string]string, error)
	VideoPosters(ctx context.Context, src string) (map[string]string, error)
}

// Uploader sends an original to a sharing service.
type Uploader interface {
	Upload(ctx context.Context, localPath, title string, tags []string) (publish.MirrorResult, error)
}

// Env carries the collaborators step actions use. It is built once by the
// daemon and shared by every kind.
type Env struct {
	Catalog   Catalog
	Metadata  MetadataReader
	Thumbs    Thumbnailer
	Store     publish.ObjectStore
	Mirrors   map[string]Uploader
	UploadDir string
	Logger    *slog.Logger
	Now       func() time.Time

	// Requirements lists external binaries reported by HealthCheck.
	Requirements []deps.Requirement
}

// NewEnv wires the production collaborators from cfg.
func NewEnv(cfg *config.Config, cat Catalog, logger *slog.Logger) (*Env, error) {
	if cat == nil {
		return nil, errors.New("pipeline env requires a catalog")
	}
	store, err := publish.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	mirrors := make(map[string]Uploader)
	for name, mirror := range publish.NewMirrors(cfg) {
		mirrors[name] = mirror
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Env{
		Catalog:  cat,
		Metadata: exifmeta.Reader{FFprobe: cfg.FFprobeBinary()},
		Thumbs: thumbs.Generator{
			FFmpeg:  cfg.FFmpegBinary(),
			Dir:     cfg.Paths.ThumbsDir,
			Sizes:   cfg.Thumbnails.Sizes,
			Quality: cfg.Thumbnails.Quality,
		},
		Store:        store,
		Mirrors:      mirrors,
		UploadDir:    cfg.Paths.UploadDir,
		Logger:       logger,
		Now:          time.Now,
		Requirements: deps.Requirements(cfg),
	}, nil
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logging.NewNop()
}
