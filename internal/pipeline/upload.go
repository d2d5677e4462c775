package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"photolog/internal/catalog"
	"photolog/internal/job"
	"photolog/internal/logging"
	"photolog/internal/media/exifmeta"
	"photolog/internal/media/thumbs"
	"photolog/internal/publish"
	"photolog/internal/services"
)

// Keys written to Record.Data by the upload steps.
const (
	DataMeta   = "meta"
	DataThumbs = "thumbs"
	DataURLs   = "urls"
)

// DataOriginal is the urls entry holding the original file.
const DataOriginal = "original"

type uploads struct {
	env *Env
}

func (u uploads) sourcePath(rec *job.Record) string {
	return filepath.Join(u.env.UploadDir, rec.Upload.Filename)
}

func requireUpload(rec *job.Record, step string) error {
	if rec.Upload == nil || rec.Upload.Filename == "" {
		return services.Wrap(services.ErrValidation, step, "read payload", "upload payload missing", nil)
	}
	return nil
}

// uploadAndStore extracts metadata, renders thumbnails, publishes the
// original and thumbnails, and records the picture in the catalog. The
// sub-steps run back to back so a batch of uploads does not interleave
// them through the queue.
func (u uploads) uploadAndStore(format exifmeta.Format) Action {
	return func(ctx context.Context, rec *job.Record) (*job.Record, error) {
		if err := requireUpload(rec, StepUploadAndStore); err != nil {
			return nil, err
		}
		src := u.sourcePath(rec)
		if _, err := os.Stat(src); err != nil {
			return nil, services.Wrap(services.ErrNotFound, StepUploadAndStore, "stat upload", rec.Upload.Filename, err)
		}
		logger := logging.WithContext(ctx, u.env.logger())

		meta, err := u.env.Metadata.Read(ctx, src, format, rec.Upload.UploadedAt)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, StepUploadAndStore, "read metadata", rec.Upload.Filename, err)
		}
		if err := rec.SetData(DataMeta, meta); err != nil {
			return nil, err
		}

		generated, err := u.renderThumbs(ctx, format, src)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, StepUploadAndStore, "render thumbnails", rec.Upload.Filename, err)
		}
		urls, err := u.publishAll(ctx, meta, src, generated)
		if err == nil {
			err = u.store(ctx, rec, format, meta, urls)
		}
		if err != nil {
			thumbs.Remove(generated)
			return nil, err
		}
		if err := rec.SetData(DataThumbs, generated); err != nil {
			return nil, err
		}
		if err := rec.SetData(DataURLs, urls); err != nil {
			return nil, err
		}
		logger.Info("upload stored",
			logging.String(logging.FieldEventType, "upload_stored"),
			logging.String("kind", string(format)),
			logging.String("filename", rec.Upload.OriginalFilename),
			logging.Int("thumbnails", len(generated)),
		)
		return rec, nil
	}
}

func (u uploads) renderThumbs(ctx context.Context, format exifmeta.Format, src string) (map[string]string, error) {
	switch format {
	case exifmeta.FormatImage:
		return u.env.Thumbs.Images(ctx, src)
	case exifmeta.FormatVideo:
		return u.env.Thumbs.VideoPosters(ctx, src)
	default:
		return map[string]string{}, nil
	}
}

func (u uploads) publishAll(ctx context.Context, meta exifmeta.Metadata, src string, generated map[string]string) (map[string]string, error) {
	urls := make(map[string]string, len(generated)+1)
	url, err := u.env.Store.Put(ctx, publish.ObjectKey(meta.Year, meta.Month, src), src)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, StepUploadAndStore, "publish original", filepath.Base(src), err)
	}
	urls[DataOriginal] = url

	names := make([]string, 0, len(generated))
	for name := range generated {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := generated[name]
		url, err := u.env.Store.Put(ctx, publish.ObjectKey(meta.Year, meta.Month, path), path)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, StepUploadAndStore, "publish "+name, filepath.Base(path), err)
		}
		urls[name] = url
	}
	return urls, nil
}

func (u uploads) store(ctx context.Context, rec *job.Record, format exifmeta.Format, meta exifmeta.Metadata, urls map[string]string) error {
	upload := rec.Upload
	name := upload.OriginalFilename
	if name == "" {
		name = upload.Filename
	}
	pic := catalog.Picture{
		Key:        rec.Key,
		Name:       name,
		Filename:   upload.Filename,
		Format:     string(format),
		Original:   urls[DataOriginal],
		Thumb:      urls["thumb"],
		Medium:     urls["medium"],
		Web:        urls["web"],
		Large:      urls["large"],
		Width:      meta.Width,
		Height:     meta.Height,
		Size:       meta.Size,
		Camera:     meta.Camera,
		Checksum:   upload.Checksum,
		UploadDate: upload.UploadedAt.UTC().Format(time.RFC3339),
		UploadTime: u.env.now().UnixMilli(),
		ExifRead:   meta.ExifRead,
	}
	pic.SetTaken(meta.Taken())
	if meta.Timestamp == "" {
		pic.DateTaken = ""
	}
	if err := u.env.Catalog.AddPicture(ctx, pic, upload.Tags); err != nil {
		return services.Wrap(services.ErrTransient, StepUploadAndStore, "store picture", rec.Key, err)
	}
	return nil
}

// mirror uploads the original to the named sharing service and records the
// result in the catalog.
func (u uploads) mirror(name string) Action {
	return func(ctx context.Context, rec *job.Record) (*job.Record, error) {
		if err := requireUpload(rec, name); err != nil {
			return nil, err
		}
		client, ok := u.env.Mirrors[name]
		if !ok || client == nil {
			return nil, services.Wrap(services.ErrConfiguration, name, "mirror upload", "mirror not enabled; add it to the job's skip set or enable it in config", nil)
		}
		title := rec.Upload.OriginalFilename
		if title == "" {
			title = rec.Upload.Filename
		}
		result, err := client.Upload(ctx, u.sourcePath(rec), title, rec.Upload.Tags)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encode %s result: %w", name, err)
		}
		if err := u.env.Catalog.UpdateService(ctx, rec.Key, name, string(value)); err != nil {
			return nil, services.Wrap(services.ErrTransient, name, "record mirror result", rec.Key, err)
		}
		logging.WithContext(ctx, u.env.logger()).Info("mirrored upload",
			logging.String(logging.FieldEventType, "mirror_uploaded"),
			logging.String("mirror", name),
			logging.String("url", result.URL),
		)
		return rec, nil
	}
}

// finish removes the uploaded file and local thumbnails. Files already gone
// are not an error, so a retried finish converges.
func (u uploads) finish(ctx context.Context, rec *job.Record) (*job.Record, error) {
	if err := requireUpload(rec, StepFinish); err != nil {
		return nil, err
	}
	var generated map[string]string
	if _, err := rec.GetData(DataThumbs, &generated); err != nil {
		return nil, services.Wrap(services.ErrValidation, StepFinish, "read thumbnails", rec.Key, err)
	}
	paths := []string{u.sourcePath(rec)}
	for _, path := range generated {
		paths = append(paths, path)
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrTransient, StepFinish, "remove file", filepath.Base(path), err)
		}
	}
	logging.WithContext(ctx, u.env.logger()).Debug("upload cleaned up", logging.Int("removed", len(paths)))
	return nil, nil
}
