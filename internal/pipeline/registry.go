package pipeline

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"photolog/internal/config"
	"photolog/internal/job"
	"photolog/internal/media/exifmeta"
	"photolog/internal/services"
)

// Step names shared by the upload chains. Mirror steps are named after the
// mirror they upload to.
const (
	StepUploadAndStore = "upload_and_store"
	StepFlickr         = config.MirrorFlickr
	StepGPhotos        = config.MirrorGPhotos
	StepFinish         = "finish"
)

// Registry maps records to kinds. It is immutable after construction.
type Registry struct {
	files  config.Files
	chains map[exifmeta.Format]*Chain
	kinds  map[job.Type]Kind
}

// NewRegistry builds the upload chains and maintenance kinds over env.
func NewRegistry(cfg *config.Config, env *Env) (*Registry, error) {
	logger := env.logger()
	u := uploads{env: env}

	image, err := NewChain(string(exifmeta.FormatImage),
		Step{Name: StepUploadAndStore, Action: u.uploadAndStore(exifmeta.FormatImage), Next: StepFlickr},
		Step{Name: StepFlickr, Action: u.mirror(StepFlickr), Next: StepGPhotos},
		Step{Name: StepGPhotos, Action: u.mirror(StepGPhotos), Next: StepFinish},
		Step{Name: StepFinish, Action: u.finish},
	)
	if err != nil {
		return nil, err
	}
	raw, err := NewChain(string(exifmeta.FormatRaw),
		Step{Name: StepUploadAndStore, Action: u.uploadAndStore(exifmeta.FormatRaw), Next: StepFinish},
		Step{Name: StepFinish, Action: u.finish},
	)
	if err != nil {
		return nil, err
	}
	video, err := NewChain(string(exifmeta.FormatVideo),
		Step{Name: StepUploadAndStore, Action: u.uploadAndStore(exifmeta.FormatVideo), Next: StepGPhotos},
		Step{Name: StepGPhotos, Action: u.mirror(StepGPhotos), Next: StepFinish},
		Step{Name: StepFinish, Action: u.finish},
	)
	if err != nil {
		return nil, err
	}

	m := maintenance{env: env}
	return &Registry{
		files: cfg.Files,
		chains: map[exifmeta.Format]*Chain{
			exifmeta.FormatImage: image.WithLogger(logger),
			exifmeta.FormatRaw:   raw.WithLogger(logger),
			exifmeta.FormatVideo: video.WithLogger(logger),
		},
		kinds: map[job.Type]Kind{
			job.TypeTagDay:     singleShot{name: string(job.TypeTagDay), run: m.tagDay},
			job.TypeMassTag:    singleShot{name: string(job.TypeMassTag), run: m.massTag},
			job.TypeEditDates:  singleShot{name: string(job.TypeEditDates), run: m.editDates},
			job.TypeChangeDate: singleShot{name: string(job.TypeChangeDate), run: m.changeDate},
		},
	}, nil
}

// Resolve selects the kind for rec. It does not mutate rec.
func (r *Registry) Resolve(rec *job.Record) (Kind, error) {
	kind := rec.Kind()
	if kind == job.TypeUpload {
		if rec.Upload == nil {
			return nil, services.Wrap(services.ErrValidation, "", "resolve kind", "upload record has no payload", nil)
		}
		format, err := Classify(r.files, rec.Upload.Filename)
		if err != nil {
			return nil, err
		}
		return r.chains[format], nil
	}
	if k, ok := r.kinds[kind]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, kind)
}

// Chain returns the upload chain for format.
func (r *Registry) Chain(format exifmeta.Format) (*Chain, bool) {
	c, ok := r.chains[format]
	return c, ok
}

// Classify maps filename's extension onto one of the configured sets.
func Classify(files config.Files, filename string) (exifmeta.Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	switch {
	case ext == "":
	case slices.Contains(files.ImageExtensions, ext):
		return exifmeta.FormatImage, nil
	case slices.Contains(files.RawExtensions, ext):
		return exifmeta.FormatRaw, nil
	case slices.Contains(files.VideoExtensions, ext):
		return exifmeta.FormatVideo, nil
	}
	return "", fmt.Errorf("%w: %q (%s)", ErrUnknownExtension, ext, filepath.Base(filename))
}
