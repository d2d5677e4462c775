package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"photolog/internal/config"
	"photolog/internal/job"
	"photolog/internal/media/exifmeta"
	"photolog/internal/pipeline"
	"photolog/internal/services"
	"photolog/internal/testsupport"
)

func TestClassifyByExtension(t *testing.T) {
	files := config.Default().Files
	cases := map[string]exifmeta.Format{
		"a.jpg":          exifmeta.FormatImage,
		"B.JPEG":         exifmeta.FormatImage,
		"c.nef":          exifmeta.FormatRaw,
		"d.CR2":          exifmeta.FormatRaw,
		"e.mov":          exifmeta.FormatVideo,
		"dir/f.mp4":      exifmeta.FormatVideo,
		"archive.tar.gz": "",
		"noext":          "",
	}
	for name, want := range cases {
		got, err := pipeline.Classify(files, name)
		if want == "" {
			if !errors.Is(err, pipeline.ErrUnknownExtension) {
				t.Errorf("%s: expected ErrUnknownExtension, got %v", name, err)
			}
			continue
		}
		if err != nil || got != want {
			t.Errorf("%s: got %q / %v, want %q", name, got, err, want)
		}
	}
}

func TestRegistryResolve(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	env := newTestEnv(t, cfg)
	registry, err := pipeline.NewRegistry(cfg, env.Env)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	cases := []struct {
		filename string
		name     string
		steps    []string
	}{
		{"a.jpg", "image", []string{pipeline.StepUploadAndStore, pipeline.StepFlickr, pipeline.StepGPhotos, pipeline.StepFinish}},
		{"a.dng", "raw", []string{pipeline.StepUploadAndStore, pipeline.StepFinish}},
		{"a.mp4", "video", []string{pipeline.StepUploadAndStore, pipeline.StepGPhotos, pipeline.StepFinish}},
	}
	for _, tc := range cases {
		kind, err := registry.Resolve(testsupport.UploadRecord("k", tc.filename))
		if err != nil {
			t.Fatalf("%s: Resolve: %v", tc.filename, err)
		}
		if kind.Name() != tc.name {
			t.Fatalf("%s: expected kind %q, got %q", tc.filename, tc.name, kind.Name())
		}
		chain, ok := kind.(*pipeline.Chain)
		if !ok {
			t.Fatalf("%s: expected chain, got %T", tc.filename, kind)
		}
		got := chain.Steps()
		if len(got) != len(tc.steps) {
			t.Fatalf("%s: expected steps %v, got %v", tc.filename, tc.steps, got)
		}
		for i := range got {
			if got[i] != tc.steps[i] {
				t.Fatalf("%s: expected steps %v, got %v", tc.filename, tc.steps, got)
			}
		}
	}

	for _, typ := range []job.Type{job.TypeTagDay, job.TypeMassTag, job.TypeEditDates, job.TypeChangeDate} {
		kind, err := registry.Resolve(&job.Record{Key: "k", Type: typ})
		if err != nil {
			t.Fatalf("%s: Resolve: %v", typ, err)
		}
		if kind.Name() != string(typ) {
			t.Fatalf("expected kind %s, got %s", typ, kind.Name())
		}
	}

	if _, err := registry.Resolve(testsupport.UploadRecord("k", "notes.txt")); !errors.Is(err, pipeline.ErrUnknownExtension) {
		t.Fatalf("expected ErrUnknownExtension, got %v", err)
	}
	if _, err := registry.Resolve(&job.Record{Key: "k", Type: "defrag"}); !errors.Is(err, pipeline.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	if _, err := registry.Resolve(&job.Record{Key: "k", Type: job.TypeUpload}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for upload without payload, got %v", err)
	}

	rec := testsupport.UploadRecord("k", "a.jpg")
	before, _ := rec.Encode()
	if _, err := registry.Resolve(rec); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	after, _ := rec.Encode()
	if string(before) != string(after) {
		t.Fatal("Resolve mutated the record")
	}
}

func TestMaintenanceKinds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	env := newTestEnv(t, cfg)
	registry, err := pipeline.NewRegistry(cfg, env.Env)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	ctx := context.Background()

	rec := testsupport.UploadRecord("pic1", "beach.jpg")
	testsupport.WriteFile(t, env.sourcePath(rec), 64)
	env.meta.taken = "2015:12:25 14:30:05"
	runChain(t, registry, rec)

	run := func(rec *job.Record) {
		t.Helper()
		kind, err := registry.Resolve(rec)
		if err != nil {
			t.Fatalf("Resolve %s: %v", rec.Type, err)
		}
		next, err := kind.Process(ctx, rec)
		if err != nil {
			t.Fatalf("Process %s: %v", rec.Type, err)
		}
		if next != nil {
			t.Fatalf("expected %s to complete in one step, got %+v", rec.Type, next)
		}
	}

	day := job.Day{Year: 2015, Month: 12, Day: 25}
	run(&job.Record{Key: "m1", Type: job.TypeTagDay, TagDay: &job.TagDay{Day: day, Tags: []string{"xmas"}}})
	if pics, _ := env.catalog.PicturesForTag(ctx, "xmas"); len(pics) != 1 {
		t.Fatalf("expected tag-day to tag one picture, got %d", len(pics))
	}

	run(&job.Record{Key: "m2", Type: job.TypeMassTag, MassTag: &job.MassTag{Keys: []string{"pic1"}, Tags: []string{"family"}}})
	tags, _ := env.catalog.TagsForPicture(ctx, "pic1")
	if len(tags) != 1 || tags[0] != "family" {
		t.Fatalf("expected mass-tag to replace tags, got %v", tags)
	}

	run(&job.Record{Key: "m3", Type: job.TypeChangeDate, ChangeDate: &job.ChangeDate{From: day, To: job.Day{Year: 2016, Month: 2, Day: 29}}})
	pic, err := env.catalog.Picture(ctx, "pic1")
	if err != nil {
		t.Fatalf("Picture: %v", err)
	}
	if pic.DateTaken != "2016:02:29 14:30:05" {
		t.Fatalf("expected moved date, got %q", pic.DateTaken)
	}

	run(&job.Record{Key: "m4", Type: job.TypeEditDates, EditDates: &job.EditDates{Items: []job.DateEdit{{Key: "pic1", DateTaken: "2001:01:02 03:04:05"}}}})
	pic, _ = env.catalog.Picture(ctx, "pic1")
	if pic.Year != 2001 || pic.Month != 1 || pic.Day != 2 {
		t.Fatalf("expected edited date, got %d-%d-%d", pic.Year, pic.Month, pic.Day)
	}

	kind, _ := registry.Resolve(&job.Record{Key: "m5", Type: job.TypeEditDates})
	if _, err := kind.Process(ctx, &job.Record{Key: "m5", Type: job.TypeEditDates}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing payload, got %v", err)
	}
	bad := &job.Record{Key: "m6", Type: job.TypeEditDates, EditDates: &job.EditDates{Items: []job.DateEdit{{Key: "missing", DateTaken: "2001:01:02 03:04:05"}}}}
	if _, err := kind.Process(ctx, bad); err == nil {
		t.Fatal("expected error editing unknown picture")
	}
}
