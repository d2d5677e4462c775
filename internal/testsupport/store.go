package testsupport

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"photolog/internal/catalog"
	"photolog/internal/config"
	"photolog/internal/job"
	"photolog/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenCatalog opens a catalog.Catalog for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Catalog {
	t.Helper()

	cat, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		cat.Close()
	})
	return cat
}

// UploadRecord builds a fresh upload job for filename at the first image step.
func UploadRecord(key, filename string) *job.Record {
	return &job.Record{
		Key:  key,
		Type: job.TypeUpload,
		Step: "upload_and_store",
		Upload: &job.Upload{
			Filename:         filename,
			OriginalFilename: filename,
			UploadedAt:       time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC),
		},
	}
}

// MustAppend appends records to the queue or fails the test.
func MustAppend(t testing.TB, store *queue.Store, records ...*job.Record) {
	t.Helper()
	for _, rec := range records {
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("append %s: %v", rec.Key, err)
		}
	}
}

// InsertRaw writes blob into table behind the store's back, for exercising
// entries the queue API would refuse to encode.
func InsertRaw(t testing.TB, store *queue.Store, table queue.Table, blob []byte) {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+store.Path()+"?_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer db.Close()
	query := fmt.Sprintf("INSERT INTO %s (item, enqueued_at) VALUES (?, ?)", table)
	if _, err := db.Exec(query, blob, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		t.Fatalf("insert raw blob: %v", err)
	}
}
