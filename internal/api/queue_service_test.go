package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"photolog/internal/job"
	"photolog/internal/queue"
)

type mockQueueReader struct {
	pending  []queue.Entry
	bad      []queue.Entry
	stats    queue.Stats
	peekN    int
	entryErr error
	statsErr error
}

func (m *mockQueueReader) PeekEntries(_ context.Context, n int) ([]queue.Entry, error) {
	m.peekN = n
	if n < len(m.pending) {
		return m.pending[:n], m.entryErr
	}
	return m.pending, m.entryErr
}

func (m *mockQueueReader) BadJobsRaw(context.Context) ([]queue.Entry, error) {
	return m.bad, m.entryErr
}

func (m *mockQueueReader) Stats(context.Context) (queue.Stats, error) {
	return m.stats, m.statsErr
}

func uploadEntry(id int64, filename string) queue.Entry {
	return queue.Entry{
		ID:         id,
		EnqueuedAt: time.Date(2024, 5, 1, 12, 0, int(id), 0, time.UTC),
		Record: &job.Record{
			Key:    "key",
			Step:   "upload_and_store",
			Upload: &job.Upload{Filename: filename},
		},
	}
}

func TestQueueService_PeekDefaultsLimit(t *testing.T) {
	reader := &mockQueueReader{
		pending: []queue.Entry{uploadEntry(1, "a.jpg"), uploadEntry(2, "b.jpg")},
		stats:   queue.Stats{Pending: 2},
	}
	svc := NewQueueService(reader)
	got, err := svc.Peek(context.Background(), 0)
	if err != nil {
		t.Fatalf("Peek returned error: %v", err)
	}
	if reader.peekN != DefaultPeekLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultPeekLimit, reader.peekN)
	}
	if got.Total != 2 || len(got.Entries) != 2 {
		t.Fatalf("unexpected listing: %+v", got)
	}
	if got.Entries[0].Subject != "a.jpg" || got.Entries[0].Type != "upload" {
		t.Fatalf("unexpected first entry: %+v", got.Entries[0])
	}
}

func TestQueueService_BadTruncatesButReportsTotal(t *testing.T) {
	reader := &mockQueueReader{
		bad: []queue.Entry{
			uploadEntry(3, "c.jpg"),
			{ID: 2, Blob: []byte("not json"), DecodeErr: "decode job record: invalid character"},
			uploadEntry(1, "a.jpg"),
		},
	}
	svc := NewQueueService(reader)
	got, err := svc.Bad(context.Background(), 2)
	if err != nil {
		t.Fatalf("Bad returned error: %v", err)
	}
	if got.Total != 3 || len(got.Entries) != 2 {
		t.Fatalf("expected 2 of 3 entries, got %+v", got)
	}
	if got.Entries[1].DecodeError == "" {
		t.Fatalf("expected decode error on corrupt entry, got %+v", got.Entries[1])
	}
}

func TestQueueService_Errors(t *testing.T) {
	svc := NewQueueService(&mockQueueReader{statsErr: errors.New("boom")})
	if _, err := svc.Peek(context.Background(), 5); err == nil {
		t.Fatal("expected stats error to propagate")
	}
	if _, err := svc.Stats(context.Background()); err == nil {
		t.Fatal("expected stats error")
	}
}

func TestQueueService_NilReader(t *testing.T) {
	if svc := NewQueueService(nil); svc != nil {
		t.Fatal("expected nil service for nil reader")
	}
	var svc *QueueService
	got, err := svc.Peek(context.Background(), 1)
	if err != nil || len(got.Entries) != 0 {
		t.Fatalf("expected empty result from nil service, got %+v %v", got, err)
	}
}
