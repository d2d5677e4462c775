package api

import (
	"context"

	"photolog/internal/queue"
)

// QueueReader abstracts queue persistence interactions needed for API queries.
type QueueReader interface {
	PeekEntries(ctx context.Context, n int) ([]queue.Entry, error)
	BadJobsRaw(ctx context.Context) ([]queue.Entry, error)
	Stats(ctx context.Context) (queue.Stats, error)
}

// QueueService exposes read-only queue operations returning API DTOs.
type QueueService struct {
	store QueueReader
}

// NewQueueService constructs a QueueService around the provided reader.
func NewQueueService(store QueueReader) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// Peek returns up to limit pending entries in dequeue order together with
// the pending total.
func (s *QueueService) Peek(ctx context.Context, limit int) (QueueListResponse, error) {
	if s == nil || s.store == nil {
		return QueueListResponse{}, nil
	}
	limit = normalizeLimit(limit)
	entries, err := s.store.PeekEntries(ctx, limit)
	if err != nil {
		return QueueListResponse{}, err
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return QueueListResponse{}, err
	}
	return QueueListResponse{Entries: FromEntries(entries), Total: stats.Pending}, nil
}

// Bad returns up to limit quarantined entries, most recent first, including
// undecodable ones.
func (s *QueueService) Bad(ctx context.Context, limit int) (QueueListResponse, error) {
	if s == nil || s.store == nil {
		return QueueListResponse{}, nil
	}
	limit = normalizeLimit(limit)
	entries, err := s.store.BadJobsRaw(ctx)
	if err != nil {
		return QueueListResponse{}, err
	}
	total := len(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return QueueListResponse{Entries: FromEntries(entries), Total: total}, nil
}

// Stats returns both table sizes.
func (s *QueueService) Stats(ctx context.Context) (QueueStats, error) {
	if s == nil || s.store == nil {
		return QueueStats{}, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return QueueStats{}, err
	}
	return FromQueueStats(stats), nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultPeekLimit
	}
	return limit
}
