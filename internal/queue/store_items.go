package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"photolog/internal/job"
)

// Append serializes rec and inserts it at the tail of the pending queue.
func (s *Store) Append(ctx context.Context, rec *job.Record) error {
	return s.insert(ctx, TablePending, rec)
}

// AppendBad inserts rec into the poison table.
func (s *Store) AppendBad(ctx context.Context, rec *job.Record) error {
	return s.insert(ctx, TableBad, rec)
}

func (s *Store) insert(ctx context.Context, table Table, rec *job.Record) error {
	if err := rec.ValidateEnvelope(); err != nil {
		return err
	}
	blob, err := rec.Encode()
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.Key, err)
	}
	query := fmt.Sprintf("INSERT INTO %s (item, enqueued_at) VALUES (?, ?)", table)
	if _, err := s.execWithRetry(ctx, query, blob, s.timestamp()); err != nil {
		return fmt.Errorf("append to %s: %w", table, err)
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// PopLeft removes and returns the oldest pending record.
//
// When the queue is empty and blocking is false it returns ErrEmpty. When
// blocking is true it polls with a growing sleep (bounded by the configured
// maximum) until an entry arrives or ctx is done, in which case ctx.Err() is
// returned and nothing is removed. A head entry that cannot be decoded is
// moved to the poison table in the same transaction and ErrCorruptRecord is
// returned.
func (s *Store) PopLeft(ctx context.Context, blocking bool) (*job.Record, error) {
	ctx = ensureContext(ctx)
	wait := s.pollInitial
	for tries := 1; ; tries++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.popOnce(ctx)
		if !errors.Is(err, ErrEmpty) || !blocking {
			return rec, err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		wait = min(s.pollMax, wait+time.Duration(tries)*s.pollInitial)
	}
}

func (s *Store) popOnce(ctx context.Context) (*job.Record, error) {
	var (
		rec     *job.Record
		corrupt error
	)
	err := s.withImmediateTx(ctx, func(conn *sql.Conn) error {
		rec, corrupt = nil, nil
		var (
			id       int64
			blob     []byte
			enqueued string
		)
		row := conn.QueryRowContext(ctx, "SELECT id, item, enqueued_at FROM queue ORDER BY id LIMIT 1")
		if err := row.Scan(&id, &blob, &enqueued); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrEmpty
			}
			return fmt.Errorf("select head: %w", err)
		}
		if _, err := conn.ExecContext(ctx, "DELETE FROM queue WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete head %d: %w", id, err)
		}
		decoded, decodeErr := job.Decode(blob)
		if decodeErr != nil {
			if _, err := conn.ExecContext(ctx, "INSERT INTO bad_jobs (item, enqueued_at) VALUES (?, ?)", blob, s.timestamp()); err != nil {
				return fmt.Errorf("quarantine corrupt entry %d: %w", id, err)
			}
			corrupt = fmt.Errorf("%w: entry %d: %v", ErrCorruptRecord, id, decodeErr)
			return nil
		}
		rec = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	if corrupt != nil {
		return nil, corrupt
	}
	return rec, nil
}

// Peek returns up to n of the oldest pending records without removing them.
// Undecodable entries are skipped.
func (s *Store) Peek(ctx context.Context, n int) ([]*job.Record, error) {
	if n <= 0 {
		return []*job.Record{}, nil
	}
	entries, err := s.list(ctx, "SELECT id, item, enqueued_at FROM queue ORDER BY id ASC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("peek: %w", err)
	}
	return decodedRecords(entries), nil
}

// PeekEntries returns up to n of the oldest pending entries with their ids.
func (s *Store) PeekEntries(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return []Entry{}, nil
	}
	entries, err := s.list(ctx, "SELECT id, item, enqueued_at FROM queue ORDER BY id ASC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("peek entries: %w", err)
	}
	return entries, nil
}

// BadJobs returns up to limit quarantined records, most recent first.
// Undecodable entries are skipped; use BadJobsRaw to see them.
func (s *Store) BadJobs(ctx context.Context, limit int) ([]*job.Record, error) {
	if limit <= 0 {
		return []*job.Record{}, nil
	}
	entries, err := s.list(ctx, "SELECT id, item, enqueued_at FROM bad_jobs ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("bad jobs: %w", err)
	}
	return decodedRecords(entries), nil
}

// BadJobsRaw returns every quarantined entry, most recent first, including
// those whose blob cannot be decoded.
func (s *Store) BadJobsRaw(ctx context.Context) ([]Entry, error) {
	entries, err := s.list(ctx, "SELECT id, item, enqueued_at FROM bad_jobs ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("bad jobs raw: %w", err)
	}
	return entries, nil
}

// RetryJobs moves every decodable poison entry back to the pending queue,
// oldest first, with its attempt counter reset to zero. Entries that cannot
// be decoded stay in the poison table. It returns the number moved.
func (s *Store) RetryJobs(ctx context.Context) (int, error) {
	moved := 0
	err := s.withImmediateTx(ctx, func(conn *sql.Conn) error {
		moved = 0
		entries, err := queryEntries(ctx, conn, "SELECT id, item, enqueued_at FROM bad_jobs ORDER BY id ASC")
		if err != nil {
			return err
		}
		stamp := s.timestamp()
		for _, entry := range entries {
			if entry.Record == nil {
				continue
			}
			entry.Record.Attempt = 0
			blob, err := entry.Record.Encode()
			if err != nil {
				return fmt.Errorf("encode entry %d: %w", entry.ID, err)
			}
			if _, err := conn.ExecContext(ctx, "INSERT INTO queue (item, enqueued_at) VALUES (?, ?)", blob, stamp); err != nil {
				return fmt.Errorf("requeue entry %d: %w", entry.ID, err)
			}
			if _, err := conn.ExecContext(ctx, "DELETE FROM bad_jobs WHERE id = ?", entry.ID); err != nil {
				return fmt.Errorf("delete bad entry %d: %w", entry.ID, err)
			}
			moved++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("retry bad jobs: %w", err)
	}
	return moved, nil
}

// PurgeBad deletes one poison entry and reports whether it existed.
func (s *Store) PurgeBad(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM bad_jobs WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("purge bad job %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// PurgeAllBad deletes every poison entry and returns how many were removed.
func (s *Store) PurgeAllBad(ctx context.Context) (int, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM bad_jobs")
	if err != nil {
		return 0, fmt.Errorf("purge bad jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// Len returns the number of pending entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	return s.count(ctx, TablePending)
}

// BadLen returns the number of poison entries.
func (s *Store) BadLen(ctx context.Context) (int, error) {
	return s.count(ctx, TableBad)
}

// Stats returns both table sizes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	pending, err := s.Len(ctx)
	if err != nil {
		return Stats{}, err
	}
	bad, err := s.BadLen(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Pending: pending, Bad: bad}, nil
}

func (s *Store) count(ctx context.Context, table Table) (int, error) {
	ctx = ensureContext(ctx)
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(1) FROM %s", table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	return queryEntries(ensureContext(ctx), s.db, query, args...)
}

func queryEntries(ctx context.Context, q queryer, query string, args ...any) ([]Entry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry    Entry
			enqueued string
		)
		if err := rows.Scan(&entry.ID, &entry.Blob, &enqueued); err != nil {
			return nil, err
		}
		if ts, err := parseTimeString(enqueued); err == nil {
			entry.EnqueuedAt = ts
		}
		if rec, err := job.Decode(entry.Blob); err == nil {
			entry.Record = rec
		} else {
			entry.DecodeErr = err.Error()
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func decodedRecords(entries []Entry) []*job.Record {
	out := make([]*job.Record, 0, len(entries))
	for _, entry := range entries {
		if entry.Record != nil {
			out = append(out, entry.Record)
		}
	}
	return out
}
