package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"photolog/internal/job"
)

// TagDay replaces the tags of every picture taken on day. It returns the
// number of pictures retagged.
func (c *Catalog) TagDay(ctx context.Context, day job.Day, tags []string) (int, error) {
	updated := 0
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		ids, err := idsFor(ctx, tx, "SELECT id FROM pictures WHERE year = ? AND month = ? AND day = ?", day.Year, day.Month, day.Day)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := replaceTags(ctx, tx, id, tags); err != nil {
				return err
			}
		}
		updated = len(ids)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("tag day %s: %w", day, err)
	}
	return updated, nil
}

// MassTag replaces the tags of the pictures with the given keys. Unknown
// keys are ignored.
func (c *Catalog) MassTag(ctx context.Context, keys, tags []string) (int, error) {
	updated := 0
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		updated = 0
		for _, key := range keys {
			ids, err := idsFor(ctx, tx, "SELECT id FROM pictures WHERE key = ?", key)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := replaceTags(ctx, tx, id, tags); err != nil {
					return err
				}
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("mass tag: %w", err)
	}
	return updated, nil
}

// EditDates sets the taken date of each listed picture. Every key must
// exist; the whole batch is rolled back otherwise.
func (c *Catalog) EditDates(ctx context.Context, items []job.DateEdit) (int, error) {
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		for _, item := range items {
			taken, err := job.ParseTaken(item.DateTaken)
			if err != nil {
				return fmt.Errorf("picture %s: %w", item.Key, err)
			}
			var p Picture
			p.SetTaken(taken)
			res, err := tx.ExecContext(ctx,
				"UPDATE pictures SET date_taken = ?, taken_time = ?, year = ?, month = ?, day = ? WHERE key = ?",
				p.DateTaken, p.TakenTime, p.Year, p.Month, p.Day, item.Key,
			)
			if err != nil {
				return fmt.Errorf("update date of %s: %w", item.Key, err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return fmt.Errorf("%w: %s", ErrPictureNotFound, item.Key)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("edit dates: %w", err)
	}
	return len(items), nil
}

// ChangeDate moves every picture taken on from to to, keeping each
// picture's time of day.
func (c *Catalog) ChangeDate(ctx context.Context, from, to job.Day) (int, error) {
	updated := 0
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			"SELECT id, date_taken FROM pictures WHERE year = ? AND month = ? AND day = ?",
			from.Year, from.Month, from.Day,
		)
		if err != nil {
			return fmt.Errorf("select pictures on %s: %w", from, err)
		}
		type moved struct {
			id    int64
			taken string
		}
		var pending []moved
		for rows.Next() {
			var m moved
			if err := rows.Scan(&m.id, &m.taken); err != nil {
				rows.Close()
				return err
			}
			pending = append(pending, m)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, m := range pending {
			var clock time.Time
			if parsed, err := job.ParseTaken(m.taken); err == nil {
				clock = parsed
			}
			target := time.Date(to.Year, time.Month(to.Month), to.Day,
				clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)
			var p Picture
			p.SetTaken(target)
			if _, err := tx.ExecContext(ctx,
				"UPDATE pictures SET date_taken = ?, taken_time = ?, year = ?, month = ?, day = ? WHERE id = ?",
				p.DateTaken, p.TakenTime, p.Year, p.Month, p.Day, m.id,
			); err != nil {
				return fmt.Errorf("move picture %d: %w", m.id, err)
			}
		}
		updated = len(pending)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("change date %s -> %s: %w", from, to, err)
	}
	return updated, nil
}

func idsFor(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select picture ids: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
