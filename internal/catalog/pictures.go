package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"photolog/internal/textutil"
)

const pictureColumns = `id, key, name, filename, notes, format, original, thumb, medium, web, large,
	flickr, gphotos, year, month, day, width, height, size, camera, checksum,
	upload_date, upload_time, exif_read, date_taken, taken_time`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPicture(row rowScanner) (Picture, error) {
	var (
		p        Picture
		exifRead int
	)
	err := row.Scan(
		&p.ID, &p.Key, &p.Name, &p.Filename, &p.Notes, &p.Format, &p.Original,
		&p.Thumb, &p.Medium, &p.Web, &p.Large, &p.Flickr, &p.GPhotos,
		&p.Year, &p.Month, &p.Day, &p.Width, &p.Height, &p.Size, &p.Camera,
		&p.Checksum, &p.UploadDate, &p.UploadTime, &exifRead, &p.DateTaken, &p.TakenTime,
	)
	p.ExifRead = exifRead != 0
	return p, err
}

// AddPicture inserts p, or overwrites the row with the same key, and
// replaces its tag set with tags. Mirror columns of an existing row are
// preserved.
func (c *Catalog) AddPicture(ctx context.Context, p Picture, tags []string) error {
	if strings.TrimSpace(p.Key) == "" {
		return errors.New("picture key is required")
	}
	exifRead := 0
	if p.ExifRead {
		exifRead = 1
	}
	return c.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO pictures (
				key, name, filename, notes, format, original, thumb, medium, web, large,
				year, month, day, width, height, size, camera, checksum,
				upload_date, upload_time, exif_read, date_taken, taken_time
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				name = excluded.name, filename = excluded.filename, notes = excluded.notes,
				format = excluded.format, original = excluded.original, thumb = excluded.thumb,
				medium = excluded.medium, web = excluded.web, large = excluded.large,
				year = excluded.year, month = excluded.month, day = excluded.day,
				width = excluded.width, height = excluded.height, size = excluded.size,
				camera = excluded.camera, checksum = excluded.checksum,
				upload_date = excluded.upload_date, upload_time = excluded.upload_time,
				exif_read = excluded.exif_read, date_taken = excluded.date_taken,
				taken_time = excluded.taken_time`,
			p.Key, p.Name, p.Filename, p.Notes, p.Format, p.Original, p.Thumb, p.Medium, p.Web, p.Large,
			p.Year, p.Month, p.Day, p.Width, p.Height, p.Size, p.Camera, p.Checksum,
			p.UploadDate, p.UploadTime, exifRead, p.DateTaken, p.TakenTime,
		)
		if err != nil {
			return fmt.Errorf("upsert picture %s: %w", p.Key, err)
		}
		var id int64
		if err := tx.QueryRowContext(ctx, "SELECT id FROM pictures WHERE key = ?", p.Key).Scan(&id); err != nil {
			return fmt.Errorf("lookup picture %s: %w", p.Key, err)
		}
		return replaceTags(ctx, tx, id, tags)
	})
}

// Picture returns the picture stored under key.
func (c *Catalog) Picture(ctx context.Context, key string) (Picture, error) {
	row := c.db.QueryRowContext(ctx, "SELECT "+pictureColumns+" FROM pictures WHERE key = ?", key)
	p, err := scanPicture(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Picture{}, fmt.Errorf("%w: %s", ErrPictureNotFound, key)
	}
	if err != nil {
		return Picture{}, fmt.Errorf("get picture %s: %w", key, err)
	}
	return p, nil
}

// UpdateService stores a mirror result in the named service column.
func (c *Catalog) UpdateService(ctx context.Context, key, service, value string) error {
	var column string
	switch service {
	case ServiceFlickr:
		column = "flickr"
	case ServiceGPhotos:
		column = "gphotos"
	default:
		return fmt.Errorf("%w: %q", ErrUnknownService, service)
	}
	res, err := c.db.ExecContext(ctx, "UPDATE pictures SET "+column+" = ? WHERE key = ?", value, key)
	if err != nil {
		return fmt.Errorf("update %s for %s: %w", service, key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrPictureNotFound, key)
	}
	return nil
}

// PicturesForTag lists pictures carrying tag, newest upload first.
func (c *Catalog) PicturesForTag(ctx context.Context, tag string) ([]Picture, error) {
	return c.queryPictures(ctx, `SELECT `+pictureColumns+` FROM pictures WHERE id IN (
			SELECT tp.picture_id FROM tagged_pics tp JOIN tags t ON t.id = tp.tag_id WHERE t.name = ?
		) ORDER BY upload_time DESC, id DESC`, textutil.Slugify(tag, '-'))
}

// TagsForPicture returns the sorted tag names of the picture with key.
func (c *Catalog) TagsForPicture(ctx context.Context, key string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT t.name FROM tags t
		JOIN tagged_pics tp ON tp.tag_id = t.id
		JOIN pictures p ON p.id = tp.picture_id
		WHERE p.key = ? ORDER BY t.name`, key)
	if err != nil {
		return nil, fmt.Errorf("tags for %s: %w", key, err)
	}
	defer rows.Close()
	return scanNames(rows)
}

// Tags returns every known tag name, sorted.
func (c *Catalog) Tags(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT name FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()
	return scanNames(rows)
}

// Count returns the number of pictures.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM pictures").Scan(&n); err != nil {
		return 0, fmt.Errorf("count pictures: %w", err)
	}
	return n, nil
}

func (c *Catalog) queryPictures(ctx context.Context, query string, args ...any) ([]Picture, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pictures: %w", err)
	}
	defer rows.Close()
	var out []Picture
	for rows.Next() {
		p, err := scanPicture(rows)
		if err != nil {
			return nil, fmt.Errorf("scan picture: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanNames(rows *sql.Rows) ([]string, error) {
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// replaceTags swaps the tag set of picture id for tags, creating tag rows
// on first use.
func replaceTags(ctx context.Context, tx *sql.Tx, pictureID int64, tags []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM tagged_pics WHERE picture_id = ?", pictureID); err != nil {
		return fmt.Errorf("clear tags for picture %d: %w", pictureID, err)
	}
	for _, name := range textutil.NormalizeTags(tags) {
		if _, err := tx.ExecContext(ctx, "INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name); err != nil {
			return fmt.Errorf("add tag %q: %w", name, err)
		}
		var tagID int64
		if err := tx.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ?", name).Scan(&tagID); err != nil {
			return fmt.Errorf("lookup tag %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tagged_pics (tag_id, picture_id) VALUES (?, ?) ON CONFLICT(tag_id, picture_id) DO NOTHING",
			tagID, pictureID,
		); err != nil {
			return fmt.Errorf("tag picture %d with %q: %w", pictureID, name, err)
		}
	}
	return nil
}
