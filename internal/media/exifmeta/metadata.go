package exifmeta

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"photolog/internal/media/ffprobe"
)

// TimestampLayout is the EXIF DateTimeOriginal layout.
const TimestampLayout = "2006:01:02 15:04:05"

const unknownCamera = "Unknown camera"

// Format selects the extraction strategy.
type Format string

const (
	FormatImage Format = "image"
	FormatRaw   Format = "raw"
	FormatVideo Format = "video"
)

// Metadata describes one upload.
type Metadata struct {
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	Day         int     `json:"day"`
	Timestamp   string  `json:"timestamp,omitempty"`
	Camera      string  `json:"camera"`
	Orientation int     `json:"orientation"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Size        int64   `json:"size"`
	ExifRead    bool    `json:"exif_read"`
	Duration    float64 `json:"duration,omitempty"`
}

// Taken returns the capture time, or midnight of the recorded day when only
// the day is known.
func (m Metadata) Taken() time.Time {
	if m.Timestamp != "" {
		if t, err := time.Parse(TimestampLayout, m.Timestamp); err == nil {
			return t
		}
	}
	return time.Date(m.Year, time.Month(m.Month), m.Day, 0, 0, 0, 0, time.UTC)
}

// Reader extracts metadata. The zero value uses ffprobe from PATH.
type Reader struct {
	FFprobe string
}

// Read extracts metadata for path according to format. uploadedAt provides
// the date when the file does not carry one.
func (r Reader) Read(ctx context.Context, path string, format Format, uploadedAt time.Time) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("stat %s: %w", path, err)
	}
	meta := Metadata{
		Year:   uploadedAt.Year(),
		Month:  int(uploadedAt.Month()),
		Day:    uploadedAt.Day(),
		Camera: unknownCamera,
		Size:   info.Size(),
	}
	switch format {
	case FormatImage, FormatRaw:
		if err := readExif(path, &meta); err != nil {
			return Metadata{}, err
		}
		if format == FormatImage {
			if err := readDimensions(path, &meta); err != nil {
				return Metadata{}, err
			}
		}
	case FormatVideo:
		if err := r.readVideo(ctx, path, &meta); err != nil {
			return Metadata{}, err
		}
	default:
		return Metadata{}, fmt.Errorf("unsupported metadata format %q", format)
	}
	return meta, nil
}

func readExif(path string, meta *Metadata) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	// Non-critical decode errors still return usable tags. Files without an
	// EXIF block keep the upload date.
	x, err := exif.Decode(f)
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		return nil
	}
	meta.ExifRead = true

	if ts := tagString(x, exif.DateTimeOriginal); ts != "" {
		if t, err := time.Parse(TimestampLayout, ts); err == nil {
			meta.Timestamp = ts
			meta.Year, meta.Month, meta.Day = t.Year(), int(t.Month()), t.Day()
		}
	}
	brand := tagString(x, exif.Make)
	model := tagString(x, exif.Model)
	if camera := strings.TrimSpace(brand + " " + model); camera != "" {
		meta.Camera = camera
	}
	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil {
			meta.Orientation = v
		}
	}
	meta.Width = tagInt(x, exif.PixelXDimension)
	meta.Height = tagInt(x, exif.PixelYDimension)
	return nil
}

func tagString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	value, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(value, "\x00"))
}

func tagInt(x *exif.Exif, name exif.FieldName) int {
	tag, err := x.Get(name)
	if err != nil {
		return 0
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return v
}

// readDimensions prefers the decoded frame size over EXIF pixel tags.
// Formats without a registered decoder keep whatever EXIF reported.
func readDimensions(path string, meta *Metadata) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil
		}
		return fmt.Errorf("decode image header %s: %w", path, err)
	}
	meta.Width, meta.Height = cfg.Width, cfg.Height
	return nil
}

func (r Reader) readVideo(ctx context.Context, path string, meta *Metadata) error {
	result, err := ffprobe.Inspect(ctx, r.FFprobe, path)
	if err != nil {
		return err
	}
	meta.Width, meta.Height = result.Dimensions()
	meta.Duration = result.DurationSeconds()
	if created, ok := result.CreationTime(); ok {
		created = created.UTC()
		meta.Timestamp = created.Format(TimestampLayout)
		meta.Year, meta.Month, meta.Day = created.Year(), int(created.Month()), created.Day()
		meta.ExifRead = true
	}
	return nil
}
