package catalog

import (
	"errors"
	"time"
)

// DateTakenLayout is the EXIF-style layout date_taken is stored in.
const DateTakenLayout = "2006:01:02 15:04:05"

// Service columns that hold mirror results.
const (
	ServiceFlickr  = "flickr"
	ServiceGPhotos = "gphotos"
)

var (
	// ErrPictureNotFound is returned when no picture has the requested key.
	ErrPictureNotFound = errors.New("picture not found")
	// ErrUnknownService is returned for a service column that does not exist.
	ErrUnknownService = errors.New("unknown service")
	// ErrSchemaMismatch indicates the catalog was created by another schema version.
	ErrSchemaMismatch = errors.New("catalog schema version mismatch")
)

// Picture is one catalog row.
type Picture struct {
	ID         int64
	Key        string
	Name       string
	Filename   string
	Notes      string
	Format     string
	Original   string
	Thumb      string
	Medium     string
	Web        string
	Large      string
	Flickr     string
	GPhotos    string
	Year       int
	Month      int
	Day        int
	Width      int
	Height     int
	Size       int64
	Camera     string
	Checksum   string
	UploadDate string
	UploadTime int64
	ExifRead   bool
	DateTaken  string
	TakenTime  int64
}

// SetTaken fills the date columns from t.
func (p *Picture) SetTaken(t time.Time) {
	p.DateTaken = t.Format(DateTakenLayout)
	p.TakenTime = t.Unix()
	p.Year = t.Year()
	p.Month = int(t.Month())
	p.Day = t.Day()
}
