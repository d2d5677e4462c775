package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Type names a job kind.
type Type string

const (
	TypeUpload     Type = "upload"
	TypeTagDay     Type = "tag-day"
	TypeMassTag    Type = "mass-tag"
	TypeEditDates  Type = "edit-dates"
	TypeChangeDate Type = "change-date"
)

// Types lists every known kind in display order.
func Types() []Type {
	return []Type{TypeUpload, TypeTagDay, TypeMassTag, TypeEditDates, TypeChangeDate}
}

// ErrInvalidRecord marks records that violate the producer contract.
var ErrInvalidRecord = errors.New("invalid job record")

// Record is one unit of work.
type Record struct {
	Key     string   `json:"key"`
	Type    Type     `json:"type,omitempty"`
	Step    string   `json:"step,omitempty"`
	Attempt int      `json:"attempt"`
	Skip    []string `json:"skip,omitempty"`

	// Data is written by step actions for later steps (metadata, thumbnail
	// paths, published URLs). Keys are owned by the pipeline.
	Data map[string]json.RawMessage `json:"data,omitempty"`

	Upload     *Upload     `json:"upload,omitempty"`
	TagDay     *TagDay     `json:"tag_day,omitempty"`
	MassTag    *MassTag    `json:"mass_tag,omitempty"`
	EditDates  *EditDates  `json:"edit_dates,omitempty"`
	ChangeDate *ChangeDate `json:"change_date,omitempty"`
}

// Upload is the payload of an uploaded media file.
type Upload struct {
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	UploadedAt       time.Time `json:"uploaded_at"`
	Checksum         string    `json:"checksum,omitempty"`
}

// Day identifies a calendar day in the catalog.
type Day struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// Valid reports whether d is a real calendar date.
func (d Day) Valid() bool {
	if d.Year < 1 || d.Month < 1 || d.Month > 12 || d.Day < 1 {
		return false
	}
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	return t.Day() == d.Day && int(t.Month()) == d.Month
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// ParseDay parses YYYY-MM-DD.
func ParseDay(value string) (Day, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", value, err)
	}
	return Day{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}, nil
}

// TagDay replaces the tags of every picture taken on a day.
type TagDay struct {
	Day
	Tags []string `json:"tags"`
}

// MassTag replaces the tags of the listed pictures.
type MassTag struct {
	Keys []string `json:"keys"`
	Tags []string `json:"tags"`
}

// DateEdit sets the taken date of one picture.
type DateEdit struct {
	Key       string `json:"key"`
	DateTaken string `json:"date_taken"`
}

// EditDates sets new taken dates on individual pictures.
type EditDates struct {
	Items []DateEdit `json:"items"`
}

// ChangeDate moves every picture taken on From to To.
type ChangeDate struct {
	From Day `json:"from"`
	To   Day `json:"to"`
}

// Kind returns the effective job type; an empty type means upload.
func (r *Record) Kind() Type {
	if r == nil || r.Type == "" {
		return TypeUpload
	}
	return r.Type
}

// HasSkip reports whether step is in the skip set.
func (r *Record) HasSkip(step string) bool {
	return slices.Contains(r.Skip, step)
}

// SetData JSON-encodes value under key in the side channel.
func (r *Record) SetData(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode data %q: %w", key, err)
	}
	if r.Data == nil {
		r.Data = make(map[string]json.RawMessage)
	}
	r.Data[key] = raw
	return nil
}

// GetData decodes the side channel value stored under key into dst. It
// reports false when the key is absent.
func (r *Record) GetData(key string, dst any) (bool, error) {
	raw, ok := r.Data[key]
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode data %q: %w", key, err)
	}
	return true, nil
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	raw, err := json.Marshal(r)
	if err != nil {
		// Every field is JSON-safe; fall back to a shallow copy.
		cp := *r
		return &cp
	}
	var cp Record
	if err := json.Unmarshal(raw, &cp); err != nil {
		cp = *r
	}
	return &cp
}

// Encode serializes r for storage.
func (r *Record) Encode() ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	return json.Marshal(r)
}

// Decode parses a stored record.
func Decode(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode job record: %w", err)
	}
	return &rec, nil
}

// ValidateEnvelope checks only the fields the queue engine relies on.
func (r *Record) ValidateEnvelope() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.Key) == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidRecord)
	}
	if r.Attempt < 0 {
		return fmt.Errorf("%w: attempt must be >= 0", ErrInvalidRecord)
	}
	return nil
}

// Validate checks the envelope and the payload that matches Type. Producers
// call it before enqueueing new work.
func (r *Record) Validate() error {
	if err := r.ValidateEnvelope(); err != nil {
		return err
	}
	switch r.Kind() {
	case TypeUpload:
		if r.Upload == nil || strings.TrimSpace(r.Upload.Filename) == "" {
			return fmt.Errorf("%w: upload payload requires a filename", ErrInvalidRecord)
		}
		if strings.TrimSpace(r.Step) == "" {
			return fmt.Errorf("%w: upload job requires a step", ErrInvalidRecord)
		}
	case TypeTagDay:
		if r.TagDay == nil || !r.TagDay.Valid() {
			return fmt.Errorf("%w: tag-day payload requires a valid date", ErrInvalidRecord)
		}
	case TypeMassTag:
		if r.MassTag == nil || len(r.MassTag.Keys) == 0 {
			return fmt.Errorf("%w: mass-tag payload requires keys", ErrInvalidRecord)
		}
	case TypeEditDates:
		if r.EditDates == nil || len(r.EditDates.Items) == 0 {
			return fmt.Errorf("%w: edit-dates payload requires items", ErrInvalidRecord)
		}
		for _, item := range r.EditDates.Items {
			if strings.TrimSpace(item.Key) == "" {
				return fmt.Errorf("%w: edit-dates item requires a key", ErrInvalidRecord)
			}
			if _, err := ParseTaken(item.DateTaken); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
			}
		}
	case TypeChangeDate:
		if r.ChangeDate == nil || !r.ChangeDate.From.Valid() || !r.ChangeDate.To.Valid() {
			return fmt.Errorf("%w: change-date payload requires valid from/to dates", ErrInvalidRecord)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, r.Type)
	}
	return nil
}

// takenLayouts are the accepted date_taken formats, most specific first.
var takenLayouts = []string{
	time.RFC3339,
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTaken parses a picture's taken date in any accepted layout.
func ParseTaken(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range takenLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}
