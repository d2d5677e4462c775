package ffprobe

import (
	"math"
	"testing"
	"time"
)

const phoneClip = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "hevc", "width": 1920, "height": 1080,
     "tags": {"creation_time": "2023-07-14T18:22:31.000000Z"},
     "side_data_list": [{"side_data_type": "Display Matrix", "rotation": -90}]},
    {"index": 1, "codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"filename": "clip.mov", "duration": "12.480000", "size": "24117248", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
}`

func TestParsePhoneClip(t *testing.T) {
	result, err := Parse([]byte(phoneClip))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	width, height := result.Dimensions()
	if width != 1080 || height != 1920 {
		t.Fatalf("expected rotated 1080x1920, got %dx%d", width, height)
	}
	created, ok := result.CreationTime()
	if !ok || !created.Equal(time.Date(2023, 7, 14, 18, 22, 31, 0, time.UTC)) {
		t.Fatalf("unexpected creation time %v (ok=%v)", created, ok)
	}
	if result.DurationSeconds() != 12.48 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 24117248 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if w, h := result.Dimensions(); w != 0 || h != 0 {
		t.Fatalf("expected no dimensions without a video stream, got %dx%d", w, h)
	}
	if _, ok := result.CreationTime(); ok {
		t.Fatal("expected no creation time")
	}
}

func TestRotationFromTag(t *testing.T) {
	stream := Stream{Tags: map[string]string{"rotate": "270"}}
	if stream.Rotation() != 270 {
		t.Fatalf("expected 270, got %d", stream.Rotation())
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}
