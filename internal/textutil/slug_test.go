package textutil

import (
	"reflect"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		sep  rune
		want string
	}{
		{"Été 2019", '-', "ete-2019"},
		{"  Beach   Day!! ", '-', "beach-day"},
		{"Zoë's Birthday", '_', "zoe_s_birthday"},
		{"---", '-', ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in, tt.sep); got != tt.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTagsDedupes(t *testing.T) {
	got := NormalizeTags([]string{"Family", "family", " ", "Café", "cafe", "Road Trip"})
	want := []string{"family", "cafe", "road-trip"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeTags = %v, want %v", got, want)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList("a, b", "", "c,,d ")
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitList = %v, want %v", got, want)
	}
}

func TestSafeStemFallback(t *testing.T) {
	if got := SafeStem("???"); got != "upload" {
		t.Fatalf("expected fallback stem, got %q", got)
	}
	if got := SafeStem("IMG 0001"); got != "IMG-0001" {
		t.Fatalf("unexpected stem %q", got)
	}
	if got := SafeStem("  Été à Paris (2)"); got != "Ete-a-Paris-2" {
		t.Fatalf("expected case kept and accents folded, got %q", got)
	}
}
