package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldASCII decomposes accented characters and drops the combining marks.
func foldASCII(value string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}

// Slugify lowercases value, folds accents, and collapses every run of
// non-alphanumeric characters into a single separator.
func Slugify(value string, sep rune) string {
	return collapse(strings.ToLower(foldASCII(strings.TrimSpace(value))), sep)
}

// collapse keeps ASCII letters and digits and joins the runs between them
// with sep.
func collapse(value string, sep rune) string {
	var b strings.Builder
	b.Grow(len(value))
	pending := false
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteRune(sep)
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// NormalizeTags slugifies tags with '-' separators, dropping blanks and
// duplicates while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		slug := Slugify(tag, '-')
		if slug == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}
	return out
}

// SplitList splits comma separated input (as typed on the command line) and
// trims each element.
func SplitList(values ...string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

// SafeStem returns a filesystem-safe stem for name (without extension),
// falling back to "upload" when nothing usable remains. Case is preserved.
func SafeStem(name string) string {
	stem := collapse(foldASCII(strings.TrimSpace(name)), '-')
	if stem == "" {
		return "upload"
	}
	if len(stem) > 64 {
		stem = strings.TrimRight(stem[:64], "-")
	}
	return stem
}
