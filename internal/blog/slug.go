package blog

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ellipsisRe = regexp.MustCompile(`\.{2,}`)
	nonSlugRe  = regexp.MustCompile(`[^0-9a-z.]+`)
)

// Slugify derives a URL slug from a title: accents are folded, the result is
// lowercased, ellipses become separators, every other run of characters
// outside [0-9a-z.] collapses to a single "-" and edge dashes are trimmed.
func Slugify(title string) string {
	slug := strings.ToLower(foldMarks(title))
	slug = ellipsisRe.ReplaceAllString(slug, " ")
	slug = nonSlugRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func foldMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// URLName is the path segment of a category: lowercase, spaces become dashes.
func URLName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}
