package blog

import (
	"crypto/sha1" // #nosec G505 -- :uuid is a stable content id, not a security boundary
	"encoding/hex"
	stderrors "errors"
	"path"
	"strings"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// ErrForeignPermalink is the cause of an explicit permalink outside the
// configured site. It only invalidates the post that declares it.
var ErrForeignPermalink = stderrors.New("permalink for a different site than configured")

var filenameSlugReplacer = strings.NewReplacer(" ", "-", "?", "-")

// ExpandPermalink substitutes the placeholders of pattern for p and prefixes
// the site URL. Placeholders: :blog_path :year :month :day :title (the slug)
// :filename (the lowercased file name without extension) and :uuid (SHA-1 of
// the title). Substitution is a single pass, so placeholder text produced by a
// substitution is never expanded again.
func (s *Settings) ExpandPermalink(pattern string, p *Post) string {
	date := p.Date.In(s.Location)
	stem := strings.TrimSuffix(p.Filename, path.Ext(p.Filename))
	sum := sha1.Sum([]byte(p.Title)) // #nosec G401

	r := strings.NewReplacer(
		":blog_path", s.Path,
		":year", date.Format("2006"),
		":month", date.Format("01"),
		":day", date.Format("02"),
		":title", p.Slug,
		":filename", strings.ToLower(filenameSlugReplacer.Replace(stem)),
		":uuid", hex.EncodeToString(sum[:]),
	)
	return s.Site.URL + r.Replace(pattern)
}

// resolvePermalink makes an explicit permalink absolute and checks it belongs
// to the configured site. A leading "/" is relative to the site URL unless the
// value already starts with the site's path.
func (s *Settings) resolvePermalink(raw string) (string, error) {
	link := strings.TrimSpace(raw)
	if strings.HasPrefix(link, "/") {
		origin := strings.TrimSuffix(s.Site.URL, s.Site.Path)
		if s.Site.Path != "" && (link == s.Site.Path || strings.HasPrefix(link, s.Site.Path+"/")) {
			link = origin + link
		} else {
			link = s.Site.URL + link
		}
	}
	if !s.ownsURL(link) {
		return "", errors.WrapError(ErrForeignPermalink, errors.CategoryConfig, "permalink for a different site than configured").
			Warning().
			WithContext("permalink", link).
			WithContext("site", s.Site.URL).
			Build()
	}
	return link, nil
}

// ownsURL reports whether link lies below the site URL (case-insensitively).
func (s *Settings) ownsURL(link string) bool {
	base := s.Site.URL
	if len(link) < len(base) || !strings.EqualFold(link[:len(base)], base) {
		return false
	}
	rest := link[len(base):]
	return rest == "" || strings.HasPrefix(rest, "/") || strings.HasPrefix(rest, "?") || strings.HasPrefix(rest, "#")
}

// relativePath strips the site URL from a permalink, leaving the path of the
// page below the site root.
func (s *Settings) relativePath(link string) string {
	if !s.ownsURL(link) {
		return ""
	}
	rest := link[len(s.Site.URL):]
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	return strings.Trim(rest, "/")
}
