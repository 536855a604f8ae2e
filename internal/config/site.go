package config

import (
	"net/url"
	"os"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// DefaultOutputDir is the published tree, relative to the source directory.
const DefaultOutputDir = "_site"

// PublishDraftsEnv includes posts whose filename carries the draft marker when non-empty.
const PublishDraftsEnv = "BLOGBUILDER_PUBLISH_DRAFTS"

// Site is the typed snapshot of the site.* settings used by every build stage.
type Site struct {
	URL            string
	Path           string // URL path of URL without trailing slash ("" at the domain root)
	OutputDir      string
	IgnorePatterns []*regexp.Regexp
	TemplateVars   map[string]any
}

// Site resolves the site settings, compiling the ignore patterns.
func (s *Store) Site() (*Site, error) {
	v := s.Sub("site")

	raw := strings.TrimSpace(v.String("url"))
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.ConfigError("site.url must be an absolute URL").
			WithCause(err).WithContext("url", raw).Build()
	}

	site := &Site{
		URL:          strings.TrimRight(raw, "/"),
		Path:         strings.TrimRight(u.Path, "/"),
		OutputDir:    v.StringOr("output_dir", DefaultOutputDir),
		TemplateVars: v.Map("template_vars"),
	}
	if site.TemplateVars == nil {
		site.TemplateVars = map[string]any{}
	}

	for _, p := range v.StringSlice("file_ignore_patterns") {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, errors.ConfigError("invalid file ignore pattern").
				WithCause(err).WithContext("pattern", p).Build()
		}
		site.IgnorePatterns = append(site.IgnorePatterns, re)
	}
	return site, nil
}

// SitePath joins parts below the site path into an absolute URL path.
// Empty parts and redundant slashes are dropped.
func (s *Site) SitePath(parts ...string) string {
	return "/" + JoinURLPath(append([]string{s.Path}, parts...)...)
}

// AbsoluteURL joins parts below the site URL.
func (s *Site) AbsoluteURL(parts ...string) string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return s.SitePath(parts...)
	}
	return u.Scheme + "://" + u.Host + s.SitePath(parts...)
}

// Ignored reports whether the "./"-prefixed relative path matches an ignore pattern.
func (s *Site) Ignored(rel string) bool {
	for _, re := range s.IgnorePatterns {
		if re.MatchString(rel) {
			return true
		}
	}
	return false
}

// JoinURLPath joins URL path fragments with single slashes and no leading or
// trailing slash.
func JoinURLPath(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		for _, seg := range strings.Split(strings.ReplaceAll(p, `\`, "/"), "/") {
			if seg != "" {
				out = append(out, seg)
			}
		}
	}
	return strings.Join(out, "/")
}

// PublishDrafts reports whether draft-marked filenames should be published.
func PublishDrafts() bool {
	return os.Getenv(PublishDraftsEnv) != ""
}
