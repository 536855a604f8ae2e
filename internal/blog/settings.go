package blog

import (
	"strings"
	"time"
	_ "time/tzdata" // blog.timezone names must resolve without a system zoneinfo

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// Settings is the typed view of the controllers.blog section.
type Settings struct {
	Site *config.Site

	// Path is the blog's path below the site root, with a leading slash and
	// no trailing slash ("/blog").
	Path     string
	Location *time.Location

	PostsPerPage     int
	AutoPermalink    bool
	PermalinkPattern string
	CustomIndex      bool

	ExcerptsEnabled bool
	ExcerptWords    int

	PaginationDir string
	CategoryDir   string
	ArchiveDir    string

	// DateLayout is the Go layout translated from post.date_format.
	DateLayout string
	// DefaultFilters maps a file extension (without dot) to a filter chain.
	DefaultFilters map[string]string

	PostsDir      string
	PublishDrafts bool

	// Now is the clock used for missing titles and dates.
	Now func() time.Time
}

// Defaults are the blog controller's declared configuration defaults.
func Defaults() map[string]any {
	return map[string]any{
		"name":           "Blog",
		"description":    "Creates a Blog",
		"priority":       90.0,
		"path":           "/blog",
		"timezone":       "US/Eastern",
		"posts_per_page": 5,
		"auto_permalink": map[string]any{
			"enabled": true,
			"path":    ":blog_path/:year/:month/:day/:title",
		},
		"custom_index": false,
		"post_excerpts": map[string]any{
			"enabled":     true,
			"word_length": 25,
		},
		"pagination_dir": "page",
		"category_dir":   "category",
		"archive_dir":    "archive",
		"posts_dir":      "_posts",
		"post": map[string]any{
			"date_format": "%Y/%m/%d %H:%M:%S",
		},
		"post_default_filters": map[string]any{
			"markdown": "syntax_highlight, markdown",
			"md":       "syntax_highlight, markdown",
			"html":     "syntax_highlight",
		},
	}
}

// NewSettings resolves the blog settings from its configuration section.
func NewSettings(site *config.Site, v config.View) (*Settings, error) {
	tzName := v.StringOr("timezone", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, errors.ConfigError("unknown blog timezone").
			WithCause(err).WithContext("timezone", tzName).Build()
	}

	perPage := v.IntOr("posts_per_page", 5)
	if perPage < 1 {
		return nil, errors.ConfigError("posts_per_page must be at least 1").
			WithContext("posts_per_page", perPage).Build()
	}

	s := &Settings{
		Site:             site,
		Path:             "/" + config.JoinURLPath(v.StringOr("path", "/blog")),
		Location:         loc,
		PostsPerPage:     perPage,
		AutoPermalink:    v.BoolOr("auto_permalink.enabled", true),
		PermalinkPattern: v.StringOr("auto_permalink.path", ":blog_path/:year/:month/:day/:title"),
		CustomIndex:      v.Bool("custom_index"),
		ExcerptsEnabled:  v.BoolOr("post_excerpts.enabled", true),
		ExcerptWords:     v.IntOr("post_excerpts.word_length", 25),
		PaginationDir:    config.JoinURLPath(v.StringOr("pagination_dir", "page")),
		CategoryDir:      config.JoinURLPath(v.StringOr("category_dir", "category")),
		ArchiveDir:       config.JoinURLPath(v.StringOr("archive_dir", "archive")),
		DateLayout:       StrftimeLayout(v.StringOr("post.date_format", "%Y/%m/%d %H:%M:%S")),
		DefaultFilters:   v.StringMap("post_default_filters"),
		PostsDir:         v.StringOr("posts_dir", "_posts"),
		PublishDrafts:    config.PublishDrafts(),
		Now:              time.Now,
	}
	if s.DefaultFilters == nil {
		s.DefaultFilters = map[string]string{}
	}
	return s, nil
}

// now returns the current time in the blog timezone.
func (s *Settings) now() time.Time {
	clock := s.Now
	if clock == nil {
		clock = time.Now
	}
	return clock().In(s.Location)
}

// URL is the absolute URL of the blog root.
func (s *Settings) URL() string {
	return s.Site.URL + s.Path
}

// SitePath joins parts below the blog path into an absolute URL path.
func (s *Settings) SitePath(parts ...string) string {
	return s.Site.SitePath(append([]string{s.Path}, parts...)...)
}

// OutputPath joins parts below the blog path into a site-relative output path.
func (s *Settings) OutputPath(parts ...string) string {
	return config.JoinURLPath(append([]string{s.Path}, parts...)...)
}

// DefaultChain returns the default filter chain for a filename's extension.
func (s *Settings) DefaultChain(filename string) (string, bool) {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return "", false
	}
	chain, ok := s.DefaultFilters[strings.ToLower(filename[i+1:])]
	return chain, ok
}
