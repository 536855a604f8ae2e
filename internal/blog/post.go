// Package blog implements the blog content model and the controller that
// turns a directory of posts into permapages, paginated indexes, category and
// archive pages, and feeds.
package blog

import (
	"net/url"
	"sort"
	"time"
)

// ReservedFields documents the metadata keys with built-in meaning. Any other
// key is kept in Post.Extra.
var ReservedFields = map[string]string{
	"title":      "A one-line free-form title for the post",
	"date":       "The date that the post was originally created",
	"updated":    "The date that the post was last updated",
	"categories": "Categories the post pertains to, comma separated or a list",
	"tags":       "Tags the post pertains to, comma separated or a list",
	"permalink":  "The full permanent URL for this post; derived when absent",
	"path":       "The path from the permalink of the post",
	"guid":       "A unique id for the post; defaults to the permalink",
	"slug":       "The title part of the URL; derived from the title when absent",
	"author":     "The name of the author of the post",
	"filters":    "The filter chain applied to the body; 'none' disables even default filters",
	"filter":     "Synonym for filters",
	"draft":      "If true the post is not published",
	"source":     "Reserved internally",
	"yaml":       "Reserved internally",
	"content":    "Reserved internally",
	"filename":   "Reserved internally",
}

// Post is one parsed content document. Posts are compared by identity.
type Post struct {
	// Source is the raw document text.
	Source   string
	Filename string

	Title   string
	Date    time.Time
	Updated time.Time

	Categories []Category
	Tags       []string

	Permalink string
	GUID      string
	Slug      string
	Author    string
	Draft     bool

	// Filters is the resolved chain that produced Content.
	Filters []string
	Content string
	Excerpt string

	// Fingerprint identifies the document's metadata and body.
	Fingerprint string

	// Extra holds metadata keys that are not reserved.
	Extra map[string]any
}

// Path returns the URL path of the permalink.
func (p *Post) Path() string {
	u, err := url.Parse(p.Permalink)
	if err != nil {
		return ""
	}
	return u.Path
}

// Field looks up a metadata value by its front matter name, reserved or not.
func (p *Post) Field(name string) (any, bool) {
	switch name {
	case "title":
		return p.Title, true
	case "date":
		return p.Date, true
	case "updated":
		return p.Updated, true
	case "categories":
		return p.Categories, true
	case "tags":
		return p.Tags, true
	case "permalink":
		return p.Permalink, true
	case "path":
		return p.Path(), true
	case "guid":
		return p.GUID, true
	case "slug":
		return p.Slug, true
	case "author":
		return p.Author, true
	case "filters", "filter":
		return p.Filters, true
	case "draft":
		return p.Draft, true
	case "source":
		return p.Source, true
	case "content":
		return p.Content, true
	case "filename":
		return p.Filename, true
	}
	v, ok := p.Extra[name]
	return v, ok
}

// Get returns Field's value or nil. Convenient in templates.
func (p *Post) Get(name string) any {
	v, _ := p.Field(name)
	return v
}

// InCategory reports whether the post is filed under the named category.
func (p *Post) InCategory(name string) bool {
	for _, c := range p.Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (p *Post) String() string {
	return "<Post title='" + p.Title + "' date='" + p.Date.Format("2006/01/02 15:04:05") + "'>"
}

// Category is identified by name. URLName and Path are derived.
type Category struct {
	Name    string
	URLName string
	// Path is the absolute URL path of the category's index.
	Path string
}

func (c Category) String() string { return c.Name }

// NewCategory derives a category's URL name and path.
func (s *Settings) NewCategory(name string) Category {
	urlName := URLName(name)
	return Category{
		Name:    name,
		URLName: urlName,
		Path:    s.SitePath(s.CategoryDir, urlName),
	}
}

// categorySet builds a name-unique, name-sorted category list.
func (s *Settings) categorySet(names []string) []Category {
	seen := make(map[string]struct{}, len(names))
	var out []Category
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, s.NewCategory(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SortByDate orders posts newest first, keeping input order for equal dates.
func SortByDate(posts []*Post) {
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].Date.After(posts[j].Date) })
}
