package blog

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/filter"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/frontmatter"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// DraftMarker in a post's file name excludes it unless drafts are published.
const DraftMarker = "DRAFT"

// UncategorizedName is the category of posts that declare none.
const UncategorizedName = "Uncategorized"

var postFileRe = regexp.MustCompile(`\.(textile|markdown|md|org|html|txt|rst)$`)

// ParsePost parses one document. Structural problems yield a CategoryParse
// error and a permalink outside the site a CategoryConfig error wrapping
// ErrForeignPermalink; both only concern this document. Unknown filters are
// CategoryConfig errors that concern the whole build.
func ParsePost(source, filename string, s *Settings, filters *filter.Registry) (*Post, error) {
	meta, body, err := frontmatter.Split([]byte(source))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryParse, "post has no metadata section").
			Warning().WithContext("post", filename).Build()
	}
	fields, err := frontmatter.ParseYAML(meta)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryParse, "invalid post metadata").
			Warning().WithContext("post", filename).Build()
	}

	p := &Post{Source: source, Filename: filename, Extra: map[string]any{}}
	chainSpec, hasChain, err := p.applyMetadata(fields, s)
	if err != nil {
		if classified, ok := errors.AsClassified(err); ok {
			return nil, classified.WithContext("post", filename)
		}
		return nil, errors.WrapError(err, errors.CategoryParse, "invalid post metadata").
			Warning().WithContext("post", filename).Build()
	}

	if !hasChain {
		if chain, ok := s.DefaultChain(filename); ok {
			chainSpec = chain
		}
	}
	if filters == nil {
		filters = filter.NewRegistry()
	}
	p.Filters, err = filters.Resolve(chainSpec)
	if err != nil {
		return nil, err
	}
	p.Content, err = filters.Apply(p.Filters, string(body))
	if err != nil {
		return nil, err
	}

	p.fillDefaults(s)
	p.Fingerprint = mdfp.CalculateFingerprintFromParts(strings.TrimRight(string(meta), "\r\n"), string(body))
	return p, nil
}

// applyMetadata copies decoded metadata onto p. Fields needing conversion are
// handled first; unknown keys land in Extra.
func (p *Post) applyMetadata(fields map[string]any, s *Settings) (chain any, hasChain bool, err error) {
	if raw, ok := fields["permalink"]; ok && raw != nil {
		p.Permalink, err = s.resolvePermalink(fmt.Sprint(raw))
		if err != nil {
			return nil, false, err
		}
	}
	if raw, ok := fields["guid"]; ok && raw != nil {
		p.GUID = fmt.Sprint(raw)
	}
	if raw, ok := fields["date"]; ok && raw != nil {
		if p.Date, err = s.parseDate(raw); err != nil {
			return nil, false, err
		}
	}
	if raw, ok := fields["updated"]; ok && raw != nil {
		if p.Updated, err = s.parseDate(raw); err != nil {
			return nil, false, err
		}
	}
	p.Categories = s.categorySet(stringList(fields["categories"]))
	p.Tags = uniqueSorted(stringList(fields["tags"]))
	p.Draft = truthy(fields["draft"])

	if raw, ok := fields["filter"]; ok {
		chain, hasChain = raw, true
	}
	if raw, ok := fields["filters"]; ok {
		chain, hasChain = raw, true
	}
	if chain == nil && hasChain {
		chain = "none"
	}

	for key, value := range fields {
		switch key {
		case "permalink", "guid", "date", "updated", "categories", "tags", "draft", "filter", "filters":
		case "title":
			p.Title = scalarString(value)
		case "slug":
			p.Slug = scalarString(value)
		case "author":
			p.Author = scalarString(value)
		case "source", "yaml", "content", "filename", "path":
			// internal names; a document cannot override them
		default:
			p.Extra[key] = value
		}
	}
	return chain, hasChain, nil
}

// fillDefaults completes the record in dependency order: title, slug, date,
// updated, categories, permalink, guid, excerpt.
func (p *Post) fillDefaults(s *Settings) {
	if p.Title == "" {
		p.Title = "Untitled - " + s.now().Format("2006-01-02 15:04:05")
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.Date.IsZero() {
		p.Date = s.now()
	}
	if p.Updated.IsZero() {
		p.Updated = p.Date
	}
	if len(p.Categories) == 0 {
		p.Categories = []Category{s.NewCategory(UncategorizedName)}
	}
	if p.Permalink == "" && s.AutoPermalink {
		p.Permalink = s.ExpandPermalink(s.PermalinkPattern, p)
	}
	if p.GUID == "" {
		p.GUID = p.Permalink
	}
	if s.ExcerptsEnabled {
		p.Excerpt = Excerpt(p.Content, s.ExcerptWords)
	}
}

// ParseDirectory parses every post below dir and returns the publishable
// ones, newest first. Documents that fail to parse are logged and skipped.
func ParseDirectory(dir string, s *Settings, filters *filter.Registry, logger *slog.Logger) ([]*Post, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		logger.Warn("This site has no posts directory", logfields.Path(dir))
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && postFileRe.MatchString(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to scan posts").
			Fatal().WithContext("path", dir).Build()
	}
	sort.Strings(paths)

	var posts []*Post
	byFingerprint := make(map[string]string)
	for _, path := range paths {
		name := filepath.Base(path)
		if strings.Contains(name, DraftMarker) && !s.PublishDrafts {
			logger.Info("Skipping draft post; set "+config.PublishDraftsEnv+" to publish it", logfields.Post(name))
			continue
		}

		// #nosec G304 -- posts are read from the site's own source tree
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "error reading post").
				Fatal().WithContext("path", path).Build()
		}

		p, err := ParsePost(string(src), name, s, filters)
		if err != nil {
			if skippable(err) {
				logger.Warn("Skipping post", logfields.Post(name), logfields.Error(err))
				continue
			}
			return nil, err
		}

		switch {
		case p.Draft:
			logger.Info("Post is marked as draft; ignoring it", logfields.Post(name))
			continue
		case p.Permalink == "":
			logger.Info("Post has no permalink; ignoring it", logfields.Post(name))
			continue
		}
		if other, dup := byFingerprint[p.Fingerprint]; dup {
			logger.Warn("Post duplicates another post", logfields.Post(name), slog.String("duplicate_of", other))
		} else {
			byFingerprint[p.Fingerprint] = name
		}
		posts = append(posts, p)
	}

	SortByDate(posts)
	logger.Info("Parsed posts", logfields.Count(len(posts)))
	return posts, nil
}

// skippable reports whether err invalidates only the post it came from.
func skippable(err error) bool {
	return errors.HasCategory(err, errors.CategoryParse) || stderrors.Is(err, ErrForeignPermalink)
}

func stringList(v any) []string {
	var raw []string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		raw = strings.Split(t, ",")
	case []any:
		for _, item := range t {
			if item != nil {
				raw = append(raw, fmt.Sprint(item))
			}
		}
	case []string:
		raw = t
	default:
		raw = []string{fmt.Sprint(t)}
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return config.ParseBool(t, t != "")
	case int:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

func scalarString(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
