package blog

import (
	"context"
	"log/slog"
	"path"
	"strconv"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/plugin"
)

// Template ids of the page families.
const (
	PermapageTemplate     = "blog/permapage.tmpl"
	ChronologicalTemplate = "blog/chronological.tmpl"
	RSSTemplate           = "blog/rss.tmpl"
	AtomTemplate          = "blog/atom.tmpl"
)

// Blog is the state of one blog for one build. It is shared with templates
// as "blog".
type Blog struct {
	*Settings
	*Index

	Name        string
	Description string
	Posts       []*Post
}

// pageWriter renders the page families of one blog.
type pageWriter struct {
	blog     *Blog
	renderer plugin.Materializer
	logger   *slog.Logger
	written  int
}

func (w *pageWriter) render(ctx context.Context, templateID, out string, env map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.logger.Debug("Writing page", logfields.Template(templateID), logfields.Path(out))
	if err := w.renderer.Materialize(ctx, templateID, out, env); err != nil {
		return err
	}
	w.written++
	return nil
}

// listEnv is the environment of the chronological template. Every key is
// present so templates can test any of them.
func listEnv(page Page) map[string]any {
	return map[string]any{
		"posts":     page.Posts,
		"page":      page.Number,
		"prev_link": page.PrevLink,
		"next_link": page.NextLink,
		"name":      nil,
		"category":  nil,
		"archive":   nil,
	}
}

// WritePages renders permapages, chronological pages, archives, categories
// and feeds, in that order. It returns the number of files written.
func (b *Blog) WritePages(ctx context.Context, renderer plugin.Materializer, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w := &pageWriter{blog: b, renderer: renderer, logger: logger}
	for _, step := range []func(context.Context) error{
		w.permapages,
		w.chronological,
		w.archives,
		w.categories,
		w.feeds,
	} {
		if err := step(ctx); err != nil {
			return w.written, err
		}
	}
	return w.written, nil
}

func (w *pageWriter) permapages(ctx context.Context) error {
	posts := w.blog.Posts
	for i, p := range posts {
		rel := w.blog.relativePath(p.Permalink)
		if rel == "" {
			w.logger.Warn("Post permalink resolves to the site root; skipping permapage",
				logfields.Post(p.Filename), slog.String("permalink", p.Permalink))
			continue
		}
		env := map[string]any{
			"post":      p,
			"posts":     posts,
			"prev_post": nil,
			"next_post": nil,
		}
		if i < len(posts)-1 {
			env["prev_post"] = posts[i+1]
		}
		if i > 0 {
			env["next_post"] = posts[i-1]
		}
		w.logger.Info("Writing permapage", logfields.Post(p.Filename), logfields.Path(rel))
		if err := w.render(ctx, PermapageTemplate, path.Join(rel, "index.html"), env); err != nil {
			return err
		}
	}
	return nil
}

func (w *pageWriter) chronological(ctx context.Context) error {
	s := w.blog.Settings
	pages := Paginate(w.blog.Posts, s.PostsPerPage, func(n int) string {
		return "../" + strconv.Itoa(n)
	})
	for _, page := range pages {
		out := s.OutputPath(s.PaginationDir, strconv.Itoa(page.Number), "index.html")
		if err := w.render(ctx, ChronologicalTemplate, out, listEnv(page)); err != nil {
			return err
		}
	}

	if s.CustomIndex {
		return nil
	}
	first := Page{Number: 1}
	if len(pages) > 0 {
		first.Posts = pages[0].Posts
		if len(pages) > 1 {
			first.NextLink = s.SitePath(s.PaginationDir, "2")
		}
	}
	out := s.OutputPath("index.html")
	w.logger.Info("Writing blog index page", logfields.Path(out))
	return w.render(ctx, ChronologicalTemplate, out, listEnv(first))
}

func (w *pageWriter) archives(ctx context.Context) error {
	s := w.blog.Settings
	for _, link := range w.blog.ArchiveLinks {
		dir := []string{s.ArchiveDir, link.Key.Dir()}
		pages := Paginate(w.blog.ArchivedPosts[link.Key], s.PostsPerPage, func(n int) string {
			return s.SitePath(append(dir, strconv.Itoa(n))...)
		})
		for _, page := range pages {
			env := listEnv(page)
			env["archive"] = link
			env["name"] = link.Label
			if err := w.writeListPage(ctx, dir, page, env); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *pageWriter) categories(ctx context.Context) error {
	s := w.blog.Settings
	for _, cc := range w.blog.AllCategories {
		c := cc.Category
		dir := []string{s.CategoryDir, c.URLName}
		posts := w.blog.CategorizedPosts[c.Name]

		if err := w.writeFeeds(ctx, posts, s.OutputPath(append(dir, "feed")...)); err != nil {
			return err
		}

		pages := Paginate(posts, s.PostsPerPage, func(n int) string {
			return s.SitePath(append(dir, strconv.Itoa(n))...)
		})
		for _, page := range pages {
			env := listEnv(page)
			env["category"] = c
			env["name"] = c.Name
			if err := w.writeListPage(ctx, dir, page, env); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeListPage writes a numbered page below dir. Page 1 is also written as
// the index of dir.
func (w *pageWriter) writeListPage(ctx context.Context, dir []string, page Page, env map[string]any) error {
	s := w.blog.Settings
	out := s.OutputPath(append(dir, strconv.Itoa(page.Number), "index.html")...)
	if err := w.render(ctx, ChronologicalTemplate, out, env); err != nil {
		return err
	}
	if page.Number != 1 {
		return nil
	}
	return w.render(ctx, ChronologicalTemplate, s.OutputPath(append(dir, "index.html")...), env)
}

func (w *pageWriter) feeds(ctx context.Context) error {
	return w.writeFeeds(ctx, w.blog.Posts, w.blog.OutputPath("feed"))
}

// writeFeeds writes the RSS feed at root/index.xml and the Atom feed at
// root/atom/index.xml.
func (w *pageWriter) writeFeeds(ctx context.Context, posts []*Post, root string) error {
	updated := LatestUpdate(posts)
	for _, feed := range []struct{ template, root string }{
		{RSSTemplate, root},
		{AtomTemplate, path.Join(root, "atom")},
	} {
		out := path.Join(feed.root, "index.xml")
		w.logger.Info("Writing feed", logfields.Path(out))
		if err := w.render(ctx, feed.template, out, map[string]any{
			"posts":   posts,
			"root":    feed.root,
			"updated": updated,
		}); err != nil {
			return err
		}
	}
	return nil
}

// LatestUpdate returns the newest Updated time of posts, or the zero time for
// an empty list.
func LatestUpdate(posts []*Post) time.Time {
	var latest time.Time
	for _, p := range posts {
		if p.Updated.After(latest) {
			latest = p.Updated
		}
	}
	return latest
}
