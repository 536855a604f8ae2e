package blog

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/plugin"
)

// Handle is the provider name of the blog controller.
const Handle = "blog"

// DataKey is the BuildContext.Data key holding the *Blog of the last blog run.
const DataKey = "blog"

// Controller turns the posts directory into a blog.
type Controller struct {
	// Now overrides the clock of parsed posts; nil uses time.Now.
	Now func() time.Time
}

// New is the blog controller factory.
func New() plugin.Controller { return &Controller{} }

// Metadata implements plugin.Controller.
func (c *Controller) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "Blog",
		Description: "Creates a Blog",
	}
}

// Defaults implements plugin.Controller.
func (c *Controller) Defaults() map[string]any { return Defaults() }

// Run parses posts, groups them and writes every page family. Any render
// error aborts the run.
func (c *Controller) Run(ctx context.Context, bc *plugin.BuildContext) error {
	if bc.Site == nil || bc.Renderer == nil {
		return errors.InternalError("blog controller needs a site and a renderer").Build()
	}
	s, err := NewSettings(bc.Site, bc.Settings)
	if err != nil {
		return err
	}
	if c.Now != nil {
		s.Now = c.Now
	}

	postsDir := s.PostsDir
	if !filepath.IsAbs(postsDir) {
		postsDir = filepath.Join(bc.SourceDir, postsDir)
	}
	posts, err := ParseDirectory(postsDir, s, bc.Filters, bc.Logger)
	if err != nil {
		return err
	}

	b := &Blog{
		Settings:    s,
		Index:       s.Classify(posts),
		Name:        bc.Settings.StringOr("name", "Blog"),
		Description: bc.Settings.String("description"),
		Posts:       posts,
	}
	bc.SetValue(DataKey, b)

	written, err := b.WritePages(ctx, bc.Renderer, bc.Logger)
	if err != nil {
		return err
	}
	bc.Logger.Info("Blog written",
		logfields.Count(written),
		logfields.Path(s.OutputPath()),
		slog.Int("posts", len(posts)))
	return nil
}
