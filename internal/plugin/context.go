package plugin

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/filter"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// Materializer renders named templates into the staging tree.
type Materializer interface {
	Materialize(ctx context.Context, templateID, outputPath string, env map[string]any) error
}

// BuildContext carries everything a build needs. One is created per build,
// passed by reference to every stage and dropped when the build ends.
type BuildContext struct {
	// ID uniquely identifies this build.
	ID string

	// Logger provides structured logging scoped to the build (and controller, when running one).
	Logger *slog.Logger

	Config *config.Store
	Site   *config.Site

	// SourceDir is the site's source tree.
	SourceDir string

	// StagingDir is the private output root of this build.
	StagingDir string

	Filters  *filter.Registry
	Renderer Materializer

	// Settings is the running controller's controllers.<id> section.
	Settings config.View

	// Data lets controllers share values with later controllers and templates.
	Data map[string]any
}

// NewBuildContext creates a build context.
func NewBuildContext(id string, logger *slog.Logger, store *config.Store, site *config.Site) *BuildContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &BuildContext{
		ID:     id,
		Logger: logger.With(logfields.BuildID(id)),
		Config: store,
		Site:   site,
		Data:   make(map[string]any),
	}
}

// forRecord returns a shallow copy scoped to one controller. Data is shared.
func (bc *BuildContext) forRecord(rec *Record) *BuildContext {
	scoped := *bc
	scoped.Logger = bc.Logger.With(logfields.Plugin(rec.ID))
	scoped.Settings = rec.Config
	return &scoped
}

// Materialize renders through the configured renderer.
func (bc *BuildContext) Materialize(ctx context.Context, templateID, outputPath string, env map[string]any) error {
	return bc.Renderer.Materialize(ctx, templateID, outputPath, env)
}

// GetValue retrieves a value shared through Data.
func (bc *BuildContext) GetValue(key string) any {
	return bc.Data[key]
}

// SetValue shares a value through Data.
func (bc *BuildContext) SetValue(key string, value any) {
	bc.Data[key] = value
}
