package site

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/blogbuilder/internal/blog"
	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/filter"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
	"git.home.luguber.info/inful/blogbuilder/internal/plugin"
	"git.home.luguber.info/inful/blogbuilder/internal/render"
	"git.home.luguber.info/inful/blogbuilder/internal/workspace"
)

// ControllersDir holds controller manifests in the source tree.
const ControllersDir = "_controllers"

// Build stages, as reported to the metrics recorder.
const (
	StageConfig      = "config"
	StageControllers = "controllers"
	StageFiles       = "files"
	StageReconcile   = "reconcile"
)

// Hook runs at a fixed point of a build.
type Hook func(ctx context.Context, bc *plugin.BuildContext) error

// Hooks are optional callbacks around a build. Finally always runs, with the
// build's error (nil on success).
type Hooks struct {
	PreBuild  Hook
	PostBuild Hook
	Finally   func(bc *plugin.BuildContext, err error)
}

// Options configures a Writer.
type Options struct {
	// SourceDir is the site's source tree.
	SourceDir string
	// OutputDir overrides site.output_dir. Relative paths are below SourceDir.
	OutputDir string
	// KeepExtraneous disables deleting published files the build did not produce.
	KeepExtraneous bool
	// StagingBase is where staging directories are created (system temp dir when empty).
	StagingBase string

	// Overrides are applied at the highest configuration precedence.
	Overrides map[string]any
	// Providers adds controller handles next to the builtin blog controller.
	Providers map[string]plugin.Factory
	// Filters adds filters next to the builtin ones.
	Filters map[string]filter.Filter

	Hooks    Hooks
	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// Result describes a finished build.
type Result struct {
	BuildID   string
	OutputDir string
	// SitePath is the URL path the site is published under.
	SitePath string
	Pages     int
	Report    ReconcileReport
	Duration  time.Duration
}

// Writer builds one site. Builds must not run concurrently.
type Writer struct {
	opts     Options
	logger   *slog.Logger
	recorder metrics.Recorder
}

// NewWriter creates a writer for opts.SourceDir.
func NewWriter(opts Options) *Writer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Writer{opts: opts, logger: logger, recorder: recorder}
}

// SourceDir returns the source tree being built.
func (w *Writer) SourceDir() string { return w.opts.SourceDir }

// Build runs one complete build. Any failure before reconciliation leaves the
// published tree untouched.
func (w *Writer) Build(ctx context.Context) (res *Result, err error) {
	start := time.Now()
	id := uuid.NewString()
	logger := w.logger.With(logfields.BuildID(id))
	res = &Result{BuildID: id}

	var bc *plugin.BuildContext
	defer func() {
		res.Duration = time.Since(start)
		w.recorder.ObserveBuildDuration(res.Duration)
		switch {
		case err == nil:
			w.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
			logger.Info("Build complete", logfields.DurationMS(float64(res.Duration.Milliseconds())), logfields.Count(res.Pages))
		case stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded):
			w.recorder.IncBuildOutcome(metrics.BuildOutcomeCanceled)
			logger.Warn("Build canceled", logfields.Error(err))
		default:
			w.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
			logger.Error("Build failed", logfields.Error(err))
		}
		if w.opts.Hooks.Finally != nil {
			w.opts.Hooks.Finally(bc, err)
		}
	}()

	var (
		store *config.Store
		site  *config.Site
	)
	if err = w.stage(StageConfig, func() error {
		store, site, err = w.loadConfig()
		return err
	}); err != nil {
		return res, err
	}
	res.OutputDir = w.outputDir(site)
	res.SitePath = site.Path

	registry := plugin.NewRegistry(store, logger)
	registry.Provide(blog.Handle, blog.New)
	for handle, factory := range w.opts.Providers {
		registry.Provide(handle, factory)
	}
	if _, err = registry.Discover(filepath.Join(w.opts.SourceDir, ControllersDir)); err != nil {
		return res, err
	}
	if err = registry.RegisterAll(); err != nil {
		return res, err
	}

	ws := workspace.NewManager(w.opts.StagingBase, logger)
	if err = ws.Create(); err != nil {
		return res, errors.WrapError(err, errors.CategoryFileSystem, "failed to create staging directory").Fatal().Build()
	}
	defer func() {
		if cleanupErr := ws.Cleanup(); cleanupErr != nil {
			logger.Warn("Failed to remove staging directory", logfields.Error(cleanupErr))
		}
	}()
	staging := ws.GetPath()

	bc = plugin.NewBuildContext(id, w.logger, store, site)
	bc.SourceDir = w.opts.SourceDir
	bc.StagingDir = staging

	filters := filter.NewDefaultRegistry()
	for _, fid := range sortedKeys(w.opts.Filters) {
		if err = filters.Register(fid, w.opts.Filters[fid]); err != nil {
			return res, err
		}
	}
	bc.Filters = filters

	renderer, err := render.New(render.Options{
		SourceDir:  w.opts.SourceDir,
		StagingDir: staging,
		Site:       site,
		Logger:     bc.Logger,
		Data:       bc.Data,
	})
	if err != nil {
		return res, err
	}
	bc.Renderer = renderer

	if w.opts.Hooks.PreBuild != nil {
		if err = w.opts.Hooks.PreBuild(ctx, bc); err != nil {
			return res, err
		}
	}

	if err = filters.InitAll(ctx, filter.Env{StagingDir: staging, Site: site, Logger: bc.Logger}, store); err != nil {
		return res, err
	}
	if err = w.stage(StageControllers, func() error {
		if initErr := registry.InitAll(ctx, bc); initErr != nil {
			return initErr
		}
		return registry.RunAll(ctx, bc)
	}); err != nil {
		return res, err
	}
	if err = w.stage(StageFiles, func() error {
		return w.writeFiles(ctx, renderer, site, res.OutputDir, staging, bc.Logger)
	}); err != nil {
		return res, err
	}
	res.Pages = renderer.Written()
	w.recorder.AddPagesRendered(res.Pages)

	if err = ctx.Err(); err != nil {
		return res, err
	}
	if err = w.stage(StageReconcile, func() error {
		report, recErr := Reconcile(staging, res.OutputDir, !w.opts.KeepExtraneous, bc.Logger)
		res.Report = report
		report.record(w.recorder)
		return recErr
	}); err != nil {
		return res, err
	}

	if w.opts.Hooks.PostBuild != nil {
		if err = w.opts.Hooks.PostBuild(ctx, bc); err != nil {
			return res, err
		}
	}
	return res, nil
}

// stage times fn and records its result.
func (w *Writer) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	w.recorder.ObserveStageDuration(name, time.Since(start))
	switch {
	case err == nil:
		w.recorder.IncStageResult(name, metrics.ResultSuccess)
	case stderrors.Is(err, context.Canceled):
		w.recorder.IncStageResult(name, metrics.ResultCanceled)
	default:
		w.recorder.IncStageResult(name, metrics.ResultFatal)
	}
	return err
}

func (w *Writer) loadConfig() (*config.Store, *config.Site, error) {
	store, err := config.Load(w.opts.SourceDir)
	if err != nil {
		return nil, nil, err
	}
	if len(w.opts.Overrides) > 0 {
		store.Merge(config.LayerOverrides, w.opts.Overrides)
	}
	site, err := store.Site()
	if err != nil {
		return nil, nil, err
	}
	return store, site, nil
}

// outputDir resolves the published tree.
func (w *Writer) outputDir(site *config.Site) string {
	dir := w.opts.OutputDir
	if dir == "" {
		dir = site.OutputDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(w.opts.SourceDir, dir)
	}
	return filepath.Clean(dir)
}

// writeFiles renders the source tree's templates and copies every other file
// into staging. Ignored paths and the published tree are skipped.
func (w *Writer) writeFiles(ctx context.Context, renderer *render.Renderer, site *config.Site, published, staging string, logger *slog.Logger) error {
	src := w.opts.SourceDir
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == src {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		slashRel := filepath.ToSlash(rel)

		if d.IsDir() {
			if path == published || path == staging || site.Ignored("./"+slashRel) {
				return filepath.SkipDir
			}
			return nil
		}
		if site.Ignored("./" + slashRel) {
			logger.Debug("Ignoring file", logfields.Path(slashRel))
			return nil
		}
		if strings.HasSuffix(slashRel, render.TemplateExt) {
			out, renderErr := renderer.RenderFile(ctx, slashRel)
			if renderErr != nil {
				return renderErr
			}
			logger.Debug("Rendered template", logfields.Template(slashRel), logfields.Path(out))
			return nil
		}
		logger.Debug("Copying file", logfields.Path(slashRel))
		return copyFile(path, filepath.Join(staging, rel))
	})
}

// copyFile copies src to dst, creating parents and keeping src's mode and mtime.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "error reading file").WithContext("path", src).Build()
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").WithContext("path", dst).Build()
	}

	// #nosec G304 -- src comes from walking a trusted tree
	in, err := os.Open(src)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "error reading file").WithContext("path", src).Build()
	}
	defer func() { _ = in.Close() }()

	// #nosec G304 -- dst is below the staging or published root
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write output file").WithContext("path", dst).Build()
	}
	_, err = io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write output file").WithContext("path", dst).Build()
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
