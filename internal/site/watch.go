package site

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// DefaultWatchInterval is how often the source tree is checked for changes.
const DefaultWatchInterval = time.Second

// Snapshot maps source-relative paths to modification times.
type Snapshot map[string]time.Time

// ChangedSince reports whether s has a file that prev lacks, a file newer
// than in prev, or lacks a file prev had.
func (s Snapshot) ChangedSince(prev Snapshot) bool {
	if len(s) != len(prev) {
		return true
	}
	for path, mtime := range s {
		old, ok := prev[path]
		if !ok || mtime.After(old) {
			return true
		}
	}
	return false
}

// Watcher rebuilds the site whenever the source tree changes.
type Watcher struct {
	writer   *Writer
	interval time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	last Snapshot
}

// NewWatcher creates a watcher polling every interval (DefaultWatchInterval when zero).
func NewWatcher(w *Writer, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	return &Watcher{writer: w, interval: interval, logger: w.logger}
}

// Snapshot records every source file that can affect a build, including the
// underscore directories (posts, templates, controllers) and the
// configuration file, but not the published tree or editor and VCS files.
func (w *Watcher) Snapshot() (Snapshot, error) {
	src := w.writer.SourceDir()
	published := w.writer.PublishedDir()
	snap := Snapshot{}
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if path == src {
			return nil
		}
		if d.IsDir() {
			if path == published || isVCSDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isEditorFile(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		snap[filepath.ToSlash(rel)] = info.ModTime()
		return nil
	})
	return snap, err
}

// Prime records the current state without building.
func (w *Watcher) Prime() error {
	snap, err := w.Snapshot()
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.last = snap
	w.mu.Unlock()
	return nil
}

// Tick rebuilds when the source tree changed since the last snapshot. The
// snapshot is refreshed before building, so a change made during the build is
// picked up by the next tick.
func (w *Watcher) Tick(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap, err := w.Snapshot()
	if err != nil {
		return false, err
	}
	if w.last == nil {
		w.last = snap
		return false, nil
	}
	if !snap.ChangedSince(w.last) {
		return false, nil
	}
	w.last = snap
	w.logger.Info("File changes detected, rebuilding")
	_, err = w.writer.Build(ctx)
	return true, err
}

func (w *Watcher) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := w.Tick(ctx); err != nil {
		w.logger.Error("Rebuild failed", logfields.Error(err))
	}
}

// Run ticks on a schedule and on filesystem events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Prime(); err != nil {
		return err
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	job, err := scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(w.tick, ctx),
		gocron.WithName("watch-source"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			w.logger.Warn("Scheduler shutdown failed", logfields.Error(err))
		}
	}()

	if fsw, err := fsnotify.NewWatcher(); err != nil {
		w.logger.Warn("Filesystem notifications unavailable; polling only", logfields.Error(err))
	} else {
		defer func() { _ = fsw.Close() }()
		w.addDirsRecursive(fsw, w.writer.SourceDir())
		go w.nudgeLoop(ctx, fsw, job)
	}

	w.logger.Info("Watching for changes", logfields.Path(w.writer.SourceDir()))
	<-ctx.Done()
	w.logger.Info("Stopped watching")
	return nil
}

// nudgeLoop runs the tick job early on relevant filesystem events.
func (w *Watcher) nudgeLoop(ctx context.Context, fsw *fsnotify.Watcher, job gocron.Job) {
	published := w.writer.PublishedDir()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if isEditorFile(filepath.Base(ev.Name)) || ev.Name == published || strings.HasPrefix(ev.Name, published+string(filepath.Separator)) {
				continue
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					w.addDirsRecursive(fsw, ev.Name)
				}
			}
			w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			if err := job.RunNow(); err != nil {
				w.logger.Debug("Could not run watch tick", logfields.Error(err))
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) addDirsRecursive(fsw *fsnotify.Watcher, root string) {
	published := w.writer.PublishedDir()
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path == published || isVCSDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			w.logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

func isVCSDir(name string) bool {
	switch name {
	case ".git", ".hg", ".svn", ".bzr", "CVS":
		return true
	}
	return false
}

// isEditorFile matches editor swap, backup and lock files.
func isEditorFile(base string) bool {
	return strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, ".#") ||
		strings.HasPrefix(base, "#") ||
		base == ".DS_Store"
}

// PublishedDir resolves the published tree from the current configuration,
// falling back to the default output directory when it cannot be loaded.
func (w *Writer) PublishedDir() string {
	store, err := config.Load(w.opts.SourceDir)
	if err != nil {
		return w.outputDir(&config.Site{OutputDir: config.DefaultOutputDir})
	}
	site, err := store.Site()
	if err != nil {
		return w.outputDir(&config.Site{OutputDir: config.DefaultOutputDir})
	}
	return w.outputDir(site)
}
