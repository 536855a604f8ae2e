package site

import (
	"bytes"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
)

// ReconcileReport counts what reconciliation did to the published tree.
type ReconcileReport struct {
	Added     int
	Updated   int
	Unchanged int
	Deleted   int
	Failed    int
}

// Changed reports whether the published tree was modified.
func (r ReconcileReport) Changed() bool {
	return r.Added+r.Updated+r.Deleted > 0
}

func (r ReconcileReport) record(rec metrics.Recorder) {
	rec.IncReconcileAction(metrics.ActionAdded, r.Added)
	rec.IncReconcileAction(metrics.ActionUpdated, r.Updated)
	rec.IncReconcileAction(metrics.ActionUnchanged, r.Unchanged)
	rec.IncReconcileAction(metrics.ActionDeleted, r.Deleted)
	rec.IncReconcileAction(metrics.ActionFailed, r.Failed)
}

// Reconcile makes published match staging. Files with identical bytes are
// left alone so their mtimes survive; other files are copied with the staging
// mtime. With deleteExtraneous, published files absent from staging are
// removed. Failures on single files are logged and counted; only a failure to
// read staging or create the published root is returned.
func Reconcile(staging, published string, deleteExtraneous bool, logger *slog.Logger) (ReconcileReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var report ReconcileReport
	if err := os.MkdirAll(published, 0o750); err != nil {
		return report, errors.WrapError(err, errors.CategoryFileSystem, "create published directory").
			Fatal().WithContext("path", published).Build()
	}

	produced := make(map[string]struct{})
	err := filepath.WalkDir(staging, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(staging, path)
		if err != nil {
			return err
		}
		produced[rel] = struct{}{}
		dest := filepath.Join(published, rel)

		existed, same := compareFiles(path, dest)
		if same {
			report.Unchanged++
			return nil
		}
		if copyErr := copyFile(path, dest); copyErr != nil {
			report.Failed++
			logger.Error("Failed to publish file", logfields.Path(dest), logfields.Error(copyErr))
			return nil
		}
		if existed {
			report.Updated++
		} else {
			report.Added++
		}
		return nil
	})
	if err != nil {
		return report, errors.WrapError(err, errors.CategoryFileSystem, "failed to read staging directory").
			Fatal().WithContext("path", staging).Build()
	}

	if deleteExtraneous {
		_ = filepath.WalkDir(published, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warn("Failed to scan published tree", logfields.Path(path), logfields.Error(err))
				return nil
			}
			if d.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(published, path)
			if relErr != nil {
				return nil
			}
			if _, ok := produced[rel]; ok {
				return nil
			}
			if rmErr := os.Remove(path); rmErr != nil {
				report.Failed++
				logger.Error("Failed to delete file", logfields.Path(path), logfields.Error(rmErr))
				return nil
			}
			report.Deleted++
			logger.Info("Deleted extraneous file", logfields.Path(path))
			return nil
		})
	}

	logger.Info("Reconciled published tree",
		logfields.Path(published),
		slog.Int("added", report.Added),
		slog.Int("updated", report.Updated),
		slog.Int("unchanged", report.Unchanged),
		slog.Int("deleted", report.Deleted),
		slog.Int("failed", report.Failed))
	return report, nil
}

// compareFiles reports whether dest exists and whether it holds the same
// bytes as src.
func compareFiles(src, dest string) (existed, same bool) {
	destInfo, err := os.Stat(dest)
	if err != nil {
		return false, false
	}
	srcInfo, err := os.Stat(src)
	if err != nil || !destInfo.Mode().IsRegular() || srcInfo.Size() != destInfo.Size() {
		return true, false
	}
	// #nosec G304 -- both paths are below build-owned roots
	a, err := os.ReadFile(src)
	if err != nil {
		return true, false
	}
	// #nosec G304 -- both paths are below build-owned roots
	b, err := os.ReadFile(dest)
	if err != nil {
		return true, false
	}
	return true, bytes.Equal(a, b)
}
