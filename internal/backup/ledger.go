// Package backup captures pristine copies of files before they are optimized
// in place and replays them on restore.
//
// Backup paths mirror each file's path relative to its live root. Web images
// sit directly under the backup root; flat site assets live under an
// "assets/" subtree so the two categories never share a path. Capture happens
// at most once per file: an existing backup is the sentinel, so a backup is
// only ever published by renaming a fully written, verified temp file.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"pihla/internal/failures"
	"pihla/internal/fileutil"
	"pihla/internal/logging"
	"pihla/internal/scan"
)

// assetsSubtree is the backup subdirectory reserved for the flat assets root.
const assetsSubtree = "assets"

// Ledger maps live files to their backup copies.
type Ledger struct {
	root       string
	web        string
	assets     string
	tempSuffix string
	logger     *slog.Logger
}

// New returns a Ledger rooted at backupRoot that restores into webRoot and
// assetsRoot. Captures in progress carry tempSuffix; an empty suffix means
// ".tmp".
func New(backupRoot, webRoot, assetsRoot, tempSuffix string, logger *slog.Logger) *Ledger {
	if tempSuffix == "" {
		tempSuffix = ".tmp"
	}
	return &Ledger{
		root:       backupRoot,
		web:        webRoot,
		assets:     assetsRoot,
		tempSuffix: tempSuffix,
		logger:     logging.NewComponentLogger(logger, "backup"),
	}
}

// Root returns the backup root directory.
func (l *Ledger) Root() string {
	return l.root
}

// PathFor returns the deterministic backup location of src.
func (l *Ledger) PathFor(src scan.Source) (string, error) {
	rel := path.Clean(src.RelPath)
	if rel == "." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return "", failures.Wrap(failures.ErrIO, "backup", "resolve", fmt.Sprintf("invalid relative path %q", src.RelPath), nil)
	}
	switch src.Category {
	case scan.CategoryAssets:
		return filepath.Join(l.root, assetsSubtree, filepath.FromSlash(rel)), nil
	case scan.CategoryWeb:
		if first, _, _ := strings.Cut(rel, "/"); first == assetsSubtree {
			return "", failures.Wrap(failures.ErrConflict, "backup", "resolve",
				fmt.Sprintf("web path %q collides with the assets backup subtree", rel), nil)
		}
		return filepath.Join(l.root, filepath.FromSlash(rel)), nil
	default:
		return "", failures.Wrap(failures.ErrConfiguration, "backup", "resolve",
			fmt.Sprintf("category %q is not backed up", src.Category), nil)
	}
}

// IsAlreadyBackedUp reports whether a backup of src already exists.
func (l *Ledger) IsAlreadyBackedUp(src scan.Source) bool {
	dst, err := l.PathFor(src)
	if err != nil {
		return false
	}
	info, err := os.Stat(dst)
	return err == nil && info.Mode().IsRegular()
}

// Capture copies src into the ledger unless a backup already exists. It
// returns true when a new backup was written.
func (l *Ledger) Capture(src scan.Source) (bool, error) {
	dst, err := l.PathFor(src)
	if err != nil {
		return false, err
	}
	if l.IsAlreadyBackedUp(src) {
		return false, nil
	}
	if err := fileutil.CopyFileVerified(src.AbsPath, dst, l.tempSuffix); err != nil {
		return false, failures.Wrap(failures.ErrIO, "backup", "capture", src.RelPath, err)
	}
	l.logger.Debug("backup captured",
		logging.String(logging.FieldCategory, string(src.Category)),
		logging.String(logging.FieldPath, src.RelPath),
		logging.String("backup", dst),
		logging.String(logging.FieldEventType, "backup_captured"),
	)
	return true, nil
}

// RestoreFailure records one file that could not be restored.
type RestoreFailure struct {
	Path string
	Err  error
}

// RestoreSummary reports the outcome of Restore.
type RestoreSummary struct {
	Restored    int
	Failed      []RestoreFailure
	NoBackupDir bool
}

// Restore copies every backup over its live location, creating directories
// as needed. Existing live files are overwritten unconditionally. Leftover
// temp files of interrupted captures are not backups and are skipped. Per-file
// failures are logged and collected; the walk continues. The context is
// checked between files.
func (l *Ledger) Restore(ctx context.Context) (RestoreSummary, error) {
	summary := RestoreSummary{}
	if !scan.RootExists(l.root) {
		summary.NoBackupDir = true
		l.logger.Info("no backup folder found; nothing to restore",
			logging.String("backup_dir", l.root),
			logging.String(logging.FieldEventType, "restore_nothing"),
		)
		return summary, nil
	}

	walkErr := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == l.root {
				return err
			}
			summary.Failed = append(summary.Failed, RestoreFailure{Path: p, Err: err})
			l.logFailure(p, err)
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() || scan.IsTemp(d.Name(), l.tempSuffix) {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		dst := l.livePath(rel)
		if err := fileutil.CopyFile(p, dst); err != nil {
			summary.Failed = append(summary.Failed, RestoreFailure{Path: rel, Err: err})
			l.logFailure(rel, err)
			return nil
		}
		summary.Restored++
		l.logger.Info("restored",
			logging.String(logging.FieldPath, rel),
			logging.String("output", dst),
			logging.String(logging.FieldEventType, "file_restored"),
		)
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, fs.SkipAll) {
		return summary, walkErr
	}
	return summary, nil
}

// livePath maps a slash-separated backup-relative path back to its live file.
func (l *Ledger) livePath(rel string) string {
	if first, rest, ok := strings.Cut(rel, "/"); ok && first == assetsSubtree {
		return filepath.Join(l.assets, filepath.FromSlash(rest))
	}
	return filepath.Join(l.web, filepath.FromSlash(rel))
}

func (l *Ledger) logFailure(rel string, err error) {
	logging.WarnWithContext(l.logger, "restore failed", "restore_failed",
		logging.String(logging.FieldPath, rel),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, failures.Hint(err)),
		logging.String(logging.FieldImpact, "live file keeps its optimized version"),
	)
}
