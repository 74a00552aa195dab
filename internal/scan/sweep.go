package scan

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pihla/internal/codec"
	"pihla/internal/logging"
)

// SweepResult contains the outcome of a stale temp-file sweep.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

// SweepTemps removes pipeline temp files under dir that are older than
// maxAge. They are leftovers of runs interrupted mid-encode or mid-backup.
// Only "<image><suffix>" names qualify; other files that happen to end in
// suffix are left alone. A zero maxAge removes every temp file regardless of
// age.
func SweepTemps(ctx context.Context, dir, suffix string, maxAge time.Duration, logger *slog.Logger) SweepResult {
	result := SweepResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" || suffix == "" || !RootExists(dir) {
		return result
	}
	cutoff := time.Now().Add(-maxAge)

	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if err != nil {
			if path != dir {
				result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			}
			return nil
		}
		if d.IsDir() || !isPipelineTemp(d.Name(), suffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if maxAge > 0 && !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale temp file", "temp_sweep_failed",
				logging.String("file", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the site directories"),
				logging.String(logging.FieldImpact, "partial output left on disk"),
			)
			return nil
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed stale temp file",
				logging.String("file", path),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "temp_sweep"),
			)
		}
		return nil
	})
	return result
}

func isPipelineTemp(name, suffix string) bool {
	if !IsTemp(name, suffix) {
		return false
	}
	_, ok := codec.FormatFromPath(strings.TrimSuffix(name, suffix))
	return ok
}
