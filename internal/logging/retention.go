package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget specifies a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	// Keep lists absolute paths that must survive pruning, such as the active log.
	Keep []string
}

// CleanupOldLogs removes files matching the target that are older than
// retentionDays and returns how many were removed. Zero disables pruning.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, target RetentionTarget) int {
	if retentionDays <= 0 || strings.TrimSpace(target.Dir) == "" {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	pattern := strings.TrimSpace(target.Pattern)
	if pattern == "" {
		pattern = LogFilePattern
	}

	keep := make(map[string]struct{}, len(target.Keep))
	for _, path := range target.Keep {
		if abs, err := filepath.Abs(path); err == nil {
			keep[abs] = struct{}{}
		}
	}

	entries, err := os.ReadDir(target.Dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if matched, err := filepath.Match(pattern, entry.Name()); err != nil || !matched {
			continue
		}
		fullPath, err := filepath.Abs(filepath.Join(target.Dir, entry.Name()))
		if err != nil {
			continue
		}
		if _, skip := keep[fullPath]; skip {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(fullPath); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("file", fullPath),
				Error(err),
				String(FieldErrorHint, "check permissions on the log directory"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String("file", fullPath), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
