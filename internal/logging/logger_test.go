package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pihla/internal/config"
	"pihla/internal/logging"
)

func readRecord(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record), "record %q", data)
	return record
}

func TestNewFromConfigWritesRunLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "info"

	logger, err := logging.NewFromConfig(&cfg)
	require.NoError(t, err)
	logger.Info("run started", logging.String(logging.FieldRunID, "abc"))

	matches, err := filepath.Glob(filepath.Join(cfg.Paths.LogDir, logging.LogFilePattern))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	content, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	record := readRecord(t, content)
	require.Equal(t, "run started", record["msg"])
	require.Equal(t, "abc", record["run_id"])
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	require.NoError(t, err)

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.NotContains(t, string(content), ".go:")
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	require.NoError(t, err)

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(content), ".go:")
}

func TestConsoleLayoutRendersSubjectAndSizes(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	require.NoError(t, err)

	logging.NewComponentLogger(logger, "optimizer").Info("optimized",
		logging.String(logging.FieldCategory, "web"),
		logging.String(logging.FieldPath, "media/a.jpg"),
		logging.Int64(logging.FieldBytesSaved, 2_500_000),
		logging.String(logging.FieldEventType, "file_optimized"),
	)

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	text := string(content)
	require.Contains(t, text, "INFO [optimizer] web · media/a.jpg – optimized")
	require.Contains(t, text, "- Bytes saved: 2.5 MB")
	require.NotContains(t, text, "file_optimized", "event_type is hidden from the console layout")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := logging.New(logging.Options{Format: "xml"})
	require.Error(t, err)
}

func TestJSONLayoutFlattensDurationsAndErrors(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.json")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	require.NoError(t, err)

	logger.Info("optimization complete",
		logging.Duration("duration", 1500*time.Millisecond),
		logging.Error(errors.New("decode image: bad header")),
	)

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	record := readRecord(t, content)
	require.Equal(t, float64(1500), record["duration_ms"])
	require.NotContains(t, record, "duration")
	require.Equal(t, "decode image: bad header", record["error"])
	require.Equal(t, "info", record["level"])
	require.NotNil(t, record["ts"])
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := logging.WithRunID(context.Background(), "run-xyz")
	ctx = logging.WithCategory(ctx, "assets")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, logger).Info("contextual log")

	record := readRecord(t, buf.Bytes())
	require.Equal(t, "run-xyz", record[logging.FieldRunID])
	require.Equal(t, "assets", record[logging.FieldCategory])
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "skipped", "file_skipped")

	for _, key := range []string{`"event_type":"file_skipped"`, `"error_hint"`, `"impact"`} {
		require.Contains(t, buf.String(), key)
	}
}

func TestCleanupOldLogsKeepsActiveAndRecentFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "pihla-20200101T000000.log")
	active := filepath.Join(dir, "pihla-20200102T000000.log")
	recent := filepath.Join(dir, "pihla-20990101T000000.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, active, recent, other} {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	past := time.Now().AddDate(0, 0, -90)
	for _, path := range []string{old, active, other} {
		require.NoError(t, os.Chtimes(path, past, past))
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 30, logging.RetentionTarget{Dir: dir, Keep: []string{active}})
	require.Equal(t, 1, removed)
	require.NoFileExists(t, old)
	for _, path := range []string{active, recent, other} {
		require.FileExists(t, path)
	}
}
