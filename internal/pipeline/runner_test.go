package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pihla/internal/codec"
	"pihla/internal/config"
	"pihla/internal/failures"
	"pihla/internal/journal"
	"pihla/internal/logging"
	"pihla/internal/optimizer"
	"pihla/internal/testsupport"
)

type stubHEIC struct{ jpeg []byte }

func (s stubHEIC) ToJPEG(context.Context, string) ([]byte, error) { return s.jpeg, nil }

func newRunner(t *testing.T, cfg *config.Config, recorder Recorder) *Runner {
	t.Helper()
	jpeg, err := codec.EncodeJPEG(testsupport.Gradient(2400, 200), 100)
	require.NoError(t, err)
	return NewRunner(cfg, Deps{
		Logger:   logging.NewNop(),
		Recorder: recorder,
		Tools:    &codec.Tools{},
		HEIC:     stubHEIC{jpeg: jpeg},
	})
}

func TestOptimizeWebInPlaceScenario(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	live := filepath.Join(cfg.Paths.WebDir, "artists", "jane.png")
	before := testsupport.WriteUncompressedPNG(t, live, testsupport.Gradient(2400, 200))
	pristine := testsupport.ReadFile(t, live)

	runner := newRunner(t, cfg, nil)
	summary, err := runner.Optimize(context.Background(), Options{WebInPlace: true})
	require.NoError(t, err)
	require.Equal(t, 1, summary.FilesProcessed)
	require.Positive(t, summary.TotalBytesSaved)
	require.NotEmpty(t, summary.RunID)

	info, err := os.Stat(live)
	require.NoError(t, err)
	require.Less(t, info.Size(), before)
	require.LessOrEqual(t, testsupport.ImageWidth(t, live), 1920)

	backupPath := filepath.Join(cfg.Paths.BackupDir, "artists", "jane.png")
	backupInfo, err := os.Stat(backupPath)
	require.NoError(t, err)
	require.Equal(t, before, backupInfo.Size())

	_, err = runner.Optimize(context.Background(), Options{WebInPlace: true})
	require.NoError(t, err)
	require.Equal(t, pristine, testsupport.ReadFile(t, backupPath))

	restored, err := runner.Restore(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, restored.Restored)
	require.Equal(t, pristine, testsupport.ReadFile(t, live))
}

func TestOptimizeAssetsConvertsHEIC(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	heicPath := filepath.Join(cfg.Paths.AssetsDir, "portrait.heic")
	testsupport.WriteFile(t, heicPath, 8<<20)

	summary, err := newRunner(t, cfg, nil).Optimize(context.Background(), Options{IncludeAssets: true})
	require.NoError(t, err)
	require.Equal(t, 1, summary.FilesProcessed)

	jpg := filepath.Join(cfg.Paths.AssetsDir, "portrait.jpg")
	require.NoFileExists(t, heicPath)
	require.Equal(t, "jpeg", testsupport.ImageFormat(t, jpg))
	require.LessOrEqual(t, testsupport.ImageWidth(t, jpg), 1920)
	info, err := os.Stat(jpg)
	require.NoError(t, err)
	require.Less(t, info.Size(), int64(1<<20))
}

func TestOptimizeSmallFileSkippedOnRerun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	small := filepath.Join(cfg.Paths.WebDir, "thumb.jpg")
	testsupport.WriteJPEG(t, small, testsupport.Gradient(300, 200), 90)
	require.Less(t, int64(len(testsupport.ReadFile(t, small))), int64(100*1024))
	before := testsupport.ReadFile(t, small)

	runner := newRunner(t, cfg, nil)
	for range 2 {
		summary, err := runner.Optimize(context.Background(), Options{WebInPlace: true})
		require.NoError(t, err)
		require.Equal(t, 1, summary.Skipped)
		require.Equal(t, optimizer.OutcomeSkippedSmall, summary.Results[0].Outcome)
	}
	require.Equal(t, before, testsupport.ReadFile(t, small))
}

func TestOptimizeHonoursConfiguredBounds(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxWidth(800), testsupport.WithMinSizeKB(1))
	live := filepath.Join(cfg.Paths.WebDir, "banner.jpg")
	testsupport.WriteJPEG(t, live, testsupport.Gradient(1200, 300), 100)

	summary, err := newRunner(t, cfg, nil).Optimize(context.Background(), Options{WebInPlace: true})
	require.NoError(t, err)
	require.Equal(t, 1, summary.FilesProcessed)
	require.Equal(t, 800, summary.Results[0].Width)
	require.Equal(t, 800, testsupport.ImageWidth(t, live))
}

func TestOptimizeCopyPassMirrorsUploadsAndSkipsFresh(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteUncompressedPNG(t, filepath.Join(cfg.Paths.UploadDir, "productions", "poster.png"), testsupport.Gradient(600, 400))
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.UploadDir, "media", "carousel", "IMG_1.HEIC"), 4096)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.UploadDir, "notes.txt"), 10)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.UploadDir, ".hidden", "x.jpg"), 10)
	past := time.Now().Add(-time.Hour)
	for _, rel := range []string{"productions/poster.png", "media/carousel/IMG_1.HEIC"} {
		require.NoError(t, os.Chtimes(filepath.Join(cfg.Paths.UploadDir, filepath.FromSlash(rel)), past, past))
	}

	runner := newRunner(t, cfg, nil)
	first, err := runner.Optimize(context.Background(), Options{IncludeAssets: true})
	require.NoError(t, err)
	require.Equal(t, 2, first.FilesProcessed)
	require.Zero(t, first.Failed)

	require.FileExists(t, filepath.Join(cfg.Paths.WebDir, "productions", "poster.png"))
	require.FileExists(t, filepath.Join(cfg.Paths.WebDir, "media", "carousel", "IMG_1.jpg"))
	require.FileExists(t, filepath.Join(cfg.Paths.UploadDir, "media", "carousel", "IMG_1.HEIC"))
	require.NoDirExists(t, cfg.Paths.BackupDir)

	second, err := runner.Optimize(context.Background(), Options{})
	require.NoError(t, err)
	require.Zero(t, second.FilesProcessed)
	require.Equal(t, 2, second.Skipped)
}

func TestOptimizeCopyPassReportsCollidingUploads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	heicUpload := filepath.Join(cfg.Paths.UploadDir, "gallery", "a.heic")
	jpegUpload := filepath.Join(cfg.Paths.UploadDir, "gallery", "a.jpg")
	testsupport.WriteFile(t, heicUpload, 4096)
	testsupport.WriteJPEG(t, jpegUpload, testsupport.Gradient(300, 200), 90)
	past := time.Now().Add(-time.Hour)
	for _, path := range []string{heicUpload, jpegUpload} {
		require.NoError(t, os.Chtimes(path, past, past))
	}

	runner := newRunner(t, cfg, nil)
	first, err := runner.Optimize(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 1, first.FilesProcessed)
	require.Equal(t, 1, first.Conflicts)
	require.Len(t, first.Results, 2)
	require.Equal(t, optimizer.OutcomeWritten, first.Results[0].Outcome)
	require.Equal(t, "gallery/a.heic", first.Results[0].Source.RelPath)
	conflict := first.Results[1]
	require.Equal(t, optimizer.OutcomeConflict, conflict.Outcome)
	require.Equal(t, "gallery/a.jpg", conflict.Source.RelPath)
	require.ErrorIs(t, conflict.Err, failures.ErrConflict)
	require.Equal(t, filepath.Join(cfg.Paths.WebDir, "gallery", "a.jpg"), conflict.Output)

	second, err := runner.Optimize(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 1, second.Skipped)
	require.Equal(t, 1, second.Conflicts)
	require.Equal(t, optimizer.OutcomeConflict, second.Results[1].Outcome)
	require.FileExists(t, jpegUpload)
}

func TestOptimizeCopyPassConvertsRealHEIC(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fixture := testsupport.ReadFile(t, filepath.Join("..", "heic", "testdata", "camel.heic"))
	upload := filepath.Join(cfg.Paths.UploadDir, "media", "carousel", "camel.HEIC")
	require.NoError(t, os.MkdirAll(filepath.Dir(upload), 0o755))
	require.NoError(t, os.WriteFile(upload, fixture, 0o644))

	runner := NewRunner(cfg, Deps{Logger: logging.NewNop(), Tools: &codec.Tools{}})
	summary, err := runner.Optimize(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.FilesProcessed)
	require.Zero(t, summary.Failed)

	web := filepath.Join(cfg.Paths.WebDir, "media", "carousel", "camel.jpg")
	require.Equal(t, "jpeg", testsupport.ImageFormat(t, web))
	require.Equal(t, 1596, testsupport.ImageWidth(t, web))
	require.FileExists(t, upload)
}

func TestOptimizeContinuesPastCorruptFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.UploadDir, "a-corrupt.jpg"), 2048)
	testsupport.WriteJPEG(t, filepath.Join(cfg.Paths.UploadDir, "b-good.jpg"), testsupport.Gradient(100, 100), 90)

	summary, err := newRunner(t, cfg, nil).Optimize(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 1, summary.FilesProcessed)
	require.NoFileExists(t, filepath.Join(cfg.Paths.WebDir, "a-corrupt.jpg"))
	require.NoFileExists(t, filepath.Join(cfg.Paths.WebDir, "a-corrupt.jpg.tmp"))
	require.FileExists(t, filepath.Join(cfg.Paths.WebDir, "b-good.jpg"))
}

func TestOptimizeMissingRootsIsNothingToDo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	summary, err := newRunner(t, cfg, nil).Optimize(context.Background(), Options{IncludeAssets: true, WebInPlace: true})
	require.NoError(t, err)
	require.Empty(t, summary.Results)

	restored, err := newRunner(t, cfg, nil).Restore(context.Background())
	require.NoError(t, err)
	require.True(t, restored.NoBackup)
}

func TestOptimizeCanceledBeforeFirstFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteJPEG(t, filepath.Join(cfg.Paths.UploadDir, "a.jpg"), testsupport.Gradient(50, 50), 90)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := newRunner(t, cfg, nil).Optimize(ctx, Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, summary.Canceled)
	require.NoFileExists(t, filepath.Join(cfg.Paths.WebDir, "a.jpg"))
}

func TestOptimizeSweepsStaleTemps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Optimize.StaleTempMinutes = 0
	stale := filepath.Join(cfg.Paths.WebDir, "home", "hero.jpg.tmp")
	staleBackup := filepath.Join(cfg.Paths.BackupDir, "artists", "jane.png.tmp")
	foreign := filepath.Join(cfg.Paths.AssetsDir, "draft.txt.tmp")
	for _, path := range []string{stale, staleBackup, foreign} {
		testsupport.WriteFile(t, path, 10)
	}

	_, err := newRunner(t, cfg, nil).Optimize(context.Background(), Options{})
	require.NoError(t, err)
	require.NoFileExists(t, stale)
	require.NoFileExists(t, staleBackup)
	require.FileExists(t, foreign)
}

func TestOptimizeAfterInterruptedBackupKeepsPristineOriginal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	live := filepath.Join(cfg.Paths.WebDir, "artists", "jane.png")
	testsupport.WriteUncompressedPNG(t, live, testsupport.Gradient(2400, 200))
	pristine := testsupport.ReadFile(t, live)
	partial := filepath.Join(cfg.Paths.BackupDir, "artists", "jane.png.tmp")
	require.NoError(t, os.MkdirAll(filepath.Dir(partial), 0o755))
	require.NoError(t, os.WriteFile(partial, pristine[:4096], 0o644))
	recent := time.Now()
	require.NoError(t, os.Chtimes(partial, recent, recent))

	runner := newRunner(t, cfg, nil)
	summary, err := runner.Optimize(context.Background(), Options{WebInPlace: true})
	require.NoError(t, err)
	require.Equal(t, 1, summary.FilesProcessed)
	require.Equal(t, pristine, testsupport.ReadFile(t, filepath.Join(cfg.Paths.BackupDir, "artists", "jane.png")))
	require.NoFileExists(t, partial)

	restored, err := runner.Restore(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, restored.Restored)
	require.Equal(t, pristine, testsupport.ReadFile(t, live))
}

func TestOptimizeRecordsJournal(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithJournal())
	store := testsupport.MustOpenJournal(t, cfg)
	testsupport.WriteJPEG(t, filepath.Join(cfg.Paths.UploadDir, "a.jpg"), testsupport.Gradient(50, 50), 90)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.UploadDir, "b.png"), 64)

	summary, err := newRunner(t, cfg, store).Optimize(context.Background(), Options{})
	require.NoError(t, err)

	run, err := store.GetRun(context.Background(), summary.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	require.Equal(t, journal.StatusCompleted, run.Status)
	require.Equal(t, "optimize", run.Command)
	require.Equal(t, 1, run.FilesProcessed)
	require.Equal(t, 1, run.Failed)

	files, err := store.ListFiles(context.Background(), summary.RunID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "a.jpg", files[0].Path)
	require.Equal(t, string(optimizer.OutcomeWritten), files[0].Outcome)
	require.Equal(t, "decode", files[1].ErrorKind)
}

func TestExcludesForNestedBackupTree(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.BackupDir = filepath.Join(cfg.Paths.WebDir, "_originals")
	runner := newRunner(t, cfg, nil)

	excludes := runner.excludesFor(cfg.Paths.WebDir)
	require.Contains(t, excludes, "_originals")
	require.Contains(t, excludes, "_originals/**")
	require.NotContains(t, runner.excludesFor(cfg.Paths.UploadDir), "_originals/**")
}
