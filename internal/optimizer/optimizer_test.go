package optimizer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pihla/internal/backup"
	"pihla/internal/codec"
	"pihla/internal/failures"
	"pihla/internal/logging"
	"pihla/internal/scan"
	"pihla/internal/testsupport"
)

type fakeHEIC struct {
	jpeg  []byte
	err   error
	calls int
}

func (f *fakeHEIC) ToJPEG(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	return f.jpeg, f.err
}

func sourceFor(t *testing.T, root, rel string, category scan.Category) scan.Source {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(abs)
	require.NoError(t, err)
	format, ok := codec.FormatFromPath(abs)
	require.True(t, ok)
	return scan.Source{
		AbsPath:  abs,
		RelPath:  rel,
		Category: category,
		Format:   format,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
	}
}

func gradientJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	data, err := codec.EncodeJPEG(testsupport.Gradient(width, height), 100)
	require.NoError(t, err)
	return data
}

type env struct {
	web    string
	assets string
	backup string
	ledger *backup.Ledger
}

func newEnv(t *testing.T) env {
	t.Helper()
	base := t.TempDir()
	e := env{
		web:    filepath.Join(base, "web"),
		assets: filepath.Join(base, "assets"),
		backup: filepath.Join(base, "originals"),
	}
	e.ledger = backup.New(e.backup, e.web, e.assets, ".tmp", logging.NewNop())
	return e
}

func TestInPlaceShrinksAndBacksUpPristineBytes(t *testing.T) {
	e := newEnv(t)
	live := filepath.Join(e.web, "artists", "jane.png")
	before := testsupport.WriteUncompressedPNG(t, live, testsupport.Gradient(2400, 200))
	pristine := testsupport.ReadFile(t, live)

	opt := New(Options{Backups: e.ledger, MinSize: 100 * 1024})
	result := opt.InPlace(context.Background(), sourceFor(t, e.web, "artists/jane.png", scan.CategoryWeb))

	require.NoError(t, result.Err)
	require.Equal(t, OutcomeOptimized, result.Outcome)
	require.True(t, result.WasModified)
	require.Equal(t, before, result.BytesBefore)
	require.Less(t, result.BytesAfter, before)
	require.Equal(t, before-result.BytesAfter, result.BytesSaved)
	require.Equal(t, 1920, result.Width)
	require.Equal(t, 1920, testsupport.ImageWidth(t, live))
	require.NoFileExists(t, live+".tmp")

	backupPath := filepath.Join(e.backup, "artists", "jane.png")
	require.Equal(t, pristine, testsupport.ReadFile(t, backupPath))
}

func TestInPlaceSecondPassKeepsFirstBackup(t *testing.T) {
	e := newEnv(t)
	live := filepath.Join(e.web, "home", "hero.png")
	testsupport.WriteUncompressedPNG(t, live, testsupport.Gradient(2400, 200))
	pristine := testsupport.ReadFile(t, live)

	opt := New(Options{Backups: e.ledger, MinSize: 1})
	first := opt.InPlace(context.Background(), sourceFor(t, e.web, "home/hero.png", scan.CategoryWeb))
	require.Equal(t, OutcomeOptimized, first.Outcome)
	second := opt.InPlace(context.Background(), sourceFor(t, e.web, "home/hero.png", scan.CategoryWeb))
	require.NoError(t, second.Err)

	require.Equal(t, pristine, testsupport.ReadFile(t, filepath.Join(e.backup, "home", "hero.png")))
	entries, err := os.ReadDir(filepath.Join(e.backup, "home"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestInPlaceSkipsFilesUnderThreshold(t *testing.T) {
	e := newEnv(t)
	live := filepath.Join(e.web, "small.jpg")
	testsupport.WriteJPEG(t, live, testsupport.Gradient(64, 64), 80)
	before := testsupport.ReadFile(t, live)

	opt := New(Options{Backups: e.ledger, MinSize: 100 * 1024})
	result := opt.InPlace(context.Background(), sourceFor(t, e.web, "small.jpg", scan.CategoryWeb))

	require.Equal(t, OutcomeSkippedSmall, result.Outcome)
	require.False(t, result.WasModified)
	require.Zero(t, result.BytesSaved)
	require.Equal(t, before, testsupport.ReadFile(t, live))
	require.NoDirExists(t, e.backup)
}

func TestInPlaceDiscardsLargerEncoding(t *testing.T) {
	e := newEnv(t)
	live := filepath.Join(e.web, "noise.jpg")
	testsupport.WriteJPEG(t, live, testsupport.Noise(400, 400), 30)
	before := testsupport.ReadFile(t, live)

	opt := New(Options{Backups: e.ledger})
	result := opt.InPlace(context.Background(), sourceFor(t, e.web, "noise.jpg", scan.CategoryWeb))

	require.NoError(t, result.Err)
	require.Equal(t, OutcomeNoImprovement, result.Outcome)
	require.False(t, result.WasModified)
	require.Equal(t, before, testsupport.ReadFile(t, live))
	require.NoFileExists(t, live+".tmp")
}

func TestInPlaceConvertsHEICToSmallerJPEG(t *testing.T) {
	e := newEnv(t)
	live := filepath.Join(e.assets, "portrait.heic")
	testsupport.WriteFile(t, live, 1<<20)
	converter := &fakeHEIC{jpeg: gradientJPEG(t, 2400, 200)}

	opt := New(Options{HEIC: converter, Backups: e.ledger, MinSize: 100 * 1024})
	result := opt.InPlace(context.Background(), sourceFor(t, e.assets, "portrait.heic", scan.CategoryAssets))

	require.NoError(t, result.Err)
	require.Equal(t, OutcomeOptimized, result.Outcome)
	jpg := filepath.Join(e.assets, "portrait.jpg")
	require.Equal(t, jpg, result.Output)
	require.NoFileExists(t, live)
	require.Equal(t, "jpeg", testsupport.ImageFormat(t, jpg))
	require.LessOrEqual(t, testsupport.ImageWidth(t, jpg), 1920)
	require.FileExists(t, filepath.Join(e.backup, "assets", "portrait.heic"))
	require.Equal(t, 1, converter.calls)
}

func TestInPlaceHEICConflictLeavesBothFiles(t *testing.T) {
	e := newEnv(t)
	live := filepath.Join(e.assets, "portrait.heic")
	testsupport.WriteFile(t, live, 1<<20)
	existing := filepath.Join(e.assets, "portrait.jpg")
	testsupport.WriteFile(t, existing, 10)
	converter := &fakeHEIC{jpeg: gradientJPEG(t, 64, 64)}

	opt := New(Options{HEIC: converter, Backups: e.ledger})
	result := opt.InPlace(context.Background(), sourceFor(t, e.assets, "portrait.heic", scan.CategoryAssets))

	require.Equal(t, OutcomeConflict, result.Outcome)
	require.ErrorIs(t, result.Err, failures.ErrConflict)
	require.FileExists(t, live)
	require.Len(t, testsupport.ReadFile(t, existing), 10)
	require.Zero(t, converter.calls)
}

func TestInPlaceHEICDecodeFailureSkipsFile(t *testing.T) {
	e := newEnv(t)
	live := filepath.Join(e.assets, "broken.heic")
	testsupport.WriteFile(t, live, 1<<20)
	converter := &fakeHEIC{err: failures.Wrap(failures.ErrDecode, "heic", "decode", live, errors.New("bad box"))}

	opt := New(Options{HEIC: converter, Backups: e.ledger})
	result := opt.InPlace(context.Background(), sourceFor(t, e.assets, "broken.heic", scan.CategoryAssets))

	require.Equal(t, OutcomeFailed, result.Outcome)
	require.ErrorIs(t, result.Err, failures.ErrDecode)
	require.Contains(t, result.Err.Error(), live)
	require.FileExists(t, live)
	require.NoFileExists(t, filepath.Join(e.assets, "broken.jpg"))
	require.NoFileExists(t, filepath.Join(e.assets, "broken.jpg.tmp"))
}

func TestInPlaceCorruptImageFails(t *testing.T) {
	e := newEnv(t)
	live := filepath.Join(e.web, "corrupt.jpg")
	testsupport.WriteFile(t, live, 200*1024)

	opt := New(Options{Backups: e.ledger, MinSize: 100 * 1024})
	result := opt.InPlace(context.Background(), sourceFor(t, e.web, "corrupt.jpg", scan.CategoryWeb))

	require.Equal(t, OutcomeFailed, result.Outcome)
	require.ErrorIs(t, result.Err, failures.ErrDecode)
	require.NoFileExists(t, live+".tmp")
	require.Len(t, testsupport.ReadFile(t, live), 200*1024)
}

func TestInPlaceStopsOnCanceledContext(t *testing.T) {
	e := newEnv(t)
	live := filepath.Join(e.web, "a.png")
	testsupport.WriteUncompressedPNG(t, live, testsupport.Gradient(32, 32))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := New(Options{Backups: e.ledger}).InPlace(ctx, sourceFor(t, e.web, "a.png", scan.CategoryWeb))
	require.Equal(t, OutcomeFailed, result.Outcome)
	require.ErrorIs(t, result.Err, context.Canceled)
	require.NoDirExists(t, e.backup)
}

func TestCopyWritesMirroredDestinationWithoutSizeSkip(t *testing.T) {
	base := t.TempDir()
	uploads := filepath.Join(base, "uploads")
	web := filepath.Join(base, "web")
	testsupport.WriteJPEG(t, filepath.Join(uploads, "media", "carousel", "tiny.jpg"), testsupport.Gradient(800, 60), 95)
	src := sourceFor(t, uploads, "media/carousel/tiny.jpg", scan.CategoryUploads)

	opt := New(Options{MinSize: 100 * 1024})
	result := opt.Copy(context.Background(), src, web)

	require.NoError(t, result.Err)
	require.Equal(t, OutcomeWritten, result.Outcome)
	dest := filepath.Join(web, "media", "carousel", "tiny.jpg")
	require.Equal(t, dest, result.Output)
	require.Equal(t, 800, testsupport.ImageWidth(t, dest))
	require.NoFileExists(t, dest+".tmp")
}

func TestCopySkipsFreshDestination(t *testing.T) {
	base := t.TempDir()
	uploads := filepath.Join(base, "uploads")
	web := filepath.Join(base, "web")
	srcPath := filepath.Join(uploads, "a.png")
	testsupport.WriteUncompressedPNG(t, srcPath, testsupport.Gradient(40, 40))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(srcPath, past, past))

	opt := New(Options{})
	first := opt.Copy(context.Background(), sourceFor(t, uploads, "a.png", scan.CategoryUploads), web)
	require.Equal(t, OutcomeWritten, first.Outcome)

	dest := filepath.Join(web, "a.png")
	written := testsupport.ReadFile(t, dest)
	info, err := os.Stat(dest)
	require.NoError(t, err)

	second := opt.Copy(context.Background(), sourceFor(t, uploads, "a.png", scan.CategoryUploads), web)
	require.Equal(t, OutcomeSkippedFresh, second.Outcome)
	require.Equal(t, written, testsupport.ReadFile(t, dest))
	again, err := os.Stat(dest)
	require.NoError(t, err)
	require.Equal(t, info.ModTime(), again.ModTime())
}

func TestIsDestinationFreshRequiresStrictlyNewer(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "a.jpg")
	testsupport.WriteFile(t, dest, 1)
	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(dest, stamp, stamp))

	require.False(t, IsDestinationFresh(scan.Source{ModTime: stamp}, dest))
	require.True(t, IsDestinationFresh(scan.Source{ModTime: stamp.Add(-time.Second)}, dest))
	require.False(t, IsDestinationFresh(scan.Source{ModTime: stamp.Add(time.Second)}, dest))
	require.False(t, IsDestinationFresh(scan.Source{}, filepath.Join(dir, "missing.jpg")))
}

func TestCopyConvertsHEICAndLeavesSource(t *testing.T) {
	base := t.TempDir()
	uploads := filepath.Join(base, "uploads")
	web := filepath.Join(base, "web")
	srcPath := filepath.Join(uploads, "artists", "IMG_0001.HEIC")
	testsupport.WriteFile(t, srcPath, 4096)
	original := testsupport.ReadFile(t, srcPath)

	opt := New(Options{HEIC: &fakeHEIC{jpeg: gradientJPEG(t, 2400, 100)}})
	result := opt.Copy(context.Background(), sourceFor(t, uploads, "artists/IMG_0001.HEIC", scan.CategoryUploads), web)

	require.NoError(t, result.Err)
	dest := filepath.Join(web, "artists", "IMG_0001.jpg")
	require.Equal(t, dest, result.Output)
	require.Equal(t, "jpeg", testsupport.ImageFormat(t, dest))
	require.Equal(t, 1920, testsupport.ImageWidth(t, dest))
	require.True(t, bytes.Equal(original, testsupport.ReadFile(t, srcPath)))
}

func TestHEICWithoutConverterIsConfigurationFailure(t *testing.T) {
	base := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(base, "a.heic"), 10)
	result := New(Options{}).Copy(context.Background(), sourceFor(t, base, "a.heic", scan.CategoryUploads), filepath.Join(base, "out"))
	require.Equal(t, OutcomeFailed, result.Outcome)
	require.ErrorIs(t, result.Err, failures.ErrConfiguration)
}

func TestOutcomeSkipped(t *testing.T) {
	require.True(t, OutcomeSkippedSmall.Skipped())
	require.True(t, OutcomeSkippedFresh.Skipped())
	require.True(t, OutcomeNoImprovement.Skipped())
	require.False(t, OutcomeOptimized.Skipped())
	require.False(t, OutcomeConflict.Skipped())
	require.False(t, OutcomeFailed.Skipped())
}
