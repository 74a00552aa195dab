package migrate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pihla/internal/config"
	"pihla/internal/failures"
	"pihla/internal/logging"
	"pihla/internal/testsupport"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func newMigrator(t *testing.T, cfg *config.Config, mode string) *Migrator {
	t.Helper()
	m, err := New(cfg, DefaultPlan(cfg), mode, logging.NewNop())
	require.NoError(t, err)
	return m
}

func TestRunReorganizesLegacyLayout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	assets := cfg.Paths.AssetsDir
	write(t, filepath.Join(assets, "pihla-folk-logo.png"), "logo")
	write(t, filepath.Join(assets, "carousel-1.jpg"), "c1")
	write(t, filepath.Join(assets, "pol00820.jpg"), "pol")
	write(t, filepath.Join(assets, "originals", "carousel-9.jpg"), "c9-hires")
	write(t, filepath.Join(assets, "originals", "wallpaper-bg.jpg"), "wall-hires")
	write(t, filepath.Join(assets, "originals", "concert.jpg"), "concert-hires")
	write(t, filepath.Join(assets, "artists", "jane.jpg"), "jane")
	write(t, filepath.Join(assets, "productions", "show.png"), "show")
	write(t, filepath.Join(cfg.Paths.ContentDir, "home.json"),
		`{"hero":"/assets/carousel-1.jpg","artist":"/assets/artists/jane.jpg","logo":"/assets/pihla-folk-logo.png"}`)
	about := `{"title":"Meistä","image":"/images/web/home/a.jpg"}`
	write(t, filepath.Join(cfg.Paths.ContentDir, "about.json"), about)
	write(t, filepath.Join(cfg.Paths.ContentDir, "notes.txt"), "/assets/carousel-1.jpg")

	report, err := newMigrator(t, cfg, "").Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 6, report.DirsCreated)
	require.DirExists(t, cfg.Paths.DownloadDir)
	require.DirExists(t, filepath.Join(cfg.Paths.WebDir, "home"))

	require.Equal(t, 2, report.FilesCopied)
	require.Equal(t, 1, report.AlreadyInPlace)
	require.Equal(t, "logo", read(t, filepath.Join(assets, "pihla-folk-logo.png")))
	require.Equal(t, "c1", read(t, filepath.Join(cfg.Paths.WebDir, "media", "carousel", "carousel-1.jpg")))
	require.Equal(t, "pol", read(t, filepath.Join(cfg.Paths.WebDir, "media", "carousel", "pol00820.jpg")))
	require.FileExists(t, filepath.Join(assets, "carousel-1.jpg"))

	require.Equal(t, 2, report.OriginalsCopied)
	uploadsCarousel := filepath.Join(cfg.Paths.UploadDir, "media", "carousel")
	require.Equal(t, "c9-hires", read(t, filepath.Join(uploadsCarousel, "carousel-9.jpg")))
	require.Equal(t, "concert-hires", read(t, filepath.Join(uploadsCarousel, "concert.jpg")))
	require.NoFileExists(t, filepath.Join(uploadsCarousel, "wallpaper-bg.jpg"))

	require.Equal(t, 2, report.SubfolderFiles)
	require.Equal(t, "jane", read(t, filepath.Join(cfg.Paths.WebDir, "artists", "jane.jpg")))
	require.Equal(t, "show", read(t, filepath.Join(cfg.Paths.WebDir, "productions", "show.png")))

	require.Equal(t, []string{"home.json"}, report.DocumentsUpdated)
	require.Equal(t,
		`{"hero":"/images/web/media/carousel/carousel-1.jpg","artist":"/images/web/artists/jane.jpg","logo":"/assets/pihla-folk-logo.png"}`,
		read(t, filepath.Join(cfg.Paths.ContentDir, "home.json")))
	require.Equal(t, about, read(t, filepath.Join(cfg.Paths.ContentDir, "about.json")))
	require.Equal(t, "/assets/carousel-1.jpg", read(t, filepath.Join(cfg.Paths.ContentDir, "notes.txt")))
	require.NoFileExists(t, filepath.Join(cfg.Paths.ContentDir, "home.json.tmp"))
	require.False(t, report.CMSConfigUpdated)

	again, err := newMigrator(t, cfg, "").Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, again.DirsCreated)
	require.Empty(t, again.DocumentsUpdated)
}

func TestRunFailsOnUnreadableContentDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := newMigrator(t, cfg, "").Run(context.Background())
	require.ErrorIs(t, err, failures.ErrIO)
	require.Contains(t, err.Error(), cfg.Paths.ContentDir)
}

func TestRunStringsModeSkipsInvalidDocuments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	write(t, filepath.Join(cfg.Paths.ContentDir, "broken.json"), `{"a": "/assets/carousel-1.jpg"`)
	write(t, filepath.Join(cfg.Paths.ContentDir, "ok.json"), `{"a": "/assets/carousel-2.jpg"}`)

	m := newMigrator(t, cfg, "Strings")
	require.Equal(t, config.RewriteModeStrings, m.Mode())
	report, err := m.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"ok.json"}, report.DocumentsUpdated)
	require.Equal(t, `{"a": "/assets/carousel-1.jpg"`, read(t, filepath.Join(cfg.Paths.ContentDir, "broken.json")))
}

func TestNewRejectsUnknownMode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := New(cfg, DefaultPlan(cfg), "regex", logging.NewNop())
	require.ErrorIs(t, err, failures.ErrConfiguration)
}

func TestRunUpdatesCMSConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Paths.ContentDir, 0o755))
	write(t, cfg.Migrate.CMSConfig, "# CMS settings\nbackend:\n  name: git-gateway\nmedia_folder: public/assets\npublic_folder: /assets\n")

	report, err := newMigrator(t, cfg, "").Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.CMSConfigUpdated)

	out := read(t, cfg.Migrate.CMSConfig)
	require.Contains(t, out, "# CMS settings")
	require.Contains(t, out, "media_folder: public/images/uploads")
	require.Contains(t, out, "public_folder: /images/uploads")
	require.Contains(t, out, "name: git-gateway")
}

func TestUpdateCMSConfigMissingFileAndAppend(t *testing.T) {
	dir := t.TempDir()
	updated, err := UpdateCMSConfig(filepath.Join(dir, "missing.yml"), "public/images/uploads", "/images/uploads")
	require.NoError(t, err)
	require.False(t, updated)

	path := filepath.Join(dir, "config.yml")
	write(t, path, "backend:\n  name: git-gateway\n")
	updated, err = UpdateCMSConfig(path, "public/images/uploads", "/images/uploads")
	require.NoError(t, err)
	require.True(t, updated)
	require.Contains(t, read(t, path), "media_folder: public/images/uploads")

	updated, err = UpdateCMSConfig(path, "public/images/uploads", "/images/uploads")
	require.NoError(t, err)
	require.False(t, updated)
}

func TestRewriteTextAppliesInOrder(t *testing.T) {
	replacements := []Replacement{
		{From: "/assets/artists/", To: "/images/web/artists/"},
		{From: "/images/web/", To: "/cdn/"},
	}
	out, fired := RewriteText(`"/assets/artists/a.jpg" "/assets/artists/b.jpg"`, replacements)
	require.True(t, fired)
	require.Equal(t, `"/cdn/artists/a.jpg" "/cdn/artists/b.jpg"`, out)

	out, fired = RewriteText(`{"x":"/other/a.jpg"}`, replacements)
	require.False(t, fired)
	require.Equal(t, `{"x":"/other/a.jpg"}`, out)
}

func TestRewriteStringsLeavesKeysAndNumbers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	plan := DefaultPlan(cfg)
	doc := []byte("{\n  \"/assets/artists/\": \"/assets/artists/a.jpg\",\n  \"count\": 12345678901234567,\n  \"list\": [\"/assets/pol00820.jpg\", true]\n}\n")

	out, fired, err := RewriteStrings(doc, plan.Replacements)
	require.NoError(t, err)
	require.True(t, fired)
	require.Contains(t, string(out), "12345678901234567")
	require.True(t, out[len(out)-1] == '\n')

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	require.Equal(t, "/images/web/artists/a.jpg", got["/assets/artists/"])
	require.Equal(t, []any{"/images/web/media/carousel/pol00820.jpg", true}, got["list"])

	textOut, _ := RewriteText(string(doc), plan.Replacements)
	require.NotContains(t, textOut, `"/assets/artists/":`)
}

func TestRewriteStringsNoChange(t *testing.T) {
	doc := []byte(`{"a":"b"}`)
	out, fired, err := RewriteStrings(doc, []Replacement{{From: "/assets/", To: "/x/"}})
	require.NoError(t, err)
	require.False(t, fired)
	require.Equal(t, doc, out)
}

func TestClassifyOriginal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	plan := DefaultPlan(cfg)
	require.Equal(t, "media/carousel", plan.ClassifyOriginal("carousel-12.jpg"))
	require.Equal(t, "media/carousel", plan.ClassifyOriginal("mari-etnogaala.jpg"))
	require.Equal(t, "", plan.ClassifyOriginal("pihla-folk-icon.png"))
	require.Equal(t, "media/carousel", plan.ClassifyOriginal("festival.jpg"))

	plan.SiteAssets = append(plan.SiteAssets, "k\u00e4rki.jpg")
	require.Equal(t, "", plan.ClassifyOriginal("ka\u0308rki.jpg"))
}
