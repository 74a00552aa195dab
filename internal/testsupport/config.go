package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"pihla/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose site layout lives under a unique temp
// project directory. External tools and the journal are disabled so results
// do not depend on the host.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ProjectDir = base
	cfgVal.Paths.PublicDir = filepath.Join(base, "public")
	cfgVal.Paths.UploadDir = filepath.Join(base, "public", "images", "uploads")
	cfgVal.Paths.WebDir = filepath.Join(base, "public", "images", "web")
	cfgVal.Paths.AssetsDir = filepath.Join(base, "public", "assets")
	cfgVal.Paths.BackupDir = filepath.Join(base, "public", "images", "originals")
	cfgVal.Paths.ContentDir = filepath.Join(base, "public", "content")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "public", "images", "downloads")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Tools.Jpegtran = ""
	cfgVal.Tools.Pngquant = ""
	cfgVal.Journal.Enabled = false
	cfgVal.Migrate.CMSConfig = filepath.Join(base, "public", "admin", "config.yml")
	cfgVal.OG.Logo = filepath.Join(base, "public", "assets", "pihla-folk-logo.png")
	cfgVal.OG.Output = filepath.Join(base, "public", "og-image.jpg")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithJournal enables the SQLite run journal under the state directory.
func WithJournal() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = true
		b.cfg.Journal.Path = filepath.Join(b.cfg.Paths.StateDir, "journal.db")
	}
}

// WithMinSizeKB overrides the in-place skip threshold.
func WithMinSizeKB(kb int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Optimize.MinSizeKB = kb
	}
}

// WithMaxWidth overrides the resize bound.
func WithMaxWidth(width int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Optimize.MaxWidth = width
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default post-processors are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"jpegtran", "pngquant"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the project directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.ProjectDir
}
