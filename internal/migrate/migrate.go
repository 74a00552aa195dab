// Package migrate performs the one-time reorganization of legacy flat site
// assets into the uploads/web/assets layout and rewrites content JSON so
// every reference points at the new locations.
//
// Files are copied, never moved, so a partially completed run leaves the
// legacy layout intact and can simply be re-run.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pihla/internal/config"
	"pihla/internal/failures"
	"pihla/internal/fileutil"
	"pihla/internal/logging"
)

// Report counts what a migration run did.
type Report struct {
	DirsCreated      int      `json:"dirs_created"`
	FilesCopied      int      `json:"files_copied"`
	AlreadyInPlace   int      `json:"already_in_place"`
	OriginalsCopied  int      `json:"originals_copied"`
	SubfolderFiles   int      `json:"subfolder_files"`
	DocumentsUpdated []string `json:"documents_updated"`
	CMSConfigUpdated bool     `json:"cms_config_updated"`
}

// Migrator executes a Plan against one site.
type Migrator struct {
	cfg    *config.Config
	plan   Plan
	mode   string
	logger *slog.Logger
}

// New returns a Migrator for cfg. An empty mode uses cfg.Migrate.RewriteMode.
func New(cfg *config.Config, plan Plan, mode string, logger *slog.Logger) (*Migrator, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = cfg.Migrate.RewriteMode
	}
	if mode != config.RewriteModeText && mode != config.RewriteModeStrings {
		return nil, failures.Wrap(failures.ErrConfiguration, "migrate", "rewrite mode",
			fmt.Sprintf("unsupported value %q (want text or strings)", mode), nil)
	}
	return &Migrator{
		cfg:    cfg,
		plan:   plan,
		mode:   mode,
		logger: logging.NewComponentLogger(logger, "migrate"),
	}, nil
}

// Mode returns the reference rewrite mode in use.
func (m *Migrator) Mode() string {
	return m.mode
}

// Run executes every migration step in order. Per-file copy failures are
// logged and skipped; an unreadable content directory aborts the run.
func (m *Migrator) Run(ctx context.Context) (Report, error) {
	var report Report

	steps := []struct {
		name string
		fn   func(context.Context, *Report) error
	}{
		{"create folders", m.createFolders},
		{"relocate assets", m.relocateAssets},
		{"copy originals", m.copyOriginals},
		{"copy subfolders", m.copySubfolders},
		{"rewrite content", m.rewriteContent},
		{"update cms config", m.updateCMSConfig},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		m.logger.Info(step.name, logging.String(logging.FieldEventType, "migrate_step"))
		if err := step.fn(ctx, &report); err != nil {
			return report, err
		}
	}

	m.logger.Info("reorganization complete",
		logging.Int("dirs_created", report.DirsCreated),
		logging.Int("files_copied", report.FilesCopied),
		logging.Int("already_in_place", report.AlreadyInPlace),
		logging.Int("originals_copied", report.OriginalsCopied),
		logging.Int("subfolder_files", report.SubfolderFiles),
		logging.Int("documents_updated", len(report.DocumentsUpdated)),
		logging.Bool("cms_config_updated", report.CMSConfigUpdated),
		logging.String(logging.FieldEventType, "migrate_complete"),
	)
	return report, nil
}

func (m *Migrator) createFolders(_ context.Context, report *Report) error {
	for _, dir := range m.plan.Folders {
		if fileutil.Exists(dir) {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return failures.Wrap(failures.ErrIO, "migrate", "create folder", dir, err)
		}
		report.DirsCreated++
		m.logger.Info("created folder", logging.String("dir", m.display(dir)))
	}
	return nil
}

func (m *Migrator) relocateAssets(ctx context.Context, report *Report) error {
	for _, rel := range m.plan.Relocations {
		if err := ctx.Err(); err != nil {
			return err
		}
		src := filepath.Join(m.cfg.Paths.AssetsDir, rel.Name)
		if !isRegular(src) {
			continue
		}
		dst := filepath.Join(m.targetRoot(rel.Target), filepath.FromSlash(rel.Rel))
		if sameFile(src, dst) {
			report.AlreadyInPlace++
			m.logger.Debug("already in place", logging.String(logging.FieldPath, rel.Name))
			continue
		}
		if m.copy(src, dst) {
			report.FilesCopied++
		}
	}
	return nil
}

func (m *Migrator) copyOriginals(ctx context.Context, report *Report) error {
	entries, err := os.ReadDir(m.plan.OriginalsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return failures.Wrap(failures.ErrIO, "migrate", "read originals", m.plan.OriginalsDir, err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		sub := m.plan.ClassifyOriginal(entry.Name())
		if sub == "" {
			m.logger.Debug("site asset original left in place", logging.String(logging.FieldPath, entry.Name()))
			continue
		}
		src := filepath.Join(m.plan.OriginalsDir, entry.Name())
		dst := filepath.Join(m.cfg.Paths.UploadDir, filepath.FromSlash(sub), entry.Name())
		if m.copy(src, dst) {
			report.OriginalsCopied++
		}
	}
	return nil
}

func (m *Migrator) copySubfolders(ctx context.Context, report *Report) error {
	for _, sub := range m.plan.Subfolders {
		srcDir := filepath.Join(m.cfg.Paths.AssetsDir, sub)
		entries, err := os.ReadDir(srcDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return failures.Wrap(failures.ErrIO, "migrate", "read subfolder", srcDir, err)
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !entry.Type().IsRegular() {
				continue
			}
			dst := filepath.Join(m.cfg.Paths.WebDir, sub, entry.Name())
			if m.copy(filepath.Join(srcDir, entry.Name()), dst) {
				report.SubfolderFiles++
			}
		}
	}
	return nil
}

func (m *Migrator) rewriteContent(ctx context.Context, report *Report) error {
	entries, err := os.ReadDir(m.cfg.Paths.ContentDir)
	if err != nil {
		return failures.Wrap(failures.ErrIO, "migrate", "read content directory", m.cfg.Paths.ContentDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(m.cfg.Paths.ContentDir, name)
		updated, err := m.rewriteDocument(path)
		if err != nil {
			logging.WarnWithContext(m.logger, "content file not updated", "migrate_rewrite_failed",
				logging.String(logging.FieldPath, name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the JSON syntax or re-run with --rewrite-mode text"),
			)
			continue
		}
		if updated {
			report.DocumentsUpdated = append(report.DocumentsUpdated, name)
			m.logger.Info("updated references",
				logging.String(logging.FieldPath, name),
				logging.String("mode", m.mode),
			)
		}
	}
	return nil
}

func (m *Migrator) rewriteDocument(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	var (
		out   []byte
		fired bool
	)
	switch m.mode {
	case config.RewriteModeStrings:
		out, fired, err = RewriteStrings(data, m.plan.Replacements)
		if err != nil {
			return false, err
		}
	default:
		var text string
		text, fired = RewriteText(string(data), m.plan.Replacements)
		out = []byte(text)
	}
	if !fired {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	tmp := path + m.cfg.Optimize.TempSuffix
	if err := fileutil.WriteFileSync(tmp, out, info.Mode().Perm()); err != nil {
		_ = fileutil.RemoveIfExists(tmp)
		return false, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = fileutil.RemoveIfExists(tmp)
		return false, err
	}
	return true, nil
}

func (m *Migrator) updateCMSConfig(_ context.Context, report *Report) error {
	path := m.cfg.Migrate.CMSConfig
	if path == "" {
		return nil
	}
	updated, err := UpdateCMSConfig(path, m.cfg.Migrate.MediaFolder, m.cfg.Migrate.PublicFolder)
	if err != nil {
		logging.WarnWithContext(m.logger, "cms config not updated", "migrate_cms_failed",
			logging.String("file", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set media_folder and public_folder by hand"),
			logging.String(logging.FieldImpact, "CMS keeps uploading to the old folder"),
		)
		return nil
	}
	report.CMSConfigUpdated = updated
	if updated {
		m.logger.Info("updated cms config",
			logging.String("file", m.display(path)),
			logging.String("media_folder", m.cfg.Migrate.MediaFolder),
			logging.String("public_folder", m.cfg.Migrate.PublicFolder),
		)
	}
	return nil
}

// copy copies src to dst, logging the outcome. Failures are logged and
// reported as false.
func (m *Migrator) copy(src, dst string) bool {
	if err := fileutil.CopyFile(src, dst); err != nil {
		logging.WarnWithContext(m.logger, "copy failed", "migrate_copy_failed",
			logging.String("file", m.display(src)),
			logging.String("output", m.display(dst)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions under the public directory"),
			logging.String(logging.FieldImpact, "file stays only at its legacy location"),
		)
		return false
	}
	m.logger.Info("copied",
		logging.String("file", m.display(src)),
		logging.String("output", m.display(dst)),
	)
	return true
}

func (m *Migrator) targetRoot(target Target) string {
	switch target {
	case TargetAssets:
		return m.cfg.Paths.AssetsDir
	case TargetUploads:
		return m.cfg.Paths.UploadDir
	default:
		return m.cfg.Paths.WebDir
	}
}

// display shortens path relative to the public directory for log output.
func (m *Migrator) display(path string) string {
	if rel, err := filepath.Rel(m.cfg.Paths.PublicDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
