package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOptimize()
	c.normalizeTools()
	if err := c.normalizeMigrate(); err != nil {
		return err
	}
	if err := c.normalizeOG(); err != nil {
		return err
	}
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("PIHLA_PROJECT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ProjectDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.ProjectDir) == "" {
		c.Paths.ProjectDir = defaultProjectDir
	}
	if c.Paths.ProjectDir, err = expandPath(c.Paths.ProjectDir); err != nil {
		return fmt.Errorf("paths.project_dir: %w", err)
	}
	project := c.Paths.ProjectDir

	siteDirs := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.public_dir", &c.Paths.PublicDir, defaultPublicDir},
		{"paths.upload_dir", &c.Paths.UploadDir, defaultUploadDir},
		{"paths.web_dir", &c.Paths.WebDir, defaultWebDir},
		{"paths.assets_dir", &c.Paths.AssetsDir, defaultAssetsDir},
		{"paths.backup_dir", &c.Paths.BackupDir, defaultBackupDir},
		{"paths.content_dir", &c.Paths.ContentDir, defaultContentDir},
		{"paths.download_dir", &c.Paths.DownloadDir, defaultDownloadDir},
	}
	for _, dir := range siteDirs {
		if strings.TrimSpace(*dir.value) == "" {
			*dir.value = dir.fallback
		}
		if *dir.value, err = expandUnder(project, strings.TrimSpace(*dir.value)); err != nil {
			return fmt.Errorf("%s: %w", dir.key, err)
		}
	}

	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, defaultLogDirName)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOptimize() {
	suffix := strings.TrimSpace(c.Optimize.TempSuffix)
	if suffix == "" {
		suffix = defaultTempSuffix
	}
	if !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	c.Optimize.TempSuffix = suffix

	if len(c.Optimize.Exclude) > 0 {
		patterns := make([]string, 0, len(c.Optimize.Exclude))
		seen := make(map[string]struct{}, len(c.Optimize.Exclude))
		for _, pattern := range c.Optimize.Exclude {
			normalized := filepath.ToSlash(strings.TrimSpace(pattern))
			if normalized == "" {
				continue
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			patterns = append(patterns, normalized)
		}
		c.Optimize.Exclude = patterns
	}
	if c.Optimize.StaleTempMinutes < 0 {
		c.Optimize.StaleTempMinutes = 0
	}
}

func (c *Config) normalizeTools() {
	c.Tools.Jpegtran = strings.TrimSpace(c.Tools.Jpegtran)
	c.Tools.Pngquant = strings.TrimSpace(c.Tools.Pngquant)
	if c.Tools.Timeout <= 0 {
		c.Tools.Timeout = defaultToolTimeout
	}
}

func (c *Config) normalizeMigrate() error {
	c.Migrate.RewriteMode = strings.ToLower(strings.TrimSpace(c.Migrate.RewriteMode))
	if c.Migrate.RewriteMode == "" {
		c.Migrate.RewriteMode = RewriteModeText
	}
	c.Migrate.MediaFolder = strings.TrimSpace(c.Migrate.MediaFolder)
	c.Migrate.PublicFolder = strings.TrimSpace(c.Migrate.PublicFolder)
	if strings.TrimSpace(c.Migrate.CMSConfig) == "" {
		return nil
	}
	var err error
	if c.Migrate.CMSConfig, err = expandUnder(c.Paths.ProjectDir, strings.TrimSpace(c.Migrate.CMSConfig)); err != nil {
		return fmt.Errorf("migrate.cms_config: %w", err)
	}
	return nil
}

func (c *Config) normalizeOG() error {
	var err error
	if strings.TrimSpace(c.OG.Logo) == "" {
		c.OG.Logo = defaultOGLogo
	}
	if c.OG.Logo, err = expandUnder(c.Paths.ProjectDir, strings.TrimSpace(c.OG.Logo)); err != nil {
		return fmt.Errorf("og.logo: %w", err)
	}
	if strings.TrimSpace(c.OG.Output) == "" {
		c.OG.Output = defaultOGOutput
	}
	if c.OG.Output, err = expandUnder(c.Paths.ProjectDir, strings.TrimSpace(c.OG.Output)); err != nil {
		return fmt.Errorf("og.output: %w", err)
	}
	c.OG.Background = strings.TrimSpace(c.OG.Background)
	if c.OG.Background == "" {
		c.OG.Background = defaultOGBackground
	}
	return nil
}

func (c *Config) normalizeJournal() error {
	if strings.TrimSpace(c.Journal.Path) == "" {
		return nil
	}
	var err error
	if c.Journal.Path, err = expandPath(strings.TrimSpace(c.Journal.Path)); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("PIHLA_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
