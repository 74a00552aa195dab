package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateOptimize(); err != nil {
		return err
	}
	if err := c.validateMigrate(); err != nil {
		return err
	}
	if err := c.validateOG(); err != nil {
		return err
	}
	if c.Watch.DebounceMillis < 0 {
		return errors.New("watch.debounce_ms must be >= 0")
	}
	if c.Tools.Timeout <= 0 {
		return errors.New("tools.timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validatePaths() error {
	required := map[string]string{
		"paths.upload_dir": c.Paths.UploadDir,
		"paths.web_dir":    c.Paths.WebDir,
		"paths.assets_dir": c.Paths.AssetsDir,
		"paths.backup_dir": c.Paths.BackupDir,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if c.Paths.BackupDir == c.Paths.WebDir || c.Paths.BackupDir == c.Paths.AssetsDir {
		return errors.New("paths.backup_dir must differ from paths.web_dir and paths.assets_dir")
	}
	if c.Paths.UploadDir == c.Paths.WebDir {
		return errors.New("paths.upload_dir must differ from paths.web_dir")
	}
	return nil
}

func (c *Config) validateOptimize() error {
	if err := ensurePositiveMap(map[string]int{
		"optimize.max_width": c.Optimize.MaxWidth,
	}); err != nil {
		return err
	}
	if c.Optimize.MinSizeKB < 0 {
		return errors.New("optimize.min_size_kb must be >= 0")
	}
	if err := ensureRangeMap(1, 100, map[string]int{
		"optimize.jpeg_quality": c.Optimize.JPEGQuality,
		"optimize.png_quality":  c.Optimize.PNGQuality,
		"optimize.webp_quality": c.Optimize.WebPQuality,
		"optimize.heic_quality": c.Optimize.HEICQuality,
	}); err != nil {
		return err
	}
	if c.Optimize.PNGCompressionLevel < 0 || c.Optimize.PNGCompressionLevel > 9 {
		return errors.New("optimize.png_compression_level must be between 0 and 9")
	}
	for _, pattern := range c.Optimize.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("optimize.exclude: invalid pattern %q", pattern)
		}
	}
	return nil
}

func (c *Config) validateMigrate() error {
	switch c.Migrate.RewriteMode {
	case RewriteModeText, RewriteModeStrings:
	default:
		return fmt.Errorf("migrate.rewrite_mode must be %q or %q", RewriteModeText, RewriteModeStrings)
	}
	return nil
}

func (c *Config) validateOG() error {
	if err := ensurePositiveMap(map[string]int{
		"og.width":  c.OG.Width,
		"og.height": c.OG.Height,
	}); err != nil {
		return err
	}
	if c.OG.LogoRatio <= 0 || c.OG.LogoRatio > 1 {
		return errors.New("og.logo_ratio must be between 0 and 1")
	}
	if c.OG.Quality < 1 || c.OG.Quality > 100 {
		return errors.New("og.quality must be between 1 and 100")
	}
	if _, err := ParseHexColor(c.OG.Background); err != nil {
		return fmt.Errorf("og.background: %w", err)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensureRangeMap(lo, hi int, values map[string]int) error {
	for key, value := range values {
		if value < lo || value > hi {
			return fmt.Errorf("%s must be between %d and %d", key, lo, hi)
		}
	}
	return nil
}
