package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the site layout and local state directories.
type Paths struct {
	ProjectDir  string `toml:"project_dir"`
	PublicDir   string `toml:"public_dir"`
	UploadDir   string `toml:"upload_dir"`
	WebDir      string `toml:"web_dir"`
	AssetsDir   string `toml:"assets_dir"`
	BackupDir   string `toml:"backup_dir"`
	ContentDir  string `toml:"content_dir"`
	DownloadDir string `toml:"download_dir"`
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
}

// Optimize contains the resize and recompression settings.
type Optimize struct {
	MaxWidth            int      `toml:"max_width"`
	MinSizeKB           int      `toml:"min_size_kb"`
	JPEGQuality         int      `toml:"jpeg_quality"`
	JPEGProgressive     bool     `toml:"jpeg_progressive"`
	PNGQuality          int      `toml:"png_quality"`
	PNGCompressionLevel int      `toml:"png_compression_level"`
	WebPQuality         int      `toml:"webp_quality"`
	HEICQuality         int      `toml:"heic_quality"`
	ConvertHEIC         bool     `toml:"convert_heic"`
	TempSuffix          string   `toml:"temp_suffix"`
	IncludeAssets       bool     `toml:"include_assets"`
	WebInPlace          bool     `toml:"web_in_place"`
	Exclude             []string `toml:"exclude"`
	StaleTempMinutes    int      `toml:"stale_temp_minutes"`
}

// Tools contains external post-processors. Empty commands disable the step.
type Tools struct {
	Jpegtran string `toml:"jpegtran"`
	Pngquant string `toml:"pngquant"`
	Timeout  int    `toml:"timeout"`
}

// Migrate contains settings for the one-shot folder layout migration.
type Migrate struct {
	RewriteMode  string `toml:"rewrite_mode"`
	CMSConfig    string `toml:"cms_config"`
	MediaFolder  string `toml:"media_folder"`
	PublicFolder string `toml:"public_folder"`
}

// OG contains Open Graph card generation settings.
type OG struct {
	Logo       string  `toml:"logo"`
	Output     string  `toml:"output"`
	Width      int     `toml:"width"`
	Height     int     `toml:"height"`
	Background string  `toml:"background"`
	LogoRatio  float64 `toml:"logo_ratio"`
	Quality    int     `toml:"quality"`
}

// Watch contains settings for the upload watcher.
type Watch struct {
	DebounceMillis int `toml:"debounce_ms"`
}

// Journal contains settings for the local run journal.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for the asset pipeline.
//
// Configuration sections by subsystem:
//   - Paths: site layout (uploads, web, assets, backup, content) and state dirs
//   - Optimize: resize bound, codec qualities, size threshold, HEIC handling
//   - Tools: optional jpegtran/pngquant post-processing
//   - Migrate: reference rewrite mode and CMS config update
//   - OG: Open Graph card rendering
//   - Watch: upload watcher debounce
//   - Journal: SQLite run history
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	Optimize Optimize `toml:"optimize"`
	Tools    Tools    `toml:"tools"`
	Migrate  Migrate  `toml:"migrate"`
	OG       OG       `toml:"og"`
	Watch    Watch    `toml:"watch"`
	Journal  Journal  `toml:"journal"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/pihla/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("pihla.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local state directories. Site directories are
// left alone; a missing site root is reported by the pipeline as nothing to do.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MinSizeBytes returns the in-place skip threshold in bytes.
func (c *Config) MinSizeBytes() int64 {
	return int64(c.Optimize.MinSizeKB) * 1024
}

// JournalPath returns the SQLite journal location.
func (c *Config) JournalPath() string {
	if strings.TrimSpace(c.Journal.Path) != "" {
		return c.Journal.Path
	}
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// LockPath returns the advisory lock file that serializes pipeline runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "pipeline.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// expandUnder resolves relative site paths against the project directory.
func expandUnder(base, pathValue string) (string, error) {
	if pathValue == "" || strings.HasPrefix(pathValue, "~") || filepath.IsAbs(pathValue) {
		return expandPath(pathValue)
	}
	return expandPath(filepath.Join(base, pathValue))
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "pihla")
	}
	return defaultStateDirFallback
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
