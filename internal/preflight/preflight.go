package preflight

import (
	"pihla/internal/config"
)

// minFreeSpace is the headroom needed for temp files and backups during a run.
const minFreeSpace = 200 * 1024 * 1024

// Result reports the outcome of a single preflight check. Optional results
// never fail the overall check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all preflight checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result

	results = append(results,
		CheckOptionalDirectory("Uploads directory", cfg.Paths.UploadDir),
		CheckOptionalDirectory("Web directory", cfg.Paths.WebDir),
		CheckOptionalDirectory("Assets directory", cfg.Paths.AssetsDir),
		CheckOptionalDirectory("Backup directory", cfg.Paths.BackupDir),
		CheckOptionalDirectory("Content directory", cfg.Paths.ContentDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckFreeSpace("Free space", cfg.Paths.PublicDir, minFreeSpace),
		CheckFile("OG logo", cfg.OG.Logo, true),
		CheckFile("CMS config", cfg.Migrate.CMSConfig, true),
	)

	// Post-processors only change output quality, never correctness.
	results = append(results, CheckTools(cfg)...)
	return results
}

// Healthy reports whether every non-optional check passed.
func Healthy(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return false
		}
	}
	return true
}
