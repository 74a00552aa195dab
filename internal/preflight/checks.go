package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"pihla/internal/config"
	"pihla/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckOptionalDirectory is CheckDirectoryAccess for roots the pipeline skips
// when absent.
func CheckOptionalDirectory(name, path string) Result {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Result{Name: name, Passed: true, Optional: true, Detail: fmt.Sprintf("%s (not present; skipped)", path)}
	}
	result := CheckDirectoryAccess(name, path)
	result.Optional = true
	return result
}

// CheckFile verifies that a regular file exists and is readable.
func CheckFile(name, path string, optional bool) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if optional {
				return Result{Name: name, Passed: true, Optional: true, Detail: fmt.Sprintf("%s (not present)", path)}
			}
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Optional: optional, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.Mode().IsRegular() {
		return Result{Name: name, Optional: optional, Detail: fmt.Sprintf("%s (error: not a regular file)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Optional: optional, Detail: fmt.Sprintf("%s (error: unreadable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Optional: optional, Detail: path}
}

// CheckFreeSpace verifies that the filesystem holding path (or its nearest
// existing parent) has at least minFree bytes available.
func CheckFreeSpace(name, path string, minFree uint64) Result {
	target := nearestExisting(path)
	var stat unix.Statfs_t
	if err := unix.Statfs(target, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", target, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s free on %s", humanize.Bytes(free), target)
	if free < minFree {
		return Result{Name: name, Detail: fmt.Sprintf("%s (need %s)", detail, humanize.Bytes(minFree))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckTools reports the configured post-processors as optional results.
func CheckTools(cfg *config.Config) []Result {
	statuses := deps.CheckBinaries(deps.ImageTools(cfg))
	results := make([]Result, 0, len(statuses))
	for _, s := range statuses {
		detail := s.Path
		if !s.Available {
			detail = s.Detail
		}
		results = append(results, Result{
			Name:     s.Name,
			Passed:   s.Available,
			Optional: s.Optional,
			Detail:   fmt.Sprintf("%s (%s)", detail, s.Description),
		})
	}
	return results
}

func nearestExisting(path string) string {
	current := filepath.Clean(path)
	for {
		if _, err := os.Stat(current); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return current
		}
		current = parent
	}
}
