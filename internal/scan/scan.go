// Package scan enumerates image files under the site roots.
//
// Walk is lazy: it yields one Source at a time so the caller can decode and
// write each file before the next directory entry is read. Traversal never
// transforms anything.
package scan

import (
	"errors"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"pihla/internal/codec"
)

// Category names the kind of root a file was found under.
type Category string

const (
	// CategoryWeb is the optimized web image tree (page content images).
	CategoryWeb Category = "web"
	// CategoryAssets is the flat site-assets folder (logos, wallpapers, patterns).
	CategoryAssets Category = "assets"
	// CategoryUploads is the CMS upload tree holding high-resolution originals.
	CategoryUploads Category = "uploads"
)

// Root describes one directory to scan.
type Root struct {
	Category    Category
	Dir         string
	Recursive   bool
	IncludeHEIC bool
	// Exclude holds doublestar patterns matched against the slash-separated
	// path relative to Dir. Matching directories are not entered.
	Exclude []string
}

// Source is one image file found under a Root.
type Source struct {
	AbsPath  string
	RelPath  string
	Category Category
	Format   codec.Format
	Size     int64
	ModTime  time.Time
}

// RootExists reports whether dir exists and is a directory.
func RootExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// Walk yields the image files under root in lexical order. A missing root
// yields nothing. Unreadable subdirectories are reported as errors and
// skipped; the walk continues.
func Walk(root Root) iter.Seq2[Source, error] {
	return func(yield func(Source, error) bool) {
		if !RootExists(root.Dir) {
			return
		}
		_ = filepath.WalkDir(root.Dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if !yield(Source{AbsPath: path, Category: root.Category}, err) || path == root.Dir {
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if path == root.Dir {
				return nil
			}
			rel, relErr := filepath.Rel(root.Dir, path)
			if relErr != nil {
				return relErr
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if !root.Recursive || excluded(root.Exclude, rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || excluded(root.Exclude, rel) {
				return nil
			}
			format, ok := codec.FormatFromPath(path)
			if !ok || (format == codec.FormatHEIC && !root.IncludeHEIC) {
				return nil
			}
			info, infoErr := d.Info()
			if infoErr != nil {
				if errors.Is(infoErr, fs.ErrNotExist) {
					return nil
				}
				if !yield(Source{AbsPath: path, RelPath: rel, Category: root.Category}, infoErr) {
					return filepath.SkipAll
				}
				return nil
			}
			if !yield(Source{
				AbsPath:  path,
				RelPath:  rel,
				Category: root.Category,
				Format:   format,
				Size:     info.Size(),
				ModTime:  info.ModTime(),
			}, nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func excluded(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// Collect drains Walk into a slice, returning the first error alongside the
// sources found so far. Intended for tests and small roots.
func Collect(root Root) ([]Source, error) {
	var (
		out      []Source
		firstErr error
	)
	for src, err := range Walk(root) {
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out = append(out, src)
	}
	return out, firstErr
}

// IsTemp reports whether name carries the pipeline's temporary suffix.
func IsTemp(name, suffix string) bool {
	return suffix != "" && strings.HasSuffix(name, suffix)
}
