// Package pathmap translates CMS upload paths into the URLs of their
// optimized web copies.
package pathmap

import "strings"

const (
	uploadsSegment = "/uploads/"
	webSegment     = "/images/web/"
)

// OptimizedImagePath returns the web copy location for an upload path.
// Only the first "/uploads/" segment is replaced; paths without one are
// returned unchanged.
func OptimizedImagePath(p string) string {
	if p == "" {
		return ""
	}
	return strings.Replace(p, uploadsSegment, webSegment, 1)
}
