package codec

import (
	"path/filepath"
	"strings"
)

// Format identifies an image container by its file extension.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatHEIC Format = "heic"
)

var extensionFormats = map[string]Format{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".webp": FormatWebP,
	".heic": FormatHEIC,
}

// FormatFromPath maps a file extension (case-insensitive) to its Format.
func FormatFromPath(path string) (Format, bool) {
	format, ok := extensionFormats[strings.ToLower(filepath.Ext(path))]
	return format, ok
}

// OutputFormat is the format an input is re-encoded to. HEIC becomes JPEG;
// everything else keeps its own format.
func (f Format) OutputFormat() Format {
	if f == FormatHEIC {
		return FormatJPEG
	}
	return f
}

// OutputPath returns the path an optimized copy of path is written to. Only
// HEIC inputs change extension; other inputs keep theirs unchanged.
func OutputPath(path string) string {
	format, ok := FormatFromPath(path)
	if !ok || format != FormatHEIC {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".jpg"
}
