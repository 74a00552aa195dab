package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	writeBytes(t, path, bytes.Repeat([]byte{0x42}, int(size)))
}

// Gradient returns a smooth width x height image. Smooth content compresses
// well, so re-encoding a loosely packed copy always shrinks it.
func Gradient(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(width-1, 1)),
				G: uint8(y * 255 / max(height-1, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// Noise returns a deterministic pseudo-random image that resists compression.
func Noise(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	state := uint32(2463534242)
	for i := 0; i < len(img.Pix); i += 4 {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		img.Pix[i] = uint8(state)
		img.Pix[i+1] = uint8(state >> 8)
		img.Pix[i+2] = uint8(state >> 16)
		img.Pix[i+3] = 255
	}
	return img
}

// WriteUncompressedPNG stores img as a PNG without zlib compression, producing
// a file that any real optimization pass will shrink.
func WriteUncompressedPNG(t testing.TB, path string, img image.Image) int64 {
	t.Helper()
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(&buf, img); err != nil {
		t.Fatalf("encode png %s: %v", path, err)
	}
	writeBytes(t, path, buf.Bytes())
	return int64(buf.Len())
}

// WriteJPEG stores img as a JPEG at quality.
func WriteJPEG(t testing.TB, path string, img image.Image, quality int) int64 {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("encode jpeg %s: %v", path, err)
	}
	writeBytes(t, path, buf.Bytes())
	return int64(buf.Len())
}

// ImageWidth decodes the image at path and returns its width.
func ImageWidth(t testing.TB, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode config %s: %v", path, err)
	}
	return cfg.Width
}

// ImageFormat returns the registered format name of the image at path.
func ImageFormat(t testing.TB, path string) string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode config %s: %v", path, err)
	}
	return format
}

// ReadFile returns the bytes at path.
func ReadFile(t testing.TB, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
