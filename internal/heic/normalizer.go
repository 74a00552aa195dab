// Package heic converts HEIC camera originals into JPEG buffers so the rest of
// the pipeline only ever handles formats the codec package can decode.
package heic

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"

	"github.com/jdeng/goheif"

	"pihla/internal/codec"
	"pihla/internal/failures"
)

// DefaultQuality is the JPEG quality of the intermediate buffer.
const DefaultQuality = 100

// Normalizer decodes HEIC files and re-encodes them as in-memory JPEG.
type Normalizer struct {
	Quality int
}

// New returns a Normalizer producing JPEG at quality (DefaultQuality when <= 0).
func New(quality int) *Normalizer {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Normalizer{Quality: quality}
}

// ToJPEG reads the HEIC file at path fully and returns it as JPEG bytes.
func (n *Normalizer) ToJPEG(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failures.Wrap(failures.ErrIO, "heic", "read", path, err)
	}
	img, err := decode(data)
	if err != nil {
		return nil, failures.Wrap(failures.ErrDecode, "heic", "decode", path, err)
	}
	out, err := codec.EncodeJPEG(img, n.Quality)
	if err != nil {
		return nil, failures.Wrap(failures.ErrEncode, "heic", "encode jpeg", path, err)
	}
	return out, nil
}

// decode wraps goheif, which can panic on truncated containers.
func decode(data []byte) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("malformed heic container: %v", r)
		}
	}()
	return goheif.Decode(bytes.NewReader(data))
}
