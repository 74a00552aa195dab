package codec

import (
	"image"

	"github.com/disintegration/imaging"
)

// FitWidth scales img down so its width is at most maxWidth, preserving the
// aspect ratio. Images already within bounds are returned unchanged; the
// boolean reports whether a resize happened.
func FitWidth(img image.Image, maxWidth int) (image.Image, bool) {
	if maxWidth <= 0 || img.Bounds().Dx() <= maxWidth {
		return img, false
	}
	return imaging.Resize(img, maxWidth, 0, imaging.Lanczos), true
}
