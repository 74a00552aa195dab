// Package ogimage renders the Open Graph social card: the site logo centered
// on a flat background, encoded as JPEG.
package ogimage

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"pihla/internal/codec"
	"pihla/internal/config"
	"pihla/internal/failures"
	"pihla/internal/fileutil"
	"pihla/internal/logging"
)

// Options describes one card.
type Options struct {
	Logo       string
	Output     string
	Width      int
	Height     int
	Background string
	LogoRatio  float64
	Quality    int
}

// OptionsFromConfig returns the card settings from the [og] section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Logo:       cfg.OG.Logo,
		Output:     cfg.OG.Output,
		Width:      cfg.OG.Width,
		Height:     cfg.OG.Height,
		Background: cfg.OG.Background,
		LogoRatio:  cfg.OG.LogoRatio,
		Quality:    cfg.OG.Quality,
	}
}

// Result describes a written card.
type Result struct {
	Output     string `json:"output"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	LogoWidth  int    `json:"logo_width"`
	LogoHeight int    `json:"logo_height"`
	Bytes      int64  `json:"bytes"`
}

// Render composes the card in memory.
func Render(logo image.Image, opts Options) (*image.NRGBA, image.Point, error) {
	bg, err := config.ParseHexColor(opts.Background)
	if err != nil {
		return nil, image.Point{}, failures.Wrap(failures.ErrConfiguration, "og", "background", opts.Background, err)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, image.Point{}, failures.Wrap(failures.ErrConfiguration, "og", "canvas",
			fmt.Sprintf("invalid size %dx%d", opts.Width, opts.Height), nil)
	}

	size := LogoSize(logo.Bounds().Size(), opts)
	if size != logo.Bounds().Size() {
		logo = imaging.Resize(logo, size.X, size.Y, imaging.Lanczos)
	}

	canvas := imaging.New(opts.Width, opts.Height, bg)
	return imaging.OverlayCenter(canvas, logo, 1.0), size, nil
}

// LogoSize scales logo to at most LogoRatio of the canvas width, keeping the
// aspect ratio. The logo is never enlarged and never taller than the canvas.
func LogoSize(logo image.Point, opts Options) image.Point {
	if logo.X <= 0 || logo.Y <= 0 {
		return logo
	}
	maxWidth := math.Round(float64(opts.Width) * opts.LogoRatio)
	scale := math.Min(maxWidth/float64(logo.X), 1)
	if opts.Height > 0 {
		scale = math.Min(scale, float64(opts.Height)/float64(logo.Y))
	}
	return image.Point{
		X: max(1, int(math.Round(float64(logo.X)*scale))),
		Y: max(1, int(math.Round(float64(logo.Y)*scale))),
	}
}

// Generate reads the logo, renders the card, and writes it atomically.
func Generate(opts Options, logger *slog.Logger) (Result, error) {
	logger = logging.NewComponentLogger(logger, "og")

	logo, err := codec.DecodeFile(opts.Logo)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, failures.Wrap(failures.ErrIO, "og", "read logo", opts.Logo, err)
		}
		return Result{}, failures.Wrap(failures.ErrDecode, "og", "decode logo", opts.Logo, err)
	}
	logger.Debug("logo loaded",
		logging.String("file", opts.Logo),
		logging.Int("width", logo.Bounds().Dx()),
		logging.Int("height", logo.Bounds().Dy()),
	)

	card, size, err := Render(logo, opts)
	if err != nil {
		return Result{}, err
	}
	data, err := codec.EncodeJPEG(card, opts.Quality)
	if err != nil {
		return Result{}, failures.Wrap(failures.ErrEncode, "og", "encode card", opts.Output, err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
		return Result{}, failures.Wrap(failures.ErrIO, "og", "create output dir", opts.Output, err)
	}
	tmp := opts.Output + ".tmp"
	if err := fileutil.WriteFileSync(tmp, data, 0o644); err != nil {
		_ = fileutil.RemoveIfExists(tmp)
		return Result{}, failures.Wrap(failures.ErrIO, "og", "write card", tmp, err)
	}
	if err := os.Rename(tmp, opts.Output); err != nil {
		_ = fileutil.RemoveIfExists(tmp)
		return Result{}, failures.Wrap(failures.ErrIO, "og", "commit card", opts.Output, err)
	}

	result := Result{
		Output:     opts.Output,
		Width:      opts.Width,
		Height:     opts.Height,
		LogoWidth:  size.X,
		LogoHeight: size.Y,
		Bytes:      int64(len(data)),
	}
	logger.Info("created og image",
		logging.String("output", opts.Output),
		logging.String("canvas", fmt.Sprintf("%dx%d", result.Width, result.Height)),
		logging.String("logo", fmt.Sprintf("%dx%d", result.LogoWidth, result.LogoHeight)),
		logging.String("background", opts.Background),
		logging.Int64("size", result.Bytes),
		logging.String(logging.FieldEventType, "og_created"),
	)
	return result, nil
}
