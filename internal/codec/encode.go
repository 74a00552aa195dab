package codec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	"pihla/internal/logging"
)

// Settings holds the resize bound and per-format encoder parameters.
type Settings struct {
	MaxWidth            int
	JPEGQuality         int
	JPEGProgressive     bool
	PNGQuality          int
	PNGCompressionLevel int
	WebPQuality         int
}

// DefaultSettings returns the production encoder parameters.
func DefaultSettings() Settings {
	return Settings{
		MaxWidth:            1920,
		JPEGQuality:         85,
		JPEGProgressive:     true,
		PNGQuality:          85,
		PNGCompressionLevel: 9,
		WebPQuality:         85,
	}
}

// Encoder turns decoded images into compressed bytes for a target format.
type Encoder struct {
	settings Settings
	tools    Tools
	logger   *slog.Logger
}

// NewEncoder builds an encoder. A zero Tools value disables post-processing.
func NewEncoder(settings Settings, tools Tools, logger *slog.Logger) *Encoder {
	return &Encoder{settings: settings, tools: tools, logger: logging.NewComponentLogger(logger, "codec")}
}

// Settings returns the encoder parameters.
func (e *Encoder) Settings() Settings {
	return e.settings
}

// Tools returns the resolved post-processors.
func (e *Encoder) Tools() Tools {
	return e.tools
}

// Encode compresses img as format. HEIC targets are encoded as JPEG. A
// post-processor that fails leaves the built-in encoding in place, the same
// as a post-processor that is not installed; only cancellation is an error.
func (e *Encoder) Encode(ctx context.Context, img image.Image, format Format) ([]byte, error) {
	var buf bytes.Buffer
	switch format.OutputFormat() {
	case FormatJPEG:
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(e.settings.JPEGQuality)); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		if e.settings.JPEGProgressive && e.tools.Jpegtran != "" {
			return e.postProcess(ctx, "jpegtran", buf.Bytes(), e.tools.ProgressiveJPEG)
		}
		return buf.Bytes(), nil
	case FormatPNG:
		level := pngCompression(e.settings.PNGCompressionLevel)
		if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(level)); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		if e.tools.Pngquant != "" {
			return e.postProcess(ctx, "pngquant", buf.Bytes(), func(ctx context.Context, data []byte) ([]byte, error) {
				return e.tools.QuantizePNG(ctx, data, e.settings.PNGQuality)
			})
		}
		return buf.Bytes(), nil
	case FormatWebP:
		options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(e.settings.WebPQuality))
		if err != nil {
			return nil, fmt.Errorf("webp encoder options: %w", err)
		}
		if err := webp.Encode(&buf, img, options); err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

func (e *Encoder) postProcess(ctx context.Context, tool string, data []byte, run func(context.Context, []byte) ([]byte, error)) ([]byte, error) {
	out, err := run(ctx, data)
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	logging.WarnWithContext(e.logger, "post-processor failed; keeping built-in encoding", "post_processor_failed",
		logging.String("tool", tool),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "run 'pihla doctor' to verify jpegtran/pngquant"),
		logging.String(logging.FieldImpact, "file is written without the extra compression step"),
	)
	return data, nil
}

// EncodeJPEG encodes img as a baseline JPEG at quality without post-processing.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func pngCompression(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level >= 9:
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}
