package ogimage

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pihla/internal/codec"
	"pihla/internal/failures"
	"pihla/internal/logging"
	"pihla/internal/testsupport"
)

func writeLogo(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: 20, G: 60, B: 120, A: 255})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestLogoSize(t *testing.T) {
	opts := Options{Width: 1200, Height: 630, LogoRatio: 0.6}
	require.Equal(t, image.Pt(720, 180), LogoSize(image.Pt(2000, 500), opts))
	require.Equal(t, image.Pt(100, 50), LogoSize(image.Pt(100, 50), opts), "never enlarged")
	require.Equal(t, image.Pt(720, 360), LogoSize(image.Pt(720, 360), opts))
	require.Equal(t, image.Pt(126, 630), LogoSize(image.Pt(400, 2000), opts))
}

func TestGenerateWritesCenteredCard(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeLogo(t, cfg.OG.Logo, 2000, 500)

	result, err := Generate(OptionsFromConfig(cfg), logging.NewNop())
	require.NoError(t, err)
	require.Equal(t, 720, result.LogoWidth)
	require.Equal(t, 180, result.LogoHeight)
	require.NoFileExists(t, cfg.OG.Output+".tmp")

	info, err := os.Stat(cfg.OG.Output)
	require.NoError(t, err)
	require.Equal(t, result.Bytes, info.Size())

	card, err := codec.DecodeFile(cfg.OG.Output)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 1200, 630), card.Bounds())

	r, g, b, _ := card.At(5, 5).RGBA()
	require.InDelta(t, 244, r>>8, 3)
	require.InDelta(t, 244, g>>8, 3)
	require.InDelta(t, 244, b>>8, 3)

	r, _, b, _ = card.At(600, 315).RGBA()
	require.InDelta(t, 20, r>>8, 6)
	require.InDelta(t, 120, b>>8, 6)

	r, _, _, _ = card.At(600, 200).RGBA()
	require.InDelta(t, 244, r>>8, 3, "logo is vertically centered")
}

func TestGenerateBlendsTransparentLogo(t *testing.T) {
	dir := t.TempDir()
	logo := image.NewNRGBA(image.Rect(0, 0, 40, 40))
	f, err := os.Create(filepath.Join(dir, "logo.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, logo))
	require.NoError(t, f.Close())

	opts := Options{
		Logo:       filepath.Join(dir, "logo.png"),
		Output:     filepath.Join(dir, "out", "card.jpg"),
		Width:      200,
		Height:     100,
		Background: "#102030",
		LogoRatio:  0.6,
		Quality:    90,
	}
	_, err = Generate(opts, nil)
	require.NoError(t, err)

	card, err := codec.DecodeFile(opts.Output)
	require.NoError(t, err)
	r, g, b, _ := card.At(100, 50).RGBA()
	require.InDelta(t, 0x10, r>>8, 4)
	require.InDelta(t, 0x20, g>>8, 4)
	require.InDelta(t, 0x30, b>>8, 4)
}

func TestGenerateErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	opts := OptionsFromConfig(cfg)

	_, err := Generate(opts, nil)
	require.ErrorIs(t, err, failures.ErrIO)

	require.NoError(t, os.MkdirAll(filepath.Dir(opts.Logo), 0o755))
	require.NoError(t, os.WriteFile(opts.Logo, []byte("not a png"), 0o644))
	_, err = Generate(opts, nil)
	require.ErrorIs(t, err, failures.ErrDecode)

	writeLogo(t, opts.Logo, 10, 10)
	opts.Background = "beige"
	_, err = Generate(opts, nil)
	require.ErrorIs(t, err, failures.ErrConfiguration)
	require.NoFileExists(t, opts.Output)
}
