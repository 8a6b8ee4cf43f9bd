package convert

import (
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"tgakit/parallel"
	"tgakit/tga"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			c := color.NRGBA{R: 0xFF, A: 0xFF}
			if (x+y)%2 == 1 {
				c = color.NRGBA{B: 0xFF, A: 0x80}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func writeTGA(t *testing.T, dir, name string, img image.Image) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tga.Encode(f, img, &tga.Options{RLE: true, Alpha: true}))
}

func TestFileToPNG(t *testing.T) {
	dir := t.TempDir()
	src := checker(5, 3)
	writeTGA(t, dir, "board.tga", src)

	o := &Options{Dest: "out", Format: "png", Quality: 90, MaxPixels: 1 << 20}
	require.NoError(t, o.Prepare(dir))
	require.NoError(t, os.MkdirAll(o.Dest, 0o755))
	require.NoError(t, o.File(slog.Default(), filepath.Join(dir, "board.tga")))

	f, err := os.Open(filepath.Join(dir, "out", "board.png"))
	require.NoError(t, err)
	defer f.Close()
	got, err := png.Decode(f)
	require.NoError(t, err)

	require.Equal(t, src.Bounds(), got.Bounds())
	for y := range 3 {
		for x := range 5 {
			assert.Equal(t, src.NRGBAAt(x, y), color.NRGBAModel.Convert(got.At(x, y)), "(%d, %d)", x, y)
		}
	}

	leftovers, err := filepath.Glob(filepath.Join(dir, "out", "*.png.*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temporary files must be renamed")
}

func TestFilePNGToTGA(t *testing.T) {
	dir := t.TempDir()
	src := checker(4, 4)
	f, err := os.Create(filepath.Join(dir, "in.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	o := &Options{Dest: dir, Format: "tga", RLE: false, Alpha: true, Quality: 90, MaxPixels: 1 << 20}
	require.NoError(t, o.Prepare(dir))
	require.NoError(t, o.File(slog.Default(), filepath.Join(dir, "in.png")))

	data, err := os.ReadFile(filepath.Join(dir, "in.tga"))
	require.NoError(t, err)
	m, err := tga.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFFFF0000), m.ARGB(0, 0))
	assert.Equal(t, uint32(0x800000FF), m.ARGB(1, 0))
}

func TestPrepareRejects(t *testing.T) {
	tests := map[string]Options{
		"negative width": {Width: -1, Quality: 90},
		"crop one side":  {Width: 10, Crop: true, Quality: 90},
		"quality":        {Quality: 0},
		"palette":        {Palette: "nope", Quality: 90},
		"pixel limit":    {Quality: 90},
	}
	for name, o := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, o.Prepare(t.TempDir()))
		})
	}
}

func TestResize(t *testing.T) {
	src := checker(100, 50)

	tests := []struct {
		name          string
		width, height int
		crop          bool
		want          image.Rectangle
	}{
		{"none", 0, 0, false, image.Rect(0, 0, 100, 50)},
		{"width only", 40, 0, false, image.Rect(0, 0, 40, 20)},
		{"height only", 0, 10, false, image.Rect(0, 0, 20, 10)},
		{"fit", 40, 40, false, image.Rect(0, 0, 40, 20)},
		{"crop", 40, 40, true, image.Rect(0, 0, 40, 40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resize(slog.Default(), src, tt.width, tt.height, tt.crop)
			assert.Equal(t, tt.want, got.Bounds())
		})
	}
}

func TestRepalette(t *testing.T) {
	pal := color.Palette{color.Black, color.White}
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.Pix[0], img.Pix[1] = 0x10, 0xF0

	got := repalette(slog.Default(), img, pal, false)
	assert.Equal(t, []uint8{0, 1}, got.Pix)
}

func TestAll(t *testing.T) {
	dir := t.TempDir()
	writeTGA(t, dir, "a.tga", checker(2, 2))
	writeTGA(t, dir, "b.tga", checker(3, 1))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.tga"), []byte("short"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))

	o := &Options{Dest: "out", Format: "bmp", Quality: 90, MaxPixels: 1 << 20}
	require.NoError(t, o.Prepare(dir))

	pool := parallel.Start(2)
	processed, failed, err := All(dir, o, pool.Do, pool.Wait)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), processed)
	assert.Equal(t, uint64(1), failed)

	assert.FileExists(t, filepath.Join(dir, "out", "a.bmp"))
	assert.FileExists(t, filepath.Join(dir, "out", "b.bmp"))
	assert.NoFileExists(t, filepath.Join(dir, "out", "broken.bmp"))
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("x.TGA"))
	assert.True(t, Supported("x.webp"))
	assert.False(t, Supported("x.obj"))
}

func TestFileRejectsOversizedHeader(t *testing.T) {
	dir := t.TempDir()
	// header only: 65535x65535 at 32 bpp, RLE
	hdr := []byte{0, 0, 10, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF, 32, 0}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "huge.tga"), hdr, 0o644))

	o := &Options{Dest: dir, Format: "png", Quality: 90, MaxPixels: 4096 * 4096}
	require.NoError(t, o.Prepare(dir))

	err := o.File(slog.Default(), filepath.Join(dir, "huge.tga"))
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.NoFileExists(t, filepath.Join(dir, "huge.png"))
}

func TestFileAtPixelLimit(t *testing.T) {
	dir := t.TempDir()
	writeTGA(t, dir, "edge.tga", checker(4, 4))

	o := &Options{Dest: dir, Format: "bmp", Quality: 90, MaxPixels: 16}
	require.NoError(t, o.Prepare(dir))
	require.NoError(t, o.File(slog.Default(), filepath.Join(dir, "edge.tga")))

	o.MaxPixels = 15
	assert.ErrorIs(t, o.File(slog.Default(), filepath.Join(dir, "edge.tga")), ErrTooLarge)
}
