package convert

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tgakit/palette"
	"tgakit/tga"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Options describe what happens to each converted picture. They are shared
// by the convert and watch commands.
type Options struct {
	Dest    string `help:"Destination folder. Relative to scan dir if not absolute." default:"converted"`
	Format  string `help:"Output format" enum:"png,jpeg,gif,bmp,tiff,tga" default:"png"`
	RLE     bool   `help:"Run-length encode TGA output" default:"true" negatable:"" group:"tga"`
	Alpha   bool   `help:"Write 32-bit TGA output with alpha" default:"false" group:"tga"`
	Quality int    `help:"JPEG quality" default:"90"`
	Width   int    `help:"Max width" group:"resize"`
	Height  int    `help:"Max height" group:"resize"`
	Crop    bool   `help:"Crop image to keep the requested aspect ratio" default:"false" group:"resize"`
	Palette string `help:"Palette name (bw, gray16, plan9, websafe) or PAL file in RIFF format to apply" group:"palette"`
	Dither  bool   `help:"Apply Floyd-Steinberg dithering" default:"false" group:"palette"`

	MaxPixels int `help:"Refuse pictures with more pixels than this" default:"67108864"`

	Colors color.Palette `kong:"-"`
}

// ErrTooLarge is returned for pictures whose header claims more pixels than
// Options.MaxPixels allows.
var ErrTooLarge = errors.New("picture too large")

var extensions = map[string]bool{
	".tga": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Supported reports whether name looks like a picture this package decodes.
func Supported(name string) bool {
	return extensions[strings.ToLower(filepath.Ext(name))]
}

// Prepare checks the options and resolves Dest against scanDir.
func (o *Options) Prepare(scanDir string) error {
	if !filepath.IsAbs(o.Dest) {
		o.Dest = filepath.Join(scanDir, o.Dest)
	}

	switch {
	case o.Width < 0:
		return fmt.Errorf("invalid resize width: %d", o.Width)
	case o.Height < 0:
		return fmt.Errorf("invalid resize height: %d", o.Height)
	case o.Crop && (o.Width == 0 || o.Height == 0):
		return fmt.Errorf("cropping needs both width and height")
	case o.Quality < 1 || o.Quality > 100:
		return fmt.Errorf("invalid JPEG quality: %d", o.Quality)
	case o.MaxPixels < 1:
		return fmt.Errorf("invalid pixel limit: %d", o.MaxPixels)
	}

	if o.Palette != "" {
		pal, err := palette.Load(o.Palette)
		if err != nil {
			return err
		}
		o.Colors = pal
	}

	return nil
}

// File converts the picture at src into o.Dest.
func (o *Options) File(logger *slog.Logger, src string) error {
	imgFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("could not open image: %w", err)
	}

	defer func() {
		if closeErr := imgFile.Close(); closeErr != nil {
			logger.Error("could not close image", "error", closeErr)
		}
	}()

	// Decoders allocate the full pixel buffer from the header alone, so
	// the claimed size is checked before any pixel data is touched.
	conf, _, err := image.DecodeConfig(imgFile)
	if err != nil {
		return fmt.Errorf("could not read image header: %w", err)
	}
	if pixels := conf.Width * conf.Height; pixels > o.MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, conf.Width, conf.Height, o.MaxPixels)
	}
	if _, err = imgFile.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("could not rewind image: %w", err)
	}

	img, imgType, err := image.Decode(imgFile)
	if err != nil {
		return fmt.Errorf("could not decode image: %w", err)
	}
	logger.Debug("decoded", "format", imgType, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	img = resize(logger, img, o.Width, o.Height, o.Crop)

	if o.Colors != nil {
		img = repalette(logger.With("palette", o.Palette), img, o.Colors, o.Dither)
	}

	return o.save(img, filepath.Base(src))
}

func (o *Options) destName(srcName string) string {
	ext := o.Format
	if ext == "jpeg" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s.%s", strings.TrimSuffix(srcName, filepath.Ext(srcName)), ext)
}

func (o *Options) save(img image.Image, srcName string) (err error) {
	destName := o.destName(srcName)

	outFile, err := os.CreateTemp(o.Dest, destName+".*")
	if err != nil {
		return fmt.Errorf("could not create temporary destination %q: %w", destName, err)
	}
	canRename := false
	defer func() {
		if defErr := outFile.Close(); defErr != nil && err == nil {
			err = fmt.Errorf("could not close temporary destination %q: %w", destName, defErr)
		}

		if canRename && err == nil {
			if defErr := os.Rename(outFile.Name(), filepath.Join(o.Dest, destName)); defErr != nil {
				err = fmt.Errorf("could not rename destination file %q: %w", destName, defErr)
			}
		}
		if err != nil {
			_ = os.Remove(outFile.Name())
		}
	}()

	if err = o.encode(outFile, img); err != nil {
		return fmt.Errorf("could not encode %s destination %q: %w", strings.ToUpper(o.Format), destName, err)
	}

	if err = outFile.Sync(); err != nil {
		return fmt.Errorf("could not flush temporary destination %q: %w", destName, err)
	}

	canRename = true
	return nil
}

func (o *Options) encode(f *os.File, img image.Image) error {
	switch o.Format {
	case "png":
		enc := png.Encoder{
			CompressionLevel: png.BestCompression,
			BufferPool:       pngPool,
		}
		return enc.Encode(f, img)
	case "jpeg":
		return jpeg.Encode(f, img, &jpeg.Options{Quality: o.Quality})
	case "gif":
		return gif.Encode(f, img, nil)
	case "bmp":
		return bmp.Encode(f, img)
	case "tiff":
		return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	case "tga":
		return tga.Encode(f, img, &tga.Options{RLE: o.RLE, Alpha: o.Alpha})
	default:
		return fmt.Errorf("unsupported output format: %s", o.Format)
	}
}

type pngEncoderBufferPool struct {
	pool sync.Pool
}

func (p *pngEncoderBufferPool) Get() *png.EncoderBuffer {
	return p.pool.Get().(*png.EncoderBuffer)
}

func (p *pngEncoderBufferPool) Put(buf *png.EncoderBuffer) {
	p.pool.Put(buf)
}

var pngPool = &pngEncoderBufferPool{
	pool: sync.Pool{
		New: func() any {
			return &png.EncoderBuffer{}
		},
	},
}
