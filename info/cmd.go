package info

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tgakit/convert"
	"tgakit/resource"
	"tgakit/tga"

	"github.com/alecthomas/kong"
)

type CLICmd struct {
	Scan      string `help:"Source folder to scan" default:"."`
	Cache     int    `help:"Number of decoded assets kept in memory" default:"16"`
	MaxPixels int    `help:"Refuse textures with more pixels than this" default:"67108864"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	scanDir, err := convert.ScanDir(c.Scan)
	if err != nil {
		return err
	}
	c.Scan = scanDir
	return nil
}

func (c *CLICmd) Run() error {
	loader, err := resource.NewLoader(os.DirFS(c.Scan), c.Cache, slog.Default())
	if err != nil {
		return err
	}
	loader.SetMaxPixels(c.MaxPixels)

	files, err := os.ReadDir(c.Scan)
	if err != nil {
		return fmt.Errorf("unable to read folder %q: %w", c.Scan, err)
	}

	var textureCount, meshCount, otherCount, errCount int
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		name := file.Name()
		logger := slog.Default().With("file", filepath.Join(c.Scan, name))

		switch ext := strings.ToLower(filepath.Ext(name)); {
		case ext == ".tga":
			err = describeTexture(logger, loader, c.Scan, name)
			textureCount++
		case ext == ".obj":
			err = describeMesh(logger, loader, name)
			meshCount++
		case convert.Supported(name):
			err = describePicture(logger, filepath.Join(c.Scan, name))
			otherCount++
		default:
			continue
		}

		if err != nil {
			errCount++
			logger.Error("could not read asset", "error", err)
		}
	}

	stats := loader.Stats()
	slog.Info("stats", "textures", textureCount, "meshes", meshCount, "pictures", otherCount,
		"errors", errCount, "cache_misses", stats.Misses)

	if errCount > 0 {
		return fmt.Errorf("error processing %d files", errCount)
	}
	return nil
}

func describeTexture(logger *slog.Logger, loader *resource.Loader, dir, name string) error {
	hdr, err := readHeader(logger, filepath.Join(dir, name))
	if err != nil {
		return err
	}

	img, err := loader.Texture(name)
	if err != nil {
		return err
	}

	translucent := 0
	for _, p := range img.Pixels {
		if p>>24 != 0xFF {
			translucent++
		}
	}

	logger.Info("texture", "width", img.Width, "height", img.Height, "bpp", hdr.BitsPerPixel, "rle", hdr.RLE(),
		"orientation", orientation(int(img.Width), int(img.Height)), "translucent", translucent)
	return nil
}

func describeMesh(logger *slog.Logger, loader *resource.Loader, name string) error {
	m, err := loader.Mesh(name)
	if err != nil {
		return err
	}

	logger.Info("mesh", "vertices", m.VertexCount(), "triangles", m.TriangleCount())
	return nil
}

func describePicture(logger *slog.Logger, path string) error {
	img, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open image: %w", err)
	}
	defer func() {
		if closeErr := img.Close(); closeErr != nil {
			logger.Error("could not close image", "error", closeErr)
		}
	}()

	conf, format, err := image.DecodeConfig(img)
	if err != nil {
		return fmt.Errorf("could not read image: %w", err)
	}

	logger.Info("picture", "format", format, "width", conf.Width, "height", conf.Height,
		"orientation", orientation(conf.Width, conf.Height))
	return nil
}

func orientation(width, height int) string {
	if height > width {
		return "portrait"
	}
	return "landscape"
}

func readHeader(logger *slog.Logger, path string) (tga.Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return tga.Header{}, fmt.Errorf("could not open texture: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logger.Error("could not close texture", "error", closeErr)
		}
	}()

	buf := make([]byte, tga.HeaderSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return tga.Header{}, fmt.Errorf("could not read texture header: %w", err)
	}
	return tga.ReadHeader(buf[:n])
}
