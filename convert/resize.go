package convert

import (
	"image"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
)

// resize scales img to fit inside width x height. A zero dimension follows
// the source aspect ratio. With crop set the image covers the whole target
// and the overflow is cut evenly from both sides.
func resize(logger *slog.Logger, img image.Image, width, height int, crop bool) image.Image {
	src := img.Bounds()
	srcW, srcH := float64(src.Dx()), float64(src.Dy())
	srcAR := srcW / srcH

	switch {
	case width == 0 && height == 0:
		return img
	case width == 0:
		width = max(1, int(math.Round(float64(height)*srcAR)))
	case height == 0:
		height = max(1, int(math.Round(float64(width)/srcAR)))
	}

	destW, destH := float64(width), float64(height)
	destAR := destW / destH

	if crop {
		if srcAR < destAR {
			dh := int(math.Round((srcH - srcW/destAR) / 2))
			src.Min.Y += dh
			src.Max.Y -= dh
		} else if srcAR > destAR {
			dw := int(math.Round((srcW - srcH*destAR) / 2))
			src.Min.X += dw
			src.Max.X -= dw
		}
	} else {
		if srcAR < destAR {
			width = max(1, int(math.Round(destH*srcAR)))
		} else if srcAR > destAR {
			height = max(1, int(math.Round(destW/srcAR)))
		}
	}

	if src.Dx() == width && src.Dy() == height && src.Min == img.Bounds().Min {
		return img
	}

	logger.Info("resizing", "width", width, "height", height)
	dest := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dest, dest.Bounds(), img, src, draw.Src, nil)

	return dest
}
