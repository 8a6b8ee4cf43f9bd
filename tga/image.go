package tga

import (
	"image"
	"image/color"
)

// Image is a decoded truecolor picture. Pixels holds Width*Height packed
// (A<<24)|(R<<16)|(G<<8)|B values, top row first in stream order.
type Image struct {
	Width  uint16
	Height uint16
	Pixels []uint32
}

var _ image.Image = (*Image)(nil)

func (m *Image) reset() {
	m.Width = 0
	m.Height = 0
	m.Pixels = m.Pixels[:0]
}

func (m *Image) ColorModel() color.Model {
	return color.NRGBAModel
}

func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(m.Width), int(m.Height))
}

// ARGB returns the packed pixel at (x, y), or 0 outside the bounds.
func (m *Image) ARGB(x, y int) uint32 {
	if !(image.Point{x, y}.In(m.Bounds())) {
		return 0
	}
	return m.Pixels[y*int(m.Width)+x]
}

func (m *Image) At(x, y int) color.Color {
	return unpack(m.ARGB(x, y))
}

func unpack(p uint32) color.NRGBA {
	return color.NRGBA{
		R: uint8(p >> 16),
		G: uint8(p >> 8),
		B: uint8(p),
		A: uint8(p >> 24),
	}
}

func pack(c color.NRGBA) uint32 {
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}
