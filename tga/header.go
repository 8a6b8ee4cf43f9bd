package tga

import (
	"errors"
	"fmt"
)

const (
	HeaderSize = 18

	typeTrueColor    = 2
	typeTrueColorRLE = 10
)

var (
	// ErrInvalidHeader is returned for every stream the decoder refuses.
	ErrInvalidHeader = errors.New("tga: invalid header")
	// ErrUnsupported is returned when an image cannot be encoded.
	ErrUnsupported = errors.New("tga: unsupported image")
)

type Header struct {
	IDLength       uint8
	ColorMapType   uint8
	ImageType      uint8
	ColorMapOrigin uint16
	ColorMapLength uint16
	ColorMapDepth  uint8
	OriginX        uint16
	OriginY        uint16
	Width          uint16
	Height         uint16
	BitsPerPixel   uint8
	Descriptor     uint8
}

// RLE reports whether the pixel data is run-length encoded.
func (h Header) RLE() bool {
	return h.ImageType == typeTrueColorRLE
}

// Alpha reports whether each pixel carries an alpha byte.
func (h Header) Alpha() bool {
	return h.BitsPerPixel == 32
}

// ReadHeader parses and validates the fixed 18-byte header at the start of data.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrInvalidHeader, len(data))
	}

	c := &cursor{data: data}
	return readHeader(c)
}

func readHeader(c *cursor) (Header, error) {
	h := Header{
		IDLength:       c.u8(),
		ColorMapType:   c.u8(),
		ImageType:      c.u8(),
		ColorMapOrigin: c.u16(),
		ColorMapLength: c.u16(),
		ColorMapDepth:  c.u8(),
		OriginX:        c.u16(),
		OriginY:        c.u16(),
		Width:          c.u16(),
		Height:         c.u16(),
		BitsPerPixel:   c.u8(),
		Descriptor:     c.u8(),
	}

	switch {
	case h.ColorMapType != 0:
		return h, fmt.Errorf("%w: unsupported color map type %d", ErrInvalidHeader, h.ColorMapType)
	case h.ImageType != typeTrueColor && h.ImageType != typeTrueColorRLE:
		return h, fmt.Errorf("%w: unsupported image type %d", ErrInvalidHeader, h.ImageType)
	case h.BitsPerPixel != 24 && h.BitsPerPixel != 32:
		return h, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidHeader, h.BitsPerPixel)
	case h.Width == 0 || h.Height == 0:
		return h, fmt.Errorf("%w: invalid image dimensions %dx%d", ErrInvalidHeader, h.Width, h.Height)
	}

	return h, nil
}
