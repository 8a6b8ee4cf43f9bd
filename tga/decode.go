package tga

import (
	"fmt"
	"image"
	"io"
)

func init() {
	image.RegisterFormat("tga", "?\x00\x02", DecodeImage, DecodeConfig)
	image.RegisterFormat("tga", "?\x00\x0a", DecodeImage, DecodeConfig)
}

// Decode parses a raw or run-length encoded truecolor stream.
func Decode(data []byte) (*Image, error) {
	m := &Image{}
	if err := m.Load(data); err != nil {
		return nil, err
	}
	return m, nil
}

// Load decodes data into m, reusing its pixel buffer. m is reset before
// anything is read, so on error it is left empty.
func (m *Image) Load(data []byte) error {
	m.reset()

	h, err := ReadHeader(data)
	if err != nil {
		return err
	}

	// The image ID field is not skipped: pixel data always starts right
	// after the fixed header.
	c := &cursor{data: data, pos: HeaderSize}

	total := int(h.Width) * int(h.Height)
	if cap(m.Pixels) < total {
		m.Pixels = make([]uint32, total)
	} else {
		m.Pixels = m.Pixels[:total]
	}

	if h.RLE() {
		decodeRLE(c, m.Pixels, h.Alpha())
	} else {
		decodeRaw(c, m.Pixels, h.Alpha())
	}

	m.Width = h.Width
	m.Height = h.Height
	return nil
}

func decodeRaw(c *cursor, pix []uint32, alpha bool) {
	for i := range pix {
		pix[i] = c.pixel(alpha)
	}
}

// decodeRLE fills pix from packets of a control byte (high bit: repeat,
// low 7 bits: count-1) followed by one or count pixels. A packet that runs
// past the end of pix is cut short and its remaining bytes are not read.
func decodeRLE(c *cursor, pix []uint32, alpha bool) {
	i := 0
	for i < len(pix) {
		ctrl := c.u8()
		n := min(int(ctrl&0x7F)+1, len(pix)-i)

		if ctrl&0x80 != 0 {
			p := c.pixel(alpha)
			for range n {
				pix[i] = p
				i++
			}
			continue
		}

		for range n {
			pix[i] = c.pixel(alpha)
			i++
		}
	}
}

// DecodeImage reads a whole TGA stream from r. It is the decoder registered
// with the image package.
func DecodeImage(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tga: could not read stream: %w", err)
	}

	m, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeConfig reads only the header from r.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var buf [HeaderSize]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return image.Config{}, fmt.Errorf("%w: empty stream", ErrInvalidHeader)
		}
		return image.Config{}, fmt.Errorf("tga: could not read header: %w", err)
	}

	h, err := ReadHeader(buf[:n])
	if err != nil {
		return image.Config{}, err
	}

	return image.Config{
		ColorModel: (&Image{}).ColorModel(),
		Width:      int(h.Width),
		Height:     int(h.Height),
	}, nil
}
