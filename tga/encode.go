package tga

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
)

const (
	descTopLeft  = 0x20
	maxPacketLen = 128
)

// Options control how Encode lays out the stream.
type Options struct {
	// RLE selects run-length encoded pixel data (image type 10).
	RLE bool
	// Alpha writes 32 bits per pixel instead of 24.
	Alpha bool
}

// Encode writes m as an uncompressed or run-length encoded truecolor TGA.
// Rows are written top first and the descriptor marks a top-left origin.
func Encode(w io.Writer, m image.Image, o *Options) error {
	if o == nil {
		o = &Options{}
	}

	b := m.Bounds()
	if b.Empty() || b.Dx() > math.MaxUint16 || b.Dy() > math.MaxUint16 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrUnsupported, b.Dx(), b.Dy())
	}

	h := Header{
		ImageType:    typeTrueColor,
		Width:        uint16(b.Dx()),
		Height:       uint16(b.Dy()),
		BitsPerPixel: 24,
		Descriptor:   descTopLeft,
	}
	if o.RLE {
		h.ImageType = typeTrueColorRLE
	}
	if o.Alpha {
		h.BitsPerPixel = 32
		h.Descriptor |= 8
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(h.bytes()); err != nil {
		return fmt.Errorf("tga: could not write header: %w", err)
	}

	row := make([]uint32, b.Dx())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			row[x-b.Min.X] = pixelAt(m, x, y)
		}

		var err error
		if o.RLE {
			err = writeRLERow(bw, row, o.Alpha)
		} else {
			err = writePixels(bw, row, o.Alpha)
		}
		if err != nil {
			return fmt.Errorf("tga: could not write row %d: %w", y-b.Min.Y, err)
		}
	}

	return bw.Flush()
}

func pixelAt(m image.Image, x, y int) uint32 {
	if t, ok := m.(*Image); ok {
		return t.ARGB(x, y)
	}
	return pack(color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA))
}

func (h Header) bytes() []byte {
	return []byte{
		h.IDLength,
		h.ColorMapType,
		h.ImageType,
		byte(h.ColorMapOrigin), byte(h.ColorMapOrigin >> 8),
		byte(h.ColorMapLength), byte(h.ColorMapLength >> 8),
		h.ColorMapDepth,
		byte(h.OriginX), byte(h.OriginX >> 8),
		byte(h.OriginY), byte(h.OriginY >> 8),
		byte(h.Width), byte(h.Width >> 8),
		byte(h.Height), byte(h.Height >> 8),
		h.BitsPerPixel,
		h.Descriptor,
	}
}

func appendPixel(buf []byte, p uint32, alpha bool) []byte {
	buf = append(buf, byte(p), byte(p>>8), byte(p>>16))
	if alpha {
		buf = append(buf, byte(p>>24))
	}
	return buf
}

func writePixels(w io.Writer, pix []uint32, alpha bool) error {
	buf := make([]byte, 0, len(pix)*4)
	for _, p := range pix {
		buf = appendPixel(buf, p, alpha)
	}
	_, err := w.Write(buf)
	return err
}

// writeRLERow emits repeat packets for runs of two or more equal pixels and
// raw packets for everything in between. Packets never span rows.
func writeRLERow(w io.Writer, row []uint32, alpha bool) error {
	buf := make([]byte, 0, len(row)*5)
	for i := 0; i < len(row); {
		run := 1
		for i+run < len(row) && run < maxPacketLen && row[i+run] == row[i] {
			run++
		}

		if run > 1 {
			buf = append(buf, 0x80|byte(run-1))
			buf = appendPixel(buf, row[i], alpha)
			i += run
			continue
		}

		start := i
		for i < len(row) && i-start < maxPacketLen {
			if i+1 < len(row) && row[i+1] == row[i] {
				break
			}
			i++
		}
		buf = append(buf, byte(i-start-1))
		for _, p := range row[start:i] {
			buf = appendPixel(buf, p, alpha)
		}
	}

	_, err := w.Write(buf)
	return err
}
