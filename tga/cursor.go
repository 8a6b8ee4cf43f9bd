package tga

// cursor walks a byte slice. Reads past the end yield zero instead of
// panicking, so a truncated stream decodes into zero-filled pixels.
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) u8() uint8 {
	if c.pos >= len(c.data) {
		return 0
	}
	b := c.data[c.pos]
	c.pos++
	return b
}

func (c *cursor) u16() uint16 {
	lo := c.u8()
	return uint16(lo) | uint16(c.u8())<<8
}

// pixel reads one B, G, R[, A] sample and packs it as ARGB.
func (c *cursor) pixel(alpha bool) uint32 {
	b := c.u8()
	g := c.u8()
	r := c.u8()
	a := uint8(0xFF)
	if alpha {
		a = c.u8()
	}
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}
