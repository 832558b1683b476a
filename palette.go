package mcg

import (
	"fmt"
	"image"
	"image/color"
)

// PaletteSize is the byte length of a 256-color RGB palette.
const PaletteSize = 256 * 3

// Palette holds 256 RGB triplets at full 8-bit depth.
type Palette [256][3]byte

// ParsePalette reads a 768-byte palette, scaling 6-bit VGA components up to
// 8 bits when every component fits in 0..63.
func ParsePalette(data []byte) (*Palette, error) {
	if len(data) < PaletteSize {
		return nil, fmt.Errorf("%w: palette needs %d bytes, have %d", ErrCorruptArchive, PaletteSize, len(data))
	}

	is6bit := true
	for _, v := range data[:PaletteSize] {
		if v > 63 {
			is6bit = false
			break
		}
	}

	var p Palette
	for i := 0; i < 256; i++ {
		for c := 0; c < 3; c++ {
			v := data[i*3+c]
			if is6bit {
				// Spread the 6-bit range over 8 bits so 63 maps to 255.
				v = v<<2 | v>>4
			}
			p[i][c] = v
		}
	}
	return &p, nil
}

// Apply renders a decoded shape through the palette into an RGBA image.
// Pixels holding transparent (normally index 0) get zero alpha.
func (p *Palette) Apply(s *Shape, transparent int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			idx := s.Pixels[y*s.Width+x]
			if int(idx) == transparent {
				continue // zero value is already fully transparent
			}
			img.SetRGBA(x, y, color.RGBA{
				R: p[idx][0],
				G: p[idx][1],
				B: p[idx][2],
				A: 255,
			})
		}
	}
	return img
}
