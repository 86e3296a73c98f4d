package imgio

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/jroweboy/OverlayPal/grid"
	"github.com/jroweboy/OverlayPal/nespal"
)

// RenderIndexed draws an image of raw master palette indices as RGBA.
func RenderIndexed(m *grid.Image) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, m.Width(), m.Height()))
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			out.SetRGBA(x, y, nespal.RGBA(m.At(x, y)))
		}
	}
	return out
}

// RenderRemapped draws a remapped output image as RGBA. Each pixel value
// encodes a palette in its upper bits and a 1-based color rank in its lower
// two bits; rank 0 is the shared background slot, drawn as the background
// color or fully transparent.
func RenderRemapped(m *grid.Image, palettes []grid.ColorSet, background uint8, transparent bool) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, m.Width(), m.Height()))
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			v := m.At(x, y)
			if v&3 == 0 {
				if !transparent {
					out.SetRGBA(x, y, nespal.RGBA(background))
				}
				continue
			}
			out.SetRGBA(x, y, nespal.RGBA(palettes[v>>2].Colors()[v&3-1]))
		}
	}
	return out
}

// WritePal writes the console palette file: four bytes per palette, the
// shared background index followed by the palette colors ascending, padded
// with the background index. Eight palettes make the usual 32-byte file.
func WritePal(w io.Writer, palettes []grid.ColorSet, background uint8) error {
	for _, p := range palettes {
		colors := p.Colors()
		if len(colors) > 3 {
			return fmt.Errorf("imgio: palette with %d colors does not fit four hardware slots", len(colors))
		}
		entry := [4]uint8{background, background, background, background}
		copy(entry[1:], colors)
		if _, err := w.Write(entry[:]); err != nil {
			return err
		}
	}
	return nil
}

// EncodePNG writes m to w in PNG format.
func EncodePNG(w io.Writer, m image.Image) error {
	return png.Encode(w, m)
}
