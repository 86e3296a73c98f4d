/*
Package nespal provides the 64-color NES master palette.

Color indices everywhere in this project refer to entries of this palette.
The RGB values are the commonly used 2C02 measurements; entries 0x0D..0x0F
and the mirrors at the end of each row render as black.
*/
package nespal

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// NumColors is the number of master palette entries.
const NumColors = 64

// Black is the canonical black entry.
const Black = 0x0f

var master = [NumColors][3]uint8{
	{84, 84, 84}, {0, 30, 116}, {8, 16, 144}, {48, 0, 136},
	{68, 0, 100}, {92, 0, 48}, {84, 4, 0}, {60, 24, 0},
	{32, 42, 0}, {8, 58, 0}, {0, 64, 0}, {0, 60, 0},
	{0, 50, 60}, {0, 0, 0}, {0, 0, 0}, {0, 0, 0},

	{152, 150, 152}, {8, 76, 196}, {48, 50, 236}, {92, 30, 228},
	{136, 20, 176}, {160, 20, 100}, {152, 34, 32}, {120, 60, 0},
	{84, 90, 0}, {40, 114, 0}, {8, 124, 0}, {0, 118, 40},
	{0, 102, 120}, {0, 0, 0}, {0, 0, 0}, {0, 0, 0},

	{236, 238, 236}, {76, 154, 236}, {120, 124, 236}, {176, 98, 236},
	{228, 84, 236}, {236, 88, 180}, {236, 106, 100}, {212, 136, 32},
	{160, 170, 0}, {116, 196, 0}, {76, 208, 32}, {56, 204, 108},
	{56, 180, 204}, {60, 60, 60}, {0, 0, 0}, {0, 0, 0},

	{236, 238, 236}, {168, 204, 236}, {188, 188, 236}, {212, 178, 236},
	{236, 174, 236}, {236, 174, 212}, {236, 180, 176}, {228, 196, 144},
	{204, 210, 120}, {180, 222, 120}, {168, 226, 144}, {152, 226, 180},
	{160, 214, 228}, {160, 162, 160}, {0, 0, 0}, {0, 0, 0},
}

var perceptual = func() [NumColors]colorful.Color {
	var p [NumColors]colorful.Color
	for i := range master {
		p[i], _ = colorful.MakeColor(RGBA(uint8(i)))
	}
	return p
}()

// RGBA returns the RGB value of master palette entry i. Indices wrap at
// NumColors like the hardware address space.
func RGBA(i uint8) color.RGBA {
	c := master[i&0x3f]
	return color.RGBA{c[0], c[1], c[2], 0xff}
}

// Palette returns the master palette as a color.Palette.
func Palette() color.Palette {
	p := make(color.Palette, NumColors)
	for i := range p {
		p[i] = RGBA(uint8(i))
	}
	return p
}

// Nearest returns the master palette entry closest to c by CIE Lab
// distance. Fully transparent colors map to Black.
func Nearest(c color.Color) uint8 {
	target, ok := colorful.MakeColor(c)
	if !ok {
		return Black
	}
	best := uint8(0)
	bestDistance := target.DistanceLab(perceptual[0])
	for i := 1; i < NumColors; i++ {
		if d := target.DistanceLab(perceptual[i]); d < bestDistance {
			best = uint8(i)
			bestDistance = d
		}
	}
	return best
}
