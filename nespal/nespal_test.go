package nespal

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRGBA(t *testing.T) {
	assert.Equal(t, color.RGBA{84, 84, 84, 0xff}, RGBA(0x00))
	assert.Equal(t, color.RGBA{0, 0, 0, 0xff}, RGBA(0x0f))
	assert.Equal(t, color.RGBA{236, 238, 236, 0xff}, RGBA(0x20))
	assert.Equal(t, color.RGBA{160, 162, 160, 0xff}, RGBA(0x3d))
	// Indices wrap like the hardware address space.
	assert.Equal(t, RGBA(0x02), RGBA(0x42))
}

func TestPalette(t *testing.T) {
	p := Palette()
	assert.Len(t, p, NumColors)
	assert.Equal(t, RGBA(0x16), p[0x16])
}

func TestNearest(t *testing.T) {
	tests := []struct {
		name string
		c    color.Color
		want uint8
	}{
		{"exact white", color.RGBA{236, 238, 236, 0xff}, 0x20},
		{"exact mid gray", color.RGBA{152, 150, 152, 0xff}, 0x10},
		{"near red", color.RGBA{240, 110, 105, 0xff}, 0x26},
		{"transparent", color.RGBA{0, 0, 0, 0}, Black},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Nearest(tt.c))
		})
	}
}

func TestNearestRoundTrip(t *testing.T) {
	// Every palette entry with a unique RGB value maps back to itself
	// or to a duplicate entry with identical RGB.
	for i := 0; i < NumColors; i++ {
		got := Nearest(RGBA(uint8(i)))
		assert.Equal(t, RGBA(uint8(i)), RGBA(got), "entry %#02x", i)
	}
}
