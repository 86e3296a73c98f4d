package grid

// Image is a dense two-dimensional indexed image. Pixel values are raw
// color indices; the coordinate origin is the top-left corner.
type Image struct {
	width  int
	height int
	pixels []uint8
}

// NewImage returns a width by height image with every pixel set to zero.
func NewImage(width, height int) *Image {
	return &Image{
		width:  width,
		height: height,
		pixels: make([]uint8, width*height),
	}
}

func (m *Image) index(x, y int) int {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		panic("grid: pixel coordinates out of range")
	}
	return y*m.width + x
}

// Width returns the image width in pixels.
func (m *Image) Width() int {
	return m.width
}

// Height returns the image height in pixels.
func (m *Image) Height() int {
	return m.height
}

// At returns the color index at (x, y).
func (m *Image) At(x, y int) uint8 {
	return m.pixels[m.index(x, y)]
}

// Set stores color index c at (x, y).
func (m *Image) Set(x, y int, c uint8) {
	m.pixels[m.index(x, y)] = c
}

// Fill sets every pixel to c.
func (m *Image) Fill(c uint8) {
	for i := range m.pixels {
		m.pixels[i] = c
	}
}

// Clone returns an independent copy of the image.
func (m *Image) Clone() *Image {
	c := NewImage(m.width, m.height)
	copy(c.pixels, m.pixels)
	return c
}

// Empty reports whether every pixel equals the background color.
func (m *Image) Empty(background uint8) bool {
	for _, c := range m.pixels {
		if c != background {
			return false
		}
	}
	return true
}

// EmptyRow reports whether every pixel in row y equals the background color.
func (m *Image) EmptyRow(y int, background uint8) bool {
	row := m.pixels[y*m.width : (y+1)*m.width]
	for _, c := range row {
		if c != background {
			return false
		}
	}
	return true
}
