package grid

// Cell holds the distinct non-background colors found inside one grid cell.
// Cells built by scanning an image additionally record, per color, the
// number of cell columns containing that color; cells built from a solver
// solution carry colors only.
type Cell struct {
	Colors  ColorSet
	columns map[uint8]int
}

// ColumnCount returns the number of cell columns in which color c occurs,
// or zero when the cell was not built by an image scan.
func (c *Cell) ColumnCount(color uint8) int {
	if c.columns == nil {
		return 0
	}
	return c.columns[color]
}

// Empty reports whether the cell contains no colors.
func (c *Cell) Empty() bool {
	return c.Colors.Len() == 0
}

// Layer partitions an image into cellWidth by cellHeight cells and records
// the color usage of each cell. Layer dimensions are measured in cells.
type Layer struct {
	background uint8
	cellWidth  int
	cellHeight int
	cells      *Array2D[Cell]
}

// NewLayer returns a layer of empty cells.
func NewLayer(background uint8, cellWidth, cellHeight, width, height int) *Layer {
	return &Layer{
		background: background,
		cellWidth:  cellWidth,
		cellHeight: cellHeight,
		cells:      NewArray2D[Cell](width, height),
	}
}

// NewLayerFromImage scans image and returns the layer describing it. The
// image dimensions must be exact multiples of the cell dimensions.
func NewLayerFromImage(background uint8, cellWidth, cellHeight int, image *Image) *Layer {
	l := NewLayer(background, cellWidth, cellHeight,
		image.Width()/cellWidth, image.Height()/cellHeight)
	for y := 0; y < l.Height(); y++ {
		for x := 0; x < l.Width(); x++ {
			cell := l.At(x, y)
			for i := 0; i < cellWidth; i++ {
				var column ColorSet
				for j := 0; j < cellHeight; j++ {
					c := image.At(x*cellWidth+i, y*cellHeight+j)
					if c != background {
						cell.Colors.Insert(c)
						column.Insert(c)
					}
				}
				for _, c := range column.Colors() {
					if cell.columns == nil {
						cell.columns = make(map[uint8]int)
					}
					cell.columns[c]++
				}
			}
		}
	}
	return l
}

// Width returns the layer width in cells.
func (l *Layer) Width() int {
	return l.cells.Width()
}

// Height returns the layer height in cells.
func (l *Layer) Height() int {
	return l.cells.Height()
}

// CellWidth returns the cell width in pixels.
func (l *Layer) CellWidth() int {
	return l.cellWidth
}

// CellHeight returns the cell height in pixels.
func (l *Layer) CellHeight() int {
	return l.cellHeight
}

// BackgroundColor returns the background color the layer was built against.
func (l *Layer) BackgroundColor() uint8 {
	return l.background
}

// At returns the cell at (x, y). The cell is addressable and may be
// modified in place.
func (l *Layer) At(x, y int) *Cell {
	return l.cells.ptr(x, y)
}

// Colors returns the ascending union of all cell colors.
func (l *Layer) Colors() ColorSet {
	var u ColorSet
	for y := 0; y < l.Height(); y++ {
		for x := 0; x < l.Width(); x++ {
			for _, c := range l.At(x, y).Colors.Colors() {
				u.Insert(c)
			}
		}
	}
	return u
}

// Clone returns an independent copy of the layer.
func (l *Layer) Clone() *Layer {
	c := NewLayer(l.background, l.cellWidth, l.cellHeight, l.Width(), l.Height())
	for y := 0; y < l.Height(); y++ {
		for x := 0; x < l.Width(); x++ {
			src := l.At(x, y)
			dst := c.At(x, y)
			dst.Colors = src.Colors.Clone()
			if src.columns != nil {
				dst.columns = make(map[uint8]int, len(src.columns))
				for k, v := range src.columns {
					dst.columns[k] = v
				}
			}
		}
	}
	return c
}
