/*
Package grid implements the primitive containers for indexed images that are
decomposed over a fixed cell grid.

An Image is a dense 2D array of 8-bit color indices. A Layer partitions an
image into equally sized cells and records, per cell, the set of distinct
non-background colors together with the number of cell columns in which each
color occurs. Layers are the sole input to the palette optimisation passes;
images are their pixel-exact counterpart.
*/
package grid

// Array2D is a fixed-size two-dimensional array with row-major storage.
// Out of range coordinates panic.
type Array2D[T any] struct {
	width  int
	height int
	cells  []T
}

// NewArray2D returns a zero-valued width by height array.
func NewArray2D[T any](width, height int) *Array2D[T] {
	return &Array2D[T]{
		width:  width,
		height: height,
		cells:  make([]T, width*height),
	}
}

func (a *Array2D[T]) index(x, y int) int {
	if x < 0 || x >= a.width || y < 0 || y >= a.height {
		panic("grid: coordinates out of range")
	}
	return y*a.width + x
}

// Width returns the horizontal dimension.
func (a *Array2D[T]) Width() int {
	return a.width
}

// Height returns the vertical dimension.
func (a *Array2D[T]) Height() int {
	return a.height
}

// At returns the value at (x, y).
func (a *Array2D[T]) At(x, y int) T {
	return a.cells[a.index(x, y)]
}

// Set stores v at (x, y).
func (a *Array2D[T]) Set(x, y int, v T) {
	a.cells[a.index(x, y)] = v
}

// Fill sets every element to v.
func (a *Array2D[T]) Fill(v T) {
	for i := range a.cells {
		a.cells[i] = v
	}
}

// Clone returns an independent shallow copy of the array.
func (a *Array2D[T]) Clone() *Array2D[T] {
	c := NewArray2D[T](a.width, a.height)
	copy(c.cells, a.cells)
	return c
}

// ptr exposes addressable elements to the other containers in this package.
func (a *Array2D[T]) ptr(x, y int) *T {
	return &a.cells[a.index(x, y)]
}
