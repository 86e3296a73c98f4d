package overlaypal

import "github.com/jroweboy/OverlayPal/grid"

// Pool names one of the two hardware palette pools.
type Pool int

const (
	PoolBackground Pool = iota
	PoolSprite
)

// PaletteSet holds the background and sprite palette pools. Cells reference
// palettes by a single global index space in which the sprite pool follows
// the background pool; every translation between pool-local and global
// indices goes through this type.
type PaletteSet struct {
	background []grid.ColorSet
	sprite     []grid.ColorSet
}

// Pool returns the palettes of one pool. The slice aliases the set; repair
// routines mutate entries in place.
func (s *PaletteSet) Pool(p Pool) []grid.ColorSet {
	if p == PoolSprite {
		return s.sprite
	}
	return s.background
}

// SetPool replaces the palettes of one pool.
func (s *PaletteSet) SetPool(p Pool, palettes []grid.ColorSet) {
	if p == PoolSprite {
		s.sprite = palettes
	} else {
		s.background = palettes
	}
}

// Base returns the global index of the first palette in the pool.
func (s *PaletteSet) Base(p Pool) uint8 {
	if p == PoolSprite {
		return NumBackgroundPalettes
	}
	return 0
}

// GlobalIndex translates a pool-local palette index to a global one.
func (s *PaletteSet) GlobalIndex(p Pool, local int) uint8 {
	return s.Base(p) + uint8(local)
}

// At returns the palette at a global index. Indices beyond the pools read
// as empty palettes; repairs run before the pools are padded to their
// nominal sizes and must treat missing palettes as empty.
func (s *PaletteSet) At(global uint8) grid.ColorSet {
	i := int(global)
	if i < NumBackgroundPalettes {
		if i < len(s.background) {
			return s.background[i]
		}
		return grid.ColorSet{}
	}
	i -= NumBackgroundPalettes
	if i < len(s.sprite) {
		return s.sprite[i]
	}
	return grid.ColorSet{}
}

// Fill pads a pool with empty palettes up to its nominal size.
func (s *PaletteSet) Fill(p Pool) {
	nominal := NumBackgroundPalettes
	if p == PoolSprite {
		nominal = NumSpritePalettes
	}
	pool := s.Pool(p)
	for len(pool) < nominal {
		pool = append(pool, grid.ColorSet{})
	}
	s.SetPool(p, pool)
}

// All returns the eight global palettes, background pool first. Both pools
// must already be filled to their nominal sizes.
func (s *PaletteSet) All() []grid.ColorSet {
	all := make([]grid.ColorSet, 0, NumBackgroundPalettes+NumSpritePalettes)
	all = append(all, s.background...)
	return append(all, s.sprite...)
}

// remapTables builds one lookup table per global palette, mapping a raw
// color index to its remapped value palette*PaletteGroupSize+rank, where
// rank is the 1-based position of the color in the palette sorted
// ascending. A zero entry means the color is not in that palette. The color
// alphabet is bounded, so flat arrays replace per-cell maps.
func (s *PaletteSet) remapTables() [][256]uint8 {
	all := s.All()
	tables := make([][256]uint8, len(all))
	for p, palette := range all {
		for j, c := range palette.Colors() {
			tables[p][c] = uint8(p*PaletteGroupSize + j + 1)
		}
	}
	return tables
}

// remapColors rewrites a raw-color image into remapped pixel values using
// each cell's assigned palette. Pixels whose color is absent from the
// cell's palette must be background and map to zero.
func remapColors(image *grid.Image, layer *grid.Layer, palettes *PaletteSet, paletteIndices *grid.Array2D[uint8]) *grid.Image {
	tables := palettes.remapTables()
	out := grid.NewImage(image.Width(), image.Height())
	for y := 0; y < image.Height(); y++ {
		cellY := y / layer.CellHeight()
		for x := 0; x < image.Width(); x++ {
			cellX := x / layer.CellWidth()
			p := paletteIndices.At(cellX, cellY)
			out.Set(x, y, tables[p][image.At(x, y)])
		}
	}
	return out
}
