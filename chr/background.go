package chr

import (
	"errors"
	"fmt"
	"io"

	"github.com/jroweboy/OverlayPal/grid"
)

// BackgroundTables holds the pattern table, nametable and attribute table
// of one full background screen.
type BackgroundTables struct {
	Tiles      []Tile
	NameTable  [nameTableSize]uint8
	Attributes [attributeSize]uint8
}

// Background encodes a remapped background image into tile data. The image
// must be one full 256x240 screen and paletteIndices must assign one of the
// four background palettes to each 16x16 cell; the attribute table cannot
// express any other layout. Tiles are deduplicated and the encoding fails
// when more than 256 unique tiles remain.
func Background(m *grid.Image, paletteIndices *grid.Array2D[uint8]) (*BackgroundTables, error) {
	if m.Width() != screenWidth || m.Height() != screenHeight {
		return nil, errors.New("chr: background image is not one 256x240 screen")
	}
	if paletteIndices.Width() != screenWidth/cellSize || paletteIndices.Height() != screenHeight/cellSize {
		return nil, fmt.Errorf("chr: palette grid %dx%d does not cover the screen in 16x16 cells",
			paletteIndices.Width(), paletteIndices.Height())
	}

	bt := &BackgroundTables{}
	set := newTileSet()
	for ty := 0; ty < screenHeight/TileSize; ty++ {
		for tx := 0; tx < screenWidth/TileSize; tx++ {
			var t Tile
			for y := 0; y < TileSize; y++ {
				for x := 0; x < TileSize; x++ {
					t[y*TileSize+x] = m.At(tx*TileSize+x, ty*TileSize+y) & 3
				}
			}
			i, err := set.add(t)
			if err != nil {
				return nil, err
			}
			bt.NameTable[ty*(screenWidth/TileSize)+tx] = uint8(i)
		}
	}
	bt.Tiles = set.tiles

	// One attribute byte covers a 2x2 quad of cells; the bottom attribute
	// row extends past the screen and its missing cells stay zero.
	for ay := 0; ay < attributeGridSize; ay++ {
		for ax := 0; ax < attributeGridSize; ax++ {
			var attr uint8
			for i := 0; i < 4; i++ {
				cx := 2*ax + i&1
				cy := 2*ay + i>>1
				if cx >= paletteIndices.Width() || cy >= paletteIndices.Height() {
					continue
				}
				attr |= paletteIndices.At(cx, cy) & 3 << (2 * i)
			}
			bt.Attributes[ay*attributeGridSize+ax] = attr
		}
	}
	return bt, nil
}

// WriteNam writes the nametable followed by the attribute table, the usual
// 1024-byte screen layout.
func (bt *BackgroundTables) WriteNam(w io.Writer) error {
	if _, err := w.Write(bt.NameTable[:]); err != nil {
		return err
	}
	_, err := w.Write(bt.Attributes[:])
	return err
}
