package chr

import (
	"fmt"
	"io"

	overlaypal "github.com/jroweboy/OverlayPal"
	"github.com/jroweboy/OverlayPal/grid"
)

const maxObjects = 64

// OAMEntry is one four-byte object attribute entry in hardware order.
// Attributes holds the sprite pool palette number in its low two bits.
type OAMEntry struct {
	Y          uint8
	Tile       uint8
	Attributes uint8
	X          uint8
}

// Sprites encodes a sprite cover into pattern table tiles and object
// attribute entries. Pixel data is read from the remapped overlay image at
// each sprite's window, not from the sprite itself, because horizontal
// merging repositions sprites over content their own extraction never saw.
// spriteHeight selects one tile per sprite or two stacked tiles; in the
// stacked mode pairs stay adjacent so the tile index of a sprite is always
// even, as the hardware requires.
func Sprites(overlay *grid.Image, sprites []overlaypal.Sprite, spriteHeight int) ([]Tile, []OAMEntry, error) {
	if spriteHeight != TileSize && spriteHeight != 2*TileSize {
		return nil, nil, fmt.Errorf("chr: sprite height %d not 8 or 16", spriteHeight)
	}
	if len(sprites) > maxObjects {
		return nil, nil, fmt.Errorf("chr: %d sprites exceed the %d object slots", len(sprites), maxObjects)
	}

	set := newTileSet()
	pairs := make(map[[2]Tile]int)
	entries := make([]OAMEntry, 0, len(sprites))
	for _, s := range sprites {
		if s.X < 0 || s.X > 255 || s.Y < 0 || s.Y > 255 {
			return nil, nil, fmt.Errorf("chr: sprite at %d,%d outside the object coordinate range", s.X, s.Y)
		}
		if s.Palette < overlaypal.NumBackgroundPalettes ||
			s.Palette >= overlaypal.NumBackgroundPalettes+overlaypal.NumSpritePalettes {
			return nil, nil, fmt.Errorf("chr: sprite palette %d outside the sprite pool", s.Palette)
		}

		var index int
		if spriteHeight == TileSize {
			i, err := set.add(spriteTile(overlay, s.X, s.Y, s.Palette))
			if err != nil {
				return nil, nil, err
			}
			index = i
		} else {
			pair := [2]Tile{
				spriteTile(overlay, s.X, s.Y, s.Palette),
				spriteTile(overlay, s.X, s.Y+TileSize, s.Palette),
			}
			i, ok := pairs[pair]
			if !ok {
				var err error
				if i, err = set.addPair(pair); err != nil {
					return nil, nil, err
				}
				pairs[pair] = i
			}
			index = i
		}

		entries = append(entries, OAMEntry{
			Y:          uint8(s.Y),
			Tile:       uint8(index),
			Attributes: s.Palette - overlaypal.NumBackgroundPalettes,
			X:          uint8(s.X),
		})
	}
	return set.tiles, entries, nil
}

// spriteTile cuts one tile out of the remapped overlay. Only pixels mapped
// through the sprite's own palette contribute; anything else in the window
// belongs to another sprite and stays transparent here.
func spriteTile(overlay *grid.Image, x, y int, palette uint8) Tile {
	var t Tile
	for i := 0; i < TileSize; i++ {
		for j := 0; j < TileSize; j++ {
			if x+j >= overlay.Width() || y+i >= overlay.Height() {
				continue
			}
			if v := overlay.At(x+j, y+i); v>>2 == palette {
				t[i*TileSize+j] = v & 3
			}
		}
	}
	return t
}

// WriteOAM writes entries to w, four bytes per sprite.
func WriteOAM(w io.Writer, entries []OAMEntry) error {
	for _, e := range entries {
		if _, err := w.Write([]byte{e.Y, e.Tile, e.Attributes, e.X}); err != nil {
			return err
		}
	}
	return nil
}
