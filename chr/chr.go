/*
Package chr encodes conversion results into console pattern table data.

A pattern table tile is 8 by 8 pixels of 2-bit values, stored planar: 8
bytes holding bit 0 of each row followed by 8 bytes holding bit 1, most
significant bit leftmost. A full-screen background additionally carries a
960-byte nametable of tile indices and a 64-byte attribute table packing
one 2-bit palette number per 16x16 pixel cell, four cells per byte.
Sprites become one tile (8x8 mode) or two vertically stacked tiles (8x16
mode) plus a four-byte object attribute entry.
*/
package chr

import (
	"errors"
	"io"
)

const (
	// TileSize is the tile edge length in pixels.
	TileSize = 8

	// MaxTiles is the pattern table capacity.
	MaxTiles = 256

	screenWidth  = 256
	screenHeight = 240
	cellSize     = 16

	nameTableSize     = (screenWidth / TileSize) * (screenHeight / TileSize)
	attributeGridSize = 8
	attributeSize     = attributeGridSize * attributeGridSize
)

var errTooManyTiles = errors.New("chr: pattern table overflow, more than 256 unique tiles")

// Tile holds 8x8 pixels of 2-bit color values in row-major order. The zero
// value is a blank tile.
type Tile [TileSize * TileSize]uint8

// CHR returns the planar encoding of the tile: 8 bytes of each row's low
// bits followed by 8 bytes of high bits, leftmost pixel in the most
// significant bit.
func (t Tile) CHR() [16]byte {
	var b [16]byte
	for y := 0; y < TileSize; y++ {
		var lo, hi byte
		for _, v := range t[y*TileSize : (y+1)*TileSize] {
			lo = lo<<1 | v&1
			hi = hi<<1 | v>>1&1
		}
		b[y] = lo
		b[TileSize+y] = hi
	}
	return b
}

// WriteCHR writes tiles to w in pattern table order, 16 bytes per tile.
func WriteCHR(w io.Writer, tiles []Tile) error {
	for _, t := range tiles {
		b := t.CHR()
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

// tileSet deduplicates tiles while preserving first-seen order.
type tileSet struct {
	tiles   []Tile
	indices map[Tile]int
}

func newTileSet() *tileSet {
	return &tileSet{indices: make(map[Tile]int)}
}

// add returns the pattern table index of t, appending it when new.
func (s *tileSet) add(t Tile) (int, error) {
	if i, ok := s.indices[t]; ok {
		return i, nil
	}
	if len(s.tiles) >= MaxTiles {
		return 0, errTooManyTiles
	}
	s.indices[t] = len(s.tiles)
	s.tiles = append(s.tiles, t)
	return s.indices[t], nil
}

// addPair appends both halves of an 8x16 pair, keeping the top tile at an
// even index. Pairs are never split through the single-tile index: a tile
// shared between two different pairs is stored once per pair.
func (s *tileSet) addPair(p [2]Tile) (int, error) {
	if len(s.tiles)+2 > MaxTiles {
		return 0, errTooManyTiles
	}
	i := len(s.tiles)
	s.tiles = append(s.tiles, p[0], p[1])
	return i, nil
}
