package overlaypal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jroweboy/OverlayPal/grid"
)

func TestExtractSprite(t *testing.T) {
	m := grid.NewImage(16, 16)
	m.Set(4, 0, 1)
	m.Set(5, 1, 2)
	m.Set(6, 2, 7)

	s := extractSprite(m, 4, 0, 8, 16, grid.NewColorSet(1, 2), 0, false)

	assert.Equal(t, 4, s.X)
	assert.Equal(t, 0, s.Y)
	assert.Equal(t, []uint8{1, 2}, s.Colors.Colors())
	assert.Equal(t, uint8(1), s.Pixels.At(0, 0))
	assert.Equal(t, uint8(2), s.Pixels.At(1, 1))
	// 7 is outside the palette and is not captured.
	assert.Equal(t, uint8(0), s.Pixels.At(2, 2))
	// Without removal the source is untouched.
	assert.Equal(t, uint8(1), m.At(4, 0))
	assert.Equal(t, uint8(7), m.At(6, 2))
}

func TestExtractSpriteRemovesPixels(t *testing.T) {
	m := grid.NewImage(16, 16)
	m.Set(4, 0, 1)
	m.Set(6, 2, 7)

	s := extractSprite(m, 4, 0, 8, 16, grid.NewColorSet(1), 0, true)

	assert.Equal(t, []uint8{1}, s.Colors.Colors())
	assert.Equal(t, uint8(0), m.At(4, 0))
	// Colors outside the palette stay behind.
	assert.Equal(t, uint8(7), m.At(6, 2))
}

func TestExtractSpriteClampedWindow(t *testing.T) {
	m := grid.NewImage(16, 16)
	m.Set(15, 15, 3)

	s := extractSprite(m, 12, 8, 8, 16, grid.NewColorSet(3), 0, false)

	assert.Equal(t, []uint8{3}, s.Colors.Colors())
	assert.Equal(t, uint8(3), s.Pixels.At(3, 7))
}

func TestExtractSpriteWithBestPalette(t *testing.T) {
	o := &Optimiser{}
	o.palettes.SetPool(PoolSprite, []grid.ColorSet{
		grid.NewColorSet(1),
		grid.NewColorSet(1, 2, 3),
		grid.NewColorSet(1, 2),
	})
	m := grid.NewImage(8, 8)
	m.Set(0, 0, 1)
	m.Set(1, 0, 2)
	m.Set(2, 0, 3)

	s := o.extractSpriteWithBestPalette(m, 0, 0, 8, 8, false)

	assert.Equal(t, uint8(5), s.Palette)
	assert.Equal(t, []uint8{1, 2, 3}, s.Colors.Colors())
}

func TestExtractSpriteWithBestPaletteTie(t *testing.T) {
	o := &Optimiser{}
	o.palettes.SetPool(PoolSprite, []grid.ColorSet{
		grid.NewColorSet(1, 2),
		{},
		grid.NewColorSet(1, 2),
	})
	m := grid.NewImage(8, 8)
	m.Set(0, 0, 1)
	m.Set(1, 0, 2)

	s := o.extractSpriteWithBestPalette(m, 0, 0, 8, 8, false)

	// Equal coverage keeps the lower palette index.
	assert.Equal(t, uint8(4), s.Palette)
}

func TestBlankPadding(t *testing.T) {
	p := grid.NewImage(8, 4)
	p.Set(2, 1, 5)
	p.Set(5, 3, 6)
	assert.Equal(t, 2, blankLeft(p, 0))
	assert.Equal(t, 2, blankRight(p, 0))

	empty := grid.NewImage(8, 4)
	assert.Equal(t, 8, blankLeft(empty, 0))
	assert.Equal(t, 8, blankRight(empty, 0))
}

func TestAdjacentRuns(t *testing.T) {
	sprites := []Sprite{
		{X: 0, Y: 0, Palette: 4},
		{X: 8, Y: 0, Palette: 4},
		{X: 16, Y: 0, Palette: 5},
		{X: 24, Y: 8, Palette: 5},
		{X: 32, Y: 8, Palette: 5},
	}

	runs := adjacentRuns(sprites)

	require.Len(t, runs, 3)
	assert.Len(t, runs[0], 2)
	assert.Len(t, runs[1], 1)
	assert.Len(t, runs[2], 2)
}

func TestMergeRunPair(t *testing.T) {
	run := []Sprite{
		{X: 0, Y: 0, Palette: 4, blankLeft: 4},
		{X: 8, Y: 0, Palette: 4, blankRight: 4},
	}

	got := mergeRun(run)

	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].X)
}

func TestMergeRunChain(t *testing.T) {
	// Three sprites whose content spans exactly two sprite widths.
	run := []Sprite{
		{X: 0, Y: 0, Palette: 4, blankLeft: 4},
		{X: 8, Y: 0, Palette: 4},
		{X: 16, Y: 0, Palette: 4, blankRight: 4},
	}

	got := mergeRun(run)

	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].X)
	assert.Equal(t, 12, got[1].X)
}

func TestMergeRunInsufficientPadding(t *testing.T) {
	run := []Sprite{
		{X: 0, Y: 0, Palette: 4, blankLeft: 3},
		{X: 8, Y: 0, Palette: 4, blankRight: 4},
	}

	got := mergeRun(run)

	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].X)
	assert.Equal(t, 8, got[1].X)
}

func TestMergeAdjacentSprites(t *testing.T) {
	sprites := []Sprite{
		{X: 0, Y: 0, Palette: 4, blankLeft: 4},
		{X: 8, Y: 0, Palette: 4, blankRight: 4},
		{X: 8, Y: 16, Palette: 5, blankLeft: 4, blankRight: 4},
	}

	got := mergeAdjacentSprites(sprites)

	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].X)
	assert.Equal(t, 8, got[1].X)
	assert.Equal(t, 16, got[1].Y)
}

func TestSpritesOverlayGrid(t *testing.T) {
	o := &Optimiser{spriteHeight: 16, successful: true}
	o.palettes.SetPool(PoolSprite, []grid.ColorSet{{}, grid.NewColorSet(9)})
	o.layerOverlayGrid = grid.NewLayer(0, 8, 16, 2, 1)
	o.layerOverlayGrid.At(1, 0).Colors = grid.NewColorSet(9)
	o.imageOverlayGrid = grid.NewImage(16, 16)
	o.imageOverlayGrid.Set(8, 0, 9)
	o.imageOverlayGrid.Set(12, 5, 9)
	o.paletteIndicesOverlay = grid.NewArray2D[uint8](2, 1)
	o.paletteIndicesOverlay.Fill(NumBackgroundPalettes)
	o.paletteIndicesOverlay.Set(1, 0, 5)

	sprites := o.SpritesOverlayGrid()

	require.Len(t, sprites, 1)
	s := sprites[0]
	assert.Equal(t, 8, s.X)
	assert.Equal(t, 0, s.Y)
	assert.Equal(t, uint8(5), s.Palette)
	assert.Equal(t, []uint8{9}, s.Colors.Colors())
	assert.Equal(t, uint8(9), s.Pixels.At(0, 0))
	assert.Equal(t, uint8(9), s.Pixels.At(4, 5))
}

func TestSpritesOverlayFree(t *testing.T) {
	o := &Optimiser{spriteHeight: 16, successful: true}
	o.palettes.SetPool(PoolSprite, []grid.ColorSet{grid.NewColorSet(1, 2)})
	o.imageOverlayFree = grid.NewImage(32, 32)
	o.imageOverlayFree.Set(4, 2, 1)
	o.imageOverlayFree.Set(9, 5, 2)
	// A color no sprite palette holds must not stall the scan.
	o.imageOverlayFree.Set(20, 3, 7)

	sprites := o.SpritesOverlayFree()

	require.Len(t, sprites, 1)
	s := sprites[0]
	assert.Equal(t, 4, s.X)
	assert.Equal(t, 2, s.Y)
	assert.Equal(t, uint8(4), s.Palette)
	assert.Equal(t, []uint8{1, 2}, s.Colors.Colors())
	// The scan works on a scratch copy.
	assert.Equal(t, uint8(1), o.imageOverlayFree.At(4, 2))
}

func TestSpritesOverlayMergesAdjacent(t *testing.T) {
	o := &Optimiser{spriteHeight: 16, successful: true}
	o.palettes.SetPool(PoolSprite, []grid.ColorSet{grid.NewColorSet(3)})
	o.layerOverlayGrid = grid.NewLayer(0, 8, 16, 4, 1)
	o.layerOverlayGrid.At(0, 0).Colors = grid.NewColorSet(3)
	o.layerOverlayGrid.At(1, 0).Colors = grid.NewColorSet(3)
	o.imageOverlayGrid = grid.NewImage(32, 16)
	for x := 4; x < 12; x++ {
		o.imageOverlayGrid.Set(x, 3, 3)
	}
	o.imageOverlayFree = grid.NewImage(32, 16)
	o.paletteIndicesOverlay = grid.NewArray2D[uint8](4, 1)
	o.paletteIndicesOverlay.Fill(NumBackgroundPalettes)
	o.inputImage = grid.NewImage(32, 16)

	sprites := o.SpritesOverlay()

	require.Len(t, sprites, 1)
	assert.Equal(t, 4, sprites[0].X)
	assert.Equal(t, 0, sprites[0].Y)
	assert.Equal(t, uint8(4), sprites[0].Palette)

	assert.Equal(t, 1, o.MaxSpritesPerScanline())
}

func TestMaxSpritesPerScanline(t *testing.T) {
	o := &Optimiser{successful: true}
	o.inputImage = grid.NewImage(32, 24)
	o.layerOverlayGrid = grid.NewLayer(0, 8, 16, 4, 1)

	sprites := []Sprite{
		{X: 0, Y: 0},
		{X: 8, Y: 0},
		{X: 0, Y: 8},
		// Extends past the image bottom and is clipped.
		{X: 0, Y: 20},
	}

	assert.Equal(t, 3, o.maxSpritesPerScanline(sprites))
}

func TestSpritesBeforeConversion(t *testing.T) {
	o := New(nil, nil)
	assert.Nil(t, o.SpritesOverlayGrid())
	assert.Nil(t, o.SpritesOverlayFree())
	assert.Nil(t, o.SpritesOverlay())
	assert.Equal(t, 0, o.MaxSpritesPerScanline())
}
