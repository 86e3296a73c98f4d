package overlaypal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jroweboy/OverlayPal/grid"
)

func TestRepairStrayOverlayColors(t *testing.T) {
	primary := grid.NewLayer(0, 16, 16, 2, 1)
	overlay := grid.NewLayer(0, 16, 16, 2, 1)
	primary.At(0, 0).Colors = grid.NewColorSet(1, 2)
	overlay.At(0, 0).Colors = grid.NewColorSet(2, 3, 9)
	overlay.At(1, 0).Colors = grid.NewColorSet(4)

	var ps PaletteSet
	ps.SetPool(PoolBackground, []grid.ColorSet{grid.NewColorSet(1, 2, 3)})
	indices := grid.NewArray2D[uint8](2, 1)

	repairStrayOverlayColors(primary, overlay, indices, &ps)

	// 2 was duplicated, 3 was covered by the cell's palette, 9 was not.
	assert.Equal(t, []uint8{1, 2, 3}, primary.At(0, 0).Colors.Colors())
	assert.Equal(t, []uint8{9}, overlay.At(0, 0).Colors.Colors())
	// 4 is outside the palette of its cell and stays in the overlay.
	assert.Equal(t, 0, primary.At(1, 0).Colors.Len())
	assert.Equal(t, []uint8{4}, overlay.At(1, 0).Colors.Colors())
}

func TestMergePalettes(t *testing.T) {
	var ps PaletteSet
	ps.SetPool(PoolBackground, []grid.ColorSet{
		grid.NewColorSet(1, 2),
		grid.NewColorSet(3),
		grid.NewColorSet(9, 10, 11),
	})
	indices := grid.NewArray2D[uint8](3, 1)
	indices.Set(1, 0, 1)
	indices.Set(2, 0, 2)

	mergePalettes(&ps, PoolBackground, indices, 3)

	pool := ps.Pool(PoolBackground)
	assert.Equal(t, []uint8{1, 2, 3}, pool[0].Colors())
	// The full palette could not merge anywhere and cascades into the
	// slot freed by the merge.
	assert.Equal(t, []uint8{9, 10, 11}, pool[1].Colors())
	assert.Equal(t, 0, pool[2].Len())

	assert.Equal(t, uint8(0), indices.At(0, 0))
	assert.Equal(t, uint8(0), indices.At(1, 0))
	assert.Equal(t, uint8(1), indices.At(2, 0))
}

// A second merge pass over an already merged pool is a no-op.
func TestMergePalettesIdempotent(t *testing.T) {
	var ps PaletteSet
	ps.SetPool(PoolBackground, []grid.ColorSet{
		grid.NewColorSet(1, 2),
		grid.NewColorSet(3),
		grid.NewColorSet(9, 10, 11),
		grid.NewColorSet(12),
	})
	indices := grid.NewArray2D[uint8](4, 1)
	for x := 0; x < 4; x++ {
		indices.Set(x, 0, uint8(x))
	}

	mergePalettes(&ps, PoolBackground, indices, 3)

	first := make([]grid.ColorSet, 0, 4)
	for _, p := range ps.Pool(PoolBackground) {
		first = append(first, p.Clone())
	}
	snapshot := indices.Clone()

	mergePalettes(&ps, PoolBackground, indices, 3)

	for i, p := range ps.Pool(PoolBackground) {
		assert.True(t, p.Equal(first[i]), "palette %d changed on second pass", i)
	}
	for x := 0; x < 4; x++ {
		assert.Equal(t, snapshot.At(x, 0), indices.At(x, 0))
	}
}

func TestMergePalettesSpritePoolUsesGlobalIndices(t *testing.T) {
	var ps PaletteSet
	ps.SetPool(PoolSprite, []grid.ColorSet{
		grid.NewColorSet(5),
		grid.NewColorSet(6),
	})
	indices := grid.NewArray2D[uint8](2, 1)
	indices.Set(0, 0, NumBackgroundPalettes)
	indices.Set(1, 0, NumBackgroundPalettes+1)

	mergePalettes(&ps, PoolSprite, indices, 3)

	pool := ps.Pool(PoolSprite)
	assert.Equal(t, []uint8{5, 6}, pool[0].Colors())
	assert.Equal(t, 0, pool[1].Len())
	assert.Equal(t, uint8(NumBackgroundPalettes), indices.At(0, 0))
	assert.Equal(t, uint8(NumBackgroundPalettes), indices.At(1, 0))
}

func TestRepairRowContinuity(t *testing.T) {
	layer := grid.NewLayer(0, 16, 16, 4, 1)
	layer.At(0, 0).Colors = grid.NewColorSet(1)
	// An empty cell must not break the run.
	layer.At(2, 0).Colors = grid.NewColorSet(2)
	layer.At(3, 0).Colors = grid.NewColorSet(3)

	var ps PaletteSet
	ps.SetPool(PoolBackground, []grid.ColorSet{
		grid.NewColorSet(1, 2),
		grid.NewColorSet(2, 3),
	})
	indices := grid.NewArray2D[uint8](4, 1)
	indices.Set(2, 0, 1)
	indices.Set(3, 0, 1)

	repairRowContinuity(layer, indices, &ps)

	// Cell 2 joins the run started by cell 0; cell 3 cannot, its color
	// is missing from palette 0.
	assert.Equal(t, uint8(0), indices.At(0, 0))
	assert.Equal(t, uint8(0), indices.At(2, 0))
	assert.Equal(t, uint8(1), indices.At(3, 0))
}

func TestRepairRowContinuityPerRow(t *testing.T) {
	layer := grid.NewLayer(0, 16, 16, 2, 2)
	layer.At(0, 0).Colors = grid.NewColorSet(1)
	layer.At(1, 0).Colors = grid.NewColorSet(2)
	layer.At(0, 1).Colors = grid.NewColorSet(3)
	layer.At(1, 1).Colors = grid.NewColorSet(1)

	var ps PaletteSet
	ps.SetPool(PoolBackground, []grid.ColorSet{
		grid.NewColorSet(1, 2),
		grid.NewColorSet(1, 3),
	})
	indices := grid.NewArray2D[uint8](2, 2)
	indices.Set(1, 0, 1)
	indices.Set(0, 1, 1)
	indices.Set(1, 1, 0)

	repairRowContinuity(layer, indices, &ps)

	assert.Equal(t, uint8(0), indices.At(0, 0))
	assert.Equal(t, uint8(0), indices.At(1, 0))
	// Runs restart on each row; the second row coalesces onto palette 1.
	assert.Equal(t, uint8(1), indices.At(0, 1))
	assert.Equal(t, uint8(1), indices.At(1, 1))
}
