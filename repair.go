package overlaypal

import "github.com/jroweboy/OverlayPal/grid"

// The repair routines clean up solutions the solver left suboptimal after
// hitting its time limit. They only ever simplify: colors move out of the
// overlay, palettes merge, palette assignments coalesce. None of them adds
// a color to any palette, so a solution that satisfied the containment
// invariants still satisfies them afterwards.

// repairStrayOverlayColors moves a color out of an overlay cell when the
// palette assigned to the matching primary cell already contains it; the
// sprite side then has one color less to cover. A color present in both
// cells at once is simply dropped from the overlay.
func repairStrayOverlayColors(primary, overlay *grid.Layer, paletteIndices *grid.Array2D[uint8], palettes *PaletteSet) {
	for y := 0; y < primary.Height(); y++ {
		for x := 0; x < primary.Width(); x++ {
			dst := primary.At(x, y)
			src := overlay.At(x, y)
			if src.Empty() {
				continue
			}
			palette := palettes.At(paletteIndices.At(x, y))
			for _, c := range append([]uint8(nil), src.Colors.Colors()...) {
				switch {
				case dst.Colors.Has(c):
					src.Colors.Remove(c)
				case palette.Has(c):
					dst.Colors.Insert(c)
					src.Colors.Remove(c)
				}
			}
		}
	}
}

// mergePalettes collapses palettes within one pool whenever the union of a
// pair still fits the cell color limit. The later palette of a merged pair
// is left empty rather than removed, so surviving cell indices stay valid;
// later palettes cascade forward into freed slots. Re-running the merge
// changes nothing once a fixed point is reached.
func mergePalettes(palettes *PaletteSet, pool Pool, paletteIndices *grid.Array2D[uint8], colorLimit int) {
	p := palettes.Pool(pool)
	for i := 0; i < len(p); i++ {
		for j := i + 1; j < len(p); j++ {
			union := p[i].Union(p[j])
			if union.Len() > colorLimit {
				continue
			}
			p[i] = union
			p[j] = grid.ColorSet{}
			reassign(paletteIndices, palettes.GlobalIndex(pool, j), palettes.GlobalIndex(pool, i))
		}
	}
}

func reassign(paletteIndices *grid.Array2D[uint8], from, to uint8) {
	if from == to {
		return
	}
	for y := 0; y < paletteIndices.Height(); y++ {
		for x := 0; x < paletteIndices.Width(); x++ {
			if paletteIndices.At(x, y) == from {
				paletteIndices.Set(x, y, to)
			}
		}
	}
}

// repairRowContinuity coalesces palette assignments along each cell row:
// scanning left to right, a non-empty cell whose colors the previous
// non-empty cell's palette fully contains is reassigned to that palette.
// Longer same-palette runs map better onto hardware attribute regions and
// give the horizontal sprite merger more adjacent pairs to work with.
// Empty cells keep their pool base assignment and do not break a run.
func repairRowContinuity(layer *grid.Layer, paletteIndices *grid.Array2D[uint8], palettes *PaletteSet) {
	for y := 0; y < layer.Height(); y++ {
		previous := -1
		for x := 0; x < layer.Width(); x++ {
			cell := layer.At(x, y)
			if cell.Empty() {
				continue
			}
			current := int(paletteIndices.At(x, y))
			if previous >= 0 && previous != current &&
				palettes.At(uint8(previous)).ContainsAll(cell.Colors) {
				paletteIndices.Set(x, y, uint8(previous))
				current = previous
			}
			previous = current
		}
	}
}
