package cmpl

import (
	"bufio"
	"fmt"
	"io"

	"github.com/jroweboy/OverlayPal/grid"
)

// WriteModelData serialises a layer and its bounds in the data file format
// the model programs consume. The format is positional and whitespace
// sensitive; the emitted bytes must stay stable because solve cache keys
// are derived from them.
func WriteModelData(w io.Writer, layer *grid.Layer, limits Limits) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%%CELL_COLOR_LIMIT < %d >\n", limits.CellColorLimit)
	fmt.Fprintf(bw, "%%MAX_BG_PALETTES < %d >\n", limits.MaxBackgroundPalettes)
	fmt.Fprintf(bw, "%%BG_PALETTES set < 0..%d >\n", limits.MaxBackgroundPalettes-1)
	fmt.Fprintf(bw, "%%MAX_SPR_PALETTES < %d >\n", limits.MaxSpritePalettes)
	fmt.Fprintf(bw, "%%SPR_PALETTES set < 0..%d >\n", limits.MaxSpritePalettes-1)
	fmt.Fprintf(bw, "%%OVERLAY_ROW_SIZE_LIMIT < %d >\n", limits.MaxRowSize)
	fmt.Fprintf(bw, "%%XRANGE set < 0..%d >\n", layer.Width()-1)
	fmt.Fprintf(bw, "%%YRANGE set < 0..%d >\n", layer.Height()-1)

	colors := layer.Colors()
	fmt.Fprintf(bw, "%%COLORS set < ")
	for _, c := range colors.Colors() {
		fmt.Fprintf(bw, "%d ", c)
	}
	fmt.Fprintf(bw, " >\n")

	writeLayerTable(bw, "layerColors", layer, colors, func(cell *grid.Cell, c uint8) int {
		if cell.Colors.Has(c) {
			return 1
		}
		return 0
	})
	writeLayerTable(bw, "layerColorColumnCount", layer, colors, func(cell *grid.Cell, c uint8) int {
		if cell.Colors.Has(c) {
			return cell.ColumnCount(c)
		}
		return 0
	})

	return bw.Flush()
}

// writeLayerTable emits one value table, a line per (x, y) cell with x as
// the outer dimension and the layer's colors ascending within the line.
func writeLayerTable(w *bufio.Writer, name string, layer *grid.Layer, colors grid.ColorSet, value func(*grid.Cell, uint8) int) {
	fmt.Fprintf(w, "%%%s[XRANGE, YRANGE, COLORS] <\n", name)
	for x := 0; x < layer.Width(); x++ {
		for y := 0; y < layer.Height(); y++ {
			cell := layer.At(x, y)
			for _, c := range colors.Colors() {
				fmt.Fprintf(w, "%d ", value(cell, c))
			}
			fmt.Fprintf(w, "\n")
		}
	}
	fmt.Fprintf(w, ">\n")
}
