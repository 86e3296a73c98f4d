package overlaypal

import (
	"context"
	"fmt"

	"github.com/jroweboy/OverlayPal/cmpl"
	"github.com/jroweboy/OverlayPal/grid"
)

// Convert decomposes image into a background layer and sprite overlays
// under the limits in cfg. On success it returns an advisory string: empty
// when every limit was met, or one of the Advisory constants when the
// result is usable but exceeds a soft limit. The full result is available
// through the Optimiser accessors afterwards.
func (o *Optimiser) Convert(ctx context.Context, image *grid.Image, cfg Config) (string, error) {
	if err := cfg.validate(image); err != nil {
		return "", err
	}

	o.successful = false
	o.background = cfg.BackgroundColor
	o.spriteHeight = cfg.SpriteHeight
	o.palettes = PaletteSet{}
	o.inputImage = image

	overlayWidth := image.Width() / SpriteWidth
	overlayHeight := image.Height() / cfg.SpriteHeight

	blank := grid.NewImage(image.Width(), image.Height())
	blank.Fill(cfg.BackgroundColor)
	o.imageBackground = blank.Clone()
	o.imageOverlayGrid = blank.Clone()
	o.imageOverlayFree = blank.Clone()
	o.layerOverlayGrid = grid.NewLayer(cfg.BackgroundColor, SpriteWidth, cfg.SpriteHeight, overlayWidth, overlayHeight)
	o.layerOverlayFree = grid.NewLayer(cfg.BackgroundColor, SpriteWidth, cfg.SpriteHeight, overlayWidth, overlayHeight)
	o.paletteIndicesOverlay = grid.NewArray2D[uint8](overlayWidth, overlayHeight)
	o.paletteIndicesOverlay.Fill(NumBackgroundPalettes)

	layer := grid.NewLayerFromImage(cfg.BackgroundColor, cfg.CellWidth, cfg.CellHeight, image)
	o.layerBackground = grid.NewLayer(cfg.BackgroundColor, cfg.CellWidth, cfg.CellHeight, layer.Width(), layer.Height())
	o.paletteIndicesBackground = grid.NewArray2D[uint8](layer.Width(), layer.Height())

	// An image with no foreground pixels has nothing to solve for.
	if layer.Colors().Len() == 0 {
		o.logger.Printf("input is entirely background, skipping both passes")
		o.palettes.Fill(PoolBackground)
		o.palettes.Fill(PoolSprite)
		o.successful = true
		return "", nil
	}

	// The row budget is deliberately loose so that a solution stays
	// visible even when it breaks the scanline limit; the final advisory
	// reports the break instead.
	maxRowSize := ((4 * SpriteWidth) / cfg.CellWidth) * cfg.MaxSpritesPerScanline

	layerOverlay, err := o.convertFirstPass(ctx, cfg, layer, maxRowSize)
	if err != nil {
		return "", err
	}

	repairStrayOverlayColors(o.layerBackground, layerOverlay, o.paletteIndicesBackground, &o.palettes)
	mergePalettes(&o.palettes, PoolBackground, o.paletteIndicesBackground, cfg.CellColorLimit)
	o.palettes.Fill(PoolBackground)

	imageOverlay := grid.NewImage(image.Width(), image.Height())
	moveOverlayColors(image, o.imageBackground, imageOverlay, layerOverlay, cfg.BackgroundColor)
	repairRowContinuity(o.layerBackground, o.paletteIndicesBackground, &o.palettes)
	if !consistentLayers(o.imageBackground, o.layerBackground, &o.palettes, o.paletteIndicesBackground, cfg.BackgroundColor) {
		return "", fmt.Errorf("%w: background layer after first pass", ErrInconsistent)
	}

	// With nothing moved into the overlay the conversion is already done.
	if imageOverlay.Empty(cfg.BackgroundColor) || cfg.MaxSpritePalettes == 0 {
		o.palettes.Fill(PoolSprite)
		o.successful = true
		if imageOverlay.Empty(cfg.BackgroundColor) {
			return "", nil
		}
		return AdvisorySpritePalettesRequired, nil
	}

	if err := o.convertSecondPass(ctx, cfg, imageOverlay); err != nil {
		return "", err
	}

	repairStrayOverlayColors(o.layerOverlayGrid, o.layerOverlayFree, o.paletteIndicesOverlay, &o.palettes)
	mergePalettes(&o.palettes, PoolSprite, o.paletteIndicesOverlay, cfg.CellColorLimit)
	o.palettes.Fill(PoolSprite)

	moveOverlayColors(imageOverlay, o.imageOverlayGrid, o.imageOverlayFree, o.layerOverlayFree, cfg.BackgroundColor)
	repairRowContinuity(o.layerOverlayGrid, o.paletteIndicesOverlay, &o.palettes)
	if !consistentLayers(o.imageOverlayGrid, o.layerOverlayGrid, &o.palettes, o.paletteIndicesOverlay, cfg.BackgroundColor) {
		return "", fmt.Errorf("%w: overlay layers after second pass", ErrInconsistent)
	}

	o.successful = true
	if max := o.maxSpritesPerScanline(o.SpritesOverlay()); max > cfg.MaxSpritesPerScanline {
		o.logger.Printf("scanline limit exceeded: %d sprites against limit %d", max, cfg.MaxSpritesPerScanline)
		return AdvisoryTooManySprites, nil
	}
	return "", nil
}

// convertFirstPass splits the cell layer into background and overlay. The
// returned layer holds the overlay share at background cell granularity.
func (o *Optimiser) convertFirstPass(ctx context.Context, cfg Config, layer *grid.Layer, maxRowSize int) (*grid.Layer, error) {
	if cfg.MaxBackgroundPalettes == 0 {
		return o.convertFirstPassNoBG(cfg, layer, maxRowSize)
	}

	o.logger.Printf("pass 1: %d colors over %dx%d cells", layer.Colors().Len(), layer.Width(), layer.Height())
	sol, err := o.solver.Solve(ctx, cmpl.Request{
		Pass:  cmpl.PassBackground,
		Layer: layer,
		Limits: cmpl.Limits{
			CellColorLimit:        cfg.CellColorLimit,
			MaxBackgroundPalettes: cfg.MaxBackgroundPalettes,
			MaxSpritePalettes:     cfg.MaxSpritePalettes,
			MaxRowSize:            maxRowSize,
		},
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	o.layerBackground = sol.First
	o.palettes.SetPool(PoolBackground, sol.Palettes)
	for y := 0; y < layer.Height(); y++ {
		for x := 0; x < layer.Width(); x++ {
			global := o.palettes.GlobalIndex(PoolBackground, int(sol.PaletteIndices.At(x, y)))
			o.paletteIndicesBackground.Set(x, y, global)
		}
	}
	setEmptyPaletteIndices(o.paletteIndicesBackground, o.layerBackground, o.palettes.Base(PoolBackground))
	return sol.Second, nil
}

// convertFirstPassNoBG handles a zero background palette budget without the
// solver: every non-empty cell moves wholesale into the overlay. This only
// works when the sprite pool can hold all colors and no cell row overruns
// the row budget.
func (o *Optimiser) convertFirstPassNoBG(cfg Config, layer *grid.Layer, maxRowSize int) (*grid.Layer, error) {
	o.logger.Printf("pass 1: no background palettes, copying %dx%d cells to overlay", layer.Width(), layer.Height())
	overlay := grid.NewLayer(cfg.BackgroundColor, layer.CellWidth(), layer.CellHeight(), layer.Width(), layer.Height())
	var colors grid.ColorSet
	maxCellsInRow := 0
	for y := 0; y < layer.Height(); y++ {
		cellsInRow := 0
		for x := 0; x < layer.Width(); x++ {
			cell := layer.At(x, y)
			for _, c := range cell.Colors.Colors() {
				colors.Insert(c)
			}
			if !cell.Empty() {
				cellsInRow++
			}
			overlay.At(x, y).Colors = cell.Colors.Clone()
		}
		if cellsInRow > maxCellsInRow {
			maxCellsInRow = cellsInRow
		}
	}
	setEmptyPaletteIndices(o.paletteIndicesBackground, o.layerBackground, o.palettes.Base(PoolBackground))
	if colors.Len() > cfg.MaxSpritePalettes*cfg.CellColorLimit || maxCellsInRow > maxRowSize {
		return nil, ErrNoBackgroundOverflow
	}
	return overlay, nil
}

// convertSecondPass splits the overlay image into grid-aligned and free
// sprite layers at sprite cell granularity.
func (o *Optimiser) convertSecondPass(ctx context.Context, cfg Config, imageOverlay *grid.Image) error {
	layer := grid.NewLayerFromImage(cfg.BackgroundColor, SpriteWidth, cfg.SpriteHeight, imageOverlay)
	o.logger.Printf("pass 2: %d colors over %dx%d sprite cells", layer.Colors().Len(), layer.Width(), layer.Height())
	sol, err := o.solver.Solve(ctx, cmpl.Request{
		Pass:  cmpl.PassOverlay,
		Layer: layer,
		Limits: cmpl.Limits{
			CellColorLimit:    cfg.CellColorLimit,
			MaxSpritePalettes: cfg.MaxSpritePalettes,
			// Looser again than the scanline limit implies; past the hard
			// row capacity there is no solution at all.
			MaxRowSize: 2 * 4 * cfg.MaxSpritesPerScanline,
		},
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return err
	}

	o.layerOverlayGrid = sol.First
	o.layerOverlayFree = sol.Second
	o.palettes.SetPool(PoolSprite, sol.Palettes)
	for y := 0; y < layer.Height(); y++ {
		for x := 0; x < layer.Width(); x++ {
			global := o.palettes.GlobalIndex(PoolSprite, int(sol.PaletteIndices.At(x, y)))
			o.paletteIndicesOverlay.Set(x, y, global)
		}
	}
	setEmptyPaletteIndices(o.paletteIndicesOverlay, o.layerOverlayGrid, o.palettes.Base(PoolSprite))
	return nil
}

// setEmptyPaletteIndices points every empty cell at the pool's first
// palette so later lookups stay within the pool.
func setEmptyPaletteIndices(paletteIndices *grid.Array2D[uint8], layer *grid.Layer, emptyIndex uint8) {
	for y := 0; y < layer.Height(); y++ {
		for x := 0; x < layer.Width(); x++ {
			if layer.At(x, y).Empty() {
				paletteIndices.Set(x, y, emptyIndex)
			}
		}
	}
}

// moveOverlayColors splits input pixel by pixel: a pixel whose color is in
// the overlay cell's set lands in imageOverlay, every other pixel in
// imagePrimary, with the other side receiving the background color. After
// the split exactly one of the two images holds each non-background pixel.
func moveOverlayColors(input, imagePrimary, imageOverlay *grid.Image, layerOverlay *grid.Layer, background uint8) {
	cellWidth := layerOverlay.CellWidth()
	cellHeight := layerOverlay.CellHeight()
	for y := 0; y < layerOverlay.Height(); y++ {
		for x := 0; x < layerOverlay.Width(); x++ {
			cell := layerOverlay.At(x, y)
			for i := 0; i < cellHeight; i++ {
				for j := 0; j < cellWidth; j++ {
					xx := x*cellWidth + j
					yy := y*cellHeight + i
					c := input.At(xx, yy)
					if cell.Colors.Has(c) {
						imageOverlay.Set(xx, yy, c)
						imagePrimary.Set(xx, yy, background)
					} else {
						imageOverlay.Set(xx, yy, background)
						imagePrimary.Set(xx, yy, c)
					}
				}
			}
		}
	}
}

// consistentLayers verifies the two containment invariants: every cell
// color is in the cell's assigned palette, and every non-background pixel
// color is in its cell's color set.
func consistentLayers(image *grid.Image, layer *grid.Layer, palettes *PaletteSet, paletteIndices *grid.Array2D[uint8], background uint8) bool {
	for y := 0; y < layer.Height(); y++ {
		for x := 0; x < layer.Width(); x++ {
			cell := layer.At(x, y)
			palette := palettes.At(paletteIndices.At(x, y))
			for _, c := range cell.Colors.Colors() {
				if !palette.Has(c) {
					return false
				}
			}
			for i := 0; i < layer.CellHeight(); i++ {
				for j := 0; j < layer.CellWidth(); j++ {
					c := image.At(x*layer.CellWidth()+j, y*layer.CellHeight()+i)
					if c != background && !cell.Colors.Has(c) {
						return false
					}
				}
			}
		}
	}
	return true
}

// OutputImageBackground returns the background layer with remapped pixel
// values, or nil before a successful conversion.
func (o *Optimiser) OutputImageBackground() *grid.Image {
	if !o.successful {
		return nil
	}
	return remapColors(o.imageBackground, o.layerBackground, &o.palettes, o.paletteIndicesBackground)
}

// OutputImageOverlayGrid returns the grid-aligned overlay with remapped
// pixel values, or nil before a successful conversion.
func (o *Optimiser) OutputImageOverlayGrid() *grid.Image {
	if !o.successful {
		return nil
	}
	return remapColors(o.imageOverlayGrid, o.layerOverlayGrid, &o.palettes, o.paletteIndicesOverlay)
}

// OutputImageOverlayFree renders the freely positioned sprites with
// remapped pixel values, or nil before a successful conversion.
func (o *Optimiser) OutputImageOverlayFree() *grid.Image {
	if !o.successful {
		return nil
	}
	out := grid.NewImage(o.imageOverlayFree.Width(), o.imageOverlayFree.Height())
	for _, s := range o.SpritesOverlayFree() {
		for y := 0; y < o.spriteHeight; y++ {
			for x := 0; x < SpriteWidth; x++ {
				c := s.Pixels.At(x, y)
				if c == o.background {
					continue
				}
				value := s.Palette<<2 | uint8(o.palettes.At(s.Palette).IndexOf(c))
				out.Set(s.X+x, s.Y+y, value)
			}
		}
	}
	return out
}

// OutputImageOverlay combines the two remapped overlay images, freely
// positioned sprites winning over grid sprites, or nil before a successful
// conversion. Sprite exporters read merged sprite windows from this image.
func (o *Optimiser) OutputImageOverlay() *grid.Image {
	if !o.successful {
		return nil
	}
	overlayGrid := o.OutputImageOverlayGrid()
	overlayFree := o.OutputImageOverlayFree()
	out := grid.NewImage(overlayGrid.Width(), overlayGrid.Height())
	for y := 0; y < out.Height(); y++ {
		for x := 0; x < out.Width(); x++ {
			if v := overlayFree.At(x, y); v != 0 {
				out.Set(x, y, v)
			} else {
				out.Set(x, y, overlayGrid.At(x, y))
			}
		}
	}
	return out
}

// OutputImage combines the three remapped output images. Freely positioned
// sprites win over grid sprites, which win over the background.
func (o *Optimiser) OutputImage() *grid.Image {
	if !o.successful {
		return nil
	}
	background := o.OutputImageBackground()
	overlayGrid := o.OutputImageOverlayGrid()
	overlayFree := o.OutputImageOverlayFree()
	out := grid.NewImage(background.Width(), background.Height())
	for y := 0; y < out.Height(); y++ {
		for x := 0; x < out.Width(); x++ {
			switch {
			case overlayFree.At(x, y) != 0:
				out.Set(x, y, overlayFree.At(x, y))
			case overlayGrid.At(x, y) != 0:
				out.Set(x, y, overlayGrid.At(x, y))
			default:
				out.Set(x, y, background.At(x, y))
			}
		}
	}
	return out
}
