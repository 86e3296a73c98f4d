package overlaypal

import "github.com/jroweboy/OverlayPal/grid"

// Sprite is one hardware sprite cut out of an overlay image. Pixels hold
// the raw colors captured at extraction time; horizontal merging afterwards
// may shift X, so consumers that need pixel data for a merged sprite read
// the sprite's window from the output images instead.
type Sprite struct {
	X       int
	Y       int
	Palette uint8
	Colors  grid.ColorSet
	Pixels  *grid.Image

	blankLeft  int
	blankRight int
}

// extractSprite copies the pixels inside a width by height window whose
// colors the palette contains. Window parts outside the image read as
// background. With removePixels set the copied pixels are blanked in the
// source, which is how the free sprite scan makes progress.
func extractSprite(image *grid.Image, x, y, width, height int, palette grid.ColorSet, background uint8, removePixels bool) Sprite {
	pixels := grid.NewImage(width, height)
	pixels.Fill(background)
	s := Sprite{X: x, Y: y, Pixels: pixels}
	for i := 0; i < height; i++ {
		for j := 0; j < width; j++ {
			xx := x + j
			yy := y + i
			if xx >= image.Width() || yy >= image.Height() {
				continue
			}
			c := image.At(xx, yy)
			if c == background || !palette.Has(c) {
				continue
			}
			pixels.Set(j, i, c)
			s.Colors.Insert(c)
			if removePixels {
				image.Set(xx, yy, background)
			}
		}
	}
	return s
}

// extractSpriteWithBestPalette probes every sprite palette without removal
// and keeps the one capturing the most window colors, lower palette index
// winning ties, then runs the real extraction with that palette.
func (o *Optimiser) extractSpriteWithBestPalette(image *grid.Image, x, y, width, height int, removePixels bool) Sprite {
	best := uint8(NumBackgroundPalettes)
	bestColors := 0
	for p := NumBackgroundPalettes; p < NumBackgroundPalettes+NumSpritePalettes; p++ {
		s := extractSprite(image, x, y, width, height, o.palettes.At(uint8(p)), o.background, false)
		if s.Colors.Len() > bestColors {
			best = uint8(p)
			bestColors = s.Colors.Len()
		}
	}
	s := extractSprite(image, x, y, width, height, o.palettes.At(best), o.background, removePixels)
	s.Palette = best
	return s
}

// SpritesOverlayGrid returns one sprite per non-empty cell of the
// grid-aligned overlay, in row-major cell order.
func (o *Optimiser) SpritesOverlayGrid() []Sprite {
	if !o.successful {
		return nil
	}
	layer := o.layerOverlayGrid
	var sprites []Sprite
	for y := 0; y < layer.Height(); y++ {
		for x := 0; x < layer.Width(); x++ {
			if layer.At(x, y).Empty() {
				continue
			}
			p := o.paletteIndicesOverlay.At(x, y)
			s := extractSprite(o.imageOverlayGrid, x*layer.CellWidth(), y*layer.CellHeight(),
				SpriteWidth, o.spriteHeight, o.palettes.At(p), o.background, false)
			s.Palette = p
			sprites = append(sprites, s)
		}
	}
	return sprites
}

// SpritesOverlayFree greedily covers the freely positioned overlay with
// sprites. The scan works band by band: empty pixel rows are skipped one at
// a time, then within a band of sprite height each column holding any
// non-background pixel starts an extraction at the band top. Extracted
// pixels are removed from a scratch copy, and the same column is examined
// again until nothing in it remains; a zero-color extraction steps one
// column so stray pixels outside every sprite palette cannot stall the
// scan.
func (o *Optimiser) SpritesOverlayFree() []Sprite {
	if !o.successful {
		return nil
	}
	image := o.imageOverlayFree.Clone()
	var sprites []Sprite
	for y := 0; y < image.Height(); {
		for y < image.Height() && image.EmptyRow(y, o.background) {
			y++
		}
		for x := 0; x < image.Width(); {
			columnHasPixels := false
			for i := y; i < y+o.spriteHeight && i < image.Height(); i++ {
				if image.At(x, i) != o.background {
					columnHasPixels = true
					break
				}
			}
			if !columnHasPixels {
				x++
				continue
			}
			s := o.extractSpriteWithBestPalette(image, x, y, SpriteWidth, o.spriteHeight, true)
			if s.Colors.Len() > 0 {
				sprites = append(sprites, s)
			} else {
				x++
			}
		}
		y += o.spriteHeight
	}
	return sprites
}

// SpritesOverlay returns the full sprite cover: grid sprites then free
// sprites, with horizontally adjacent compatible sprites merged.
func (o *Optimiser) SpritesOverlay() []Sprite {
	if !o.successful {
		return nil
	}
	sprites := append(o.SpritesOverlayGrid(), o.SpritesOverlayFree()...)
	for i := range sprites {
		sprites[i].blankLeft = blankLeft(sprites[i].Pixels, o.background)
		sprites[i].blankRight = blankRight(sprites[i].Pixels, o.background)
	}
	return mergeAdjacentSprites(sprites)
}

// MaxSpritesPerScanline returns the largest number of sprites covering any
// single output scanline, or 0 before a successful conversion.
func (o *Optimiser) MaxSpritesPerScanline() int {
	if !o.successful {
		return 0
	}
	return o.maxSpritesPerScanline(o.SpritesOverlay())
}

func (o *Optimiser) maxSpritesPerScanline(sprites []Sprite) int {
	counts := make([]int, o.inputImage.Height())
	height := o.layerOverlayGrid.CellHeight()
	for _, s := range sprites {
		for y := s.Y; y < s.Y+height && y < len(counts); y++ {
			counts[y]++
		}
	}
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	return max
}

// blankLeft counts fully background columns at the left edge; a blank
// sprite counts its full width.
func blankLeft(pixels *grid.Image, background uint8) int {
	for x := 0; x < pixels.Width(); x++ {
		for y := 0; y < pixels.Height(); y++ {
			if pixels.At(x, y) != background {
				return x
			}
		}
	}
	return pixels.Width()
}

func blankRight(pixels *grid.Image, background uint8) int {
	for x := 0; x < pixels.Width(); x++ {
		for y := 0; y < pixels.Height(); y++ {
			if pixels.At(pixels.Width()-1-x, y) != background {
				return x
			}
		}
	}
	return pixels.Width()
}

// adjacentRuns splits sprites into maximal runs in which each sprite sits
// exactly one sprite width right of the previous one, on the same row and
// with the same palette.
func adjacentRuns(sprites []Sprite) [][]Sprite {
	var runs [][]Sprite
	start := 0
	for i := 1; i <= len(sprites); i++ {
		if i == len(sprites) ||
			sprites[i].X != sprites[i-1].X+SpriteWidth ||
			sprites[i].Y != sprites[i-1].Y ||
			sprites[i].Palette != sprites[i-1].Palette {
			runs = append(runs, sprites[start:i:i])
			start = i
		}
	}
	return runs
}

func mergeAdjacentSprites(sprites []Sprite) []Sprite {
	merged := make([]Sprite, 0, len(sprites))
	for _, run := range adjacentRuns(sprites) {
		merged = append(merged, mergeRun(run)...)
	}
	return merged
}

// mergeRun drops sprites from one adjacent run. When the blank left
// padding of a chain's first sprite plus the blank right padding of its
// last sprite cover a whole sprite width, the chain from first up to but
// not including last shifts right into the padding, the last sprite is
// dropped, and scanning resumes at the drop position. Indices are managed
// explicitly; the number of sprites only ever shrinks.
func mergeRun(run []Sprite) []Sprite {
	first := 0
	for first < len(run) {
		last := first + 1
		for last < len(run) {
			if run[first].blankLeft+run[last].blankRight >= SpriteWidth {
				shift := run[first].blankLeft
				for i := first; i < last; i++ {
					run[i].X += shift
				}
				run = append(run[:last], run[last+1:]...)
				first = last
			}
			last++
		}
		first++
	}
	return run
}
