/*
Package overlaypal decomposes an indexed image into a grid-aligned
background layer and a set of sprite overlay layers that together respect
8-bit console color hardware limits.

A conversion runs in two passes. The first pass assigns every grid cell's
colors to either the background or an overlay; the second pass splits the
overlay into hardware sprites, some aligned to the sprite grid and some
freely positioned. The palette assignment inside each pass is delegated to
an external constraint solver behind the Solver interface; this package
contains no optimisation search itself, only model preparation, solution
repair and the pixel-exact layer bookkeeping around it.
*/
package overlaypal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/jroweboy/OverlayPal/cmpl"
	"github.com/jroweboy/OverlayPal/grid"
)

const (
	// NumBackgroundPalettes is the hardware background palette count.
	NumBackgroundPalettes = 4

	// NumSpritePalettes is the hardware sprite palette count.
	NumSpritePalettes = 4

	// PaletteGroupSize is the stride of one palette in remapped pixel
	// values; each palette holds at most PaletteGroupSize-1 colors plus
	// the shared background.
	PaletteGroupSize = 4

	// SpriteWidth is the fixed hardware sprite width in pixels.
	SpriteWidth = 8
)

// Conversion results that are advisory rather than fatal. Convert returns
// them alongside a nil error; the decomposition is complete but exceeds a
// soft limit the caller asked for.
const (
	AdvisorySpritePalettesRequired = "Sprite palettes required."
	AdvisoryTooManySprites         = "Too many sprites / scanline"
)

var (
	// ErrNoBackgroundOverflow is returned when a conversion with zero
	// background palettes cannot fit every color and cell row within the
	// sprite budget.
	ErrNoBackgroundOverflow = errors.New("overlaypal: first pass of no-background conversion failed")

	// ErrInconsistent is returned when a repaired solution fails the
	// internal layer consistency check. It indicates a defect in the model
	// programs or the repair logic, not bad input.
	ErrInconsistent = errors.New("overlaypal: decomposition is not self-consistent")
)

// Solver produces palette assignments for one decomposition pass.
// cmpl.Runner is the production implementation; tests substitute fakes.
type Solver interface {
	Solve(ctx context.Context, req cmpl.Request) (*cmpl.Solution, error)
}

// Config carries the per-conversion limits. The zero value is not usable;
// all fields must be set.
type Config struct {
	// BackgroundColor is the color index treated as transparent.
	BackgroundColor uint8

	// CellWidth and CellHeight give the background attribute cell size.
	CellWidth  int
	CellHeight int

	// SpriteHeight selects 8x8 or 8x16 hardware sprites.
	SpriteHeight int

	// CellColorLimit is the maximum number of non-background colors per
	// cell and per palette.
	CellColorLimit int

	// MaxBackgroundPalettes and MaxSpritePalettes bound how many hardware
	// palettes of each pool the conversion may use.
	MaxBackgroundPalettes int
	MaxSpritePalettes     int

	// MaxSpritesPerScanline is the hardware sprite-per-scanline limit the
	// result should stay within. Exceeding it is advisory, not fatal.
	MaxSpritesPerScanline int

	// Timeout is the solver time limit in seconds per pass; 0 disables it.
	Timeout int
}

func (c Config) validate(image *grid.Image) error {
	switch {
	case c.CellWidth <= 0 || c.CellHeight <= 0:
		return fmt.Errorf("overlaypal: invalid cell size %dx%d", c.CellWidth, c.CellHeight)
	case c.SpriteHeight != 8 && c.SpriteHeight != 16:
		return fmt.Errorf("overlaypal: sprite height %d not 8 or 16", c.SpriteHeight)
	case c.CellColorLimit < 1 || c.CellColorLimit > PaletteGroupSize-1:
		return fmt.Errorf("overlaypal: cell color limit %d outside 1..%d", c.CellColorLimit, PaletteGroupSize-1)
	case c.MaxBackgroundPalettes < 0 || c.MaxBackgroundPalettes > NumBackgroundPalettes:
		return fmt.Errorf("overlaypal: background palette count %d outside 0..%d", c.MaxBackgroundPalettes, NumBackgroundPalettes)
	case c.MaxSpritePalettes < 0 || c.MaxSpritePalettes > NumSpritePalettes:
		return fmt.Errorf("overlaypal: sprite palette count %d outside 0..%d", c.MaxSpritePalettes, NumSpritePalettes)
	case c.MaxSpritesPerScanline < 1:
		return fmt.Errorf("overlaypal: sprites per scanline %d below 1", c.MaxSpritesPerScanline)
	case c.Timeout < 0:
		return fmt.Errorf("overlaypal: negative solver timeout %d", c.Timeout)
	}
	if image.Width()%c.CellWidth != 0 || image.Height()%c.CellHeight != 0 {
		return fmt.Errorf("overlaypal: image %dx%d not divisible into %dx%d cells",
			image.Width(), image.Height(), c.CellWidth, c.CellHeight)
	}
	if image.Width()%SpriteWidth != 0 || image.Height()%c.SpriteHeight != 0 {
		return fmt.Errorf("overlaypal: image %dx%d not divisible into %dx%d sprites",
			image.Width(), image.Height(), SpriteWidth, c.SpriteHeight)
	}
	return nil
}

// Optimiser holds the result of the most recent conversion. An Optimiser
// is not safe for concurrent use; run concurrent conversions on separate
// instances with separate solver work directories.
type Optimiser struct {
	solver Solver
	logger *log.Logger

	background   uint8
	spriteHeight int
	successful   bool

	palettes PaletteSet

	layerBackground  *grid.Layer
	layerOverlayGrid *grid.Layer
	layerOverlayFree *grid.Layer

	paletteIndicesBackground *grid.Array2D[uint8]
	paletteIndicesOverlay    *grid.Array2D[uint8]

	inputImage       *grid.Image
	imageBackground  *grid.Image
	imageOverlayGrid *grid.Image
	imageOverlayFree *grid.Image
}

// New returns an Optimiser using the given solver. logger may be nil.
func New(solver Solver, logger *log.Logger) *Optimiser {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Optimiser{
		solver: solver,
		logger: logger,
	}
}

// ConversionSuccessful reports whether the last Convert call completed.
func (o *Optimiser) ConversionSuccessful() bool {
	return o.successful
}

// BackgroundColor returns the background color of the last conversion.
func (o *Optimiser) BackgroundColor() uint8 {
	return o.background
}

// SpriteHeight returns the sprite height of the last conversion.
func (o *Optimiser) SpriteHeight() int {
	return o.spriteHeight
}

// Palettes returns the eight global palettes, background pool first.
func (o *Optimiser) Palettes() []grid.ColorSet {
	return o.palettes.All()
}

// LayerBackground returns the background cell layer.
func (o *Optimiser) LayerBackground() *grid.Layer {
	return o.layerBackground
}

// LayerOverlay returns the grid-aligned overlay layer at sprite cell size.
func (o *Optimiser) LayerOverlay() *grid.Layer {
	return o.layerOverlayGrid
}

// PaletteIndicesBackground returns the per-cell global palette choice of
// the background layer.
func (o *Optimiser) PaletteIndicesBackground() *grid.Array2D[uint8] {
	return o.paletteIndicesBackground
}

// PaletteIndicesOverlay returns the per-cell global palette choice of the
// grid-aligned overlay layer.
func (o *Optimiser) PaletteIndicesOverlay() *grid.Array2D[uint8] {
	return o.paletteIndicesOverlay
}
