/*
Package cmpl drives the external CMPL/CBC solver that assigns palettes to
grid cells.

The optimiser never builds constraint models itself. Each decomposition pass
has a fixed model program that ships with the solver installation; this
package serialises the per-image data the program consumes, invokes the
solver binary and parses the solution it writes back. All work files live
under a single work directory with fixed per-pass names, so concurrent
solves must use distinct work directories.
*/
package cmpl

import (
	"errors"

	"github.com/jroweboy/OverlayPal/grid"
)

var (
	// ErrNoSolution is returned when the solver proves the model infeasible
	// or runs out of time before finding any feasible assignment.
	ErrNoSolution = errors.New("cmpl: no solution found")

	// ErrBadSolution is returned when the solution file cannot be understood.
	ErrBadSolution = errors.New("cmpl: unrecognized solution format")
)

// Pass selects which decomposition pass a model describes. The two passes
// share the data file format but use distinct model programs and solution
// variable names.
type Pass int

const (
	// PassBackground splits the input image into a background layer and an
	// overlay layer.
	PassBackground Pass = iota

	// PassOverlay splits the overlay image into grid-aligned and free
	// sprite layers.
	PassOverlay
)

func (p Pass) String() string {
	switch p {
	case PassBackground:
		return "pass 1"
	case PassOverlay:
		return "pass 2"
	}
	return "unknown pass"
}

// ProgramFilename returns the name of the pass's model program within the
// solver installation directory. The program references its data file by
// the fixed name this package writes.
func (p Pass) ProgramFilename() string {
	if p == PassOverlay {
		return "overlaypal-pass2.cmpl"
	}
	return "overlaypal-pass1.cmpl"
}

func (p Pass) runFilename() string {
	if p == PassOverlay {
		return "overlaypal-pass2-run.cmpl"
	}
	return "overlaypal-pass1-run.cmpl"
}

func (p Pass) dataFilename() string {
	if p == PassOverlay {
		return "overlaypal-pass2.cdat"
	}
	return "overlaypal-pass1.cdat"
}

func (p Pass) solutionFilename() string {
	if p == PassOverlay {
		return "overlaypal-pass2.csv"
	}
	return "overlaypal-pass1.csv"
}

func (p Pass) colorsFirstPrefix() string {
	if p == PassOverlay {
		return "colorsOverlayGrid["
	}
	return "colorsBG["
}

func (p Pass) colorsSecondPrefix() string {
	if p == PassOverlay {
		return "colorsOverlayFree["
	}
	return "colorsOverlay["
}

func (p Pass) palettesPrefix() string {
	if p == PassOverlay {
		return "palettesOverlay["
	}
	return "palettesBG["
}

func (p Pass) usesPalettePrefix() string {
	if p == PassOverlay {
		return "usesPaletteOverlay["
	}
	return "usesPaletteBG["
}

// Limits carries the scalar bounds of one model instance.
type Limits struct {
	CellColorLimit        int
	MaxBackgroundPalettes int
	MaxSpritePalettes     int
	MaxRowSize            int
}

// Request describes one solve: the layer to decompose, the bounds, and the
// solver time limit in seconds (0 disables the limit).
type Request struct {
	Pass    Pass
	Layer   *grid.Layer
	Limits  Limits
	Timeout int
}

// Solution is a parsed solver assignment. Layers and palette indices are
// shaped like the request layer; palette contents and indices are local to
// the pass's palette pool.
type Solution struct {
	First          *grid.Layer
	Second         *grid.Layer
	Palettes       []grid.ColorSet
	PaletteIndices *grid.Array2D[uint8]
}
