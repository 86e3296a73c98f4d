package cmpl

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jroweboy/OverlayPal/grid"
)

const noSolutionMarker = "No solution has been found"

// ParseSolution reads a solver solution file and assembles the assignment
// for the given pass. like supplies the shape of the solved layer; the
// returned layers and palette index grid match its dimensions.
//
// The file is line oriented. The first line must contain "Problem;".
// Variable lines have the form "name[i0,i1,...];B;value"; the activity
// marker sometimes degrades to ";I;" when the solver reclassifies binary
// variables as integer, and activity values may carry a fractional tail.
// Only an activity of exactly 1 contributes to the assignment. Lines with
// unknown variable names are skipped.
func ParseSolution(r io.Reader, pass Pass, like *grid.Layer) (*Solution, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("cmpl: reading solution: %w", err)
		}
		return nil, fmt.Errorf("%w: empty solution file", ErrBadSolution)
	}
	if !strings.Contains(scanner.Text(), "Problem;") {
		return nil, fmt.Errorf("%w: missing problem header", ErrBadSolution)
	}

	sol := &Solution{
		First:          grid.NewLayer(like.BackgroundColor(), like.CellWidth(), like.CellHeight(), like.Width(), like.Height()),
		Second:         grid.NewLayer(like.BackgroundColor(), like.CellWidth(), like.CellHeight(), like.Width(), like.Height()),
		PaletteIndices: grid.NewArray2D[uint8](like.Width(), like.Height()),
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, noSolutionMarker):
			return nil, ErrNoSolution

		case strings.HasPrefix(line, pass.colorsFirstPrefix()):
			x, y, c, active, err := cellColorValue(line, like)
			if err != nil {
				return nil, err
			}
			if active {
				sol.First.At(x, y).Colors.Insert(c)
			}

		case strings.HasPrefix(line, pass.colorsSecondPrefix()):
			x, y, c, active, err := cellColorValue(line, like)
			if err != nil {
				return nil, err
			}
			if active {
				sol.Second.At(x, y).Colors.Insert(c)
			}

		case strings.HasPrefix(line, pass.palettesPrefix()):
			indices, value, err := solutionValue(line)
			if err != nil {
				return nil, err
			}
			if len(indices) != 2 {
				return nil, fmt.Errorf("%w: palette variable arity %d", ErrBadSolution, len(indices))
			}
			if value != 1 {
				continue
			}
			p, c := indices[0], indices[1]
			if p < 0 || c < 0 || c > 255 {
				return nil, fmt.Errorf("%w: palette index out of range", ErrBadSolution)
			}
			for p >= len(sol.Palettes) {
				sol.Palettes = append(sol.Palettes, grid.ColorSet{})
			}
			sol.Palettes[p].Insert(uint8(c))

		case strings.HasPrefix(line, pass.usesPalettePrefix()):
			indices, value, err := solutionValue(line)
			if err != nil {
				return nil, err
			}
			if len(indices) != 3 {
				return nil, fmt.Errorf("%w: uses-palette variable arity %d", ErrBadSolution, len(indices))
			}
			if value != 1 {
				continue
			}
			x, y, p := indices[0], indices[1], indices[2]
			if x < 0 || x >= like.Width() || y < 0 || y >= like.Height() || p < 0 || p > 255 {
				return nil, fmt.Errorf("%w: uses-palette index out of range", ErrBadSolution)
			}
			sol.PaletteIndices.Set(x, y, uint8(p))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cmpl: reading solution: %w", err)
	}
	return sol, nil
}

func cellColorValue(line string, like *grid.Layer) (x, y int, c uint8, active bool, err error) {
	indices, value, err := solutionValue(line)
	if err != nil {
		return 0, 0, 0, false, err
	}
	if len(indices) != 3 {
		return 0, 0, 0, false, fmt.Errorf("%w: cell color variable arity %d", ErrBadSolution, len(indices))
	}
	x, y, ci := indices[0], indices[1], indices[2]
	if x < 0 || x >= like.Width() || y < 0 || y >= like.Height() || ci < 0 || ci > 255 {
		return 0, 0, 0, false, fmt.Errorf("%w: cell color index out of range", ErrBadSolution)
	}
	return x, y, uint8(ci), value == 1, nil
}

// solutionValue splits one variable line into its bracketed indices and its
// activity value.
func solutionValue(line string) ([]int, int, error) {
	i := strings.Index(line, "[")
	j := strings.Index(line, "]")
	activity := strings.Index(line, ";B;")
	if activity < 0 {
		activity = strings.Index(line, ";I;")
	}
	if i < 0 || j < 0 || activity < 0 || i > j {
		return nil, 0, fmt.Errorf("%w: malformed variable line %q", ErrBadSolution, line)
	}

	var indices []int
	for _, field := range strings.Split(line[i+1:j], ",") {
		i, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, 0, fmt.Errorf("%w: bad variable index %q", ErrBadSolution, field)
		}
		indices = append(indices, i)
	}

	value, err := leadingInt(line[activity+3:])
	if err != nil {
		return nil, 0, fmt.Errorf("%w: bad activity in line %q", ErrBadSolution, line)
	}
	return indices, value, nil
}

// leadingInt parses the integer prefix of s, tolerating a fractional tail
// such as "1.000000".
func leadingInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return strconv.Atoi(s[:end])
}
