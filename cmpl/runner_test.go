package cmpl

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Exercises the whole Solve path short of process invocation by priming the
// cache with the solution the solver would have produced.
func TestRunnerSolveCacheHit(t *testing.T) {
	execDir := t.TempDir()
	workDir := t.TempDir()
	program := []byte("parameters { }\nobjectives { }\n")
	require.NoError(t, os.WriteFile(filepath.Join(execDir, PassBackground.ProgramFilename()), program, 0o666))

	cache, err := OpenCache(filepath.Join(t.TempDir(), "solutions.db"))
	require.NoError(t, err)
	defer cache.Close()

	layer := testLayer(t)
	req := Request{
		Pass:  PassBackground,
		Layer: layer,
		Limits: Limits{
			CellColorLimit:        3,
			MaxBackgroundPalettes: 4,
			MaxSpritePalettes:     4,
			MaxRowSize:            16,
		},
		Timeout: 10,
	}

	var data bytes.Buffer
	require.NoError(t, WriteModelData(&data, layer, req.Limits))
	run := append([]byte("%opt cbc seconds 10\n"), program...)
	csv := strings.Join([]string{
		"Problem;overlaypal-pass1.cmpl",
		"colorsBG[0,0,5];B;1",
		"colorsBG[0,0,6];B;1",
		"colorsOverlay[1,0,9];B;1",
		"palettesBG[0,5];B;1",
		"palettesBG[0,6];B;1",
		"usesPaletteBG[0,0,0];B;1",
		"",
	}, "\n")
	require.NoError(t, cache.Put(solveKey(run, data.Bytes()), []byte(csv)))

	r := NewRunner(execDir, workDir, cache, nil)
	sol, err := r.Solve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []uint8{5, 6}, sol.First.At(0, 0).Colors.Colors())
	assert.Equal(t, []uint8{9}, sol.Second.At(1, 0).Colors.Colors())
	require.Len(t, sol.Palettes, 1)
	assert.Equal(t, []uint8{5, 6}, sol.Palettes[0].Colors())

	// Work files appear on disk exactly as a real solve would leave them.
	gotData, err := os.ReadFile(filepath.Join(workDir, "overlaypal-pass1.cdat"))
	require.NoError(t, err)
	assert.Equal(t, data.Bytes(), gotData)

	gotRun, err := os.ReadFile(filepath.Join(workDir, "overlaypal-pass1-run.cmpl"))
	require.NoError(t, err)
	assert.Equal(t, run, gotRun)

	gotCSV, err := os.ReadFile(filepath.Join(workDir, "overlaypal-pass1.csv"))
	require.NoError(t, err)
	assert.Equal(t, []byte(csv), gotCSV)
}

// Without a time limit no option directive is prepended and the run program
// is byte-identical to the installed model program.
func TestRunnerSolveNoTimeoutDirective(t *testing.T) {
	execDir := t.TempDir()
	workDir := t.TempDir()
	program := []byte("objectives { }\n")
	require.NoError(t, os.WriteFile(filepath.Join(execDir, PassOverlay.ProgramFilename()), program, 0o666))

	cache, err := OpenCache(filepath.Join(t.TempDir(), "solutions.db"))
	require.NoError(t, err)
	defer cache.Close()

	layer := testLayer(t)
	req := Request{
		Pass:   PassOverlay,
		Layer:  layer,
		Limits: Limits{CellColorLimit: 3, MaxSpritePalettes: 4, MaxRowSize: 64},
	}

	var data bytes.Buffer
	require.NoError(t, WriteModelData(&data, layer, req.Limits))
	csv := "Problem;overlaypal-pass2.cmpl\nusesPaletteOverlay[0,0,0];B;1\n"
	require.NoError(t, cache.Put(solveKey(program, data.Bytes()), []byte(csv)))

	r := NewRunner(execDir, workDir, cache, nil)
	_, err = r.Solve(context.Background(), req)
	require.NoError(t, err)

	gotRun, err := os.ReadFile(filepath.Join(workDir, "overlaypal-pass2-run.cmpl"))
	require.NoError(t, err)
	assert.Equal(t, program, gotRun)
}

func TestRunnerSolveMissingProgram(t *testing.T) {
	r := NewRunner(t.TempDir(), t.TempDir(), nil, nil)
	_, err := r.Solve(context.Background(), Request{
		Pass:   PassBackground,
		Layer:  testLayer(t),
		Limits: Limits{CellColorLimit: 3, MaxBackgroundPalettes: 4, MaxSpritePalettes: 4, MaxRowSize: 16},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model program")
}

// A stale solution file must not survive into a failed solve attempt.
func TestRunnerSolveRemovesStaleFiles(t *testing.T) {
	workDir := t.TempDir()
	stale := filepath.Join(workDir, "overlaypal-pass1.csv")
	require.NoError(t, os.WriteFile(stale, []byte("Problem;old\n"), 0o666))

	r := NewRunner(t.TempDir(), workDir, nil, nil)
	_, err := r.Solve(context.Background(), Request{
		Pass:   PassBackground,
		Layer:  testLayer(t),
		Limits: Limits{CellColorLimit: 3, MaxBackgroundPalettes: 4, MaxSpritePalettes: 4, MaxRowSize: 16},
	})
	require.Error(t, err)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}
