package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	overlaypal "github.com/jroweboy/OverlayPal"
	"github.com/jroweboy/OverlayPal/cmpl"
	"github.com/jroweboy/OverlayPal/grid"
)

func TestOutputNaming(t *testing.T) {
	dir := outputDir(filepath.Join("out", "frames"))
	assert.Equal(t, filepath.Join("out", "frames", "background.png"), dir("background.png"))

	sibling := outputSibling(filepath.Join("art", "title.png"))
	assert.Equal(t, filepath.Join("art", "title-background.png"), sibling("background.png"))
}

func convertBlank(t *testing.T, width, height int) *overlaypal.Optimiser {
	t.Helper()

	o := overlaypal.New(cmpl.NewRunner("", t.TempDir(), nil, nil), nil)
	_, err := o.Convert(context.Background(), grid.NewImage(width, height), overlaypal.Config{
		CellWidth:             16,
		CellHeight:            16,
		SpriteHeight:          16,
		CellColorLimit:        3,
		MaxBackgroundPalettes: 4,
		MaxSpritePalettes:     4,
		MaxSpritesPerScanline: 8,
	})
	require.NoError(t, err)
	return o
}

func fileSize(t *testing.T, name string) int64 {
	t.Helper()
	info, err := os.Stat(name)
	require.NoError(t, err)
	return info.Size()
}

func TestWriteOutputsBlankScreen(t *testing.T) {
	o := convertBlank(t, 256, 240)
	dir := t.TempDir()

	var notes bytes.Buffer
	require.NoError(t, writeOutputs(o, outputDir(dir), false, &notes))

	assert.Empty(t, notes.String())
	for _, name := range []string{
		"background.png", "overlay-grid.png", "overlay-free.png", "combined.png",
	} {
		assert.NotZero(t, fileSize(t, filepath.Join(dir, name)))
	}

	// One blank background tile; no sprites at all.
	assert.Equal(t, int64(32), fileSize(t, filepath.Join(dir, "palettes.pal")))
	assert.Equal(t, int64(16), fileSize(t, filepath.Join(dir, "background.chr")))
	assert.Equal(t, int64(1024), fileSize(t, filepath.Join(dir, "background.nam")))
	assert.Equal(t, int64(0), fileSize(t, filepath.Join(dir, "sprites.chr")))
	assert.Equal(t, int64(0), fileSize(t, filepath.Join(dir, "sprites.oam")))

	raw, err := os.ReadFile(filepath.Join(dir, "sprites.json"))
	require.NoError(t, err)
	var manifest spriteManifest
	require.NoError(t, json.Unmarshal(raw, &manifest))
	assert.Equal(t, 16, manifest.SpriteHeight)
	assert.Len(t, manifest.Palettes, 8)
	assert.Empty(t, manifest.Sprites)
}

func TestWriteOutputsSkipsBackgroundTables(t *testing.T) {
	o := convertBlank(t, 64, 32)
	dir := t.TempDir()

	var notes bytes.Buffer
	require.NoError(t, writeOutputs(o, outputDir(dir), true, &notes))

	assert.Contains(t, notes.String(), "background tables skipped")
	_, err := os.Stat(filepath.Join(dir, "background.chr"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "background.nam"))
	assert.True(t, os.IsNotExist(err))

	// The sprite export does not depend on the screen size.
	assert.Equal(t, int64(0), fileSize(t, filepath.Join(dir, "sprites.chr")))
}
