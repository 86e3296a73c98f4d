package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	overlaypal "github.com/jroweboy/OverlayPal"
	"github.com/jroweboy/OverlayPal/chr"
	"github.com/jroweboy/OverlayPal/grid"
	"github.com/jroweboy/OverlayPal/imgio"
)

// outputPath names one output file of a conversion. The convert command
// places outputs in a directory; the batch command derives sibling names
// from each input file.
type outputPath func(name string) string

func outputDir(dir string) outputPath {
	return func(name string) string {
		return filepath.Join(dir, name)
	}
}

func outputSibling(input string) outputPath {
	prefix := strings.TrimSuffix(input, filepath.Ext(input))
	return func(name string) string {
		return prefix + "-" + name
	}
}

func writeFile(name string, write func(io.Writer) error) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeOutputs writes every export of a completed conversion. The layer
// images and the palette file always come out; the hardware tables are
// skipped with a note on notes when the result does not fit them.
func writeOutputs(o *overlaypal.Optimiser, path outputPath, transparent bool, notes io.Writer) error {
	palettes := o.Palettes()
	background := o.BackgroundColor()

	images := []struct {
		name        string
		image       *grid.Image
		transparent bool
	}{
		{"background.png", o.OutputImageBackground(), transparent},
		{"overlay-grid.png", o.OutputImageOverlayGrid(), transparent},
		{"overlay-free.png", o.OutputImageOverlayFree(), transparent},
		{"combined.png", o.OutputImage(), false},
	}
	for _, im := range images {
		err := writeFile(path(im.name), func(w io.Writer) error {
			return imgio.EncodePNG(w, imgio.RenderRemapped(im.image, palettes, background, im.transparent))
		})
		if err != nil {
			return err
		}
	}

	if err := writeFile(path("palettes.pal"), func(w io.Writer) error {
		return imgio.WritePal(w, palettes, background)
	}); err != nil {
		return err
	}

	if tables, err := chr.Background(o.OutputImageBackground(), o.PaletteIndicesBackground()); err != nil {
		fmt.Fprintf(notes, "background tables skipped: %v\n", err)
	} else {
		if err := writeFile(path("background.chr"), func(w io.Writer) error {
			return chr.WriteCHR(w, tables.Tiles)
		}); err != nil {
			return err
		}
		if err := writeFile(path("background.nam"), tables.WriteNam); err != nil {
			return err
		}
	}

	sprites := o.SpritesOverlay()
	tiles, entries, err := chr.Sprites(o.OutputImageOverlay(), sprites, o.SpriteHeight())
	if err != nil {
		fmt.Fprintf(notes, "sprite tables skipped: %v\n", err)
		return nil
	}
	if err := writeFile(path("sprites.chr"), func(w io.Writer) error {
		return chr.WriteCHR(w, tiles)
	}); err != nil {
		return err
	}
	if err := writeFile(path("sprites.oam"), func(w io.Writer) error {
		return chr.WriteOAM(w, entries)
	}); err != nil {
		return err
	}
	return writeFile(path("sprites.json"), func(w io.Writer) error {
		return writeManifest(w, o, sprites, entries)
	})
}

// spriteManifest describes the sprite export for tools that consume the
// raw tables.
type spriteManifest struct {
	SpriteHeight int            `json:"spriteHeight"`
	Background   uint8          `json:"background"`
	Palettes     [][]uint8      `json:"palettes"`
	Sprites      []spriteObject `json:"sprites"`
}

type spriteObject struct {
	X       int   `json:"x"`
	Y       int   `json:"y"`
	Palette uint8 `json:"palette"`
	Tile    uint8 `json:"tile"`
}

func writeManifest(w io.Writer, o *overlaypal.Optimiser, sprites []overlaypal.Sprite, entries []chr.OAMEntry) error {
	m := spriteManifest{
		SpriteHeight: o.SpriteHeight(),
		Background:   o.BackgroundColor(),
		Palettes:     make([][]uint8, 0, len(o.Palettes())),
		Sprites:      make([]spriteObject, 0, len(entries)),
	}
	for _, p := range o.Palettes() {
		colors := p.Colors()
		if colors == nil {
			colors = []uint8{}
		}
		m.Palettes = append(m.Palettes, colors)
	}
	for i, e := range entries {
		m.Sprites = append(m.Sprites, spriteObject{
			X:       sprites[i].X,
			Y:       sprites[i].Y,
			Palette: sprites[i].Palette,
			Tile:    e.Tile,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
