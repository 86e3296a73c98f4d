/*
Package imgio loads arbitrary images as NES-indexed images and renders
conversion results back to standard image formats.

Input images are reduced to master palette indices in two steps: true-color
input is first quantized down to a workable palette (median-cut or k-means),
then every palette entry snaps to its nearest master palette color. Already
paletted images within the color budget skip the quantizer entirely.
*/
package imgio

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"

	"github.com/cenkalti/dominantcolor"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/jroweboy/OverlayPal/grid"
	"github.com/jroweboy/OverlayPal/nespal"
)

// DefaultMaxColors is the usable color budget of a full conversion: eight
// palettes of three colors plus the shared background.
const DefaultMaxColors = 25

// Method selects the quantization strategy for true-color input.
type Method int

const (
	MethodMedianCut Method = iota
	MethodKMeans
)

func (m Method) String() string {
	if m == MethodKMeans {
		return "kmeans"
	}
	return "mediancut"
}

// ParseMethod returns the Method named by s.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "mediancut", "":
		return MethodMedianCut, nil
	case "kmeans":
		return MethodKMeans, nil
	}
	return 0, fmt.Errorf("imgio: unknown quantization method %q", s)
}

// Options control how an image is reduced to master palette indices.
type Options struct {
	// Background is the master palette index to use as the background
	// color, or -1 to detect it from the dominant image color.
	Background int

	// MaxColors caps the number of distinct indices in the result;
	// 0 means DefaultMaxColors.
	MaxColors int

	// Method picks the quantizer for true-color input.
	Method Method
}

// Decode reads an image from r and converts it. The PNG format is always
// registered; importers may register further formats.
func Decode(r io.Reader, opts Options) (*grid.Image, uint8, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, 0, fmt.Errorf("imgio: decode: %w", err)
	}
	return Convert(src, opts)
}

// Convert reduces m to master palette indices and returns the indexed
// image together with its background color index.
func Convert(m image.Image, opts Options) (*grid.Image, uint8, error) {
	var background uint8
	if opts.Background >= 0 {
		background = uint8(opts.Background) & (nespal.NumColors - 1)
	} else {
		background = nespal.Nearest(dominantcolor.Find(m))
	}

	maxColors := opts.MaxColors
	if maxColors <= 0 {
		maxColors = DefaultMaxColors
	}

	pm, ok := m.(*image.Paletted)
	if !ok || len(pm.Palette) > maxColors {
		palette, err := quantizePalette(m, maxColors, opts.Method)
		if err != nil {
			return nil, 0, err
		}
		pm = image.NewPaletted(m.Bounds(), palette)
		draw.Draw(pm, pm.Bounds(), m, m.Bounds().Min, draw.Src)
	}

	// The master palette holds several identical RGB entries (the blacks in
	// particular). Entries indistinguishable from the background color
	// collapse onto the background index so emptiness checks see them.
	bg := nespal.RGBA(background)
	lookup := make([]uint8, len(pm.Palette))
	for i, c := range pm.Palette {
		n := nespal.Nearest(c)
		if nespal.RGBA(n) == bg {
			n = background
		}
		lookup[i] = n
	}

	b := m.Bounds()
	indexed := grid.NewImage(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if _, _, _, a := m.At(b.Min.X+x, b.Min.Y+y).RGBA(); a == 0 {
				indexed.Set(x, y, background)
				continue
			}
			indexed.Set(x, y, lookup[pm.ColorIndexAt(pm.Bounds().Min.X+x, pm.Bounds().Min.Y+y)])
		}
	}
	return indexed, background, nil
}

func quantizePalette(m image.Image, maxColors int, method Method) (color.Palette, error) {
	if method == MethodKMeans {
		return kmeansPalette(m, maxColors)
	}
	q := quantize.MedianCutQuantizer{}
	p := q.Quantize(make(color.Palette, 0, maxColors), m)
	if len(p) == 0 {
		return nil, fmt.Errorf("imgio: median cut produced an empty palette")
	}
	return p, nil
}

// kmeansPalette clusters a subsample of the image pixels in RGB space and
// uses the cluster centers as the palette.
func kmeansPalette(m image.Image, maxColors int) (color.Palette, error) {
	b := m.Bounds()

	maxSamples := 12000
	step := 1
	if n := b.Dx() * b.Dy(); n > maxSamples {
		step = int(math.Sqrt(float64(n)/float64(maxSamples))) + 1
	}

	var dataset clusters.Observations
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r, g, bl, a := m.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			dataset = append(dataset, clusters.Coordinates{
				float64(r) / 65535.0,
				float64(g) / 65535.0,
				float64(bl) / 65535.0,
			})
		}
	}
	if len(dataset) == 0 {
		return nil, fmt.Errorf("imgio: no opaque pixels to cluster")
	}

	k := maxColors
	if k > len(dataset) {
		k = len(dataset)
	}
	km := kmeans.New()
	cc, err := km.Partition(dataset, k)
	if err != nil {
		return nil, fmt.Errorf("imgio: kmeans: %w", err)
	}

	p := make(color.Palette, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 {
			continue
		}
		p = append(p, color.RGBA{
			uint8(math.Round(c.Center[0] * 255)),
			uint8(math.Round(c.Center[1] * 255)),
			uint8(math.Round(c.Center[2] * 255)),
			0xff,
		})
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("imgio: kmeans produced an empty palette")
	}
	return p, nil
}
