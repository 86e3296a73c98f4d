package main

import (
	"context"
	"fmt"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"os"
	"path/filepath"

	overlaypal "github.com/jroweboy/OverlayPal"
	"github.com/jroweboy/OverlayPal/cmpl"
	"github.com/jroweboy/OverlayPal/grid"
	"github.com/jroweboy/OverlayPal/imgio"
	"github.com/urfave/cli/v2"
)

// version is overridden at build time.
var version = "develop"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func conversionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "background",
			Value: -1,
			Usage: "background color index, -1 to detect from the image",
		},
		&cli.IntFlag{
			Name:  "cell-width",
			Value: 16,
			Usage: "background attribute cell width",
		},
		&cli.IntFlag{
			Name:  "cell-height",
			Value: 16,
			Usage: "background attribute cell height",
		},
		&cli.IntFlag{
			Name:  "sprite-height",
			Value: 16,
			Usage: "hardware sprite height, 8 or 16",
		},
		&cli.IntFlag{
			Name:  "cell-colors",
			Value: 3,
			Usage: "color limit per cell and palette",
		},
		&cli.IntFlag{
			Name:  "bg-palettes",
			Value: overlaypal.NumBackgroundPalettes,
			Usage: "background palettes to use, 0 for sprite-only output",
		},
		&cli.IntFlag{
			Name:  "sprite-palettes",
			Value: overlaypal.NumSpritePalettes,
			Usage: "sprite palettes to use",
		},
		&cli.IntFlag{
			Name:  "max-sprites-per-scanline",
			Value: 8,
			Usage: "sprites per scanline before the result is flagged",
		},
		&cli.IntFlag{
			Name:  "timeout",
			Value: 30,
			Usage: "solver time limit in seconds per pass, 0 for none",
		},
		&cli.IntFlag{
			Name:  "max-colors",
			Value: imgio.DefaultMaxColors,
			Usage: "color budget when quantizing true-color input",
		},
		&cli.StringFlag{
			Name:  "quantizer",
			Value: "mediancut",
			Usage: "true-color quantizer, mediancut or kmeans",
		},
		&cli.BoolFlag{
			Name:  "transparent",
			Usage: "render layer images with a transparent background",
		},
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func conversionConfig(c *cli.Context) overlaypal.Config {
	return overlaypal.Config{
		CellWidth:             c.Int("cell-width"),
		CellHeight:            c.Int("cell-height"),
		SpriteHeight:          c.Int("sprite-height"),
		CellColorLimit:        c.Int("cell-colors"),
		MaxBackgroundPalettes: c.Int("bg-palettes"),
		MaxSpritePalettes:     c.Int("sprite-palettes"),
		MaxSpritesPerScanline: c.Int("max-sprites-per-scanline"),
		Timeout:               c.Int("timeout"),
	}
}

func decodeOptions(c *cli.Context) (imgio.Options, error) {
	method, err := imgio.ParseMethod(c.String("quantizer"))
	if err != nil {
		return imgio.Options{}, err
	}
	return imgio.Options{
		Background: c.Int("background"),
		MaxColors:  c.Int("max-colors"),
		Method:     method,
	}, nil
}

func openCache(c *cli.Context) (*cmpl.Cache, error) {
	file := c.String("cache")
	if file == "" {
		return nil, nil
	}
	return cmpl.OpenCache(file)
}

func main() {
	app := cli.NewApp()

	app.Name = "overlaypal"
	app.Usage = "NES sprite overlay conversion utility"
	app.Version = version

	exe, err := os.Executable()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "solver",
			EnvVars: []string{"OVERLAYPAL_SOLVER"},
			Value:   filepath.Dir(exe),
			Usage:   "solver installation directory",
		},
		&cli.StringFlag{
			Name:    "work-dir",
			EnvVars: []string{"OVERLAYPAL_WORKDIR"},
			Value:   filepath.Join(os.TempDir(), "overlaypal"),
			Usage:   "directory for solver work files",
		},
		&cli.StringFlag{
			Name:    "cache",
			EnvVars: []string{"OVERLAYPAL_CACHE"},
			Usage:   "path to solution cache database, empty to disable",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "convert",
			Usage:     "Convert one image into layer and hardware exports",
			ArgsUsage: "INPUT OUTDIR",
			Flags:     conversionFlags(),
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				logger := newLogger(c)

				opts, err := decodeOptions(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				f, err := os.Open(c.Args().First())
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				image, background, err := imgio.Decode(f, opts)
				f.Close()
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				outDir := c.Args().Get(1)
				if err := os.MkdirAll(outDir, 0o777); err != nil {
					return cli.NewExitError(err, 1)
				}

				workPath := c.String("work-dir")
				if err := os.MkdirAll(workPath, 0o777); err != nil {
					return cli.NewExitError(err, 1)
				}

				cache, err := openCache(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				if cache != nil {
					defer cache.Close()
				}

				cfg := conversionConfig(c)
				cfg.BackgroundColor = background

				o := overlaypal.New(cmpl.NewRunner(c.String("solver"), workPath, cache, logger), logger)
				advisory, err := o.Convert(context.Background(), image, cfg)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				if advisory != "" {
					fmt.Fprintln(os.Stderr, advisory)
				}

				if err := writeOutputs(o, outputDir(outDir), c.Bool("transparent"), os.Stderr); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "batch",
			Usage:     "Convert every PNG under a directory",
			ArgsUsage: "DIRECTORY",
			Flags: append(conversionFlags(), &cli.IntFlag{
				Name:  "workers",
				Value: 2,
				Usage: "concurrent conversions",
			}),
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				logger := newLogger(c)

				opts, err := decodeOptions(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				cache, err := openCache(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				if cache != nil {
					defer cache.Close()
				}

				transparent := c.Bool("transparent")
				b := &overlaypal.Batch{
					ExecPath: c.String("solver"),
					WorkPath: c.String("work-dir"),
					Cache:    cache,
					Workers:  c.Int("workers"),
					Config:   conversionConfig(c),
					Load: func(path string) (*grid.Image, uint8, error) {
						f, err := os.Open(path)
						if err != nil {
							return nil, 0, err
						}
						defer f.Close()
						return imgio.Decode(f, opts)
					},
					Emit: func(path string, o *overlaypal.Optimiser) error {
						return writeOutputs(o, outputSibling(path), transparent, os.Stderr)
					},
					Logger: logger,
				}

				if err := b.Run(context.Background(), c.Args().First()); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
