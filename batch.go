package overlaypal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jroweboy/OverlayPal/cmpl"
	"github.com/jroweboy/OverlayPal/grid"
)

// Batch converts every PNG under a directory tree on a pool of workers.
// Image decoding and output writing are injected so the conversion core
// stays independent of file format choices.
type Batch struct {
	// ExecPath is the solver installation directory.
	ExecPath string

	// WorkPath receives the solver work files. Every worker owns a
	// subdirectory of it, so concurrent solves never share files.
	WorkPath string

	// Cache, when non-nil, is shared by all workers.
	Cache *cmpl.Cache

	// Workers is the number of concurrent conversions. Values below 1
	// run a single worker.
	Workers int

	// Config carries the conversion limits. BackgroundColor is replaced
	// per image by the value Load returns.
	Config Config

	// Load reads one input image and its background color.
	Load func(path string) (*grid.Image, uint8, error)

	// Emit writes the conversion outputs for one converted input.
	Emit func(path string, o *Optimiser) error

	// Logger may be nil.
	Logger *log.Logger
}

func (b *Batch) findImages(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
			if info.Name()[0] == '.' {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() {
				return nil
			}

			if !strings.EqualFold(filepath.Ext(file), ".png") {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (b *Batch) imageWorker(ctx context.Context, workPath string, in <-chan string) (<-chan error, error) {
	if err := os.MkdirAll(workPath, 0o777); err != nil {
		return nil, err
	}

	logger := b.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	o := New(cmpl.NewRunner(b.ExecPath, workPath, b.Cache, b.Logger), b.Logger)

	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			image, background, err := b.Load(file)
			if err != nil {
				errc <- fmt.Errorf("%s: %w", file, err)
				return
			}

			cfg := b.Config
			cfg.BackgroundColor = background
			advisory, err := o.Convert(ctx, image, cfg)
			if err != nil {
				errc <- fmt.Errorf("%s: %w", file, err)
				return
			}
			if advisory != "" {
				logger.Printf("%s: %s", file, advisory)
			}

			if err := b.Emit(file, o); err != nil {
				errc <- fmt.Errorf("%s: %w", file, err)
				return
			}
		}
	}()
	return errc, nil
}

// Run converts every PNG under path. The first failing conversion cancels
// the remaining work and its error is returned.
func (b *Batch) Run(ctx context.Context, path string) error {
	if b.Load == nil || b.Emit == nil {
		return errors.New("overlaypal: batch needs Load and Emit functions")
	}

	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := b.findImages(ctx, dir)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	workers := b.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		errc, err := b.imageWorker(ctx, filepath.Join(b.WorkPath, fmt.Sprintf("worker%d", i)), files)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(errcList...)
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
