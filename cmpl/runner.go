package cmpl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// The time limit handed to the solver is a soft limit on branch-and-cut
// time only; model build and solution write happen outside it. The process
// itself is killed this many seconds after the soft limit.
const solverGraceSeconds = 30

// Runner invokes the external solver binary. execPath is the solver
// installation directory holding Cmpl/bin/cmpl and the per-pass model
// programs; workPath receives the generated run program, data file and
// solution file. A Runner must not be shared between concurrent solves
// because the work file names are fixed.
type Runner struct {
	execPath string
	workPath string
	cache    *Cache
	logger   *log.Logger
}

// NewRunner returns a runner rooted at the given solver installation and
// work directory. cache may be nil to disable solution caching.
func NewRunner(execPath, workPath string, cache *Cache, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Runner{
		execPath: execPath,
		workPath: workPath,
		cache:    cache,
		logger:   logger,
	}
}

// Solve writes the model data for req, runs the pass's model program and
// returns the parsed assignment. When req.Timeout is non-zero an option
// directive is prepended to the program copy; the solver command line has
// no working time limit switch, but the program file may carry one.
func (r *Runner) Solve(ctx context.Context, req Request) (*Solution, error) {
	dataPath := filepath.Join(r.workPath, req.Pass.dataFilename())
	runPath := filepath.Join(r.workPath, req.Pass.runFilename())
	csvPath := filepath.Join(r.workPath, req.Pass.solutionFilename())

	// A stale solution from an earlier run must never be parsed as fresh.
	for _, name := range []string{dataPath, runPath, csvPath} {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("cmpl: removing %s: %w", name, err)
		}
	}

	var data bytes.Buffer
	if err := WriteModelData(&data, req.Layer, req.Limits); err != nil {
		return nil, fmt.Errorf("cmpl: serialising model data: %w", err)
	}
	if err := os.WriteFile(dataPath, data.Bytes(), 0o666); err != nil {
		return nil, fmt.Errorf("cmpl: writing model data: %w", err)
	}

	program, err := os.ReadFile(filepath.Join(r.execPath, req.Pass.ProgramFilename()))
	if err != nil {
		return nil, fmt.Errorf("cmpl: reading model program: %w", err)
	}
	var run bytes.Buffer
	if req.Timeout != 0 {
		fmt.Fprintf(&run, "%%opt cbc seconds %d\n", req.Timeout)
	}
	run.Write(program)
	if err := os.WriteFile(runPath, run.Bytes(), 0o666); err != nil {
		return nil, fmt.Errorf("cmpl: writing run program: %w", err)
	}

	key := solveKey(run.Bytes(), data.Bytes())
	csv, err := r.cachedSolution(key)
	if err != nil {
		return nil, err
	}
	if csv != nil {
		r.logger.Printf("%s: solution cache hit", req.Pass)
		if err := os.WriteFile(csvPath, csv, 0o666); err != nil {
			return nil, fmt.Errorf("cmpl: writing cached solution: %w", err)
		}
	} else {
		if err := r.run(ctx, req, runPath, csvPath); err != nil {
			return nil, err
		}
		if csv, err = os.ReadFile(csvPath); err != nil {
			return nil, fmt.Errorf("cmpl: reading solution: %w", err)
		}
	}

	sol, err := ParseSolution(bytes.NewReader(csv), req.Pass, req.Layer)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		if err := r.cache.Put(key, csv); err != nil {
			return nil, err
		}
	}
	return sol, nil
}

func (r *Runner) cachedSolution(key string) ([]byte, error) {
	if r.cache == nil {
		return nil, nil
	}
	return r.cache.Get(key)
}

func (r *Runner) run(ctx context.Context, req Request, runPath, csvPath string) error {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Timeout+solverGraceSeconds)*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, filepath.Join(r.execPath, "Cmpl", "bin", "cmpl"),
		"-i", runPath, "-solutionCsv", csvPath)
	cmd.Dir = r.workPath

	r.logger.Printf("%s: running %s", req.Pass, strings.Join(cmd.Args, " "))
	start := time.Now()
	out, err := cmd.CombinedOutput()
	r.logger.Printf("%s: solver finished in %v", req.Pass, time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("cmpl: solver aborted: %w", ctx.Err())
		}
		if len(out) > 0 {
			r.logger.Printf("%s: solver output:\n%s", req.Pass, out)
		}
		return fmt.Errorf("cmpl: non-zero exit from solver: %w", err)
	}
	return nil
}
