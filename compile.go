package lvglsys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/contriboss/lvgl-sys-go/internal/shell"
)

// CompileOptions control Compile.
type CompileOptions struct {
	// Runner executes the toolchain. Nil runs the programs found on PATH
	// through mage's sh package.
	Runner Runner

	// Jobs bounds concurrent compiler processes. Values below 1 mean 1.
	Jobs int

	// Verbose logs every command at info instead of debug level.
	Verbose bool
}

// Compile compiles every source of inv into inv.ObjectDir() and archives
// the objects into inv.ArchivePath().
//
// # Process Flow
//
//  1. Resolve the toolchain programs on PATH (only with the default runner)
//  2. Run one compiler call per source, at most Jobs at a time
//  3. Replace any previous archive with a fresh one
//
// The first compiler failure stops the remaining calls. The returned lines
// are the tool output in source order, whether or not the build failed.
//
// # Errors
//
// Every failure is a *StageError of kind ErrCompilationFailed whose Output
// is the failing tool's diagnostics, verbatim.
func Compile(ctx context.Context, inv *Invocation, opts CompileOptions) ([]string, error) {
	runner := opts.Runner
	if runner == nil {
		tc, err := inv.toolchain.Resolve()
		if err != nil {
			return nil, compileError(nil, err)
		}
		resolved := *inv
		resolved.toolchain = tc
		inv = &resolved
		runner = shell.Mage{}
	}

	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}

	level := slog.LevelDebug
	if opts.Verbose {
		level = slog.LevelInfo
	}

	cmds, err := inv.Commands()
	if err != nil {
		return nil, compileError(nil, err)
	}
	compiles, archive := cmds[:len(cmds)-1], cmds[len(cmds)-1]

	if err := os.MkdirAll(inv.ObjectDir(), 0o755); err != nil {
		return nil, compileError(nil, err)
	}

	outputs := make([][]byte, len(compiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, cmd := range compiles {
		src := inv.sources[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			Logger().Log(gctx, level, "compiling", "source", src, "command", cmd.String())
			out, err := cmd.Run(gctx, runner)
			outputs[i] = out
			if err != nil {
				return compileError(out, fmt.Errorf("%s: %w", relSource(inv, src), err))
			}
			return nil
		})
	}
	err = g.Wait()

	var lines []string
	for _, out := range outputs {
		lines = append(lines, splitOutput(out)...)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return lines, ctxErr
		}
		var se *StageError
		if errors.As(err, &se) {
			return lines, err
		}
		return lines, compileError(nil, err)
	}

	if err := os.Remove(inv.ArchivePath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return lines, compileError(nil, err)
	}

	Logger().Log(ctx, level, "archiving", "archive", inv.ArchivePath(), "objects", len(compiles), "command", archive.String())
	out, err := archive.Run(ctx, runner)
	lines = append(lines, splitOutput(out)...)
	if err != nil {
		return lines, compileError(out, fmt.Errorf("%s: %w", filepath.Base(inv.ArchivePath()), err))
	}

	Logger().Info("compiled LVGL", "sources", len(compiles), "archive", inv.ArchivePath())
	return lines, nil
}

func compileError(out []byte, err error) error {
	return &StageError{Kind: ErrCompilationFailed, Stage: "compile", Output: splitOutput(out), Err: err}
}

func relSource(inv *Invocation, src string) string {
	if rel, err := filepath.Rel(inv.sourceDir, src); err == nil {
		return filepath.ToSlash(rel)
	}
	return src
}
