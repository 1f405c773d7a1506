package bindgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"modernc.org/cc/v4"

	"github.com/contriboss/lvgl-sys-go/internal/shell"
)

// ErrUnresolvedInclude is returned when a quoted #include names a file that
// is neither next to the including file nor on the include path.
var ErrUnresolvedInclude = errors.New("unresolved include")

// IncludeError reports an #include that could not be resolved.
type IncludeError struct {
	Name string // as written between the quotes
	From string // including file
	Line int
}

func (e *IncludeError) Error() string {
	return fmt.Sprintf("%s:%d: %s: %q", e.From, e.Line, ErrUnresolvedInclude, e.Name)
}

func (e *IncludeError) Unwrap() error {
	return ErrUnresolvedInclude
}

// Request describes one translation unit to preprocess.
type Request struct {
	Header      string   // header to preprocess, usually the lvgl_sys.h shim
	IncludeDirs []string // searched in order
	Defines     []Define
}

// Preprocessor turns a header into a self-contained translation unit with
// every directive resolved.
type Preprocessor interface {
	// Name identifies the preprocessor in configuration and logs.
	Name() string

	// Preprocess returns the expanded translation unit. On failure the
	// returned error is a *PreprocessError carrying any diagnostics.
	Preprocess(ctx context.Context, req Request) (string, error)
}

// PreprocessError wraps a preprocessor failure together with everything
// the preprocessor printed.
type PreprocessError struct {
	Preprocessor string
	Output       []byte
	Err          error
}

func (e *PreprocessError) Error() string {
	if len(e.Output) == 0 {
		return fmt.Sprintf("%s preprocessor: %v", e.Preprocessor, e.Err)
	}
	return fmt.Sprintf("%s preprocessor: %v\n%s", e.Preprocessor, e.Err, e.Output)
}

func (e *PreprocessError) Unwrap() error {
	return e.Err
}

// CCPreprocessor runs the C compiler in preprocess-only mode (-E -P).
type CCPreprocessor struct {
	// Runner executes the compiler. Nil means shell.Mage.
	Runner shell.Runner

	// Command is the compiler invocation without flags, for example
	// ["cc"] or ["zig", "cc"].
	Command []string

	// Flags are passed before the preprocessing flags.
	Flags []string

	// Env is layered over the process environment.
	Env map[string]string
}

// Name returns "cc".
func (p *CCPreprocessor) Name() string {
	return "cc"
}

// Args returns the full argument list for req, without the program name.
func (p *CCPreprocessor) Args(req Request) []string {
	var args []string
	if len(p.Command) > 1 {
		args = append(args, p.Command[1:]...)
	}
	args = append(args, p.Flags...)
	args = append(args, "-E", "-P")
	for _, dir := range req.IncludeDirs {
		args = append(args, "-I"+dir)
	}
	for _, d := range req.Defines {
		args = append(args, d.Flag())
	}
	return append(args, req.Header)
}

// Preprocess runs the compiler and returns its standard output.
func (p *CCPreprocessor) Preprocess(ctx context.Context, req Request) (string, error) {
	if len(p.Command) == 0 {
		return "", &PreprocessError{Preprocessor: p.Name(), Err: errors.New("no compiler configured")}
	}

	runner := p.Runner
	if runner == nil {
		runner = shell.Mage{}
	}

	out, err := runner.Run(ctx, p.Env, p.Command[0], p.Args(req)...)
	if err != nil {
		return "", &PreprocessError{Preprocessor: p.Name(), Output: out, Err: err}
	}
	return string(out), nil
}

// BuiltinPreprocessor expands headers in-process with the modernc.org/cc
// preprocessor. It needs no toolchain, which makes binding generation
// possible on hosts that can only cross-compile. The C library headers LVGL
// includes come from a small built-in set; other system headers are read
// as empty.
type BuiltinPreprocessor struct{}

// Name returns "builtin".
func (BuiltinPreprocessor) Name() string {
	return "builtin"
}

// Preprocess expands req.Header. Quoted includes are searched next to the
// including file and then on req.IncludeDirs; angle includes on
// req.IncludeDirs and then the built-in C library headers.
func (p BuiltinPreprocessor) Preprocess(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &PreprocessError{Preprocessor: p.Name(), Err: err}
	}

	abi := hostABI()
	once := pragmaOnce{}
	cfg := &cc.Config{
		ABI:             abi,
		FS:              sysHeaders{},
		IncludePaths:    append([]string{""}, req.IncludeDirs...),
		SysIncludePaths: append(append([]string(nil), req.IncludeDirs...), sysIncludeDir),
		PragmaHandler:   once.handle,
	}
	sources := []cc.Source{
		{Name: "<predefined>", Value: predefined(abi)},
		{Name: "<command-line>", Value: commandLine(req.Defines)},
		{Name: req.Header},
	}

	var out strings.Builder
	err := cc.Preprocess(cfg, sources, ctxWriter{ctx: ctx, w: &out})
	if err == nil {
		return out.String(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", &PreprocessError{Preprocessor: p.Name(), Err: ctxErr}
	}

	diag := []byte(err.Error())
	if inc := includeError(err.Error()); inc != nil {
		return "", &PreprocessError{Preprocessor: p.Name(), Output: diag, Err: inc}
	}
	return "", &PreprocessError{Preprocessor: p.Name(), Output: diag, Err: errors.New("preprocessing failed")}
}

func commandLine(defines []Define) string {
	var b strings.Builder
	for _, d := range defines {
		fmt.Fprintf(&b, "#define %s %s\n", d.Name, d.MacroValue())
	}
	return b.String()
}

// pragmaOnce skips every file that said "#pragma once" the second time it
// is included.
type pragmaOnce map[string]bool

func (seen pragmaOnce) handle(toks []cc.Token) error {
	var words []cc.Token
	for _, tok := range toks {
		if strings.TrimSpace(tok.SrcStr()) != "" {
			words = append(words, tok)
		}
	}
	if len(words) != 1 || words[0].SrcStr() != "once" {
		return nil
	}
	file := filepath.Clean(words[0].Position().Filename)
	if seen[file] {
		return cc.SkipSource
	}
	seen[file] = true
	return nil
}

// ctxWriter stops preprocessing at the next token once ctx is done.
type ctxWriter struct {
	ctx context.Context
	w   io.Writer
}

func (w ctxWriter) Write(p []byte) (int, error) {
	if err := w.ctx.Err(); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}

// includeError finds the first "include file not found" diagnostic, which
// cc reports as file:line:col: include file not found: "name".
func includeError(diag string) *IncludeError {
	for _, line := range strings.Split(diag, "\n") {
		pos, raw, ok := strings.Cut(line, ": include file not found: ")
		if !ok {
			continue
		}

		inc := &IncludeError{Name: strings.Trim(raw, `"<> `), From: pos}
		if col := strings.LastIndexByte(pos, ':'); col > 0 {
			if ln := strings.LastIndexByte(pos[:col], ':'); ln > 0 {
				if n, err := strconv.Atoi(pos[ln+1 : col]); err == nil {
					inc.From, inc.Line = pos[:ln], n
				}
			}
		}
		return inc
	}
	return nil
}
