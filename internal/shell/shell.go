// Package shell runs the external programs a build needs (compiler,
// archiver, preprocessor) and captures their combined output.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/magefile/mage/sh"
)

// Runner executes a program and returns everything it wrote to stdout and
// stderr, interleaved in the order it was produced.
//
// Implementations must not modify args.
type Runner interface {
	Run(ctx context.Context, env map[string]string, name string, args ...string) ([]byte, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, env map[string]string, name string, args ...string) ([]byte, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, env map[string]string, name string, args ...string) ([]byte, error) {
	return f(ctx, env, name, args...)
}

// Mage runs programs through mage's sh package, which layers env over the
// process environment and reports exit codes that mg.ExitStatus understands.
//
// Two limits come with sh.Exec:
//   - It expands $VAR and ${VAR} in every argument against env and the
//     process environment. Run refuses arguments containing '$' rather
//     than pass them on altered.
//   - It takes no context. ctx is checked before the program starts; a
//     running program is not stopped when ctx is canceled.
type Mage struct{}

// Run executes name with args.
func (Mage) Run(ctx context.Context, env map[string]string, name string, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, a := range args {
		if strings.Contains(a, "$") {
			return nil, fmt.Errorf("%s: argument %q contains '$', which sh.Exec would expand", name, a)
		}
	}

	var out bytes.Buffer
	// sh.Exec expands in place, so it gets its own copy.
	argv := append([]string(nil), args...)

	ran, err := sh.Exec(env, &out, &out, name, argv...)
	if err != nil && !ran {
		return out.Bytes(), fmt.Errorf("failed to start %s: %w", name, err)
	}
	return out.Bytes(), err
}

// ExitStatus reports the exit code carried by err, 0 for nil and 1 for
// errors without one.
func ExitStatus(err error) int {
	return sh.ExitStatus(err)
}

// Command is a fully resolved program invocation.
type Command struct {
	Name string
	Args []string
	Env  map[string]string
}

// Run executes c with r.
func (c Command) Run(ctx context.Context, r Runner) ([]byte, error) {
	return r.Run(ctx, c.Env, c.Name, c.Args...)
}

// String renders c the way it would be typed in a shell, environment first.
func (c Command) String() string {
	var parts []string

	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+quote(c.Env[k]))
	}

	parts = append(parts, quote(c.Name))
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\"'()$\\") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}
