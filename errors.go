package lvglsys

import (
	"errors"
	"fmt"
	"strings"

	"github.com/contriboss/lvgl-sys-go/internal/shell"
)

// Failure kinds. Every error returned by a build stage matches exactly one
// of them with errors.Is.
var (
	// ErrConfigurationMissing means lv_conf.h (or lv_drv_conf.h) could not
	// be found and no vendored default was selected, or the configuration
	// asked for something that cannot be satisfied.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrCompilationFailed means the compiler or archiver exited non-zero.
	ErrCompilationFailed = errors.New("compilation failed")

	// ErrBindingGenerationFailed means the headers could not be
	// preprocessed or parsed, or a required symbol is missing.
	ErrBindingGenerationFailed = errors.New("binding generation failed")
)

// Exit statuses reported by StageError.ExitStatus.
const (
	exitConfigurationMissing    = 2
	exitCompilationFailed       = 3
	exitBindingGenerationFailed = 4
)

// StageError is a failed pipeline stage. Output holds the diagnostics of
// the tool that failed, verbatim.
type StageError struct {
	Kind   error    // one of the Err* kinds
	Stage  string   // e.g. "compile", "bindings"
	Output []string // tool output lines
	Err    error    // underlying cause
}

// Error formats the failure with the captured tool output appended.
//
// Format:
//
//	compile: compilation failed: exit status 1
//
//	Build output:
//	lv_obj.c:12:3: error: unknown type name 'lv_foo_t'
func (e *StageError) Error() string {
	prefix := fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	if e.Err != nil {
		prefix = fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
	}

	if out := strings.TrimRight(strings.Join(e.Output, "\n"), "\n"); out != "" {
		return fmt.Sprintf("%s\n\nBuild output:\n%s", prefix, out)
	}
	return prefix
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ExitStatus is the process exit code for this failure. It satisfies the
// interface mg.ExitStatus and mage's runner look for.
func (e *StageError) ExitStatus() int {
	switch e.Kind {
	case ErrConfigurationMissing:
		return exitConfigurationMissing
	case ErrCompilationFailed:
		return exitCompilationFailed
	case ErrBindingGenerationFailed:
		return exitBindingGenerationFailed
	}
	return 1
}

// ExitStatus returns the exit code for err: 0 for nil, the stage status for
// a StageError and whatever the process runner reported otherwise.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var se *StageError
	if errors.As(err, &se) {
		return se.ExitStatus()
	}
	return shell.ExitStatus(err)
}

func configError(stage string, err error) error {
	return &StageError{Kind: ErrConfigurationMissing, Stage: stage, Err: err}
}

// splitOutput turns raw tool output into lines, dropping a trailing newline.
func splitOutput(out []byte) []string {
	s := strings.TrimRight(string(out), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
