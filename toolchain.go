package lvglsys

import (
	"fmt"
	"strings"

	"github.com/contriboss/lvgl-sys-go/internal/shell"
)

// Toolchain describes how to compile C sources and archive the objects.
//
// Commands are templates. Supported placeholders:
//
//	{{flags}}  - every compiler flag, expanded in place (own argument)
//	{{input}}  - the source file
//	{{output}} - the object file or archive
//	{{inputs}} - every object file, expanded in place (own argument)
//
// # Example: GNU
//
//	gnu := NewToolchain(&ToolchainConfig{
//	    Name:                 "gnu",
//	    Compiler:             []string{"cc"},
//	    CompilerAlternatives: []string{"gcc", "clang"},
//	    CompileArgs:          []string{"{{flags}}", "-c", "{{input}}", "-o", "{{output}}"},
//	    Archiver:             []string{"ar"},
//	    ArchiveArgs:          []string{"rcs", "{{output}}", "{{inputs}}"},
//	})
type Toolchain struct {
	name                 string
	compiler             []string
	compilerAlternatives []string
	compileArgs          []string
	archiver             []string
	archiverAlternatives []string
	archiveArgs          []string
	defaultFlags         []string
}

var _ ToolChecker = (*Toolchain)(nil)

// ToolchainConfig defines configuration for a Toolchain.
type ToolchainConfig struct {
	// Name is the name used to select the toolchain (e.g., "gnu", "zig").
	Name string

	// Compiler is the compiler program and any leading arguments, for
	// example ["zig", "cc"].
	Compiler []string

	// CompilerAlternatives replace Compiler[0] when it is not on PATH.
	CompilerAlternatives []string

	// CompileArgs is the argument template for compiling one source.
	CompileArgs []string

	// Archiver is the archiver program and any leading arguments.
	Archiver []string

	// ArchiverAlternatives replace Archiver[0] when it is not on PATH.
	ArchiverAlternatives []string

	// ArchiveArgs is the argument template for creating the archive.
	ArchiveArgs []string

	// DefaultFlags are passed to every compiler call before user flags.
	DefaultFlags []string
}

// NewToolchain creates a Toolchain from configuration.
func NewToolchain(config *ToolchainConfig) *Toolchain {
	return &Toolchain{
		name:                 config.Name,
		compiler:             append([]string(nil), config.Compiler...),
		compilerAlternatives: append([]string(nil), config.CompilerAlternatives...),
		compileArgs:          append([]string(nil), config.CompileArgs...),
		archiver:             append([]string(nil), config.Archiver...),
		archiverAlternatives: append([]string(nil), config.ArchiverAlternatives...),
		archiveArgs:          append([]string(nil), config.ArchiveArgs...),
		defaultFlags:         append([]string(nil), config.DefaultFlags...),
	}
}

// NewGNUToolchain uses the host cc and ar. LVGL is noisy under modern
// compilers, so warnings are silenced by default.
func NewGNUToolchain() *Toolchain {
	return NewToolchain(&ToolchainConfig{
		Name:                 "gnu",
		Compiler:             []string{"cc"},
		CompilerAlternatives: []string{"gcc", "clang"},
		CompileArgs:          []string{"{{flags}}", "-c", "{{input}}", "-o", "{{output}}"},
		Archiver:             []string{"ar"},
		ArchiverAlternatives: []string{"llvm-ar"},
		ArchiveArgs:          []string{"rcs", "{{output}}", "{{inputs}}"},
		DefaultFlags:         []string{"-O2", "-w"},
	})
}

// NewZigToolchain uses zig as a drop-in C compiler and archiver, which
// makes cross-compiling the archive a matter of adding -target to CFlags.
func NewZigToolchain() *Toolchain {
	return NewToolchain(&ToolchainConfig{
		Name:        "zig",
		Compiler:    []string{"zig", "cc"},
		CompileArgs: []string{"{{flags}}", "-c", "{{input}}", "-o", "{{output}}"},
		Archiver:    []string{"zig", "ar"},
		ArchiveArgs: []string{"rcs", "{{output}}", "{{inputs}}"},
		// zig cc enables UBSan in debug builds; LVGL trips it.
		DefaultFlags: []string{"-O2", "-w", "-fno-sanitize=undefined"},
	})
}

// Name returns the toolchain name.
func (t *Toolchain) Name() string {
	return t.name
}

// Compiler returns the compiler program and its leading arguments.
func (t *Toolchain) Compiler() []string {
	return append([]string(nil), t.compiler...)
}

// Archiver returns the archiver program and its leading arguments.
func (t *Toolchain) Archiver() []string {
	return append([]string(nil), t.archiver...)
}

// DefaultFlags returns the flags passed to every compiler call.
func (t *Toolchain) DefaultFlags() []string {
	return append([]string(nil), t.defaultFlags...)
}

// RequiredTools returns the tools needed by this toolchain.
func (t *Toolchain) RequiredTools() []ToolRequirement {
	var tools []ToolRequirement
	if len(t.compiler) > 0 {
		tools = append(tools, ToolRequirement{
			Name:         t.compiler[0],
			Alternatives: t.compilerAlternatives,
			Purpose:      "C compiler",
		})
	}
	if len(t.archiver) > 0 && (len(t.compiler) == 0 || t.archiver[0] != t.compiler[0]) {
		tools = append(tools, ToolRequirement{
			Name:         t.archiver[0],
			Alternatives: t.archiverAlternatives,
			Purpose:      "static library archiver",
		})
	}
	return tools
}

// CheckTools verifies that all required tools are available.
func (t *Toolchain) CheckTools() error {
	return CheckRequiredTools(t.RequiredTools())
}

// WithOverrides returns a copy whose compiler and archiver are replaced by
// the given command lines, as found in $CC and $AR. Empty strings keep the
// toolchain's own programs.
func (t *Toolchain) WithOverrides(compiler, archiver string) *Toolchain {
	c := *t
	if fields := strings.Fields(compiler); len(fields) > 0 {
		c.compiler = fields
		c.compilerAlternatives = nil
	}
	if fields := strings.Fields(archiver); len(fields) > 0 {
		c.archiver = fields
		c.archiverAlternatives = nil
	}
	return &c
}

// Resolve returns a copy whose programs are the ones actually found on
// PATH, falling back through the alternatives.
func (t *Toolchain) Resolve() (*Toolchain, error) {
	if err := t.CheckTools(); err != nil {
		return nil, err
	}

	c := *t
	if len(t.compiler) > 0 {
		name, err := FindTool(ToolRequirement{Name: t.compiler[0], Alternatives: t.compilerAlternatives})
		if err != nil {
			return nil, err
		}
		c.compiler = append([]string{name}, t.compiler[1:]...)
	}
	if len(t.archiver) > 0 {
		name, err := FindTool(ToolRequirement{Name: t.archiver[0], Alternatives: t.archiverAlternatives})
		if err != nil {
			return nil, err
		}
		c.archiver = append([]string{name}, t.archiver[1:]...)
	}
	return &c, nil
}

// CompileCommand returns the command that compiles input into output.
func (t *Toolchain) CompileCommand(flags []string, input, output string, env map[string]string) (shell.Command, error) {
	if len(t.compiler) == 0 {
		return shell.Command{}, fmt.Errorf("no compiler configured for %s toolchain", t.name)
	}
	args := append(t.compiler[1:len(t.compiler):len(t.compiler)], expandTemplate(t.compileArgs, flags, input, output, nil)...)
	return shell.Command{Name: t.compiler[0], Args: args, Env: env}, nil
}

// ArchiveCommand returns the command that archives inputs into output.
func (t *Toolchain) ArchiveCommand(output string, inputs []string, env map[string]string) (shell.Command, error) {
	if len(t.archiver) == 0 {
		return shell.Command{}, fmt.Errorf("no archiver configured for %s toolchain", t.name)
	}
	args := append(t.archiver[1:len(t.archiver):len(t.archiver)], expandTemplate(t.archiveArgs, nil, "", output, inputs)...)
	return shell.Command{Name: t.archiver[0], Args: args, Env: env}, nil
}

func expandTemplate(template, flags []string, input, output string, inputs []string) []string {
	var args []string
	for _, arg := range template {
		switch arg {
		case "{{flags}}":
			args = append(args, flags...)
			continue
		case "{{inputs}}":
			args = append(args, inputs...)
			continue
		}
		arg = strings.ReplaceAll(arg, "{{input}}", input)
		arg = strings.ReplaceAll(arg, "{{output}}", output)
		args = append(args, arg)
	}
	return args
}
