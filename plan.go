package lvglsys

import (
	"fmt"
	"path/filepath"

	"github.com/contriboss/lvgl-sys-go/bindgen"
	"github.com/contriboss/lvgl-sys-go/internal/shell"
)

// Define is a preprocessor definition passed to the compiler and the
// binding generator.
type Define = bindgen.Define

// Names of the files a build produces.
const (
	ArchiveName  = "liblvgl.a"
	BindingsName = "bindings.go"
	WidgetsName  = "widgets.go"
	HeaderName   = "lvgl_sys.h"
	TickName     = "tick.go"

	tickHeaderName = "lvgl_sys_tick.h"
	tickFunction   = "lvgl_sys_tick_get"
	buildDirName   = "build"
)

// Invocation is everything needed to compile LVGL and generate bindings
// for one configuration. It is built once by Plan and never changes;
// accessors return copies.
type Invocation struct {
	features    Features
	sourceDir   string
	config      ConfigHeader
	includeDirs []string
	defines     []Define
	sources     []string
	flags       []string
	toolchain   *Toolchain
	env         map[string]string
	buildDir    string
}

// Plan resolves cfg into an Invocation using the standard toolchains.
func Plan(cfg *BuildConfig) (*Invocation, error) {
	return plan(cfg, NewToolchainFactory())
}

func plan(cfg *BuildConfig, toolchains *ToolchainFactory) (*Invocation, error) {
	cfg = cfg.withDefaults()

	sourceDir, err := LocateSource(cfg)
	if err != nil {
		return nil, err
	}

	header, err := ResolveConfigHeader(cfg, sourceDir)
	if err != nil {
		return nil, err
	}

	if cfg.Features.HostTimer && cfg.Features.CustomTimer {
		Logger().Warn("rust_timer and custom_timer both selected, using the tick from lv_conf.h")
	}

	tc, err := toolchains.For(cfg.Toolchain)
	if err != nil {
		return nil, configError("plan", err)
	}
	tc = tc.WithOverrides(cfg.Compiler, cfg.Archiver)

	sources, err := CollectSources(sourceDir, cfg.Features.Drivers)
	if err != nil {
		return nil, configError("plan", err)
	}
	if len(sources) == 0 {
		return nil, configError("plan", fmt.Errorf("no C sources under %s", filepath.Join(sourceDir, "lvgl", "src")))
	}

	outDir, err := filepath.Abs(cfg.OutDir)
	if err != nil {
		return nil, configError("plan", err)
	}

	inv := &Invocation{
		features:  cfg.Features,
		sourceDir: sourceDir,
		config:    header,
		sources:   sources,
		flags:     append(tc.DefaultFlags(), cfg.CFlags...),
		toolchain: tc,
		env:       cfg.Env,
		buildDir:  filepath.Join(outDir, buildDirName),
	}

	inv.includeDirs = []string{header.Dir, sourceDir, filepath.Join(sourceDir, "lvgl")}
	if cfg.Features.Drivers {
		inv.includeDirs = append(inv.includeDirs, filepath.Join(sourceDir, "lv_drivers"))
	}
	if cfg.Features.HostTick() {
		inv.includeDirs = append(inv.includeDirs, inv.GeneratedDir())
	}
	inv.includeDirs = uniqueStrings(inv.includeDirs)

	inv.defines = []Define{{Name: "LV_CONF_INCLUDE_SIMPLE", Value: "1"}}
	if cfg.Features.Drivers {
		inv.defines = append(inv.defines, Define{Name: "LV_LVGL_H_INCLUDE_SIMPLE", Value: "1"})
	}
	if cfg.Features.CustomTick() {
		inv.defines = append(inv.defines, Define{Name: "LV_TICK_CUSTOM", Value: "1"})
	}
	if cfg.Features.HostTick() {
		inv.defines = append(inv.defines,
			Define{Name: "LV_TICK_CUSTOM_INCLUDE", Value: `"` + tickHeaderName + `"`},
			Define{Name: "LV_TICK_CUSTOM_SYS_TIME_EXPR", Value: "(" + tickFunction + "())"},
		)
	}

	return inv, nil
}

// Features returns the features the invocation was planned for.
func (inv *Invocation) Features() Features {
	return inv.features
}

// SourceDir returns the vendored source tree.
func (inv *Invocation) SourceDir() string {
	return inv.sourceDir
}

// ConfigHeader returns the resolved lv_conf.h location.
func (inv *Invocation) ConfigHeader() ConfigHeader {
	return inv.config
}

// IncludeDirs returns the include path in search order.
func (inv *Invocation) IncludeDirs() []string {
	return append([]string(nil), inv.includeDirs...)
}

// Defines returns the preprocessor definitions in command line order.
func (inv *Invocation) Defines() []Define {
	return append([]Define(nil), inv.defines...)
}

// Sources returns the C files to compile, sorted.
func (inv *Invocation) Sources() []string {
	return append([]string(nil), inv.sources...)
}

// Flags returns the toolchain defaults followed by user flags.
func (inv *Invocation) Flags() []string {
	return append([]string(nil), inv.flags...)
}

// CompilerFlags returns every flag a compiler call gets: Flags, then -I
// for each include directory, then -D for each define.
func (inv *Invocation) CompilerFlags() []string {
	flags := inv.Flags()
	for _, dir := range inv.includeDirs {
		flags = append(flags, "-I"+dir)
	}
	for _, d := range inv.defines {
		flags = append(flags, d.Flag())
	}
	return flags
}

// Toolchain returns the toolchain the invocation compiles with.
func (inv *Invocation) Toolchain() *Toolchain {
	return inv.toolchain
}

// BuildDir holds intermediate files: objects, the archive and generated
// headers. It is not an artifact. It stays in place after a failed build,
// so build/liblvgl.a may be newer than OutDir/liblvgl.a. Clean removes it.
func (inv *Invocation) BuildDir() string {
	return inv.buildDir
}

// ObjectDir is where object files are written.
func (inv *Invocation) ObjectDir() string {
	return filepath.Join(inv.buildDir, "obj")
}

// GeneratedDir is where generated C headers are written.
func (inv *Invocation) GeneratedDir() string {
	return filepath.Join(inv.buildDir, "include")
}

// ArchivePath is where the archiver writes liblvgl.a.
func (inv *Invocation) ArchivePath() string {
	return filepath.Join(inv.buildDir, ArchiveName)
}

// Object returns the object file a source compiles to.
func (inv *Invocation) Object(source string) string {
	rel, err := filepath.Rel(inv.sourceDir, source)
	if err != nil {
		rel = filepath.Base(source)
	}
	return filepath.Join(inv.ObjectDir(), objectName(rel))
}

// Objects returns the object files in source order.
func (inv *Invocation) Objects() []string {
	objects := make([]string, len(inv.sources))
	for i, src := range inv.sources {
		objects[i] = inv.Object(src)
	}
	return objects
}

// Commands returns every compiler call followed by the archiver call.
func (inv *Invocation) Commands() ([]shell.Command, error) {
	flags := inv.CompilerFlags()

	cmds := make([]shell.Command, 0, len(inv.sources)+1)
	for _, src := range inv.sources {
		cmd, err := inv.toolchain.CompileCommand(flags, src, inv.Object(src), inv.env)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}

	archive, err := inv.toolchain.ArchiveCommand(inv.ArchivePath(), inv.Objects(), inv.env)
	if err != nil {
		return nil, err
	}
	return append(cmds, archive), nil
}

// HeaderPath is the generated lvgl_sys.h the bindings are generated from.
func (inv *Invocation) HeaderPath() string {
	return filepath.Join(inv.GeneratedDir(), HeaderName)
}

// RequiredSymbols are the functions the bindings must contain.
func (inv *Invocation) RequiredSymbols() []string {
	required := []string{"lv_init"}
	if !inv.features.CustomTick() {
		required = append(required, "lv_tick_inc")
	}
	return required
}
