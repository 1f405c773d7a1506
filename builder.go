package lvglsys

import (
	"context"

	"github.com/contriboss/lvgl-sys-go/bindgen"
	"github.com/contriboss/lvgl-sys-go/internal/shell"
)

// Runner executes the compiler, archiver and preprocessor. The default
// runs programs through mage's sh package; tests substitute a fake.
type Runner = shell.Runner

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc = shell.RunnerFunc

// stage is one step of the build pipeline.
//
// # Stage Lifecycle
//
//  1. skip() - the orchestrator asks whether the configuration needs the stage
//  2. run() - the stage reads and extends the shared build state
//
// Stages run strictly in order and the first failure stops the build. A
// stage reports failures as *StageError so the caller can tell the three
// failure kinds apart.
//
// # Pipeline
//
//	plan     -> Invocation (ConfigurationMissing)
//	headers  -> lvgl_sys.h, lvgl_sys_tick.h in the build dir
//	compile  -> objects and liblvgl.a (CompilationFailed)
//	bindings -> bindings.go, tick.go in the staging dir (BindingGenerationFailed)
//	widgets  -> widgets.go, skipped with raw-bindings
//	emit     -> staging dir moved into OutDir
type stage struct {
	name string
	skip func(cfg *BuildConfig) bool
	run  func(ctx context.Context, b *build) error
}

// build is the state shared by the stages of one Build call.
type build struct {
	cfg        *BuildConfig
	runner     Runner
	toolchains *ToolchainFactory
	result     *BuildResult

	inv      *Invocation
	header   *bindgen.Header // filtered declarations, set by the bindings stage
	stageDir string          // staging directory inside OutDir
	staged   []string        // file names written to stageDir, in write order
}

var pipeline = []stage{
	{name: "plan", run: planStage},
	{name: "headers", run: headersStage},
	{name: "compile", run: compileStage},
	{name: "bindings", run: bindingsStage},
	{name: "widgets", run: widgetsStage, skip: func(cfg *BuildConfig) bool { return cfg.Features.RawBindings }},
	{name: "emit", run: emitStage},
}

func planStage(_ context.Context, b *build) error {
	inv, err := plan(b.cfg, b.toolchains)
	if err != nil {
		return err
	}
	b.inv = inv
	b.result.Invocation = inv
	return nil
}

func compileStage(ctx context.Context, b *build) error {
	out, err := Compile(ctx, b.inv, CompileOptions{
		Runner:  b.runner,
		Jobs:    b.cfg.Jobs,
		Verbose: b.cfg.Verbose,
	})
	b.result.Output = append(b.result.Output, out...)
	return err
}
