package lvglsys

import (
	"context"
	"time"
)

// Orchestrator runs the build pipeline: resolve the configuration header,
// compile LVGL, generate bindings and emit the artifacts.
//
// # Usage
//
//	cfg, err := lvglsys.ConfigFromEnv(nil)
//	if err != nil {
//	    return err
//	}
//	result, err := lvglsys.New().Build(ctx, cfg)
//
// # Failure
//
// The first failing stage stops the build. Nothing is moved into OutDir
// unless every stage succeeded, and the returned error matches exactly one
// of ErrConfigurationMissing, ErrCompilationFailed and
// ErrBindingGenerationFailed.
//
// # Thread Safety
//
// An Orchestrator is safe for concurrent use as long as concurrent builds
// use different output directories.
type Orchestrator struct {
	runner     Runner
	toolchains *ToolchainFactory
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRunner replaces the process runner used for the compiler, archiver
// and cc preprocessor. Tool lookup on PATH is skipped when a runner is
// given.
func WithRunner(r Runner) Option {
	return func(o *Orchestrator) {
		o.runner = r
	}
}

// WithToolchains replaces the standard toolchain factory.
func WithToolchains(f *ToolchainFactory) Option {
	return func(o *Orchestrator) {
		o.toolchains = f
	}
}

// New creates an Orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{toolchains: NewToolchainFactory()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Plan resolves cfg into an Invocation without running anything.
func (o *Orchestrator) Plan(cfg *BuildConfig) (*Invocation, error) {
	return plan(cfg, o.toolchains)
}

// Build runs every stage for cfg.
//
// Returns:
//   - BuildResult with Success=true and the artifact paths on success
//   - BuildResult with Success=false and Error on failure, together with
//     the same error
//
// BuildResult.Output holds the compiler and archiver output either way.
func (o *Orchestrator) Build(ctx context.Context, cfg *BuildConfig) (*BuildResult, error) {
	b := &build{
		cfg:        cfg.withDefaults(),
		runner:     o.runner,
		toolchains: o.toolchains,
		result:     &BuildResult{Output: []string{}},
	}

	started := time.Now()
	Logger().Info("build started", "features", b.cfg.Features.String(), "out", b.cfg.OutDir)

	for _, s := range pipeline {
		if s.skip != nil && s.skip(b.cfg) {
			Logger().Debug("stage skipped", "stage", s.name)
			continue
		}

		if err := ctx.Err(); err != nil {
			return b.fail(err)
		}

		stageStart := time.Now()
		Logger().Debug("stage started", "stage", s.name)
		if err := s.run(ctx, b); err != nil {
			Logger().Error("stage failed", "stage", s.name, "error", err)
			return b.fail(err)
		}
		Logger().Debug("stage finished", "stage", s.name, "elapsed", time.Since(stageStart))
	}

	b.result.Success = true
	Logger().Info("build finished", "elapsed", time.Since(started))
	return b.result, nil
}

func (b *build) fail(err error) (*BuildResult, error) {
	b.discard()
	b.result.Error = err
	return b.result, err
}

// Clean removes the artifacts and intermediate files of cfg's output
// directory. The vendored sources are never touched.
func (o *Orchestrator) Clean(ctx context.Context, cfg *BuildConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg = cfg.withDefaults()
	if err := clean(cfg.OutDir); err != nil {
		return err
	}
	Logger().Info("cleaned", "out", cfg.OutDir)
	return nil
}

// Build runs the pipeline with the standard toolchains and the programs
// found on PATH.
func Build(ctx context.Context, cfg *BuildConfig) (*BuildResult, error) {
	return New().Build(ctx, cfg)
}

// Clean removes everything Build put in cfg.OutDir.
func Clean(ctx context.Context, cfg *BuildConfig) error {
	return New().Clean(ctx, cfg)
}
