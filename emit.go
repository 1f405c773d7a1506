package lvglsys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const stagePrefix = ".stage-"

// artifactNames are every file a build can leave in OutDir.
var artifactNames = []string{ArchiveName, HeaderName, tickHeaderName, BindingsName, WidgetsName, TickName}

// openStage creates the staging directory inside OutDir, so the final
// renames never cross a filesystem boundary.
func (b *build) openStage() error {
	if b.stageDir != "" {
		return nil
	}
	if err := os.MkdirAll(b.cfg.OutDir, 0o755); err != nil {
		return err
	}
	dir, err := os.MkdirTemp(b.cfg.OutDir, stagePrefix)
	if err != nil {
		return err
	}
	b.stageDir = dir
	return nil
}

func (b *build) stageFile(name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(b.stageDir, name), data, 0o644); err != nil {
		return err
	}
	b.staged = append(b.staged, name)
	return nil
}

// discard removes the staging directory after a failed stage.
func (b *build) discard() {
	if b.stageDir == "" {
		return
	}
	if err := os.RemoveAll(b.stageDir); err != nil {
		Logger().Warn("failed to remove staging directory", "dir", b.stageDir, "error", err)
	}
	b.stageDir = ""
	b.staged = nil
}

// emitStage copies the archive next to the generated files and moves the
// staging directory's contents into OutDir. Artifacts of an earlier build
// that this configuration does not produce are removed.
func emitStage(_ context.Context, b *build) error {
	if err := b.openStage(); err != nil {
		return emitError(err)
	}
	if err := copyFile(b.inv.ArchivePath(), filepath.Join(b.stageDir, ArchiveName)); err != nil {
		return emitError(err)
	}
	b.staged = append(b.staged, ArchiveName)

	produced := make(map[string]bool, len(b.staged))
	for _, name := range b.staged {
		produced[name] = true
	}

	// Nothing in OutDir changes until every destination is known to be
	// replaceable.
	if err := checkDestinations(b.cfg.OutDir); err != nil {
		return emitError(err)
	}

	for _, name := range artifactNames {
		if produced[name] {
			continue
		}
		if err := os.Remove(filepath.Join(b.cfg.OutDir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return emitError(err)
		}
	}

	for _, name := range b.staged {
		if err := os.Rename(filepath.Join(b.stageDir, name), filepath.Join(b.cfg.OutDir, name)); err != nil {
			return emitError(err)
		}
	}
	if err := os.Remove(b.stageDir); err != nil {
		return emitError(err)
	}
	b.stageDir = ""

	outDir, err := filepath.Abs(b.cfg.OutDir)
	if err != nil {
		return emitError(err)
	}
	path := func(name string) string {
		if !produced[name] {
			return ""
		}
		return filepath.Join(outDir, name)
	}

	r := b.result
	r.Archive = path(ArchiveName)
	r.Header = path(HeaderName)
	r.Bindings = path(BindingsName)
	r.Widgets = path(WidgetsName)
	r.Tick = path(TickName)

	Logger().Info("emitted artifacts", "dir", outDir, "files", r.Artifacts())
	return nil
}

// checkDestinations fails when an artifact path in outDir holds something
// a rename or remove cannot replace.
func checkDestinations(outDir string) error {
	for _, name := range artifactNames {
		path := filepath.Join(outDir, name)
		info, err := os.Lstat(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
	}
	return nil
}

func emitError(err error) error {
	return bindingsError("emit", nil, fmt.Errorf("emitting artifacts: %w", err))
}

// clean removes the artifacts, the build directory and any staging
// directory left behind by an interrupted build.
func clean(outDir string) error {
	var errs []error
	for _, name := range artifactNames {
		if err := os.Remove(filepath.Join(outDir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	if err := os.RemoveAll(filepath.Join(outDir, buildDirName)); err != nil {
		errs = append(errs, err)
	}

	stages, err := filepath.Glob(filepath.Join(outDir, stagePrefix+"*"))
	if err != nil {
		errs = append(errs, err)
	}
	for _, dir := range stages {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func copyFile(srcPath, destPath string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		return err
	}

	dir := filepath.Dir(destPath)
	if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
		return mkErr
	}

	in, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
