package lvglsys

import (
	"context"
	"errors"
	"fmt"
	"go/format"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/contriboss/lvgl-sys-go/bindgen"
	"github.com/contriboss/lvgl-sys-go/codegen"
)

const generator = "lvgl-sys-build"

// headersStage writes the C headers the rest of the build reads: the
// lvgl_sys.h shim bindings are generated from and, with the host timer,
// the tick declaration lv_tick.c includes.
func headersStage(_ context.Context, b *build) error {
	inv := b.inv
	if err := os.MkdirAll(inv.GeneratedDir(), 0o755); err != nil {
		return bindingsError("headers", nil, err)
	}

	shim, err := ShimHeader(inv)
	if err != nil {
		return bindingsError("headers", nil, err)
	}
	if err := os.WriteFile(inv.HeaderPath(), shim, 0o644); err != nil {
		return bindingsError("headers", nil, err)
	}

	tickPath := filepath.Join(inv.GeneratedDir(), tickHeaderName)
	if !inv.features.HostTick() {
		if err := os.Remove(tickPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return bindingsError("headers", nil, err)
		}
		return nil
	}
	if err := os.WriteFile(tickPath, []byte(tickHeader), 0o644); err != nil {
		return bindingsError("headers", nil, err)
	}
	return nil
}

// ShimHeader renders lvgl_sys.h: lvgl.h plus, with drivers, every driver
// header.
func ShimHeader(inv *Invocation) ([]byte, error) {
	var buf strings.Builder
	fmt.Fprintf(&buf, "/* Code generated by %s. DO NOT EDIT. */\n\n", generator)
	buf.WriteString("#ifndef LVGL_SYS_H\n#define LVGL_SYS_H\n\n")
	buf.WriteString("#include \"lvgl.h\"\n")

	if inv.features.Drivers {
		headers, err := driverHeaders(inv.sourceDir)
		if err != nil {
			return nil, err
		}
		for _, h := range headers {
			fmt.Fprintf(&buf, "#include %q\n", h)
		}
	}

	buf.WriteString("\n#endif /* LVGL_SYS_H */\n")
	return []byte(buf.String()), nil
}

const tickHeader = `/* Code generated by ` + generator + `. DO NOT EDIT. */

#ifndef LVGL_SYS_TICK_H
#define LVGL_SYS_TICK_H

#include <stdint.h>

uint32_t ` + tickFunction + `(void);

#endif /* LVGL_SYS_TICK_H */
`

// driverHeaders lists the lv_drivers headers relative to lv_drivers,
// sorted, with the slash separator the preprocessor expects.
func driverHeaders(sourceDir string) ([]string, error) {
	root := filepath.Join(sourceDir, "lv_drivers")

	var headers []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && isExcludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !MatchesExtension(d.Name(), ".h") || d.Name() == "lv_drv_conf_template.h" {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		headers = append(headers, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting driver headers: %w", err)
	}

	sort.Strings(headers)
	return headers, nil
}

// driverPatterns allows the functions of each driver header, which are
// named after the header (fbdev.h declares fbdev_init).
func driverPatterns(headers []string) []string {
	var patterns []string
	for _, h := range headers {
		base := strings.TrimSuffix(filepath.Base(h), filepath.Ext(h))
		patterns = append(patterns, "^"+regexp.QuoteMeta(base)+"_.*")
	}
	return uniqueStrings(patterns)
}

// bindingsStage preprocesses the shim header and renders bindings.go (and
// tick.go with the host timer) into the staging directory.
func bindingsStage(ctx context.Context, b *build) error {
	inv := b.inv

	pp, err := b.preprocessor()
	if err != nil {
		return configError("bindings", err)
	}

	patterns := append([]string{}, bindgen.DefaultAllowPatterns...)
	if inv.features.Drivers {
		headers, err := driverHeaders(inv.sourceDir)
		if err != nil {
			return bindingsError("bindings", nil, err)
		}
		patterns = append(patterns, driverPatterns(headers)...)
	}
	allow, err := bindgen.NewAllowList(append(patterns, b.cfg.Allow...)...)
	if err != nil {
		return configError("bindings", err)
	}

	req := bindgen.Request{
		Header:      inv.HeaderPath(),
		IncludeDirs: inv.IncludeDirs(),
		Defines:     inv.Defines(),
	}
	Logger().Debug("generating bindings", "preprocessor", pp.Name(), "header", req.Header)

	res, err := bindgen.Generate(ctx, pp, req, bindgen.GenerateOptions{
		Allow:    allow,
		Required: inv.RequiredSymbols(),
		Emit: bindgen.EmitOptions{
			Package:   b.cfg.PackageName,
			Header:    HeaderName,
			CFlags:    BindingCFlags(inv),
			LDFlags:   BindingLDFlags(inv),
			Generator: generator,
			OnSkip:    logSkip,
		},
	})
	if err != nil {
		var pe *bindgen.PreprocessError
		if errors.As(err, &pe) {
			return bindingsError("bindings", pe.Output, err)
		}
		return bindingsError("bindings", nil, err)
	}
	b.header = res.Header

	if err := b.openStage(); err != nil {
		return bindingsError("bindings", nil, err)
	}

	shim, err := os.ReadFile(inv.HeaderPath())
	if err != nil {
		return bindingsError("bindings", nil, err)
	}
	if err := b.stageFile(HeaderName, shim); err != nil {
		return bindingsError("bindings", nil, err)
	}
	if err := b.stageFile(BindingsName, res.Source); err != nil {
		return bindingsError("bindings", nil, err)
	}

	if inv.features.HostTick() {
		src, err := TickSource(b.cfg.PackageName)
		if err != nil {
			return bindingsError("bindings", nil, err)
		}
		if err := b.stageFile(tickHeaderName, []byte(tickHeader)); err != nil {
			return bindingsError("bindings", nil, err)
		}
		if err := b.stageFile(TickName, src); err != nil {
			return bindingsError("bindings", nil, err)
		}
	}

	Logger().Info("generated bindings",
		"functions", len(res.Header.Functions),
		"types", len(res.Header.TypeDefs)+len(res.Header.Structs),
		"enums", len(res.Header.Enums))
	return nil
}

// widgetsStage renders widgets.go from the declarations the bindings
// stage kept.
func widgetsStage(_ context.Context, b *build) error {
	widgets := codegen.Widgets(b.header)

	src, err := codegen.Emit(widgets, codegen.Options{
		Package:   b.cfg.PackageName,
		Header:    HeaderName,
		Generator: generator,
		OnSkip:    logSkip,
	})
	if err != nil {
		return bindingsError("widgets", nil, err)
	}
	if err := b.stageFile(WidgetsName, src); err != nil {
		return bindingsError("widgets", nil, err)
	}

	Logger().Info("generated widgets", "widgets", len(widgets))
	return nil
}

func (b *build) preprocessor() (bindgen.Preprocessor, error) {
	tc := b.inv.toolchain
	if b.runner == nil {
		if resolved, err := tc.Resolve(); err == nil {
			tc = resolved
		}
	}

	cc := &bindgen.CCPreprocessor{
		Runner:  b.runner,
		Command: tc.Compiler(),
		Flags:   b.inv.Flags(),
		Env:     b.cfg.Env,
	}
	return bindgen.NewPreprocessorFactory(cc).For(b.cfg.Preprocessor)
}

// compileOnlyDefines are only read by lv_tick.c. Their quoted and
// parenthesized values are not valid #cgo flags.
var compileOnlyDefines = map[string]bool{
	"LV_TICK_CUSTOM_INCLUDE":       true,
	"LV_TICK_CUSTOM_SYS_TIME_EXPR": true,
}

// BindingCFlags are the #cgo CFLAGS of bindings.go: the output directory
// for lvgl_sys.h, then the include path and defines the archive was
// compiled with, minus the ones only the tick source needs.
func BindingCFlags(inv *Invocation) []string {
	flags := []string{"-I${SRCDIR}"}
	for _, dir := range inv.includeDirs {
		if dir == inv.GeneratedDir() {
			continue
		}
		flags = append(flags, "-I"+dir)
	}
	for _, d := range inv.defines {
		if compileOnlyDefines[d.Name] {
			continue
		}
		flags = append(flags, d.Flag())
	}
	return flags
}

// BindingLDFlags link liblvgl.a from the output directory when the library
// feature is selected.
func BindingLDFlags(inv *Invocation) []string {
	if !inv.features.Library {
		return nil
	}
	return []string{"-L${SRCDIR}", "-llvgl"}
}

// TickSource renders tick.go, which exports the tick function lv_tick.c
// calls when the host timer is selected.
func TickSource(pkg string) ([]byte, error) {
	src := fmt.Sprintf(tickTemplate, generator, pkg, tickFunction, tickFunction)
	out, err := format.Source([]byte(src))
	if err != nil {
		return nil, fmt.Errorf("formatting tick source: %w", err)
	}
	return out, nil
}

const tickTemplate = `// Code generated by %s. DO NOT EDIT.

package %s

/*
#include <stdint.h>
*/
import "C"

import (
	"sync/atomic"
	"time"
)

var (
	tickStart  = time.Now()
	tickSource atomic.Pointer[func() uint32]
)

// SetTickSource replaces the millisecond clock LVGL reads. Nil restores
// the default, milliseconds since the program started.
func SetTickSource(f func() uint32) {
	if f == nil {
		tickSource.Store(nil)
		return
	}
	tickSource.Store(&f)
}

//export %s
func %s() C.uint32_t {
	if f := tickSource.Load(); f != nil {
		return C.uint32_t((*f)())
	}
	return C.uint32_t(time.Since(tickStart).Milliseconds())
}
`

func bindingsError(stage string, out []byte, err error) error {
	return &StageError{Kind: ErrBindingGenerationFailed, Stage: stage, Output: splitOutput(out), Err: err}
}

func logSkip(name, reason string) {
	Logger().Debug("skipped declaration", "name", name, "reason", reason)
}
