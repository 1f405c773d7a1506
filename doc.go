// Package lvglsys compiles the vendored LVGL graphics library into a
// static archive and generates cgo bindings for it.
//
// It is the Go counterpart of a -sys crate build script: everything it
// produces is derived from configuration on every run, and nothing of
// LVGL's rendering, layout or widget logic lives here.
//
// # Pipeline
//
// A build runs these stages in order and stops at the first failure:
//
//	plan      resolve lv_conf.h, the toolchain and the source list
//	headers   write the lvgl_sys.h shim (and the tick header)
//	compile   one compiler call per source, then the archiver
//	bindings  preprocess, parse, filter and emit bindings.go
//	widgets   wrapper types for every lv_<name>_create widget
//	emit      move the staged artifacts into the output directory
//
// # Basic Usage
//
//	cfg := &lvglsys.BuildConfig{
//	    SourceDir: "vendor",
//	    OutDir:    "lvgl",
//	    Features:  lvglsys.Features{UseVendoredConfig: true, Library: true},
//	    Jobs:      runtime.NumCPU(),
//	}
//
//	result, err := lvglsys.Build(ctx, cfg)
//	if errors.Is(err, lvglsys.ErrConfigurationMissing) {
//	    // point DEP_LV_CONFIG_PATH at a directory holding lv_conf.h
//	}
//
// # Features
//
//   - use-vendored-config - use include/lv_conf.h from the vendored tree
//   - drivers - compile lv_drivers and bind its headers
//   - rust_timer - LVGL reads its tick from Go (see SetTickSource in the
//     generated tick.go)
//   - custom_timer - LVGL reads its tick from the consumer's lv_conf.h
//   - library - the bindings link liblvgl.a themselves
//   - raw-bindings - skip the widget wrappers
//
// # Artifacts
//
// The output directory receives liblvgl.a, lvgl_sys.h, bindings.go and,
// depending on features, widgets.go, tick.go and lvgl_sys_tick.h. They are
// written to a staging directory first, so a failed build never leaves
// partial artifacts behind.
//
// # Requirements
//
// Requires Go 1.25 or later and a C toolchain (cc and ar, or zig). Binding
// generation alone can run without a compiler using the builtin
// preprocessor.
package lvglsys
