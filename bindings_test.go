package lvglsys

import (
	"go/parser"
	"go/token"
	"reflect"
	"strings"
	"testing"
)

func TestShimHeader(t *testing.T) {
	testCases := []struct {
		name     string
		features Features
		includes []string
	}{
		{"default", Features{}, []string{`#include "lvgl.h"`}},
		{"drivers", Features{Drivers: true}, []string{`#include "lvgl.h"`, `#include "display/fbdev.h"`}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			inv, err := Plan(testConfig(t, tc.features))
			if err != nil {
				t.Fatalf("Plan failed: %v", err)
			}
			shim, err := ShimHeader(inv)
			if err != nil {
				t.Fatalf("ShimHeader failed: %v", err)
			}

			var includes []string
			for _, line := range strings.Split(string(shim), "\n") {
				if strings.HasPrefix(line, "#include") {
					includes = append(includes, line)
				}
			}
			if !reflect.DeepEqual(includes, tc.includes) {
				t.Errorf("Expected %v, got %v", tc.includes, includes)
			}
			if strings.Contains(string(shim), "lv_drv_conf_template.h") {
				t.Error("Expected the driver config template to be left out")
			}
		})
	}
}

func TestDriverPatterns(t *testing.T) {
	got := driverPatterns([]string{"display/fbdev.h", "indev/evdev.h", "display/fbdev.h", "gtkdrv/gtk+.h"})
	want := []string{`^fbdev_.*`, `^evdev_.*`, `^gtk\+_.*`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestBindingFlags(t *testing.T) {
	inv, err := Plan(testConfig(t, Features{HostTimer: true, Library: true}))
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	cflags := BindingCFlags(inv)
	if cflags[0] != "-I${SRCDIR}" {
		t.Errorf("Expected -I${SRCDIR} first, got %v", cflags)
	}
	for _, f := range cflags {
		if f == "-I"+inv.GeneratedDir() {
			t.Errorf("Expected the build directory to stay out of the bindings, got %v", cflags)
		}
	}
	for _, f := range cflags {
		if strings.ContainsAny(f, `"()`) {
			t.Errorf("Expected only flags cgo accepts, got %q", f)
		}
	}
	// The two tick defines only reach lv_tick.c.
	if len(cflags) != 1+len(inv.IncludeDirs())-1+len(inv.Defines())-2 {
		t.Errorf("Unexpected flag count: %v", cflags)
	}

	if got := BindingLDFlags(inv); !reflect.DeepEqual(got, []string{"-L${SRCDIR}", "-llvgl"}) {
		t.Errorf("Expected archive link flags, got %v", got)
	}

	inv, err = Plan(testConfig(t, Features{}))
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if got := BindingLDFlags(inv); got != nil {
		t.Errorf("Expected no link flags without the library feature, got %v", got)
	}
}

func TestTickSource(t *testing.T) {
	src, err := TickSource("ui")
	if err != nil {
		t.Fatalf("TickSource failed: %v", err)
	}

	f, err := parser.ParseFile(token.NewFileSet(), "tick.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("Generated tick source does not parse: %v\n%s", err, src)
	}
	if f.Name.Name != "ui" {
		t.Errorf("Expected package ui, got %s", f.Name.Name)
	}
	if !strings.Contains(string(src), "//export lvgl_sys_tick_get\nfunc lvgl_sys_tick_get() C.uint32_t {") {
		t.Errorf("Expected the exported tick function\n%s", src)
	}
}
