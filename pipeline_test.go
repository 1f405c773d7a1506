package lvglsys

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/contriboss/lvgl-sys-go/internal/shell"
)

// fakeRunner records every command and writes the file named by -o (or the
// archive after rcs) so later stages find their inputs.
type fakeRunner struct {
	mu    sync.Mutex
	calls []shell.Command

	// fail, when set, decides whether a command fails and what it prints.
	fail func(name string, args []string) ([]byte, error)
}

func (f *fakeRunner) Run(_ context.Context, env map[string]string, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, shell.Command{Name: name, Args: append([]string(nil), args...), Env: env})
	f.mu.Unlock()

	if f.fail != nil {
		if out, err := f.fail(name, args); err != nil {
			return out, err
		}
	}

	for i, arg := range args {
		if i+1 >= len(args) {
			break
		}
		switch arg {
		case "-o":
			if err := os.WriteFile(args[i+1], []byte("object\n"), 0o644); err != nil {
				return nil, err
			}
		case "rcs":
			if err := os.WriteFile(args[i+1], []byte("!<arch>\n"), 0o644); err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}

func (f *fakeRunner) commands() []shell.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]shell.Command(nil), f.calls...)
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

// testConfig builds with the vendored config and the builtin preprocessor,
// so no C toolchain is needed.
func testConfig(t *testing.T, features Features) *BuildConfig {
	t.Helper()
	features.UseVendoredConfig = true
	return &BuildConfig{
		SourceDir:    fixture(t, "vendor"),
		OutDir:       t.TempDir(),
		Features:     features,
		Preprocessor: "builtin",
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

func assertNoStaging(t *testing.T, outDir string) {
	t.Helper()
	stages, err := filepath.Glob(filepath.Join(outDir, stagePrefix+"*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(stages) != 0 {
		t.Errorf("Expected staging directories to be removed, found %v", stages)
	}
}

func TestBuildVendoredConfig(t *testing.T) {
	cfg := testConfig(t, Features{})
	runner := &fakeRunner{}

	result, err := New(WithRunner(runner)).Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !result.Success {
		t.Fatal("Expected Success=true")
	}

	for _, path := range []string{result.Archive, result.Header, result.Bindings, result.Widgets} {
		if path == "" {
			t.Fatalf("Expected every artifact path to be set, got %+v", result)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Expected artifact %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Errorf("Expected %s to be non-empty", path)
		}
		if filepath.Dir(path) != cfg.OutDir {
			t.Errorf("Expected %s inside %s", path, cfg.OutDir)
		}
	}
	if result.Tick != "" {
		t.Errorf("Expected no tick.go without rust_timer, got %s", result.Tick)
	}

	bindings := readFile(t, result.Bindings)
	for _, want := range []string{
		"// Code generated by lvgl-sys-build. DO NOT EDIT.",
		"package lvglsys",
		`#include "lvgl_sys.h"`,
		"func LvInit()",
		"func LvTickInc(tick_period C.uint32_t)",
		"func LvObjCreate(parent *LvObjT) *LvObjT",
		"LV_STATE_CHECKED = C.LV_STATE_CHECKED",
	} {
		if !strings.Contains(bindings, want) {
			t.Errorf("Expected bindings to contain %q\n%s", want, bindings)
		}
	}
	if strings.Contains(bindings, "LvLabelSetTextFmt") {
		t.Error("Expected variadic lv_label_set_text_fmt to be skipped")
	}
	if strings.Contains(bindings, "#cgo LDFLAGS") {
		t.Error("Expected no LDFLAGS without the library feature")
	}

	widgets := readFile(t, result.Widgets)
	for _, want := range []string{"type Btn struct", "func NewLabel(", "func (w *Label) SetText(text string)"} {
		if !strings.Contains(widgets, want) {
			t.Errorf("Expected widgets to contain %q\n%s", want, widgets)
		}
	}

	sources := result.Invocation.Sources()
	compiles := 0
	for _, cmd := range runner.commands() {
		if cmd.Name == "cc" {
			compiles++
		}
	}
	if compiles != len(sources) {
		t.Errorf("Expected %d compiler calls, got %d", len(sources), compiles)
	}

	assertNoStaging(t, cfg.OutDir)
}

func TestBuildFeatureCombinations(t *testing.T) {
	toggles := []struct {
		name string
		set  func(*Features)
	}{
		{"drivers", func(f *Features) { f.Drivers = true }},
		{"rust_timer", func(f *Features) { f.HostTimer = true }},
		{"custom_timer", func(f *Features) { f.CustomTimer = true }},
		{"library", func(f *Features) { f.Library = true }},
		{"raw-bindings", func(f *Features) { f.RawBindings = true }},
	}

	for mask := 0; mask < 1<<len(toggles); mask++ {
		var features Features
		var names []string
		for i, toggle := range toggles {
			if mask&(1<<i) != 0 {
				toggle.set(&features)
				names = append(names, toggle.name)
			}
		}
		name := strings.Join(names, "+")
		if name == "" {
			name = "none"
		}

		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t, features)

			result, err := New(WithRunner(&fakeRunner{})).Build(context.Background(), cfg)
			if err != nil {
				if !errors.Is(err, ErrConfigurationMissing) &&
					!errors.Is(err, ErrCompilationFailed) &&
					!errors.Is(err, ErrBindingGenerationFailed) {
					t.Fatalf("Expected one of the three failure kinds, got %v", err)
				}
				t.Fatalf("Build failed: %v", err)
			}

			if readFile(t, result.Bindings) == "" {
				t.Error("Expected non-empty bindings")
			}
			if readFile(t, result.Archive) == "" {
				t.Error("Expected non-empty archive")
			}

			if features.RawBindings != (result.Widgets == "") {
				t.Errorf("Expected widgets.go only without raw-bindings, got %q", result.Widgets)
			}
			if features.HostTick() != (result.Tick != "") {
				t.Errorf("Expected tick.go only with the host timer, got %q", result.Tick)
			}

			bindings := readFile(t, result.Bindings)
			if hasTickInc := strings.Contains(bindings, "func LvTickInc("); hasTickInc == features.CustomTick() {
				t.Errorf("Expected LvTickInc present=%v, got %v", !features.CustomTick(), hasTickInc)
			}
			if hasLD := strings.Contains(bindings, "#cgo LDFLAGS: -L${SRCDIR} -llvgl"); hasLD != features.Library {
				t.Errorf("Expected LDFLAGS present=%v, got %v", features.Library, hasLD)
			}
			if hasDriver := strings.Contains(bindings, "func FbdevInit()"); hasDriver != features.Drivers {
				t.Errorf("Expected driver bindings present=%v, got %v", features.Drivers, hasDriver)
			}
		})
	}
}

func TestBuildHostTimer(t *testing.T) {
	cfg := testConfig(t, Features{HostTimer: true})

	result, err := New(WithRunner(&fakeRunner{})).Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	tick := readFile(t, result.Tick)
	for _, want := range []string{"//export lvgl_sys_tick_get", "func SetTickSource(f func() uint32)"} {
		if !strings.Contains(tick, want) {
			t.Errorf("Expected tick.go to contain %q\n%s", want, tick)
		}
	}

	if _, err := os.Stat(filepath.Join(cfg.OutDir, tickHeaderName)); err != nil {
		t.Errorf("Expected %s next to the bindings: %v", tickHeaderName, err)
	}

	bindings := readFile(t, result.Bindings)
	cflags := bindings[strings.Index(bindings, "#cgo CFLAGS:"):]
	cflags = cflags[:strings.Index(cflags, "\n")]
	if !strings.Contains(cflags, "-DLV_TICK_CUSTOM=1") {
		t.Errorf("Expected LV_TICK_CUSTOM in CFLAGS, got %s", cflags)
	}
	for _, unwanted := range []string{"LV_TICK_CUSTOM_INCLUDE", "LV_TICK_CUSTOM_SYS_TIME_EXPR", `"`, "("} {
		if strings.Contains(cflags, unwanted) {
			t.Errorf("Expected %s to stay out of CFLAGS, got %s", unwanted, cflags)
		}
	}

	var tickDefine bool
	for _, f := range result.Invocation.CompilerFlags() {
		if f == `-DLV_TICK_CUSTOM_INCLUDE="lvgl_sys_tick.h"` {
			tickDefine = true
		}
	}
	if !tickDefine {
		t.Error("Expected the compiler to still get the tick include define")
	}
}

func TestBuildConfigurationMissing(t *testing.T) {
	cfg := &BuildConfig{
		SourceDir:    fixture(t, "vendor"),
		OutDir:       t.TempDir(),
		Preprocessor: "builtin",
	}
	runner := &fakeRunner{}

	result, err := New(WithRunner(runner)).Build(context.Background(), cfg)
	if !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("Expected ErrConfigurationMissing, got %v", err)
	}
	if result.Success {
		t.Error("Expected Success=false")
	}
	if result.Error != err {
		t.Errorf("Expected result.Error to be the returned error, got %v", result.Error)
	}
	if ExitStatus(err) != 2 {
		t.Errorf("Expected exit status 2, got %d", ExitStatus(err))
	}
	if n := len(runner.commands()); n != 0 {
		t.Errorf("Expected no commands to run, got %d", n)
	}
}

func TestBuildDeterministic(t *testing.T) {
	features := Features{Drivers: true, Library: true}

	var bindings, widgets []string
	for i := 0; i < 2; i++ {
		result, err := New(WithRunner(&fakeRunner{})).Build(context.Background(), testConfig(t, features))
		if err != nil {
			t.Fatalf("Build %d failed: %v", i, err)
		}
		bindings = append(bindings, readFile(t, result.Bindings))
		widgets = append(widgets, readFile(t, result.Widgets))
	}

	if bindings[0] != bindings[1] {
		t.Error("Expected byte-identical bindings for identical configuration")
	}
	if widgets[0] != widgets[1] {
		t.Error("Expected byte-identical widgets for identical configuration")
	}
}

func TestBuildBrokenInclude(t *testing.T) {
	cfg := testConfig(t, Features{})
	cfg.SourceDir = fixture(t, "broken")

	result, err := New(WithRunner(&fakeRunner{})).Build(context.Background(), cfg)
	if !errors.Is(err, ErrBindingGenerationFailed) {
		t.Fatalf("Expected ErrBindingGenerationFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "lv_missing.h") {
		t.Errorf("Expected the unresolved header in the error, got %v", err)
	}
	if ExitStatus(err) != 4 {
		t.Errorf("Expected exit status 4, got %d", ExitStatus(err))
	}
	if result.Bindings != "" {
		t.Errorf("Expected no bindings path, got %s", result.Bindings)
	}

	for _, name := range artifactNames {
		if _, err := os.Stat(filepath.Join(cfg.OutDir, name)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Expected no %s after a failed build, got %v", name, err)
		}
	}
	assertNoStaging(t, cfg.OutDir)
}

func TestBuildCompilationFailed(t *testing.T) {
	diagnostics := "lv_obj.c:12:3: error: unknown type name 'lv_foo_t'\n   12 |   lv_foo_t x;\n      |   ^~~~~~~~\n"

	runner := &fakeRunner{
		fail: func(name string, args []string) ([]byte, error) {
			for _, arg := range args {
				if strings.HasSuffix(arg, "lv_obj.c") {
					return []byte(diagnostics), errors.New("exit status 1")
				}
			}
			return nil, nil
		},
	}
	cfg := testConfig(t, Features{})

	result, err := New(WithRunner(runner)).Build(context.Background(), cfg)
	if !errors.Is(err, ErrCompilationFailed) {
		t.Fatalf("Expected ErrCompilationFailed, got %v", err)
	}

	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("Expected *StageError, got %T", err)
	}
	if got := strings.Join(se.Output, "\n") + "\n"; got != diagnostics {
		t.Errorf("Expected diagnostics verbatim\nwant:\n%s\ngot:\n%s", diagnostics, got)
	}
	if !strings.Contains(err.Error(), "Build output:\n"+strings.TrimRight(diagnostics, "\n")) {
		t.Errorf("Expected the diagnostics in the error message, got %v", err)
	}
	if ExitStatus(err) != 3 {
		t.Errorf("Expected exit status 3, got %d", ExitStatus(err))
	}
	if result.Archive != "" {
		t.Errorf("Expected no archive path, got %s", result.Archive)
	}

	for _, cmd := range runner.commands() {
		if cmd.Name == "ar" {
			t.Error("Expected the archiver not to run after a compiler failure")
		}
	}
	assertNoStaging(t, cfg.OutDir)
}

func TestBuildParallel(t *testing.T) {
	sequential := testConfig(t, Features{Drivers: true})
	parallel := testConfig(t, Features{Drivers: true})
	parallel.Jobs = 4

	seq, err := New(WithRunner(&fakeRunner{})).Build(context.Background(), sequential)
	if err != nil {
		t.Fatalf("Sequential build failed: %v", err)
	}
	par, err := New(WithRunner(&fakeRunner{})).Build(context.Background(), parallel)
	if err != nil {
		t.Fatalf("Parallel build failed: %v", err)
	}

	if readFile(t, seq.Bindings) != readFile(t, par.Bindings) {
		t.Error("Expected Jobs not to change the bindings")
	}
	for _, obj := range par.Invocation.Objects() {
		if _, err := os.Stat(obj); err != nil {
			t.Errorf("Expected object %s: %v", obj, err)
		}
	}
}

func TestBuildRemovesStaleArtifacts(t *testing.T) {
	cfg := testConfig(t, Features{HostTimer: true})
	o := New(WithRunner(&fakeRunner{}))

	if _, err := o.Build(context.Background(), cfg); err != nil {
		t.Fatalf("First build failed: %v", err)
	}

	cfg.Features = Features{UseVendoredConfig: true, RawBindings: true}
	result, err := o.Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Second build failed: %v", err)
	}

	for _, name := range []string{WidgetsName, TickName, tickHeaderName} {
		if _, err := os.Stat(filepath.Join(cfg.OutDir, name)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Expected stale %s to be removed, got %v", name, err)
		}
	}
	if len(result.Artifacts()) != 3 {
		t.Errorf("Expected 3 artifacts, got %v", result.Artifacts())
	}
}

func TestBuildEmitLeavesOutDirUntouched(t *testing.T) {
	cfg := testConfig(t, Features{Library: true})
	o := New(WithRunner(&fakeRunner{}))

	first, err := o.Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("First build failed: %v", err)
	}
	header := readFile(t, first.Header)

	// A directory where widgets.go goes cannot be replaced.
	if err := os.Remove(first.Widgets); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(first.Widgets, "keep"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(first.Header, []byte("/* previous */\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg.Features = Features{UseVendoredConfig: true, RawBindings: true}
	_, err = o.Build(context.Background(), cfg)
	if !errors.Is(err, ErrBindingGenerationFailed) {
		t.Fatalf("Expected ErrBindingGenerationFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Errorf("Expected the blocked destination in the error, got %v", err)
	}

	if got := readFile(t, first.Header); got != "/* previous */\n" {
		t.Errorf("Expected %s to be left alone, got %q (fresh build wrote %q)", HeaderName, got, header)
	}
	if _, err := os.Stat(first.Archive); err != nil {
		t.Errorf("Expected the previous archive to survive: %v", err)
	}
	assertNoStaging(t, cfg.OutDir)
}

func TestBuildUnknownPreprocessor(t *testing.T) {
	cfg := testConfig(t, Features{})
	cfg.Preprocessor = "mcpp"

	_, err := New(WithRunner(&fakeRunner{})).Build(context.Background(), cfg)
	if !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("Expected ErrConfigurationMissing, got %v", err)
	}
}

func TestBuildCCPreprocessor(t *testing.T) {
	cfg := testConfig(t, Features{})
	cfg.Preprocessor = "cc"

	// The fake compiler prints the declarations cc -E -P would.
	runner := &fakeRunner{
		fail: func(name string, args []string) ([]byte, error) {
			for _, arg := range args {
				if arg == "-E" {
					return []byte("void lv_init(void);\n"), errors.New("exit status 1")
				}
			}
			return nil, nil
		},
	}

	_, err := New(WithRunner(runner)).Build(context.Background(), cfg)
	if !errors.Is(err, ErrBindingGenerationFailed) {
		t.Fatalf("Expected ErrBindingGenerationFailed, got %v", err)
	}

	var se *StageError
	if !errors.As(err, &se) || len(se.Output) != 1 || se.Output[0] != "void lv_init(void);" {
		t.Errorf("Expected the preprocessor output to be kept, got %+v", se)
	}

	var found bool
	for _, cmd := range runner.commands() {
		if cmd.Name == "cc" && len(cmd.Args) > 0 && cmd.Args[len(cmd.Args)-1] == filepath.Join(cfg.OutDir, buildDirName, "include", HeaderName) {
			found = true
		}
	}
	if !found {
		t.Error("Expected cc to preprocess the generated shim header")
	}
}

func TestBuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(WithRunner(&fakeRunner{})).Build(ctx, testConfig(t, Features{}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if result.Success {
		t.Error("Expected Success=false")
	}
}

func TestClean(t *testing.T) {
	cfg := testConfig(t, Features{HostTimer: true})
	o := New(WithRunner(&fakeRunner{}))

	if _, err := o.Build(context.Background(), cfg); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	leftover := filepath.Join(cfg.OutDir, stagePrefix+"123")
	if err := os.MkdirAll(leftover, 0o755); err != nil {
		t.Fatal(err)
	}
	keep := filepath.Join(cfg.OutDir, "go.mod")
	if err := os.WriteFile(keep, []byte("module example.com/ui\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := o.Clean(context.Background(), cfg); err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	entries, err := os.ReadDir(cfg.OutDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "go.mod" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("Expected only go.mod to remain, got %v", names)
	}

	// Cleaning twice is fine.
	if err := o.Clean(context.Background(), cfg); err != nil {
		t.Errorf("Second Clean failed: %v", err)
	}
}

func TestBuildLogsStages(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(newTestLogger(&buf))
	t.Cleanup(func() { SetLogger(nil) })

	if _, err := New(WithRunner(&fakeRunner{})).Build(context.Background(), testConfig(t, Features{})); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for _, want := range []string{"build started", "stage=compile", "generated bindings", "emitted artifacts"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Expected log to contain %q\n%s", want, buf.String())
		}
	}
}
