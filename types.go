package lvglsys

// BuildResult contains the output and status of a build.
//
// After a build completes, this structure provides:
//   - Success status indicating if every stage completed
//   - Output lines captured from the compiler, archiver and preprocessor
//   - Paths of the emitted artifacts inside BuildConfig.OutDir
//   - The Invocation the build compiled with
//   - Error information if the build failed
type BuildResult struct {
	Success bool     // True if every stage completed
	Output  []string // Lines of tool output, in order

	Archive  string // liblvgl.a
	Bindings string // bindings.go
	Widgets  string // widgets.go, empty with raw-bindings
	Header   string // lvgl_sys.h
	Tick     string // tick.go, only with the host timer

	Invocation *Invocation
	Error      error // Error if the build failed, nil otherwise
}

// Artifacts returns the paths of every emitted file.
func (r *BuildResult) Artifacts() []string {
	return uniqueStrings([]string{r.Archive, r.Header, r.Bindings, r.Widgets, r.Tick})
}

// BuildConfig contains configuration for the build.
//
// Source paths define where files are located:
//   - SourceDir: vendored tree holding lvgl/ (and lv_drivers/)
//   - ConfigDir: directory holding lv_conf.h when the vendored config is not used
//   - OutDir: where artifacts are emitted
//
// Toolchain configuration:
//   - Toolchain: registered toolchain name ("gnu" or "zig")
//   - Compiler / Archiver: override the toolchain programs
//   - CFlags: extra compiler flags, appended after the defaults
//   - Env: environment variables set for every tool
//   - Jobs: number of concurrent compiler processes (0 or 1 = sequential)
//
// Binding generation:
//   - Preprocessor: "cc" or "builtin" (empty = cc)
//   - Allow: allow-list patterns added to the LVGL defaults
//   - PackageName: Go package of the generated files
type BuildConfig struct {
	// Source paths
	SourceDir string // Vendored source tree
	ConfigDir string // Directory containing lv_conf.h (DEP_LV_CONFIG_PATH)
	OutDir    string // Output directory for artifacts

	Features Features

	// Toolchain
	Toolchain string            // Toolchain name, see ToolchainFactory
	Compiler  string            // C compiler override ($CC)
	Archiver  string            // Archiver override ($AR)
	CFlags    []string          // Extra compiler flags ($CFLAGS)
	Env       map[string]string // Environment variables for tools
	Jobs      int               // Concurrent compiler processes

	// Bindings
	Preprocessor string   // Preprocessor name, see bindgen.PreprocessorFactory
	Allow        []string // Extra allow-list patterns
	PackageName  string   // Package clause of generated Go files

	// Build options
	Verbose bool // Log every command at info level
}
