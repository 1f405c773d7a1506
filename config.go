package lvglsys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Defaults applied to an empty BuildConfig.
const (
	DefaultPackageName = "lvglsys"
	DefaultOutDir      = "out"
	DefaultSourceDir   = "vendor"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvSourceDir    = "LVGL_SYS_SOURCE_DIR"
	EnvConfigPath   = "DEP_LV_CONFIG_PATH"
	EnvOutDir       = "OUT_DIR"
	EnvFeatures     = "LVGL_SYS_FEATURES"
	EnvToolchain    = "LVGL_SYS_TOOLCHAIN"
	EnvPreprocessor = "LVGL_SYS_PREPROCESSOR"
	EnvJobs         = "LVGL_SYS_JOBS"
	EnvAllow        = "LVGL_SYS_ALLOW"
	EnvCompiler     = "CC"
	EnvArchiver     = "AR"
	EnvCFlags       = "CFLAGS"
)

// ConfigFromEnv builds a BuildConfig from environment variables. getenv is
// usually os.Getenv; nil means os.Getenv.
func ConfigFromEnv(getenv func(string) string) (*BuildConfig, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := &BuildConfig{
		SourceDir:    getenv(EnvSourceDir),
		ConfigDir:    getenv(EnvConfigPath),
		OutDir:       getenv(EnvOutDir),
		Toolchain:    getenv(EnvToolchain),
		Compiler:     getenv(EnvCompiler),
		Archiver:     getenv(EnvArchiver),
		CFlags:       strings.Fields(getenv(EnvCFlags)),
		Preprocessor: getenv(EnvPreprocessor),
	}

	features, err := ParseFeatures(getenv(EnvFeatures))
	if err != nil {
		return nil, err
	}
	cfg.Features = features

	if jobs := strings.TrimSpace(getenv(EnvJobs)); jobs != "" {
		n, err := strconv.Atoi(jobs)
		if err != nil || n < 0 {
			return nil, configError("config", fmt.Errorf("%s must be a non-negative integer, got %q", EnvJobs, jobs))
		}
		cfg.Jobs = n
	}

	for _, p := range strings.Split(getenv(EnvAllow), ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.Allow = append(cfg.Allow, p)
		}
	}

	return cfg, nil
}

// withDefaults returns a copy of c with empty fields defaulted. Slices and
// maps are copied so later changes to c do not leak into a running build.
func (c *BuildConfig) withDefaults() *BuildConfig {
	out := *c

	if out.OutDir == "" {
		out.OutDir = DefaultOutDir
	}
	if out.PackageName == "" {
		out.PackageName = DefaultPackageName
	}
	if out.Jobs < 1 {
		out.Jobs = 1
	}

	out.CFlags = append([]string(nil), c.CFlags...)
	out.Allow = append([]string(nil), c.Allow...)
	if c.Env != nil {
		out.Env = make(map[string]string, len(c.Env))
		for k, v := range c.Env {
			out.Env[k] = v
		}
	}

	return &out
}

// ConfigHeader is the resolved location of lv_conf.h.
type ConfigHeader struct {
	Dir        string // directory put on the include path
	Path       string // lv_conf.h
	DriverPath string // lv_drv_conf.h, only with the drivers feature
	Vendored   bool
}

// ResolveConfigHeader finds lv_conf.h for cfg. With use-vendored-config it
// is sourceDir/include/lv_conf.h; otherwise cfg.ConfigDir must hold it.
// With drivers, lv_drv_conf.h must sit next to it.
func ResolveConfigHeader(cfg *BuildConfig, sourceDir string) (ConfigHeader, error) {
	var dir string
	vendored := cfg.Features.UseVendoredConfig

	switch {
	case vendored:
		dir = filepath.Join(sourceDir, "include")
	case cfg.ConfigDir != "":
		dir = cfg.ConfigDir
	default:
		return ConfigHeader{}, configError("config", fmt.Errorf("%s is not set and use-vendored-config is not selected", EnvConfigPath))
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return ConfigHeader{}, configError("config", err)
	}

	header := ConfigHeader{
		Dir:      abs,
		Path:     filepath.Join(abs, "lv_conf.h"),
		Vendored: vendored,
	}
	if err := requireFile(header.Path); err != nil {
		return ConfigHeader{}, configError("config", err)
	}

	if cfg.Features.Drivers {
		header.DriverPath = filepath.Join(abs, "lv_drv_conf.h")
		if err := requireFile(header.DriverPath); err != nil {
			return ConfigHeader{}, configError("config", err)
		}
	}

	return header, nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s not found", path)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
