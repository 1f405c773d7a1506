// Command lvgl-sys-build compiles the vendored LVGL sources and generates
// cgo bindings for them.
//
// Usage:
//
//	lvgl-sys-build [build|plan|clean] [flags]
//	lvgl-sys-build vendor -from ../lvgl-checkout [-to vendor]
//
// Flags default to the environment (CC, AR, CFLAGS, OUT_DIR,
// DEP_LV_CONFIG_PATH, LVGL_SYS_*).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/magefile/mage/mg"

	lvglsys "github.com/contriboss/lvgl-sys-go"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(lvglsys.ExitStatus(err))
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := "build"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "build", "plan", "clean":
		cfg, verbose, err := parseBuildFlags(cmd, args, stderr)
		if err != nil {
			return err
		}
		setupLogging(stderr, verbose)

		switch cmd {
		case "plan":
			return printPlan(stdout, cfg)
		case "clean":
			return lvglsys.Clean(ctx, cfg)
		}

		result, err := lvglsys.Build(ctx, cfg)
		if err != nil {
			return err
		}
		for _, path := range result.Artifacts() {
			fmt.Fprintf(stdout, "Generated: %s\n", path)
		}
		return nil

	case "vendor":
		fs := flag.NewFlagSet("vendor", flag.ContinueOnError)
		fs.SetOutput(stderr)
		from := fs.String("from", "", "upstream checkout holding lvgl/ (and lv_drivers/)")
		to := fs.String("to", lvglsys.DefaultSourceDir, "vendor directory")
		verbose := fs.Bool("v", false, "verbose logging")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *from == "" {
			fs.Usage()
			return fmt.Errorf("-from is required")
		}
		setupLogging(stderr, *verbose)

		n, err := lvglsys.Vendor(ctx, *from, *to)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Vendored %d files into %s\n", n, *to)
		return nil
	}

	return fmt.Errorf("unknown command %q (want build, plan, clean or vendor)", cmd)
}

func parseBuildFlags(name string, args []string, stderr io.Writer) (*lvglsys.BuildConfig, bool, error) {
	cfg, err := lvglsys.ConfigFromEnv(nil)
	if err != nil {
		return nil, false, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.SourceDir, "source", cfg.SourceDir, "vendored source tree (default ./vendor)")
	fs.StringVar(&cfg.ConfigDir, "config", cfg.ConfigDir, "directory holding lv_conf.h")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "output directory (default ./out)")
	fs.StringVar(&cfg.Toolchain, "toolchain", cfg.Toolchain, "toolchain: gnu or zig")
	fs.StringVar(&cfg.Compiler, "cc", cfg.Compiler, "C compiler command")
	fs.StringVar(&cfg.Archiver, "ar", cfg.Archiver, "archiver command")
	fs.StringVar(&cfg.Preprocessor, "preprocessor", cfg.Preprocessor, "preprocessor: cc or builtin")
	fs.StringVar(&cfg.PackageName, "package", cfg.PackageName, "package of the generated Go files")
	fs.IntVar(&cfg.Jobs, "j", cfg.Jobs, "concurrent compiler processes")
	features := fs.String("features", cfg.Features.String(), "comma separated features: "+strings.Join(lvglsys.KnownFeatures(), ", "))
	cflags := fs.String("cflags", strings.Join(cfg.CFlags, " "), "extra compiler flags")
	allow := fs.String("allow", strings.Join(cfg.Allow, ","), "extra allow-list patterns, comma separated")
	verbose := fs.Bool("v", mg.Verbose(), "verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	if fs.NArg() > 0 {
		return nil, false, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if cfg.Features, err = lvglsys.ParseFeatures(*features); err != nil {
		return nil, false, err
	}
	cfg.CFlags = strings.Fields(*cflags)
	cfg.Allow = nil
	for _, p := range strings.Split(*allow, ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.Allow = append(cfg.Allow, p)
		}
	}
	cfg.Verbose = *verbose

	return cfg, *verbose, nil
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	lvglsys.SetLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func printPlan(w io.Writer, cfg *lvglsys.BuildConfig) error {
	inv, err := lvglsys.Plan(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "source:    %s\n", inv.SourceDir())
	fmt.Fprintf(w, "config:    %s\n", inv.ConfigHeader().Path)
	fmt.Fprintf(w, "toolchain: %s\n", inv.Toolchain().Name())
	fmt.Fprintf(w, "features:  %s\n", inv.Features())
	fmt.Fprintf(w, "archive:   %s\n", inv.ArchivePath())

	cmds, err := inv.Commands()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "commands:  %d\n", len(cmds))
	for _, c := range cmds {
		fmt.Fprintln(w, c.String())
	}
	return nil
}
