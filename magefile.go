//go:build mage

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/magefile/mage/mg"

	lvglsys "github.com/contriboss/lvgl-sys-go"
)

// Default target to run when none is specified.
var Default = Build

func config() (*lvglsys.BuildConfig, error) {
	level := slog.LevelInfo
	if mg.Verbose() {
		level = slog.LevelDebug
	}
	lvglsys.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := lvglsys.ConfigFromEnv(nil)
	if err != nil {
		return nil, err
	}
	cfg.Verbose = mg.Verbose()
	return cfg, nil
}

// Build compiles LVGL and generates the bindings. Configure it through
// LVGL_SYS_FEATURES, DEP_LV_CONFIG_PATH, OUT_DIR, CC, AR and CFLAGS.
func Build(ctx context.Context) error {
	cfg, err := config()
	if err != nil {
		return err
	}
	result, err := lvglsys.Build(ctx, cfg)
	if err != nil {
		return err
	}
	for _, path := range result.Artifacts() {
		fmt.Println(path)
	}
	return nil
}

// Plan prints the compiler and archiver commands without running them.
func Plan() error {
	cfg, err := config()
	if err != nil {
		return err
	}
	inv, err := lvglsys.Plan(cfg)
	if err != nil {
		return err
	}
	cmds, err := inv.Commands()
	if err != nil {
		return err
	}
	for _, c := range cmds {
		fmt.Println(c.String())
	}
	return nil
}

// Vendor copies the checkout named by LVGL_SYS_UPSTREAM into ./vendor.
func Vendor(ctx context.Context) error {
	from := os.Getenv("LVGL_SYS_UPSTREAM")
	if from == "" {
		return mg.Fatal(2, "LVGL_SYS_UPSTREAM must point at an LVGL checkout")
	}
	_, err := lvglsys.Vendor(ctx, from, lvglsys.DefaultSourceDir)
	return err
}

// Clean removes the artifacts and intermediate files.
func Clean(ctx context.Context) error {
	cfg, err := config()
	if err != nil {
		return err
	}
	return lvglsys.Clean(ctx, cfg)
}

// Rebuild cleans, then builds.
func Rebuild(ctx context.Context) {
	mg.SerialCtxDeps(ctx, Clean, Build)
}
