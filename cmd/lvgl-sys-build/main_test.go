package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	lvglsys "github.com/contriboss/lvgl-sys-go"
)

func vendorFixture(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("..", "..", "testdata", "vendor"))
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRunPlan(t *testing.T) {
	var stdout, stderr bytes.Buffer
	args := []string{"plan", "-source", vendorFixture(t), "-features", "use-vendored-config,drivers", "-toolchain", "zig"}

	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run failed: %v\n%s", err, stderr.String())
	}

	out := stdout.String()
	for _, want := range []string{"toolchain: zig", "features:  use-vendored-config,drivers", "zig cc", "fbdev.c", "zig ar rcs"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected plan output to contain %q\n%s", want, out)
		}
	}
}

func TestRunErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		kind error
	}{
		{"unknown feature", []string{"plan", "-features", "wayland"}, lvglsys.ErrConfigurationMissing},
		{"missing config", []string{"plan", "-source", "", "-config", ""}, lvglsys.ErrConfigurationMissing},
		{"unknown command", []string{"install"}, nil},
		{"vendor without from", []string{"vendor"}, nil},
		{"stray argument", []string{"build", "extra"}, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(lvglsys.EnvSourceDir, vendorFixture(t))
			t.Setenv(lvglsys.EnvConfigPath, "")

			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tc.args, &stdout, &stderr)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if tc.kind != nil && !errors.Is(err, tc.kind) {
				t.Errorf("Expected %v, got %v", tc.kind, err)
			}
		})
	}
}

func TestRunVendor(t *testing.T) {
	to := filepath.Join(t.TempDir(), "vendor")

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"vendor", "-from", vendorFixture(t), "-to", to}, &stdout, &stderr); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "Vendored ") {
		t.Errorf("Unexpected output: %s", stdout.String())
	}
}
