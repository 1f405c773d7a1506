package lvglsys

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
)

// Subtrees of the LVGL and lv_drivers checkouts that are never compiled or
// vendored.
var excludedDirs = map[string]struct{}{
	"demos":       {},
	"tests":       {},
	"examples":    {},
	"docs":        {},
	"scripts":     {},
	"env_support": {},
	".git":        {},
	".github":     {},
}

func isExcludedDir(name string) bool {
	_, ok := excludedDirs[name]
	return ok
}

// LocateSource returns the absolute path of the vendored source tree:
// cfg.SourceDir, else ./vendor. The tree must contain lvgl/lvgl.h.
// $LVGL_SYS_SOURCE_DIR reaches cfg.SourceDir through ConfigFromEnv.
func LocateSource(cfg *BuildConfig) (string, error) {
	dir := cfg.SourceDir
	if dir == "" {
		dir = DefaultSourceDir
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", configError("source", err)
	}
	if err := requireFile(filepath.Join(abs, "lvgl", "lvgl.h")); err != nil {
		return "", configError("source", fmt.Errorf("no LVGL source tree at %s: %w", abs, err))
	}
	return abs, nil
}

// CollectSources returns every .c file under sourceDir/lvgl/src, plus
// sourceDir/lv_drivers when drivers is set, sorted.
func CollectSources(sourceDir string, drivers bool) ([]string, error) {
	roots := []string{filepath.Join(sourceDir, "lvgl", "src")}
	if drivers {
		roots = append(roots, filepath.Join(sourceDir, "lv_drivers"))
	}

	var sources []string
	for _, root := range roots {
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
			if d.Type().IsRegular() && MatchesExtension(d.Name(), ".c") {
				sources = append(sources, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("collecting sources under %s: %w", root, err)
		}
	}

	sort.Strings(sources)
	return sources, nil
}

// Vendor copies an upstream checkout into the vendor directory, leaving out
// demos, tests, examples, docs and VCS metadata. from must be laid out like
// the vendor tree (lvgl/, optionally lv_drivers/ and include/). Existing
// files are overwritten, so running it twice is harmless.
//
// Returns the number of files copied.
func Vendor(ctx context.Context, from, to string) (int, error) {
	if err := requireFile(filepath.Join(from, "lvgl", "lvgl.h")); err != nil {
		return 0, configError("vendor", fmt.Errorf("no LVGL checkout at %s: %w", from, err))
	}

	copied := 0
	err := filepath.WalkDir(from, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, err := filepath.Rel(from, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if rel != "." && isExcludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if err := copyFile(path, filepath.Join(to, rel)); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		return copied, err
	}

	Logger().Info("vendored LVGL sources", "from", from, "to", to, "files", copied)
	return copied, nil
}
