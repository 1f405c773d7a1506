package lvglsys

import (
	"path/filepath"
	"strings"
)

// MatchesExtension checks if a filename has any of the given extensions.
//
// This is a case-insensitive check; extensions may be given with or
// without the leading dot.
//
// # Example
//
//	if MatchesExtension(filename, ".c") {
//	    // compile it
//	}
func MatchesExtension(filename string, extensions ...string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// objectName flattens a source path relative to the source tree into a
// unique object file name: lvgl/src/core/lv_obj.c -> lvgl_src_core_lv_obj.o.
func objectName(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ReplaceAll(rel, "/", "_") + ".o"
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{})
	var result []string

	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}

	return result
}
