// Package naming converts C identifiers into Go identifiers.
package naming

import (
	"go/token"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Exported converts a snake_case or SCREAMING_CASE C identifier into an
// exported Go identifier: lv_obj_t -> LvObjT, LV_ALIGN_CENTER -> LvAlignCenter.
// Identifiers with a leading underscore get an X prefix so they stay exported.
func Exported(name string) string {
	if name == "" {
		return ""
	}

	// A Caser keeps state between calls and is not safe for concurrent use.
	title := cases.Title(language.Und)

	var b strings.Builder
	if strings.HasPrefix(name, "_") {
		b.WriteString("X")
	}
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		b.WriteString(title.String(part))
	}
	return b.String()
}

// Unexported is Exported with the first letter lowered.
func Unexported(name string) string {
	s := Exported(name)
	if s == "" {
		return ""
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// Param returns a Go-safe parameter name for a C parameter. Empty names
// become argN; Go keywords and predeclared names that would shadow the
// generated code get a trailing underscore.
func Param(name string, index int) string {
	if name == "" {
		return "arg" + strconv.Itoa(index)
	}
	if token.IsKeyword(name) || reserved[name] {
		return name + "_"
	}
	return name
}

var reserved = map[string]bool{
	"C":      true,
	"unsafe": true,
	"string": true,
	"len":    true,
	"cap":    true,
	"new":    true,
	"make":   true,
	"copy":   true,
	"append": true,
	"w":      true,
}
