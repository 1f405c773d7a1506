// Package codegen generates safe Go wrappers for LVGL widgets on top of the
// raw cgo bindings.
//
// A widget is any lv_<name>_create(lv_obj_t *parent) constructor. Every
// other lv_<name>_* function whose first parameter is the object becomes a
// method on the widget type.
package codegen

import (
	"regexp"
	"sort"
	"strings"

	"github.com/contriboss/lvgl-sys-go/bindgen"
	"github.com/contriboss/lvgl-sys-go/internal/naming"
)

var createRe = regexp.MustCompile(`^lv_([a-z0-9]+)_create$`)

// Widget is a widget type with its constructor and methods.
type Widget struct {
	Name    string // C infix, e.g. "btn"
	Create  bindgen.Function
	Methods []Method
}

// TypeName is the Go type name of w.
func (w Widget) TypeName() string {
	return naming.Exported(w.Name)
}

// Method is a function that takes the widget object as its first argument.
type Method struct {
	Name string // Go method name
	Func bindgen.Function
}

// Widgets finds the widgets declared in h, sorted by name. The base object
// (lv_obj_create) is not a widget.
func Widgets(h *bindgen.Header) []Widget {
	var widgets []Widget

	for _, fn := range h.Functions {
		m := createRe.FindStringSubmatch(fn.Name)
		if m == nil || m[1] == "obj" {
			continue
		}
		if len(fn.Params) != 1 || !isObject(fn.Params[0].Type) || !isObject(fn.Return) {
			continue
		}
		widgets = append(widgets, Widget{Name: m[1], Create: fn})
	}

	sort.Slice(widgets, func(i, j int) bool { return widgets[i].Name < widgets[j].Name })

	for i := range widgets {
		widgets[i].Methods = methods(h, widgets[i])
	}
	return widgets
}

func methods(h *bindgen.Header, w Widget) []Method {
	prefix := "lv_" + w.Name + "_"
	var out []Method

	for _, fn := range h.Functions {
		if fn.Name == w.Create.Name || !strings.HasPrefix(fn.Name, prefix) {
			continue
		}
		if fn.Variadic || len(fn.Params) == 0 || !isObject(fn.Params[0].Type) {
			continue
		}
		name := naming.Exported(strings.TrimPrefix(fn.Name, prefix))
		if name == "" || name == "Raw" {
			continue
		}
		out = append(out, Method{Name: name, Func: fn})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func isObject(t bindgen.CType) bool {
	return t.Name == "lv_obj_t" && t.Pointer == 1 && !t.IsStruct
}

// WidgetNames returns the C names of the widgets in h.
func WidgetNames(h *bindgen.Header) []string {
	widgets := Widgets(h)
	names := make([]string, len(widgets))
	for i, w := range widgets {
		names[i] = w.Name
	}
	return names
}
