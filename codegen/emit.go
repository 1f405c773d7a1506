package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"

	"github.com/contriboss/lvgl-sys-go/bindgen"
	"github.com/contriboss/lvgl-sys-go/internal/naming"
)

// Options control the generated wrapper source.
type Options struct {
	Package   string
	Header    string // header the cgo preamble includes
	Generator string

	// OnSkip, when set, is told about every function that could not be
	// wrapped.
	OnSkip func(name, reason string)
}

// Go types for C's fixed-width integers.
var fixedWidth = map[string]string{
	"int8_t":   "int8",
	"uint8_t":  "uint8",
	"int16_t":  "int16",
	"uint16_t": "uint16",
	"int32_t":  "int32",
	"uint32_t": "uint32",
	"int64_t":  "int64",
	"uint64_t": "uint64",
}

// Emit renders the wrapper types for widgets.
func Emit(widgets []Widget, opts Options) ([]byte, error) {
	if opts.Package == "" {
		return nil, fmt.Errorf("package name is required")
	}

	g := &generator{opts: opts}
	var body bytes.Buffer
	for _, w := range widgets {
		g.widget(&body, w)
	}

	var buf bytes.Buffer
	gen := opts.Generator
	if gen == "" {
		gen = "lvgl-sys-build"
	}
	fmt.Fprintf(&buf, "// Code generated by %s. DO NOT EDIT.\n\n", gen)
	fmt.Fprintf(&buf, "package %s\n\n", opts.Package)
	buf.WriteString("/*\n#include <stdlib.h>\n")
	if opts.Header != "" {
		fmt.Fprintf(&buf, "#include %q\n", opts.Header)
	}
	buf.WriteString("*/\nimport \"C\"\n\n")

	buf.WriteString("import (\n\t\"errors\"\n")
	if g.usesUnsafe {
		buf.WriteString("\t\"unsafe\"\n")
	}
	buf.WriteString(")\n\n")

	buf.WriteString("// ErrInvalidReference is returned when LVGL hands back a null object.\n")
	buf.WriteString("var ErrInvalidReference = errors.New(\"lvgl: invalid object reference\")\n\n")
	buf.Write(body.Bytes())

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting generated widgets: %w", err)
	}
	return src, nil
}

type generator struct {
	opts       Options
	usesUnsafe bool
}

func (g *generator) skip(name, reason string) {
	if g.opts.OnSkip != nil {
		g.opts.OnSkip(name, reason)
	}
}

func (g *generator) widget(w *bytes.Buffer, wd Widget) {
	typ := wd.TypeName()

	fmt.Fprintf(w, "// %s wraps an lv_%s object.\n", typ, wd.Name)
	fmt.Fprintf(w, "type %s struct {\n\traw *C.lv_obj_t\n}\n\n", typ)

	fmt.Fprintf(w, "// New%s creates a %s on parent. A nil parent creates a screen.\n", typ, wd.Name)
	fmt.Fprintf(w, "func New%s(parent *C.lv_obj_t) (*%s, error) {\n", typ, typ)
	fmt.Fprintf(w, "\traw := C.%s(parent)\n", wd.Create.Name)
	w.WriteString("\tif raw == nil {\n\t\treturn nil, ErrInvalidReference\n\t}\n")
	fmt.Fprintf(w, "\treturn &%s{raw: raw}, nil\n}\n\n", typ)

	w.WriteString("// Raw returns the underlying object.\n")
	fmt.Fprintf(w, "func (w *%s) Raw() *C.lv_obj_t {\n\treturn w.raw\n}\n\n", typ)

	for _, m := range wd.Methods {
		var method bytes.Buffer
		unsafeBefore := g.usesUnsafe
		if err := g.method(&method, typ, m); err != nil {
			g.usesUnsafe = unsafeBefore
			g.skip(m.Func.Name, err.Error())
			continue
		}
		w.Write(method.Bytes())
	}
}

func (g *generator) method(w *bytes.Buffer, typ string, m Method) error {
	var (
		params []string
		setup  []string
		args   = []string{"w.raw"}
	)

	for i, p := range m.Func.Params[1:] {
		name := naming.Param(p.Name, i+1)
		goType, pre, expr, err := g.param(name, p.Type)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", name, err)
		}
		params = append(params, name+" "+goType)
		setup = append(setup, pre...)
		args = append(args, expr)
	}

	call := fmt.Sprintf("C.%s(%s)", m.Func.Name, strings.Join(args, ", "))
	retType, ret, err := g.result(m.Func.Return, call)
	if err != nil {
		return fmt.Errorf("return type: %w", err)
	}

	fmt.Fprintf(w, "// %s calls %s.\n", m.Name, m.Func.Name)
	fmt.Fprintf(w, "func (w *%s) %s(%s)%s {\n", typ, m.Name, strings.Join(params, ", "), retType)
	for _, line := range setup {
		fmt.Fprintf(w, "\t%s\n", line)
	}
	fmt.Fprintf(w, "\t%s\n}\n\n", ret)
	return nil
}

// param returns the Go parameter type, any statements that prepare the
// argument, and the expression passed to C.
func (g *generator) param(name string, t bindgen.CType) (string, []string, string, error) {
	switch {
	case t.IsString():
		g.usesUnsafe = true
		c := "c" + name
		return "string", []string{
			fmt.Sprintf("%s := C.CString(%s)", c, name),
			fmt.Sprintf("defer C.free(unsafe.Pointer(%s))", c),
		}, c, nil
	case t.Pointer == 0 && t.Name == "bool" && !t.IsStruct:
		return "bool", nil, fmt.Sprintf("C.bool(%s)", name), nil
	case t.Pointer == 0 && fixedWidth[t.Name] != "":
		return fixedWidth[t.Name], nil, fmt.Sprintf("C.%s(%s)", t.Name, name), nil
	}

	cgo, err := bindgen.CgoType(t)
	if err != nil {
		return "", nil, "", err
	}
	if strings.Contains(cgo, "unsafe.") {
		g.usesUnsafe = true
	}
	return cgo, nil, name, nil
}

// result returns the Go result type (with leading space) and the statement
// that performs call.
func (g *generator) result(t bindgen.CType, call string) (string, string, error) {
	switch {
	case t.IsVoid():
		return "", call, nil
	case t.IsString():
		return " string", fmt.Sprintf("return C.GoString(%s)", call), nil
	case t.Pointer == 0 && t.Name == "bool" && !t.IsStruct:
		return " bool", fmt.Sprintf("return bool(%s)", call), nil
	case t.Pointer == 0 && fixedWidth[t.Name] != "":
		return " " + fixedWidth[t.Name], fmt.Sprintf("return %s(%s)", fixedWidth[t.Name], call), nil
	}

	cgo, err := bindgen.CgoType(t)
	if err != nil {
		return "", "", err
	}
	if strings.Contains(cgo, "unsafe.") {
		g.usesUnsafe = true
	}
	return " " + cgo, "return " + call, nil
}
