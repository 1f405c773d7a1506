package bindgen

import (
	"bytes"
	"fmt"
	"go/format"
	"regexp"
	"sort"
	"strings"

	"github.com/contriboss/lvgl-sys-go/internal/naming"
)

// EmitOptions control the generated Go source.
type EmitOptions struct {
	Package   string   // Go package name
	Header    string   // header the cgo preamble includes
	CFlags    []string // #cgo CFLAGS
	LDFlags   []string // #cgo LDFLAGS
	Generator string   // program named in the "Code generated" line

	// OnSkip, when set, is told about every declaration that has no
	// cgo representation.
	OnSkip func(name, reason string)
}

// scalar C types cgo exposes under a fixed name.
var scalars = map[string]string{
	"char":               "C.char",
	"signed char":        "C.schar",
	"unsigned char":      "C.uchar",
	"short":              "C.short",
	"unsigned short":     "C.ushort",
	"int":                "C.int",
	"unsigned int":       "C.uint",
	"long":               "C.long",
	"unsigned long":      "C.ulong",
	"long long":          "C.longlong",
	"unsigned long long": "C.ulonglong",
	"float":              "C.float",
	"double":             "C.double",
	"bool":               "C.bool",
}

// libcTypeRe and libcTypes match the C library typedefs cgo already
// exposes as C.<name>. They never get an alias of their own.
var libcTypeRe = regexp.MustCompile(`^u?int(_least|_fast)?(8|16|32|64|ptr|max)_t$`)

var libcTypes = map[string]bool{
	"size_t":    true,
	"ptrdiff_t": true,
	"wchar_t":   true,
	"va_list":   true,
	"FILE":      true,
}

func isLibcType(name string) bool {
	return libcTypes[name] || libcTypeRe.MatchString(name)
}

// Emit renders h as a cgo binding file.
func Emit(h *Header, opts EmitOptions) ([]byte, error) {
	if opts.Package == "" {
		return nil, fmt.Errorf("package name is required")
	}

	e := &emitter{
		opts:     opts,
		aliases:  make(map[string]string),
		declared: make(map[string]bool),
	}
	return e.emit(h)
}

type emitter struct {
	opts       EmitOptions
	aliases    map[string]string // C type spelling -> Go alias
	declared   map[string]bool   // Go identifiers already used
	usesUnsafe bool
}

func (e *emitter) skip(name, reason string) {
	if e.opts.OnSkip != nil {
		e.opts.OnSkip(name, reason)
	}
}

func (e *emitter) emit(h *Header) ([]byte, error) {
	var types, consts, funcs bytes.Buffer

	for _, a := range e.typeAliases(h) {
		fmt.Fprintf(&types, "type %s = %s\n", a.goName, a.cName)
	}

	for _, en := range h.Enums {
		for _, v := range en.Values {
			goName := v.Name
			if !isExported(goName) {
				goName = naming.Exported(goName)
			}
			if e.declared[goName] {
				e.skip(v.Name, "name collides with an earlier declaration")
				continue
			}
			e.declared[goName] = true
			fmt.Fprintf(&consts, "\t%s = C.%s\n", goName, v.Name)
		}
	}

	fns := append([]Function(nil), h.Functions...)
	sort.Slice(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })
	for _, fn := range fns {
		if err := e.function(&funcs, fn); err != nil {
			e.skip(fn.Name, err.Error())
		}
	}

	var buf bytes.Buffer
	generator := e.opts.Generator
	if generator == "" {
		generator = "lvgl-sys-build"
	}
	fmt.Fprintf(&buf, "// Code generated by %s. DO NOT EDIT.\n\n", generator)
	fmt.Fprintf(&buf, "package %s\n\n", e.opts.Package)

	buf.WriteString("/*\n")
	for _, directive := range []struct {
		name  string
		flags []string
	}{
		{"CFLAGS", e.opts.CFlags},
		{"LDFLAGS", e.opts.LDFlags},
	} {
		if len(directive.flags) == 0 {
			continue
		}
		line, err := cgoFlags(directive.flags)
		if err != nil {
			return nil, fmt.Errorf("#cgo %s: %w", directive.name, err)
		}
		fmt.Fprintf(&buf, "#cgo %s: %s\n", directive.name, line)
	}
	if e.opts.Header != "" {
		fmt.Fprintf(&buf, "#include %q\n", e.opts.Header)
	}
	buf.WriteString("*/\n")
	buf.WriteString("import \"C\"\n\n")
	if e.usesUnsafe {
		buf.WriteString("import \"unsafe\"\n\n")
	}

	if types.Len() > 0 {
		buf.Write(types.Bytes())
		buf.WriteString("\n")
	}
	if consts.Len() > 0 {
		buf.WriteString("const (\n")
		buf.Write(consts.Bytes())
		buf.WriteString(")\n\n")
	}
	buf.Write(funcs.Bytes())

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting generated bindings: %w", err)
	}
	return src, nil
}

type alias struct {
	goName string
	cName  string
	key    string // C spelling used by parameter types
}

// typeAliases declares a Go alias for every named C type, typedefs first
// so their names win over struct tags of the same spelling.
func (e *emitter) typeAliases(h *Header) []alias {
	var list []alias

	add := func(cName, key string) {
		if key == "" {
			return
		}
		if _, ok := e.aliases[key]; ok {
			return
		}
		// "struct _lv_obj_t" becomes StructLvObjT.
		goName := naming.Exported(strings.Replace(key, " ", "_", 1))
		if e.declared[goName] {
			return
		}
		e.declared[goName] = true
		e.aliases[key] = goName
		list = append(list, alias{goName: goName, cName: cName, key: key})
	}

	var typedefs []TypeDef
	typedefs = append(typedefs, h.TypeDefs...)
	sort.Slice(typedefs, func(i, j int) bool { return typedefs[i].Name < typedefs[j].Name })
	for _, td := range typedefs {
		if _, scalar := scalars[td.Name]; scalar || isLibcType(td.Name) {
			continue
		}
		add("C."+td.Name, td.Name)
	}

	var named []string
	for _, s := range h.Structs {
		if s.Name != "" {
			named = append(named, s.Name)
		}
	}
	for _, en := range h.Enums {
		if en.Name != "" {
			named = append(named, en.Name)
		}
	}
	sort.Strings(named)
	for _, n := range named {
		add("C."+n, n)
	}

	var tagged []string
	for _, s := range h.Structs {
		if s.Tag == "" {
			continue
		}
		kind := "struct"
		if s.Union {
			kind = "union"
		}
		tagged = append(tagged, kind+" "+s.Tag)
	}
	for _, en := range h.Enums {
		if en.Tag != "" {
			tagged = append(tagged, "enum "+en.Tag)
		}
	}
	sort.Strings(tagged)
	for _, key := range tagged {
		f := strings.Fields(key)
		add("C."+f[0]+"_"+f[1], key)
	}

	return list
}

func (e *emitter) function(w *bytes.Buffer, fn Function) error {
	if fn.Variadic {
		return fmt.Errorf("variadic functions cannot be called through cgo")
	}

	goName := naming.Exported(fn.Name)
	if e.declared[goName] {
		return fmt.Errorf("name %s collides with an earlier declaration", goName)
	}

	// A skipped function must not leave an unused unsafe import behind.
	usedUnsafe := e.usesUnsafe
	fail := func(err error) error {
		e.usesUnsafe = usedUnsafe
		return err
	}

	var ret string
	if !fn.Return.IsVoid() {
		t, err := e.goType(fn.Return)
		if err != nil {
			return fail(fmt.Errorf("return type: %w", err))
		}
		ret = " " + t
	}

	params := make([]string, 0, len(fn.Params))
	args := make([]string, 0, len(fn.Params))
	for i, p := range fn.Params {
		t, err := e.goType(p.Type)
		if err != nil {
			return fail(fmt.Errorf("parameter %d: %w", i, err))
		}
		name := naming.Param(p.Name, i)
		params = append(params, name+" "+t)
		args = append(args, name)
	}

	e.declared[goName] = true

	fmt.Fprintf(w, "// %s calls %s.\n", goName, fn.Name)
	fmt.Fprintf(w, "func %s(%s)%s {\n", goName, strings.Join(params, ", "), ret)
	call := fmt.Sprintf("C.%s(%s)", fn.Name, strings.Join(args, ", "))
	if ret == "" {
		fmt.Fprintf(w, "\t%s\n", call)
	} else {
		fmt.Fprintf(w, "\treturn %s\n", call)
	}
	w.WriteString("}\n\n")
	return nil
}

// goType maps a C type to the Go spelling used in generated signatures.
func (e *emitter) goType(t CType) (string, error) {
	if t.IsFuncPtr {
		return "", fmt.Errorf("inline function pointers are not supported")
	}

	if t.Name == "void" {
		if t.Pointer == 0 {
			return "", fmt.Errorf("void is not a value type")
		}
		e.usesUnsafe = true
		return strings.Repeat("*", t.Pointer-1) + "unsafe.Pointer", nil
	}

	var base string
	switch {
	case t.IsStruct || t.IsUnion || t.IsEnum:
		kind := "struct"
		if t.IsUnion {
			kind = "union"
		} else if t.IsEnum {
			kind = "enum"
		}
		if a, ok := e.aliases[kind+" "+t.Name]; ok {
			base = a
		} else {
			base = "C." + kind + "_" + t.Name
		}
	default:
		spelling := t.Name
		if t.IsUnsigned {
			spelling = "unsigned " + spelling
		} else if t.IsSigned && t.Name == "char" {
			spelling = "signed char"
		}
		if s, ok := scalars[spelling]; ok {
			base = s
		} else if a, ok := e.aliases[t.Name]; ok {
			base = a
		} else if identRe.MatchString(t.Name) {
			base = "C." + t.Name
		} else {
			return "", fmt.Errorf("type %q has no cgo equivalent", spelling)
		}
	}

	return strings.Repeat("*", t.Pointer) + base, nil
}

// cgoSafeChars are the characters cgo accepts in #cgo flags once
// ${SRCDIR} has been expanded.
const cgoSafeChars = "+-.,/0123456789=ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz:$@%! ~^"

// cgoFlags joins flags for a #cgo line, quoting the ones that contain
// spaces. Flags cgo would refuse are an error.
func cgoFlags(flags []string) (string, error) {
	quoted := make([]string, len(flags))
	for i, f := range flags {
		bare := strings.ReplaceAll(f, "${SRCDIR}", "")
		if strings.IndexFunc(bare, func(r rune) bool { return !strings.ContainsRune(cgoSafeChars, r) }) >= 0 {
			return "", fmt.Errorf("flag %q contains characters cgo does not accept", f)
		}
		if strings.Contains(f, " ") {
			quoted[i] = "'" + f + "'"
		} else {
			quoted[i] = f
		}
	}
	return strings.Join(quoted, " "), nil
}

func isExported(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}

// CgoType spells t the way cgo names it inside the package that imports
// "C", without going through any type aliases.
func CgoType(t CType) (string, error) {
	e := &emitter{aliases: map[string]string{}, declared: map[string]bool{}}
	return e.goType(t)
}
