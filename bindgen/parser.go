package bindgen

import (
	"regexp"

	"modernc.org/cc/v4"
)

var identRe = regexp.MustCompile(`^[A-Za-z_]\w*$`)

const preludeName = "<prelude>"

// prelude declares what GCC-compatible compilers provide without a header,
// plus the declarator the cc type checker requires.
const prelude = `#define __extension__
typedef void *__builtin_va_list;
int __predefined_declarator;
`

// Parse type-checks a preprocessed translation unit with modernc.org/cc and
// returns the declarations it contains. Function definitions (bodies) are
// dropped; only prototypes with external linkage are reported as
// functions. Array parameters are reported as the pointers they decay to.
//
// Parse fails when the input is not valid C, which usually means
// preprocessing went wrong.
func Parse(src string) (*Header, error) {
	abi := hostABI()
	cfg := &cc.Config{
		ABI:             abi,
		Header:          true,
		DefaultSizeT:    cc.ULong,
		DefaultPtrdiffT: cc.Long,
		DefaultWcharT:   cc.Int,
	}
	ast, err := cc.Translate(cfg, []cc.Source{
		{Name: preludeName, Value: prelude},
		{Name: "<input>", Value: src},
	})
	if err != nil {
		return nil, err
	}

	p := &headerParser{
		header: &Header{},
		seen:   make(map[string]bool),
	}
	for l := ast.TranslationUnit; l != nil; l = l.TranslationUnit {
		ed := l.ExternalDeclaration
		if ed.Case != cc.ExternalDeclarationDecl || ed.Declaration.Case != cc.DeclarationDecl {
			continue
		}
		if ed.Declaration.Position().Filename == preludeName {
			continue
		}
		p.declaration(ed.Declaration)
	}
	return p.header, nil
}

type headerParser struct {
	header *Header
	seen   map[string]bool // kind + name, for repeated declarations
}

func (p *headerParser) once(kind, name string) bool {
	key := kind + " " + name
	if p.seen[key] {
		return false
	}
	p.seen[key] = true
	return true
}

// body is a struct, union or enum declared with its member list.
type body struct {
	kind    string // "struct", "union" or "enum"
	tag     string
	values  []EnumValue
	primary string // first typedef naming the body itself
}

func (p *headerParser) declaration(decl *cc.Declaration) {
	b := declaredBody(decl.DeclarationSpecifiers)

	for l := decl.InitDeclaratorList; l != nil; l = l.InitDeclaratorList {
		d := l.InitDeclarator.Declarator
		t := d.Type()

		switch {
		case d.IsTypename():
			if b != nil && kindName(t.Kind()) == b.kind {
				p.namedBody(b, d.Name())
				continue
			}
			src := ctype(t, d)
			if b != nil && b.tag == "" && src.Name == "" && b.primary != "" {
				src = CType{Name: b.primary, Pointer: src.Pointer, IsConst: src.IsConst}
			}
			if p.once("typedef", d.Name()) {
				p.header.TypeDefs = append(p.header.TypeDefs, TypeDef{Name: d.Name(), Source: src})
			}
		case t.Kind() == cc.Function && !d.IsStatic():
			if ft, ok := t.(*cc.FunctionType); ok {
				p.function(d.Name(), ft)
			}
		}
	}

	if b == nil || b.primary != "" {
		return
	}
	switch {
	case b.kind == "enum" && b.tag != "":
		if p.once("enum-tag", b.tag) {
			p.header.Enums = append(p.header.Enums, Enum{Tag: b.tag, Values: b.values})
		}
	case b.kind == "enum":
		// Anonymous enums only contribute their constants.
		if len(b.values) > 0 && p.once("enum-anon", b.values[0].Name) {
			p.header.Enums = append(p.header.Enums, Enum{Values: b.values})
		}
	case b.tag != "":
		if p.once("struct-tag", b.tag) {
			p.header.Structs = append(p.header.Structs, Struct{Tag: b.tag, Union: b.kind == "union"})
		}
	}
}

func (p *headerParser) namedBody(b *body, name string) {
	if b.primary == "" {
		b.primary = name
	}
	if b.kind == "enum" {
		if p.once("enum", name) {
			p.header.Enums = append(p.header.Enums, Enum{Name: name, Tag: b.tag, Values: b.values})
		}
		return
	}
	if p.once("struct", name) {
		p.header.Structs = append(p.header.Structs, Struct{Name: name, Tag: b.tag, Union: b.kind == "union"})
	}
}

func (p *headerParser) function(name string, ft *cc.FunctionType) {
	fn := Function{
		Name:     name,
		Return:   ctype(ft.Result(), nil),
		Variadic: ft.IsVariadic(),
	}

	params := ft.Parameters()
	if len(params) == 1 && params[0].Type().Kind() == cc.Void {
		params = nil
	}
	for _, prm := range params {
		fn.Params = append(fn.Params, Param{Name: prm.Name(), Type: ctype(prm.Type(), nil)})
	}

	if p.once("func", name) {
		p.header.Functions = append(p.header.Functions, fn)
	}
}

// declaredBody returns the struct, union or enum ds defines, if any.
func declaredBody(ds *cc.DeclarationSpecifiers) *body {
	for ; ds != nil; ds = ds.DeclarationSpecifiers {
		ts := ds.TypeSpecifier
		if ts == nil {
			continue
		}

		switch ts.Case {
		case cc.TypeSpecifierStructOrUnion:
			s := ts.StructOrUnionSpecifier
			if s.Case != cc.StructOrUnionSpecifierDef {
				return nil
			}
			b := &body{kind: "struct", tag: s.Token.SrcStr()}
			if s.StructOrUnion.Case == cc.StructOrUnionUnion {
				b.kind = "union"
			}
			return b
		case cc.TypeSpecifierEnum:
			e := ts.EnumSpecifier
			if e.Case != cc.EnumSpecifierDef {
				return nil
			}
			b := &body{kind: "enum", tag: e.Token2.SrcStr()}
			for l := e.EnumeratorList; l != nil; l = l.EnumeratorList {
				en := l.Enumerator
				v := EnumValue{Name: en.Token.SrcStr()}
				if en.Case == cc.EnumeratorExpr {
					v.Value = cc.NodeSource(en.ConstantExpression)
				}
				b.values = append(b.values, v)
			}
			return b
		}
	}
	return nil
}

// scalar kinds by C spelling.
var kinds = map[cc.Kind]CType{
	cc.Void:       {Name: "void"},
	cc.Bool:       {Name: "bool"},
	cc.Char:       {Name: "char"},
	cc.SChar:      {Name: "char", IsSigned: true},
	cc.UChar:      {Name: "char", IsUnsigned: true},
	cc.Short:      {Name: "short"},
	cc.UShort:     {Name: "short", IsUnsigned: true},
	cc.Int:        {Name: "int"},
	cc.UInt:       {Name: "int", IsUnsigned: true},
	cc.Long:       {Name: "long"},
	cc.ULong:      {Name: "long", IsUnsigned: true},
	cc.LongLong:   {Name: "long long"},
	cc.ULongLong:  {Name: "long long", IsUnsigned: true},
	cc.Float:      {Name: "float"},
	cc.Double:     {Name: "double"},
	cc.LongDouble: {Name: "long double"},
}

func kindName(k cc.Kind) string {
	switch k {
	case cc.Struct:
		return "struct"
	case cc.Union:
		return "union"
	case cc.Enum:
		return "enum"
	}
	return ""
}

// ctype converts t, following pointers and arrays down to a named type.
// Typedefs are kept by name, except self, the typedef being declared.
func ctype(t cc.Type, self *cc.Declarator) CType {
	var ct CType
	for {
		if t.Attributes().IsConst() {
			ct.IsConst = true
		}
		if td := t.Typedef(); td != nil && td != self {
			ct.Name = td.Name()
			return ct
		}

		switch x := t.(type) {
		case *cc.PointerType:
			ct.Pointer++
			t = x.Elem()
			continue
		case *cc.ArrayType:
			ct.Pointer++
			t = x.Elem()
			continue
		case *cc.FunctionType:
			return CType{IsFuncPtr: true}
		case *cc.StructType:
			tag := x.Tag()
			ct.Name, ct.IsStruct = tag.SrcStr(), true
		case *cc.UnionType:
			tag := x.Tag()
			ct.Name, ct.IsUnion = tag.SrcStr(), true
		case *cc.EnumType:
			tag := x.Tag()
			ct.Name, ct.IsEnum = tag.SrcStr(), true
		default:
			base, ok := kinds[t.Kind()]
			if !ok {
				base = CType{Name: t.String()}
			}
			base.Pointer, base.IsConst = ct.Pointer, ct.IsConst
			ct = base
		}
		return ct
	}
}
