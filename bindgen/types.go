package bindgen

// CType is a parsed C type reference.
type CType struct {
	Name       string // base name without qualifiers: "int", "lv_obj_t", tag for struct/enum/union
	Pointer    int    // levels of indirection
	IsConst    bool
	IsUnsigned bool
	IsSigned   bool // explicit "signed", only meaningful for char
	IsStruct   bool // "struct tag"
	IsUnion    bool // "union tag"
	IsEnum     bool // "enum tag"
	IsFuncPtr  bool // inline function pointer, not representable as a cgo parameter
}

// IsVoid reports whether t is plain void (not a pointer to it).
func (t CType) IsVoid() bool {
	return t.Name == "void" && t.Pointer == 0
}

// IsString reports whether t is a (const) char pointer.
func (t CType) IsString() bool {
	return t.Name == "char" && t.Pointer == 1 && !t.IsUnsigned && !t.IsSigned
}

// Param is a function parameter.
type Param struct {
	Name string
	Type CType
}

// Function is a function prototype.
type Function struct {
	Name     string
	Return   CType
	Params   []Param
	Variadic bool
}

// TypeDef is a "typedef <source> <name>" declaration.
type TypeDef struct {
	Name   string
	Source CType
}

// Struct is a struct or union declared with a body. Typedef'd anonymous
// bodies carry the typedef name in Name and an empty Tag.
type Struct struct {
	Name  string
	Tag   string
	Union bool
}

// EnumValue is a single enumerator.
type EnumValue struct {
	Name  string
	Value string
}

// Enum is an enum declared with a body.
type Enum struct {
	Name   string
	Tag    string
	Values []EnumValue
}

// Header is everything parsed out of a preprocessed translation unit.
type Header struct {
	Functions []Function
	TypeDefs  []TypeDef
	Structs   []Struct
	Enums     []Enum
}

// Function returns the function called name.
func (h *Header) Function(name string) (Function, bool) {
	for _, fn := range h.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return Function{}, false
}

// HasType reports whether name is declared as a typedef, struct or enum.
func (h *Header) HasType(name string) bool {
	for _, td := range h.TypeDefs {
		if td.Name == name {
			return true
		}
	}
	for _, s := range h.Structs {
		if s.Name == name {
			return true
		}
	}
	for _, e := range h.Enums {
		if e.Name == name {
			return true
		}
	}
	return false
}

// Define is a preprocessor macro definition passed on the command line.
type Define struct {
	Name  string
	Value string // empty means "-DName" (defined as 1)
}

// Flag renders d as a -D compiler flag.
func (d Define) Flag() string {
	if d.Value == "" {
		return "-D" + d.Name
	}
	return "-D" + d.Name + "=" + d.Value
}

// MacroValue is the replacement text d gives its macro.
func (d Define) MacroValue() string {
	if d.Value == "" {
		return "1"
	}
	return d.Value
}
