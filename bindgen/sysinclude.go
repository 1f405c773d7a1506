package bindgen

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"runtime"
	"strings"
	"sync"

	"modernc.org/cc/v4"
)

//go:embed sysinclude/*.h
var sysInclude embed.FS

// sysIncludeDir is the last entry of the builtin preprocessor's system
// include path. It only exists inside sysHeaders.
const sysIncludeDir = "lvgl-sys-include"

// sysHeaders serves the C library headers LVGL includes. Names outside
// sysIncludeDir are left to the real file system; names inside it that have
// no copy resolve to an empty header, so an unknown <header> never stops
// binding generation.
type sysHeaders struct{}

func (sysHeaders) Open(name string) (fs.File, error) {
	rest, ok := strings.CutPrefix(name, sysIncludeDir+"/")
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	if f, err := sysInclude.Open(path.Join("sysinclude", rest)); err == nil {
		return f, nil
	}
	return sysInclude.Open("sysinclude/unknown.h")
}

// hostABI describes the platform the bindings are compiled for. Bindings
// only need type names, so an unsupported platform borrows linux/amd64.
var hostABI = sync.OnceValue(func() *cc.ABI {
	if abi, err := cc.NewABI(runtime.GOOS, runtime.GOARCH); err == nil {
		return abi
	}
	abi, err := cc.NewABI("linux", "amd64")
	if err != nil {
		panic(err)
	}
	return abi
})

// predefined renders the compiler macros the headers in sysinclude expect.
func predefined(abi *cc.ABI) string {
	word := "long"
	if abi.Types[cc.Long].Size != abi.Types[cc.Ptr].Size {
		word = "long long"
	}
	longMax := "9223372036854775807L"
	if abi.Types[cc.Long].Size == 4 {
		longMax = "2147483647L"
	}
	wchar := "int"
	if runtime.GOOS == "windows" {
		wchar = "unsigned short"
	}

	var b strings.Builder
	define := func(name, value string) {
		fmt.Fprintf(&b, "#define %s %s\n", name, value)
	}
	define("__CHAR_BIT__", "8")
	define("__SIZE_TYPE__", "unsigned "+word)
	define("__PTRDIFF_TYPE__", word)
	define("__INTPTR_TYPE__", word)
	define("__UINTPTR_TYPE__", "unsigned "+word)
	define("__WCHAR_TYPE__", wchar)
	define("__LONG_MAX__", longMax)
	if abi.Types[cc.Ptr].Size == 8 {
		define("__SIZE_MAX__", "18446744073709551615ULL")
		define("__INTPTR_MAX__", "9223372036854775807LL")
		define("__UINTPTR_MAX__", "18446744073709551615ULL")
	} else {
		define("__SIZE_MAX__", "4294967295U")
		define("__INTPTR_MAX__", "2147483647")
		define("__UINTPTR_MAX__", "4294967295U")
	}
	return b.String()
}
