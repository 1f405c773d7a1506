package bindgen

import (
	"fmt"
	"regexp"
)

// DefaultAllowPatterns select the LVGL API: lv_* functions and types, the
// _lv_* struct tags behind them and LV_* constants.
var DefaultAllowPatterns = []string{`^lv_.*`, `^LV_.*`, `^_lv_.*`}

// AllowList selects which declarations become bindings. A name is allowed
// when it matches any pattern.
type AllowList struct {
	patterns []*regexp.Regexp
}

// NewAllowList compiles patterns. Patterns are Go regular expressions
// matched against the C name.
func NewAllowList(patterns ...string) (*AllowList, error) {
	a := &AllowList{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid allow pattern %q: %w", p, err)
		}
		a.patterns = append(a.patterns, re)
	}
	return a, nil
}

// Match reports whether name is allowed.
func (a *AllowList) Match(name string) bool {
	if name == "" {
		return false
	}
	for _, re := range a.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Filter returns the part of h the allow list selects. Enums are kept
// when their name or tag is allowed; anonymous enums keep only the allowed
// enumerators.
func (a *AllowList) Filter(h *Header) *Header {
	out := &Header{}

	for _, fn := range h.Functions {
		if a.Match(fn.Name) {
			out.Functions = append(out.Functions, fn)
		}
	}
	for _, td := range h.TypeDefs {
		if a.Match(td.Name) {
			out.TypeDefs = append(out.TypeDefs, td)
		}
	}
	for _, s := range h.Structs {
		if a.Match(s.Name) || a.Match(s.Tag) {
			out.Structs = append(out.Structs, s)
		}
	}
	for _, e := range h.Enums {
		if a.Match(e.Name) || a.Match(e.Tag) {
			out.Enums = append(out.Enums, e)
			continue
		}

		var values []EnumValue
		for _, v := range e.Values {
			if a.Match(v.Name) {
				values = append(values, v)
			}
		}
		if len(values) > 0 {
			out.Enums = append(out.Enums, Enum{Values: values})
		}
	}

	return out
}
