// Package bindgen turns LVGL's C headers into cgo bindings.
//
// Generation runs in four steps. A Preprocessor expands the public header
// into a single translation unit. Parse type-checks it with modernc.org/cc
// and extracts the declarations. An AllowList keeps the LVGL API, and Emit
// renders Go source. Generate runs all of them and checks that the symbols
// a build relies on survived.
package bindgen

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMissingSymbol is returned when a required function is absent from the
// generated bindings.
var ErrMissingSymbol = errors.New("required symbol missing from bindings")

// GenerateOptions configure Generate.
type GenerateOptions struct {
	Allow    *AllowList
	Required []string // functions that must be present after filtering
	Emit     EmitOptions
}

// Result is the outcome of a successful Generate.
type Result struct {
	Header *Header // the filtered declarations
	Source []byte  // formatted Go source
}

// Generate preprocesses req with pp and emits bindings for the allowed
// declarations. Nothing is written to disk.
func Generate(ctx context.Context, pp Preprocessor, req Request, opts GenerateOptions) (*Result, error) {
	unit, err := pp.Preprocess(ctx, req)
	if err != nil {
		return nil, err
	}

	parsed, err := Parse(unit)
	if err != nil {
		return nil, fmt.Errorf("parsing preprocessed %s: %w", req.Header, err)
	}

	header := parsed
	if opts.Allow != nil {
		header = opts.Allow.Filter(parsed)
	}

	if err := Require(header, opts.Required...); err != nil {
		return nil, err
	}

	src, err := Emit(header, opts.Emit)
	if err != nil {
		return nil, err
	}

	return &Result{Header: header, Source: src}, nil
}

// Require checks that every name is a function declared in h.
func Require(h *Header, names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := h.Function(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", ErrMissingSymbol, strings.Join(missing, ", "))
}
