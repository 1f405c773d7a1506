package bindgen

import (
	"fmt"
	"strings"
)

// PreprocessorFactory manages the registration and selection of
// preprocessors.
//
// # Selection
//
// For looks a preprocessor up by name. An empty name selects the first
// registered one, so registration order is the preference order.
//
// # Thread Safety
//
// PreprocessorFactory is NOT thread-safe for registration.
// Register all preprocessors before concurrent use.
type PreprocessorFactory struct {
	preprocessors []Preprocessor
}

// NewPreprocessorFactory creates a factory that prefers cc when it is
// given and falls back to the builtin modernc.org/cc preprocessor.
func NewPreprocessorFactory(cc *CCPreprocessor) *PreprocessorFactory {
	factory := &PreprocessorFactory{}
	if cc != nil {
		factory.Register(cc)
	}
	factory.Register(BuiltinPreprocessor{})
	return factory
}

// Register adds a preprocessor. A later registration with the same name
// never shadows an earlier one.
func (f *PreprocessorFactory) Register(p Preprocessor) {
	f.preprocessors = append(f.preprocessors, p)
}

// For returns the preprocessor called name, or the preferred one when name
// is empty.
func (f *PreprocessorFactory) For(name string) (Preprocessor, error) {
	if len(f.preprocessors) == 0 {
		return nil, fmt.Errorf("no preprocessors registered")
	}
	if name == "" {
		return f.preprocessors[0], nil
	}

	for _, p := range f.preprocessors {
		if strings.EqualFold(p.Name(), name) {
			return p, nil
		}
	}

	return nil, fmt.Errorf("unknown preprocessor %q (available: %s)", name, strings.Join(f.Names(), ", "))
}

// List returns a copy of all registered preprocessors.
func (f *PreprocessorFactory) List() []Preprocessor {
	return append([]Preprocessor{}, f.preprocessors...)
}

// Names returns the registered preprocessor names in preference order.
func (f *PreprocessorFactory) Names() []string {
	names := make([]string, 0, len(f.preprocessors))
	for _, p := range f.preprocessors {
		names = append(names, p.Name())
	}
	return names
}
