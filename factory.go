package lvglsys

import (
	"fmt"
	"strings"
)

// ToolchainFactory manages the registration and selection of toolchains.
//
// # Usage
//
// Create a factory with the standard toolchains:
//
//	factory := lvglsys.NewToolchainFactory()
//
// Or register a cross toolchain of your own:
//
//	factory.Register(lvglsys.NewToolchain(&lvglsys.ToolchainConfig{
//	    Name:        "arm-none-eabi",
//	    Compiler:    []string{"arm-none-eabi-gcc"},
//	    CompileArgs: []string{"{{flags}}", "-c", "{{input}}", "-o", "{{output}}"},
//	    Archiver:    []string{"arm-none-eabi-ar"},
//	    ArchiveArgs: []string{"rcs", "{{output}}", "{{inputs}}"},
//	}))
//
// # Selection
//
// For returns the toolchain registered under a name. An empty name selects
// the first registered toolchain.
//
// # Thread Safety
//
// ToolchainFactory is NOT thread-safe for registration.
// Register all toolchains before concurrent use.
type ToolchainFactory struct {
	toolchains []*Toolchain
}

// NewToolchainFactory creates a factory with the standard toolchains
// registered, gnu first.
func NewToolchainFactory() *ToolchainFactory {
	factory := &ToolchainFactory{}
	factory.Register(NewGNUToolchain())
	factory.Register(NewZigToolchain())
	return factory
}

// Register adds a toolchain. A toolchain registered under a name that is
// already taken is never selected.
//
// Not thread-safe. Register all toolchains before concurrent use.
func (f *ToolchainFactory) Register(t *Toolchain) {
	f.toolchains = append(f.toolchains, t)
}

// For returns the toolchain called name, or the first registered one when
// name is empty.
func (f *ToolchainFactory) For(name string) (*Toolchain, error) {
	if len(f.toolchains) == 0 {
		return nil, fmt.Errorf("no toolchains registered")
	}
	if name == "" {
		return f.toolchains[0], nil
	}

	for _, t := range f.toolchains {
		if strings.EqualFold(t.Name(), name) {
			return t, nil
		}
	}

	return nil, fmt.Errorf("unknown toolchain %q (available: %s)", name, strings.Join(f.names(), ", "))
}

// List returns a copy of all registered toolchains.
func (f *ToolchainFactory) List() []*Toolchain {
	return append([]*Toolchain{}, f.toolchains...)
}

func (f *ToolchainFactory) names() []string {
	names := make([]string, len(f.toolchains))
	for i, t := range f.toolchains {
		names[i] = t.Name()
	}
	return names
}
