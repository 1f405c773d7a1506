package lvglsys

import (
	"fmt"
	"strings"

	"golang.org/x/sys/execabs"
)

// execLookPath is replaced in tests.
var execLookPath = execabs.LookPath

// ToolChecker is implemented by anything that needs external programs.
//
// # Platform Support
//
// Tool alternatives handle platform differences:
//   - FreeBSD and macOS: cc is clang
//   - Linux: cc is usually gcc
//   - LLVM-only toolchains: llvm-ar instead of ar
//
// # Consumer Usage
//
// Check tools before building:
//
//	if err := toolchain.CheckTools(); err != nil {
//	    return fmt.Errorf("build tools missing: %w", err)
//	}
type ToolChecker interface {
	// RequiredTools returns the list of tools needed.
	RequiredTools() []ToolRequirement

	// CheckTools verifies that all required tools are available.
	// Optional tools don't cause errors if missing.
	CheckTools() error
}

// ToolRequirement describes a build tool dependency.
//
// Tool with alternatives:
//
//	ToolRequirement{
//	    Name:         "cc",
//	    Alternatives: []string{"gcc", "clang"},
//	    Purpose:      "C compiler",
//	}
type ToolRequirement struct {
	// Name is the primary tool binary name (e.g., "cc", "zig").
	Name string

	// Alternatives are tool names that can satisfy this requirement
	// when Name is missing. They are tried in order.
	Alternatives []string

	// Optional indicates this tool won't cause an error if missing.
	Optional bool

	// Purpose is a human-readable description of why this tool is needed.
	Purpose string
}

// CheckToolAvailable checks if a tool is available in the system PATH.
// Relative PATH entries are ignored, so a compiler in the current
// directory is never picked up by accident.
func CheckToolAvailable(tool string) error {
	_, err := execLookPath(tool)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", tool)
	}
	return nil
}

// FindTool returns the first of req.Name and req.Alternatives that is on
// PATH.
func FindTool(req ToolRequirement) (string, error) {
	for _, name := range append([]string{req.Name}, req.Alternatives...) {
		if CheckToolAvailable(name) == nil {
			return name, nil
		}
	}
	if len(req.Alternatives) == 0 {
		return "", fmt.Errorf("%s not found in PATH", req.Name)
	}
	return "", fmt.Errorf("none of %s found in PATH", strings.Join(append([]string{req.Name}, req.Alternatives...), ", "))
}

// CheckRequiredTools verifies all required tools are available.
//
// # Behavior
//
//   - Checks the primary tool name first
//   - If not found, tries each alternative tool in order
//   - Optional tools are checked but don't cause errors
//   - Returns all missing required tools in a single error
//
// # Error Format
//
// Single missing tool:
//
//	cc (C compiler) not found in PATH
//
// Multiple missing tools:
//
//	missing required tools: cc (C compiler), ar (static library archiver)
func CheckRequiredTools(requirements []ToolRequirement) error {
	var missingTools []string

	for _, req := range requirements {
		if _, err := FindTool(req); err == nil || req.Optional {
			continue
		}

		if req.Purpose != "" {
			missingTools = append(missingTools, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
		} else {
			missingTools = append(missingTools, req.Name)
		}
	}

	if len(missingTools) == 0 {
		return nil
	}

	if len(missingTools) == 1 {
		return fmt.Errorf("%s not found in PATH", missingTools[0])
	}

	return fmt.Errorf("missing required tools: %s", strings.Join(missingTools, ", "))
}
