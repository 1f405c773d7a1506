package lvglsys

import (
	"fmt"
	"strings"
)

// Features are the build toggles a consumer selects. The zero value builds
// LVGL with a consumer supplied lv_conf.h, no drivers and the default
// lv_tick_inc based tick.
type Features struct {
	UseVendoredConfig bool // use include/lv_conf.h from the vendored tree
	Drivers           bool // compile lv_drivers and expose its headers
	HostTimer         bool // tick comes from Go through a generated shim
	CustomTimer       bool // tick comes from the consumer's lv_conf.h
	Library           bool // bindings link liblvgl.a through #cgo LDFLAGS
	RawBindings       bool // skip the widget wrappers
}

type featureFlag struct {
	name    string
	aliases []string
	field   func(*Features) *bool
}

// Order is the canonical order used by Names.
var featureFlags = []featureFlag{
	{name: "use-vendored-config", field: func(f *Features) *bool { return &f.UseVendoredConfig }},
	{name: "drivers", field: func(f *Features) *bool { return &f.Drivers }},
	{name: "rust_timer", aliases: []string{"host_timer"}, field: func(f *Features) *bool { return &f.HostTimer }},
	{name: "custom_timer", field: func(f *Features) *bool { return &f.CustomTimer }},
	{name: "library", field: func(f *Features) *bool { return &f.Library }},
	{name: "raw-bindings", field: func(f *Features) *bool { return &f.RawBindings }},
}

// ParseFeatures parses a comma or space separated feature list. Repeated
// names are fine; unknown names are a configuration error.
func ParseFeatures(s string) (Features, error) {
	var f Features

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})

	for _, name := range fields {
		flag, ok := lookupFeature(name)
		if !ok {
			return Features{}, configError("features", fmt.Errorf("unknown feature %q (known: %s)", name, strings.Join(KnownFeatures(), ", ")))
		}
		*flag.field(&f) = true
	}

	return f, nil
}

func lookupFeature(name string) (featureFlag, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, flag := range featureFlags {
		if flag.name == name {
			return flag, true
		}
		for _, alias := range flag.aliases {
			if alias == name {
				return flag, true
			}
		}
	}
	return featureFlag{}, false
}

// KnownFeatures lists the canonical feature names.
func KnownFeatures() []string {
	names := make([]string, len(featureFlags))
	for i, flag := range featureFlags {
		names[i] = flag.name
	}
	return names
}

// Names returns the enabled features in canonical order.
func (f Features) Names() []string {
	var names []string
	for _, flag := range featureFlags {
		if *flag.field(&f) {
			names = append(names, flag.name)
		}
	}
	return names
}

func (f Features) String() string {
	return strings.Join(f.Names(), ",")
}

// CustomTick reports whether LV_TICK_CUSTOM is in effect, in which case
// lv_tick_inc is not part of the expected API.
func (f Features) CustomTick() bool {
	return f.HostTimer || f.CustomTimer
}

// HostTick reports whether the tick is read from Go through the generated
// shim. custom_timer wins when both timers are selected.
func (f Features) HostTick() bool {
	return f.HostTimer && !f.CustomTimer
}
