package lvglsys

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseFeatures(t *testing.T) {
	testCases := []struct {
		input string
		want  Features
	}{
		{"", Features{}},
		{"use-vendored-config", Features{UseVendoredConfig: true}},
		{"drivers,library", Features{Drivers: true, Library: true}},
		{"rust_timer raw-bindings", Features{HostTimer: true, RawBindings: true}},
		{"host_timer", Features{HostTimer: true}},
		{" custom_timer ,\tDRIVERS\n", Features{CustomTimer: true, Drivers: true}},
		{"library,library", Features{Library: true}},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseFeatures(tc.input)
			if err != nil {
				t.Fatalf("ParseFeatures(%q) failed: %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("Expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestParseFeaturesUnknown(t *testing.T) {
	_, err := ParseFeatures("drivers,sdl")
	if !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("Expected ErrConfigurationMissing, got %v", err)
	}
}

func TestFeaturesNames(t *testing.T) {
	f := Features{RawBindings: true, UseVendoredConfig: true, HostTimer: true}

	want := []string{"use-vendored-config", "rust_timer", "raw-bindings"}
	if got := f.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if got := f.String(); got != "use-vendored-config,rust_timer,raw-bindings" {
		t.Errorf("Expected canonical string, got %q", got)
	}

	parsed, err := ParseFeatures(f.String())
	if err != nil || parsed != f {
		t.Errorf("Expected String to parse back to %+v, got %+v (%v)", f, parsed, err)
	}

	if len(KnownFeatures()) != 6 {
		t.Errorf("Expected 6 known features, got %v", KnownFeatures())
	}
}

func TestFeaturesTick(t *testing.T) {
	testCases := []struct {
		name       string
		features   Features
		customTick bool
		hostTick   bool
	}{
		{"default", Features{}, false, false},
		{"rust_timer", Features{HostTimer: true}, true, true},
		{"custom_timer", Features{CustomTimer: true}, true, false},
		{"both", Features{HostTimer: true, CustomTimer: true}, true, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.features.CustomTick(); got != tc.customTick {
				t.Errorf("Expected CustomTick()=%v, got %v", tc.customTick, got)
			}
			if got := tc.features.HostTick(); got != tc.hostTick {
				t.Errorf("Expected HostTick()=%v, got %v", tc.hostTick, got)
			}
		})
	}
}
