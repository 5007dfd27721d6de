// Package abi resolves the ordered list of CPU ABIs the device supports.
package abi

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// ListProperty is the Android system property holding the device's
// supported ABIs, most preferred first.
const ListProperty = "ro.product.cpu.abilist"

// Defaults maps GOARCH to the ABIs a device of that architecture can run,
// most preferred first.
var Defaults = map[string][]string{
	"arm64":   {"arm64-v8a", "armeabi-v7a", "armeabi"},
	"arm":     {"armeabi-v7a", "armeabi"},
	"amd64":   {"x86_64", "x86"},
	"386":     {"x86"},
	"riscv64": {"riscv64"},
}

// PropertyReader returns the value of a system property.
type PropertyReader func(name string) (string, error)

// Getprop reads a property with the Android getprop tool.
func Getprop(name string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "getprop", name).Output()
	if err != nil {
		return "", fmt.Errorf("getprop %s: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Valid reports whether name can be used as a single path element, so it
// stays inside the staging root when joined to it.
func Valid(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`)
}

// Parse splits a comma-separated ABI list, dropping blanks, duplicates and
// names that are not Valid while keeping order.
func Parse(list string) []string {
	var abis []string
	seen := make(map[string]bool)
	for _, a := range strings.Split(list, ",") {
		a = strings.TrimSpace(a)
		if !Valid(a) || seen[a] {
			continue
		}
		seen[a] = true
		abis = append(abis, a)
	}
	return abis
}

// ForArch returns the default ABI list for a GOARCH value.
func ForArch(goarch string) ([]string, error) {
	abis, ok := Defaults[goarch]
	if !ok {
		return nil, fmt.Errorf("no default abi list for architecture %q", goarch)
	}
	return append([]string(nil), abis...), nil
}

// Resolve returns the ABI list to use.
// Priority: explicit list > device property > GOARCH defaults.
// read may be nil to skip the device property. An explicit entry that is
// not Valid is an error.
func Resolve(explicit []string, read PropertyReader) ([]string, error) {
	for _, list := range explicit {
		for _, a := range strings.Split(list, ",") {
			if a = strings.TrimSpace(a); a != "" && !Valid(a) {
				return nil, fmt.Errorf("invalid abi %q", a)
			}
		}
	}
	if abis := Parse(strings.Join(explicit, ",")); len(abis) > 0 {
		return abis, nil
	}

	if read != nil {
		if value, err := read(ListProperty); err == nil {
			if abis := Parse(value); len(abis) > 0 {
				return abis, nil
			}
		}
	}

	return ForArch(runtime.GOARCH)
}
