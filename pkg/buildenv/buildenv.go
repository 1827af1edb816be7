// SPDX-License-Identifier: MPL-2.0

package buildenv

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
)

// Well-known variables set by the host build system for a build script.
const (
	// ManifestDir is the directory containing the package manifest (the build root).
	ManifestDir = "CARGO_MANIFEST_DIR"
	// PackageName is the name of the package being built.
	PackageName = "CARGO_PKG_NAME"
	// PackageVersion is the version of the package being built.
	PackageVersion = "CARGO_PKG_VERSION"
	// Target is the target triple being compiled for.
	Target = "TARGET"
	// OutDir is the per-package scratch directory for build outputs.
	OutDir = "OUT_DIR"
)

// ErrMissingVariable is the sentinel error wrapped by MissingVariableError.
var ErrMissingVariable = errors.New("missing environment variable")

type (
	// Environment looks up environment variables.
	Environment interface {
		LookupEnv(key string) (string, bool)
	}

	// Map is an Environment backed by a fixed set of variables.
	Map map[string]string

	// MissingVariableError is returned when a required variable is unset or empty.
	MissingVariableError struct {
		Name string
	}

	osEnvironment struct{}
)

// OS returns an Environment that reads the process environment.
func OS() Environment {
	return osEnvironment{}
}

func (osEnvironment) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// LookupEnv implements Environment.
func (m Map) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Keys returns the variable names in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Error implements the error interface.
func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("did not find $%s in env", e.Name)
}

// Unwrap returns ErrMissingVariable for errors.Is() compatibility.
func (e *MissingVariableError) Unwrap() error { return ErrMissingVariable }

// Require returns the value of name, failing with *MissingVariableError when
// the variable is unset or empty.
func Require(env Environment, name string) (string, error) {
	v, ok := env.LookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", &MissingVariableError{Name: name}
	}
	return v, nil
}

// Lookup returns the value of name, or "" when it is unset.
func Lookup(env Environment, name string) string {
	v, _ := env.LookupEnv(name)
	return v
}
