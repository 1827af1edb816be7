// SPDX-License-Identifier: MPL-2.0

package buildconf

import (
	"errors"
	"fmt"
)

// Build modes. The string values are the ones accepted for default-mode.
const (
	UsePkgConfig              BuildMode = "pkg-config"
	UsePlatformPackageManager BuildMode = "vcpkg"
	UseVendoredBuild          BuildMode = "vendored"
)

// ErrInvalidBuildMode is the sentinel error wrapped by InvalidBuildModeError.
var ErrInvalidBuildMode = errors.New("invalid build mode")

type (
	// BuildMode is the strategy used to make a native library available:
	// probe with pkg-config, probe with the platform package manager (vcpkg),
	// or build the vendored source.
	BuildMode string

	// InvalidBuildModeError is returned when a string is not a known BuildMode.
	InvalidBuildModeError struct {
		Value BuildMode
	}
)

// String returns the string representation of the BuildMode.
func (m BuildMode) String() string { return string(m) }

// IsValid returns whether the BuildMode is one of the known modes.
func (m BuildMode) IsValid() (bool, []error) {
	switch m {
	case UsePkgConfig, UsePlatformPackageManager, UseVendoredBuild:
		return true, nil
	default:
		return false, []error{&InvalidBuildModeError{Value: m}}
	}
}

// ParseBuildMode converts s to a BuildMode.
func ParseBuildMode(s string) (BuildMode, error) {
	m := BuildMode(s)
	if ok, errs := m.IsValid(); !ok {
		return "", errs[0]
	}
	return m, nil
}

// Error implements the error interface.
func (e *InvalidBuildModeError) Error() string {
	return fmt.Sprintf("invalid build mode %q (expected %q, %q or %q)",
		e.Value, UsePkgConfig, UsePlatformPackageManager, UseVendoredBuild)
}

// Unwrap returns ErrInvalidBuildMode for errors.Is() compatibility.
func (e *InvalidBuildModeError) Unwrap() error { return ErrInvalidBuildMode }
