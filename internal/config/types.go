// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	// LogLevelDebug logs resolution details.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs progress such as downloads and found libraries.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs only warnings and errors.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs only errors.
	LogLevelError LogLevel = "error"

	// ManifestReaderFile parses Cargo.toml directly.
	ManifestReaderFile ManifestReader = "file"
	// ManifestReaderCargo asks `cargo metadata`.
	ManifestReaderCargo ManifestReader = "cargo"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidManifestReader is returned when a ManifestReader value is not recognized.
	ErrInvalidManifestReader = errors.New("invalid manifest reader")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level written to standard error.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// ManifestReader selects how the package manifest is read.
	ManifestReader string

	// InvalidManifestReaderError is returned when a ManifestReader value is not recognized.
	// It wraps ErrInvalidManifestReader for errors.Is() compatibility.
	InvalidManifestReaderError struct {
		Value ManifestReader
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds buildkit's settings.
	Config struct {
		// LogLevel is the minimum level written to standard error.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// StagingDir overrides where remote vendored sources are staged.
		StagingDir string `json:"staging_dir" mapstructure:"staging_dir"`
		// ManifestReader selects how Cargo.toml is read.
		ManifestReader ManifestReader `json:"manifest_reader" mapstructure:"manifest_reader"`
		// PkgConfigBinary is the pkg-config executable.
		PkgConfigBinary string `json:"pkg_config_binary" mapstructure:"pkg_config_binary"`
		// CargoBinary is the cargo executable used by the cargo manifest reader.
		CargoBinary string `json:"cargo_binary" mapstructure:"cargo_binary"`
		// VcpkgRoot overrides $VCPKG_ROOT.
		VcpkgRoot string `json:"vcpkg_root" mapstructure:"vcpkg_root"`
		// Fetch enables downloading remote vendored sources before a vendored build.
		Fetch bool `json:"fetch" mapstructure:"fetch"`

		// Source is the file the settings were read from, empty for defaults only.
		Source string `json:"-" mapstructure:"-"`
	}
)

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:        LogLevelInfo,
		ManifestReader:  ManifestReaderFile,
		PkgConfigBinary: "pkg-config",
		CargoBinary:     "cargo",
		Fetch:           true,
	}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Level converts the LogLevel to a charmbracelet/log level.
// Unknown values map to info.
func (l LogLevel) Level() log.Level {
	switch l {
	case LogLevelDebug:
		return log.DebugLevel
	case LogLevelWarn:
		return log.WarnLevel
	case LogLevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String returns the string representation of the ManifestReader.
func (r ManifestReader) String() string { return string(r) }

// IsValid returns whether the ManifestReader is one of the defined readers.
func (r ManifestReader) IsValid() (bool, []error) {
	switch r {
	case ManifestReaderFile, ManifestReaderCargo:
		return true, nil
	default:
		return false, []error{&InvalidManifestReaderError{Value: r}}
	}
}

// Error implements the error interface.
func (e *InvalidManifestReaderError) Error() string {
	return fmt.Sprintf("invalid manifest reader %q (valid: file, cargo)", e.Value)
}

// Unwrap returns ErrInvalidManifestReader for errors.Is() compatibility.
func (e *InvalidManifestReaderError) Unwrap() error { return ErrInvalidManifestReader }

// IsValid returns whether the Config has valid fields. Values that passed the
// CUE schema are valid already; this catches environment overrides.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.ManifestReader.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if strings.TrimSpace(c.PkgConfigBinary) == "" {
		errs = append(errs, errors.New("pkg_config_binary must not be empty"))
	}
	if strings.TrimSpace(c.CargoBinary) == "" {
		errs = append(errs, errors.New("cargo_binary must not be empty"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return fmt.Sprintf("invalid config: %v", e.FieldErrors[0])
	}
	return fmt.Sprintf("invalid config: %d field errors", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }
