// SPDX-License-Identifier: MPL-2.0

package buildkit

import (
	"errors"
	"fmt"

	"github.com/invowk/buildkit/pkg/buildconf"
	"github.com/invowk/buildkit/pkg/buildenv"
	"github.com/invowk/buildkit/pkg/fetch"
	"github.com/invowk/buildkit/pkg/manifest"
)

// Probers named by ProbeError.
const (
	ProberPkgConfig Prober = "pkg-config"
	ProberVcpkg     Prober = "vcpkg"
)

// Error kinds reported by Classify.
const (
	// KindNone is the kind of a nil error.
	KindNone ErrorKind = iota
	// KindConfig covers unreadable manifests, missing or ambiguous package
	// entries, missing or malformed buildkit sections and bad overrides.
	KindConfig
	// KindEnvironment is a required environment variable that is absent.
	KindEnvironment
	// KindRequirement is a resolved mode whose declaration is absent.
	KindRequirement
	// KindProbe is a pkg-config or vcpkg lookup failure.
	KindProbe
	// KindFetch is a failure to stage a remote vendored source.
	KindFetch
	// KindCaller is any other error, including the vendored handler's own.
	KindCaller
)

var (
	// ErrMissingRequirement is the sentinel error wrapped by MissingRequirementError.
	ErrMissingRequirement = errors.New("missing requirement for build mode")

	// ErrProbeFailed is the sentinel error wrapped by ProbeError.
	ErrProbeFailed = errors.New("library probe failed")

	// ErrInvalidOverride is the sentinel error wrapped by InvalidOverrideError.
	ErrInvalidOverride = errors.New("invalid source directory override")

	// ErrNoVendorHandler is returned when a vendored build is dispatched without a handler.
	ErrNoVendorHandler = errors.New("no vendored build handler supplied")
)

type (
	// Prober names the external lookup that failed.
	Prober string

	// ErrorKind groups errors by who has to act on them.
	ErrorKind int

	// MissingRequirementError reports that the resolved mode has no matching
	// declaration in the configuration.
	MissingRequirementError struct {
		Mode buildconf.BuildMode
		// Field is the document key that was expected, e.g. "vendored-source".
		Field string
	}

	// ProbeError wraps a prober failure with the prober that reported it.
	ProbeError struct {
		Prober  Prober
		Library string
		Err     error
	}

	// InvalidOverrideError reports a source directory override that cannot be used.
	InvalidOverrideError struct {
		Variable string
		Value    string
		Reason   string
	}
)

// String returns the name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConfig:
		return "config"
	case KindEnvironment:
		return "environment"
	case KindRequirement:
		return "requirement"
	case KindProbe:
		return "probe"
	case KindFetch:
		return "fetch"
	case KindCaller:
		return "caller"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error implements the error interface.
func (e *MissingRequirementError) Error() string {
	return fmt.Sprintf("build mode %s requires a %q declaration in the buildkit section", e.Mode, e.Field)
}

// Unwrap returns ErrMissingRequirement for errors.Is() compatibility.
func (e *MissingRequirementError) Unwrap() error { return ErrMissingRequirement }

// Error implements the error interface.
func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s probe for %s failed: %v", e.Prober, e.Library, e.Err)
}

// Unwrap returns both ErrProbeFailed and the prober's own error.
func (e *ProbeError) Unwrap() []error { return []error{ErrProbeFailed, e.Err} }

// Error implements the error interface.
func (e *InvalidOverrideError) Error() string {
	return fmt.Sprintf("invalid $%s=%q: %s", e.Variable, e.Value, e.Reason)
}

// Unwrap returns ErrInvalidOverride for errors.Is() compatibility.
func (e *InvalidOverrideError) Unwrap() error { return ErrInvalidOverride }

// Classify returns the kind of err. Errors returned by a VendorHandler are
// KindCaller unless they wrap one of the sentinels below.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, manifest.ErrManifestRead),
		errors.Is(err, manifest.ErrAmbiguousOrMissingPackage),
		errors.Is(err, manifest.ErrMissingConfigSection),
		errors.Is(err, buildconf.ErrMalformedConfig),
		errors.Is(err, ErrInvalidOverride):
		return KindConfig
	case errors.Is(err, buildenv.ErrMissingVariable):
		return KindEnvironment
	case errors.Is(err, ErrMissingRequirement):
		return KindRequirement
	case errors.Is(err, ErrProbeFailed):
		return KindProbe
	case errors.Is(err, fetch.ErrFetchFailed):
		return KindFetch
	default:
		return KindCaller
	}
}
