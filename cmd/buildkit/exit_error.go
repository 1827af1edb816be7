// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/invowk/buildkit/pkg/buildkit"
)

// Exit codes, one per error kind so wrappers can tell who has to act.
const (
	ExitOK          = 0
	ExitCaller      = 1
	ExitConfig      = 2
	ExitEnvironment = 3
	ExitRequirement = 4
	ExitProbe       = 5
	ExitFetch       = 6
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps an error kind to the process exit code.
func exitCodeFor(kind buildkit.ErrorKind) int {
	switch kind {
	case buildkit.KindNone:
		return ExitOK
	case buildkit.KindConfig:
		return ExitConfig
	case buildkit.KindEnvironment:
		return ExitEnvironment
	case buildkit.KindRequirement:
		return ExitRequirement
	case buildkit.KindProbe:
		return ExitProbe
	case buildkit.KindFetch:
		return ExitFetch
	default:
		return ExitCaller
	}
}
