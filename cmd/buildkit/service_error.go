// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/invowk/buildkit/internal/issue"
	"github.com/invowk/buildkit/pkg/buildkit"
)

type (
	// ServiceError is an error that carries rendering information for the CLI
	// layer: the issue catalog entry explaining it and the exit code.
	// Always create via newServiceError to enforce the Err-must-be-non-nil invariant.
	ServiceError struct {
		// Err is the underlying error (must not be nil).
		Err error
		// IssueID is the optional issue catalog ID for rendering help text.
		IssueID issue.Id
		// Code is the process exit code.
		Code int
	}

	// settingsError marks failures to load buildkit's own settings.
	settingsError struct{ err error }

	// scriptError marks failures of the vendored build script.
	scriptError struct{ err error }
)

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id, code int) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{Err: err, IssueID: issueID, Code: code}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

func (e *settingsError) Error() string { return "loading settings: " + e.err.Error() }
func (e *settingsError) Unwrap() error { return e.err }

func (e *scriptError) Error() string { return "vendored build script: " + e.err.Error() }
func (e *scriptError) Unwrap() error { return e.err }

// classifyError attaches the catalog entry and exit code matching err.
func classifyError(err error) *ServiceError {
	var se *settingsError
	if errors.As(err, &se) {
		return newServiceError(err, issue.SettingsLoadFailedId, ExitConfig)
	}

	kind := buildkit.Classify(err)
	code := exitCodeFor(kind)
	switch kind {
	case buildkit.KindConfig:
		return newServiceError(err, issue.ManifestProblemId, code)
	case buildkit.KindEnvironment:
		return newServiceError(err, issue.EnvironmentMissingId, code)
	case buildkit.KindRequirement:
		return newServiceError(err, issue.RequirementMissingId, code)
	case buildkit.KindProbe:
		var pe *buildkit.ProbeError
		if errors.As(err, &pe) && pe.Prober == buildkit.ProberVcpkg {
			return newServiceError(err, issue.VcpkgProbeFailedId, code)
		}
		return newServiceError(err, issue.PkgConfigProbeFailedId, code)
	case buildkit.KindFetch:
		return newServiceError(err, issue.FetchFailedId, code)
	}

	var sc *scriptError
	if errors.As(err, &sc) {
		return newServiceError(err, issue.VendoredBuildFailedId, code)
	}
	return newServiceError(err, 0, code)
}

// renderServiceError writes actionable details and the issue help section.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, verbose bool) {
	if svcErr == nil {
		return
	}

	var ae *issue.ActionableError
	if errors.As(svcErr.Err, &ae) && ae.HasSuggestions() {
		fmt.Fprintln(stderr, ae.Format(verbose))
	}

	if svcErr.IssueID == 0 {
		return
	}
	if entry := issue.Get(svcErr.IssueID); entry != nil {
		rendered, renderErr := entry.Render("dark")
		if renderErr != nil {
			log.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", renderErr)
			return
		}
		fmt.Fprint(stderr, rendered)
	}
}
