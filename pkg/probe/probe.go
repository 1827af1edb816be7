// SPDX-License-Identifier: MPL-2.0

package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Version query kinds.
const (
	// QueryAny accepts every installed version.
	QueryAny QueryKind = iota
	// QueryRange accepts Min <= v < Max; an empty bound is open.
	QueryRange
	// QueryExact accepts only Exact.
	QueryExact
)

// ErrNotFound is the sentinel error wrapped by NotFoundError.
var ErrNotFound = errors.New("library not found")

type (
	// QueryKind selects how a VersionQuery is interpreted.
	QueryKind int

	// VersionQuery is the version restriction a prober applies.
	VersionQuery struct {
		Kind  QueryKind
		Min   string
		Max   string
		Exact string
	}

	// PkgConfigRequest asks for a pkg-config module.
	PkgConfigRequest struct {
		Name  string
		Query VersionQuery
	}

	// VcpkgRequest asks for a vcpkg port and the libraries it must provide.
	// When Libs is empty a single library named after the port is expected.
	VcpkgRequest struct {
		Name string
		Libs []LibName
	}

	// LibName is an import library and, optionally, its DLL.
	LibName struct {
		Lib string
		DLL string
	}

	// Library describes a library found on the system.
	Library struct {
		Name         string
		Version      string
		IncludePaths []string
		LinkPaths    []string
		Libs         []string
		DLLPaths     []string
	}

	// PkgConfigProber looks up pkg-config modules.
	PkgConfigProber interface {
		ProbePkgConfig(ctx context.Context, req PkgConfigRequest) (*Library, error)
	}

	// VcpkgProber looks up vcpkg ports.
	VcpkgProber interface {
		ProbeVcpkg(ctx context.Context, req VcpkgRequest) (*Library, error)
	}

	// Runner executes an external command and returns its standard output.
	Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

	// NotFoundError reports that a library is absent or does not satisfy the query.
	NotFoundError struct {
		Library string
		Detail  string
	}

	// CommandError reports a failed external command with its standard error.
	CommandError struct {
		Command string
		Stderr  string
		Err     error
	}
)

// AnyVersion accepts every version.
func AnyVersion() VersionQuery { return VersionQuery{Kind: QueryAny} }

// Between accepts min <= v < max.
func Between(minVersion, maxVersion string) VersionQuery {
	return VersionQuery{Kind: QueryRange, Min: minVersion, Max: maxVersion}
}

// AtLeast accepts min <= v.
func AtLeast(minVersion string) VersionQuery {
	return VersionQuery{Kind: QueryRange, Min: minVersion}
}

// Below accepts v < max.
func Below(maxVersion string) VersionQuery {
	return VersionQuery{Kind: QueryRange, Max: maxVersion}
}

// Exactly accepts only v.
func Exactly(v string) VersionQuery {
	return VersionQuery{Kind: QueryExact, Exact: v}
}

// String renders the query in pkg-config comparison syntax.
func (q VersionQuery) String() string {
	switch q.Kind {
	case QueryRange:
		var parts []string
		if q.Min != "" {
			parts = append(parts, ">= "+q.Min)
		}
		if q.Max != "" {
			parts = append(parts, "< "+q.Max)
		}
		return strings.Join(parts, ", ")
	case QueryExact:
		return "= " + q.Exact
	default:
		return "*"
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("library %q not found", e.Library)
	}
	return fmt.Sprintf("library %q not found: %s", e.Library, e.Detail)
}

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

// Unwrap returns the underlying execution error.
func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs name with os/exec, returning standard output and a
// *CommandError that carries standard error on failure.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &CommandError{
			Command: name + " " + strings.Join(args, " "),
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return stdout.Bytes(), nil
}
