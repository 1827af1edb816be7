// SPDX-License-Identifier: MPL-2.0

package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/shell"
)

// DefaultPkgConfigBinary is the pkg-config executable looked up on PATH.
const DefaultPkgConfigBinary = "pkg-config"

// ExecPkgConfig probes modules by running the pkg-config executable.
type ExecPkgConfig struct {
	// Binary is the executable to run; DefaultPkgConfigBinary when empty.
	Binary string
	// Run executes commands; ExecRunner when nil.
	Run Runner
}

// NewExecPkgConfig returns a prober running binary.
func NewExecPkgConfig(binary string) *ExecPkgConfig {
	return &ExecPkgConfig{Binary: binary}
}

// ProbePkgConfig checks that the module exists and satisfies the query, then
// collects its version, include directories and link flags.
func (p *ExecPkgConfig) ProbePkgConfig(ctx context.Context, req PkgConfigRequest) (*Library, error) {
	if req.Name == "" {
		return nil, errors.New("pkg-config request without a module name")
	}

	check := append([]string{"--exists", "--print-errors"}, moduleSpecs(req)...)
	if _, err := p.run(ctx, check...); err != nil {
		detail := req.Query.String()
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && cmdErr.Stderr != "" {
			detail += ": " + cmdErr.Stderr
		}
		return nil, &NotFoundError{Library: req.Name, Detail: detail}
	}

	lib := &Library{Name: req.Name}

	version, err := p.run(ctx, "--modversion", req.Name)
	if err != nil {
		return nil, err
	}
	lib.Version = strings.TrimSpace(string(version))

	if lib.IncludePaths, err = p.flags(ctx, "--cflags-only-I", "-I", req.Name); err != nil {
		return nil, err
	}
	if lib.LinkPaths, err = p.flags(ctx, "--libs-only-L", "-L", req.Name); err != nil {
		return nil, err
	}
	if lib.Libs, err = p.flags(ctx, "--libs-only-l", "-l", req.Name); err != nil {
		return nil, err
	}
	return lib, nil
}

// moduleSpecs translates the request into pkg-config module arguments, e.g.
// "zlib >= 1.2" and "zlib < 2".
func moduleSpecs(req PkgConfigRequest) []string {
	q := req.Query
	switch q.Kind {
	case QueryRange:
		var specs []string
		if q.Min != "" {
			specs = append(specs, req.Name+" >= "+q.Min)
		}
		if q.Max != "" {
			specs = append(specs, req.Name+" < "+q.Max)
		}
		if len(specs) > 0 {
			return specs
		}
	case QueryExact:
		return []string{req.Name + " = " + q.Exact}
	}
	return []string{req.Name}
}

func (p *ExecPkgConfig) flags(ctx context.Context, option, prefix, name string) ([]string, error) {
	out, err := p.run(ctx, option, name)
	if err != nil {
		return nil, err
	}
	fields, err := splitFlags(string(out))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pkg-config %s output: %w", option, err)
	}
	var values []string
	for _, f := range fields {
		if v, ok := strings.CutPrefix(f, prefix); ok && v != "" {
			values = append(values, v)
		}
	}
	return values, nil
}

// splitFlags splits pkg-config output using shell quoting rules, so that
// escaped spaces in paths survive.
func splitFlags(s string) ([]string, error) {
	return shell.Fields(s, func(string) string { return "" })
}

func (p *ExecPkgConfig) run(ctx context.Context, args ...string) ([]byte, error) {
	binary := p.Binary
	if binary == "" {
		binary = DefaultPkgConfigBinary
	}
	run := p.Run
	if run == nil {
		run = ExecRunner
	}
	return run(ctx, binary, args...)
}
