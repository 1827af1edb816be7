// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/invowk/buildkit/pkg/buildenv"
	"github.com/invowk/buildkit/pkg/buildkit"
)

// Variables exported to the vendored build script.
const (
	EnvSourcePath = "BUILDKIT_SOURCE_PATH"
	EnvBuildRoot  = "BUILDKIT_BUILD_ROOT"
)

// shellScript is a parsed vendored build script.
type shellScript struct {
	name string
	prog *syntax.File
}

func parseShellScript(src, name string) (*shellScript, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("script syntax error: %w", err)
	}
	return &shellScript{name: name, prog: prog}, nil
}

// shellHandler runs sh in the source directory. The process environment is
// inherited and the build variables of the App's environment are layered on
// top, followed by the BUILDKIT_* paths.
func (a *App) shellHandler(ctx context.Context, sh *shellScript, s *session) buildkit.VendorHandler {
	return func(vc buildkit.VendoredBuildContext) error {
		env := os.Environ()
		for _, name := range []string{
			buildenv.ManifestDir, buildenv.PackageName, buildenv.PackageVersion,
			buildenv.Target, buildenv.OutDir,
		} {
			if v := buildenv.Lookup(a.Env, name); v != "" {
				env = append(env, name+"="+v)
			}
		}
		env = append(env, EnvSourcePath+"="+vc.SourcePath(), EnvBuildRoot+"="+vc.BuildRoot())

		runner, err := interp.New(
			interp.Dir(vc.SourcePath()),
			interp.Env(expand.ListEnviron(env...)),
			interp.StdIO(nil, a.stdout, a.stderr),
		)
		if err != nil {
			return &scriptError{err: fmt.Errorf("failed to create interpreter: %w", err)}
		}

		s.logger.Info("running vendored build", "script", sh.name, "source", vc.SourcePath())
		if err := runner.Run(ctx, sh.prog); err != nil {
			var exitStatus interp.ExitStatus
			if errors.As(err, &exitStatus) {
				return &scriptError{err: fmt.Errorf("%s exited with status %d", sh.name, uint8(exitStatus))}
			}
			return &scriptError{err: err}
		}
		return nil
	}
}
