// SPDX-License-Identifier: MPL-2.0

package buildkit

import (
	"strings"

	"github.com/invowk/buildkit/pkg/buildconf"
	"github.com/invowk/buildkit/pkg/buildenv"
)

// msvcSuffix marks the only targets probed through vcpkg. MinGW targets
// (x86_64-pc-windows-gnu) keep using pkg-config.
const msvcSuffix = "-windows-msvc"

// ResolveMode returns the mode a build uses for cfg.
//
// A vendored default wins without looking at the environment. Otherwise the
// target triple is read from $TARGET: MSVC targets resolve to
// UsePlatformPackageManager and every other target to UsePkgConfig. A missing
// $TARGET is reported as *buildenv.MissingVariableError.
func ResolveMode(cfg *buildconf.Config, env buildenv.Environment) (buildconf.BuildMode, error) {
	if cfg.DefaultMode == buildconf.UseVendoredBuild {
		return buildconf.UseVendoredBuild, nil
	}

	target, err := buildenv.Require(env, buildenv.Target)
	if err != nil {
		return "", err
	}

	if strings.HasSuffix(target, msvcSuffix) {
		return buildconf.UsePlatformPackageManager, nil
	}
	return buildconf.UsePkgConfig, nil
}
