// SPDX-License-Identifier: MPL-2.0

package buildkit

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/invowk/buildkit/pkg/buildconf"
	"github.com/invowk/buildkit/pkg/buildenv"
)

// DefaultStagingDir is the directory, below $OUT_DIR or <root>/target, that
// holds fetched remote sources.
const DefaultStagingDir = "buildkit-vendor"

type (
	// Layout places vendored sources on disk.
	Layout struct {
		// BuildRoot is the package directory; relative sources resolve against it.
		BuildRoot string
		// StagingRoot holds one directory per fetched remote source.
		StagingRoot string
	}

	// VendoredBuildContext tells a VendorHandler where the source to build is.
	// It is created by the Dispatcher and never changes.
	VendoredBuildContext struct {
		source     buildconf.VendoredSource
		sourcePath string
		buildRoot  string
	}
)

// DefaultLayout returns the layout for root: remote sources are staged below
// $OUT_DIR/buildkit-vendor, or <root>/target/buildkit-vendor outside a build.
func DefaultLayout(root string, env buildenv.Environment) Layout {
	staging := filepath.Join(root, "target", DefaultStagingDir)
	if out := buildenv.Lookup(env, buildenv.OutDir); out != "" {
		staging = filepath.Join(out, DefaultStagingDir)
	}
	return Layout{BuildRoot: root, StagingRoot: staging}
}

// SourcePath returns the local directory holding src.
func (l Layout) SourcePath(src buildconf.VendoredSource) (string, error) {
	switch s := src.(type) {
	case buildconf.LocalRelativePath:
		return filepath.Join(l.BuildRoot, filepath.FromSlash(s.Path)), nil
	case buildconf.LocalAbsolutePath:
		return filepath.Clean(s.Path), nil
	case buildconf.RemoteArchive, buildconf.RemoteRepository:
		name, _ := buildconf.StagingDirName(s)
		return filepath.Join(l.stagingRoot(), name), nil
	case nil:
		return "", errors.New("no vendored source")
	default:
		return "", fmt.Errorf("unsupported vendored source %T", src)
	}
}

func (l Layout) stagingRoot() string {
	if l.StagingRoot != "" {
		return l.StagingRoot
	}
	return filepath.Join(l.BuildRoot, "target", DefaultStagingDir)
}

// NewVendoredBuildContext resolves src against layout.
func NewVendoredBuildContext(src buildconf.VendoredSource, layout Layout) (VendoredBuildContext, error) {
	p, err := layout.SourcePath(src)
	if err != nil {
		return VendoredBuildContext{}, err
	}
	return VendoredBuildContext{source: src, sourcePath: p, buildRoot: layout.BuildRoot}, nil
}

// SourcePath returns the directory the handler must build.
func (c VendoredBuildContext) SourcePath() string { return c.sourcePath }

// Source returns the declared (or overridden) source.
func (c VendoredBuildContext) Source() buildconf.VendoredSource { return c.source }

// BuildRoot returns the package directory.
func (c VendoredBuildContext) BuildRoot() string { return c.buildRoot }
