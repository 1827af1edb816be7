// SPDX-License-Identifier: MPL-2.0

package buildkit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/invowk/buildkit/pkg/buildconf"
	"github.com/invowk/buildkit/pkg/buildenv"
	"github.com/invowk/buildkit/pkg/directive"
	"github.com/invowk/buildkit/pkg/fetch"
	"github.com/invowk/buildkit/pkg/manifest"
	"github.com/invowk/buildkit/pkg/probe"
)

// BuildKit is the build configuration of one package together with the
// collaborators needed to act on it. It is not modified after construction.
type BuildKit struct {
	cfg    *buildconf.Config
	pkg    manifest.Package
	layout Layout

	env       buildenv.Environment
	pkgConfig probe.PkgConfigProber
	vcpkg     probe.VcpkgProber
	emitter   *directive.Emitter
	logger    *log.Logger
	fetcher   fetch.Fetcher
}

// FromManifest loads the current package's build configuration from its
// manifest, as located by the build environment.
func FromManifest(ctx context.Context, opts ...Option) (*BuildKit, error) {
	o := newOptions(opts)

	loader := &manifest.Loader{Reader: o.reader, Env: o.env, Logger: o.logger}
	res, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return newBuildKit(res.Config, res.Package, res.Root, o), nil
}

// New returns a BuildKit for a configuration built in code, rooted at root.
func New(cfg *buildconf.Config, root string, opts ...Option) *BuildKit {
	return newBuildKit(cfg, manifest.Package{Name: cfg.LibraryName()}, root, newOptions(opts))
}

func newBuildKit(cfg *buildconf.Config, pkg manifest.Package, root string, o *options) *BuildKit {
	layout := DefaultLayout(root, o.env)
	if o.stagingRoot != "" {
		layout.StagingRoot = o.stagingRoot
	}
	return &BuildKit{
		cfg:       cfg,
		pkg:       pkg,
		layout:    layout,
		env:       o.env,
		pkgConfig: o.pkgConfig,
		vcpkg:     o.vcpkg,
		emitter:   directive.NewEmitter(o.out),
		logger:    o.logger,
		fetcher:   o.fetcher,
	}
}

// Config returns a copy of the declared configuration.
func (b *BuildKit) Config() *buildconf.Config {
	cp := *b.cfg
	return &cp
}

// Package returns the manifest entry the configuration was read from.
func (b *BuildKit) Package() manifest.Package { return b.pkg }

// Layout returns where vendored sources are placed.
func (b *BuildKit) Layout() Layout { return b.layout }

// Mode resolves the build mode against the environment.
func (b *BuildKit) Mode() (buildconf.BuildMode, error) {
	return ResolveMode(b.cfg, b.env)
}

// VendoredSource returns the source a vendored build would use: the
// <LIB>_SOURCE_DIR override when set, otherwise the declared source (which
// may be nil). The override must name an existing absolute directory.
func (b *BuildKit) VendoredSource() (buildconf.VendoredSource, error) {
	variable := buildconf.SourceDirVar(b.cfg.LibraryName())
	dir := buildenv.Lookup(b.env, variable)
	if dir == "" {
		return b.cfg.VendoredSource, nil
	}

	if !filepath.IsAbs(dir) {
		return nil, &InvalidOverrideError{Variable: variable, Value: dir, Reason: "path must be absolute"}
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &InvalidOverrideError{Variable: variable, Value: dir, Reason: err.Error()}
	}
	if !info.IsDir() {
		return nil, &InvalidOverrideError{Variable: variable, Value: dir, Reason: "not a directory"}
	}
	return buildconf.LocalAbsolutePath{Path: dir}, nil
}

// Build resolves the mode and dispatches to it. In vendored mode the source
// override is applied and a remote source is fetched (when a fetcher is
// configured) before handler runs.
func (b *BuildKit) Build(ctx context.Context, handler VendorHandler) error {
	mode, err := b.Mode()
	if err != nil {
		return err
	}
	b.logger.Debug("resolved build mode", "library", b.cfg.LibraryName(), "mode", mode)

	cfg := b.cfg
	if mode == buildconf.UseVendoredBuild {
		src, err := b.VendoredSource()
		if err != nil {
			return err
		}
		if src != nil {
			cfg = cfg.WithVendoredSource(src)
			if err := b.stage(ctx, src); err != nil {
				return err
			}
		}
	}

	d := &Dispatcher{
		PkgConfig:  b.pkgConfig,
		Vcpkg:      b.vcpkg,
		Directives: b.emitter,
		Layout:     b.layout,
		Logger:     b.logger,
	}
	return d.Dispatch(ctx, cfg, mode, handler)
}

// stage fetches a remote source into its staging directory.
func (b *BuildKit) stage(ctx context.Context, src buildconf.VendoredSource) error {
	if _, remote := buildconf.StagingDirName(src); !remote || b.fetcher == nil {
		return nil
	}
	dest, err := b.layout.SourcePath(src)
	if err != nil {
		return err
	}
	b.logger.Debug("staging vendored source", "source", src, "dest", dest)
	if err := b.fetcher.Fetch(ctx, src, dest); err != nil {
		return fmt.Errorf("staging %s source: %w", src.Kind(), err)
	}
	return nil
}
