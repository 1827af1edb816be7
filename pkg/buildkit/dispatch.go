// SPDX-License-Identifier: MPL-2.0

package buildkit

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"github.com/invowk/buildkit/pkg/buildconf"
	"github.com/invowk/buildkit/pkg/directive"
	"github.com/invowk/buildkit/pkg/probe"
)

type (
	// VendorHandler builds the vendored source described by its context.
	// Its error is returned by Dispatch unchanged.
	VendorHandler func(VendoredBuildContext) error

	// Dispatcher runs the handler that belongs to a resolved BuildMode.
	// Zero-valued fields fall back to the process defaults: pkg-config and
	// vcpkg found through the environment, directives on standard output.
	Dispatcher struct {
		PkgConfig  probe.PkgConfigProber
		Vcpkg      probe.VcpkgProber
		Directives *directive.Emitter
		Layout     Layout
		Logger     *log.Logger
	}
)

// Dispatch makes the library available in mode. The rebuild triggers for the
// library's environment switches are emitted before anything else, so they
// are recorded even when probing fails.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg *buildconf.Config, mode buildconf.BuildMode, handler VendorHandler) error {
	switch mode {
	case buildconf.UseVendoredBuild:
		return d.vendored(cfg, handler)
	case buildconf.UsePkgConfig:
		return d.pkgConfig(ctx, cfg)
	case buildconf.UsePlatformPackageManager:
		return d.vcpkg(ctx, cfg)
	default:
		return &buildconf.InvalidBuildModeError{Value: mode}
	}
}

func (d *Dispatcher) vendored(cfg *buildconf.Config, handler VendorHandler) error {
	em := d.emitter()
	lib := cfg.LibraryName()
	em.RerunIfEnvChanged(buildconf.NoVendorVar(lib))
	em.RerunIfEnvChanged(buildconf.SourceDirVar(lib))
	if err := em.Err(); err != nil {
		return err
	}

	if cfg.VendoredSource == nil {
		return &MissingRequirementError{Mode: buildconf.UseVendoredBuild, Field: "vendored-source"}
	}
	if handler == nil {
		return ErrNoVendorHandler
	}

	vc, err := NewVendoredBuildContext(cfg.VendoredSource, d.Layout)
	if err != nil {
		return err
	}

	d.logger().Debug("running vendored build", "library", lib, "source", cfg.VendoredSource.Kind(), "path", vc.SourcePath())
	return handler(vc)
}

func (d *Dispatcher) pkgConfig(ctx context.Context, cfg *buildconf.Config) error {
	em := d.emitter()
	em.RerunIfEnvChanged(buildconf.NoVendorVar(cfg.LibraryName()))
	if err := em.Err(); err != nil {
		return err
	}

	req := cfg.PkgConfig
	if req == nil {
		return &MissingRequirementError{Mode: buildconf.UsePkgConfig, Field: "pkg-config"}
	}

	prober := d.PkgConfig
	if prober == nil {
		prober = probe.NewExecPkgConfig("")
	}

	query := versionQuery(req.Version)
	d.logger().Debug("probing pkg-config", "module", req.Name, "version", query)

	lib, err := prober.ProbePkgConfig(ctx, probe.PkgConfigRequest{Name: req.Name, Query: query})
	if err != nil {
		return &ProbeError{Prober: ProberPkgConfig, Library: req.Name, Err: err}
	}
	return d.publish(lib)
}

func (d *Dispatcher) vcpkg(ctx context.Context, cfg *buildconf.Config) error {
	em := d.emitter()
	em.RerunIfEnvChanged(buildconf.NoVendorVar(cfg.LibraryName()))
	if err := em.Err(); err != nil {
		return err
	}

	req := cfg.Vcpkg
	if req == nil {
		return &MissingRequirementError{Mode: buildconf.UsePlatformPackageManager, Field: "vcpkg"}
	}

	prober := d.Vcpkg
	if prober == nil {
		prober = &probe.LayoutVcpkg{}
	}

	libs := make([]probe.LibName, 0, len(req.Libs))
	for _, o := range req.Libs {
		libs = append(libs, probe.LibName{Lib: o.LibName, DLL: o.DLLName})
	}
	d.logger().Debug("probing vcpkg", "port", req.Name, "libs", len(libs))

	lib, err := prober.ProbeVcpkg(ctx, probe.VcpkgRequest{Name: req.Name, Libs: libs})
	if err != nil {
		return &ProbeError{Prober: ProberVcpkg, Library: req.Name, Err: err}
	}
	return d.publish(lib)
}

// publish emits the include, search and link directives for a found library.
func (d *Dispatcher) publish(lib *probe.Library) error {
	em := d.emitter()
	for _, p := range lib.IncludePaths {
		em.Include(p)
	}
	for _, p := range lib.LinkPaths {
		em.LinkSearch(p)
	}
	for _, l := range lib.Libs {
		em.LinkLib(l)
	}
	if err := em.Err(); err != nil {
		return err
	}

	d.logger().Info("found library", "name", lib.Name, "version", lib.Version)
	return nil
}

// versionQuery translates a declared constraint into the probers' query.
func versionQuery(c buildconf.VersionConstraint) probe.VersionQuery {
	switch v := c.(type) {
	case buildconf.VersionRange:
		return probe.Between(v.Min, v.Max)
	case buildconf.MinVersion:
		return probe.AtLeast(v.Min)
	case buildconf.MaxVersion:
		return probe.Below(v.Max)
	case buildconf.ExactVersion:
		return probe.Exactly(v.Version)
	default:
		return probe.AnyVersion()
	}
}

func (d *Dispatcher) emitter() *directive.Emitter {
	if d.Directives == nil {
		d.Directives = directive.NewEmitter(os.Stdout)
	}
	return d.Directives
}

func (d *Dispatcher) logger() *log.Logger {
	if d.Logger == nil {
		return log.Default()
	}
	return d.Logger
}
