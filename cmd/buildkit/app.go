// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/invowk/buildkit/internal/config"
	"github.com/invowk/buildkit/pkg/buildenv"
	"github.com/invowk/buildkit/pkg/buildkit"
	"github.com/invowk/buildkit/pkg/fetch"
	"github.com/invowk/buildkit/pkg/manifest"
	"github.com/invowk/buildkit/pkg/probe"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer; every command handler receives it.
	App struct {
		Config    ConfigProvider
		Env       buildenv.Environment
		PkgConfig probe.PkgConfigProber
		Vcpkg     probe.VcpkgProber
		Fetcher   fetch.Fetcher
		stdout    io.Writer
		stderr    io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp; nil probers and
	// fetcher are built from the loaded settings instead.
	Dependencies struct {
		Config    ConfigProvider
		Env       buildenv.Environment
		PkgConfig probe.PkgConfigProber
		Vcpkg     probe.VcpkgProber
		Fetcher   fetch.Fetcher
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// ConfigProvider loads settings using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// globalFlags are the persistent flags shared by every command.
	globalFlags struct {
		configPath string
		verbose    bool
	}

	// session is one invocation's settings and logger.
	session struct {
		settings *config.Config
		logger   *log.Logger
	}
)

// NewApp creates an App with production defaults for nil dependencies.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:    deps.Config,
		Env:       deps.Env,
		PkgConfig: deps.PkgConfig,
		Vcpkg:     deps.Vcpkg,
		Fetcher:   deps.Fetcher,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Env == nil {
		app.Env = buildenv.OS()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// newSession loads settings, looking for buildkit.cue next to the manifest
// of the package being built.
func (a *App) newSession(ctx context.Context, flags *globalFlags) (*session, error) {
	settings, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath,
		BaseDir:        buildenv.Lookup(a.Env, buildenv.ManifestDir),
	})
	if err != nil {
		return nil, &settingsError{err: err}
	}

	level := settings.LogLevel.Level()
	if flags.verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(a.stderr, log.Options{
		Level:  level,
		Prefix: config.AppName,
	})
	if settings.Source != "" {
		logger.Debug("loaded settings", "file", settings.Source)
	}
	return &session{settings: settings, logger: logger}, nil
}

// options translates settings into BuildKit options. Directives go to the
// App's standard output.
func (a *App) options(s *session) []buildkit.Option {
	cfg := s.settings

	pkgConfig := a.PkgConfig
	if pkgConfig == nil {
		pkgConfig = probe.NewExecPkgConfig(cfg.PkgConfigBinary)
	}
	vcpkg := a.Vcpkg
	if vcpkg == nil {
		vcpkg = &probe.LayoutVcpkg{Root: cfg.VcpkgRoot, Env: a.Env}
	}

	opts := []buildkit.Option{
		buildkit.WithEnvironment(a.Env),
		buildkit.WithDirectiveWriter(a.stdout),
		buildkit.WithLogger(s.logger),
		buildkit.WithPkgConfigProber(pkgConfig),
		buildkit.WithVcpkgProber(vcpkg),
	}
	if cfg.ManifestReader == config.ManifestReaderCargo {
		opts = append(opts, buildkit.WithReader(&manifest.CommandReader{Cargo: cfg.CargoBinary}))
	}
	if cfg.StagingDir != "" {
		opts = append(opts, buildkit.WithStagingRoot(cfg.StagingDir))
	}

	switch {
	case a.Fetcher != nil:
		opts = append(opts, buildkit.WithFetcher(a.Fetcher))
	case cfg.Fetch:
		opts = append(opts, buildkit.WithFetcher(&fetch.Multi{
			Archive: &fetch.ArchiveFetcher{Logger: s.logger},
			Git:     &fetch.GitFetcher{Env: a.Env, Logger: s.logger},
		}))
	}
	return opts
}

// openKit loads the current package's build configuration. extra options
// are applied after the ones derived from settings.
func (a *App) openKit(ctx context.Context, s *session, extra ...buildkit.Option) (*buildkit.BuildKit, error) {
	return buildkit.FromManifest(ctx, append(a.options(s), extra...)...)
}
