// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/invowk/buildkit/pkg/buildconf"
	"github.com/invowk/buildkit/pkg/buildenv"
)

var (
	// ErrAmbiguousOrMissingPackage is the sentinel error wrapped by PackageMatchError.
	ErrAmbiguousOrMissingPackage = errors.New("package entry missing or ambiguous")

	// ErrMissingConfigSection is returned when the package has no buildkit section.
	ErrMissingConfigSection = errors.New("missing package.metadata.buildkit section")
)

type (
	// Loader resolves the current package from the build environment and
	// decodes its build configuration.
	Loader struct {
		// Reader reads the manifest; FileReader when nil.
		Reader Reader
		// Env supplies the build environment; buildenv.OS() when nil.
		Env buildenv.Environment
		// Logger receives debug output; log.Default() when nil.
		Logger *log.Logger
	}

	// Result is a successfully loaded configuration with its provenance.
	Result struct {
		Config  *buildconf.Config
		Package Package
		// Root is the build root (the directory holding the manifest).
		Root string
	}

	// PackageMatchError reports zero or several package entries matching the
	// current package's name and version.
	PackageMatchError struct {
		Name         string
		Version      string
		ManifestPath string
		Matches      int
	}
)

// Error implements the error interface.
func (e *PackageMatchError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("no package %s %s in %s", e.Name, e.Version, e.ManifestPath)
	}
	return fmt.Sprintf("%d packages named %s %s in %s", e.Matches, e.Name, e.Version, e.ManifestPath)
}

// Unwrap returns ErrAmbiguousOrMissingPackage for errors.Is() compatibility.
func (e *PackageMatchError) Unwrap() error { return ErrAmbiguousOrMissingPackage }

// Load reads the environment, the manifest and the buildkit section.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	env := l.Env
	if env == nil {
		env = buildenv.OS()
	}
	reader := l.Reader
	if reader == nil {
		reader = FileReader{}
	}
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}

	root, err := buildenv.Require(env, buildenv.ManifestDir)
	if err != nil {
		return nil, err
	}
	name, err := buildenv.Require(env, buildenv.PackageName)
	if err != nil {
		return nil, err
	}
	version, err := buildenv.Require(env, buildenv.PackageVersion)
	if err != nil {
		return nil, err
	}

	manifestPath := filepath.Join(root, FileName)
	logger.Debug("reading manifest", "path", manifestPath, "package", name, "version", version)

	md, err := reader.Read(ctx, manifestPath)
	if err != nil {
		return nil, err
	}

	pkg, err := selectPackage(md, name, version, manifestPath)
	if err != nil {
		return nil, err
	}

	section, err := configSection(pkg)
	if err != nil {
		return nil, err
	}

	cfg, err := buildconf.Decode(section, manifestPath)
	if err != nil {
		return nil, err
	}
	if cfg.LibraryName() == "" {
		cfg = cfg.WithName(pkg.Name)
	}

	logger.Debug("loaded build configuration", "package", pkg.Name, "default-mode", cfg.DefaultMode)
	return &Result{Config: cfg, Package: pkg, Root: root}, nil
}

func selectPackage(md *Metadata, name, version, manifestPath string) (Package, error) {
	var matches []Package
	for _, p := range md.Packages {
		if p.Name == name && p.Version == version {
			matches = append(matches, p)
		}
	}
	if len(matches) != 1 {
		return Package{}, &PackageMatchError{
			Name:         name,
			Version:      version,
			ManifestPath: manifestPath,
			Matches:      len(matches),
		}
	}
	return matches[0], nil
}

func configSection(pkg Package) (map[string]any, error) {
	raw, ok := pkg.Metadata[buildconf.SectionKey]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%s %s: %w", pkg.Name, pkg.Version, ErrMissingConfigSection)
	}
	section, ok := raw.(map[string]any)
	if !ok {
		return nil, &buildconf.MalformedConfigError{
			Source:  pkg.ManifestPath,
			Path:    "package.metadata." + buildconf.SectionKey,
			Message: fmt.Sprintf("expected a table, got %T", raw),
		}
	}
	return section, nil
}
