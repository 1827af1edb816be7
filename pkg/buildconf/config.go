// SPDX-License-Identifier: MPL-2.0

package buildconf

type (
	// Config is everything a package declares about how to obtain one native
	// library. It is decoded once per build invocation and not modified
	// afterwards; use the With* methods to derive adjusted copies.
	Config struct {
		// Name is the logical library name. Optional; see LibraryName.
		Name string
		// PkgConfig is the requirement used in UsePkgConfig mode.
		PkgConfig *PkgConfigRequirement
		// Vcpkg is the requirement used in UsePlatformPackageManager mode.
		Vcpkg *PlatformPackageRequirement
		// VendoredSource is the source used in UseVendoredBuild mode.
		VendoredSource VendoredSource
		// DefaultMode is the declared preferred mode.
		DefaultMode BuildMode
	}

	// PkgConfigRequirement names a pkg-config module and an optional version
	// constraint. A nil Version accepts any installed version.
	PkgConfigRequirement struct {
		Name    string
		Version VersionConstraint
	}

	// PlatformPackageRequirement names a vcpkg port and, in order, the
	// libraries it must provide when their artifact names differ from Name.
	PlatformPackageRequirement struct {
		Name string
		Libs []LibraryNameOverride
	}

	// LibraryNameOverride maps an import library to its DLL.
	LibraryNameOverride struct {
		LibName string
		DLLName string
	}
)

// LibraryName returns the name used to derive per-library environment
// variables: Name when set, otherwise the pkg-config name, otherwise the vcpkg
// name. It returns "" when none is declared.
func (c *Config) LibraryName() string {
	switch {
	case c.Name != "":
		return c.Name
	case c.PkgConfig != nil:
		return c.PkgConfig.Name
	case c.Vcpkg != nil:
		return c.Vcpkg.Name
	default:
		return ""
	}
}

// WithVendoredSource returns a copy of c whose vendored source is src.
func (c *Config) WithVendoredSource(src VendoredSource) *Config {
	cp := *c
	cp.VendoredSource = src
	return &cp
}

// WithName returns a copy of c whose Name is name.
func (c *Config) WithName(name string) *Config {
	cp := *c
	cp.Name = name
	return &cp
}
