// SPDX-License-Identifier: MPL-2.0

package buildconf

import (
	_ "embed"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/invowk/buildkit/pkg/cueutil"
)

// SectionKey is the reserved key, below the package metadata table, that
// holds the build configuration.
const SectionKey = "buildkit"

var (
	//go:embed buildkit_schema.cue
	buildkitSchema []byte

	// ErrMalformedConfig is the sentinel error wrapped by MalformedConfigError.
	ErrMalformedConfig = errors.New("malformed buildkit configuration")
)

type (
	// MalformedConfigError reports a schema violation in the buildkit section.
	MalformedConfigError struct {
		// Source names the document (usually the manifest path).
		Source string
		// Path is the JSON-style location of the offending value, if known.
		Path string
		// Message describes the violation.
		Message string
	}

	rawConfig struct {
		Name           string             `json:"name,omitempty"`
		DefaultMode    string             `json:"default-mode"`
		PkgConfig      *rawPkgConfig      `json:"pkg-config,omitempty"`
		Vcpkg          *rawVcpkg          `json:"vcpkg,omitempty"`
		VendoredSource *rawVendoredSource `json:"vendored-source,omitempty"`
	}

	rawPkgConfig struct {
		Name    string      `json:"name"`
		Version *rawVersion `json:"version,omitempty"`
	}

	rawVersion struct {
		Min   *string `json:"min,omitempty"`
		Max   *string `json:"max,omitempty"`
		Exact *string `json:"exact,omitempty"`
	}

	rawVcpkg struct {
		Name string       `json:"name"`
		Libs []rawLibName `json:"libs,omitempty"`
	}

	rawLibName struct {
		LibName string `json:"lib-name"`
		DLLName string `json:"dll-name"`
	}

	rawVendoredSource struct {
		URL  *string `json:"url,omitempty"`
		Git  *string `json:"git,omitempty"`
		Ref  *string `json:"ref,omitempty"`
		Hash *string `json:"hash,omitempty"`
		Path *string `json:"path,omitempty"`
	}
)

// Error implements the error interface.
func (e *MalformedConfigError) Error() string {
	var b strings.Builder
	b.WriteString("malformed buildkit configuration")
	if e.Source != "" {
		b.WriteString(" in ")
		b.WriteString(e.Source)
	}
	if e.Path != "" {
		b.WriteString(": ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// Unwrap returns ErrMalformedConfig for errors.Is() compatibility.
func (e *MalformedConfigError) Unwrap() error { return ErrMalformedConfig }

// Decode validates the buildkit section tree (as produced by a TOML or JSON
// reader) and converts it to a Config. source names the document in errors.
// Every failure is a *MalformedConfigError.
func Decode(tree map[string]any, source string) (*Config, error) {
	if tree == nil {
		tree = map[string]any{}
	}

	raw, err := cueutil.DecodeTree[rawConfig](buildkitSchema, tree, "#BuildKit", cueutil.WithFilename(source))
	if err != nil {
		var ve *cueutil.ValidationError
		if errors.As(err, &ve) {
			return nil, &MalformedConfigError{Source: source, Path: ve.CUEPath, Message: ve.Message}
		}
		return nil, &MalformedConfigError{Source: source, Message: err.Error()}
	}

	cfg, err := raw.toConfig()
	if err != nil {
		var mce *MalformedConfigError
		if errors.As(err, &mce) {
			mce.Source = source
		}
		return nil, err
	}
	return cfg, nil
}

func (r *rawConfig) toConfig() (*Config, error) {
	mode, err := ParseBuildMode(r.DefaultMode)
	if err != nil {
		return nil, &MalformedConfigError{Path: "default-mode", Message: err.Error()}
	}

	cfg := &Config{Name: r.Name, DefaultMode: mode}

	if r.PkgConfig != nil {
		req := &PkgConfigRequirement{Name: r.PkgConfig.Name}
		if r.PkgConfig.Version != nil {
			if req.Version, err = r.PkgConfig.Version.constraint(); err != nil {
				return nil, err
			}
		}
		cfg.PkgConfig = req
	}

	if r.Vcpkg != nil {
		req := &PlatformPackageRequirement{Name: r.Vcpkg.Name}
		for _, l := range r.Vcpkg.Libs {
			req.Libs = append(req.Libs, LibraryNameOverride{LibName: l.LibName, DLLName: l.DLLName})
		}
		cfg.Vcpkg = req
	}

	if r.VendoredSource != nil {
		if cfg.VendoredSource, err = r.VendoredSource.source(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (v *rawVersion) constraint() (VersionConstraint, error) {
	const at = "pkg-config.version"
	switch {
	case v.Exact == nil && v.Min != nil && v.Max != nil:
		return VersionRange{Min: *v.Min, Max: *v.Max}, nil
	case v.Exact == nil && v.Min != nil:
		return MinVersion{Min: *v.Min}, nil
	case v.Exact == nil && v.Max != nil:
		return MaxVersion{Max: *v.Max}, nil
	case v.Exact != nil && v.Min == nil && v.Max == nil:
		return ExactVersion{Version: *v.Exact}, nil
	case v.Exact != nil:
		return nil, &MalformedConfigError{
			Path:    at,
			Message: "ambiguous version constraint: exact cannot be combined with min or max",
		}
	default:
		return nil, &MalformedConfigError{
			Path:    at,
			Message: "empty version constraint: expected one of {min, max}, {min}, {max} or {exact}",
		}
	}
}

func (s *rawVendoredSource) source() (VendoredSource, error) {
	const at = "vendored-source"
	switch present := s.fields(); present {
	case "hash,url":
		return RemoteArchive{URL: *s.URL, Hash: *s.Hash}, nil
	case "git,hash,ref":
		return RemoteRepository{URL: *s.Git, Ref: *s.Ref, Hash: *s.Hash}, nil
	case "path":
		p := *s.Path
		if isAbsolute(p) {
			return nil, &MalformedConfigError{
				Path:    at + ".path",
				Message: fmt.Sprintf("absolute path %q is host-specific; set it through the source directory environment override instead", p),
			}
		}
		return LocalRelativePath{Path: p}, nil
	default:
		if present == "" {
			present = "none"
		}
		return nil, &MalformedConfigError{
			Path:    at,
			Message: fmt.Sprintf("unrecognized source shape (keys: %s): expected one of {url, hash}, {git, ref, hash} or {path}", present),
		}
	}
}

// isAbsolute reports whether p is absolute on this host or on any host the
// manifest may be built on (POSIX root, Windows drive or UNC prefix).
func isAbsolute(p string) bool {
	if filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return true
	}
	slashed := strings.ReplaceAll(p, `\`, "/")
	if path.IsAbs(slashed) {
		return true
	}
	return len(slashed) >= 3 && isASCIILetter(slashed[0]) && slashed[1] == ':' && slashed[2] == '/'
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// fields lists the keys present in s, sorted and comma-separated.
func (s *rawVendoredSource) fields() string {
	var keys []string
	for _, f := range []struct {
		name string
		set  bool
	}{
		{"git", s.Git != nil},
		{"hash", s.Hash != nil},
		{"path", s.Path != nil},
		{"ref", s.Ref != nil},
		{"url", s.URL != nil},
	} {
		if f.set {
			keys = append(keys, f.name)
		}
	}
	return strings.Join(keys, ",")
}
