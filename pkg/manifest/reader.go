// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/invowk/buildkit/pkg/probe"
)

const (
	// FileName is the conventional manifest file name in the build root.
	FileName = "Cargo.toml"

	// defaultVersion is the version a package gets when its manifest omits one.
	defaultVersion = "0.0.0"
)

// ErrManifestRead is the sentinel error wrapped by ReadError.
var ErrManifestRead = errors.New("failed to read manifest")

type (
	// Reader reads the packages declared by a manifest, without dependencies.
	Reader interface {
		Read(ctx context.Context, manifestPath string) (*Metadata, error)
	}

	// Metadata is the reader's view of a manifest.
	Metadata struct {
		Packages []Package
	}

	// Package is one package entry with its free-form metadata table.
	Package struct {
		Name         string
		Version      string
		ManifestPath string
		Metadata     map[string]any
	}

	// ReadError reports that the manifest could not be read or parsed.
	ReadError struct {
		Path string
		Err  error
	}

	// FileReader parses a TOML manifest from disk.
	FileReader struct{}

	// CommandReader runs `cargo metadata` and decodes its JSON output.
	CommandReader struct {
		// Cargo is the executable to run; "cargo" when empty.
		Cargo string
		// Run executes commands; probe.ExecRunner when nil.
		Run probe.Runner
	}

	cargoMetadata struct {
		Packages []struct {
			Name         string         `json:"name"`
			Version      string         `json:"version"`
			ManifestPath string         `json:"manifest_path"`
			Metadata     map[string]any `json:"metadata"`
		} `json:"packages"`
	}
)

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read manifest %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ReadError) Unwrap() error { return e.Err }

// Is reports ErrManifestRead as a match.
func (e *ReadError) Is(target error) bool { return target == ErrManifestRead }

// Read implements Reader. A manifest without a [package] table (a virtual
// workspace root) yields no packages. A version inherited with
// `version.workspace = true` is resolved from the workspace root.
func (FileReader) Read(_ context.Context, manifestPath string) (*Metadata, error) {
	doc, err := parseTOML(manifestPath)
	if err != nil {
		return nil, err
	}

	pkgTable, ok := doc["package"].(map[string]any)
	if !ok {
		return &Metadata{}, nil
	}

	pkg := Package{ManifestPath: manifestPath, Version: defaultVersion}
	if name, ok := pkgTable["name"].(string); ok {
		pkg.Name = name
	}
	switch version := pkgTable["version"].(type) {
	case string:
		pkg.Version = version
	case map[string]any:
		if inherit, _ := version["workspace"].(bool); !inherit {
			return nil, &ReadError{Path: manifestPath, Err: errors.New("package.version must be a string or { workspace = true }")}
		}
		if pkg.Version, err = workspaceVersion(manifestPath, pkgTable); err != nil {
			return nil, err
		}
	}
	if md, ok := pkgTable["metadata"].(map[string]any); ok {
		pkg.Metadata = md
	}
	return &Metadata{Packages: []Package{pkg}}, nil
}

func parseTOML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			err = fmt.Errorf("line %d, column %d: %w", row, col, err)
		}
		return nil, &ReadError{Path: path, Err: err}
	}
	return doc, nil
}

// workspaceVersion returns [workspace.package].version of the workspace that
// owns manifestPath: the one named by package.workspace, else the nearest
// ancestor manifest with a [workspace] table.
func workspaceVersion(manifestPath string, pkgTable map[string]any) (string, error) {
	dir := filepath.Dir(manifestPath)

	var candidates []string
	if rel, ok := pkgTable["workspace"].(string); ok {
		candidates = []string{filepath.Join(dir, rel, FileName)}
	} else {
		for parent := filepath.Dir(dir); ; parent = filepath.Dir(parent) {
			candidates = append(candidates, filepath.Join(parent, FileName))
			if filepath.Dir(parent) == parent {
				break
			}
		}
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		doc, err := parseTOML(path)
		if err != nil {
			return "", err
		}
		ws, ok := doc["workspace"].(map[string]any)
		if !ok {
			continue
		}
		wsPkg, _ := ws["package"].(map[string]any)
		if version, ok := wsPkg["version"].(string); ok {
			return version, nil
		}
		return "", &ReadError{Path: path, Err: errors.New("workspace.package.version is not set")}
	}
	return "", &ReadError{Path: manifestPath, Err: errors.New("version.workspace = true but no workspace root was found")}
}

// Read implements Reader.
func (r *CommandReader) Read(ctx context.Context, manifestPath string) (*Metadata, error) {
	cargo := r.Cargo
	if cargo == "" {
		cargo = "cargo"
	}
	run := r.Run
	if run == nil {
		run = probe.ExecRunner
	}

	out, err := run(ctx, cargo, "metadata", "--format-version", "1", "--no-deps", "--manifest-path", manifestPath)
	if err != nil {
		return nil, &ReadError{Path: manifestPath, Err: err}
	}

	var raw cargoMetadata
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, &ReadError{Path: manifestPath, Err: fmt.Errorf("invalid cargo metadata output: %w", err)}
	}

	md := &Metadata{Packages: make([]Package, 0, len(raw.Packages))}
	for _, p := range raw.Packages {
		md.Packages = append(md.Packages, Package{
			Name:         p.Name,
			Version:      p.Version,
			ManifestPath: p.ManifestPath,
			Metadata:     p.Metadata,
		})
	}
	return md, nil
}
