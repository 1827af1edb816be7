// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/invowk/buildkit/pkg/buildconf"
	"github.com/invowk/buildkit/pkg/buildenv"
)

const validManifest = `
[package]
name = "git2-sys"
version = "0.18.0"

[package.metadata.docs]
all-features = true

[package.metadata.buildkit]
default-mode = "pkg-config"
pkg-config = { name = "libgit2", version = { min = "1.7.0", max = "1.8.0" } }
vendored-source = { path = "libgit2" }

[dependencies]
libc = "0.2"
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func envFor(root string) buildenv.Map {
	return buildenv.Map{
		buildenv.ManifestDir:    root,
		buildenv.PackageName:    "git2-sys",
		buildenv.PackageVersion: "0.18.0",
	}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestLoaderLoad(t *testing.T) {
	t.Parallel()

	root := writeManifest(t, validManifest)
	l := &Loader{Env: envFor(root), Logger: quietLogger()}

	res, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if res.Root != root {
		t.Errorf("Root = %q, want %q", res.Root, root)
	}
	if res.Package.Name != "git2-sys" || res.Package.ManifestPath != filepath.Join(root, FileName) {
		t.Errorf("Package = %+v", res.Package)
	}
	cfg := res.Config
	if cfg.DefaultMode != buildconf.UsePkgConfig {
		t.Errorf("DefaultMode = %q", cfg.DefaultMode)
	}
	if cfg.PkgConfig == nil || cfg.PkgConfig.Version != (buildconf.VersionRange{Min: "1.7.0", Max: "1.8.0"}) {
		t.Errorf("PkgConfig = %+v", cfg.PkgConfig)
	}
	if cfg.VendoredSource != (buildconf.LocalRelativePath{Path: "libgit2"}) {
		t.Errorf("VendoredSource = %#v", cfg.VendoredSource)
	}
}

func TestLoaderDefaultsLibraryNameToPackage(t *testing.T) {
	t.Parallel()

	root := writeManifest(t, `
[package]
name = "git2-sys"
version = "0.18.0"

[package.metadata.buildkit]
default-mode = "vendored"
vendored-source = { path = "libgit2" }
`)
	res, err := (&Loader{Env: envFor(root), Logger: quietLogger()}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := res.Config.LibraryName(); got != "git2-sys" {
		t.Errorf("LibraryName() = %q, want git2-sys", got)
	}
}

func TestLoaderMissingEnvironment(t *testing.T) {
	t.Parallel()

	root := writeManifest(t, validManifest)

	for _, missing := range []string{buildenv.ManifestDir, buildenv.PackageName, buildenv.PackageVersion} {
		t.Run(missing, func(t *testing.T) {
			t.Parallel()

			env := envFor(root)
			delete(env, missing)

			_, err := (&Loader{Env: env, Logger: quietLogger()}).Load(context.Background())
			var mv *buildenv.MissingVariableError
			if !errors.As(err, &mv) || mv.Name != missing {
				t.Errorf("Load() error = %v, want MissingVariableError for %s", err, missing)
			}
		})
	}
}

func TestLoaderFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		manifest string
		version  string
		wantErr  error
	}{
		{
			name:     "version mismatch",
			manifest: validManifest,
			version:  "0.17.0",
			wantErr:  ErrAmbiguousOrMissingPackage,
		},
		{
			name:     "virtual workspace manifest",
			manifest: "[workspace]\nmembers = [\"a\"]\n",
			wantErr:  ErrAmbiguousOrMissingPackage,
		},
		{
			name:     "no buildkit section",
			manifest: "[package]\nname = \"git2-sys\"\nversion = \"0.18.0\"\n[package.metadata.docs]\nx = 1\n",
			wantErr:  ErrMissingConfigSection,
		},
		{
			name:     "no metadata at all",
			manifest: "[package]\nname = \"git2-sys\"\nversion = \"0.18.0\"\n",
			wantErr:  ErrMissingConfigSection,
		},
		{
			name:     "section is not a table",
			manifest: "[package]\nname = \"git2-sys\"\nversion = \"0.18.0\"\n[package.metadata]\nbuildkit = \"vendored\"\n",
			wantErr:  buildconf.ErrMalformedConfig,
		},
		{
			name:     "unknown key inside section",
			manifest: "[package]\nname = \"git2-sys\"\nversion = \"0.18.0\"\n[package.metadata.buildkit]\ndefault-mode = \"vendored\"\nretry = true\n",
			wantErr:  buildconf.ErrMalformedConfig,
		},
		{
			name:     "invalid toml",
			manifest: "[package\nname = 1",
			wantErr:  ErrManifestRead,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := writeManifest(t, tt.manifest)
			env := envFor(root)
			if tt.version != "" {
				env[buildenv.PackageVersion] = tt.version
			}

			_, err := (&Loader{Env: env, Logger: quietLogger()}).Load(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

const memberManifest = `
[package]
name = "git2-sys"
version.workspace = true
edition.workspace = true

[package.metadata.buildkit]
default-mode = "vendored"
vendored-source = { path = "libgit2" }
`

func TestLoaderWorkspaceInheritedVersion(t *testing.T) {
	t.Parallel()

	const (
		outerWorkspace = "[workspace]\n[workspace.package]\nversion = \"9.9.9\"\n"
		repoWorkspace  = "[workspace]\nmembers = [\"crates/*\"]\n[workspace.package]\nversion = \"0.18.0\"\nedition = \"2021\"\n"
	)

	tests := []struct {
		name   string
		member string
		// files maps paths relative to the test directory to contents.
		files map[string]string
	}{
		{
			name:   "nearest ancestor",
			member: memberManifest,
			files: map[string]string{
				FileName:                         outerWorkspace,
				filepath.Join("repo", FileName): repoWorkspace,
			},
		},
		{
			name:   "explicit workspace path",
			member: strings.Replace(memberManifest, "edition.workspace = true", `workspace = "../../../ws"`, 1),
			files: map[string]string{
				filepath.Join("repo", FileName): outerWorkspace,
				filepath.Join("ws", FileName):   repoWorkspace,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			top := t.TempDir()
			root := filepath.Join(top, "repo", "crates", "git2-sys")
			files := map[string]string{filepath.Join("repo", "crates", "git2-sys", FileName): tt.member}
			for path, content := range tt.files {
				files[path] = content
			}
			for path, content := range files {
				full := filepath.Join(top, path)
				if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			res, err := (&Loader{Env: envFor(root), Logger: quietLogger()}).Load(context.Background())
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if res.Package.Version != "0.18.0" {
				t.Errorf("Package.Version = %q, want 0.18.0", res.Package.Version)
			}
		})
	}
}

func TestLoaderWorkspaceVersionUnresolved(t *testing.T) {
	t.Parallel()

	ws := t.TempDir()
	if err := os.WriteFile(filepath.Join(ws, FileName), []byte("[workspace]\nmembers = [\"m\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	root := filepath.Join(ws, "m")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(memberManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := (&Loader{Env: envFor(root), Logger: quietLogger()}).Load(context.Background())
	if !errors.Is(err, ErrManifestRead) || !strings.Contains(err.Error(), "workspace.package.version") {
		t.Errorf("Load() error = %v, want ErrManifestRead naming workspace.package.version", err)
	}
}

func TestLoaderMissingManifestFile(t *testing.T) {
	t.Parallel()

	env := envFor(t.TempDir())
	_, err := (&Loader{Env: env, Logger: quietLogger()}).Load(context.Background())
	if !errors.Is(err, ErrManifestRead) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want ErrManifestRead wrapping os.ErrNotExist", err)
	}
}

type staticReader struct {
	md *Metadata
}

func (r staticReader) Read(context.Context, string) (*Metadata, error) { return r.md, nil }

func TestLoaderAmbiguousPackage(t *testing.T) {
	t.Parallel()

	section := map[string]any{"buildkit": map[string]any{"default-mode": "vendored"}}
	reader := staticReader{md: &Metadata{Packages: []Package{
		{Name: "git2-sys", Version: "0.18.0", Metadata: section},
		{Name: "git2-sys", Version: "0.18.0", Metadata: section},
	}}}

	_, err := (&Loader{Reader: reader, Env: envFor("/src"), Logger: quietLogger()}).Load(context.Background())
	var pm *PackageMatchError
	if !errors.As(err, &pm) || pm.Matches != 2 {
		t.Fatalf("Load() error = %v, want PackageMatchError with 2 matches", err)
	}
	if !strings.Contains(err.Error(), "2 packages") {
		t.Errorf("error message = %q", err)
	}
}

func TestCommandReader(t *testing.T) {
	t.Parallel()

	const output = `{"packages":[{"name":"git2-sys","version":"0.18.0","manifest_path":"/src/Cargo.toml",
		"metadata":{"buildkit":{"default-mode":"vendored","vendored-source":{"path":"libgit2"}}}},
		{"name":"helper","version":"0.1.0","manifest_path":"/src/helper/Cargo.toml","metadata":null}]}`

	var gotArgs []string
	r := &CommandReader{
		Cargo: "/opt/cargo",
		Run: func(_ context.Context, name string, args ...string) ([]byte, error) {
			gotArgs = append([]string{name}, args...)
			return []byte(output), nil
		},
	}

	md, err := r.Read(context.Background(), "/src/Cargo.toml")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(md.Packages) != 2 || md.Packages[0].Name != "git2-sys" || md.Packages[1].Metadata != nil {
		t.Errorf("Read() = %+v", md)
	}
	want := "/opt/cargo metadata --format-version 1 --no-deps --manifest-path /src/Cargo.toml"
	if got := strings.Join(gotArgs, " "); got != want {
		t.Errorf("command = %q, want %q", got, want)
	}

	res, err := (&Loader{Reader: r, Env: envFor("/src"), Logger: quietLogger()}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Config.DefaultMode != buildconf.UseVendoredBuild {
		t.Errorf("DefaultMode = %q", res.Config.DefaultMode)
	}
}

func TestCommandReaderFailures(t *testing.T) {
	t.Parallel()

	failing := &CommandReader{Run: func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("cargo not installed")
	}}
	if _, err := failing.Read(context.Background(), "/src/Cargo.toml"); !errors.Is(err, ErrManifestRead) {
		t.Errorf("Read() error = %v, want ErrManifestRead", err)
	}

	garbage := &CommandReader{Run: func(context.Context, string, ...string) ([]byte, error) {
		return []byte("not json"), nil
	}}
	if _, err := garbage.Read(context.Background(), "/src/Cargo.toml"); !errors.Is(err, ErrManifestRead) {
		t.Errorf("Read() error = %v, want ErrManifestRead", err)
	}
}
