// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/invowk/buildkit/internal/config"
	"github.com/invowk/buildkit/pkg/buildenv"
	"github.com/invowk/buildkit/pkg/probe"
)

const vendoredManifest = `
[package]
name = "git2-sys"
version = "0.18.0"

[package.metadata.buildkit]
name = "libgit2"
default-mode = "vendored"
vendored-source = { path = "libgit2" }
`

const probingManifest = `
[package]
name = "git2-sys"
version = "0.18.0"

[package.metadata.buildkit]
default-mode = "pkg-config"
pkg-config = { name = "libgit2", version = { min = "1.7.0", max = "1.8.0" } }
vcpkg = { name = "libgit2" }
`

type (
	staticProvider struct {
		cfg *config.Config
		err error
	}

	fakePkgConfig struct {
		lib *probe.Library
		err error
	}

	fakeVcpkg struct {
		lib *probe.Library
		err error
	}
)

func (p staticProvider) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.cfg, nil
}

func (f *fakePkgConfig) ProbePkgConfig(context.Context, probe.PkgConfigRequest) (*probe.Library, error) {
	return f.lib, f.err
}

func (f *fakeVcpkg) ProbeVcpkg(context.Context, probe.VcpkgRequest) (*probe.Library, error) {
	return f.lib, f.err
}

type harness struct {
	root           string
	env            buildenv.Map
	deps           Dependencies
	stdout, stderr bytes.Buffer
}

func newHarness(t *testing.T, manifestContent string) *harness {
	t.Helper()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte(manifestContent), 0o644); err != nil {
		t.Fatal(err)
	}
	settings := config.DefaultConfig()
	settings.Fetch = false

	h := &harness{
		root: root,
		env: buildenv.Map{
			buildenv.ManifestDir:    root,
			buildenv.PackageName:    "git2-sys",
			buildenv.PackageVersion: "0.18.0",
			buildenv.Target:         "x86_64-unknown-linux-gnu",
			buildenv.OutDir:         filepath.Join(root, "target", "out"),
		},
	}
	h.deps = Dependencies{
		Config: staticProvider{cfg: settings},
		PkgConfig: &fakePkgConfig{lib: &probe.Library{
			Name:         "libgit2",
			Version:      "1.7.2",
			IncludePaths: []string{"/usr/include"},
			LinkPaths:    []string{"/usr/lib"},
			Libs:         []string{"git2"},
		}},
		Vcpkg: &fakeVcpkg{lib: &probe.Library{Name: "libgit2", Version: "1.7.2", Libs: []string{"git2"}}},
	}
	return h
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()

	deps := h.deps
	deps.Env = h.env
	deps.Stdout = &h.stdout
	deps.Stderr = &h.stderr

	root := NewRootCommand(NewApp(deps))
	root.SetArgs(args)
	root.SetOut(&h.stdout)
	root.SetErr(&h.stderr)
	return root.ExecuteContext(context.Background())
}

func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.
	origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
	t.Cleanup(func() {
		Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
	})

	Version, Commit, BuildDate = "v1.2.3", "abc1234", "2025-06-15T10:00:00Z"
	if got, want := getVersionString(), "v1.2.3 (commit: abc1234, built: 2025-06-15T10:00:00Z)"; got != want {
		t.Errorf("getVersionString() = %q, want %q", got, want)
	}

	Version = "dev"
	if got, want := getVersionString(), "dev (built from source)"; got != want {
		t.Errorf("getVersionString() = %q, want %q", got, want)
	}
}

func TestModeCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		manifest string
		target   string
		want     string
	}{
		{name: "vendored default", manifest: vendoredManifest, target: "x86_64-pc-windows-msvc", want: "vendored"},
		{name: "unix target", manifest: probingManifest, target: "aarch64-apple-darwin", want: "pkg-config"},
		{name: "msvc target", manifest: probingManifest, target: "x86_64-pc-windows-msvc", want: "vcpkg"},
		{name: "gnu windows target", manifest: probingManifest, target: "x86_64-pc-windows-gnu", want: "pkg-config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, tt.manifest)
			h.env[buildenv.Target] = tt.target
			if err := h.run(t, "mode"); err != nil {
				t.Fatalf("mode error = %v\n%s", err, h.stderr.String())
			}
			if got := strings.TrimSpace(h.stdout.String()); got != tt.want {
				t.Errorf("mode = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModeCommandMissingTarget(t *testing.T) {
	t.Parallel()

	h := newHarness(t, probingManifest)
	delete(h.env, buildenv.Target)

	err := h.run(t, "mode")
	if code := exitCode(err); code != ExitEnvironment {
		t.Errorf("exit code = %d, want %d (err = %v)", code, ExitEnvironment, err)
	}
	if !strings.Contains(err.Error(), "TARGET") {
		t.Errorf("error = %v, want it to name TARGET", err)
	}
}

func TestBuildCommandPkgConfig(t *testing.T) {
	t.Parallel()

	h := newHarness(t, probingManifest)
	if err := h.run(t, "build"); err != nil {
		t.Fatalf("build error = %v\n%s", err, h.stderr.String())
	}

	want := []string{
		"cargo:rerun-if-env-changed=LIBGIT2_NO_VENDOR",
		"cargo:include=/usr/include",
		"cargo:rustc-link-search=native=/usr/lib",
		"cargo:rustc-link-lib=git2",
	}
	got := h.stdout.String()
	for _, line := range want {
		if !strings.Contains(got, line+"\n") {
			t.Errorf("stdout missing %q:\n%s", line, got)
		}
	}
}

func TestBuildCommandProbeFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target string
	}{
		{name: "pkg-config", target: "x86_64-unknown-linux-gnu"},
		{name: "vcpkg", target: "x86_64-pc-windows-msvc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, probingManifest)
			h.env[buildenv.Target] = tt.target
			notFound := &probe.NotFoundError{Library: "libgit2", Detail: "not installed"}
			h.deps.PkgConfig = &fakePkgConfig{err: notFound}
			h.deps.Vcpkg = &fakeVcpkg{err: notFound}

			err := h.run(t, "build")
			if code := exitCode(err); code != ExitProbe {
				t.Errorf("exit code = %d, want %d (err = %v)", code, ExitProbe, err)
			}
			if !errors.Is(err, probe.ErrNotFound) {
				t.Errorf("error = %v, want probe.ErrNotFound in chain", err)
			}
			if !strings.Contains(h.stderr.String(), tt.name) {
				t.Errorf("stderr does not mention %s:\n%s", tt.name, h.stderr.String())
			}
		})
	}
}

func TestBuildCommandVendoredRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t, vendoredManifest)
	src := filepath.Join(h.root, "libgit2")
	if err := os.Mkdir(src, 0o755); err != nil {
		t.Fatal(err)
	}

	err := h.run(t, "build", "--run", `echo "src=$BUILDKIT_SOURCE_PATH"; echo "root=$BUILDKIT_BUILD_ROOT"; pwd > built.txt`)
	if err != nil {
		t.Fatalf("build error = %v\n%s", err, h.stderr.String())
	}

	out := h.stdout.String()
	for _, want := range []string{
		"cargo:rerun-if-env-changed=LIBGIT2_NO_VENDOR\n",
		"cargo:rerun-if-env-changed=LIBGIT2_SOURCE_DIR\n",
		"src=" + src + "\n",
		"root=" + h.root + "\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(src, "built.txt")); err != nil {
		t.Errorf("script did not run in the source directory: %v", err)
	}
}

func TestBuildCommandVendoredScriptFile(t *testing.T) {
	t.Parallel()

	h := newHarness(t, vendoredManifest)
	override := t.TempDir()
	h.env["LIBGIT2_SOURCE_DIR"] = override

	script := filepath.Join(t.TempDir(), "vendor.sh")
	if err := os.WriteFile(script, []byte("echo cargo:rustc-link-lib=static=git2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := h.run(t, "build", "--script", script); err != nil {
		t.Fatalf("build error = %v\n%s", err, h.stderr.String())
	}
	if !strings.Contains(h.stdout.String(), "cargo:rustc-link-lib=static=git2\n") {
		t.Errorf("script output not passed through:\n%s", h.stdout.String())
	}
}

func TestBuildCommandVendoredFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		mkSource bool
		env      map[string]string
		wantCode int
	}{
		{name: "script exit status", args: []string{"--run", "exit 3"}, mkSource: true, wantCode: ExitCaller},
		{name: "no handler", mkSource: true, wantCode: ExitCaller},
		{name: "relative override", args: []string{"--run", "true"}, env: map[string]string{"LIBGIT2_SOURCE_DIR": "relative/dir"}, wantCode: ExitConfig},
		{name: "syntax error", args: []string{"--run", "if then"}, mkSource: true, wantCode: ExitCaller},
		{name: "script and run", args: []string{"--run", "true", "--script", "x.sh"}, wantCode: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, vendoredManifest)
			if tt.mkSource {
				if err := os.Mkdir(filepath.Join(h.root, "libgit2"), 0o755); err != nil {
					t.Fatal(err)
				}
			}
			for k, v := range tt.env {
				h.env[k] = v
			}

			err := h.run(t, append([]string{"build"}, tt.args...)...)
			if err == nil {
				t.Fatal("build succeeded, want an error")
			}
			if code := exitCode(err); code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (err = %v)", code, tt.wantCode, err)
			}
		})
	}
}

func TestCheckCommand(t *testing.T) {
	t.Parallel()

	h := newHarness(t, probingManifest)
	if err := h.run(t, "check", "--probe"); err != nil {
		t.Fatalf("check error = %v\n%s", err, h.stderr.String())
	}

	out := h.stdout.String()
	for _, want := range []string{"libgit2", ">= 1.7.0, < 1.8.0", "LIBGIT2_NO_VENDOR, LIBGIT2_SOURCE_DIR", "library found via pkg-config"} {
		if !strings.Contains(out, want) {
			t.Errorf("check output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "cargo:") {
		t.Errorf("check printed directives:\n%s", out)
	}
}

func TestCheckCommandVendoredSourceMissing(t *testing.T) {
	t.Parallel()

	h := newHarness(t, vendoredManifest)
	err := h.run(t, "check", "--probe")
	if code := exitCode(err); code != ExitCaller {
		t.Errorf("exit code = %d, want %d (err = %v)", code, ExitCaller, err)
	}
	if !strings.Contains(h.stdout.String(), "source directory missing") {
		t.Errorf("stdout = %s", h.stdout.String())
	}
}

func TestCheckCommandVendoredWithoutSource(t *testing.T) {
	t.Parallel()

	h := newHarness(t, `
[package]
name = "git2-sys"
version = "0.18.0"

[package.metadata.buildkit]
name = "libgit2"
default-mode = "vendored"
`)
	err := h.run(t, "check", "--probe")
	if code := exitCode(err); code != ExitRequirement {
		t.Errorf("exit code = %d, want %d (err = %v)", code, ExitRequirement, err)
	}
	if !strings.Contains(err.Error(), "vendored-source") {
		t.Errorf("error = %v, want it to name vendored-source", err)
	}
}

func TestCheckCommandMalformedSection(t *testing.T) {
	t.Parallel()

	h := newHarness(t, `
[package]
name = "git2-sys"
version = "0.18.0"

[package.metadata.buildkit]
default-mode = "homebrew"
`)
	err := h.run(t, "check")
	if code := exitCode(err); code != ExitConfig {
		t.Errorf("exit code = %d, want %d (err = %v)", code, ExitConfig, err)
	}
}

func TestEnvVarsCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "explicit library", args: []string{"libfoo-bar"}, want: "LIBFOO_BAR_NO_VENDOR\nLIBFOO_BAR_SOURCE_DIR\n"},
		{name: "from manifest", want: "LIBGIT2_NO_VENDOR\nLIBGIT2_SOURCE_DIR\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, vendoredManifest)
			if err := h.run(t, append([]string{"env-vars"}, tt.args...)...); err != nil {
				t.Fatalf("env-vars error = %v", err)
			}
			if got := h.stdout.String(); got != tt.want {
				t.Errorf("env-vars = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigCommands(t *testing.T) {
	t.Parallel()

	h := newHarness(t, vendoredManifest)
	if err := h.run(t, "config", "dump"); err != nil {
		t.Fatalf("config dump error = %v", err)
	}
	if got, want := h.stdout.String(), config.GenerateCUE(func() *config.Config {
		c := config.DefaultConfig()
		c.Fetch = false
		return c
	}()); got != want {
		t.Errorf("config dump = %q, want %q", got, want)
	}

	h.stdout.Reset()
	if err := h.run(t, "config", "show"); err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(h.stdout.String(), "pkg_config_binary") {
		t.Errorf("config show = %s", h.stdout.String())
	}
}

func TestSettingsLoadFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, vendoredManifest)
	h.deps.Config = staticProvider{err: errors.New("broken settings")}

	err := h.run(t, "mode")
	if code := exitCode(err); code != ExitConfig {
		t.Errorf("exit code = %d, want %d (err = %v)", code, ExitConfig, err)
	}
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.IssueID == 0 {
		t.Errorf("error = %v, want a ServiceError with an issue", err)
	}
}
