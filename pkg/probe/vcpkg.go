// SPDX-License-Identifier: MPL-2.0

package probe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invowk/buildkit/pkg/buildenv"
)

// Environment variables consulted by LayoutVcpkg.
const (
	// VcpkgRootVar points at the vcpkg checkout.
	VcpkgRootVar = "VCPKG_ROOT"
	// VcpkgTripletVar overrides the triplet derived from the target.
	VcpkgTripletVar = "VCPKGRS_TRIPLET"
	// TargetFeaturesVar lists enabled target features (crt-static selects static triplets).
	TargetFeaturesVar = "CARGO_CFG_TARGET_FEATURE"
)

// ErrVcpkgRootNotSet is returned when no vcpkg root is configured.
var ErrVcpkgRootNotSet = errors.New("vcpkg root not set (configure vcpkg_root or set $VCPKG_ROOT)")

// LayoutVcpkg finds ports by inspecting the installed tree of a vcpkg root:
// <root>/installed/<triplet>/{include,lib,bin}.
type LayoutVcpkg struct {
	// Root is the vcpkg checkout; $VCPKG_ROOT when empty.
	Root string
	// Triplet is the vcpkg triplet; $VCPKGRS_TRIPLET or derived from $TARGET when empty.
	Triplet string
	// Env supplies the variables above; buildenv.OS() when nil.
	Env buildenv.Environment
}

// ProbeVcpkg checks that every requested library (and DLL) is installed for
// the triplet.
func (v *LayoutVcpkg) ProbeVcpkg(_ context.Context, req VcpkgRequest) (*Library, error) {
	env := v.Env
	if env == nil {
		env = buildenv.OS()
	}

	root := v.Root
	if root == "" {
		root = buildenv.Lookup(env, VcpkgRootVar)
	}
	if root == "" {
		return nil, ErrVcpkgRootNotSet
	}

	triplet, err := v.triplet(env)
	if err != nil {
		return nil, err
	}

	base := filepath.Join(root, "installed", triplet)
	if info, err := os.Stat(base); err != nil || !info.IsDir() {
		return nil, &NotFoundError{Library: req.Name, Detail: fmt.Sprintf("no packages installed for triplet %s under %s", triplet, root)}
	}

	libs := req.Libs
	if len(libs) == 0 {
		libs = []LibName{{Lib: req.Name}}
	}

	lib := &Library{
		Name:         req.Name,
		IncludePaths: []string{filepath.Join(base, "include")},
		LinkPaths:    []string{filepath.Join(base, "lib")},
	}
	for _, l := range libs {
		libFile := filepath.Join(base, "lib", l.Lib+".lib")
		if !fileExists(libFile) {
			return nil, &NotFoundError{Library: req.Name, Detail: "missing import library " + libFile}
		}
		lib.Libs = append(lib.Libs, l.Lib)

		if l.DLL == "" {
			continue
		}
		dllFile := filepath.Join(base, "bin", l.DLL+".dll")
		if !fileExists(dllFile) {
			return nil, &NotFoundError{Library: req.Name, Detail: "missing DLL " + dllFile}
		}
		lib.DLLPaths = append(lib.DLLPaths, dllFile)
	}

	lib.Version = installedVersion(filepath.Join(root, "installed", "vcpkg", "status"), req.Name, triplet)
	return lib, nil
}

func (v *LayoutVcpkg) triplet(env buildenv.Environment) (string, error) {
	if v.Triplet != "" {
		return v.Triplet, nil
	}
	if t := buildenv.Lookup(env, VcpkgTripletVar); t != "" {
		return t, nil
	}
	target, err := buildenv.Require(env, buildenv.Target)
	if err != nil {
		return "", err
	}
	static := strings.Contains(buildenv.Lookup(env, TargetFeaturesVar), "crt-static")
	return TripletForTarget(target, static)
}

// TripletForTarget maps an MSVC target triple to its vcpkg triplet.
func TripletForTarget(target string, static bool) (string, error) {
	arch, _, _ := strings.Cut(target, "-")
	var triplet string
	switch arch {
	case "x86_64":
		triplet = "x64-windows"
	case "i686", "i586":
		triplet = "x86-windows"
	case "aarch64":
		triplet = "arm64-windows"
	default:
		return "", fmt.Errorf("no vcpkg triplet known for target %q", target)
	}
	if static {
		triplet += "-static"
	}
	return triplet, nil
}

// installedVersion reads the version of pkg for triplet from the vcpkg status
// database, a sequence of blank-line separated "Key: Value" paragraphs.
// It returns "" when the database or the entry is missing.
func installedVersion(statusFile, pkg, triplet string) string {
	f, err := os.Open(statusFile)
	if err != nil {
		return ""
	}
	defer f.Close()

	fields := map[string]string{}
	match := func() string {
		if fields["Package"] == pkg && fields["Architecture"] == triplet &&
			strings.HasSuffix(fields["Status"], " installed") {
			return fields["Version"]
		}
		return ""
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if v := match(); v != "" {
				return v
			}
			fields = map[string]string{}
			continue
		}
		if key, value, ok := strings.Cut(line, ":"); ok {
			fields[key] = strings.TrimSpace(value)
		}
	}
	return match()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
