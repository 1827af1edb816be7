// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/invowk/buildkit/pkg/buildconf"
	"github.com/invowk/buildkit/pkg/buildkit"
)

func newCheckCommand(app *App, flags *globalFlags) *cobra.Command {
	var probeLib bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the buildkit section of the current package",
		Long: `Load and validate the buildkit section of the current package and print
what was declared, the resolved build mode and the override variables.

With --probe the resolved mode is also exercised: pkg-config or vcpkg is
queried (no directives are printed) and a vendored source directory is
checked for existence.`,
		Args: cobra.NoArgs,
		RunE: app.runE(flags, func(ctx context.Context, s *session, _ []string) error {
			kit, err := app.openKit(ctx, s, buildkit.WithDirectiveWriter(io.Discard))
			if err != nil {
				return err
			}
			mode, err := kit.Mode()
			if err != nil {
				return err
			}
			printSummary(app.stdout, kit, mode)

			if !probeLib {
				return nil
			}
			return checkMode(ctx, app, kit, mode)
		}),
	}
	cmd.Flags().BoolVar(&probeLib, "probe", false, "probe for the library in the resolved mode")
	return cmd
}

func printSummary(out io.Writer, kit *buildkit.BuildKit, mode buildconf.BuildMode) {
	cfg := kit.Config()
	pkg := kit.Package()
	lib := cfg.LibraryName()

	fmt.Fprintln(out, TitleStyle.Render(lib)+SubtitleStyle.Render(fmt.Sprintf(" (%s %s)", pkg.Name, pkg.Version)))
	fmt.Fprintln(out)

	field := func(key, value string) {
		if value == "" {
			value = SubtitleStyle.Render("(not declared)")
		}
		fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render(key), value)
	}
	field("mode", mode.String())
	field("default mode", cfg.DefaultMode.String())

	var pkgConfig string
	if cfg.PkgConfig != nil {
		pkgConfig = cfg.PkgConfig.Name
		if cfg.PkgConfig.Version != nil {
			pkgConfig += " " + cfg.PkgConfig.Version.String()
		}
	}
	field("pkg-config", pkgConfig)

	var vcpkg string
	if cfg.Vcpkg != nil {
		vcpkg = cfg.Vcpkg.Name
	}
	field("vcpkg", vcpkg)

	var vendored string
	if cfg.VendoredSource != nil {
		vendored = fmt.Sprintf("%s %s", cfg.VendoredSource.Kind(), cfg.VendoredSource)
	}
	field("vendored", vendored)
	field("overrides", buildconf.NoVendorVar(lib)+", "+buildconf.SourceDirVar(lib))
}

// checkMode exercises the resolved mode without building anything.
func checkMode(ctx context.Context, app *App, kit *buildkit.BuildKit, mode buildconf.BuildMode) error {
	out := app.stdout
	if mode != buildconf.UseVendoredBuild {
		if err := kit.Build(ctx, nil); err != nil {
			fmt.Fprintln(out, ErrorStyle.Render("✗ ")+"library not found")
			return err
		}
		fmt.Fprintln(out, SuccessStyle.Render("✓ ")+"library found via "+mode.String())
		return nil
	}

	src, err := kit.VendoredSource()
	if err != nil {
		return err
	}
	if src == nil {
		return &buildkit.MissingRequirementError{Mode: buildconf.UseVendoredBuild, Field: "vendored-source"}
	}
	path, err := kit.Layout().SourcePath(src)
	if err != nil {
		return err
	}
	if _, remote := buildconf.StagingDirName(src); remote {
		if _, statErr := os.Stat(path); statErr != nil {
			fmt.Fprintln(out, WarningStyle.Render("! ")+"source not staged yet: "+path)
			return nil
		}
	} else if info, statErr := os.Stat(path); statErr != nil || !info.IsDir() {
		fmt.Fprintln(out, ErrorStyle.Render("✗ ")+"source directory missing: "+path)
		return fmt.Errorf("vendored source directory %s does not exist", path)
	}
	fmt.Fprintln(out, SuccessStyle.Render("✓ ")+"source at "+path)
	return nil
}
