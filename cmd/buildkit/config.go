// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/invowk/buildkit/internal/config"
)

// newConfigCommand creates the `buildkit config` command tree.
func newConfigCommand(app *App, flags *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect buildkit settings",
		Long: `Inspect buildkit settings.

Settings are merged from, in increasing priority:
  - the user file (Linux: ~/.config/buildkit/config.cue,
    macOS: ~/Library/Application Support/buildkit/config.cue,
    Windows: %APPDATA%\buildkit\config.cue), or the --config file
  - buildkit.cue next to the package manifest
  - BUILDKIT_* environment variables`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective settings",
		Args:  cobra.NoArgs,
		RunE: app.runE(flags, func(_ context.Context, s *session, _ []string) error {
			showConfig(app, s.settings)
			return nil
		}),
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective settings as CUE",
		Args:  cobra.NoArgs,
		RunE: app.runE(flags, func(_ context.Context, s *session, _ []string) error {
			fmt.Fprint(app.stdout, config.GenerateCUE(s.settings))
			return nil
		}),
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the user settings file path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			dir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(app *App, cfg *config.Config) {
	out := app.stdout
	fmt.Fprintln(out, TitleStyle.Render("Current Settings"))
	fmt.Fprintln(out)

	source := SubtitleStyle.Render("(using defaults)")
	if cfg.Source != "" {
		source = cfg.Source
	}
	fmt.Fprintf(out, "%s: %s\n\n", KeyStyle.Render("Settings file"), source)

	row := func(key, value string) {
		if value == "" {
			value = SubtitleStyle.Render("(unset)")
		} else {
			value = SuccessStyle.Render(value)
		}
		fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render(key), value)
	}
	row("log_level", cfg.LogLevel.String())
	row("manifest_reader", cfg.ManifestReader.String())
	row("pkg_config_binary", cfg.PkgConfigBinary)
	row("cargo_binary", cfg.CargoBinary)
	row("vcpkg_root", cfg.VcpkgRoot)
	row("staging_dir", cfg.StagingDir)
	row("fetch", strconv.FormatBool(cfg.Fetch))
}
