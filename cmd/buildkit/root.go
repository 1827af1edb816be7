// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "buildkit",
		Short: "Locate or build the native library behind a -sys package",
		Long: TitleStyle.Render("buildkit") + SubtitleStyle.Render(" - native library resolution for build scripts") + `

buildkit reads the [package.metadata.buildkit] section of the package being
built and makes its native library available: by probing pkg-config, by
probing vcpkg on MSVC targets, or by building a vendored copy of the source.

It is meant to run from a build script, where the host build system sets
CARGO_MANIFEST_DIR, CARGO_PKG_NAME, CARGO_PKG_VERSION, TARGET and OUT_DIR.

` + SubtitleStyle.Render("Examples:") + `
  buildkit mode                      Print the resolved build mode
  buildkit check --probe             Show the configuration and probe for the library
  buildkit build --script vendor.sh  Emit link directives or run vendor.sh on the source
  buildkit env-vars                  Print the override variables for the library`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "settings file (default is $XDG_CONFIG_HOME/buildkit/config.cue)")

	rootCmd.AddCommand(newModeCommand(app, flags))
	rootCmd.AddCommand(newCheckCommand(app, flags))
	rootCmd.AddCommand(newBuildCommand(app, flags))
	rootCmd.AddCommand(newEnvVarsCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI with production dependencies and exits with the code
// matching the failure.
func Execute() {
	rootCmd := NewRootCommand(NewApp(Dependencies{}))
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitCaller)
	}
}

// runE adapts a command body to cobra: it opens a session, and on failure
// renders the matching issue card and returns an ExitError.
func (a *App) runE(flags *globalFlags, fn func(ctx context.Context, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := a.newSession(ctx, flags)
		if err == nil {
			err = fn(ctx, s, args)
		}
		if err == nil {
			return nil
		}

		svcErr := classifyError(err)
		renderServiceError(a.stderr, svcErr, flags.verbose)
		return &ExitError{Code: svcErr.Code, Err: svcErr}
	}
}
