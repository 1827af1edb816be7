// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/invowk/buildkit/pkg/buildkit"
)

func newBuildCommand(app *App, flags *globalFlags) *cobra.Command {
	var scriptFile, inline string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Make the library available and print build directives",
		Long: `Resolve the build mode and act on it.

In pkg-config and vcpkg modes the library is probed and include, link-search
and link-lib directives are printed. In vendored mode the source is staged and
the vendored build script runs in the source directory with
BUILDKIT_SOURCE_PATH and BUILDKIT_BUILD_ROOT exported. The script runs in an
embedded POSIX shell; its standard output is passed through, so it may print
directives of its own.`,
		Args: cobra.NoArgs,
		RunE: app.runE(flags, func(ctx context.Context, s *session, _ []string) error {
			var sh *shellScript
			switch {
			case scriptFile != "":
				data, err := os.ReadFile(scriptFile)
				if err != nil {
					return fmt.Errorf("reading build script: %w", err)
				}
				if sh, err = parseShellScript(string(data), scriptFile); err != nil {
					return err
				}
			case inline != "":
				var err error
				if sh, err = parseShellScript(inline, "--run"); err != nil {
					return err
				}
			}

			kit, err := app.openKit(ctx, s)
			if err != nil {
				return err
			}

			var handler buildkit.VendorHandler
			if sh != nil {
				handler = app.shellHandler(ctx, sh, s)
			}
			return kit.Build(ctx, handler)
		}),
	}
	cmd.Flags().StringVar(&scriptFile, "script", "", "shell script that builds the vendored source")
	cmd.Flags().StringVar(&inline, "run", "", "shell command that builds the vendored source")
	cmd.MarkFlagsMutuallyExclusive("script", "run")
	return cmd
}
