// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/buildkit/pkg/buildconf"
)

func newEnvVarsCommand(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "env-vars [library]",
		Short: "Print the environment variables that control a library's build",
		Long: `Print the <LIB>_NO_VENDOR and <LIB>_SOURCE_DIR variable names for a library.
Without an argument the library declared by the current package is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: app.runE(flags, func(ctx context.Context, s *session, args []string) error {
			var lib string
			if len(args) == 1 {
				lib = args[0]
			} else {
				kit, err := app.openKit(ctx, s)
				if err != nil {
					return err
				}
				lib = kit.Config().LibraryName()
			}
			fmt.Fprintln(app.stdout, buildconf.NoVendorVar(lib))
			fmt.Fprintln(app.stdout, buildconf.SourceDirVar(lib))
			return nil
		}),
	}
}
