// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newModeCommand(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mode",
		Short: "Print the build mode for the current package",
		Long: `Print the build mode selected for the current package: vendored when the
package declares default-mode = "vendored", vcpkg on *-windows-msvc targets,
pkg-config otherwise.`,
		Args: cobra.NoArgs,
		RunE: app.runE(flags, func(ctx context.Context, s *session, _ []string) error {
			kit, err := app.openKit(ctx, s)
			if err != nil {
				return err
			}
			mode, err := kit.Mode()
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, mode)
			return nil
		}),
	}
}
