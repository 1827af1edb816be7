// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/buildkit/cmd/buildkit"

func main() {
	cmd.Execute()
}
