// SPDX-License-Identifier: MPL-2.0

// Package manifest locates the current package's manifest from the build
// environment, reads it through a Reader and decodes the package's
// buildkit section into a buildconf.Config.
//
// Two readers are provided. FileReader parses Cargo.toml directly with
// go-toml; CommandReader asks `cargo metadata --no-deps` and therefore sees
// the manifest exactly as the build system resolved it (inherited workspace
// fields included). Neither follows dependency links: only the package's own
// declarations matter.
package manifest
