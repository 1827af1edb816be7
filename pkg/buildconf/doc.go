// SPDX-License-Identifier: MPL-2.0

// Package buildconf defines the build configuration a package declares for a
// native library dependency, and decodes it from the package manifest.
//
// The configuration lives in the manifest under package.metadata.buildkit and
// uses kebab-case keys:
//
//	[package.metadata.buildkit]
//	default-mode = "pkg-config"
//	pkg-config = { name = "libgit2", version = { min = "1.7", max = "1.8" } }
//	vcpkg = { name = "libgit2", libs = [{ lib-name = "git2", dll-name = "git2" }] }
//	vendored-source = { path = "vendor/libgit2" }
//
// Decoding validates the section against an embedded CUE schema
// (buildkit_schema.cue), so unknown keys are rejected, and then classifies the
// one-of-several-shapes unions (VersionConstraint, VendoredSource) exactly once.
// Decoding never checks cross-field consistency: a configuration whose default
// mode has no matching requirement decodes fine and fails later, at dispatch.
package buildconf
