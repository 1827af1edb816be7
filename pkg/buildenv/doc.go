// SPDX-License-Identifier: MPL-2.0

// Package buildenv provides read access to the ambient build environment.
//
// Build scripts receive their inputs (manifest directory, package identity,
// target triple) through environment variables set by the host build system.
// Every lookup goes through the Environment interface so that resolution logic
// can be exercised with a fixed Map in tests.
package buildenv
