// SPDX-License-Identifier: MPL-2.0

// Package probe defines the request/response contract of system library
// probers and provides two implementations: ExecPkgConfig, which shells out
// to pkg-config, and LayoutVcpkg, which inspects a vcpkg installation tree.
//
// Probers only answer whether and where a library is installed. They never
// emit build directives; the caller translates a Library into directives.
package probe
