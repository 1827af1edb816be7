// SPDX-License-Identifier: MPL-2.0

// Package fetch stages remote vendored sources on the local filesystem.
//
// Fetching happens before dispatch: the directory a remote source is staged
// into is the one a VendoredBuildContext later reports to the build handler.
// A staged directory carries a marker file holding the content hash; a later
// fetch of the same source into the same directory is a no-op.
package fetch
