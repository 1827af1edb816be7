// SPDX-License-Identifier: MPL-2.0

package buildconf

import "strings"

const (
	noVendorSuffix  = "_NO_VENDOR"
	sourceDirSuffix = "_SOURCE_DIR"
)

// NormalizeEnvName turns a library name into an environment variable stem:
// ASCII letters are uppercased, digits are kept and every run of other
// characters becomes a single underscore ("libfoo-bar" -> "LIBFOO_BAR").
func NormalizeEnvName(lib string) string {
	var b strings.Builder
	b.Grow(len(lib))
	underscore := false
	for i := 0; i < len(lib); i++ {
		c := lib[i]
		switch {
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
			underscore = false
		case (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'):
			b.WriteByte(c)
			underscore = false
		default:
			if !underscore {
				b.WriteByte('_')
				underscore = true
			}
		}
	}
	return b.String()
}

// NoVendorVar returns the rebuild-trigger variable for lib, e.g. LIBFOO_BAR_NO_VENDOR.
func NoVendorVar(lib string) string {
	return NormalizeEnvName(lib) + noVendorSuffix
}

// SourceDirVar returns the variable that overrides the vendored source of lib
// with an absolute host path, e.g. LIBFOO_BAR_SOURCE_DIR.
func SourceDirVar(lib string) string {
	return NormalizeEnvName(lib) + sourceDirSuffix
}
