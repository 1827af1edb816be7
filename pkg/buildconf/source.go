// SPDX-License-Identifier: MPL-2.0

package buildconf

import "strings"

// Kinds of vendored source, as reported by VendoredSource.Kind.
const (
	SourceRemoteArchive     SourceKind = "archive"
	SourceRemoteRepository  SourceKind = "repository"
	SourceLocalRelativePath SourceKind = "relative-path"
	SourceLocalAbsolutePath SourceKind = "absolute-path"
)

type (
	// SourceKind names a VendoredSource variant.
	SourceKind string

	// VendoredSource describes where the bundled copy of a library's source
	// comes from. Implementations are RemoteArchive, RemoteRepository,
	// LocalRelativePath and LocalAbsolutePath; the set is closed.
	VendoredSource interface {
		Kind() SourceKind
		String() string
		isVendoredSource()
	}

	// RemoteArchive is a source tarball downloaded from URL and verified
	// against Hash (e.g. "sha256:<hex>").
	RemoteArchive struct {
		URL  string
		Hash string
	}

	// RemoteRepository is a git repository checked out at Ref. Hash is the
	// expected commit (full or abbreviated).
	RemoteRepository struct {
		URL  string
		Ref  string
		Hash string
	}

	// LocalRelativePath is a source directory relative to the build root.
	LocalRelativePath struct {
		Path string
	}

	// LocalAbsolutePath is a host-specific source directory. It is never
	// decoded from a manifest; it only comes from an environment override.
	LocalAbsolutePath struct {
		Path string
	}
)

func (RemoteArchive) isVendoredSource()     {}
func (RemoteRepository) isVendoredSource()  {}
func (LocalRelativePath) isVendoredSource() {}
func (LocalAbsolutePath) isVendoredSource() {}

func (RemoteArchive) Kind() SourceKind     { return SourceRemoteArchive }
func (RemoteRepository) Kind() SourceKind  { return SourceRemoteRepository }
func (LocalRelativePath) Kind() SourceKind { return SourceLocalRelativePath }
func (LocalAbsolutePath) Kind() SourceKind { return SourceLocalAbsolutePath }

func (s RemoteArchive) String() string { return s.URL + " (" + s.Hash + ")" }
func (s RemoteRepository) String() string {
	return s.URL + "@" + s.Ref + " (" + s.Hash + ")"
}
func (s LocalRelativePath) String() string { return s.Path }
func (s LocalAbsolutePath) String() string { return s.Path }

// StagingDirName returns the directory name, below the staging root, that a
// fetched remote source is expected to occupy. It is derived from the content
// hash only, so the same declaration always maps to the same directory.
// Local sources have no staging directory and report false.
func StagingDirName(src VendoredSource) (string, bool) {
	switch s := src.(type) {
	case RemoteArchive:
		return "archive-" + slug(s.Hash), true
	case RemoteRepository:
		return "git-" + slug(s.Hash), true
	case LocalRelativePath, LocalAbsolutePath:
		return "", false
	default:
		return "", false
	}
}

// slug lowercases s and replaces every run of characters outside [a-z0-9]
// with a single dash.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
