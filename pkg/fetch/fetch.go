// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invowk/buildkit/pkg/buildconf"
)

// MarkerFile is written into a staged directory once its content is complete.
const MarkerFile = ".buildkit-fetched"

// ErrFetchFailed is the sentinel error wrapped by FetchError.
var ErrFetchFailed = errors.New("failed to fetch vendored source")

type (
	// Fetcher stages src into dest. Implementations leave dest untouched on
	// failure and return nil without network access when dest is already staged.
	Fetcher interface {
		Fetch(ctx context.Context, src buildconf.VendoredSource, dest string) error
	}

	// Multi dispatches on the source variant. Local sources need no fetching.
	Multi struct {
		Archive Fetcher
		Git     Fetcher
	}

	// FetchError reports a failed fetch of Source into Dest.
	FetchError struct {
		Source buildconf.VendoredSource
		Dest   string
		Err    error
	}
)

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s into %s: %v", e.Source, e.Dest, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error { return e.Err }

// Is reports ErrFetchFailed as a match.
func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

// Fetch implements Fetcher.
func (m *Multi) Fetch(ctx context.Context, src buildconf.VendoredSource, dest string) error {
	var f Fetcher
	switch src.(type) {
	case buildconf.RemoteArchive:
		f = m.Archive
	case buildconf.RemoteRepository:
		f = m.Git
	case buildconf.LocalRelativePath, buildconf.LocalAbsolutePath:
		return nil
	default:
		return &FetchError{Source: src, Dest: dest, Err: fmt.Errorf("unsupported source %T", src)}
	}
	if f == nil {
		return &FetchError{Source: src, Dest: dest, Err: fmt.Errorf("no fetcher configured for %s sources", src.Kind())}
	}
	return f.Fetch(ctx, src, dest)
}

// Staged reports whether dest holds a completed fetch of content hash.
func Staged(dest, hash string) bool {
	data, err := os.ReadFile(filepath.Join(dest, MarkerFile))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == hash
}

// commit moves the fully populated tmp directory to dest and marks it staged.
// A stale dest (left by an interrupted or different fetch) is replaced.
func commit(tmp, dest, hash string) error {
	if err := os.WriteFile(filepath.Join(tmp, MarkerFile), []byte(hash+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write marker: %w", err)
	}
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("failed to remove stale %s: %w", dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("failed to move staged source into place: %w", err)
	}
	return nil
}

// stagingDir creates a temporary sibling of dest so the final rename stays
// on one filesystem.
func stagingDir(dest string) (string, error) {
	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("failed to create parent directory: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(dest)+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	return tmp, nil
}
